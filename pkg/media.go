package pkg

import (
	"fmt"
	"strings"
	"time"
)

const (
	MimePrefixVideo = "video/"
	MimePrefixAudio = "audio/"
)

type MediaKind byte

const (
	KindUnknown MediaKind = iota
	KindVideo
	KindAudio
)

func (k MediaKind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	}
	return "unknown"
}

func KindOf(mime string) MediaKind {
	switch {
	case strings.HasPrefix(mime, MimePrefixVideo):
		return KindVideo
	case strings.HasPrefix(mime, MimePrefixAudio):
		return KindAudio
	}
	return KindUnknown
}

// PCMEncoding is the sample encoding of decoded audio.
type PCMEncoding int

const (
	EncodingInvalid  PCMEncoding = 0
	EncodingPCM16    PCMEncoding = 2
	EncodingPCM8     PCMEncoding = 3
	EncodingPCMFloat PCMEncoding = 4
)

func (e PCMEncoding) BytesPerSample() int {
	switch e {
	case EncodingPCM8:
		return 1
	case EncodingPCM16:
		return 2
	case EncodingPCMFloat:
		return 4
	}
	return 0
}

func (e PCMEncoding) String() string {
	switch e {
	case EncodingPCM8:
		return "pcm8"
	case EncodingPCM16:
		return "pcm16"
	case EncodingPCMFloat:
		return "float"
	}
	return "invalid"
}

// MediaFormat describes a track or a decoder output. Zero fields are absent.
type MediaFormat struct {
	MimeType     string
	Width        int
	Height       int
	FrameRate    float64
	SampleRate   int
	ChannelCount int
	ChannelMask  ChannelMask
	Encoding     PCMEncoding
	Duration     time.Duration
	MaxInputSize int
	CodecConfig  [][]byte
}

func (f *MediaFormat) Kind() MediaKind {
	return KindOf(f.MimeType)
}

func (f MediaFormat) String() string {
	switch f.Kind() {
	case KindVideo:
		return fmt.Sprintf("%s %dx%d@%.2f", f.MimeType, f.Width, f.Height, f.FrameRate)
	case KindAudio:
		return fmt.Sprintf("%s %dHz %dch", f.MimeType, f.SampleRate, f.ChannelCount)
	}
	return f.MimeType
}

type BufferFlag uint32

const (
	FlagKeyFrame BufferFlag = 1 << iota
	FlagCodecConfig
	FlagEndOfStream
)

func (f BufferFlag) Has(flag BufferFlag) bool {
	return f&flag != 0
}

// BufferInfo is the metadata of a dequeued output buffer.
type BufferInfo struct {
	Offset             int
	Size               int
	PresentationTimeUs int64
	Flags              BufferFlag
}

func (b *BufferInfo) Set(offset, size int, ptsUs int64, flags BufferFlag) {
	b.Offset, b.Size, b.PresentationTimeUs, b.Flags = offset, size, ptsUs, flags
}

// Negative results of Decoder.DequeueOutputBuffer.
const (
	InfoTryAgainLater        = -1
	InfoOutputFormatChanged  = -2
	InfoOutputBuffersChanged = -3
)

// NoTrack is returned by Demuxer.SampleTrackIndex once every selected track is exhausted.
const NoTrack = -1
