package pkg

import "time"

type (
	// Demuxer splits a container into per-track compressed sample streams.
	// SampleTrackIndex reports the track whose next sample is due, or NoTrack.
	// ReadSampleData returns -1 once no sample is left.
	Demuxer interface {
		Open(source string) error
		TrackCount() int
		TrackFormat(index int) (MediaFormat, error)
		SelectTrack(index int) error
		SampleTrackIndex() int
		SampleTime() int64
		SampleFlags() BufferFlag
		ReadSampleData(buf []byte) (int, error)
		Advance() bool
		Release() error
	}
	// Decoder turns compressed samples of one track into raw output buffers.
	// Buffer indices are slots owned by the decoder; a dequeued output slot
	// stays unavailable until it is released.
	Decoder interface {
		Configure(format MediaFormat, target RenderTarget, flags int) error
		Start() error
		DequeueInputBuffer(timeout time.Duration) (int, error)
		InputBuffer(index int) []byte
		QueueInputBuffer(index, offset, size int, ptsUs int64, flags BufferFlag) error
		DequeueOutputBuffer(info *BufferInfo, timeout time.Duration) (int, error)
		OutputBuffer(index int) []byte
		OutputFormat() MediaFormat
		ReleaseOutputBuffer(index int, render bool) error
		ReleaseOutputBufferAt(index int, renderTimeNs int64) error
		Stop() error
		Release() error
	}
	DecoderFactory interface {
		CreateDecoder(mime string) (Decoder, error)
	}
	// RenderTarget is the opaque display handle handed to video decoders.
	RenderTarget = any
	// FrameRenderer is implemented by render targets that accept frames directly.
	FrameRenderer interface {
		RenderFrame(frame []byte, renderTimeNs int64) error
	}
	// CodecConfigReceiver is implemented by render targets that need the
	// out-of-band codec configuration of the stream they display.
	CodecConfigReceiver interface {
		SetCodecConfig(format MediaFormat) error
	}
	AudioContentType int
	TransferMode     int
	AudioSinkConfig  struct {
		ContentType  AudioContentType
		SampleRate   int
		ChannelMask  ChannelMask
		Encoding     PCMEncoding
		BufferSize   int
		TransferMode TransferMode
		SourceMime   string
		CodecConfig  [][]byte
	}
	AudioSink interface {
		Play() error
		Write(data []byte, ptsUs int64, blocking bool) (int, error)
		Release() error
	}
	// QueueingAudioSink takes ownership of queued buffers and reports each
	// one back through the consumed callback once it has been played.
	QueueingAudioSink interface {
		AudioSink
		QueueBuffer(data []byte, id int, ptsUs int64) error
		SetOnBufferConsumed(func(id int))
	}
	AudioSinkFactory interface {
		MinBufferSize(sampleRate int, mask ChannelMask, encoding PCMEncoding) (int, error)
		NewAudioSink(conf AudioSinkConfig) (AudioSink, error)
	}
)

const (
	ContentTypeUnknown AudioContentType = iota
	ContentTypeSpeech
	ContentTypeMusic
	ContentTypeMovie
)

const (
	TransferModeStatic TransferMode = iota
	TransferModeStream
)
