package codec

import (
	"encoding/binary"
	"strings"

	"m7s.live/player/pkg"
)

const (
	MimeH264 = "video/avc"
	MimeH265 = "video/hevc"
	MimeAV1  = "video/av01"
	MimeVP9  = "video/x-vnd.on2.vp9"
	MimeAAC  = "audio/mp4a-latm"
	MimeOpus = "audio/opus"
	MimeRaw  = "audio/raw"
)

type FourCC [4]byte

var (
	FourCC_H264   = FourCC{'a', 'v', 'c', '1'}
	FourCC_H264_3 = FourCC{'a', 'v', 'c', '3'}
	FourCC_H265   = FourCC{'h', 'v', 'c', '1'}
	FourCC_HEV1   = FourCC{'h', 'e', 'v', '1'}
	FourCC_AV1    = FourCC{'a', 'v', '0', '1'}
	FourCC_VP9    = FourCC{'v', 'p', '0', '9'}
	FourCC_MP4A   = FourCC{'m', 'p', '4', 'a'}
	FourCC_OPUS   = FourCC{'O', 'p', 'u', 's'}
)

var mimeByFourCC = map[FourCC]string{
	FourCC_H264:   MimeH264,
	FourCC_H264_3: MimeH264,
	FourCC_H265:   MimeH265,
	FourCC_HEV1:   MimeH265,
	FourCC_AV1:    MimeAV1,
	FourCC_VP9:    MimeVP9,
	FourCC_MP4A:   MimeAAC,
	FourCC_OPUS:   MimeOpus,
}

func ParseFourCC(s string) (f FourCC) {
	copy(f[:], s)
	return
}

func (f FourCC) String() string {
	return string(f[:])
}

func (f FourCC) Uint32() uint32 {
	return binary.BigEndian.Uint32(f[:])
}

// MimeOf maps a sample entry fourcc to a mime type. Unknown entries keep the
// kind of their handler so they can still be classified.
func MimeOf(fourcc string, kind pkg.MediaKind) string {
	if mime, ok := mimeByFourCC[ParseFourCC(fourcc)]; ok {
		return mime
	}
	name := strings.ToLower(strings.TrimSpace(fourcc))
	switch kind {
	case pkg.KindVideo:
		return pkg.MimePrefixVideo + name
	case pkg.KindAudio:
		return pkg.MimePrefixAudio + name
	}
	return "application/" + name
}
