package codec

import (
	"fmt"

	"github.com/deepch/vdk/codec/aacparser"
	"m7s.live/player/pkg"
)

type AACCtx struct {
	aacparser.CodecData
}

// NewAACCtx parses an AudioSpecificConfig.
func NewAACCtx(config []byte) (*AACCtx, error) {
	data, err := aacparser.NewCodecDataFromMPEG4AudioConfigBytes(config)
	if err != nil {
		return nil, fmt.Errorf("aac codec data: %w", err)
	}
	return &AACCtx{data}, nil
}

func (*AACCtx) FourCC() FourCC {
	return FourCC_MP4A
}

func (ctx *AACCtx) GetChannels() int {
	return ctx.ChannelLayout().Count()
}

func (ctx *AACCtx) GetSampleSize() int {
	return 16
}

func (ctx *AACCtx) GetSampleRate() int {
	return ctx.SampleRate()
}

func (ctx *AACCtx) GetInfo() string {
	return fmt.Sprintf("sample rate: %d, channels: %d, sample size: %d", ctx.GetSampleRate(), ctx.GetChannels(), ctx.GetSampleSize())
}

// Apply fills the audio fields format does not declare. The decoded
// encoding of AAC is always 16 bit PCM.
func (ctx *AACCtx) Apply(format *pkg.MediaFormat) {
	if format.SampleRate == 0 {
		format.SampleRate = ctx.GetSampleRate()
	}
	if format.ChannelCount == 0 {
		format.ChannelCount = ctx.GetChannels()
	}
	if format.Encoding == pkg.EncodingInvalid {
		format.Encoding = pkg.EncodingPCM16
	}
}
