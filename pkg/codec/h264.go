package codec

import (
	"fmt"

	"github.com/deepch/vdk/codec/h264parser"
	"m7s.live/player/pkg"
)

type H264NALUType byte

const (
	NALU_Non_IDR_Picture       H264NALUType = 1
	NALU_IDR_Picture           H264NALUType = 5
	NALU_SEI                   H264NALUType = 6
	NALU_SPS                   H264NALUType = 7
	NALU_PPS                   H264NALUType = 8
	NALU_Access_Unit_Delimiter H264NALUType = 9
)

func ParseH264NALUType(b byte) H264NALUType {
	return H264NALUType(b & 0x1F)
}

type H264Ctx struct {
	h264parser.CodecData
}

func NewH264Ctx(sps, pps []byte) (*H264Ctx, error) {
	data, err := h264parser.NewCodecDataFromSPSAndPPS(sps, pps)
	if err != nil {
		return nil, fmt.Errorf("h264 codec data: %w", err)
	}
	return &H264Ctx{data}, nil
}

func (*H264Ctx) FourCC() FourCC {
	return FourCC_H264
}

func (ctx *H264Ctx) GetInfo() string {
	return fmt.Sprintf("fps: %d, resolution: %s", ctx.FPS(), ctx.Resolution())
}

func (ctx *H264Ctx) GetRecord() []byte {
	return ctx.AVCDecoderConfRecordBytes()
}

// Apply fills the video fields format does not declare.
func (ctx *H264Ctx) Apply(format *pkg.MediaFormat) {
	if format.Width == 0 || format.Height == 0 {
		format.Width, format.Height = ctx.Width(), ctx.Height()
	}
	if format.FrameRate == 0 {
		format.FrameRate = float64(ctx.FPS())
	}
}
