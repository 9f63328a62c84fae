package codec

import (
	"fmt"

	"github.com/deepch/vdk/codec/h265parser"
	"m7s.live/player/pkg"
)

type H265Ctx struct {
	h265parser.CodecData
}

func NewH265Ctx(vps, sps, pps []byte) (*H265Ctx, error) {
	data, err := h265parser.NewCodecDataFromVPSAndSPSAndPPS(vps, sps, pps)
	if err != nil {
		return nil, fmt.Errorf("h265 codec data: %w", err)
	}
	return &H265Ctx{data}, nil
}

func (*H265Ctx) FourCC() FourCC {
	return FourCC_H265
}

func (ctx *H265Ctx) GetInfo() string {
	return fmt.Sprintf("fps: %d, resolution: %s", ctx.FPS(), ctx.Resolution())
}

func (ctx *H265Ctx) Apply(format *pkg.MediaFormat) {
	if format.Width == 0 || format.Height == 0 {
		format.Width, format.Height = ctx.Width(), ctx.Height()
	}
	if format.FrameRate == 0 {
		format.FrameRate = float64(ctx.FPS())
	}
}

type H265NALUType byte

const (
	NAL_UNIT_CODED_SLICE_BLA_W_LP H265NALUType = 16
	NAL_UNIT_CODED_SLICE_CRA      H265NALUType = 21
	NAL_UNIT_VPS                  H265NALUType = 32
)

func ParseH265NALUType(b byte) H265NALUType {
	return H265NALUType(b & 0x7E >> 1)
}

// IsIRAP reports a random access picture (BLA, IDR or CRA).
func (t H265NALUType) IsIRAP() bool {
	return t >= NAL_UNIT_CODED_SLICE_BLA_W_LP && t <= NAL_UNIT_CODED_SLICE_CRA
}
