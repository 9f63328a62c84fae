package codec

import (
	"m7s.live/player/pkg"
)

type FormatApplier interface {
	FourCC() FourCC
	GetInfo() string
	Apply(format *pkg.MediaFormat)
}

// ParseCodecConfig builds the codec context of format from its CodecConfig.
// It returns nil without error for codecs that carry no parsable config.
func ParseCodecConfig(format pkg.MediaFormat) (ctx FormatApplier, err error) {
	csd := format.CodecConfig
	switch {
	case format.MimeType == MimeH264 && len(csd) >= 2:
		var h264 *H264Ctx
		if h264, err = NewH264Ctx(csd[0], csd[1]); err == nil {
			ctx = h264
		}
	case format.MimeType == MimeH265 && len(csd) >= 3:
		var h265 *H265Ctx
		if h265, err = NewH265Ctx(csd[0], csd[1], csd[2]); err == nil {
			ctx = h265
		}
	case format.MimeType == MimeAAC && len(csd) >= 1:
		var aac *AACCtx
		if aac, err = NewAACCtx(csd[0]); err == nil {
			ctx = aac
		}
	}
	return
}

// Complete fills format fields derivable from its codec configuration.
func Complete(format *pkg.MediaFormat) error {
	ctx, err := ParseCodecConfig(*format)
	if err != nil || ctx == nil {
		return err
	}
	ctx.Apply(format)
	return nil
}
