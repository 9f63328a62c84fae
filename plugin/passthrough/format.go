package passthrough

import (
	"fmt"

	"github.com/bluenviron/mediacommon/pkg/codecs/h264"
	"github.com/bluenviron/mediacommon/pkg/codecs/mpeg4audio"
	"m7s.live/player/pkg"
	"m7s.live/player/pkg/codec"
)

// outputFormat derives what a decoder reports once it knows the stream:
// the picture size from the SPS, the PCM layout from the AudioSpecificConfig.
func outputFormat(format pkg.MediaFormat) (out pkg.MediaFormat, err error) {
	out = format
	out.CodecConfig = append([][]byte(nil), format.CodecConfig...)
	if err = codec.Complete(&out); err != nil {
		return
	}
	switch out.MimeType {
	case codec.MimeH264:
		if len(out.CodecConfig) > 0 {
			var sps h264.SPS
			if err = sps.Unmarshal(out.CodecConfig[0]); err != nil {
				return out, fmt.Errorf("sps: %w", err)
			}
			out.Width, out.Height = sps.Width(), sps.Height()
			if fps := sps.FPS(); fps > 0 {
				out.FrameRate = fps
			}
		}
	case codec.MimeAAC:
		if len(out.CodecConfig) > 0 {
			var asc mpeg4audio.Config
			if err = asc.Unmarshal(out.CodecConfig[0]); err != nil {
				return out, fmt.Errorf("audio specific config: %w", err)
			}
			out.SampleRate, out.ChannelCount = asc.SampleRate, asc.ChannelCount
		}
	}
	if out.Kind() == pkg.KindAudio && out.Encoding == pkg.EncodingInvalid {
		out.Encoding = pkg.EncodingPCM16
	}
	return
}
