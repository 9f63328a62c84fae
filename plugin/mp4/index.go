package plugin_mp4

import (
	"log/slog"

	"m7s.live/player/pkg"
	mp4 "m7s.live/player/plugin/mp4/pkg"
)

// NewDemuxer returns a pkg.Demuxer for progressive MP4 files.
func NewDemuxer(logger *slog.Logger) pkg.Demuxer {
	return mp4.NewDemuxer(logger)
}

// Probe lists the track formats of an MP4 file without reading samples.
func Probe(logger *slog.Logger, source string) (formats []pkg.MediaFormat, err error) {
	d := mp4.NewDemuxer(logger)
	if err = d.Open(source); err != nil {
		return
	}
	defer d.Release()
	for i := 0; i < d.TrackCount(); i++ {
		var format pkg.MediaFormat
		if format, err = d.TrackFormat(i); err != nil {
			return
		}
		formats = append(formats, format)
	}
	return
}
