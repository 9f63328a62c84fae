package adts

import (
	"fmt"
	"io"
	"log/slog"

	"m7s.live/player/pkg"
)

// The minimum sink buffer holds 1/bufferFraction of a second.
const bufferFraction = 50

type Factory struct {
	*slog.Logger
	Writer    io.Writer
	Queued    bool
	QueueSize int
}

func (f *Factory) MinBufferSize(sampleRate int, mask pkg.ChannelMask, encoding pkg.PCMEncoding) (int, error) {
	if sampleRate <= 0 || mask == pkg.ChannelInvalid || encoding.BytesPerSample() == 0 {
		return 0, fmt.Errorf("%dHz %s %s: %w", sampleRate, mask, encoding, pkg.ErrInvalidAudioFormat)
	}
	return sampleRate * mask.Count() * encoding.BytesPerSample() / bufferFraction, nil
}

func (f *Factory) NewAudioSink(conf pkg.AudioSinkConfig) (pkg.AudioSink, error) {
	if conf.TransferMode != pkg.TransferModeStream {
		return nil, fmt.Errorf("transfer mode %d: %w", conf.TransferMode, pkg.ErrInvalidAudioFormat)
	}
	minSize, err := f.MinBufferSize(conf.SampleRate, conf.ChannelMask, conf.Encoding)
	if err != nil {
		return nil, err
	}
	if conf.BufferSize < minSize {
		return nil, fmt.Errorf("buffer %d below minimum %d: %w", conf.BufferSize, minSize, pkg.ErrInvalidAudioFormat)
	}
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sink, err := newSink(logger.With("sink", "adts"), f.Writer, conf)
	if err != nil {
		return nil, err
	}
	if f.Queued {
		return newQueueSink(sink, f.QueueSize), nil
	}
	return sink, nil
}
