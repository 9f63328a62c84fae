package player

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"m7s.live/player/pkg"
	"m7s.live/player/pkg/config"
	"m7s.live/player/pkg/task"
)

type audioRenderer interface {
	render(slot int, info *pkg.BufferInfo) error
}

// discardAudio hands buffers straight back while no sink exists.
type discardAudio struct {
	decoder pkg.Decoder
}

func (r discardAudio) render(slot int, _ *pkg.BufferInfo) error {
	return r.decoder.ReleaseOutputBuffer(slot, false)
}

// directAudio copies each buffer into the sink with a blocking write and
// releases it right after.
type directAudio struct {
	decoder pkg.Decoder
	sink    pkg.AudioSink
	stats   *Stats
}

func (r directAudio) render(slot int, info *pkg.BufferInfo) error {
	if info.Size > 0 {
		data := r.decoder.OutputBuffer(slot)[info.Offset : info.Offset+info.Size]
		for len(data) > 0 {
			n, err := r.sink.Write(data, info.PresentationTimeUs, true)
			if err != nil {
				return err
			}
			if n <= 0 {
				return fmt.Errorf("audio sink accepted %d bytes", n)
			}
			r.stats.AudioBytes.Add(int64(n))
			data = data[n:]
		}
	}
	return r.decoder.ReleaseOutputBuffer(slot, false)
}

// queuedAudio lends buffers to the sink, which returns them through the
// consumed callback once played.
type queuedAudio struct {
	decoder pkg.Decoder
	sink    pkg.QueueingAudioSink
	stats   *Stats
}

func (r queuedAudio) render(slot int, info *pkg.BufferInfo) error {
	if info.Size == 0 {
		return r.decoder.ReleaseOutputBuffer(slot, false)
	}
	data := r.decoder.OutputBuffer(slot)[info.Offset : info.Offset+info.Size]
	if err := r.sink.QueueBuffer(data, slot, info.PresentationTimeUs); err != nil {
		return err
	}
	r.stats.AudioBytes.Add(int64(info.Size))
	return nil
}

func (p *Player) renderAudio() (bool, error) {
	var info pkg.BufferInfo
	decoder := p.audio.Decoder
	slot, err := decoder.DequeueOutputBuffer(&info, p.PollTimeout)
	if err != nil {
		return false, err
	}
	switch {
	case slot >= 0:
		renderer := p.audioRenderer
		if renderer == nil {
			renderer = discardAudio{decoder}
		}
		if err = renderer.render(slot, &info); err != nil {
			return false, err
		}
		return !info.Flags.Has(pkg.FlagEndOfStream), nil
	case slot == pkg.InfoTryAgainLater:
		runtime.Gosched()
	case slot == pkg.InfoOutputFormatChanged:
		if err = p.buildAudioSink(decoder.OutputFormat()); err != nil {
			return false, err
		}
	case slot == pkg.InfoOutputBuffersChanged:
		p.audio.Log(context.Background(), task.TraceLevel, "output buffers changed")
	default:
		return false, fmt.Errorf("%d: %w", slot, pkg.ErrUnknownStatus)
	}
	return true, nil
}

// buildAudioSink runs once per session on the first output format report.
// A layout other than stereo or 5.1 leaves audio disabled while video plays on.
func (p *Player) buildAudioSink(format pkg.MediaFormat) error {
	if p.sinkBuilt {
		p.audio.Debug("output format changed again", "format", format.String())
		return nil
	}
	p.sinkBuilt = true
	if p.sinks == nil {
		p.audio.Warn("no audio output, audio disabled")
		return nil
	}
	mask := pkg.ChannelMaskOf(format)
	if mask == pkg.ChannelInvalid {
		p.audio.Warn("unsupported channel layout, audio disabled", "channels", format.ChannelCount, "err", pkg.ErrInvalidAudioFormat)
		return nil
	}
	encoding := format.Encoding
	if encoding == pkg.EncodingInvalid {
		encoding = pkg.EncodingPCM16
	}
	size, err := p.sinks.MinBufferSize(format.SampleRate, mask, encoding)
	if err != nil {
		return fmt.Errorf("audio buffer size: %w", err)
	}
	sink, err := p.sinks.NewAudioSink(pkg.AudioSinkConfig{
		ContentType:  pkg.ContentTypeMovie,
		SampleRate:   format.SampleRate,
		ChannelMask:  mask,
		Encoding:     encoding,
		BufferSize:   size,
		TransferMode: pkg.TransferModeStream,
		SourceMime:   p.audio.Format.MimeType,
		CodecConfig:  p.audio.Format.CodecConfig,
	})
	if err != nil {
		return fmt.Errorf("audio sink: %w", err)
	}
	p.sink = sink
	p.audioRenderer = p.chooseAudioRenderer(sink)
	if err = sink.Play(); err != nil {
		return fmt.Errorf("audio sink play: %w", err)
	}
	p.audio.Info("audio sink ready", "rate", format.SampleRate, "channels", mask, "encoding", encoding, "bufferSize", size)
	return nil
}

func (p *Player) chooseAudioRenderer(sink pkg.AudioSink) audioRenderer {
	decoder := p.audio.Decoder
	queueing, ok := sink.(pkg.QueueingAudioSink)
	switch p.AudioRelease {
	case config.AudioReleaseImmediate:
		ok = false
	case config.AudioReleaseDeferred:
		if !ok {
			p.audio.Warn("audio sink cannot queue buffers, releasing immediately")
		}
	}
	if !ok {
		return directAudio{decoder, sink, &p.Stats}
	}
	track := p.audio
	queueing.SetOnBufferConsumed(func(id int) {
		if err := decoder.ReleaseOutputBuffer(id, false); err != nil && !errors.Is(err, pkg.ErrReleased) {
			track.Warn("release consumed audio buffer", "slot", id, "err", err)
		}
	})
	return queuedAudio{decoder, queueing, &p.Stats}
}
