package adts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/bluenviron/mediacommon/pkg/codecs/mpeg4audio"
	"m7s.live/player/pkg"
	"m7s.live/player/pkg/task"
)

var ErrNotPlaying = errors.New("sink not playing")

// Sink frames every access unit as ADTS and writes it out synchronously.
type Sink struct {
	*slog.Logger
	sync.Mutex
	w          io.Writer
	conf       pkg.AudioSinkConfig
	objectType mpeg4audio.ObjectType
	playing    bool
	released   bool
	written    int64
}

func newSink(logger *slog.Logger, w io.Writer, conf pkg.AudioSinkConfig) (*Sink, error) {
	s := &Sink{Logger: logger, w: w, conf: conf, objectType: mpeg4audio.ObjectTypeAACLC}
	if len(conf.CodecConfig) > 0 {
		var asc mpeg4audio.Config
		if err := asc.Unmarshal(conf.CodecConfig[0]); err != nil {
			return nil, fmt.Errorf("audio specific config: %w", err)
		}
		s.objectType = asc.Type
	}
	return s, nil
}

func (s *Sink) Play() error {
	s.Lock()
	defer s.Unlock()
	if s.released {
		return pkg.ErrReleased
	}
	s.playing = true
	return nil
}

func (s *Sink) frame(data []byte) ([]byte, error) {
	return mpeg4audio.ADTSPackets{{
		Type:         s.objectType,
		SampleRate:   s.conf.SampleRate,
		ChannelCount: s.conf.ChannelMask.Count(),
		AU:           data,
	}}.Marshal()
}

// Write consumes all of data or fails. The blocking flag is accepted for
// interface parity; writes to the underlying writer always block.
func (s *Sink) Write(data []byte, ptsUs int64, blocking bool) (int, error) {
	s.Lock()
	defer s.Unlock()
	if s.released {
		return 0, pkg.ErrReleased
	}
	if !s.playing {
		return 0, ErrNotPlaying
	}
	packet, err := s.frame(data)
	if err != nil {
		return 0, err
	}
	if _, err = s.w.Write(packet); err != nil {
		return 0, err
	}
	s.written += int64(len(data))
	s.Log(context.Background(), task.TraceLevel, "audio written", "pts", ptsUs, "size", len(data))
	return len(data), nil
}

func (s *Sink) Written() int64 {
	s.Lock()
	defer s.Unlock()
	return s.written
}

func (s *Sink) Release() error {
	s.Lock()
	defer s.Unlock()
	if s.released {
		return pkg.ErrReleased
	}
	s.released, s.playing = true, false
	if closer, ok := s.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
