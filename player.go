package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"m7s.live/player/pkg"
	"m7s.live/player/pkg/config"
)

// maxDrainPolls caps the loop iterations spent flushing decoders after the
// demuxer runs out, whatever DrainTimeout allows.
const maxDrainPolls = 1000

type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateRunning
	StateStopping
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateReleased:
		return "released"
	}
	return "unknown"
}

// Player drives one playback session: it pulls samples from a demuxer, feeds
// them to per-track decoders and renders their output until every selected
// track has finished or been stopped.
type Player struct {
	*slog.Logger
	config.Player
	demuxer       pkg.Demuxer
	decoders      pkg.DecoderFactory
	sinks         pkg.AudioSinkFactory
	source        string
	state         atomic.Int32
	tracks        pkg.Tracks
	video, audio  *pkg.Track
	sink          pkg.AudioSink
	sinkBuilt     bool
	audioRenderer audioRenderer
	inputEnded    bool
	drainDeadline time.Time
	drainPolls    int
	loopStarted   atomic.Bool
	loopDone      chan struct{}
	releaseOnce   sync.Once
	releaseErr    error
	Stats         Stats
}

func NewPlayer(logger *slog.Logger, demuxer pkg.Demuxer, decoders pkg.DecoderFactory, sinks pkg.AudioSinkFactory, conf config.Player) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{
		Logger:   logger,
		Player:   conf,
		demuxer:  demuxer,
		decoders: decoders,
		sinks:    sinks,
		loopDone: make(chan struct{}),
	}
}

func (p *Player) State() State {
	return State(p.state.Load())
}

// Mask has bit i set iff track i is selected and still active.
func (p *Player) Mask() uint64 {
	return p.tracks.Mask()
}

func (p *Player) Tracks() pkg.Tracks {
	return p.tracks
}

// Initialize opens the source, selects at most one video and one audio track
// and starts their decoders. Video decoders render into target. On failure
// everything acquired so far is released and the player cannot be reused.
func (p *Player) Initialize(target pkg.RenderTarget, source string) (err error) {
	if !p.state.CompareAndSwap(int32(StateUninitialized), int32(StateInitializing)) {
		return pkg.ErrAlreadyInitialized
	}
	p.source = source
	p.Logger = p.Logger.With("source", source)
	defer func() {
		if err != nil {
			err = fmt.Errorf("%w: %w", pkg.ErrInitialize, err)
			p.Error("initialize", "err", err)
			p.release()
		}
	}()
	if err = p.demuxer.Open(source); err != nil {
		return
	}
	if err = p.selectTracks(target); err != nil {
		return
	}
	p.state.Store(int32(StateRunning))
	p.Info("initialized", "tracks", len(p.tracks), "mask", fmt.Sprintf("%#b", p.Mask()))
	return
}

// Run is RunContext without an outer context.
func (p *Player) Run() error {
	return p.RunContext(context.Background())
}

// RunContext runs the playback loop on the calling goroutine until the mask is
// empty, then tears everything down. Cancelling ctx acts like RequestStop.
func (p *Player) RunContext(ctx context.Context) (err error) {
	if s := p.State(); s != StateRunning && s != StateStopping {
		return pkg.ErrNotRunning
	}
	if !p.loopStarted.CompareAndSwap(false, true) {
		return pkg.ErrAlreadyRunning
	}
	defer close(p.loopDone)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", pkg.ErrPlaybackFault, r)
			p.Error("playback panic", "err", err, "stack", string(debug.Stack()))
		}
		p.state.CompareAndSwap(int32(StateRunning), int32(StateStopping))
		p.release()
	}()
	started := time.Now()
	if err = p.loop(ctx); err != nil {
		err = fmt.Errorf("%w: %w", pkg.ErrPlaybackFault, err)
		p.Error("playback", "err", err)
		return
	}
	p.Info("playback finished", "elapsed", time.Since(started), "video", p.Stats.FramesRendered.Load(), "audioBytes", p.Stats.AudioBytes.Load())
	return
}

func (p *Player) loop(ctx context.Context) error {
	for p.tracks.Mask() != 0 {
		if ctx.Err() != nil {
			if n := p.tracks.ExpireAll(); n > 0 {
				p.Info("playback interrupted", "cause", context.Cause(ctx))
			}
			return nil
		}
		if err := p.step(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Player) step() error {
	if !p.inputEnded {
		if err := p.feed(); err != nil {
			return err
		}
	} else {
		if err := p.signalEndOfInput(); err != nil {
			return err
		}
		if p.drainPolls++; p.drainPolls > maxDrainPolls || time.Now().After(p.drainDeadline) {
			p.Warn("decoders did not drain in time", "err", pkg.ErrDrainTimeout, "polls", p.drainPolls, "mask", fmt.Sprintf("%#b", p.Mask()))
			p.tracks.ExpireAll()
			return nil
		}
	}
	if p.video != nil && p.video.IsActive() {
		more, err := p.renderVideo()
		if err != nil {
			return fmt.Errorf("video track %d: %w", p.video.Index, err)
		}
		if !more && p.video.Finish() {
			p.video.Info("end of stream")
		}
	}
	if p.audio != nil && p.audio.IsActive() {
		more, err := p.renderAudio()
		if err != nil {
			return fmt.Errorf("audio track %d: %w", p.audio.Index, err)
		}
		if !more && p.audio.Finish() {
			p.audio.Info("end of stream")
		}
	}
	return nil
}

// RequestStop asks a running loop to finish. It may be called from any
// goroutine, any number of times. Before Initialize completes or after
// teardown it does nothing.
func (p *Player) RequestStop() {
	if p.State() != StateRunning {
		return
	}
	n := p.tracks.ExpireAll()
	if p.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		p.Info("stop requested", "expired", n)
	}
}

// Close stops the loop if it is running, waits for it and releases every
// collaborator. It is safe to call more than once.
func (p *Player) Close() error {
	if p.loopStarted.CompareAndSwap(false, true) {
		close(p.loopDone)
		p.state.CompareAndSwap(int32(StateRunning), int32(StateStopping))
	} else {
		p.RequestStop()
		<-p.loopDone
	}
	return p.release()
}

// release tears down in a fixed order: audio sink, decoders, demuxer.
func (p *Player) release() error {
	p.releaseOnce.Do(func() {
		var errs []error
		if p.sink != nil {
			if err := p.sink.Release(); err != nil {
				errs = append(errs, fmt.Errorf("audio sink: %w", err))
			}
		}
		for _, track := range p.tracks {
			if track.Decoder == nil {
				continue
			}
			if track.Started {
				if err := track.Decoder.Stop(); err != nil {
					errs = append(errs, fmt.Errorf("stop decoder %d: %w", track.Index, err))
				}
			}
			if err := track.Decoder.Release(); err != nil {
				errs = append(errs, fmt.Errorf("release decoder %d: %w", track.Index, err))
			}
		}
		if err := p.demuxer.Release(); err != nil {
			errs = append(errs, fmt.Errorf("demuxer: %w", err))
		}
		p.releaseErr = errors.Join(errs...)
		p.state.Store(int32(StateReleased))
		if p.releaseErr != nil {
			p.Warn("released with errors", "err", p.releaseErr)
		} else {
			p.Debug("released")
		}
	})
	return p.releaseErr
}
