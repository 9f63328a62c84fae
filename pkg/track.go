package pkg

import (
	"log/slog"
	"sync/atomic"
)

// MaxTracks bounds track indices so the active mask fits in a uint64.
const MaxTracks = 64

type TrackState int32

const (
	TrackActive TrackState = iota
	TrackEndOfStream
	TrackStopped
)

func (s TrackState) String() string {
	switch s {
	case TrackActive:
		return "active"
	case TrackEndOfStream:
		return "eos"
	case TrackStopped:
		return "stopped"
	}
	return "unknown"
}

type (
	Track struct {
		*slog.Logger
		Index     int
		Kind      MediaKind
		Format    MediaFormat
		Decoder   Decoder
		Started   bool
		InputDone bool
		state     atomic.Int32
	}
	Tracks []*Track
)

func NewTrack(logger *slog.Logger, index int, format MediaFormat) *Track {
	t := &Track{Index: index, Kind: format.Kind(), Format: format}
	t.Logger = logger.With("track", index, "kind", t.Kind)
	return t
}

func (t *Track) State() TrackState {
	return TrackState(t.state.Load())
}

func (t *Track) IsActive() bool {
	return t.State() == TrackActive
}

// Finish moves an active track to EndOfStream. It reports whether the state changed.
func (t *Track) Finish() bool {
	return t.state.CompareAndSwap(int32(TrackActive), int32(TrackEndOfStream))
}

// Expire moves an active track to Stopped. It reports whether the state changed.
func (t *Track) Expire() bool {
	return t.state.CompareAndSwap(int32(TrackActive), int32(TrackStopped))
}

func (t *Track) Bit() uint64 {
	return 1 << uint(t.Index)
}

// Mask has bit i set iff track i is active.
func (ts Tracks) Mask() (mask uint64) {
	for _, t := range ts {
		if t.IsActive() {
			mask |= t.Bit()
		}
	}
	return
}

func (ts Tracks) Find(kind MediaKind) *Track {
	for _, t := range ts {
		if t.Kind == kind {
			return t
		}
	}
	return nil
}

// ExpireAll stops every active track and returns how many changed.
func (ts Tracks) ExpireAll() (n int) {
	for _, t := range ts {
		if t.Expire() {
			n++
		}
	}
	return
}
