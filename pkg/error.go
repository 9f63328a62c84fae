package pkg

import "errors"

var (
	ErrInitialize         = errors.New("initialize failed")
	ErrAlreadyInitialized = errors.New("already initialized")
	ErrNotRunning         = errors.New("not running")
	ErrAlreadyRunning     = errors.New("already running")
	ErrNoTrack            = errors.New("no playable track")
	ErrDuplicateTrack     = errors.New("duplicate track kind")
	ErrTrackIndexRange    = errors.New("track index out of range")
	ErrPlaybackFault      = errors.New("playback fault")
	ErrInvalidAudioFormat = errors.New("invalid audio format")
	ErrUnknownStatus      = errors.New("unknown dequeue status")
	ErrUnsupportedCodec   = errors.New("unsupported codec")
	ErrReleased           = errors.New("released")
	ErrDrainTimeout       = errors.New("drain timeout")
)
