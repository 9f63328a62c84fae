package config

import (
	"time"
)

const (
	AudioReleaseAuto      = "auto"
	AudioReleaseImmediate = "immediate"
	AudioReleaseDeferred  = "deferred"
)

type Player struct {
	PollTimeout  time.Duration `default:"1ms" desc:"output dequeue wait per poll"`
	DrainTimeout time.Duration `default:"3s" desc:"max wait for decoders to flush after the demuxer runs out, 0 ends playback at once"`
	VideoTrack   int           `default:"-1" desc:"video track index, -1 picks the first video track"`
	AudioTrack   int           `default:"-1" desc:"audio track index, -1 picks the first audio track"`
	InputSlots   int           `default:"4" desc:"decoder input slots"`
	OutputSlots  int           `default:"4" desc:"decoder output slots"`
	MaxInputSize int           `default:"1048576" desc:"input slot size when the track does not declare one"`
	AudioRelease string        `default:"auto" desc:"audio buffer release strategy" enum:"auto,immediate,deferred"`
}

type Log struct {
	Level     string `default:"info" desc:"trace, debug, info, warn or error"`
	Path      string `desc:"rotated log directory, empty logs to the console only"`
	Size      uint64 `default:"10485760" desc:"max bytes per log file"`
	MaxFiles  uint64 `default:"7" desc:"rotated files to keep"`
	Formatter string `default:"2006-01-02T15" desc:"rotated file name layout"`
}

type Metrics struct {
	ListenAddr string `desc:"prometheus listen address, empty disables metrics"`
	Path       string `default:"/metrics" desc:"metrics http path"`
}

type Output struct {
	Video string `desc:"Annex-B H.264 output file"`
	Audio string `desc:"ADTS AAC output file"`
	Paced bool   `desc:"present frames at their timestamps"`
}

type Engine struct {
	Player  Player
	Log     Log
	Metrics Metrics
	Output  Output
}
