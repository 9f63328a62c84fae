package player

import (
	"time"

	"m7s.live/player/pkg"
	"m7s.live/player/pkg/task"
)

// PlayTask runs a Player inside a task tree. Stopping the task stops playback
// and disposing it releases the player.
type PlayTask struct {
	task.Task
	Player *Player
	Target pkg.RenderTarget
	Source string
}

func (t *PlayTask) Start() error {
	t.SetDescription("source", t.Source)
	return t.Player.Initialize(t.Target, t.Source)
}

func (t *PlayTask) Go() error {
	return t.Player.RunContext(t)
}

func (t *PlayTask) Dispose() {
	t.Player.Close()
}

// ProgressTask logs playback counters on every tick.
type ProgressTask struct {
	task.TickTask
	Player   *Player
	Interval time.Duration
}

func (t *ProgressTask) GetTickInterval() time.Duration {
	if t.Interval <= 0 {
		return 5 * time.Second
	}
	return t.Interval
}

func (t *ProgressTask) Tick(any) {
	stats := &t.Player.Stats
	t.Info("progress",
		"state", t.Player.State(),
		"mask", t.Player.Mask(),
		"videoSamples", stats.SamplesFed[0].Load(),
		"audioSamples", stats.SamplesFed[1].Load(),
		"frames", stats.FramesRendered.Load(),
		"audioBytes", stats.AudioBytes.Load(),
	)
}
