package task

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"m7s.live/player/pkg/util"
)

// RootJob is the top of a task tree. It never stops on its own and
// listens for OS signals until Shutdown.
type RootJob struct {
	Job
	shutdownOnce sync.Once
}

func (*RootJob) keepalive() bool {
	return true
}

func (r *RootJob) Init(logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	r.Logger = logger
	r.ID = nextTaskID()
	r.handler = r
	r.Context, r.CancelCauseFunc = context.WithCancelCause(context.Background())
	r.startup = util.NewPromise(context.Background())
	r.shutdown = util.NewPromise(context.Background())
	r.phase = PhaseStarted
	r.startup.Resolve()
	r.AddTask(&OSSignal{root: r})
}

// Shutdown stops every task under the root and waits for their disposal.
func (r *RootJob) Shutdown() {
	r.shutdownOnce.Do(func() {
		r.Stop(ErrExit)
		r.dispose()
	})
}
