package task

import (
	"os"
	"os/signal"
	"syscall"
	"time"
)

// ChannelTask is ticked by its job whenever SignalChan delivers a value.
// A stopped channel task is disposed on its next signal.
type ChannelTask struct {
	Task
	SignalChan any
}

func (*ChannelTask) TaskKind() Kind {
	return KindChannel
}

func (t *ChannelTask) Signal() any {
	return t.SignalChan
}

func (*ChannelTask) Tick(any) {
}

// TickTask ticks at the interval its handler reports through
// GetTickInterval, one second by default.
type TickTask struct {
	ChannelTask
	Ticker *time.Ticker
}

func (*TickTask) GetTickInterval() time.Duration {
	return time.Second
}

func (t *TickTask) Start() error {
	interval := t.handler.(interface{ GetTickInterval() time.Duration }).GetTickInterval()
	t.Ticker = time.NewTicker(interval)
	t.SignalChan = t.Ticker.C
	return nil
}

func (t *TickTask) Dispose() {
	t.Ticker.Stop()
}

// OSSignal shuts its root down on SIGHUP, SIGINT, SIGTERM or SIGQUIT.
type OSSignal struct {
	ChannelTask
	root *RootJob
}

func (o *OSSignal) Start() error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	o.SignalChan = signals
	return nil
}

func (o *OSSignal) Tick(value any) {
	o.root.Info("signal received", "signal", value)
	go o.root.Shutdown()
}

func (o *OSSignal) Dispose() {
	signal.Stop(o.SignalChan.(chan os.Signal))
}
