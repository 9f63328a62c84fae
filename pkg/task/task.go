package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"m7s.live/player/pkg/util"
)

const TraceLevel = slog.Level(-8)

var (
	ErrAutoStop     = errors.New("auto stop")
	ErrTaskComplete = errors.New("complete")
	ErrExit         = errors.New("exit")
	ErrPanic        = errors.New("panic")
)

// ThrowPanic lets panics escape task hooks, for debugging.
var ThrowPanic = false

type Phase byte

const (
	PhaseInit Phase = iota
	PhaseStarting
	PhaseStarted
	PhaseGoing
	PhaseDisposing
	PhaseDisposed
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseStarting:
		return "starting"
	case PhaseStarted:
		return "started"
	case PhaseGoing:
		return "going"
	case PhaseDisposing:
		return "disposing"
	case PhaseDisposed:
		return "disposed"
	}
	return "unknown"
}

type Kind byte

const (
	KindTask Kind = iota
	KindJob
	KindChannel
	KindCall
)

func (k Kind) String() string {
	switch k {
	case KindJob:
		return "job"
	case KindChannel:
		return "channel"
	case KindCall:
		return "call"
	}
	return "task"
}

type (
	// ITask is implemented by embedding Task. A task may also implement
	// TaskStarter, TaskBlock, TaskGo and TaskDisposal.
	ITask interface {
		context.Context
		GetTask() *Task
		TaskKind() Kind
		Signal() any
		Stop(error)
		StopReason() error
		WaitStarted() error
		WaitStopped() error
		Depend(ITask)
		OnDispose(func())
		keepalive() bool
	}
	IJob interface {
		ITask
		AddTask(ITask, ...any) *Task
		Call(func() error)
	}
	IChannelTask interface {
		ITask
		Tick(any)
	}
	TaskStarter interface {
		Start() error
	}
	TaskBlock interface {
		Run() error
	}
	TaskGo interface {
		Go() error
	}
	TaskDisposal interface {
		Dispose()
	}
	Description = map[string]any
	Task        struct {
		ID        uint32
		StartTime time.Time
		*slog.Logger
		context.Context
		context.CancelCauseFunc
		handler           ITask
		parent            *Job
		phase             Phase
		startup, shutdown *util.Promise
		onStart           []func()
		onDispose         []func()
		description       sync.Map
	}
)

func (*Task) keepalive() bool {
	return false
}

func (task *Task) GetTask() *Task {
	return task
}

func (*Task) TaskKind() Kind {
	return KindTask
}

// Signal is the channel the owning job selects on. Closing it ends the task.
func (task *Task) Signal() any {
	return task.Done()
}

func (task *Task) Phase() Phase {
	return task.phase
}

func (task *Task) Parent() ITask {
	if task.parent == nil {
		return nil
	}
	return task.parent.handler
}

func (task *Task) Trace(msg string, fields ...any) {
	task.Log(task.Context, TraceLevel, msg, fields...)
}

func (task *Task) IsStopped() bool {
	return task.Err() != nil
}

func (task *Task) StopReason() error {
	return context.Cause(task.Context)
}

func (task *Task) StopReasonIs(err error) bool {
	return errors.Is(task.StopReason(), err)
}

// Stop cancels the task with reason. A nil reason is a programming error.
func (task *Task) Stop(reason error) {
	if reason == nil {
		panic("task stopped without a reason")
	}
	if task.CancelCauseFunc == nil {
		return
	}
	if task.Logger != nil && task.handler.TaskKind() != KindCall {
		task.Debug("task stop", "taskId", task.ID, "reason", reason, "elapsed", time.Since(task.StartTime))
	}
	task.CancelCauseFunc(reason)
}

func (task *Task) WaitStarted() error {
	return task.startup.Await()
}

func (task *Task) WaitStopped() error {
	if err := task.startup.Await(); err != nil {
		return err
	}
	return task.shutdown.Await()
}

// Depend stops task with the same reason once t has been disposed.
func (task *Task) Depend(t ITask) {
	t.OnDispose(func() {
		task.Stop(t.StopReason())
	})
}

func (task *Task) OnStart(listener func()) {
	task.onStart = append(task.onStart, listener)
}

func (task *Task) OnDispose(listener func()) {
	task.onDispose = append(task.onDispose, listener)
}

func (task *Task) SetDescription(key string, value any) {
	task.description.Store(key, value)
}

func (task *Task) Descriptions() map[string]string {
	ret := make(map[string]string)
	task.description.Range(func(key, value any) bool {
		ret[key.(string)] = fmt.Sprintf("%+v", value)
		return true
	})
	return ret
}

// bind attaches the task to parent. opts may hold a context.Context that
// replaces the parent context, a Description or a *slog.Logger.
func (task *Task) bind(parent *Job, handler ITask, opts []any) {
	ctx := parent.Context
	for _, opt := range opts {
		switch v := opt.(type) {
		case context.Context:
			ctx = v
		case Description:
			for key, value := range v {
				task.SetDescription(key, value)
			}
		case *slog.Logger:
			task.Logger = v
		}
	}
	if ctx == nil {
		panic("task bound without a context")
	}
	if task.Logger == nil {
		task.Logger = parent.Logger
	}
	if task.ID == 0 {
		task.ID = nextTaskID()
	}
	task.parent = parent
	task.handler = handler
	task.Context, task.CancelCauseFunc = context.WithCancelCause(ctx)
	task.startup = util.NewPromise(task.Context)
	task.shutdown = util.NewPromise(context.Background())
}

// recoverPanic must be deferred directly. It turns a panic into an error
// unless ThrowPanic is set.
func (task *Task) recoverPanic(err *error) {
	if ThrowPanic {
		return
	}
	if r := recover(); r != nil {
		*err = fmt.Errorf("%v: %w", r, ErrPanic)
		if task.Logger != nil {
			task.Error("task panic", "taskId", task.ID, "err", *err, "stack", string(debug.Stack()))
		}
	}
}

// start runs Start and then Run on the job loop, or hands Go its own
// goroutine. It reports whether the task should stay attached to the loop.
func (task *Task) start() (ok bool) {
	var err error
	defer func() {
		if err != nil {
			task.Stop(err)
			task.startup.Reject(err)
			ok = false
		}
	}()
	defer task.recoverPanic(&err)
	task.StartTime = time.Now()
	task.phase = PhaseStarting
	if task.Logger != nil && task.handler.TaskKind() != KindCall {
		task.Debug("task start", "taskId", task.ID, "kind", task.handler.TaskKind())
	}
	if starter, is := task.handler.(TaskStarter); is {
		if err = starter.Start(); err != nil {
			return
		}
	}
	task.phase = PhaseStarted
	task.startup.Resolve()
	for _, listener := range task.onStart {
		listener()
	}
	if blocker, is := task.handler.(TaskBlock); is && !task.IsStopped() {
		if err = blocker.Run(); err == nil {
			err = ErrTaskComplete
		}
		task.Stop(err)
		err = nil
	}
	if goer, is := task.handler.(TaskGo); is && !task.IsStopped() {
		task.phase = PhaseGoing
		go task.goRun(goer.Go)
	}
	return true
}

func (task *Task) goRun(handler func() error) {
	var err error
	defer func() {
		if err == nil {
			err = ErrTaskComplete
		}
		task.Stop(err)
	}()
	defer task.recoverPanic(&err)
	err = handler()
}

// dispose runs once the task has stopped: children first for jobs, then
// Dispose, then the dispose listeners.
func (task *Task) dispose() {
	if task.phase < PhaseStarted || task.phase >= PhaseDisposing {
		return
	}
	task.phase = PhaseDisposing
	reason := task.StopReason()
	if task.Logger != nil && task.handler.TaskKind() != KindCall {
		task.Debug("task dispose", "taskId", task.ID, "reason", reason)
	}
	if job, is := task.handler.(interface{ drain() }); is {
		job.drain()
	}
	if disposal, is := task.handler.(TaskDisposal); is {
		disposal.Dispose()
	}
	task.shutdown.Fulfill(reason)
	for _, listener := range task.onDispose {
		listener()
	}
	task.phase = PhaseDisposed
}
