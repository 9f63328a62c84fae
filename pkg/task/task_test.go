package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func createRootJob() *RootJob {
	var root RootJob
	root.Init(slog.New(slog.NewTextHandler(os.Stdout, nil)))
	return &root
}

func init() {
	slog.SetLogLoggerLevel(slog.LevelDebug)
}

func Test_AddTask_AddsTaskSuccessfully(t *testing.T) {
	root := createRootJob()
	defer root.Shutdown()
	var task Task
	if err := root.AddTask(&task).WaitStarted(); err != nil {
		t.Fatalf("expected started task, got %v", err)
	}
	if task.Parent() != root {
		t.Errorf("expected task to be a child of root")
	}
	if task.Phase() != PhaseStarted {
		t.Errorf("expected started phase, got %v", task.Phase())
	}
}

type failingStartTask struct {
	Task
}

func (task *failingStartTask) Start() error {
	return io.ErrClosedPipe
}

func Test_StartFailure(t *testing.T) {
	root := createRootJob()
	defer root.Shutdown()
	var task failingStartTask
	if err := root.AddTask(&task).WaitStarted(); !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("expected start error, got %v", err)
	}
	if !task.StopReasonIs(io.ErrClosedPipe) {
		t.Errorf("expected stop reason to be the start error, got %v", task.StopReason())
	}
}

func Test_Call_ExecutesCallback(t *testing.T) {
	root := createRootJob()
	defer root.Shutdown()
	called := false
	root.Call(func() error {
		called = true
		return nil
	})
	if !called {
		t.Errorf("expected callback to be called")
	}
}

func Test_StopByContext(t *testing.T) {
	root := createRootJob()
	defer root.Shutdown()
	var task Task
	ctx, cancel := context.WithCancel(context.Background())
	root.AddTask(&task, ctx)
	time.AfterFunc(time.Millisecond*100, cancel)
	task.WaitStopped()
	if !task.StopReasonIs(context.Canceled) {
		t.Errorf("expected task to be stopped by context, got %v", task.StopReason())
	}
}

func Test_ParentStop(t *testing.T) {
	root := createRootJob()
	defer root.Shutdown()
	parent := &Job{}
	root.AddTask(parent)
	var task Task
	parent.AddTask(&task).WaitStarted()
	parent.Stop(ErrAutoStop)
	parent.WaitStopped()
	if !task.StopReasonIs(ErrAutoStop) {
		t.Errorf("expected task to be stopped, got %v", task.StopReason())
	}
}

type goTask struct {
	Task
	disposed chan struct{}
}

func (task *goTask) Go() error {
	<-task.Done()
	return nil
}

func (task *goTask) Dispose() {
	close(task.disposed)
}

func Test_Depend(t *testing.T) {
	root := createRootJob()
	defer root.Shutdown()
	a := &goTask{disposed: make(chan struct{})}
	b := &goTask{disposed: make(chan struct{})}
	root.AddTask(a).WaitStarted()
	root.AddTask(b).WaitStarted()
	b.Depend(a)
	a.Stop(io.EOF)
	select {
	case <-b.disposed:
	case <-time.After(time.Second):
		t.Fatalf("dependent task was not disposed")
	}
	if !b.StopReasonIs(io.EOF) {
		t.Errorf("expected dependent reason io.EOF, got %v", b.StopReason())
	}
}

func Test_Shutdown(t *testing.T) {
	root := createRootJob()
	task := &goTask{disposed: make(chan struct{})}
	root.AddTask(task).WaitStarted()
	root.Shutdown()
	root.Shutdown()
	select {
	case <-task.disposed:
	default:
		t.Errorf("expected child disposed after shutdown")
	}
	if !task.StopReasonIs(ErrExit) {
		t.Errorf("expected exit reason, got %v", task.StopReason())
	}
}

func Test_Hooks(t *testing.T) {
	root := createRootJob()
	defer root.Shutdown()
	called := 0
	var task Task
	task.OnStart(func() {
		called++
		if called != 1 {
			t.Errorf("expected 1, got %d", called)
		}
	})
	task.OnDispose(func() {
		called++
		if called != 3 {
			t.Errorf("expected 3, got %d", called)
		}
	})
	task.OnStart(func() {
		called++
		if called != 2 {
			t.Errorf("expected 2, got %d", called)
		}
	})
	task.OnDispose(func() {
		called++
		if called != 4 {
			t.Errorf("expected 4, got %d", called)
		}
	})
	root.AddTask(&task).WaitStarted()
	task.Stop(ErrExit)
	task.WaitStopped()
}

type blockTask struct {
	Task
	err error
}

func (task *blockTask) Run() error {
	return task.err
}

func Test_BlockTask(t *testing.T) {
	root := createRootJob()
	defer root.Shutdown()
	done := &blockTask{}
	if err := root.AddTask(done).WaitStopped(); !errors.Is(err, ErrTaskComplete) {
		t.Errorf("expected complete, got %v", err)
	}
	failed := &blockTask{err: io.ErrUnexpectedEOF}
	if err := root.AddTask(failed).WaitStopped(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected run error, got %v", err)
	}
}

type panicTask struct {
	Task
}

func (task *panicTask) Go() error {
	panic("boom")
}

func Test_GoPanic(t *testing.T) {
	root := createRootJob()
	defer root.Shutdown()
	var task panicTask
	if err := root.AddTask(&task).WaitStopped(); !errors.Is(err, ErrPanic) {
		t.Errorf("expected panic error, got %v", err)
	}
}

type countTicks struct {
	TickTask
	ticks atomic.Int32
}

func (task *countTicks) GetTickInterval() time.Duration {
	return time.Millisecond
}

func (task *countTicks) Tick(any) {
	task.ticks.Add(1)
}

func Test_TickTask(t *testing.T) {
	root := createRootJob()
	defer root.Shutdown()
	var task countTicks
	if err := root.AddTask(&task).WaitStarted(); err != nil {
		t.Fatalf("start: %v", err)
	}
	deadline := time.Now().Add(time.Second)
	for task.ticks.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if task.ticks.Load() < 3 {
		t.Errorf("expected ticks, got %d", task.ticks.Load())
	}
	task.Stop(ErrExit)
	if err := task.WaitStopped(); !errors.Is(err, ErrExit) {
		t.Errorf("expected exit, got %v", err)
	}
}

func Test_AutoStopJob(t *testing.T) {
	root := createRootJob()
	defer root.Shutdown()
	job := &Job{}
	root.AddTask(job)
	job.AddTask(&blockTask{})
	if err := job.WaitStopped(); !errors.Is(err, ErrAutoStop) {
		t.Errorf("expected auto stop once empty, got %v", err)
	}
}
