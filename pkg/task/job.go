package task

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
)

var lastTaskID atomic.Uint32

func nextTaskID() uint32 {
	return lastTaskID.Add(1)
}

// Job owns child tasks. Children are started, ticked and disposed on one
// event loop goroutine, created lazily by the first AddTask.
type Job struct {
	Task
	mu        sync.Mutex
	inbox     chan ITask
	drained   chan struct{}
	children  []ITask
	loopOnce  sync.Once
	closeOnce sync.Once
}

func (*Job) TaskKind() Kind {
	return KindJob
}

// AddTask binds t to the job and queues it for start. Options are a
// context.Context, a Description or a *slog.Logger.
func (j *Job) AddTask(t ITask, opts ...any) *Task {
	j.loopOnce.Do(func() {
		j.mu.Lock()
		j.inbox = make(chan ITask, 10)
		j.drained = make(chan struct{})
		j.mu.Unlock()
		go j.loop()
	})
	task := t.GetTask()
	if task.Context == nil {
		task.bind(j, t, opts)
	}
	if j.IsStopped() {
		task.startup.Reject(j.StopReason())
		return task
	}
	j.inbox <- t
	return task
}

// Call runs callback on the event loop and waits for it.
func (j *Job) Call(callback func() error) {
	j.Post(callback).WaitStarted()
}

// Post queues callback on the event loop without waiting.
func (j *Job) Post(callback func() error) *Task {
	return j.AddTask(&CallBackTask{callback: callback})
}

// drain closes the inbox and waits until every child has been disposed.
func (j *Job) drain() {
	j.mu.Lock()
	inbox, drained := j.inbox, j.drained
	j.mu.Unlock()
	if inbox == nil {
		return
	}
	j.closeOnce.Do(func() {
		close(inbox)
	})
	<-drained
}

func (j *Job) loop() {
	cases := []reflect.SelectCase{{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(j.inbox)}}
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%v: %w", r, ErrPanic)
			j.Error("job loop panic", "taskId", j.ID, "err", err)
			j.Stop(err)
		}
		reason := j.StopReason()
		for _, child := range j.children {
			child.Stop(reason)
			child.GetTask().dispose()
		}
		j.children = nil
		close(j.drained)
	}()
	for {
		chosen, value, ok := reflect.Select(cases)
		if chosen == 0 {
			if !ok {
				return
			}
			if child := value.Interface().(ITask); child.GetTask().start() {
				j.children = append(j.children, child)
				cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(child.Signal())})
			}
		} else {
			child := j.children[chosen-1]
			if ok && !child.GetTask().IsStopped() {
				if ticker, is := child.(IChannelTask); is {
					ticker.Tick(value.Interface())
				}
				continue
			}
			child.GetTask().dispose()
			j.children = slices.Delete(j.children, chosen-1, chosen)
			cases = slices.Delete(cases, chosen, chosen+1)
		}
		if !j.handler.keepalive() && len(j.children) == 0 {
			j.Stop(ErrAutoStop)
		}
	}
}

// CallBackTask runs a function once on the owning job's event loop.
type CallBackTask struct {
	Task
	callback func() error
}

func (*CallBackTask) TaskKind() Kind {
	return KindCall
}

func (t *CallBackTask) Start() error {
	if err := t.callback(); err != nil {
		return err
	}
	return ErrTaskComplete
}
