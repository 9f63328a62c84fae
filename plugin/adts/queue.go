package adts

import (
	"sync"

	"m7s.live/player/pkg"
)

type queuedBuffer struct {
	data []byte
	id   int
	pts  int64
}

// QueueSink writes queued buffers on its own goroutine and hands each
// buffer id back through the consumed callback once written.
type QueueSink struct {
	*Sink
	qmu        sync.RWMutex
	queue      chan queuedBuffer
	senders    sync.WaitGroup
	done       chan struct{}
	closed     bool
	onConsumed func(id int)
}

func newQueueSink(sink *Sink, size int) *QueueSink {
	q := &QueueSink{
		Sink:  sink,
		queue: make(chan queuedBuffer, max(size, 1)),
		done:  make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *QueueSink) run() {
	defer close(q.done)
	for buf := range q.queue {
		if _, err := q.Sink.Write(buf.data, buf.pts, true); err != nil {
			q.Warn("queued write failed", "id", buf.id, "err", err)
		}
		q.qmu.RLock()
		cb := q.onConsumed
		q.qmu.RUnlock()
		if cb != nil {
			cb(buf.id)
		}
	}
}

func (q *QueueSink) SetOnBufferConsumed(cb func(id int)) {
	q.qmu.Lock()
	q.onConsumed = cb
	q.qmu.Unlock()
}

// QueueBuffer takes data without copying; it stays owned by the sink until
// consumed. It blocks while the queue is full, holding no lock.
func (q *QueueSink) QueueBuffer(data []byte, id int, ptsUs int64) error {
	q.qmu.RLock()
	if q.closed {
		q.qmu.RUnlock()
		return pkg.ErrReleased
	}
	q.senders.Add(1)
	q.qmu.RUnlock()
	defer q.senders.Done()
	q.queue <- queuedBuffer{data: data, id: id, pts: ptsUs}
	return nil
}

// Release waits for senders already inside QueueBuffer, then drains the
// queue, so every accepted id is reported consumed first.
func (q *QueueSink) Release() error {
	q.qmu.Lock()
	if q.closed {
		q.qmu.Unlock()
		return pkg.ErrReleased
	}
	q.closed = true
	q.qmu.Unlock()
	q.senders.Wait()
	close(q.queue)
	<-q.done
	return q.Sink.Release()
}
