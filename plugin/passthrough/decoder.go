package passthrough

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"m7s.live/player/pkg"
)

var (
	ErrNotConfigured = errors.New("decoder not configured")
	ErrNotStarted    = errors.New("decoder not started")
	ErrSlotState     = errors.New("slot not in expected state")
	ErrSlotOverflow  = errors.New("sample larger than input slot")
	ErrInputAfterEOS = errors.New("input after end of stream")
)

type slotState byte

const (
	slotFree slotState = iota
	slotInput
	slotQueued
	slotOutput
)

type slot struct {
	data  []byte
	info  pkg.BufferInfo
	state slotState
}

// Decoder forwards access units unchanged. Every slot cycles
// free -> input -> queued -> output -> free, so a consumer that holds
// output buffers throttles the producer.
type Decoder struct {
	*slog.Logger
	sync.Mutex
	mime          string
	format        pkg.MediaFormat
	outFormat     pkg.MediaFormat
	target        pkg.RenderTarget
	slots         []slot
	pending       []int
	notify        chan struct{}
	slotCount     int
	maxInputSize  int
	configured    bool
	started       bool
	released      bool
	eosQueued     bool
	formatPending bool
}

func NewDecoder(logger *slog.Logger, mime string, slotCount, maxInputSize int) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{
		Logger:       logger.With("decoder", mime),
		mime:         mime,
		slotCount:    max(slotCount, 1),
		maxInputSize: maxInputSize,
		notify:       make(chan struct{}, 1),
	}
}

func (d *Decoder) signal() {
	select {
	case d.notify <- struct{}{}:
	default:
	}
}

func (d *Decoder) wait(timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-d.notify:
	case <-timer.C:
	}
}

func (d *Decoder) Configure(format pkg.MediaFormat, target pkg.RenderTarget, flags int) error {
	d.Lock()
	defer d.Unlock()
	if d.released {
		return pkg.ErrReleased
	}
	if d.started {
		return fmt.Errorf("configure while started: %w", ErrSlotState)
	}
	out, err := outputFormat(format)
	if err != nil {
		return err
	}
	if receiver, ok := target.(pkg.CodecConfigReceiver); ok {
		if err := receiver.SetCodecConfig(out); err != nil {
			return err
		}
	}
	size := format.MaxInputSize
	if size <= 0 {
		size = d.maxInputSize
	}
	d.slots = make([]slot, d.slotCount)
	for i := range d.slots {
		d.slots[i].data = make([]byte, size)
	}
	d.format, d.outFormat, d.target = format, out, target
	d.configured = true
	d.Debug("configured", "format", out.String(), "slots", d.slotCount, "slotSize", size)
	return nil
}

func (d *Decoder) Start() error {
	d.Lock()
	defer d.Unlock()
	if d.released {
		return pkg.ErrReleased
	}
	if !d.configured {
		return ErrNotConfigured
	}
	d.started = true
	d.formatPending = true
	return nil
}

func (d *Decoder) check() error {
	if d.released {
		return pkg.ErrReleased
	}
	if !d.started {
		return ErrNotStarted
	}
	return nil
}

// DequeueInputBuffer returns a free input slot or -1 when none frees up within timeout.
func (d *Decoder) DequeueInputBuffer(timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	for {
		d.Lock()
		if err := d.check(); err != nil {
			d.Unlock()
			return -1, err
		}
		if d.eosQueued {
			d.Unlock()
			return -1, ErrInputAfterEOS
		}
		for i := range d.slots {
			if d.slots[i].state == slotFree {
				d.slots[i].state = slotInput
				d.Unlock()
				return i, nil
			}
		}
		d.Unlock()
		remain := time.Until(deadline)
		if remain <= 0 {
			return -1, nil
		}
		d.wait(remain)
	}
}

func (d *Decoder) InputBuffer(index int) []byte {
	d.Lock()
	defer d.Unlock()
	if index < 0 || index >= len(d.slots) || d.slots[index].state != slotInput {
		return nil
	}
	return d.slots[index].data
}

func (d *Decoder) QueueInputBuffer(index, offset, size int, ptsUs int64, flags pkg.BufferFlag) error {
	d.Lock()
	defer d.Unlock()
	if err := d.check(); err != nil {
		return err
	}
	if index < 0 || index >= len(d.slots) || d.slots[index].state != slotInput {
		return fmt.Errorf("queue input %d: %w", index, ErrSlotState)
	}
	s := &d.slots[index]
	if offset < 0 || size < 0 || offset+size > len(s.data) {
		return fmt.Errorf("queue input %d size %d: %w", index, size, ErrSlotOverflow)
	}
	s.info.Set(offset, size, ptsUs, flags)
	s.state = slotQueued
	if flags.Has(pkg.FlagEndOfStream) {
		d.eosQueued = true
	}
	d.pending = append(d.pending, index)
	d.signal()
	return nil
}

// DequeueOutputBuffer reports InfoOutputFormatChanged once before the first
// buffer, then the oldest queued slot, or InfoTryAgainLater on timeout.
func (d *Decoder) DequeueOutputBuffer(info *pkg.BufferInfo, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	for {
		d.Lock()
		if err := d.check(); err != nil {
			d.Unlock()
			return pkg.InfoTryAgainLater, err
		}
		if len(d.pending) > 0 {
			if d.formatPending {
				d.formatPending = false
				d.Unlock()
				return pkg.InfoOutputFormatChanged, nil
			}
			index := d.pending[0]
			d.pending = d.pending[1:]
			s := &d.slots[index]
			s.state = slotOutput
			*info = s.info
			d.Unlock()
			return index, nil
		}
		d.Unlock()
		remain := time.Until(deadline)
		if remain <= 0 {
			return pkg.InfoTryAgainLater, nil
		}
		d.wait(remain)
	}
}

func (d *Decoder) OutputBuffer(index int) []byte {
	d.Lock()
	defer d.Unlock()
	if index < 0 || index >= len(d.slots) || d.slots[index].state != slotOutput {
		return nil
	}
	s := &d.slots[index]
	return s.data[s.info.Offset : s.info.Offset+s.info.Size]
}

func (d *Decoder) OutputFormat() pkg.MediaFormat {
	d.Lock()
	defer d.Unlock()
	return d.outFormat
}

func (d *Decoder) release(index int) (frame []byte, err error) {
	d.Lock()
	defer d.Unlock()
	if err = d.check(); err != nil {
		return
	}
	if index < 0 || index >= len(d.slots) || d.slots[index].state != slotOutput {
		return nil, fmt.Errorf("release output %d: %w", index, ErrSlotState)
	}
	s := &d.slots[index]
	frame = s.data[s.info.Offset : s.info.Offset+s.info.Size]
	s.state = slotFree
	d.signal()
	return
}

// ReleaseOutputBuffer returns the slot. With render set, a video frame is
// shown immediately on a FrameRenderer target.
func (d *Decoder) ReleaseOutputBuffer(index int, render bool) error {
	if render {
		return d.ReleaseOutputBufferAt(index, time.Now().UnixNano())
	}
	_, err := d.release(index)
	return err
}

// ReleaseOutputBufferAt returns the slot and presents its frame at renderTimeNs.
// The renderer must copy the frame if it keeps it.
func (d *Decoder) ReleaseOutputBufferAt(index int, renderTimeNs int64) error {
	d.Lock()
	var frame []byte
	renderer, ok := d.target.(pkg.FrameRenderer)
	if ok && index >= 0 && index < len(d.slots) && d.slots[index].state == slotOutput {
		s := &d.slots[index]
		frame = s.data[s.info.Offset : s.info.Offset+s.info.Size]
	}
	d.Unlock()
	var renderErr error
	if ok && len(frame) > 0 {
		renderErr = renderer.RenderFrame(frame, renderTimeNs)
	}
	if _, err := d.release(index); err != nil {
		return err
	}
	return renderErr
}

func (d *Decoder) Stop() error {
	d.Lock()
	defer d.Unlock()
	if d.released {
		return pkg.ErrReleased
	}
	d.started = false
	d.eosQueued = false
	d.pending = nil
	for i := range d.slots {
		d.slots[i].state = slotFree
	}
	d.signal()
	return nil
}

func (d *Decoder) Release() error {
	d.Lock()
	defer d.Unlock()
	if d.released {
		return pkg.ErrReleased
	}
	d.released = true
	d.started = false
	d.slots = nil
	d.pending = nil
	d.signal()
	return nil
}
