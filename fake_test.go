package player

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"m7s.live/player/pkg"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
	r.mu.Unlock()
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) count(call string) (n int) {
	for _, c := range r.list() {
		if c == call {
			n++
		}
	}
	return
}

type fakeSample struct {
	track int
	data  []byte
	flags pkg.BufferFlag
}

type fakeDemuxer struct {
	*recorder
	formats  []pkg.MediaFormat
	samples  []fakeSample
	endless  bool
	openErr  error
	pos      int
	selected map[int]bool
}

func (d *fakeDemuxer) Open(string) error {
	d.selected = make(map[int]bool)
	return d.openErr
}

func (d *fakeDemuxer) TrackCount() int { return len(d.formats) }

func (d *fakeDemuxer) TrackFormat(i int) (pkg.MediaFormat, error) {
	if i < 0 || i >= len(d.formats) {
		return pkg.MediaFormat{}, pkg.ErrTrackIndexRange
	}
	return d.formats[i], nil
}

func (d *fakeDemuxer) SelectTrack(i int) error {
	d.selected[i] = true
	return nil
}

func (d *fakeDemuxer) current() *fakeSample {
	for skipped := 0; len(d.samples) > 0 && skipped <= len(d.samples); skipped++ {
		if !d.endless && d.pos >= len(d.samples) {
			return nil
		}
		if s := &d.samples[d.pos%len(d.samples)]; d.selected[s.track] {
			return s
		}
		d.pos++
	}
	return nil
}

func (d *fakeDemuxer) SampleTrackIndex() int {
	if s := d.current(); s != nil {
		return s.track
	}
	return pkg.NoTrack
}

func (d *fakeDemuxer) SampleTime() int64 { return int64(d.pos) * 20000 }

func (d *fakeDemuxer) SampleFlags() pkg.BufferFlag {
	if s := d.current(); s != nil {
		return s.flags
	}
	return 0
}

func (d *fakeDemuxer) ReadSampleData(buf []byte) (int, error) {
	s := d.current()
	if s == nil {
		return -1, nil
	}
	return copy(buf, s.data), nil
}

func (d *fakeDemuxer) Advance() bool {
	if d.current() == nil {
		return false
	}
	d.pos++
	return true
}

func (d *fakeDemuxer) Release() error {
	d.add("release:demuxer")
	return nil
}

type fakeOutput struct {
	info pkg.BufferInfo
	data []byte
}

// fakeDecoder copies every queued input straight to its output queue.
type fakeDecoder struct {
	*recorder
	name         string
	mu           sync.Mutex
	format       pkg.MediaFormat
	configureErr error
	startErr     error
	outputErr    error
	dropEOS      bool
	formatSent   bool
	input        []byte
	pending      []fakeOutput
	outputs      map[int][]byte
	nextSlot     int
	rendered     []int64
	released     int
	dequeues     int
	inputFlags   []pkg.BufferFlag
	observe      func()
	target       pkg.RenderTarget
}

func newFakeDecoder(rec *recorder, name string, format pkg.MediaFormat) *fakeDecoder {
	return &fakeDecoder{recorder: rec, name: name, format: format, input: make([]byte, 64), outputs: make(map[int][]byte)}
}

func (d *fakeDecoder) Configure(format pkg.MediaFormat, target pkg.RenderTarget, _ int) error {
	d.target = target
	d.add("configure:%s", d.name)
	return d.configureErr
}

func (d *fakeDecoder) Start() error {
	d.add("start:%s", d.name)
	return d.startErr
}

func (d *fakeDecoder) DequeueInputBuffer(time.Duration) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.pending) >= 4 {
		return pkg.InfoTryAgainLater, nil
	}
	return 0, nil
}

func (d *fakeDecoder) InputBuffer(int) []byte { return d.input }

func (d *fakeDecoder) QueueInputBuffer(_, offset, size int, ptsUs int64, flags pkg.BufferFlag) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inputFlags = append(d.inputFlags, flags)
	if d.dropEOS && flags.Has(pkg.FlagEndOfStream) {
		return nil
	}
	data := append([]byte(nil), d.input[offset:offset+size]...)
	d.pending = append(d.pending, fakeOutput{pkg.BufferInfo{Size: size, PresentationTimeUs: ptsUs, Flags: flags}, data})
	return nil
}

func (d *fakeDecoder) DequeueOutputBuffer(info *pkg.BufferInfo, _ time.Duration) (int, error) {
	if d.observe != nil {
		d.observe()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dequeues++
	if d.outputErr != nil {
		return 0, d.outputErr
	}
	if !d.formatSent {
		d.formatSent = true
		return pkg.InfoOutputFormatChanged, nil
	}
	if len(d.pending) == 0 {
		return pkg.InfoTryAgainLater, nil
	}
	out := d.pending[0]
	d.pending = d.pending[1:]
	slot := d.nextSlot
	d.nextSlot++
	d.outputs[slot] = out.data
	*info = out.info
	return slot, nil
}

func (d *fakeDecoder) OutputBuffer(i int) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.outputs[i]
}

func (d *fakeDecoder) OutputFormat() pkg.MediaFormat { return d.format }

func (d *fakeDecoder) ReleaseOutputBuffer(i int, _ bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.outputs[i]; !ok {
		return errors.New("slot not dequeued")
	}
	delete(d.outputs, i)
	d.released++
	return nil
}

func (d *fakeDecoder) ReleaseOutputBufferAt(i int, ns int64) error {
	d.mu.Lock()
	d.rendered = append(d.rendered, ns)
	d.mu.Unlock()
	return d.ReleaseOutputBuffer(i, true)
}

func (d *fakeDecoder) dequeueCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dequeues
}

func (d *fakeDecoder) queuedFlags() []pkg.BufferFlag {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]pkg.BufferFlag(nil), d.inputFlags...)
}

func (d *fakeDecoder) outstanding() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.outputs)
}

func (d *fakeDecoder) Stop() error {
	d.add("stop:%s", d.name)
	return nil
}

func (d *fakeDecoder) Release() error {
	d.add("release:%s", d.name)
	return nil
}

type fakeDecoderFactory map[string]*fakeDecoder

func (f fakeDecoderFactory) CreateDecoder(mime string) (pkg.Decoder, error) {
	if d, ok := f[mime]; ok {
		return d, nil
	}
	return nil, pkg.ErrUnsupportedCodec
}

type fakeSink struct {
	*recorder
	mu      sync.Mutex
	playing bool
	written int
}

func (s *fakeSink) Play() error {
	s.playing = true
	return nil
}

func (s *fakeSink) Write(data []byte, _ int64, _ bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing {
		return 0, errors.New("not playing")
	}
	s.written += len(data)
	return len(data), nil
}

func (s *fakeSink) Release() error {
	s.add("release:sink")
	return nil
}

// fakeQueueSink hands every queued buffer back when it is released.
type fakeQueueSink struct {
	fakeSink
	queued   []int
	consumed func(int)
}

func (s *fakeQueueSink) QueueBuffer(data []byte, id int, _ int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued = append(s.queued, id)
	s.written += len(data)
	return nil
}

func (s *fakeQueueSink) SetOnBufferConsumed(f func(int)) { s.consumed = f }

func (s *fakeQueueSink) Release() error {
	for _, id := range s.queued {
		s.consumed(id)
	}
	s.queued = nil
	return s.fakeSink.Release()
}

type fakeSinkFactory struct {
	*recorder
	queued bool
	conf   *pkg.AudioSinkConfig
	sink   pkg.AudioSink
}

func (f *fakeSinkFactory) MinBufferSize(rate int, mask pkg.ChannelMask, enc pkg.PCMEncoding) (int, error) {
	return rate * mask.Count() * enc.BytesPerSample() / 50, nil
}

func (f *fakeSinkFactory) NewAudioSink(conf pkg.AudioSinkConfig) (pkg.AudioSink, error) {
	f.conf = &conf
	if f.queued {
		f.sink = &fakeQueueSink{fakeSink: fakeSink{recorder: f.recorder}}
	} else {
		f.sink = &fakeSink{recorder: f.recorder}
	}
	return f.sink, nil
}
