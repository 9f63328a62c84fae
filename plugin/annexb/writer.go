package annexb

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bluenviron/mediacommon/pkg/codecs/h264"
	"m7s.live/player/pkg"
	"m7s.live/player/pkg/codec"
)

// Writer is a render target that stores frames as an Annex-B elementary
// stream. Parameter sets are repeated before every key frame.
type Writer struct {
	*slog.Logger
	sync.Mutex
	w       io.Writer
	paced   bool
	mime    string
	params  [][]byte
	frames  int
	started time.Time
	baseNs  int64
	sleep   func(time.Duration)
}

func NewWriter(logger *slog.Logger, w io.Writer, paced bool) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{Logger: logger.With("target", "annexb"), w: w, paced: paced, sleep: time.Sleep}
}

func (w *Writer) SetCodecConfig(format pkg.MediaFormat) error {
	switch format.MimeType {
	case codec.MimeH264, codec.MimeH265:
	default:
		return fmt.Errorf("annexb target: %s: %w", format.MimeType, pkg.ErrUnsupportedCodec)
	}
	w.Lock()
	defer w.Unlock()
	w.mime = format.MimeType
	w.params = format.CodecConfig
	w.Debug("codec config", "format", format.String(), "parameterSets", len(w.params))
	return nil
}

func (w *Writer) isKey(nalus [][]byte) bool {
	if w.mime == codec.MimeH265 {
		for _, nalu := range nalus {
			if len(nalu) > 0 && codec.ParseH265NALUType(nalu[0]).IsIRAP() {
				return true
			}
		}
		return false
	}
	return h264.IDRPresent(nalus)
}

// RenderFrame converts one length-prefixed access unit and writes it. When
// paced it waits until renderTimeNs, measured from the first frame.
func (w *Writer) RenderFrame(frame []byte, renderTimeNs int64) error {
	nalus, err := h264.AVCCUnmarshal(frame)
	if err != nil {
		return fmt.Errorf("frame %d: %w", w.frames, err)
	}
	w.Lock()
	defer w.Unlock()
	if w.isKey(nalus) && len(w.params) > 0 {
		nalus = append(append([][]byte(nil), w.params...), nalus...)
	}
	out, err := h264.AnnexBMarshal(nalus)
	if err != nil {
		return err
	}
	if w.paced {
		w.pace(renderTimeNs)
	}
	if _, err = w.w.Write(out); err != nil {
		return err
	}
	w.frames++
	return nil
}

func (w *Writer) pace(renderTimeNs int64) {
	if w.frames == 0 {
		w.started, w.baseNs = time.Now(), renderTimeNs
		return
	}
	due := w.started.Add(time.Duration(renderTimeNs - w.baseNs))
	if d := time.Until(due); d > 0 {
		w.sleep(d)
	}
}

func (w *Writer) Frames() int {
	w.Lock()
	defer w.Unlock()
	return w.frames
}

func (w *Writer) Close() error {
	if closer, ok := w.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
