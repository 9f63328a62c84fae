package annexb

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/bluenviron/mediacommon/pkg/codecs/h264"
	"m7s.live/player/pkg"
	"m7s.live/player/pkg/codec"
)

var (
	sps = []byte{0x67, 0x64, 0x00, 0x0c, 0xac, 0x3b, 0x50, 0xb0, 0x4b, 0x42, 0x00, 0x00, 0x03, 0x00, 0x02, 0x00, 0x00, 0x03, 0x00, 0x3d, 0x08}
	pps = []byte{0x68, 0xee, 0x3c, 0x80}
)

func avcc(t *testing.T, nalus ...[]byte) []byte {
	t.Helper()
	buf, err := h264.AVCCMarshal(nalus)
	if err != nil {
		t.Fatal(err)
	}
	return buf
}

func TestWriterPrefixesKeyFrames(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(nil, &out, false)
	if err := w.SetCodecConfig(pkg.MediaFormat{MimeType: codec.MimeH264, CodecConfig: [][]byte{sps, pps}}); err != nil {
		t.Fatal(err)
	}
	idr := []byte{0x65, 0x88, 0x84}
	slice := []byte{0x41, 0x9a, 0x02}
	if err := w.RenderFrame(avcc(t, idr), 0); err != nil {
		t.Fatal(err)
	}
	if err := w.RenderFrame(avcc(t, slice), 40_000_000); err != nil {
		t.Fatal(err)
	}
	nalus, err := h264.AnnexBUnmarshal(out.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	want := [][]byte{sps, pps, idr, slice}
	if len(nalus) != len(want) {
		t.Fatalf("expected %d nalus, got %d", len(want), len(nalus))
	}
	for i := range want {
		if !bytes.Equal(nalus[i], want[i]) {
			t.Errorf("nalu %d: expected %x, got %x", i, want[i], nalus[i])
		}
	}
	if w.Frames() != 2 {
		t.Errorf("expected 2 frames, got %d", w.Frames())
	}
}

func TestWriterPacing(t *testing.T) {
	var slept []time.Duration
	w := NewWriter(nil, &bytes.Buffer{}, true)
	w.sleep = func(d time.Duration) { slept = append(slept, d) }
	w.RenderFrame(avcc(t, []byte{0x41, 0x01}), 1_000_000_000)
	w.RenderFrame(avcc(t, []byte{0x41, 0x02}), 1_500_000_000)
	if len(slept) != 1 || slept[0] <= 400*time.Millisecond || slept[0] > 500*time.Millisecond {
		t.Errorf("expected one ~500ms wait, got %v", slept)
	}
}

func TestWriterRejectsUnknownCodec(t *testing.T) {
	w := NewWriter(nil, &bytes.Buffer{}, false)
	if err := w.SetCodecConfig(pkg.MediaFormat{MimeType: "video/x-vnd.on2.vp9"}); !errors.Is(err, pkg.ErrUnsupportedCodec) {
		t.Errorf("expected unsupported codec, got %v", err)
	}
	if err := w.RenderFrame([]byte{0, 0, 0, 9, 1}, 0); err == nil {
		t.Errorf("expected malformed frame error")
	}
}
