package codec

import (
	"testing"

	"m7s.live/player/pkg"
)

var (
	sps352x288 = []byte{0x67, 0x64, 0x00, 0x0c, 0xac, 0x3b, 0x50, 0xb0, 0x4b, 0x42, 0x00, 0x00, 0x03, 0x00, 0x02, 0x00, 0x00, 0x03, 0x00, 0x3d, 0x08}
	pps        = []byte{0x68, 0xee, 0x3c, 0x80}
)

func TestMimeOf(t *testing.T) {
	cases := []struct {
		fourcc string
		kind   pkg.MediaKind
		want   string
	}{
		{"avc1", pkg.KindVideo, MimeH264},
		{"avc3", pkg.KindVideo, MimeH264},
		{"hev1", pkg.KindVideo, MimeH265},
		{"mp4a", pkg.KindAudio, MimeAAC},
		{"Opus", pkg.KindAudio, MimeOpus},
		{"mp4v", pkg.KindVideo, "video/mp4v"},
		{"ac-3", pkg.KindAudio, "audio/ac-3"},
		{"tx3g", pkg.KindUnknown, "application/tx3g"},
	}
	for _, c := range cases {
		if got := MimeOf(c.fourcc, c.kind); got != c.want {
			t.Errorf("%s: expected %s, got %s", c.fourcc, c.want, got)
		}
	}
}

func TestCompleteAAC(t *testing.T) {
	format := pkg.MediaFormat{MimeType: MimeAAC, CodecConfig: [][]byte{{0x12, 0x10}}}
	if err := Complete(&format); err != nil {
		t.Fatal(err)
	}
	if format.SampleRate != 44100 || format.ChannelCount != 2 {
		t.Errorf("expected 44100Hz stereo, got %dHz %dch", format.SampleRate, format.ChannelCount)
	}
	if format.Encoding != pkg.EncodingPCM16 {
		t.Errorf("expected pcm16, got %s", format.Encoding)
	}
}

func TestCompleteKeepsDeclaredFields(t *testing.T) {
	format := pkg.MediaFormat{MimeType: MimeAAC, SampleRate: 48000, ChannelCount: 6, CodecConfig: [][]byte{{0x12, 0x10}}}
	if err := Complete(&format); err != nil {
		t.Fatal(err)
	}
	if format.SampleRate != 48000 || format.ChannelCount != 6 {
		t.Errorf("declared fields must win, got %dHz %dch", format.SampleRate, format.ChannelCount)
	}
}

func TestCompleteH264(t *testing.T) {
	format := pkg.MediaFormat{MimeType: MimeH264, CodecConfig: [][]byte{sps352x288, pps}}
	if err := Complete(&format); err != nil {
		t.Fatal(err)
	}
	if format.Width != 352 || format.Height != 288 {
		t.Errorf("expected 352x288, got %dx%d", format.Width, format.Height)
	}
}

func TestCompleteWithoutConfig(t *testing.T) {
	format := pkg.MediaFormat{MimeType: MimeOpus, SampleRate: 48000}
	if err := Complete(&format); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if ctx, _ := ParseCodecConfig(pkg.MediaFormat{MimeType: MimeH264}); ctx != nil {
		t.Errorf("expected no context without sps/pps")
	}
}
