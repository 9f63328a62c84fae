package pkg

import "testing"

func TestChannelMaskOf(t *testing.T) {
	cases := []struct {
		name   string
		format MediaFormat
		want   ChannelMask
	}{
		{"stereo by count", MediaFormat{ChannelCount: 2}, ChannelOutStereo},
		{"5.1 by count", MediaFormat{ChannelCount: 6}, ChannelOut5Point1},
		{"mono count is invalid", MediaFormat{ChannelCount: 1}, ChannelInvalid},
		{"quad count is invalid", MediaFormat{ChannelCount: 4}, ChannelInvalid},
		{"zero count is invalid", MediaFormat{}, ChannelInvalid},
		{"explicit mask wins", MediaFormat{ChannelCount: 1, ChannelMask: ChannelOutMono}, ChannelOutMono},
	}
	for _, c := range cases {
		if got := ChannelMaskOf(c.format); got != c.want {
			t.Errorf("%s: expected %s, got %s", c.name, c.want, got)
		}
	}
}

func TestChannelMaskCount(t *testing.T) {
	if n := ChannelOutStereo.Count(); n != 2 {
		t.Errorf("expected 2 channels, got %d", n)
	}
	if n := ChannelOut5Point1.Count(); n != 6 {
		t.Errorf("expected 6 channels, got %d", n)
	}
	if ChannelOutStereo != 0xC || ChannelOut5Point1 != 0xFC {
		t.Errorf("unexpected layout values %#x %#x", ChannelOutStereo, ChannelOut5Point1)
	}
}
