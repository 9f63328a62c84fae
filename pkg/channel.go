package pkg

import "math/bits"

// ChannelMask is a speaker layout bit-set for an audio sink.
type ChannelMask uint32

const (
	ChannelInvalid      ChannelMask = 0
	ChannelFrontLeft    ChannelMask = 0x4
	ChannelFrontRight   ChannelMask = 0x8
	ChannelFrontCenter  ChannelMask = 0x10
	ChannelLowFrequency ChannelMask = 0x20
	ChannelBackLeft     ChannelMask = 0x40
	ChannelBackRight    ChannelMask = 0x80

	ChannelOutMono    = ChannelFrontLeft
	ChannelOutStereo  = ChannelFrontLeft | ChannelFrontRight
	ChannelOut5Point1 = ChannelOutStereo | ChannelFrontCenter | ChannelLowFrequency | ChannelBackLeft | ChannelBackRight
)

func (m ChannelMask) Count() int {
	return bits.OnesCount32(uint32(m))
}

func (m ChannelMask) String() string {
	switch m {
	case ChannelInvalid:
		return "invalid"
	case ChannelOutMono:
		return "mono"
	case ChannelOutStereo:
		return "stereo"
	case ChannelOut5Point1:
		return "5.1"
	}
	return "custom"
}

// ChannelMaskOf picks the explicit mask of format if present, else maps the
// channel count: 2 is stereo, 6 is 5.1, anything else is invalid.
func ChannelMaskOf(format MediaFormat) ChannelMask {
	if format.ChannelMask != ChannelInvalid {
		return format.ChannelMask
	}
	switch format.ChannelCount {
	case 2:
		return ChannelOutStereo
	case 6:
		return ChannelOut5Point1
	}
	return ChannelInvalid
}
