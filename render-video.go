package player

import (
	"context"
	"fmt"
	"runtime"

	"m7s.live/player/pkg"
	"m7s.live/player/pkg/task"
)

// renderVideo polls the video decoder once. Non-empty frames are released to
// the render target at their presentation time. It returns false once the
// end-of-stream buffer has been released.
func (p *Player) renderVideo() (bool, error) {
	var info pkg.BufferInfo
	decoder := p.video.Decoder
	slot, err := decoder.DequeueOutputBuffer(&info, p.PollTimeout)
	if err != nil {
		return false, err
	}
	switch {
	case slot >= 0:
		if info.Size > 0 {
			err = decoder.ReleaseOutputBufferAt(slot, info.PresentationTimeUs*1000)
			p.Stats.FramesRendered.Add(1)
		} else {
			err = decoder.ReleaseOutputBuffer(slot, false)
		}
		if err != nil {
			return false, err
		}
		return !info.Flags.Has(pkg.FlagEndOfStream), nil
	case slot == pkg.InfoTryAgainLater:
		runtime.Gosched()
	case slot == pkg.InfoOutputFormatChanged:
		p.video.Debug("output format changed", "format", decoder.OutputFormat().String())
	case slot == pkg.InfoOutputBuffersChanged:
		p.video.Log(context.Background(), task.TraceLevel, "output buffers changed")
	default:
		return false, fmt.Errorf("%d: %w", slot, pkg.ErrUnknownStatus)
	}
	return true, nil
}
