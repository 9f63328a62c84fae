package player

import (
	"runtime"
	"time"

	"m7s.live/player/pkg"
)

func (p *Player) trackAt(index int) *pkg.Track {
	for _, track := range p.tracks {
		if track.Index == index {
			return track
		}
	}
	return nil
}

// feed moves at most one sample from the demuxer into the decoder of the
// track it belongs to. It never waits for an input slot. Once the demuxer runs
// out the loop ends, after a flush bounded by DrainTimeout when one is set.
func (p *Player) feed() error {
	index := p.demuxer.SampleTrackIndex()
	if index == pkg.NoTrack {
		p.inputEnded = true
		if p.DrainTimeout <= 0 {
			n := p.tracks.ExpireAll()
			p.Debug("demuxer exhausted", "stopped", n)
			return nil
		}
		p.drainDeadline = time.Now().Add(p.DrainTimeout)
		p.Debug("demuxer exhausted, draining", "mask", p.Mask(), "timeout", p.DrainTimeout)
		return p.signalEndOfInput()
	}
	track := p.trackAt(index)
	if track == nil || track.InputDone || !track.IsActive() {
		p.demuxer.Advance()
		return nil
	}
	return p.feedInput(track)
}

func (p *Player) feedInput(track *pkg.Track) error {
	slot, err := track.Decoder.DequeueInputBuffer(0)
	if err != nil {
		return err
	}
	if slot < 0 {
		runtime.Gosched()
		return nil
	}
	size, err := p.demuxer.ReadSampleData(track.Decoder.InputBuffer(slot))
	if err != nil {
		return err
	}
	if size <= 0 {
		track.InputDone = true
		track.Debug("input end of stream")
		err = track.Decoder.QueueInputBuffer(slot, 0, 0, 0, pkg.FlagEndOfStream)
		p.demuxer.Advance()
		return err
	}
	if err = track.Decoder.QueueInputBuffer(slot, 0, size, p.demuxer.SampleTime(), 0); err != nil {
		return err
	}
	p.Stats.fed(track.Kind, size)
	p.demuxer.Advance()
	return nil
}

// signalEndOfInput hands an end-of-stream marker to every active decoder that
// has not received one yet, skipping decoders with no free input slot.
func (p *Player) signalEndOfInput() error {
	for _, track := range p.tracks {
		if track.InputDone || !track.IsActive() {
			continue
		}
		slot, err := track.Decoder.DequeueInputBuffer(0)
		if err != nil {
			return err
		}
		if slot < 0 {
			continue
		}
		if err = track.Decoder.QueueInputBuffer(slot, 0, 0, 0, pkg.FlagEndOfStream); err != nil {
			return err
		}
		track.InputDone = true
		track.Debug("input end of stream")
	}
	return nil
}
