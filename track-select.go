package player

import (
	"fmt"

	"m7s.live/player/pkg"
)

func (p *Player) preferredTrack(kind pkg.MediaKind) int {
	switch kind {
	case pkg.KindVideo:
		return p.VideoTrack
	case pkg.KindAudio:
		return p.AudioTrack
	}
	return pkg.NoTrack
}

// selectTracks walks the container tracks and binds a started decoder to the
// first (or configured) video and audio track. A second track of an already
// selected kind is an error unless a preferred index rules it out.
func (p *Player) selectTracks(target pkg.RenderTarget) error {
	count := p.demuxer.TrackCount()
	for i := 0; i < count; i++ {
		format, err := p.demuxer.TrackFormat(i)
		if err != nil {
			return fmt.Errorf("track %d format: %w", i, err)
		}
		kind := format.Kind()
		if kind == pkg.KindUnknown {
			p.Debug("skip track", "track", i, "mime", format.MimeType)
			continue
		}
		if preferred := p.preferredTrack(kind); preferred >= 0 && preferred != i {
			p.Debug("skip track", "track", i, "kind", kind, "preferred", preferred)
			continue
		}
		if existing := p.tracks.Find(kind); existing != nil {
			return fmt.Errorf("tracks %d and %d are both %s: %w", existing.Index, i, kind, pkg.ErrDuplicateTrack)
		}
		if i >= pkg.MaxTracks {
			return fmt.Errorf("track %d: %w", i, pkg.ErrTrackIndexRange)
		}
		if format.MaxInputSize <= 0 {
			format.MaxInputSize = p.MaxInputSize
		}
		track := pkg.NewTrack(p.Logger, i, format)
		if kind == pkg.KindVideo {
			err = p.bindDecoder(track, target)
		} else {
			err = p.bindDecoder(track, nil)
		}
		if err != nil {
			return fmt.Errorf("track %d: %w", i, err)
		}
		if err = p.demuxer.SelectTrack(i); err != nil {
			return fmt.Errorf("select track %d: %w", i, err)
		}
		track.Info("track selected", "format", format.String())
	}
	if len(p.tracks) == 0 {
		return pkg.ErrNoTrack
	}
	p.video = p.tracks.Find(pkg.KindVideo)
	p.audio = p.tracks.Find(pkg.KindAudio)
	return nil
}

// bindDecoder registers the track before configuring so a failed configure or
// start still gets the decoder released during teardown.
func (p *Player) bindDecoder(track *pkg.Track, target pkg.RenderTarget) (err error) {
	if track.Decoder, err = p.decoders.CreateDecoder(track.Format.MimeType); err != nil {
		return
	}
	p.tracks = append(p.tracks, track)
	if err = track.Decoder.Configure(track.Format, target, 0); err != nil {
		return fmt.Errorf("configure: %w", err)
	}
	if err = track.Decoder.Start(); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	track.Started = true
	return
}
