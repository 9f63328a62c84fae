package mp4

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Eyevinn/mp4ff/mp4"
	"m7s.live/player/pkg"
	"m7s.live/player/pkg/codec"
)

var (
	ErrFragmented = errors.New("fragmented mp4 not supported")
	ErrNoMovie    = errors.New("moov box not found")
	ErrNotOpened  = errors.New("demuxer not opened")
)

// Demuxer reads progressive MP4 files. Sample data is read on demand from
// the open file, so the mdat box is never loaded as a whole.
type Demuxer struct {
	*slog.Logger
	reader   io.ReaderAt
	closer   io.Closer
	tracks   []*Track
	released bool
}

func NewDemuxer(logger *slog.Logger) *Demuxer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Demuxer{Logger: logger}
}

func (d *Demuxer) Open(source string) error {
	file, err := os.Open(source)
	if err != nil {
		return err
	}
	if err = d.OpenReader(file); err != nil {
		file.Close()
		return fmt.Errorf("%s: %w", source, err)
	}
	d.closer = file
	d.Debug("opened", "source", source, "tracks", len(d.tracks))
	return nil
}

// OpenReader parses the movie header from r and keeps r for sample reads.
func (d *Demuxer) OpenReader(r io.ReadSeeker) error {
	readerAt, ok := r.(io.ReaderAt)
	if !ok {
		return fmt.Errorf("reader must implement io.ReaderAt")
	}
	f, err := mp4.DecodeFile(r, mp4.WithDecodeMode(mp4.DecModeLazyMdat))
	if err != nil {
		return err
	}
	if f.IsFragmented() {
		return ErrFragmented
	}
	if f.Moov == nil {
		return ErrNoMovie
	}
	tracks := make([]*Track, 0, len(f.Moov.Traks))
	for i, trak := range f.Moov.Traks {
		track, err := readTrack(trak)
		if err != nil {
			return fmt.Errorf("track %d: %w", i, err)
		}
		if err = codec.Complete(&track.Format); err != nil {
			d.Warn("codec config unreadable", "track", i, "mime", track.Format.MimeType, "err", err)
		}
		tracks = append(tracks, track)
	}
	d.reader, d.tracks = readerAt, tracks
	return nil
}

func (d *Demuxer) TrackCount() int {
	return len(d.tracks)
}

func (d *Demuxer) TrackFormat(index int) (pkg.MediaFormat, error) {
	if index < 0 || index >= len(d.tracks) {
		return pkg.MediaFormat{}, fmt.Errorf("track %d of %d: %w", index, len(d.tracks), pkg.ErrTrackIndexRange)
	}
	return d.tracks[index].Format, nil
}

func (d *Demuxer) SelectTrack(index int) error {
	if index < 0 || index >= len(d.tracks) {
		return fmt.Errorf("select track %d: %w", index, pkg.ErrTrackIndexRange)
	}
	d.tracks[index].selected = true
	return nil
}

// SampleTrackIndex returns the selected track whose next sample has the
// smallest decode time, or pkg.NoTrack when all are exhausted.
func (d *Demuxer) SampleTrackIndex() int {
	due, dueTime := pkg.NoTrack, int64(0)
	for i, track := range d.tracks {
		if !track.selected {
			continue
		}
		sample := track.due()
		if sample == nil {
			continue
		}
		if t := sample.DTSUs(track.Timescale); due == pkg.NoTrack || t < dueTime {
			due, dueTime = i, t
		}
	}
	return due
}

func (d *Demuxer) dueSample() (*Track, *Sample) {
	if i := d.SampleTrackIndex(); i != pkg.NoTrack {
		track := d.tracks[i]
		return track, track.due()
	}
	return nil, nil
}

// SampleTime returns the presentation time of the due sample in microseconds, -1 at the end.
func (d *Demuxer) SampleTime() int64 {
	if track, sample := d.dueSample(); sample != nil {
		return sample.PTSUs(track.Timescale)
	}
	return -1
}

func (d *Demuxer) SampleFlags() (flags pkg.BufferFlag) {
	if _, sample := d.dueSample(); sample != nil && sample.Sync {
		flags |= pkg.FlagKeyFrame
	}
	return
}

// ReadSampleData copies the due sample into buf and returns its size, or -1 at the end.
func (d *Demuxer) ReadSampleData(buf []byte) (int, error) {
	if d.reader == nil {
		return -1, ErrNotOpened
	}
	_, sample := d.dueSample()
	if sample == nil {
		return -1, nil
	}
	if len(buf) < int(sample.Size) {
		return 0, fmt.Errorf("sample of %d bytes: %w", sample.Size, io.ErrShortBuffer)
	}
	n, err := d.reader.ReadAt(buf[:sample.Size], int64(sample.Offset))
	if n == int(sample.Size) {
		err = nil
	}
	return n, err
}

// Advance moves past the due sample. It reports whether any sample is left.
func (d *Demuxer) Advance() bool {
	if track, sample := d.dueSample(); sample != nil {
		track.next++
	}
	return d.SampleTrackIndex() != pkg.NoTrack
}

func (d *Demuxer) Release() error {
	if d.released {
		return pkg.ErrReleased
	}
	d.released = true
	d.reader = nil
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}
