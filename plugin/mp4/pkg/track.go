package mp4

import (
	"fmt"

	"github.com/Eyevinn/mp4ff/hevc"
	"github.com/Eyevinn/mp4ff/mp4"
	"m7s.live/player/pkg"
	"m7s.live/player/pkg/codec"
	"m7s.live/player/pkg/util"
)

const (
	HandlerVideo = "vide"
	HandlerAudio = "soun"
)

type Track struct {
	ID        uint32
	Format    pkg.MediaFormat
	Timescale uint32
	Samples   []Sample
	selected  bool
	next      int
}

func (t *Track) due() *Sample {
	if t.next < len(t.Samples) {
		return &t.Samples[t.next]
	}
	return nil
}

func handlerKind(handler string) pkg.MediaKind {
	switch handler {
	case HandlerVideo:
		return pkg.KindVideo
	case HandlerAudio:
		return pkg.KindAudio
	}
	return pkg.KindUnknown
}

// readTrack converts a trak box into a track with its flattened sample list.
func readTrack(trak *mp4.TrakBox) (*Track, error) {
	if trak.Mdia == nil || trak.Mdia.Mdhd == nil || trak.Mdia.Hdlr == nil || trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil {
		return nil, fmt.Errorf("trak without media boxes: %w", ErrSampleTable)
	}
	track := &Track{Timescale: trak.Mdia.Mdhd.Timescale}
	if trak.Tkhd != nil {
		track.ID = trak.Tkhd.TrackID
	}
	stbl := trak.Mdia.Minf.Stbl
	kind := handlerKind(trak.Mdia.Hdlr.HandlerType)
	format := pkg.MediaFormat{MimeType: codec.MimeOf(trak.Mdia.Hdlr.HandlerType, pkg.KindUnknown)}
	format.Duration = util.UsToDuration(util.ScaleTime(trak.Mdia.Mdhd.Duration, track.Timescale))
	if stbl.Stsd != nil && len(stbl.Stsd.Children) > 0 {
		entry := stbl.Stsd.Children[0]
		format.MimeType = codec.MimeOf(entry.Type(), kind)
		switch e := entry.(type) {
		case *mp4.VisualSampleEntryBox:
			format.Width, format.Height = int(e.Width), int(e.Height)
			if e.AvcC != nil && len(e.AvcC.SPSnalus) > 0 && len(e.AvcC.PPSnalus) > 0 {
				format.CodecConfig = [][]byte{e.AvcC.SPSnalus[0], e.AvcC.PPSnalus[0]}
			}
			if e.HvcC != nil {
				vps := e.HvcC.GetNalusForType(hevc.NALU_VPS)
				sps := e.HvcC.GetNalusForType(hevc.NALU_SPS)
				pps := e.HvcC.GetNalusForType(hevc.NALU_PPS)
				if len(vps) > 0 && len(sps) > 0 && len(pps) > 0 {
					format.CodecConfig = [][]byte{vps[0], sps[0], pps[0]}
				}
			}
		case *mp4.AudioSampleEntryBox:
			format.ChannelCount, format.SampleRate = int(e.ChannelCount), int(e.SampleRate)
			if e.Esds != nil {
				if asc := e.Esds.DecConfigDescriptor.DecSpecificInfo.DecConfig; len(asc) > 0 {
					format.CodecConfig = [][]byte{asc}
				}
			}
		}
	}
	table, err := readSampleTable(stbl, track.Timescale)
	if err != nil {
		return nil, err
	}
	if track.Samples, err = BuildSamples(table); err != nil {
		return nil, err
	}
	for _, size := range table.SampleSizes {
		format.MaxInputSize = max(format.MaxInputSize, int(size))
	}
	if n := len(track.Samples); n > 1 && format.Kind() == pkg.KindVideo && format.Duration > 0 {
		format.FrameRate = float64(n) / format.Duration.Seconds()
	}
	track.Format = format
	return track, nil
}

func readSampleTable(stbl *mp4.StblBox, timescale uint32) (table SampleTable, err error) {
	table.Timescale = timescale
	if stbl.Stsz == nil || stbl.Stsc == nil || stbl.Stts == nil {
		return table, fmt.Errorf("missing stsz, stsc or stts: %w", ErrSampleTable)
	}
	if stbl.Stsz.SampleUniformSize != 0 {
		table.SampleSizes = make([]uint32, stbl.Stsz.SampleNumber)
		for i := range table.SampleSizes {
			table.SampleSizes[i] = stbl.Stsz.SampleUniformSize
		}
	} else {
		table.SampleSizes = stbl.Stsz.SampleSize
	}
	switch {
	case stbl.Stco != nil:
		table.ChunkOffsets = make([]uint64, len(stbl.Stco.ChunkOffset))
		for i, offset := range stbl.Stco.ChunkOffset {
			table.ChunkOffsets[i] = uint64(offset)
		}
	case stbl.Co64 != nil:
		table.ChunkOffsets = stbl.Co64.ChunkOffset
	default:
		return table, fmt.Errorf("missing stco: %w", ErrSampleTable)
	}
	for _, entry := range stbl.Stsc.Entries {
		table.Chunks = append(table.Chunks, ChunkRun{FirstChunk: entry.FirstChunk, SamplesPerChunk: entry.SamplesPerChunk})
	}
	for i := range stbl.Stts.SampleCount {
		table.TimeToSample = append(table.TimeToSample, TimeRun{Count: stbl.Stts.SampleCount[i], Delta: stbl.Stts.SampleTimeDelta[i]})
	}
	if stbl.Ctts != nil {
		table.CompositionOffsets = make([]int32, len(table.SampleSizes))
		for i := range table.CompositionOffsets {
			table.CompositionOffsets[i] = stbl.Ctts.GetCompositionTimeOffset(uint32(i + 1))
		}
	}
	if stbl.Stss != nil {
		table.SyncSamples = stbl.Stss.SampleNumber
	}
	return
}
