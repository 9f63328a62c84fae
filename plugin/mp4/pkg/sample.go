package mp4

import (
	"errors"
	"fmt"

	"m7s.live/player/pkg/util"
)

var ErrSampleTable = errors.New("inconsistent sample table")

type (
	Sample struct {
		Offset uint64
		Size   uint32
		DTS    uint64
		PTS    int64
		Sync   bool
	}
	TimeRun struct {
		Count uint32
		Delta uint32
	}
	ChunkRun struct {
		FirstChunk      uint32
		SamplesPerChunk uint32
	}
	// SampleTable holds the raw stbl tables of one track. CompositionOffsets
	// and SyncSamples may be nil: no ctts means pts equals dts and no stss
	// means every sample is a sync sample.
	SampleTable struct {
		Timescale          uint32
		SampleSizes        []uint32
		ChunkOffsets       []uint64
		Chunks             []ChunkRun
		TimeToSample       []TimeRun
		CompositionOffsets []int32
		SyncSamples        []uint32
	}
)

func (s *Sample) DTSUs(timescale uint32) int64 {
	return util.ScaleTime(s.DTS, timescale)
}

func (s *Sample) PTSUs(timescale uint32) int64 {
	if s.PTS < 0 {
		return -util.ScaleTime(uint64(-s.PTS), timescale)
	}
	return util.ScaleTime(uint64(s.PTS), timescale)
}

// BuildSamples flattens the chunk, size and timing tables into one sample list.
func BuildSamples(t SampleTable) ([]Sample, error) {
	samples := make([]Sample, len(t.SampleSizes))
	if len(samples) == 0 {
		return samples, nil
	}
	for i, size := range t.SampleSizes {
		samples[i].Size = size
		samples[i].Sync = t.SyncSamples == nil
	}
	if len(t.Chunks) == 0 {
		return nil, fmt.Errorf("stsc empty: %w", ErrSampleTable)
	}
	run, sample := 0, 0
	for chunk := range t.ChunkOffsets {
		chunkNr := uint32(chunk + 1)
		for run+1 < len(t.Chunks) && t.Chunks[run+1].FirstChunk <= chunkNr {
			run++
		}
		offset := t.ChunkOffsets[chunk]
		for j := uint32(0); j < t.Chunks[run].SamplesPerChunk && sample < len(samples); j++ {
			samples[sample].Offset = offset
			offset += uint64(samples[sample].Size)
			sample++
		}
	}
	if sample < len(samples) {
		return nil, fmt.Errorf("chunks cover %d of %d samples: %w", sample, len(samples), ErrSampleTable)
	}
	var dts uint64
	sample = 0
	for _, r := range t.TimeToSample {
		for j := uint32(0); j < r.Count && sample < len(samples); j++ {
			samples[sample].DTS = dts
			dts += uint64(r.Delta)
			sample++
		}
	}
	for ; sample < len(samples); sample++ {
		samples[sample].DTS = dts
	}
	for i := range samples {
		samples[i].PTS = int64(samples[i].DTS)
		if i < len(t.CompositionOffsets) {
			samples[i].PTS += int64(t.CompositionOffsets[i])
		}
	}
	for _, nr := range t.SyncSamples {
		if nr >= 1 && int(nr) <= len(samples) {
			samples[nr-1].Sync = true
		}
	}
	return samples, nil
}
