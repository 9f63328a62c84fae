package util

import "time"

func Conditional[T any](cond bool, t, f T) T {
	if cond {
		return t
	} else {
		return f
	}
}

// UsToDuration converts a microsecond timestamp to a time.Duration.
func UsToDuration(us int64) time.Duration {
	return time.Duration(us) * time.Microsecond
}

// ScaleTime converts a value counted in timescale ticks to microseconds.
func ScaleTime(value uint64, timescale uint32) int64 {
	if timescale == 0 {
		return 0
	}
	return int64(value/uint64(timescale)*1_000_000 + value%uint64(timescale)*1_000_000/uint64(timescale))
}
