package util

import "time"

// Clock returns the current time in unix milliseconds. Components take a
// Clock so tests can drive window eviction and baseline bucketing manually.
type Clock func() int64

// NowMillis is the wall-clock default.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
