package models

import (
	"fmt"
	"time"
)

// Timeframe is a supported candle bucket width.
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe1h  Timeframe = "1h"
)

// AllTimeframes lists the timeframes materialized by the candle sweep.
var AllTimeframes = []Timeframe{Timeframe1m, Timeframe5m, Timeframe15m, Timeframe1h}

// ParseTimeframe validates a timeframe string.
func ParseTimeframe(s string) (Timeframe, error) {
	switch Timeframe(s) {
	case Timeframe1m, Timeframe5m, Timeframe15m, Timeframe1h:
		return Timeframe(s), nil
	}
	return "", fmt.Errorf("invalid timeframe: %q", s)
}

// Duration returns the bucket width.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case Timeframe1m:
		return time.Minute
	case Timeframe5m:
		return 5 * time.Minute
	case Timeframe15m:
		return 15 * time.Minute
	case Timeframe1h:
		return time.Hour
	default:
		return time.Minute
	}
}

// Seconds returns the bucket width in seconds.
func (tf Timeframe) Seconds() int64 {
	return int64(tf.Duration() / time.Second)
}

// Align returns the bucket start containing t. Alignment is done in UTC;
// for these widths truncation is equivalent to integer-dividing the epoch
// seconds by the bucket width.
func (tf Timeframe) Align(t time.Time) time.Time {
	return t.UTC().Truncate(tf.Duration())
}

// Bucket maps an epoch-seconds timestamp to its bucket start.
func (tf Timeframe) Bucket(epoch int64) int64 {
	secs := tf.Seconds()
	return epoch / secs * secs
}
