package loki

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	nsPerMilli  = int64(time.Millisecond)
	nsPerSecond = int64(time.Second)

	// TimestampLayout is the format of LogEntry.Timestamp.
	TimestampLayout = "2006-01-02T15:04:05.000Z"
)

// FormatTimestamp converts a nanosecond epoch to a millisecond ISO-8601 string.
func FormatTimestamp(ns int64) string {
	return time.UnixMilli(ns / nsPerMilli).UTC().Format(TimestampLayout)
}

// TimestampNs converts an entry timestamp to nanoseconds since the epoch.
// The result is always a whole number of milliseconds.
func TimestampNs(ts string) (int64, error) {
	parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(ts))
	if err != nil {
		return 0, fmt.Errorf("parse timestamp %q: %w", ts, err)
	}
	return parsed.UnixMilli() * nsPerMilli, nil
}

// ContextWindow returns [center-radius s, center+radius s] in nanoseconds.
func ContextWindow(centerNs, radiusSeconds int64) (start, end int64, err error) {
	if radiusSeconds < 0 {
		return 0, 0, fmt.Errorf("context radius %d is negative", radiusSeconds)
	}
	if radiusSeconds > math.MaxInt64/nsPerSecond {
		return 0, 0, fmt.Errorf("context radius %ds overflows nanoseconds", radiusSeconds)
	}
	radiusNs := radiusSeconds * nsPerSecond
	if centerNs > math.MaxInt64-radiusNs || centerNs < math.MinInt64+radiusNs {
		return 0, 0, fmt.Errorf("context window around %d overflows", centerNs)
	}
	return centerNs - radiusNs, centerNs + radiusNs, nil
}
