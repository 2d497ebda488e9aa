package lifecycle

import (
	"strings"
	"time"
)

const secondsPerDay = 24 * 60 * 60

// DaysActive returns the whole days elapsed between start and now. A zero
// start or a start after now yields 0. Counting is done on Unix seconds, so
// spans longer than time.Duration can hold (about 292 years) stay exact.
func DaysActive(start, now time.Time) int {
	if start.IsZero() || start.After(now) {
		return 0
	}
	secs := now.Unix() - start.Unix()
	if now.Nanosecond() < start.Nanosecond() {
		secs--
	}
	return int(secs / secondsPerDay)
}

// DaysActiveFromString parses start as RFC 3339 or a plain date and returns
// DaysActive. Unparseable input yields 0.
func DaysActiveFromString(start string, now time.Time) int {
	start = strings.TrimSpace(start)
	if start == "" {
		return 0
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, start); err == nil {
			return DaysActive(t, now)
		}
	}
	return 0
}
