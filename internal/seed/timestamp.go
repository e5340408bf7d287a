package seed

import (
	"strings"
	"time"
)

// TimestampLayout is the created_at format; values are read as UTC.
const TimestampLayout = "2006-01-02 15:04:05"

// unpaddedLayout accepts the same fields without zero padding, e.g. 2024-1-5 3:04:05.
const unpaddedLayout = "2006-1-2 15:4:5"

// TimestampSource records where a row's created_at came from.
type TimestampSource string

const (
	// TimestampDefault: the field was missing or blank.
	TimestampDefault TimestampSource = "default"
	// TimestampParsed: the field was honored.
	TimestampParsed TimestampSource = "parsed"
	// TimestampFallback: the field was present but unparseable and now was used instead.
	TimestampFallback TimestampSource = "fallback"
)

// ParseCreatedAt applies the lenient created_at policy: anything that is not
// a valid TimestampLayout value (zero padding optional) becomes now, and the
// source says which case applied.
func ParseCreatedAt(raw string, now time.Time) (time.Time, TimestampSource) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.UTC(), TimestampDefault
	}
	for _, layout := range []string{TimestampLayout, unpaddedLayout} {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, TimestampParsed
		}
	}
	return now.UTC(), TimestampFallback
}
