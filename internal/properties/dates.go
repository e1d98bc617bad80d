package properties

import (
	"math"
	"time"
)

// dateLayouts are tried in order. time.Parse already accepts a fractional
// second after the seconds field, so the fractional layouts mostly document
// the accepted shapes.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05.999999999Z",
	"2006-01-02T15:04:05Z",
}

// ParseDate parses a calendar date or a zone-less timestamp, read as UTC.
// A bare date is midnight UTC.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// dateFromValue reads strings with ParseDate and numbers as milliseconds
// since the Unix epoch. Everything else is unparsable.
func dateFromValue(v Value) (time.Time, bool) {
	switch v.Kind() {
	case KindString:
		return ParseDate(v.text)
	case KindNumber:
		return fromEpochMillis(v.num)
	default:
		return time.Time{}, false
	}
}

func fromEpochMillis(ms float64) (time.Time, bool) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return time.Time{}, false
	}
	secs := math.Floor(ms / 1000)
	// Outside int64 seconds; time.Unix would wrap.
	if secs > math.MaxInt64/2 || secs < math.MinInt64/2 {
		return time.Time{}, false
	}
	// Remainder in [0, 1000) so pre-epoch values keep their sub-second part:
	// -500 is half a second before the epoch, not a whole second.
	rem := ms - secs*1000
	nanos := int64(rem * 1e6)
	return time.Unix(int64(secs), nanos).UTC(), true
}
