// Package normalize reshapes stored records from every historical schema into the
// canonical shape served by the API. The timestamp heuristic lives here and nowhere else.
package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ISOLayout matches the millisecond UTC format the dashboard expects.
const ISOLayout = "2006-01-02T15:04:05.000Z"

const (
	millisThreshold  = 1e12
	secondsThreshold = 1e10
	serialThreshold  = 20000

	// days between the spreadsheet epoch (1899-12-30) and the Unix epoch
	serialEpochOffset = 25569
	msPerDay          = 86400 * 1000

	// largest representable instant in the dashboard's date type, +/- 8.64e15 ms
	maxEpochMillis = 8.64e15
)

var nowFunc = time.Now

// Timestamp coerces a stored timestamp into an ISO-8601 string. See TimestampAt.
func Timestamp(raw interface{}) string {
	return TimestampAt(raw, nowFunc())
}

// TimestampAt applies the ordered heuristic:
//
//	absent           -> now
//	n > 1e12         -> epoch milliseconds
//	n > 1e10         -> epoch seconds
//	n > 20000        -> spreadsheet serial date, or epoch seconds when the serial is out of range
//	otherwise        -> generic date parsing of raw; numbers are epoch milliseconds
//	unparseable      -> now
func TimestampAt(raw interface{}, now time.Time) string {
	if raw == nil {
		return format(now)
	}

	if n, ok := toNumber(raw); ok {
		switch {
		case n > millisThreshold:
			if t, ok := fromMillis(n); ok {
				return format(t)
			}
		case n > secondsThreshold:
			if t, ok := fromMillis(n * 1000); ok {
				return format(t)
			}
		case n > serialThreshold:
			if t, ok := fromMillis((n - serialEpochOffset) * msPerDay); ok {
				return format(t)
			}
			// ten-digit epoch seconds land here and overflow as serials
			if t, ok := fromMillis(n * 1000); ok {
				return format(t)
			}
		}
	}

	if t, ok := parseGeneric(raw); ok {
		return format(t)
	}
	return format(now)
}

func format(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// fromMillis truncates fractional milliseconds and rejects instants outside the representable range.
func fromMillis(ms float64) (time.Time, bool) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || math.Abs(ms) > maxEpochMillis {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)).UTC(), true
}

// toNumber follows loose numeric coercion: numbers as-is, numeric strings parsed,
// booleans as 0/1. The empty string coerces to 0.
func toNumber(raw interface{}) (float64, bool) {
	var n float64
	switch v := raw.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case int32:
		n = float64(v)
	case uint64:
		n = float64(v)
	case bool:
		if v {
			n = 1
		}
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, true
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func parseGeneric(raw interface{}) (time.Time, bool) {
	switch v := raw.(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, false
		}
		t, err := dateparse.ParseIn(s, time.UTC)
		if err != nil {
			return time.Time{}, false
		}
		if _, ok := fromMillis(float64(t.UnixMilli())); !ok {
			return time.Time{}, false
		}
		return t, true
	case time.Time:
		return v, true
	case bool, nil:
		return time.Time{}, false
	default:
		// small numbers are treated as epoch milliseconds
		if n, ok := toNumber(raw); ok {
			return fromMillis(n)
		}
		return time.Time{}, false
	}
}
