package coach

import (
	"strings"
	"time"
)

// isoLayouts cover the forms an ISO-8601 reader accepts, offset first.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var fallbackLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02",
	"02.01.2006 15:04",
	"02.01.2006",
}

// ParseDateTime tries ISO-8601 and then the fallback layouts in order.
// Values without an offset are read in loc.
func ParseDateTime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, ok := tryLayouts(isoLayouts, isoForm(s), loc); ok {
		return t, true
	}
	return tryLayouts(fallbackLayouts, s, loc)
}

// ParseDate is ParseDateTime truncated to the calendar day. For ISO input
// only the date component counts, so the offset does not move the day.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	t, ok := ParseDateTime(s, loc)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), true
}

func isoForm(s string) string {
	if strings.HasSuffix(s, "Z") || strings.HasSuffix(s, "z") {
		return s[:len(s)-1] + "+00:00"
	}
	return s
}

func tryLayouts(layouts []string, s string, loc *time.Location) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
