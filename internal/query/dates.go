package query

import (
	"fmt"
	"time"
)

// Date layouts accepted by the range filter, in resolution order. The
// mock data carries day-first `DD/MM/YYYY` strings, which must never
// be handed to an auto-detecting parser: 05/06/2023 is the 5th of
// June here, always.
var dateLayouts = []string{
	"02/01/2006",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses a record or filter date with an explicit day-first
// order for slash dates.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// sameOrAfter / sameOrBefore compare calendar dates only. The range
// filter is inclusive on both bounds, with no time-of-day component.
func sameOrAfter(t, bound time.Time) bool {
	return !truncate(t).Before(truncate(bound))
}

func sameOrBefore(t, bound time.Time) bool {
	return !truncate(t).After(truncate(bound))
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
