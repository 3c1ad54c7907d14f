// Package timeofday orders the free-text display times caregivers type for
// medications and calendar events ("08:00", "8:00 AM", "8pm").
package timeofday

import (
	"strings"
	"time"
)

var layouts = []string{"15:04", "3:04 PM", "3:04PM", "3 PM", "3PM", "15:04:05"}

// Minutes returns the minutes since midnight of s. The second result is
// false when s is not a recognisable clock time.
func Minutes(s string) (int, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, ".", "")
	if s == "" {
		return 0, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour()*60 + t.Minute(), true
		}
	}
	return 0, false
}

// Compare orders display times by clock time. Unrecognised values sort
// after every clock time and among themselves by text.
func Compare(a, b string) int {
	am, aok := Minutes(a)
	bm, bok := Minutes(b)
	switch {
	case aok && bok && am != bm:
		if am < bm {
			return -1
		}
		return 1
	case aok && !bok:
		return -1
	case !aok && bok:
		return 1
	}
	return strings.Compare(a, b)
}
