/*
interval.go - Interval formatting, parsing and normalization

PURPOSE:
  Interval values cross the storage and API boundaries in two shapes: the
  string "HH:MM:SS" and the structured {hours, minutes, seconds} object some
  drivers hand back for SQL intervals. Both normalize to the same integer
  seconds here, and formatting then parsing any value in [0, 999:59:59]
  round-trips to the identical total.

SEE ALSO:
  - types.go: the Interval type itself
  - report/:  accumulates normalized seconds into monthly totals
*/
package punch

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// FORMATTING
// =============================================================================

// String renders the interval as "HH:MM:SS". Hours are not wrapped at 24, so
// a 31-hour rotation shift renders as "31:00:00".
func (iv Interval) String() string {
	s := iv.Seconds
	sign := ""
	if s < 0 {
		sign = "-"
		s = -s
	}
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, s/3600, (s%3600)/60, s%60)
}

// =============================================================================
// PARSING
// =============================================================================

// ParseInterval parses "HH:MM:SS" (or "HH:MM") into an Interval. The hour
// field may exceed two digits.
func ParseInterval(s string) (Interval, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return Interval{}, validationf("malformed interval %q, want HH:MM:SS", s)
	}

	var h, m, sec int
	if _, err := fmt.Sscanf(parts[0], "%d", &h); err != nil {
		return Interval{}, validationf("malformed interval %q: bad hours", s)
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &m); err != nil || m < 0 || m > 59 {
		return Interval{}, validationf("malformed interval %q: bad minutes", s)
	}
	if len(parts) == 3 {
		if _, err := fmt.Sscanf(parts[2], "%d", &sec); err != nil || sec < 0 || sec > 59 {
			return Interval{}, validationf("malformed interval %q: bad seconds", s)
		}
	}
	if h < 0 {
		return Interval{}, validationf("malformed interval %q: negative hours", s)
	}

	return Interval{Seconds: int64(h)*3600 + int64(m)*60 + int64(sec)}, nil
}

// IntervalParts is the structured shape some storage drivers return for SQL
// interval columns.
type IntervalParts struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// IntervalFromParts normalizes the structured shape to integer seconds.
func IntervalFromParts(p IntervalParts) Interval {
	return Interval{Seconds: int64(p.Hours)*3600 + int64(p.Minutes)*60 + int64(p.Seconds)}
}

// =============================================================================
// CLOCK TIMES - "HH:MM" / "HH:MM:SS" wall-clock fields on punch events
// =============================================================================

// ParseClock parses a wall-clock time field ("HH:MM" or "HH:MM:SS") and
// anchors it to the given day. Malformed input is a Validation error.
func ParseClock(s string, day time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	var layout string
	switch strings.Count(s, ":") {
	case 1:
		layout = "15:04"
	case 2:
		layout = "15:04:05"
	default:
		return time.Time{}, validationf("malformed time %q, want HH:MM or HH:MM:SS", s)
	}

	t, err := time.ParseInLocation(layout, s, day.Location())
	if err != nil {
		return time.Time{}, validationf("malformed time %q, want HH:MM or HH:MM:SS", s)
	}

	return time.Date(day.Year(), day.Month(), day.Day(),
		t.Hour(), t.Minute(), t.Second(), 0, day.Location()), nil
}

// ValidClockHHMM reports whether s is a strict "HH:MM" value. Used by the
// correction endpoint, which accepts only this layout.
func ValidClockHHMM(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	var h, m int
	if _, err := fmt.Sscanf(s, "%02d:%02d", &h, &m); err != nil {
		return false
	}
	return h >= 0 && h <= 23 && m >= 0 && m <= 59
}
