/*
days.go - Expected working-day generation

PURPOSE:
  Produces the sequence of days an employee is expected to work in a period,
  given their shift type and a reference date (normally the admission date).
  The aggregator cross-references this sequence against actual punches to
  flag absences.

RULES:
  Standard shifts: every Monday-Friday in the period.
  Rotation shifts: one working day per cycle (12x36 every 2nd day, 24x72
  every 4th), anchored so the reference date itself is a working day.
  Days before the reference date are never expected.
*/
package report

import (
	"time"

	"github.com/muniworks/punch-engine/punch"
)

// DayFunc produces the expected working days in [start, end] for a shift
// type, anchored at ref. Implementations must return days in ascending
// order at midnight granularity.
type DayFunc func(start, end time.Time, shift punch.ShiftType, ref time.Time) []time.Time

// ExpectedDays is the default DayFunc.
func ExpectedDays(start, end time.Time, shift punch.ShiftType, ref time.Time) []time.Time {
	start = midnight(start)
	end = midnight(end)
	ref = midnight(ref)

	var days []time.Time
	cycle := punch.CycleDays(shift)

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Before(ref) {
			continue
		}
		if cycle == 0 {
			if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
				days = append(days, d)
			}
			continue
		}
		if daysBetween(ref, d)%cycle == 0 {
			days = append(days, d)
		}
	}
	return days
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
