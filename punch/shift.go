/*
shift.go - Shift classification and the scheduled-end table

PURPOSE:
  Maps an employee's shift-type code to a pairing strategy and to the
  wall-clock cutoff that separates normal hours from overtime.

CLASSIFICATION:
  Standard: fixed daily schedules (8h, 12h, 16h, 20h, 24h, 32h). One punch
            event typically carries both entry and exit; records are keyed
            and deduplicated by (employee, punch instant).
  Special:  rotation schedules (12x36, 24x72). Entry and exit arrive as
            independent events, possibly on different calendar days, and are
            paired by the state machine.

SCHEDULED END:
  Each shift type has a scheduled end expressed as an hour of the entry day.
  Values beyond 24 roll into the following day: a 24x72 rotation entered at
  08:00 has its scheduled end at hour 31, i.e. 07:00 the next morning. The
  table is explicit configuration, not inline conditionals, so payroll can
  inspect and amend it without touching the calculator.

SEE ALSO:
  - hours.go: uses Schedule to split elapsed time
*/
package punch

import "time"

// =============================================================================
// SHIFT TYPES
// =============================================================================

type ShiftType string

const (
	Shift8h    ShiftType = "8h"
	Shift12h   ShiftType = "12h"
	Shift16h   ShiftType = "16h"
	Shift20h   ShiftType = "20h"
	Shift24h   ShiftType = "24h"
	Shift32h   ShiftType = "32h"
	Shift12x36 ShiftType = "12x36"
	Shift24x72 ShiftType = "24x72"
)

// Class is the pairing strategy for a shift type.
type Class int

const (
	// ClassStandard shifts produce one combined record per punch event.
	ClassStandard Class = iota
	// ClassSpecial shifts produce separate entry/exit records that the state
	// machine pairs across calendar days.
	ClassSpecial
)

func (c Class) String() string {
	if c == ClassSpecial {
		return "special"
	}
	return "standard"
}

// Classify returns the pairing strategy for a shift-type code. Unknown codes
// classify as Standard; callers that want to surface bad master data should
// check Known first.
func Classify(t ShiftType) Class {
	switch t {
	case Shift12x36, Shift24x72:
		return ClassSpecial
	default:
		return ClassStandard
	}
}

// Known reports whether the code is part of the fixed shift enumeration.
func Known(t ShiftType) bool {
	_, ok := DefaultSchedule[t]
	return ok
}

// =============================================================================
// SCHEDULE - shift type -> scheduled-end rule
// =============================================================================

// EndRule gives the scheduled end of a shift as an hour of the entry day.
// EndHour may exceed 24 for shifts that close on a following day.
type EndRule struct {
	EndHour int
}

// Schedule maps shift types to their scheduled-end rules.
type Schedule map[ShiftType]EndRule

// DefaultSchedule mirrors the municipal workday table: an 8h shift entered in
// the morning is scheduled to end at 17:00, a 24x72 rotation 31 hours into
// the entry day (07:00 the following morning), and so on.
var DefaultSchedule = Schedule{
	Shift8h:    {EndHour: 17},
	Shift12h:   {EndHour: 19},
	Shift16h:   {EndHour: 22},
	Shift20h:   {EndHour: 16},
	Shift24h:   {EndHour: 24},
	Shift32h:   {EndHour: 16},
	Shift12x36: {EndHour: 19},
	Shift24x72: {EndHour: 31},
}

// ScheduledEnd returns the wall-clock cutoff for a shift entered at entry.
// The cutoff is anchored to the entry day's midnight, so an entry at 08:00
// under an 8h shift yields the same 17:00 cutoff as an entry at 10:00.
// Returns ok=false for shift types absent from the schedule.
func (s Schedule) ScheduledEnd(t ShiftType, entry time.Time) (time.Time, bool) {
	rule, ok := s[t]
	if !ok {
		return time.Time{}, false
	}
	midnight := time.Date(entry.Year(), entry.Month(), entry.Day(), 0, 0, 0, 0, entry.Location())
	return midnight.Add(time.Duration(rule.EndHour) * time.Hour), true
}

// CycleDays returns the rotation cycle length in days for Special shifts
// (12x36 repeats every 2 days, 24x72 every 4). Standard shifts return 0.
func CycleDays(t ShiftType) int {
	switch t {
	case Shift12x36:
		return 2
	case Shift24x72:
		return 4
	default:
		return 0
	}
}
