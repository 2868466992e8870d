/*
hours.go - Duration & hours calculation

PURPOSE:
  Converts a matched {entry, exit} pair into the normal/extra/discount hour
  components persisted on the record.

RULES:
  elapsed   = exit - entry               (must be > 0; rejected otherwise)
  scheduled = ScheduledEnd(shift, entry) - entry
  normal    = min(elapsed, scheduled)
  extra     = max(0, elapsed - scheduled), justified as "overtime"
  discount  = max(0, scheduled - elapsed)

  An entry after the scheduled end (scheduled <= 0) makes the whole elapsed
  span overtime.

SEE ALSO:
  - shift.go: the scheduled-end table
*/
package punch

import "time"

// ComputeHours splits the worked span between entry and exit into its hour
// components using the shift's scheduled end. A non-positive elapsed span is
// a Validation failure, never clamped.
func ComputeHours(sched Schedule, shift ShiftType, entry, exit time.Time) (Hours, error) {
	if !exit.After(entry) {
		return Hours{}, &ExitBeforeEntryError{EntryAt: entry, ExitAt: exit}
	}

	elapsed := NewInterval(exit.Sub(entry))

	end, ok := sched.ScheduledEnd(shift, entry)
	if !ok {
		// Unknown shift types fall back to the standard 8h rule rather than
		// failing the punch; master data hygiene is the directory's problem.
		end, _ = sched.ScheduledEnd(Shift8h, entry)
	}

	scheduled := NewInterval(end.Sub(entry))
	if scheduled.Seconds < 0 {
		scheduled = Interval{}
	}

	h := Hours{Total: elapsed}
	if elapsed.Seconds <= scheduled.Seconds {
		h.Normal = elapsed
		h.Discount = scheduled.Sub(elapsed)
	} else {
		h.Normal = scheduled
		h.Extra = elapsed.Sub(scheduled)
		h.Justification = JustificationOvertime
	}

	return h, nil
}
