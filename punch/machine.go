/*
machine.go - The punch state machine

PURPOSE:
  Accepts one punch event at a time and decides the outcome: a new entry, a
  matching exit, an idempotent replay, or a rejection. This is the only
  writer of the punch ledger apart from the administrative correction and
  deletion operations.

STATES (per Special-shift employee):
  NoOpenEntry --entry--> OpenEntry      (open-entry marker inserted)
  OpenEntry   --exit---> NoOpenEntry    (marker removed, hours computed)
  OpenEntry   --entry--> Conflict       (message names the open entry)
  NoOpenEntry --exit---> NotFound

  Standard-shift employees bypass the automaton: one event carries both
  entry and exit (missing fields default to the event instant) and produces
  a single combined record, deduplicated by (employee, punch instant).

ATOMICITY:
  The open-entry check and the insert run inside WithTx. The store
  additionally enforces "at most one open entry per employee" with a
  uniqueness constraint, so a concurrent double-entry loses the race with a
  Conflict instead of silently violating the invariant.

SEE ALSO:
  - ledger.go: the persistence contract
  - hours.go:  hour component computation on exit pairing
*/
package punch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// =============================================================================
// EVENTS AND RESULTS
// =============================================================================

// Event is one validated punch event. Times are already anchored to concrete
// instants; the API layer owns string parsing.
type Event struct {
	EmployeeID   EmployeeID
	UnitID       UnitID
	Entry        *time.Time
	Exit         *time.Time
	BiometricRef string

	// Hours, when non-nil, is an authoritative pre-computed breakdown (the
	// trigger-equivalent path for combined Standard records). The calculator
	// is skipped.
	Hours *Hours
}

// Outcome classifies what the state machine did with an event.
type Outcome string

const (
	OutcomeEntry     Outcome = "entry"     // new open entry recorded
	OutcomeExit      Outcome = "exit"      // exit paired with an open entry
	OutcomeCombined  Outcome = "combined"  // Standard-shift combined record
	OutcomeDuplicate Outcome = "duplicate" // idempotent replay, existing record returned
)

// Result is the state machine's answer for an accepted event.
type Result struct {
	Outcome  Outcome
	Record   Record
	Employee Employee
	Unit     Unit

	// Set when Outcome is OutcomeExit.
	PairedEntry *Record
	Elapsed     Interval
}

// =============================================================================
// RECORDER
// =============================================================================

// RecorderConfig carries the tunables of the state machine. Zero values fall
// back to production defaults.
type RecorderConfig struct {
	// Schedule is the shift-type -> scheduled-end table.
	Schedule Schedule

	// Lookback bounds the open-entry search. An entry older than this is no
	// longer eligible for pairing. Default 72h; see DESIGN.md for why this is
	// configurable rather than hardcoded.
	Lookback time.Duration

	// MinExitGap rejects exits punched too soon after their entry.
	MinExitGap time.Duration

	Now    func() time.Time
	Logger *logrus.Logger
}

const (
	DefaultLookback   = 72 * time.Hour
	DefaultMinExitGap = 5 * time.Minute
)

// Recorder is the punch state machine. Safe for concurrent use; events for
// different employees are fully independent.
type Recorder struct {
	ledger TxLedger
	dir    Directory
	cfg    RecorderConfig
}

// NewRecorder wires the state machine to its ledger and master-data
// directory.
func NewRecorder(ledger TxLedger, dir Directory, cfg RecorderConfig) *Recorder {
	if cfg.Schedule == nil {
		cfg.Schedule = DefaultSchedule
	}
	if cfg.Lookback == 0 {
		cfg.Lookback = DefaultLookback
	}
	if cfg.MinExitGap == 0 {
		cfg.MinExitGap = DefaultMinExitGap
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Recorder{ledger: ledger, dir: dir, cfg: cfg}
}

// Record handles one punch event end to end: master-data resolution, leave
// check, classification, the entry/exit decision, and the ledger write. All
// or nothing; a failed event leaves no partial state.
func (r *Recorder) Record(ctx context.Context, ev Event) (*Result, error) {
	if ev.Entry == nil && ev.Exit == nil {
		return nil, validationf("punch event must carry an entry or an exit time")
	}

	emp, err := r.dir.Employee(ctx, ev.EmployeeID)
	if err != nil {
		return nil, internalf("employee lookup: %v", err)
	}
	if emp == nil {
		return nil, fmt.Errorf("%w: employee %s", ErrNotFound, ev.EmployeeID)
	}

	unit, err := r.dir.Unit(ctx, ev.UnitID)
	if err != nil {
		return nil, internalf("unit lookup: %v", err)
	}
	if unit == nil {
		return nil, fmt.Errorf("%w: unit %s", ErrNotFound, ev.UnitID)
	}

	instant := r.instantOf(ev)

	leave, err := r.dir.LeaveOn(ctx, emp.ID, instant)
	if err != nil {
		return nil, internalf("leave lookup: %v", err)
	}
	if leave != nil {
		return nil, &OnLeaveError{EmployeeID: emp.ID, Reason: leave.Reason}
	}

	var res *Result
	if Classify(emp.ShiftType) == ClassSpecial && (ev.Entry == nil || ev.Exit == nil) {
		res, err = r.recordSpecial(ctx, *emp, ev, instant)
	} else {
		res, err = r.recordStandard(ctx, *emp, ev, instant)
	}
	if err != nil {
		return nil, err
	}

	res.Employee = *emp
	res.Unit = *unit

	r.cfg.Logger.WithFields(logrus.Fields{
		"employee": emp.ID,
		"unit":     unit.ID,
		"shift":    emp.ShiftType,
		"outcome":  res.Outcome,
		"instant":  instant.Format(time.RFC3339),
	}).Info("punch recorded")

	return res, nil
}

// instantOf derives the combined punch instant for an event.
func (r *Recorder) instantOf(ev Event) time.Time {
	switch {
	case ev.Entry != nil:
		return *ev.Entry
	case ev.Exit != nil:
		return *ev.Exit
	default:
		return r.cfg.Now()
	}
}

// =============================================================================
// SPECIAL SHIFTS - entry/exit pairing across days
// =============================================================================

func (r *Recorder) recordSpecial(ctx context.Context, emp Employee, ev Event, instant time.Time) (*Result, error) {
	var res *Result

	err := r.ledger.WithTx(ctx, func(l Ledger) error {
		since := instant.Add(-r.cfg.Lookback)
		open, err := l.OpenEntry(ctx, emp.ID, since)
		if err != nil {
			return internalf("open-entry lookup: %v", err)
		}

		if ev.Entry != nil {
			if open != nil {
				return &OpenEntryConflictError{
					EmployeeID: emp.ID,
					RecordID:   open.ID,
					EntryAt:    *open.EntryAt,
				}
			}

			// A marker older than the lookback window no longer pairs and
			// must not block this entry. Clearing it here, inside the
			// transaction, keeps the marker constraint armed against
			// concurrent doubles within the window.
			if err := l.CloseOpenEntry(ctx, emp.ID); err != nil {
				return internalf("expire stale open entry: %v", err)
			}

			rec := Record{
				ID:           newRecordID(),
				EmployeeID:   emp.ID,
				UnitID:       ev.UnitID,
				PunchedAt:    instant,
				EntryAt:      ev.Entry,
				BiometricRef: ev.BiometricRef,
			}
			if err := l.Append(ctx, rec); err != nil {
				return err
			}
			res = &Result{Outcome: OutcomeEntry, Record: rec}
			return nil
		}

		// Exit event.
		if open == nil {
			return &NoOpenEntryError{EmployeeID: emp.ID, Lookback: r.cfg.Lookback}
		}

		entryAt := *open.EntryAt
		exitAt := *ev.Exit
		if !exitAt.After(entryAt) {
			return &ExitBeforeEntryError{EntryAt: entryAt, ExitAt: exitAt}
		}
		if gap := exitAt.Sub(entryAt); gap < r.cfg.MinExitGap {
			return &ExitTooSoonError{Elapsed: gap, MinGap: r.cfg.MinExitGap}
		}

		hours, err := ComputeHours(r.cfg.Schedule, emp.ShiftType, entryAt, exitAt)
		if err != nil {
			return err
		}

		rec := Record{
			ID:           newRecordID(),
			EmployeeID:   emp.ID,
			UnitID:       ev.UnitID,
			PunchedAt:    instant,
			ExitAt:       ev.Exit,
			BiometricRef: ev.BiometricRef,
			Hours:        &hours,
		}
		if err := l.Append(ctx, rec); err != nil {
			return err
		}
		if err := l.CloseOpenEntry(ctx, emp.ID); err != nil {
			return internalf("close open entry: %v", err)
		}

		res = &Result{
			Outcome:     OutcomeExit,
			Record:      rec,
			PairedEntry: open,
			Elapsed:     NewInterval(exitAt.Sub(entryAt)),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// =============================================================================
// STANDARD SHIFTS - one combined record per event
// =============================================================================

func (r *Recorder) recordStandard(ctx context.Context, emp Employee, ev Event, instant time.Time) (*Result, error) {
	entry := ev.Entry
	exit := ev.Exit
	if entry == nil {
		entry = &instant
	}
	if exit == nil {
		exit = &instant
	}

	var res *Result
	err := r.ledger.WithTx(ctx, func(l Ledger) error {
		existing, err := l.FindByInstant(ctx, emp.ID, instant)
		if err != nil {
			return internalf("instant lookup: %v", err)
		}
		if existing != nil {
			res = &Result{Outcome: OutcomeDuplicate, Record: *existing}
			return nil
		}

		rec := Record{
			ID:           newRecordID(),
			EmployeeID:   emp.ID,
			UnitID:       ev.UnitID,
			PunchedAt:    instant,
			EntryAt:      entry,
			ExitAt:       exit,
			BiometricRef: ev.BiometricRef,
		}

		if ev.Hours != nil {
			// Authoritative pre-computed values, e.g. from the legacy
			// trigger path. Taken as-is.
			rec.Hours = ev.Hours
		} else if exit.After(*entry) {
			hours, err := ComputeHours(r.cfg.Schedule, emp.ShiftType, *entry, *exit)
			if err != nil {
				return err
			}
			rec.Hours = &hours
		} else if exit.Before(*entry) {
			return &ExitBeforeEntryError{EntryAt: *entry, ExitAt: *exit}
		}
		// entry == exit: an entry-only kiosk event for a Standard shift.
		// Stored without hours; the exit arrives later as a correction.

		if err := l.Append(ctx, rec); err != nil {
			if errors.Is(err, ErrDuplicateInstant) {
				// Lost a race with an identical replay; return the winner.
				winner, ferr := l.FindByInstant(ctx, emp.ID, instant)
				if ferr == nil && winner != nil {
					res = &Result{Outcome: OutcomeDuplicate, Record: *winner}
					return nil
				}
			}
			return err
		}
		res = &Result{Outcome: OutcomeCombined, Record: rec}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// =============================================================================
// CORRECTION AND DELETION
// =============================================================================

// Correct applies an administrative edit to a record's entry/exit times.
// Times use the strict "HH:MM" layout and keep the record's original dates.
// Derived hours are recomputed and persisted; nothing else is mutated.
func (r *Recorder) Correct(ctx context.Context, id RecordID, entryHHMM, exitHHMM string) (*Record, error) {
	if !ValidClockHHMM(entryHHMM) || !ValidClockHHMM(exitHHMM) {
		return nil, validationf("times must use the HH:MM layout (e.g. 09:00)")
	}

	rec, err := r.ledger.Get(ctx, id)
	if err != nil {
		return nil, internalf("record lookup: %v", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: punch record %s", ErrNotFound, id)
	}

	entryDay := rec.PunchedAt
	if rec.EntryAt != nil {
		entryDay = *rec.EntryAt
	}
	exitDay := rec.PunchedAt
	if rec.ExitAt != nil {
		exitDay = *rec.ExitAt
	}

	entry, err := ParseClock(entryHHMM, entryDay)
	if err != nil {
		return nil, err
	}
	exit, err := ParseClock(exitHHMM, exitDay)
	if err != nil {
		return nil, err
	}
	if exit.Before(entry) {
		// An exit clock earlier than entry on the same day means the shift
		// crossed midnight.
		exit = exit.AddDate(0, 0, 1)
	}

	emp, err := r.dir.Employee(ctx, rec.EmployeeID)
	if err != nil {
		return nil, internalf("employee lookup: %v", err)
	}

	shift := Shift8h
	if emp != nil {
		shift = emp.ShiftType
	}
	hours, err := ComputeHours(r.cfg.Schedule, shift, entry, exit)
	if err != nil {
		return nil, err
	}

	rec.EntryAt = &entry
	rec.ExitAt = &exit
	rec.Hours = &hours
	rec.UpdatedAt = r.cfg.Now()

	if err := r.ledger.Update(ctx, *rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Remove deletes a record by id. ErrNotFound when absent.
func (r *Recorder) Remove(ctx context.Context, id RecordID) error {
	return r.ledger.Delete(ctx, id)
}
