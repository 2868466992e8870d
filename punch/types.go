/*
Package punch provides the punch reconciliation engine.

PURPOSE:
  This package contains the types and algorithms that turn raw clock-in /
  clock-out events into reconciled punch records with payroll-relevant hour
  totals. It decides whether an incoming punch is an entry or an exit, pairs
  exits with open entries for rotation shifts, and splits worked time into
  normal, overtime and discount components.

KEY CONCEPTS IN THIS FILE (types.go):
  - Record: a single row of the append-only punch ledger
  - Interval: an exact duration in whole seconds (the accumulation unit)
  - Hours: the derived normal/extra/discount breakdown stored on a record
  - Employee/Unit: read-only master data consumed from external CRUD

DESIGN PRINCIPLES:
  1. Append-only: a punch device only ever writes, never updates. Entry and
     exit of a rotation cycle are two independent rows; pairing is computed.
  2. Exactness: intervals accumulate as integer seconds. Decimal hours are a
     presentation concern, rounded to two places only at the edge.
  3. Derived once: hour components are computed at creation/edit time and
     persisted, never lazily re-derived on read.

SEE ALSO:
  - shift.go:   shift classification and the scheduled-end table
  - machine.go: the per-employee entry/exit state machine
  - hours.go:   elapsed time and normal/extra/discount computation
  - ledger.go:  persistence interfaces
*/
package punch

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type RecordID string
type EmployeeID string
type UnitID string

func newRecordID() RecordID {
	var b [8]byte
	rand.Read(b[:])
	return RecordID("punch-" + hex.EncodeToString(b[:]))
}

// =============================================================================
// INTERVAL - Exact duration in whole seconds
// =============================================================================

// Interval is a non-negative duration measured in whole seconds. All
// aggregation happens on this type; decimal hours and "HH:MM:SS" strings are
// derived views. Keeping the canonical value integral avoids the compounding
// rounding error that per-row decimal storage would introduce.
type Interval struct {
	Seconds int64
}

func NewInterval(d time.Duration) Interval {
	return Interval{Seconds: int64(d / time.Second)}
}

func IntervalFromSeconds(s int64) Interval { return Interval{Seconds: s} }

func (iv Interval) Add(other Interval) Interval {
	return Interval{Seconds: iv.Seconds + other.Seconds}
}

func (iv Interval) Sub(other Interval) Interval {
	return Interval{Seconds: iv.Seconds - other.Seconds}
}

func (iv Interval) IsZero() bool     { return iv.Seconds == 0 }
func (iv Interval) IsPositive() bool { return iv.Seconds > 0 }

func (iv Interval) Duration() time.Duration {
	return time.Duration(iv.Seconds) * time.Second
}

// DecimalHours returns the interval as hours rounded to two decimal places.
// This is the storage/display representation required by payroll reports.
func (iv Interval) DecimalHours() decimal.Decimal {
	return decimal.NewFromInt(iv.Seconds).Div(decimal.NewFromInt(3600)).Round(2)
}

// =============================================================================
// HOURS - Derived components of a worked shift
// =============================================================================

// JustificationOvertime annotates a non-zero extra component.
const JustificationOvertime = "overtime"

// Hours is the normal/extra/discount breakdown of one worked shift. It is
// computed once, when the entry/exit pair closes (or when a combined record
// is created or corrected), and persisted on the record.
type Hours struct {
	Normal        Interval
	Extra         Interval
	Discount      Interval
	Total         Interval
	Justification string // JustificationOvertime when Extra > 0
}

// =============================================================================
// RECORD - One row of the punch ledger
// =============================================================================

// Record is a single punch ledger row. Invariant: at least one of EntryAt /
// ExitAt is set. For rotation (Special) shifts a record carries only one of
// the two; for Standard shifts a single record carries both.
type Record struct {
	ID           RecordID
	EmployeeID   EmployeeID
	UnitID       UnitID
	PunchedAt    time.Time // the combined punch instant; idempotency anchor
	EntryAt      *time.Time
	ExitAt       *time.Time
	BiometricRef string

	// Derived, persisted at creation/edit time. Nil until computed.
	Hours *Hours

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsOpenEntry reports whether this record is an entry still awaiting its exit.
func (r Record) IsOpenEntry() bool {
	return r.EntryAt != nil && r.ExitAt == nil
}

// IsExitOnly reports whether this record is the exit half of a rotation pair.
func (r Record) IsExitOnly() bool {
	return r.EntryAt == nil && r.ExitAt != nil
}

// =============================================================================
// MASTER DATA - Read-only collaborators
// =============================================================================

// Employee is master data owned by the external employee CRUD. The engine
// only ever reads it.
type Employee struct {
	ID           EmployeeID
	Name         string
	Registration string
	Position     string
	Email        string
	ShiftType    ShiftType
	UnitID       UnitID
	AdmissionAt  time.Time
	CreatedAt    time.Time
}

// Unit is a municipal work site (school, clinic, depot).
type Unit struct {
	ID        UnitID
	Name      string
	CreatedAt time.Time
}

// Leave is a vacation or absence span during which punching is rejected and
// missing days are justified in reports.
type Leave struct {
	ID         string
	EmployeeID EmployeeID
	Start      time.Time // inclusive, day granularity
	End        time.Time // inclusive
	Reason     string    // e.g. "vacation", "medical leave"
	CreatedAt  time.Time
}

// Covers reports whether the leave span includes the given day. The day is
// taken in its own location, so a late-evening punch east or west of UTC
// still lands on its local calendar date.
func (l Leave) Covers(day time.Time) bool {
	d := calendarDay(day)
	return !d.Before(calendarDay(l.Start)) && !d.After(calendarDay(l.End))
}

// calendarDay reduces an instant to its wall-clock date, normalized to UTC
// so dates from different locations compare by value.
func calendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
