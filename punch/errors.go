/*
errors.go - Centralized error taxonomy for the punch engine

PURPOSE:
  All engine errors in one place. Every failure is machine-distinguishable by
  kind (NotFound, Conflict, Validation, Internal) via errors.Is, and the
  structured types carry enough context for a caller to resolve the problem.

USAGE:
  if errors.Is(err, punch.ErrConflict) {
      var oc *punch.OpenEntryConflictError
      if errors.As(err, &oc) { ... oc.EntryAt ... }
  }

SEE ALSO:
  - machine.go: produces these errors
  - api/handlers.go: maps kinds to HTTP status codes
*/
package punch

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when an employee, unit or punch record is absent.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an entry event arrives while an open entry
	// already exists for the employee.
	ErrConflict = errors.New("conflict")

	// ErrValidation is returned for malformed or semantically invalid input:
	// missing fields, bad time strings, exit not after entry.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateInstant is returned by stores when a record with the same
	// (employee, punch instant) key already exists. The state machine treats
	// the replay idempotently for Standard shifts.
	ErrDuplicateInstant = errors.New("duplicate punch instant")

	// ErrInternal wraps storage and other unexpected failures. Full detail is
	// logged server-side; callers see a generic message.
	ErrInternal = errors.New("internal error")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// OpenEntryConflictError reports a second entry attempt while an entry is
// still open. It identifies the existing open entry so the caller (or an
// administrator) can resolve it.
type OpenEntryConflictError struct {
	EmployeeID EmployeeID
	RecordID   RecordID
	EntryAt    time.Time
}

func (e *OpenEntryConflictError) Error() string {
	return fmt.Sprintf("open entry already exists for employee %s at %s",
		e.EmployeeID, e.EntryAt.Format("2006-01-02 15:04"))
}

func (e *OpenEntryConflictError) Unwrap() error { return ErrConflict }

// NoOpenEntryError reports an exit event with nothing to pair against within
// the lookback window.
type NoOpenEntryError struct {
	EmployeeID EmployeeID
	Lookback   time.Duration
}

func (e *NoOpenEntryError) Error() string {
	return fmt.Sprintf("no open entry for employee %s within the last %s",
		e.EmployeeID, e.Lookback)
}

func (e *NoOpenEntryError) Unwrap() error { return ErrNotFound }

// ExitBeforeEntryError reports an exit instant at or before its paired entry.
// The engine rejects it; it never silently corrects.
type ExitBeforeEntryError struct {
	EntryAt time.Time
	ExitAt  time.Time
}

func (e *ExitBeforeEntryError) Error() string {
	return fmt.Sprintf("exit %s must be after entry %s",
		e.ExitAt.Format("2006-01-02 15:04"), e.EntryAt.Format("2006-01-02 15:04"))
}

func (e *ExitBeforeEntryError) Unwrap() error { return ErrValidation }

// OnLeaveError reports a punch attempt during a registered leave span.
type OnLeaveError struct {
	EmployeeID EmployeeID
	Reason     string
}

func (e *OnLeaveError) Error() string {
	return fmt.Sprintf("employee %s is on leave (%s) and cannot punch", e.EmployeeID, e.Reason)
}

func (e *OnLeaveError) Unwrap() error { return ErrValidation }

// ExitTooSoonError reports an exit punched before the minimum gap after its
// entry has elapsed (the terminals' anti-double-tap rule).
type ExitTooSoonError struct {
	Elapsed time.Duration
	MinGap  time.Duration
}

func (e *ExitTooSoonError) Error() string {
	return fmt.Sprintf("exit punched %s after entry; minimum gap is %s", e.Elapsed, e.MinGap)
}

func (e *ExitTooSoonError) Unwrap() error { return ErrValidation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

func internalf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInternal}, args...)...)
}

// IsClientError reports whether the error is attributable to the caller's
// input rather than the system.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrNotFound)
}
