/*
ledger.go - Persistence interfaces for the punch ledger and master data

PURPOSE:
  Defines what the engine needs from storage. Implementations live in
  store/sqlite (production) and store/memory (tests). The engine receives a
  Ledger by injection with an explicit open/close lifecycle owned by main;
  there is no package-level connection singleton.

TRANSACTIONALITY:
  The open-entry check and the subsequent insert are a classic check-then-act
  race. Recorder therefore runs them inside WithTx; implementations must make
  the callback atomic with respect to other writers (the sqlite store wraps a
  database transaction, the memory store snapshots and restores).

SEE ALSO:
  - machine.go:       the only writer
  - store/sqlite:     production implementation
  - store/memory:     test implementation
*/
package punch

import (
	"context"
	"time"
)

// =============================================================================
// LEDGER - Append-mostly punch record store
// =============================================================================

// Ledger persists punch records. Creation happens exactly once per accepted
// event; mutation is limited to the administrative correction endpoint.
type Ledger interface {
	// Append inserts a new record. An existing record with the same
	// (employee, punch instant) must surface as ErrDuplicateInstant so the
	// state machine can treat the replay idempotently.
	Append(ctx context.Context, r Record) error

	// Get returns the record or nil when absent.
	Get(ctx context.Context, id RecordID) (*Record, error)

	// FindByInstant returns the record with the exact (employee, punch
	// instant) key, or nil. Backs Standard-shift idempotence.
	FindByInstant(ctx context.Context, emp EmployeeID, at time.Time) (*Record, error)

	// OpenEntry returns the employee's open entry (an entry awaiting its
	// exit) whose entry instant is at or after since, or nil. Backed by the
	// open-entry marker, so at most one can exist per employee.
	OpenEntry(ctx context.Context, emp EmployeeID, since time.Time) (*Record, error)

	// CloseOpenEntry removes the employee's open-entry marker once an exit
	// has paired with it. No-op when no marker exists.
	CloseOpenEntry(ctx context.Context, emp EmployeeID) error

	// Update overwrites entry/exit times and derived hours of an existing
	// record. ErrNotFound when absent.
	Update(ctx context.Context, r Record) error

	// Delete removes a record. ErrNotFound when absent.
	Delete(ctx context.Context, id RecordID) error
}

// TxLedger extends Ledger with an atomic execution scope for the
// check-then-insert sequences in the state machine.
type TxLedger interface {
	Ledger

	// WithTx runs fn atomically. If fn returns an error nothing it wrote is
	// visible afterwards.
	WithTx(ctx context.Context, fn func(Ledger) error) error
}

// =============================================================================
// DIRECTORY - Read-only master data lookups
// =============================================================================

// Directory resolves employees, units and leave spans. It is owned by the
// master-data CRUD; the engine never writes through it.
type Directory interface {
	// Employee returns the employee or nil when absent.
	Employee(ctx context.Context, id EmployeeID) (*Employee, error)

	// Unit returns the unit or nil when absent.
	Unit(ctx context.Context, id UnitID) (*Unit, error)

	// LeaveOn returns the leave span covering the given day for the employee,
	// or nil when the employee is not on leave that day.
	LeaveOn(ctx context.Context, emp EmployeeID, day time.Time) (*Leave, error)
}
