// Package memory provides an in-memory Ledger and Directory for tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/muniworks/punch-engine/punch"
)

// =============================================================================
// MEMORY LEDGER - In-memory implementation (for testing/dev)
// =============================================================================

// Ledger implements punch.TxLedger on maps. It mirrors the sqlite store's
// invariants: unique (employee, punch instant) and at most one open entry
// per employee.
type Ledger struct {
	mu      sync.RWMutex
	records map[punch.RecordID]punch.Record
	open    map[punch.EmployeeID]punch.RecordID
	instant map[instantKey]punch.RecordID
}

type instantKey struct {
	Employee punch.EmployeeID
	At       int64 // unix seconds
}

func NewLedger() *Ledger {
	return &Ledger{
		records: make(map[punch.RecordID]punch.Record),
		open:    make(map[punch.EmployeeID]punch.RecordID),
		instant: make(map[instantKey]punch.RecordID),
	}
}

func (m *Ledger) Append(_ context.Context, r punch.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(r)
}

func (m *Ledger) appendLocked(r punch.Record) error {
	k := instantKey{Employee: r.EmployeeID, At: r.PunchedAt.Unix()}
	if _, exists := m.instant[k]; exists {
		return punch.ErrDuplicateInstant
	}

	if r.IsOpenEntry() {
		if openID, exists := m.open[r.EmployeeID]; exists {
			existing := m.records[openID]
			return &punch.OpenEntryConflictError{
				EmployeeID: r.EmployeeID,
				RecordID:   openID,
				EntryAt:    *existing.EntryAt,
			}
		}
		m.open[r.EmployeeID] = r.ID
	}

	m.records[r.ID] = r
	m.instant[k] = r.ID
	return nil
}

func (m *Ledger) Get(_ context.Context, id punch.RecordID) (*punch.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(id), nil
}

func (m *Ledger) getLocked(id punch.RecordID) *punch.Record {
	if r, ok := m.records[id]; ok {
		cp := r
		return &cp
	}
	return nil
}

func (m *Ledger) FindByInstant(_ context.Context, emp punch.EmployeeID, at time.Time) (*punch.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findByInstantLocked(emp, at), nil
}

func (m *Ledger) findByInstantLocked(emp punch.EmployeeID, at time.Time) *punch.Record {
	if id, ok := m.instant[instantKey{Employee: emp, At: at.Unix()}]; ok {
		return m.getLocked(id)
	}
	return nil
}

func (m *Ledger) OpenEntry(_ context.Context, emp punch.EmployeeID, since time.Time) (*punch.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.openEntryLocked(emp, since), nil
}

func (m *Ledger) openEntryLocked(emp punch.EmployeeID, since time.Time) *punch.Record {
	id, ok := m.open[emp]
	if !ok {
		return nil
	}
	r := m.records[id]
	if r.EntryAt == nil || r.EntryAt.Before(since) {
		return nil
	}
	cp := r
	return &cp
}

func (m *Ledger) CloseOpenEntry(_ context.Context, emp punch.EmployeeID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.open, emp)
	return nil
}

func (m *Ledger) Update(_ context.Context, r punch.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(r)
}

func (m *Ledger) updateLocked(r punch.Record) error {
	if _, ok := m.records[r.ID]; !ok {
		return fmt.Errorf("%w: punch record %s", punch.ErrNotFound, r.ID)
	}
	m.records[r.ID] = r
	if r.ExitAt != nil && m.open[r.EmployeeID] == r.ID {
		delete(m.open, r.EmployeeID)
	}
	return nil
}

func (m *Ledger) Delete(_ context.Context, id punch.RecordID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteLocked(id)
}

func (m *Ledger) deleteLocked(id punch.RecordID) error {
	r, ok := m.records[id]
	if !ok {
		return fmt.Errorf("%w: punch record %s", punch.ErrNotFound, id)
	}
	delete(m.records, id)
	delete(m.instant, instantKey{Employee: r.EmployeeID, At: r.PunchedAt.Unix()})
	if m.open[r.EmployeeID] == id {
		delete(m.open, r.EmployeeID)
	}
	return nil
}

// All returns every record, in no particular order. Test support.
func (m *Ledger) All() []punch.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]punch.Record, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	return out
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction, simulated with a snapshot that
// is restored on error.
func (m *Ledger) WithTx(_ context.Context, fn func(punch.Ledger) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()
	if err := fn(&txView{parent: m}); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

type ledgerSnapshot struct {
	records map[punch.RecordID]punch.Record
	open    map[punch.EmployeeID]punch.RecordID
	instant map[instantKey]punch.RecordID
}

func (m *Ledger) snapshot() ledgerSnapshot {
	s := ledgerSnapshot{
		records: make(map[punch.RecordID]punch.Record, len(m.records)),
		open:    make(map[punch.EmployeeID]punch.RecordID, len(m.open)),
		instant: make(map[instantKey]punch.RecordID, len(m.instant)),
	}
	for k, v := range m.records {
		s.records[k] = v
	}
	for k, v := range m.open {
		s.open[k] = v
	}
	for k, v := range m.instant {
		s.instant[k] = v
	}
	return s
}

func (m *Ledger) restore(s ledgerSnapshot) {
	m.records = s.records
	m.open = s.open
	m.instant = s.instant
}

// txView runs against the parent's maps while the parent holds the write
// lock; the snapshot in WithTx provides rollback.
type txView struct {
	parent *Ledger
}

func (tv *txView) Append(_ context.Context, r punch.Record) error {
	return tv.parent.appendLocked(r)
}

func (tv *txView) Get(_ context.Context, id punch.RecordID) (*punch.Record, error) {
	return tv.parent.getLocked(id), nil
}

func (tv *txView) FindByInstant(_ context.Context, emp punch.EmployeeID, at time.Time) (*punch.Record, error) {
	return tv.parent.findByInstantLocked(emp, at), nil
}

func (tv *txView) OpenEntry(_ context.Context, emp punch.EmployeeID, since time.Time) (*punch.Record, error) {
	return tv.parent.openEntryLocked(emp, since), nil
}

func (tv *txView) CloseOpenEntry(_ context.Context, emp punch.EmployeeID) error {
	delete(tv.parent.open, emp)
	return nil
}

func (tv *txView) Update(_ context.Context, r punch.Record) error {
	return tv.parent.updateLocked(r)
}

func (tv *txView) Delete(_ context.Context, id punch.RecordID) error {
	return tv.parent.deleteLocked(id)
}

// =============================================================================
// MEMORY DIRECTORY
// =============================================================================

// Directory implements punch.Directory on maps. Test support.
type Directory struct {
	mu        sync.RWMutex
	employees map[punch.EmployeeID]punch.Employee
	units     map[punch.UnitID]punch.Unit
	leaves    []punch.Leave
}

func NewDirectory() *Directory {
	return &Directory{
		employees: make(map[punch.EmployeeID]punch.Employee),
		units:     make(map[punch.UnitID]punch.Unit),
	}
}

func (d *Directory) PutEmployee(e punch.Employee) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.employees[e.ID] = e
}

func (d *Directory) PutUnit(u punch.Unit) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.units[u.ID] = u
}

func (d *Directory) PutLeave(l punch.Leave) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.leaves = append(d.leaves, l)
}

func (d *Directory) Employee(_ context.Context, id punch.EmployeeID) (*punch.Employee, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if e, ok := d.employees[id]; ok {
		cp := e
		return &cp, nil
	}
	return nil, nil
}

func (d *Directory) Unit(_ context.Context, id punch.UnitID) (*punch.Unit, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if u, ok := d.units[id]; ok {
		cp := u
		return &cp, nil
	}
	return nil, nil
}

func (d *Directory) LeaveOn(_ context.Context, emp punch.EmployeeID, day time.Time) (*punch.Leave, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, l := range d.leaves {
		if l.EmployeeID == emp && l.Covers(day) {
			cp := l
			return &cp, nil
		}
	}
	return nil, nil
}
