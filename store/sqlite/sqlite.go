/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements punch.TxLedger, punch.Directory and report.Source on SQLite,
  plus the minimal master-data CRUD the HTTP layer exposes. In production
  the same patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  punches:      the punch ledger (one row per accepted event)
  open_entries: at-most-one marker per employee with an entry awaiting exit
  employees:    master data (shift type, unit, admission date)
  units:        municipal work sites
  leaves:       vacation / absence spans

INVARIANTS ENFORCED IN SCHEMA:
  idx_unique_punch_instant: UNIQUE(employee_id, punched_at). A replayed
    Standard-shift event hits this and surfaces as ErrDuplicateInstant,
    which the state machine turns into an idempotent response.
  open_entries PRIMARY KEY(employee_id): a second open entry for the same
    employee is impossible at the storage level, whatever the callers do.
    The violation surfaces as OpenEntryConflictError naming the existing
    entry.

HOUR STORAGE:
  Derived hour components are persisted as "HH:MM:SS" strings and parsed
  back with punch.ParseInterval. The round trip is exact because intervals
  are whole seconds.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of WAL mode. WithTx holds the
  write lock for the whole callback; the transactional view therefore runs
  its reads directly on the *sql.Tx rather than re-entering the store.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

USAGE:
  store, err := sqlite.New("./data/punch.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - punch/ledger.go: interface definitions
  - store/memory: in-memory implementation for engine tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/muniworks/punch-engine/punch"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so the same statement
// helpers serve the store and its transactional view.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements the storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Punch ledger
	CREATE TABLE IF NOT EXISTS punches (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		unit_id TEXT NOT NULL,
		punched_at TEXT NOT NULL,
		entry_at TEXT,
		exit_at TEXT,
		biometric_ref TEXT,
		normal_hours TEXT,
		extra_hours TEXT,
		discount_hours TEXT,
		total_hours TEXT,
		justification TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- CRITICAL: one record per (employee, punch instant). Replays of the
	-- same biometric event must not create a second row.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_punch_instant
		ON punches(employee_id, punched_at);

	-- Monthly report query (hot path)
	CREATE INDEX IF NOT EXISTS idx_punches_employee_date
		ON punches(employee_id, punched_at);
	-- Unit daily listing
	CREATE INDEX IF NOT EXISTS idx_punches_unit_date
		ON punches(unit_id, punched_at DESC);

	-- CRITICAL: at most one open entry per employee. The PRIMARY KEY makes
	-- a concurrent double-entry lose the race inside the insert itself.
	CREATE TABLE IF NOT EXISTS open_entries (
		employee_id TEXT PRIMARY KEY,
		record_id TEXT NOT NULL,
		entry_at TEXT NOT NULL
	);

	-- Employees (master data)
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		registration TEXT NOT NULL,
		position TEXT,
		email TEXT,
		shift_type TEXT NOT NULL,
		unit_id TEXT NOT NULL,
		admission_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_employees_registration
		ON employees(registration);
	CREATE INDEX IF NOT EXISTS idx_employees_unit
		ON employees(unit_id);

	-- Units (work sites)
	CREATE TABLE IF NOT EXISTS units (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Leave spans (vacation, medical leave)
	CREATE TABLE IF NOT EXISTS leaves (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		reason TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leaves_employee
		ON leaves(employee_id, start_date, end_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LEDGER (punch.Ledger interface)
// =============================================================================

// Append inserts a punch record and, for an entry awaiting its exit, the
// open-entry marker. Constraint violations come back as typed errors.
func (s *Store) Append(ctx context.Context, r punch.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return appendRecord(ctx, s.db, r)
}

func appendRecord(ctx context.Context, db dbtx, r punch.Record) error {
	now := time.Now().UTC()
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := r.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	query := `
		INSERT INTO punches
		(id, employee_id, unit_id, punched_at, entry_at, exit_at, biometric_ref,
		 normal_hours, extra_hours, discount_hours, total_hours, justification,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	n, x, d, t, just := hoursColumns(r.Hours)
	_, err := db.ExecContext(ctx, query,
		string(r.ID),
		string(r.EmployeeID),
		string(r.UnitID),
		formatTime(r.PunchedAt),
		nullTime(r.EntryAt),
		nullTime(r.ExitAt),
		nullString(r.BiometricRef),
		n, x, d, t, just,
		formatTime(createdAt),
		formatTime(updatedAt),
	)
	if err != nil {
		if isConstraintError(err, "punches.punched_at") {
			return punch.ErrDuplicateInstant
		}
		return fmt.Errorf("failed to append punch: %w", err)
	}

	if r.IsOpenEntry() {
		_, err = db.ExecContext(ctx,
			`INSERT INTO open_entries (employee_id, record_id, entry_at) VALUES (?, ?, ?)`,
			string(r.EmployeeID), string(r.ID), formatTime(*r.EntryAt),
		)
		if err != nil {
			if isConstraintError(err, "open_entries.employee_id") {
				return openEntryConflict(ctx, db, r.EmployeeID)
			}
			return fmt.Errorf("failed to mark open entry: %w", err)
		}
	}

	return nil
}

// openEntryConflict loads the marker that won the race so the error can
// name the existing open entry.
func openEntryConflict(ctx context.Context, db dbtx, emp punch.EmployeeID) error {
	var recordID, entryAt string
	err := db.QueryRowContext(ctx,
		`SELECT record_id, entry_at FROM open_entries WHERE employee_id = ?`,
		string(emp),
	).Scan(&recordID, &entryAt)
	if err != nil {
		return fmt.Errorf("%w: open entry exists for employee %s", punch.ErrConflict, emp)
	}
	at, _ := parseTime(entryAt)
	return &punch.OpenEntryConflictError{
		EmployeeID: emp,
		RecordID:   punch.RecordID(recordID),
		EntryAt:    at,
	}
}

// Get returns the record or nil when absent.
func (s *Store) Get(ctx context.Context, id punch.RecordID) (*punch.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return getRecord(ctx, s.db, id)
}

func getRecord(ctx context.Context, db dbtx, id punch.RecordID) (*punch.Record, error) {
	records, err := queryRecords(ctx, db,
		selectPunch+` WHERE id = ?`, string(id))
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return &records[0], nil
}

// FindByInstant returns the record with the exact (employee, punch instant)
// key, or nil.
func (s *Store) FindByInstant(ctx context.Context, emp punch.EmployeeID, at time.Time) (*punch.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return findByInstant(ctx, s.db, emp, at)
}

func findByInstant(ctx context.Context, db dbtx, emp punch.EmployeeID, at time.Time) (*punch.Record, error) {
	records, err := queryRecords(ctx, db,
		selectPunch+` WHERE employee_id = ? AND punched_at = ?`,
		string(emp), formatTime(at))
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return &records[0], nil
}

// OpenEntry returns the employee's open entry at or after since, or nil.
func (s *Store) OpenEntry(ctx context.Context, emp punch.EmployeeID, since time.Time) (*punch.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return openEntry(ctx, s.db, emp, since)
}

func openEntry(ctx context.Context, db dbtx, emp punch.EmployeeID, since time.Time) (*punch.Record, error) {
	query := selectPunchPrefixed("p") + `
		FROM punches p
		JOIN open_entries oe ON oe.record_id = p.id
		WHERE oe.employee_id = ? AND oe.entry_at >= ?
	`
	rows, err := db.QueryContext(ctx, query, string(emp), formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("failed to query open entry: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	rec, err := scanRecord(rows)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CloseOpenEntry removes the employee's open-entry marker. No-op when no
// marker exists.
func (s *Store) CloseOpenEntry(ctx context.Context, emp punch.EmployeeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return closeOpenEntry(ctx, s.db, emp)
}

func closeOpenEntry(ctx context.Context, db dbtx, emp punch.EmployeeID) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM open_entries WHERE employee_id = ?`, string(emp))
	if err != nil {
		return fmt.Errorf("failed to close open entry: %w", err)
	}
	return nil
}

// Update overwrites entry/exit times and derived hours of an existing
// record. A record that gains an exit also loses its open-entry marker.
func (s *Store) Update(ctx context.Context, r punch.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return updateRecord(ctx, s.db, r)
}

func updateRecord(ctx context.Context, db dbtx, r punch.Record) error {
	updatedAt := r.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	query := `
		UPDATE punches
		SET entry_at = ?, exit_at = ?,
		    normal_hours = ?, extra_hours = ?, discount_hours = ?,
		    total_hours = ?, justification = ?, updated_at = ?
		WHERE id = ?
	`
	n, x, d, t, just := hoursColumns(r.Hours)
	res, err := db.ExecContext(ctx, query,
		nullTime(r.EntryAt), nullTime(r.ExitAt),
		n, x, d, t, just,
		formatTime(updatedAt),
		string(r.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update punch: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: punch record %s", punch.ErrNotFound, r.ID)
	}

	if r.ExitAt != nil {
		_, err = db.ExecContext(ctx,
			`DELETE FROM open_entries WHERE record_id = ?`, string(r.ID))
		if err != nil {
			return fmt.Errorf("failed to clear open entry: %w", err)
		}
	}
	return nil
}

// Delete removes a record and its open-entry marker if it carries one.
func (s *Store) Delete(ctx context.Context, id punch.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return deleteRecord(ctx, s.db, id)
}

func deleteRecord(ctx context.Context, db dbtx, id punch.RecordID) error {
	res, err := db.ExecContext(ctx, `DELETE FROM punches WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to delete punch: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: punch record %s", punch.ErrNotFound, id)
	}

	_, err = db.ExecContext(ctx,
		`DELETE FROM open_entries WHERE record_id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to clear open entry: %w", err)
	}
	return nil
}

// =============================================================================
// TRANSACTIONS (punch.TxLedger interface)
// =============================================================================

// WithTx executes fn within a database transaction. The write lock is held
// for the duration, so the transactional view must not call back into the
// store's locked methods.
func (s *Store) WithTx(ctx context.Context, fn func(punch.Ledger) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txLedger{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txLedger is the inside-a-transaction view of the ledger. All statements
// run on the *sql.Tx; locking belongs to WithTx.
type txLedger struct {
	tx *sql.Tx
}

func (t *txLedger) Append(ctx context.Context, r punch.Record) error {
	return appendRecord(ctx, t.tx, r)
}

func (t *txLedger) Get(ctx context.Context, id punch.RecordID) (*punch.Record, error) {
	return getRecord(ctx, t.tx, id)
}

func (t *txLedger) FindByInstant(ctx context.Context, emp punch.EmployeeID, at time.Time) (*punch.Record, error) {
	return findByInstant(ctx, t.tx, emp, at)
}

func (t *txLedger) OpenEntry(ctx context.Context, emp punch.EmployeeID, since time.Time) (*punch.Record, error) {
	return openEntry(ctx, t.tx, emp, since)
}

func (t *txLedger) CloseOpenEntry(ctx context.Context, emp punch.EmployeeID) error {
	return closeOpenEntry(ctx, t.tx, emp)
}

func (t *txLedger) Update(ctx context.Context, r punch.Record) error {
	return updateRecord(ctx, t.tx, r)
}

func (t *txLedger) Delete(ctx context.Context, id punch.RecordID) error {
	return deleteRecord(ctx, t.tx, id)
}

// =============================================================================
// RECORD QUERIES (report.Source interface, listing endpoints)
// =============================================================================

// RecordsByEmployeeMonth returns the employee's records in the month,
// ascending by punch instant.
func (s *Store) RecordsByEmployeeMonth(ctx context.Context, emp punch.EmployeeID, year int, month time.Month) ([]punch.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	return queryRecords(ctx, s.db,
		selectPunch+`
		WHERE employee_id = ? AND punched_at >= ? AND punched_at < ?
		ORDER BY punched_at ASC`,
		string(emp), formatTime(start), formatTime(end))
}

// RecordsByUnitDay returns a unit's records on one calendar day, newest
// first.
func (s *Store) RecordsByUnitDay(ctx context.Context, unit punch.UnitID, day time.Time) ([]punch.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	return queryRecords(ctx, s.db,
		selectPunch+`
		WHERE unit_id = ? AND punched_at >= ? AND punched_at < ?
		ORDER BY punched_at DESC`,
		string(unit), formatTime(start), formatTime(end))
}

// RecordFilter narrows ListRecords. Zero fields are ignored.
type RecordFilter struct {
	EmployeeID punch.EmployeeID
	UnitID     punch.UnitID
	From       time.Time
	To         time.Time
}

// ListRecords returns records matching the filter, ascending by punch
// instant.
func (s *Store) ListRecords(ctx context.Context, f RecordFilter) ([]punch.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectPunch + ` WHERE 1=1`
	var args []any
	if f.EmployeeID != "" {
		query += ` AND employee_id = ?`
		args = append(args, string(f.EmployeeID))
	}
	if f.UnitID != "" {
		query += ` AND unit_id = ?`
		args = append(args, string(f.UnitID))
	}
	if !f.From.IsZero() {
		query += ` AND punched_at >= ?`
		args = append(args, formatTime(f.From))
	}
	if !f.To.IsZero() {
		query += ` AND punched_at <= ?`
		args = append(args, formatTime(f.To))
	}
	query += ` ORDER BY punched_at ASC`

	return queryRecords(ctx, s.db, query, args...)
}

const selectPunch = `
	SELECT id, employee_id, unit_id, punched_at, entry_at, exit_at, biometric_ref,
	       normal_hours, extra_hours, discount_hours, total_hours, justification,
	       created_at, updated_at
	FROM punches`

func selectPunchPrefixed(alias string) string {
	cols := []string{
		"id", "employee_id", "unit_id", "punched_at", "entry_at", "exit_at",
		"biometric_ref", "normal_hours", "extra_hours", "discount_hours",
		"total_hours", "justification", "created_at", "updated_at",
	}
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return "SELECT " + strings.Join(cols, ", ")
}

func queryRecords(ctx context.Context, db dbtx, query string, args ...any) ([]punch.Record, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query punches: %w", err)
	}
	defer rows.Close()

	var records []punch.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(rows *sql.Rows) (punch.Record, error) {
	var (
		r                        punch.Record
		id, empID, unitID        string
		punchedAt                string
		entryAt, exitAt          sql.NullString
		biometricRef             sql.NullString
		normal, extra            sql.NullString
		discount, total          sql.NullString
		justification            sql.NullString
		createdAtStr, updatedStr string
	)

	err := rows.Scan(&id, &empID, &unitID, &punchedAt, &entryAt, &exitAt,
		&biometricRef, &normal, &extra, &discount, &total, &justification,
		&createdAtStr, &updatedStr)
	if err != nil {
		return r, fmt.Errorf("failed to scan punch: %w", err)
	}

	r.ID = punch.RecordID(id)
	r.EmployeeID = punch.EmployeeID(empID)
	r.UnitID = punch.UnitID(unitID)
	if r.PunchedAt, err = parseTime(punchedAt); err != nil {
		return r, err
	}
	if r.EntryAt, err = parseNullTime(entryAt); err != nil {
		return r, err
	}
	if r.ExitAt, err = parseNullTime(exitAt); err != nil {
		return r, err
	}
	r.BiometricRef = biometricRef.String

	if total.Valid {
		hours, err := scanHours(normal.String, extra.String, discount.String,
			total.String, justification.String)
		if err != nil {
			return r, err
		}
		r.Hours = hours
	}

	if r.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return r, err
	}
	if r.UpdatedAt, err = parseTime(updatedStr); err != nil {
		return r, err
	}
	return r, nil
}

func scanHours(normal, extra, discount, total, justification string) (*punch.Hours, error) {
	n, err := punch.ParseInterval(normal)
	if err != nil {
		return nil, fmt.Errorf("bad normal_hours %q: %w", normal, err)
	}
	x, err := punch.ParseInterval(extra)
	if err != nil {
		return nil, fmt.Errorf("bad extra_hours %q: %w", extra, err)
	}
	d, err := punch.ParseInterval(discount)
	if err != nil {
		return nil, fmt.Errorf("bad discount_hours %q: %w", discount, err)
	}
	t, err := punch.ParseInterval(total)
	if err != nil {
		return nil, fmt.Errorf("bad total_hours %q: %w", total, err)
	}
	return &punch.Hours{
		Normal:        n,
		Extra:         x,
		Discount:      d,
		Total:         t,
		Justification: justification,
	}, nil
}

func hoursColumns(h *punch.Hours) (normal, extra, discount, total, justification sql.NullString) {
	if h == nil {
		return
	}
	normal = sql.NullString{String: h.Normal.String(), Valid: true}
	extra = sql.NullString{String: h.Extra.String(), Valid: true}
	discount = sql.NullString{String: h.Discount.String(), Valid: true}
	total = sql.NullString{String: h.Total.String(), Valid: true}
	justification = nullString(h.Justification)
	return
}

// =============================================================================
// EMPLOYEES (punch.Directory, report.Source, master-data CRUD)
// =============================================================================

// SaveEmployee inserts or replaces an employee.
func (s *Store) SaveEmployee(ctx context.Context, emp punch.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := emp.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO employees
		(id, name, registration, position, email, shift_type, unit_id, admission_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			registration = excluded.registration,
			position = excluded.position,
			email = excluded.email,
			shift_type = excluded.shift_type,
			unit_id = excluded.unit_id,
			admission_at = excluded.admission_at
	`
	_, err := s.db.ExecContext(ctx, query,
		string(emp.ID), emp.Name, emp.Registration, emp.Position, emp.Email,
		string(emp.ShiftType), string(emp.UnitID),
		formatTime(emp.AdmissionAt), formatTime(createdAt),
	)
	if err != nil {
		if isConstraintError(err, "employees.registration") {
			return fmt.Errorf("%w: registration %s already in use", punch.ErrConflict, emp.Registration)
		}
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

// Employee returns the employee or nil when absent.
func (s *Store) Employee(ctx context.Context, id punch.EmployeeID) (*punch.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	employees, err := s.queryEmployees(ctx, selectEmployee+` WHERE id = ?`, string(id))
	if err != nil || len(employees) == 0 {
		return nil, err
	}
	return &employees[0], nil
}

// EmployeesByUnit returns a unit's employees.
func (s *Store) EmployeesByUnit(ctx context.Context, id punch.UnitID) ([]punch.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryEmployees(ctx,
		selectEmployee+` WHERE unit_id = ? ORDER BY name ASC`, string(id))
}

// ListEmployees returns all employees, ascending by name.
func (s *Store) ListEmployees(ctx context.Context) ([]punch.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryEmployees(ctx, selectEmployee+` ORDER BY name ASC`)
}

// DeleteEmployee removes an employee.
func (s *Store) DeleteEmployee(ctx context.Context, id punch.EmployeeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM employees WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to delete employee: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: employee %s", punch.ErrNotFound, id)
	}
	return nil
}

const selectEmployee = `
	SELECT id, name, registration, position, email, shift_type, unit_id, admission_at, created_at
	FROM employees`

func (s *Store) queryEmployees(ctx context.Context, query string, args ...any) ([]punch.Employee, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []punch.Employee
	for rows.Next() {
		var (
			e                        punch.Employee
			id, shiftType, unitID    string
			position, email          sql.NullString
			admissionStr, createdStr string
		)
		if err := rows.Scan(&id, &e.Name, &e.Registration, &position, &email,
			&shiftType, &unitID, &admissionStr, &createdStr); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		e.ID = punch.EmployeeID(id)
		e.Position = position.String
		e.Email = email.String
		e.ShiftType = punch.ShiftType(shiftType)
		e.UnitID = punch.UnitID(unitID)
		if e.AdmissionAt, err = parseTime(admissionStr); err != nil {
			return nil, err
		}
		if e.CreatedAt, err = parseTime(createdStr); err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// =============================================================================
// UNITS
// =============================================================================

// SaveUnit inserts or replaces a unit.
func (s *Store) SaveUnit(ctx context.Context, u punch.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO units (id, name, created_at) VALUES (?, ?, ?)`,
		string(u.ID), u.Name, formatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save unit: %w", err)
	}
	return nil
}

// Unit returns the unit or nil when absent.
func (s *Store) Unit(ctx context.Context, id punch.UnitID) (*punch.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		u          punch.Unit
		uid        string
		createdStr string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM units WHERE id = ?`, string(id),
	).Scan(&uid, &u.Name, &createdStr)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query unit: %w", err)
	}
	u.ID = punch.UnitID(uid)
	if u.CreatedAt, err = parseTime(createdStr); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUnits returns all units, ascending by name.
func (s *Store) ListUnits(ctx context.Context) ([]punch.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM units ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query units: %w", err)
	}
	defer rows.Close()

	var units []punch.Unit
	for rows.Next() {
		var (
			u          punch.Unit
			id         string
			createdStr string
		)
		if err := rows.Scan(&id, &u.Name, &createdStr); err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		u.ID = punch.UnitID(id)
		if u.CreatedAt, err = parseTime(createdStr); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// DeleteUnit removes a unit.
func (s *Store) DeleteUnit(ctx context.Context, id punch.UnitID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM units WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to delete unit: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: unit %s", punch.ErrNotFound, id)
	}
	return nil
}

// =============================================================================
// LEAVES
// =============================================================================

// SaveLeave inserts or replaces a leave span. Dates are stored at day
// granularity.
func (s *Store) SaveLeave(ctx context.Context, l punch.Leave) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := l.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO leaves (id, employee_id, start_date, end_date, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		l.ID, string(l.EmployeeID),
		formatDate(l.Start), formatDate(l.End),
		l.Reason, formatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save leave: %w", err)
	}
	return nil
}

// LeaveOn returns the leave span covering the given day, or nil.
func (s *Store) LeaveOn(ctx context.Context, emp punch.EmployeeID, day time.Time) (*punch.Leave, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d := formatDate(day)
	leaves, err := s.queryLeaves(ctx,
		selectLeave+` WHERE employee_id = ? AND start_date <= ? AND end_date >= ?`,
		string(emp), d, d)
	if err != nil || len(leaves) == 0 {
		return nil, err
	}
	return &leaves[0], nil
}

// LeavesInRange returns leave spans overlapping [from, to].
func (s *Store) LeavesInRange(ctx context.Context, emp punch.EmployeeID, from, to time.Time) ([]punch.Leave, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryLeaves(ctx,
		selectLeave+` WHERE employee_id = ? AND start_date <= ? AND end_date >= ? ORDER BY start_date ASC`,
		string(emp), formatDate(to), formatDate(from))
}

// ListLeaves returns an employee's leave spans, ascending by start date.
func (s *Store) ListLeaves(ctx context.Context, emp punch.EmployeeID) ([]punch.Leave, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryLeaves(ctx,
		selectLeave+` WHERE employee_id = ? ORDER BY start_date ASC`, string(emp))
}

// DeleteLeave removes a leave span.
func (s *Store) DeleteLeave(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM leaves WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete leave: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: leave %s", punch.ErrNotFound, id)
	}
	return nil
}

const selectLeave = `
	SELECT id, employee_id, start_date, end_date, reason, created_at
	FROM leaves`

func (s *Store) queryLeaves(ctx context.Context, query string, args ...any) ([]punch.Leave, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaves: %w", err)
	}
	defer rows.Close()

	var leaves []punch.Leave
	for rows.Next() {
		var (
			l                punch.Leave
			empID            string
			startStr, endStr string
			createdStr       string
		)
		if err := rows.Scan(&l.ID, &empID, &startStr, &endStr, &l.Reason, &createdStr); err != nil {
			return nil, fmt.Errorf("failed to scan leave: %w", err)
		}
		l.EmployeeID = punch.EmployeeID(empID)
		if l.Start, err = parseDate(startStr); err != nil {
			return nil, err
		}
		if l.End, err = parseDate(endStr); err != nil {
			return nil, err
		}
		if l.CreatedAt, err = parseTime(createdStr); err != nil {
			return nil, err
		}
		leaves = append(leaves, l)
	}
	return leaves, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

// Times are stored as UTC RFC3339 strings so lexicographic comparison in
// SQL matches chronological order.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad stored time %q: %w", s, err)
	}
	return t, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad stored date %q: %w", s, err)
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// isConstraintError matches a UNIQUE violation on a specific column.
// SQLite reports violations as "UNIQUE constraint failed: table.column[, ...]".
func isConstraintError(err error, column string) bool {
	return err != nil &&
		strings.Contains(err.Error(), "UNIQUE constraint failed") &&
		strings.Contains(err.Error(), column)
}
