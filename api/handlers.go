/*
handlers.go - HTTP API handlers for the punch engine

PURPOSE:
  Exposes the punch reconciliation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Punches:
    POST   /api/punches                    Record a punch event
    PUT    /api/punches/{id}               Correct entry/exit times
    DELETE /api/punches/{id}               Delete a record
    GET    /api/punches                    Employee-month raw records

  Reports:
    GET    /api/reports/employee           Per-day rows + monthly totals
    GET    /api/reports/unit               Whole unit, grouped per employee
    GET    /api/units/{id}/punches/today   Today's punches at a unit

  Master data:
    POST/GET /api/employees                Minimal employee CRUD
    POST/GET /api/units                    Minimal unit CRUD
    POST/GET /api/employees/{id}/leaves    Leave spans

REQUEST FLOW:
  1. Parse HTTP request
  2. Run struct validation (go-playground/validator)
  3. Call domain logic (recorder, aggregator, store)
  4. Serialize response
  5. Map error kinds to status codes

ERROR HANDLING:
  - 400: Validation errors, invalid input
  - 404: Employee, unit or record not found
  - 409: Open-entry conflict
  - 500: Internal errors (full detail logged, generic message returned)

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - punch/errors.go: the error taxonomy being mapped
*/
package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/muniworks/punch-engine/punch"
	"github.com/muniworks/punch-engine/report"
	"github.com/muniworks/punch-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Recorder *punch.Recorder
	Reports  *report.Aggregator
	Logger   *logrus.Logger

	validate *validator.Validate
	now      func() time.Time
}

// NewHandler wires the handlers to their collaborators.
func NewHandler(store *sqlite.Store, recorder *punch.Recorder, reports *report.Aggregator, logger *logrus.Logger) *Handler {
	return &Handler{
		Store:    store,
		Recorder: recorder,
		Reports:  reports,
		Logger:   logger,
		validate: validator.New(),
		now:      time.Now,
	}
}

// =============================================================================
// PUNCH HANDLERS
// =============================================================================

// CreatePunch records one punch event.
// POST /api/punches
func (h *Handler) CreatePunch(w http.ResponseWriter, r *http.Request) {
	var req CreatePunchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}
	if req.EntryTime == "" && req.ExitTime == "" {
		writeError(w, http.StatusBadRequest, "entry_time or exit_time is required", nil)
		return
	}

	day := h.now()
	if req.Date != "" {
		day, _ = time.Parse("2006-01-02", req.Date)
	}

	ev := punch.Event{
		EmployeeID:   punch.EmployeeID(req.EmployeeID),
		UnitID:       punch.UnitID(req.UnitID),
		BiometricRef: req.BiometricRef,
	}
	if req.EntryTime != "" {
		entry, err := punch.ParseClock(req.EntryTime, day)
		if err != nil {
			h.writeDomainError(w, "record punch", err)
			return
		}
		ev.Entry = &entry
	}
	if req.ExitTime != "" {
		exit, err := punch.ParseClock(req.ExitTime, day)
		if err != nil {
			h.writeDomainError(w, "record punch", err)
			return
		}
		ev.Exit = &exit
	}
	if req.TotalHours != nil {
		hours := punch.Hours{
			Total:         req.TotalHours.Value,
			Justification: req.Justification,
		}
		if req.NormalHours != nil {
			hours.Normal = req.NormalHours.Value
		}
		if req.ExtraHours != nil {
			hours.Extra = req.ExtraHours.Value
		}
		if req.DiscountHours != nil {
			hours.Discount = req.DiscountHours.Value
		}
		ev.Hours = &hours
	}

	res, err := h.Recorder.Record(r.Context(), ev)
	if err != nil {
		h.writeDomainError(w, "record punch", err)
		return
	}

	dto := PunchResultDTO{
		Outcome: string(res.Outcome),
		Punch:   toPunchDTO(res.Record),
	}
	dto.Punch.EmployeeName = res.Employee.Name
	dto.Punch.UnitName = res.Unit.Name
	dto.Punch.ShiftType = string(res.Employee.ShiftType)
	if res.PairedEntry != nil {
		dto.PairedEntry = &PairedEntryDTO{
			RecordID:  string(res.PairedEntry.ID),
			Date:      res.PairedEntry.EntryAt.Format("2006-01-02"),
			EntryTime: res.PairedEntry.EntryAt.Format("15:04:05"),
		}
		dto.Elapsed = res.Elapsed.String()
	}

	// An idempotent replay answers 200; a genuine write answers 201.
	status := http.StatusCreated
	if res.Outcome == punch.OutcomeDuplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, dto)
}

// CorrectPunch applies an administrative edit to a record's times.
// PUT /api/punches/{id}
func (h *Handler) CorrectPunch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req CorrectPunchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	rec, err := h.Recorder.Correct(r.Context(), punch.RecordID(id), req.EntryTime, req.ExitTime)
	if err != nil {
		h.writeDomainError(w, "correct punch", err)
		return
	}
	writeJSON(w, http.StatusOK, toPunchDTO(*rec))
}

// DeletePunch removes a record.
// DELETE /api/punches/{id}
func (h *Handler) DeletePunch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Recorder.Remove(r.Context(), punch.RecordID(id)); err != nil {
		h.writeDomainError(w, "delete punch", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPunches returns an employee's raw records for a month.
// GET /api/punches?employee_id=&month=&year=
func (h *Handler) ListPunches(w http.ResponseWriter, r *http.Request) {
	empID := r.URL.Query().Get("employee_id")
	if empID == "" {
		writeError(w, http.StatusBadRequest, "employee_id is required", nil)
		return
	}
	year, month, ok := h.yearMonth(w, r)
	if !ok {
		return
	}

	records, err := h.Store.RecordsByEmployeeMonth(r.Context(), punch.EmployeeID(empID), year, month)
	if err != nil {
		h.writeDomainError(w, "list punches", err)
		return
	}

	dtos := make([]PunchDTO, 0, len(records))
	for _, rec := range records {
		dtos = append(dtos, toPunchDTO(rec))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// EmployeeReport returns an employee's monthly report.
// GET /api/reports/employee?employee_id=&month=&year=
func (h *Handler) EmployeeReport(w http.ResponseWriter, r *http.Request) {
	empID := r.URL.Query().Get("employee_id")
	if empID == "" {
		writeError(w, http.StatusBadRequest, "employee_id is required", nil)
		return
	}
	year, month, ok := h.yearMonth(w, r)
	if !ok {
		return
	}

	rep, err := h.Reports.EmployeeMonth(r.Context(), punch.EmployeeID(empID), year, month)
	if err != nil {
		h.writeDomainError(w, "employee report", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeReportDTO(*rep))
}

// UnitReport returns the monthly report of every employee at a unit.
// GET /api/reports/unit?unit_id=&month=&year=
func (h *Handler) UnitReport(w http.ResponseWriter, r *http.Request) {
	unitID := r.URL.Query().Get("unit_id")
	if unitID == "" {
		writeError(w, http.StatusBadRequest, "unit_id is required", nil)
		return
	}
	year, month, ok := h.yearMonth(w, r)
	if !ok {
		return
	}

	rep, err := h.Reports.UnitMonth(r.Context(), punch.UnitID(unitID), year, month)
	if err != nil {
		h.writeDomainError(w, "unit report", err)
		return
	}

	dto := UnitReportDTO{
		UnitID:    string(rep.Unit.ID),
		UnitName:  rep.Unit.Name,
		Year:      rep.Year,
		Month:     int(rep.Month),
		Employees: make([]EmployeeReportDTO, 0, len(rep.Employees)),
	}
	for _, er := range rep.Employees {
		dto.Employees = append(dto.Employees, toEmployeeReportDTO(er))
	}
	writeJSON(w, http.StatusOK, dto)
}

// UnitToday lists today's punches at a unit, newest first.
// GET /api/units/{id}/punches/today
func (h *Handler) UnitToday(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rep, err := h.Reports.UnitDay(r.Context(), punch.UnitID(id), h.now())
	if err != nil {
		h.writeDomainError(w, "unit today", err)
		return
	}

	dto := UnitDayDTO{
		UnitID:   string(rep.Unit.ID),
		UnitName: rep.Unit.Name,
		Date:     rep.Day.Format("2006-01-02"),
		Punches:  make([]PunchDTO, 0, len(rep.Rows)),
	}
	for _, row := range rep.Rows {
		p := toPunchDTO(row.Record)
		p.EmployeeName = row.EmployeeName
		p.UnitName = rep.Unit.Name
		dto.Punches = append(dto.Punches, p)
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// MASTER DATA HANDLERS
// =============================================================================

// CreateEmployee registers an employee.
// POST /api/employees
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}
	if !punch.Known(punch.ShiftType(req.ShiftType)) {
		writeError(w, http.StatusBadRequest, "Unknown shift_type "+req.ShiftType, nil)
		return
	}

	admission, _ := time.Parse("2006-01-02", req.AdmissionAt)
	emp := punch.Employee{
		ID:           punch.EmployeeID(orNewID(req.ID, "emp")),
		Name:         req.Name,
		Registration: req.Registration,
		Position:     req.Position,
		Email:        req.Email,
		ShiftType:    punch.ShiftType(req.ShiftType),
		UnitID:       punch.UnitID(req.UnitID),
		AdmissionAt:  admission,
		CreatedAt:    h.now(),
	}
	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		h.writeDomainError(w, "create employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// ListEmployees returns all employees.
// GET /api/employees
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		h.writeDomainError(w, "list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, 0, len(employees))
	for _, e := range employees {
		dtos = append(dtos, toEmployeeDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
// GET /api/employees/{id}
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	emp, err := h.Store.Employee(r.Context(), punch.EmployeeID(id))
	if err != nil {
		h.writeDomainError(w, "get employee", err)
		return
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// DeleteEmployee removes an employee.
// DELETE /api/employees/{id}
func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Store.DeleteEmployee(r.Context(), punch.EmployeeID(id)); err != nil {
		h.writeDomainError(w, "delete employee", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateUnit registers a unit.
// POST /api/units
func (h *Handler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	var req CreateUnitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	unit := punch.Unit{
		ID:        punch.UnitID(orNewID(req.ID, "unit")),
		Name:      req.Name,
		CreatedAt: h.now(),
	}
	if err := h.Store.SaveUnit(r.Context(), unit); err != nil {
		h.writeDomainError(w, "create unit", err)
		return
	}
	writeJSON(w, http.StatusCreated, UnitDTO{
		ID:        string(unit.ID),
		Name:      unit.Name,
		CreatedAt: unit.CreatedAt.Format(time.RFC3339),
	})
}

// ListUnits returns all units.
// GET /api/units
func (h *Handler) ListUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.Store.ListUnits(r.Context())
	if err != nil {
		h.writeDomainError(w, "list units", err)
		return
	}

	dtos := make([]UnitDTO, 0, len(units))
	for _, u := range units {
		dtos = append(dtos, UnitDTO{
			ID:        string(u.ID),
			Name:      u.Name,
			CreatedAt: u.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// DeleteUnit removes a unit.
// DELETE /api/units/{id}
func (h *Handler) DeleteUnit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Store.DeleteUnit(r.Context(), punch.UnitID(id)); err != nil {
		h.writeDomainError(w, "delete unit", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateLeave registers a leave span for an employee.
// POST /api/employees/{id}/leaves
func (h *Handler) CreateLeave(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req CreateLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	emp, err := h.Store.Employee(r.Context(), punch.EmployeeID(id))
	if err != nil {
		h.writeDomainError(w, "create leave", err)
		return
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}

	start, _ := time.Parse("2006-01-02", req.Start)
	end, _ := time.Parse("2006-01-02", req.End)
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end_date must not precede start_date", nil)
		return
	}

	leave := punch.Leave{
		ID:         orNewID("", "leave"),
		EmployeeID: emp.ID,
		Start:      start,
		End:        end,
		Reason:     req.Reason,
		CreatedAt:  h.now(),
	}
	if err := h.Store.SaveLeave(r.Context(), leave); err != nil {
		h.writeDomainError(w, "create leave", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveDTO(leave))
}

// ListLeaves returns an employee's leave spans.
// GET /api/employees/{id}/leaves
func (h *Handler) ListLeaves(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	leaves, err := h.Store.ListLeaves(r.Context(), punch.EmployeeID(id))
	if err != nil {
		h.writeDomainError(w, "list leaves", err)
		return
	}

	dtos := make([]LeaveDTO, 0, len(leaves))
	for _, l := range leaves {
		dtos = append(dtos, toLeaveDTO(l))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// DeleteLeave removes a leave span.
// DELETE /api/employees/{id}/leaves/{leaveID}
func (h *Handler) DeleteLeave(w http.ResponseWriter, r *http.Request) {
	leaveID := chi.URLParam(r, "leaveID")

	if err := h.Store.DeleteLeave(r.Context(), leaveID); err != nil {
		h.writeDomainError(w, "delete leave", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toLeaveDTO(l punch.Leave) LeaveDTO {
	return LeaveDTO{
		ID:         l.ID,
		EmployeeID: string(l.EmployeeID),
		Start:      l.Start.Format("2006-01-02"),
		End:        l.End.Format("2006-01-02"),
		Reason:     l.Reason,
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// yearMonth reads and validates the month/year query parameters.
func (h *Handler) yearMonth(w http.ResponseWriter, r *http.Request) (int, time.Month, bool) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 2000 || year > 2100 {
		writeError(w, http.StatusBadRequest, "year is required (e.g. 2025)", nil)
		return 0, 0, false
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "month is required (1-12)", nil)
		return 0, 0, false
	}
	return year, time.Month(month), true
}

// writeDomainError maps engine error kinds to HTTP status codes. Client
// errors echo their message; internal errors log full detail and answer
// with a generic message.
func (h *Handler) writeDomainError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, punch.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, punch.ErrConflict):
		writeError(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, punch.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		h.Logger.WithFields(logrus.Fields{
			"op":    op,
			"error": err.Error(),
		}).Error("request failed")
		writeError(w, http.StatusInternalServerError, "Internal error", nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// orNewID keeps a caller-provided id or mints a random one.
func orNewID(id, prefix string) string {
	if id != "" {
		return id
	}
	var b [8]byte
	rand.Read(b[:])
	return prefix + "-" + hex.EncodeToString(b[:])
}
