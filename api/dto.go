/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

INTERVAL FIELDS:
  Hour components are accepted in two shapes, matching what the punch
  terminals historically sent:
    "08:00:00"                          plain string
    {"hours": 8, "minutes": 0}          parts object
  Responses always use the "HH:MM:SS" string plus a two-decimal hour value.

VALIDATION:
  Request types carry go-playground/validator struct tags; handlers run the
  validator before touching domain logic. Semantic validation (exit after
  entry, open-entry conflicts) belongs to the engine, not the DTOs.

SEE ALSO:
  - handlers.go: uses these types
  - punch/interval.go: the string/parts normalization
*/
package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/muniworks/punch-engine/punch"
	"github.com/muniworks/punch-engine/report"
)

// =============================================================================
// PUNCH REQUESTS
// =============================================================================

// CreatePunchRequest is the body of POST /api/punches. At least one of
// entry_time / exit_time must be present; date defaults to today.
type CreatePunchRequest struct {
	EmployeeID   string `json:"employee_id" validate:"required"`
	UnitID       string `json:"unit_id" validate:"required"`
	Date         string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EntryTime    string `json:"entry_time,omitempty"`
	ExitTime     string `json:"exit_time,omitempty"`
	BiometricRef string `json:"biometric_ref,omitempty"`

	// Pre-computed hour components from legacy terminals. When total_hours
	// is present the calculator is skipped and these are stored as-is.
	NormalHours   *IntervalField `json:"normal_hours,omitempty"`
	ExtraHours    *IntervalField `json:"extra_hours,omitempty"`
	DiscountHours *IntervalField `json:"discount_hours,omitempty"`
	TotalHours    *IntervalField `json:"total_hours,omitempty"`
	Justification string         `json:"justification,omitempty"`
}

// CorrectPunchRequest is the body of PUT /api/punches/{id}.
type CorrectPunchRequest struct {
	EntryTime string `json:"entry_time" validate:"required"`
	ExitTime  string `json:"exit_time" validate:"required"`
}

// IntervalField accepts an interval as either a "HH:MM:SS" string or a
// {hours, minutes, seconds} object.
type IntervalField struct {
	Value punch.Interval
}

func (f *IntervalField) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		iv, err := punch.ParseInterval(s)
		if err != nil {
			return err
		}
		f.Value = iv
		return nil
	}

	var parts punch.IntervalParts
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("interval must be a \"HH:MM:SS\" string or a parts object")
	}
	f.Value = punch.IntervalFromParts(parts)
	return nil
}

func (f IntervalField) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Value.String())
}

// =============================================================================
// PUNCH RESPONSES
// =============================================================================

// HoursDTO is the derived hour breakdown of a record.
type HoursDTO struct {
	Normal        string  `json:"normal"`
	Extra         string  `json:"extra"`
	Discount      string  `json:"discount"`
	Total         string  `json:"total"`
	NormalDec     float64 `json:"normal_decimal"`
	ExtraDec      float64 `json:"extra_decimal"`
	DiscountDec   float64 `json:"discount_decimal"`
	Justification string  `json:"justification,omitempty"`
}

// PunchDTO represents a ledger record in API responses, denormalized with
// employee and unit names when available.
type PunchDTO struct {
	ID           string    `json:"id"`
	EmployeeID   string    `json:"employee_id"`
	EmployeeName string    `json:"employee_name,omitempty"`
	UnitID       string    `json:"unit_id"`
	UnitName     string    `json:"unit_name,omitempty"`
	ShiftType    string    `json:"shift_type,omitempty"`
	Date         string    `json:"date"`
	EntryTime    *string   `json:"entry_time"`
	ExitTime     *string   `json:"exit_time"`
	BiometricRef string    `json:"biometric_ref,omitempty"`
	Hours        *HoursDTO `json:"hours,omitempty"`
	CreatedAt    string    `json:"created_at,omitempty"`
}

// PairedEntryDTO identifies the entry an exit was matched against.
type PairedEntryDTO struct {
	RecordID  string `json:"record_id"`
	Date      string `json:"date"`
	EntryTime string `json:"entry_time"`
}

// PunchResultDTO is the response of POST /api/punches.
type PunchResultDTO struct {
	Outcome     string          `json:"outcome"`
	Punch       PunchDTO        `json:"punch"`
	PairedEntry *PairedEntryDTO `json:"paired_entry,omitempty"`
	Elapsed     string          `json:"elapsed,omitempty"`
}

// =============================================================================
// REPORT RESPONSES
// =============================================================================

// DayRowDTO is one calendar day of a monthly report.
type DayRowDTO struct {
	Date          string  `json:"date"`
	Weekday       string  `json:"weekday"`
	EntryTime     *string `json:"entry_time"`
	ExitTime      *string `json:"exit_time"`
	Normal        string  `json:"normal"`
	Extra         string  `json:"extra"`
	Discount      string  `json:"discount"`
	Total         string  `json:"total"`
	Expected      bool    `json:"expected"`
	Absent        bool    `json:"absent"`
	Justification string  `json:"justification,omitempty"`
}

// TotalsDTO is the period summary of a monthly report.
type TotalsDTO struct {
	Normal           string  `json:"normal"`
	Extra            string  `json:"extra"`
	Discount         string  `json:"discount"`
	AdjustedExtra    string  `json:"adjusted_extra"`
	AdjustedDiscount string  `json:"adjusted_discount"`
	NormalDec        float64 `json:"normal_decimal"`
	ExtraDec         float64 `json:"extra_decimal"`
	DiscountDec      float64 `json:"discount_decimal"`
}

// EmployeeReportDTO is the response of GET /api/reports/employee.
type EmployeeReportDTO struct {
	EmployeeID   string      `json:"employee_id"`
	EmployeeName string      `json:"employee_name"`
	Registration string      `json:"registration"`
	ShiftType    string      `json:"shift_type"`
	UnitName     string      `json:"unit_name,omitempty"`
	Year         int         `json:"year"`
	Month        int         `json:"month"`
	Days         []DayRowDTO `json:"days"`
	Totals       TotalsDTO   `json:"totals"`
	HasRecords   bool        `json:"has_records"`
}

// UnitReportDTO is the response of GET /api/reports/unit.
type UnitReportDTO struct {
	UnitID    string              `json:"unit_id"`
	UnitName  string              `json:"unit_name"`
	Year      int                 `json:"year"`
	Month     int                 `json:"month"`
	Employees []EmployeeReportDTO `json:"employees"`
}

// UnitDayDTO is the response of GET /api/units/{id}/punches/today.
type UnitDayDTO struct {
	UnitID   string     `json:"unit_id"`
	UnitName string     `json:"unit_name"`
	Date     string     `json:"date"`
	Punches  []PunchDTO `json:"punches"`
}

// =============================================================================
// MASTER DATA
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Registration string `json:"registration"`
	Position     string `json:"position,omitempty"`
	Email        string `json:"email,omitempty"`
	ShiftType    string `json:"shift_type"`
	UnitID       string `json:"unit_id"`
	AdmissionAt  string `json:"admission_date"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// CreateEmployeeRequest is the request to create an employee.
type CreateEmployeeRequest struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name" validate:"required"`
	Registration string `json:"registration" validate:"required"`
	Position     string `json:"position,omitempty"`
	Email        string `json:"email,omitempty" validate:"omitempty,email"`
	ShiftType    string `json:"shift_type" validate:"required"`
	UnitID       string `json:"unit_id" validate:"required"`
	AdmissionAt  string `json:"admission_date" validate:"required,datetime=2006-01-02"`
}

// UnitDTO represents a unit in API responses.
type UnitDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateUnitRequest is the request to create a unit.
type CreateUnitRequest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name" validate:"required"`
}

// CreateLeaveRequest is the request to register a leave span.
type CreateLeaveRequest struct {
	Start  string `json:"start_date" validate:"required,datetime=2006-01-02"`
	End    string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Reason string `json:"reason" validate:"required"`
}

// LeaveDTO represents a leave span in API responses.
type LeaveDTO struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employee_id"`
	Start      string `json:"start_date"`
	End        string `json:"end_date"`
	Reason     string `json:"reason"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toHoursDTO(h *punch.Hours) *HoursDTO {
	if h == nil {
		return nil
	}
	return &HoursDTO{
		Normal:        h.Normal.String(),
		Extra:         h.Extra.String(),
		Discount:      h.Discount.String(),
		Total:         h.Total.String(),
		NormalDec:     h.Normal.DecimalHours().InexactFloat64(),
		ExtraDec:      h.Extra.DecimalHours().InexactFloat64(),
		DiscountDec:   h.Discount.DecimalHours().InexactFloat64(),
		Justification: h.Justification,
	}
}

func toPunchDTO(r punch.Record) PunchDTO {
	return PunchDTO{
		ID:           string(r.ID),
		EmployeeID:   string(r.EmployeeID),
		UnitID:       string(r.UnitID),
		Date:         r.PunchedAt.Format("2006-01-02"),
		EntryTime:    clockPtr(r.EntryAt),
		ExitTime:     clockPtr(r.ExitAt),
		BiometricRef: r.BiometricRef,
		Hours:        toHoursDTO(r.Hours),
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
	}
}

func toEmployeeDTO(e punch.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:           string(e.ID),
		Name:         e.Name,
		Registration: e.Registration,
		Position:     e.Position,
		Email:        e.Email,
		ShiftType:    string(e.ShiftType),
		UnitID:       string(e.UnitID),
		AdmissionAt:  e.AdmissionAt.Format("2006-01-02"),
		CreatedAt:    e.CreatedAt.Format(time.RFC3339),
	}
}

func toDayRowDTO(row report.DayRow) DayRowDTO {
	return DayRowDTO{
		Date:          row.Date.Format("2006-01-02"),
		Weekday:       row.Date.Weekday().String(),
		EntryTime:     clockPtr(row.Entry),
		ExitTime:      clockPtr(row.Exit),
		Normal:        row.Normal.String(),
		Extra:         row.Extra.String(),
		Discount:      row.Discount.String(),
		Total:         row.Total.String(),
		Expected:      row.Expected,
		Absent:        row.Absent,
		Justification: row.Justification,
	}
}

func toTotalsDTO(t report.Totals) TotalsDTO {
	return TotalsDTO{
		Normal:           t.Normal.String(),
		Extra:            t.Extra.String(),
		Discount:         t.Discount.String(),
		AdjustedExtra:    t.AdjustedExtra.String(),
		AdjustedDiscount: t.AdjustedDiscount.String(),
		NormalDec:        t.Normal.DecimalHours().InexactFloat64(),
		ExtraDec:         t.Extra.DecimalHours().InexactFloat64(),
		DiscountDec:      t.Discount.DecimalHours().InexactFloat64(),
	}
}

func toEmployeeReportDTO(r report.MonthReport) EmployeeReportDTO {
	dto := EmployeeReportDTO{
		EmployeeID:   string(r.Employee.ID),
		EmployeeName: r.Employee.Name,
		Registration: r.Employee.Registration,
		ShiftType:    string(r.Employee.ShiftType),
		UnitName:     r.UnitName,
		Year:         r.Year,
		Month:        int(r.Month),
		Totals:       toTotalsDTO(r.Totals),
		HasRecords:   r.HasRecords,
		Days:         make([]DayRowDTO, 0, len(r.Rows)),
	}
	for _, row := range r.Rows {
		dto.Days = append(dto.Days, toDayRowDTO(row))
	}
	return dto
}

func clockPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("15:04:05")
	return &s
}
