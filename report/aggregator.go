/*
Package report derives monthly and daily hour reports from the punch ledger.

PURPOSE:
  Pure read/aggregate operations over persisted punch records: per-day rows,
  period totals (normal, extra, discount), absence flagging via the expected
  working-day sequence, and leave-span justifications. Nothing here mutates
  a record.

ACCUMULATION:
  Totals are summed as integer seconds and converted to "HH:MM:SS" or
  two-decimal hours only at the presentation edge, so per-row rounding can
  never drift the monthly total.

EMPTY vs ZERO:
  A period with no punch records at all is signalled by HasRecords=false on
  the report, distinct from a period whose records all sum to zero. Report
  consumers rely on the difference.

SEE ALSO:
  - days.go: expected working-day generation
  - punch/interval.go: interval normalization
*/
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/muniworks/punch-engine/punch"
)

// =============================================================================
// SOURCE - Read-only view of storage
// =============================================================================

// Source is the read-side storage contract the aggregator depends on.
type Source interface {
	Employee(ctx context.Context, id punch.EmployeeID) (*punch.Employee, error)
	Unit(ctx context.Context, id punch.UnitID) (*punch.Unit, error)
	EmployeesByUnit(ctx context.Context, id punch.UnitID) ([]punch.Employee, error)

	// RecordsByEmployeeMonth returns the employee's records in the month,
	// ascending by punch instant.
	RecordsByEmployeeMonth(ctx context.Context, emp punch.EmployeeID, year int, month time.Month) ([]punch.Record, error)

	// RecordsByUnitDay returns a unit's records on one calendar day,
	// descending by punch instant.
	RecordsByUnitDay(ctx context.Context, unit punch.UnitID, day time.Time) ([]punch.Record, error)

	// LeavesInRange returns leave spans overlapping [from, to].
	LeavesInRange(ctx context.Context, emp punch.EmployeeID, from, to time.Time) ([]punch.Leave, error)
}

// =============================================================================
// REPORT SHAPES
// =============================================================================

// DayRow is one calendar day of an employee's month.
type DayRow struct {
	Date  time.Time
	Entry *time.Time
	Exit  *time.Time

	Normal   punch.Interval
	Extra    punch.Interval
	Discount punch.Interval
	Total    punch.Interval
	Worked   bool // true when at least one record contributed to this day

	Expected      bool   // the day is in the expected working-day sequence
	Absent        bool   // expected, not worked, not on leave
	Justification string // leave reason, "absence", or punch.JustificationOvertime
}

// Totals is the period summary. Adjusted values net overtime against
// discount: whichever is larger survives, the other goes to zero.
type Totals struct {
	Normal   punch.Interval
	Extra    punch.Interval
	Discount punch.Interval

	AdjustedExtra    punch.Interval
	AdjustedDiscount punch.Interval
}

// MonthReport is one employee's month.
type MonthReport struct {
	Employee punch.Employee
	UnitName string
	Year     int
	Month    time.Month

	Rows   []DayRow
	Totals Totals

	// HasRecords distinguishes "no activity at all" from "all-zero totals".
	HasRecords bool
}

// UnitMonthReport groups a unit's employees for one month, including
// employees with zero punches (all-absent rows).
type UnitMonthReport struct {
	Unit      punch.Unit
	Year      int
	Month     time.Month
	Employees []MonthReport
}

// UnitDayRow is one punch record on a unit's daily listing, denormalized
// with the employee's name.
type UnitDayRow struct {
	Record       punch.Record
	EmployeeName string
}

// UnitDayReport lists a unit's punches for a single day.
type UnitDayReport struct {
	Unit punch.Unit
	Day  time.Time
	Rows []UnitDayRow
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregator computes reports. It holds no state beyond its collaborators
// and is safe for concurrent use.
type Aggregator struct {
	src  Source
	days DayFunc
}

// New creates an aggregator. A nil days falls back to ExpectedDays.
func New(src Source, days DayFunc) *Aggregator {
	if days == nil {
		days = ExpectedDays
	}
	return &Aggregator{src: src, days: days}
}

// EmployeeMonth builds one employee's monthly report: a row per calendar
// day, absence flags for expected-but-unworked days, leave justifications,
// and exact period totals.
func (a *Aggregator) EmployeeMonth(ctx context.Context, id punch.EmployeeID, year int, month time.Month) (*MonthReport, error) {
	emp, err := a.src.Employee(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: employee lookup: %v", punch.ErrInternal, err)
	}
	if emp == nil {
		return nil, fmt.Errorf("%w: employee %s", punch.ErrNotFound, id)
	}

	unitName := ""
	if unit, err := a.src.Unit(ctx, emp.UnitID); err == nil && unit != nil {
		unitName = unit.Name
	}

	report, err := a.buildMonth(ctx, *emp, year, month)
	if err != nil {
		return nil, err
	}
	report.UnitName = unitName
	return report, nil
}

// UnitMonth builds the monthly report for every employee of a unit, in
// ascending employee-name order. Employees with zero punches in the period
// appear with absence-filled rows rather than being dropped.
func (a *Aggregator) UnitMonth(ctx context.Context, id punch.UnitID, year int, month time.Month) (*UnitMonthReport, error) {
	unit, err := a.src.Unit(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: unit lookup: %v", punch.ErrInternal, err)
	}
	if unit == nil {
		return nil, fmt.Errorf("%w: unit %s", punch.ErrNotFound, id)
	}

	employees, err := a.src.EmployeesByUnit(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: unit employees: %v", punch.ErrInternal, err)
	}
	sort.Slice(employees, func(i, j int) bool { return employees[i].Name < employees[j].Name })

	out := &UnitMonthReport{Unit: *unit, Year: year, Month: month}
	for _, emp := range employees {
		r, err := a.buildMonth(ctx, emp, year, month)
		if err != nil {
			return nil, err
		}
		r.UnitName = unit.Name
		out.Employees = append(out.Employees, *r)
	}
	return out, nil
}

// UnitDay lists a unit's punches on one day, newest first, with employee
// names denormalized in.
func (a *Aggregator) UnitDay(ctx context.Context, id punch.UnitID, day time.Time) (*UnitDayReport, error) {
	unit, err := a.src.Unit(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: unit lookup: %v", punch.ErrInternal, err)
	}
	if unit == nil {
		return nil, fmt.Errorf("%w: unit %s", punch.ErrNotFound, id)
	}

	records, err := a.src.RecordsByUnitDay(ctx, id, day)
	if err != nil {
		return nil, fmt.Errorf("%w: unit day records: %v", punch.ErrInternal, err)
	}

	names := map[punch.EmployeeID]string{}
	if employees, err := a.src.EmployeesByUnit(ctx, id); err == nil {
		for _, e := range employees {
			names[e.ID] = e.Name
		}
	}

	out := &UnitDayReport{Unit: *unit, Day: midnight(day)}
	for _, r := range records {
		out.Rows = append(out.Rows, UnitDayRow{Record: r, EmployeeName: names[r.EmployeeID]})
	}
	return out, nil
}

// =============================================================================
// MONTH CONSTRUCTION
// =============================================================================

func (a *Aggregator) buildMonth(ctx context.Context, emp punch.Employee, year int, month time.Month) (*MonthReport, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)

	records, err := a.src.RecordsByEmployeeMonth(ctx, emp.ID, year, month)
	if err != nil {
		return nil, fmt.Errorf("%w: month records: %v", punch.ErrInternal, err)
	}

	leaves, err := a.src.LeavesInRange(ctx, emp.ID, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: leaves: %v", punch.ErrInternal, err)
	}

	expected := map[string]bool{}
	for _, d := range a.days(start, end, emp.ShiftType, emp.AdmissionAt) {
		expected[dayKey(d)] = true
	}

	// Entry and exit of a rotation cycle are separate rows; merge them into
	// the calendar day they were punched on.
	byDay := map[string][]punch.Record{}
	for _, r := range records {
		k := dayKey(r.PunchedAt)
		byDay[k] = append(byDay[k], r)
	}

	report := &MonthReport{
		Employee:   emp,
		Year:       year,
		Month:      month,
		HasRecords: len(records) > 0,
	}

	var totalNormal, totalExtra, totalDiscount int64

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		row := DayRow{Date: d, Expected: expected[dayKey(d)]}

		for _, r := range byDay[dayKey(d)] {
			row.Worked = true
			if r.EntryAt != nil && (row.Entry == nil || r.EntryAt.Before(*row.Entry)) {
				row.Entry = r.EntryAt
			}
			if r.ExitAt != nil && (row.Exit == nil || r.ExitAt.After(*row.Exit)) {
				row.Exit = r.ExitAt
			}
			if r.Hours != nil {
				row.Normal = row.Normal.Add(r.Hours.Normal)
				row.Extra = row.Extra.Add(r.Hours.Extra)
				row.Discount = row.Discount.Add(r.Hours.Discount)
				row.Total = row.Total.Add(r.Hours.Total)
				if r.Hours.Justification != "" {
					row.Justification = r.Hours.Justification
				}
			}
		}

		if !row.Worked {
			if reason := leaveReason(leaves, d); reason != "" {
				row.Justification = reason
			} else if row.Expected {
				row.Absent = true
				row.Justification = "absence"
			}
		}

		totalNormal += row.Normal.Seconds
		totalExtra += row.Extra.Seconds
		totalDiscount += row.Discount.Seconds

		report.Rows = append(report.Rows, row)
	}

	report.Totals = computeTotals(totalNormal, totalExtra, totalDiscount)
	return report, nil
}

// computeTotals nets overtime against discount for the adjusted pair.
func computeTotals(normal, extra, discount int64) Totals {
	t := Totals{
		Normal:   punch.IntervalFromSeconds(normal),
		Extra:    punch.IntervalFromSeconds(extra),
		Discount: punch.IntervalFromSeconds(discount),
	}

	adjExtra, adjDiscount := extra, discount
	if extra > 0 && discount > 0 {
		if balance := extra - discount; balance >= 0 {
			adjExtra, adjDiscount = balance, 0
		} else {
			adjExtra, adjDiscount = 0, -balance
		}
	}
	t.AdjustedExtra = punch.IntervalFromSeconds(adjExtra)
	t.AdjustedDiscount = punch.IntervalFromSeconds(adjDiscount)
	return t
}

func leaveReason(leaves []punch.Leave, day time.Time) string {
	for _, l := range leaves {
		if l.Covers(day) {
			return l.Reason
		}
	}
	return ""
}

func dayKey(t time.Time) string { return t.Format("2006-01-02") }
