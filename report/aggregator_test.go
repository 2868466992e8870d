package report_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muniworks/punch-engine/punch"
	"github.com/muniworks/punch-engine/report"
	"github.com/muniworks/punch-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestAggregator(t *testing.T) (*report.Aggregator, *sqlite.Store) {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.SaveUnit(ctx, punch.Unit{ID: "unit-1", Name: "Central School"}))
	require.NoError(t, store.SaveEmployee(ctx, punch.Employee{
		ID: "emp-1", Name: "Ana Souza", Registration: "4711",
		ShiftType: punch.Shift8h, UnitID: "unit-1",
		AdmissionAt: time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, store.SaveEmployee(ctx, punch.Employee{
		ID: "emp-2", Name: "Bruno Lima", Registration: "4712",
		ShiftType: punch.Shift8h, UnitID: "unit-1",
		AdmissionAt: time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC),
	}))

	return report.New(store, nil), store
}

func combinedPunch(id string, emp punch.EmployeeID, day time.Time, hours punch.Hours) punch.Record {
	entry := day.Add(8 * time.Hour)
	exit := day.Add(17 * time.Hour)
	return punch.Record{
		ID: punch.RecordID(id), EmployeeID: emp, UnitID: "unit-1",
		PunchedAt: entry, EntryAt: &entry, ExitAt: &exit,
		Hours: &hours,
	}
}

func hrs(normal, extra, discount time.Duration) punch.Hours {
	h := punch.Hours{
		Normal:   punch.NewInterval(normal),
		Extra:    punch.NewInterval(extra),
		Discount: punch.NewInterval(discount),
		Total:    punch.NewInterval(normal + extra),
	}
	if extra > 0 {
		h.Justification = punch.JustificationOvertime
	}
	return h
}

// =============================================================================
// EMPLOYEE MONTH
// =============================================================================

func TestEmployeeMonth_RowsTotalsAndAbsences(t *testing.T) {
	// GIVEN: Two worked days in June 2025 (one with 2h overtime, one with
	//        1h discount) for an 8h employee
	// WHEN: Building the monthly report
	// THEN: One row per calendar day, exact totals, netted adjusted values,
	//       and absence flags on the other expected weekdays

	agg, store := newTestAggregator(t)
	ctx := context.Background()

	june2 := d(2025, time.June, 2)
	june3 := d(2025, time.June, 3)
	require.NoError(t, store.Append(ctx, combinedPunch("p1", "emp-1", june2,
		hrs(9*time.Hour, 2*time.Hour, 0))))
	require.NoError(t, store.Append(ctx, combinedPunch("p2", "emp-1", june3,
		hrs(8*time.Hour, 0, time.Hour))))

	rep, err := agg.EmployeeMonth(ctx, "emp-1", 2025, time.June)
	require.NoError(t, err)

	assert.True(t, rep.HasRecords)
	assert.Equal(t, "Central School", rep.UnitName)
	require.Len(t, rep.Rows, 30, "one row per calendar day of June")

	worked := rep.Rows[1] // June 2
	assert.True(t, worked.Worked)
	assert.False(t, worked.Absent)
	assert.Equal(t, "09:00:00", worked.Normal.String())
	assert.Equal(t, punch.JustificationOvertime, worked.Justification)
	require.NotNil(t, worked.Entry)
	assert.Equal(t, 8, worked.Entry.Hour())

	june4 := rep.Rows[3] // expected weekday, no punches
	assert.True(t, june4.Expected)
	assert.True(t, june4.Absent)
	assert.Equal(t, "absence", june4.Justification)

	june1 := rep.Rows[0] // Sunday
	assert.False(t, june1.Expected)
	assert.False(t, june1.Absent)

	assert.Equal(t, "17:00:00", rep.Totals.Normal.String())
	assert.Equal(t, "02:00:00", rep.Totals.Extra.String())
	assert.Equal(t, "01:00:00", rep.Totals.Discount.String())
	// Netting: 2h extra against 1h discount.
	assert.Equal(t, "01:00:00", rep.Totals.AdjustedExtra.String())
	assert.Equal(t, "00:00:00", rep.Totals.AdjustedDiscount.String())
}

func TestEmployeeMonth_LeaveJustifiesAbsence(t *testing.T) {
	agg, store := newTestAggregator(t)
	ctx := context.Background()

	require.NoError(t, store.SaveLeave(ctx, punch.Leave{
		ID: "leave-1", EmployeeID: "emp-1",
		Start: d(2025, time.June, 9), End: d(2025, time.June, 13),
		Reason: "vacation",
	}))

	rep, err := agg.EmployeeMonth(ctx, "emp-1", 2025, time.June)
	require.NoError(t, err)

	june9 := rep.Rows[8]
	assert.False(t, june9.Absent, "leave days are justified, not absent")
	assert.Equal(t, "vacation", june9.Justification)

	june16 := rep.Rows[15] // a Monday outside the leave span
	assert.True(t, june16.Absent)
	assert.Equal(t, "absence", june16.Justification)
}

func TestEmployeeMonth_NoRecordsDistinctFromZeroTotals(t *testing.T) {
	agg, _ := newTestAggregator(t)

	rep, err := agg.EmployeeMonth(context.Background(), "emp-1", 2025, time.June)
	require.NoError(t, err)

	assert.False(t, rep.HasRecords)
	assert.True(t, rep.Totals.Normal.IsZero())
	require.Len(t, rep.Rows, 30, "calendar days are still filled in")
}

func TestEmployeeMonth_UnknownEmployee(t *testing.T) {
	agg, _ := newTestAggregator(t)

	_, err := agg.EmployeeMonth(context.Background(), "emp-ghost", 2025, time.June)
	assert.ErrorIs(t, err, punch.ErrNotFound)
}

func TestEmployeeMonth_RotationPairSpansTwoRows(t *testing.T) {
	// A 12x36 cycle leaves an entry-only row on the entry day and an
	// exit-only row (carrying the hours) on the exit day.
	agg, store := newTestAggregator(t)
	ctx := context.Background()

	require.NoError(t, store.SaveEmployee(ctx, punch.Employee{
		ID: "emp-3", Name: "Carla Dias", Registration: "4713",
		ShiftType: punch.Shift12x36, UnitID: "unit-1",
		AdmissionAt: d(2025, time.June, 2),
	}))

	entryAt := d(2025, time.June, 2).Add(19 * time.Hour)
	exitAt := d(2025, time.June, 3).Add(7 * time.Hour)
	require.NoError(t, store.Append(ctx, punch.Record{
		ID: "p-entry", EmployeeID: "emp-3", UnitID: "unit-1",
		PunchedAt: entryAt, EntryAt: &entryAt,
	}))
	h := hrs(0, 12*time.Hour, 0)
	require.NoError(t, store.Append(ctx, punch.Record{
		ID: "p-exit", EmployeeID: "emp-3", UnitID: "unit-1",
		PunchedAt: exitAt, ExitAt: &exitAt,
		Hours: &h,
	}))

	rep, err := agg.EmployeeMonth(ctx, "emp-3", 2025, time.June)
	require.NoError(t, err)

	entryRow := rep.Rows[1] // June 2
	assert.True(t, entryRow.Worked)
	require.NotNil(t, entryRow.Entry)
	assert.Nil(t, entryRow.Exit)

	exitRow := rep.Rows[2] // June 3
	assert.True(t, exitRow.Worked)
	require.NotNil(t, exitRow.Exit)
	assert.Equal(t, "12:00:00", exitRow.Total.String())
}

// =============================================================================
// UNIT REPORTS
// =============================================================================

func TestUnitMonth_IncludesEmployeesWithoutPunches(t *testing.T) {
	agg, store := newTestAggregator(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, combinedPunch("p1", "emp-1",
		d(2025, time.June, 2), hrs(9*time.Hour, 0, 0))))

	rep, err := agg.UnitMonth(ctx, "unit-1", 2025, time.June)
	require.NoError(t, err)

	require.Len(t, rep.Employees, 2)
	assert.Equal(t, "Ana Souza", rep.Employees[0].Employee.Name, "sorted by name")
	assert.True(t, rep.Employees[0].HasRecords)
	assert.False(t, rep.Employees[1].HasRecords, "zero-punch employee still present")
	require.Len(t, rep.Employees[1].Rows, 30)
}

func TestUnitMonth_UnknownUnit(t *testing.T) {
	agg, _ := newTestAggregator(t)

	_, err := agg.UnitMonth(context.Background(), "unit-ghost", 2025, time.June)
	assert.ErrorIs(t, err, punch.ErrNotFound)
}

func TestUnitDay_NewestFirstWithNames(t *testing.T) {
	agg, store := newTestAggregator(t)
	ctx := context.Background()

	june2 := d(2025, time.June, 2)
	require.NoError(t, store.Append(ctx, combinedPunch("p1", "emp-1", june2,
		hrs(9*time.Hour, 0, 0))))

	lateEntry := june2.Add(9 * time.Hour)
	require.NoError(t, store.Append(ctx, punch.Record{
		ID: "p2", EmployeeID: "emp-2", UnitID: "unit-1",
		PunchedAt: lateEntry, EntryAt: &lateEntry,
	}))

	rep, err := agg.UnitDay(ctx, "unit-1", june2)
	require.NoError(t, err)

	require.Len(t, rep.Rows, 2)
	assert.Equal(t, punch.RecordID("p2"), rep.Rows[0].Record.ID, "newest first")
	assert.Equal(t, "Bruno Lima", rep.Rows[0].EmployeeName)
	assert.Equal(t, "Ana Souza", rep.Rows[1].EmployeeName)
}
