package punch_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muniworks/punch-engine/punch"
	"github.com/muniworks/punch-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestRecorder(t *testing.T) (*punch.Recorder, *memory.Ledger, *memory.Directory) {
	t.Helper()

	ledger := memory.NewLedger()
	dir := memory.NewDirectory()

	dir.PutUnit(punch.Unit{ID: "unit-1", Name: "Central School"})
	dir.PutEmployee(punch.Employee{
		ID:           "emp-night",
		Name:         "Ana Souza",
		Registration: "4711",
		ShiftType:    punch.Shift12x36,
		UnitID:       "unit-1",
		AdmissionAt:  time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC),
	})
	dir.PutEmployee(punch.Employee{
		ID:           "emp-day",
		Name:         "Bruno Lima",
		Registration: "4712",
		ShiftType:    punch.Shift8h,
		UnitID:       "unit-1",
		AdmissionAt:  time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC),
	})

	rec := punch.NewRecorder(ledger, dir, punch.RecorderConfig{})
	return rec, ledger, dir
}

func at(day int, hour, min int) time.Time {
	return time.Date(2025, time.June, day, hour, min, 0, 0, time.UTC)
}

func timePtr(t time.Time) *time.Time { return &t }

// =============================================================================
// SPECIAL SHIFTS - entry/exit pairing
// =============================================================================

func TestRecord_SpecialEntryThenExit_Paired(t *testing.T) {
	// GIVEN: A 12x36 employee with an open entry at 19:00
	// WHEN: An exit arrives 07:00 the next morning
	// THEN: The exit pairs with the entry and carries exact elapsed time

	rec, _, _ := newTestRecorder(t)
	ctx := context.Background()

	entry, err := rec.Record(ctx, punch.Event{
		EmployeeID: "emp-night", UnitID: "unit-1",
		Entry: timePtr(at(19, 19, 0)),
	})
	require.NoError(t, err)
	assert.Equal(t, punch.OutcomeEntry, entry.Outcome)
	assert.True(t, entry.Record.IsOpenEntry())
	assert.Nil(t, entry.Record.Hours, "hours wait for the exit")

	exit, err := rec.Record(ctx, punch.Event{
		EmployeeID: "emp-night", UnitID: "unit-1",
		Exit: timePtr(at(20, 7, 0)),
	})
	require.NoError(t, err)

	assert.Equal(t, punch.OutcomeExit, exit.Outcome)
	assert.True(t, exit.Record.IsExitOnly(), "exit is its own record, the entry row is untouched")
	require.NotNil(t, exit.PairedEntry)
	assert.Equal(t, entry.Record.ID, exit.PairedEntry.ID)
	assert.Equal(t, "12:00:00", exit.Elapsed.String())
	require.NotNil(t, exit.Record.Hours)
	assert.Equal(t, "12:00:00", exit.Record.Hours.Total.String())
}

func TestRecord_SecondEntryWhileOpen_Conflict(t *testing.T) {
	// GIVEN: An open entry from 2025-06-19 08:00
	// WHEN: A second entry arrives before any exit
	// THEN: Conflict, and the message names the open entry

	rec, _, _ := newTestRecorder(t)
	ctx := context.Background()

	_, err := rec.Record(ctx, punch.Event{
		EmployeeID: "emp-night", UnitID: "unit-1",
		Entry: timePtr(at(19, 8, 0)),
	})
	require.NoError(t, err)

	_, err = rec.Record(ctx, punch.Event{
		EmployeeID: "emp-night", UnitID: "unit-1",
		Entry: timePtr(at(19, 14, 0)),
	})
	require.Error(t, err)

	var oc *punch.OpenEntryConflictError
	require.ErrorAs(t, err, &oc)
	assert.ErrorIs(t, err, punch.ErrConflict)
	assert.Equal(t, punch.EmployeeID("emp-night"), oc.EmployeeID)
	assert.Contains(t, err.Error(), "2025-06-19 08:00")
}

func TestRecord_ExitWithoutOpenEntry_NotFound(t *testing.T) {
	rec, _, _ := newTestRecorder(t)

	_, err := rec.Record(context.Background(), punch.Event{
		EmployeeID: "emp-night", UnitID: "unit-1",
		Exit: timePtr(at(20, 7, 0)),
	})
	require.Error(t, err)

	var noe *punch.NoOpenEntryError
	assert.ErrorAs(t, err, &noe)
	assert.ErrorIs(t, err, punch.ErrNotFound)
}

func TestRecord_EntryOutsideLookback_NotPaired(t *testing.T) {
	// An entry older than the lookback window is no longer eligible; the
	// exit is rejected rather than paired against a stale entry.
	rec, _, _ := newTestRecorder(t)
	ctx := context.Background()

	_, err := rec.Record(ctx, punch.Event{
		EmployeeID: "emp-night", UnitID: "unit-1",
		Entry: timePtr(at(10, 19, 0)),
	})
	require.NoError(t, err)

	_, err = rec.Record(ctx, punch.Event{
		EmployeeID: "emp-night", UnitID: "unit-1",
		Exit: timePtr(at(19, 7, 0)),
	})
	assert.ErrorIs(t, err, punch.ErrNotFound)
}

func TestRecord_StaleOpenEntryDoesNotBlockNewEntry(t *testing.T) {
	// GIVEN: An entry left open well past the lookback window (no exit ever
	//        arrived)
	// WHEN: A fresh entry is punched
	// THEN: The stale marker expires and the new entry is accepted; a later
	//       exit pairs with the new entry, not the stale one

	rec, ledger, _ := newTestRecorder(t)
	ctx := context.Background()

	stale, err := rec.Record(ctx, punch.Event{
		EmployeeID: "emp-night", UnitID: "unit-1",
		Entry: timePtr(at(10, 19, 0)),
	})
	require.NoError(t, err)

	fresh, err := rec.Record(ctx, punch.Event{
		EmployeeID: "emp-night", UnitID: "unit-1",
		Entry: timePtr(at(19, 8, 0)),
	})
	require.NoError(t, err, "a stale open entry must not brick the employee")
	assert.Equal(t, punch.OutcomeEntry, fresh.Outcome)

	exit, err := rec.Record(ctx, punch.Event{
		EmployeeID: "emp-night", UnitID: "unit-1",
		Exit: timePtr(at(19, 20, 0)),
	})
	require.NoError(t, err)
	require.NotNil(t, exit.PairedEntry)
	assert.Equal(t, fresh.Record.ID, exit.PairedEntry.ID)
	assert.Equal(t, "12:00:00", exit.Elapsed.String())

	// The stale entry row survives for the monthly report's absence view.
	old, err := ledger.Get(ctx, stale.Record.ID)
	require.NoError(t, err)
	require.NotNil(t, old)
	assert.Nil(t, old.ExitAt)
}

func TestRecord_ExitTooSoonRejected(t *testing.T) {
	// The anti-double-tap rule: an exit within the minimum gap is rejected
	// and the entry stays open.
	rec, _, _ := newTestRecorder(t)
	ctx := context.Background()

	_, err := rec.Record(ctx, punch.Event{
		EmployeeID: "emp-night", UnitID: "unit-1",
		Entry: timePtr(at(19, 19, 0)),
	})
	require.NoError(t, err)

	_, err = rec.Record(ctx, punch.Event{
		EmployeeID: "emp-night", UnitID: "unit-1",
		Exit: timePtr(at(19, 19, 2)),
	})
	require.Error(t, err)

	var ets *punch.ExitTooSoonError
	assert.ErrorAs(t, err, &ets)
	assert.ErrorIs(t, err, punch.ErrValidation)

	// The entry is still open, so a real exit can still pair.
	res, err := rec.Record(ctx, punch.Event{
		EmployeeID: "emp-night", UnitID: "unit-1",
		Exit: timePtr(at(20, 7, 0)),
	})
	require.NoError(t, err)
	assert.Equal(t, punch.OutcomeExit, res.Outcome)
}

func TestRecord_ExitBeforeEntryRejected(t *testing.T) {
	rec, _, _ := newTestRecorder(t)
	ctx := context.Background()

	_, err := rec.Record(ctx, punch.Event{
		EmployeeID: "emp-night", UnitID: "unit-1",
		Entry: timePtr(at(19, 19, 0)),
	})
	require.NoError(t, err)

	_, err = rec.Record(ctx, punch.Event{
		EmployeeID: "emp-night", UnitID: "unit-1",
		Exit: timePtr(at(19, 18, 0)),
	})
	var ebe *punch.ExitBeforeEntryError
	assert.ErrorAs(t, err, &ebe)
}

// =============================================================================
// STANDARD SHIFTS - combined records
// =============================================================================

func TestRecord_StandardCombinedRecordWithHours(t *testing.T) {
	rec, _, _ := newTestRecorder(t)

	res, err := rec.Record(context.Background(), punch.Event{
		EmployeeID: "emp-day", UnitID: "unit-1",
		Entry: timePtr(at(19, 8, 0)),
		Exit:  timePtr(at(19, 19, 0)),
	})
	require.NoError(t, err)

	assert.Equal(t, punch.OutcomeCombined, res.Outcome)
	require.NotNil(t, res.Record.Hours)
	assert.Equal(t, "09:00:00", res.Record.Hours.Normal.String())
	assert.Equal(t, "02:00:00", res.Record.Hours.Extra.String())
}

func TestRecord_StandardReplayIsIdempotent(t *testing.T) {
	// GIVEN: A recorded combined punch
	// WHEN: The identical event is replayed
	// THEN: The existing record comes back, no second row

	rec, ledger, _ := newTestRecorder(t)
	ctx := context.Background()

	ev := punch.Event{
		EmployeeID: "emp-day", UnitID: "unit-1",
		Entry: timePtr(at(19, 8, 0)),
		Exit:  timePtr(at(19, 17, 0)),
	}

	first, err := rec.Record(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, punch.OutcomeCombined, first.Outcome)

	second, err := rec.Record(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, punch.OutcomeDuplicate, second.Outcome)
	assert.Equal(t, first.Record.ID, second.Record.ID)
	assert.Len(t, ledger.All(), 1)
}

func TestRecord_StandardEntryOnlyStoredWithoutHours(t *testing.T) {
	// A kiosk entry-only event for a standard shift stores with both times
	// equal and no hours; the exit arrives later as a correction.
	rec, _, _ := newTestRecorder(t)

	res, err := rec.Record(context.Background(), punch.Event{
		EmployeeID: "emp-day", UnitID: "unit-1",
		Entry: timePtr(at(19, 8, 0)),
	})
	require.NoError(t, err)

	assert.Equal(t, punch.OutcomeCombined, res.Outcome)
	assert.Nil(t, res.Record.Hours)
}

func TestRecord_AuthoritativeHoursTakenAsIs(t *testing.T) {
	// Pre-computed hour components from legacy terminals bypass the
	// calculator entirely.
	rec, _, _ := newTestRecorder(t)

	given := punch.Hours{
		Normal: punch.IntervalFromSeconds(7 * 3600),
		Total:  punch.IntervalFromSeconds(7 * 3600),
	}
	res, err := rec.Record(context.Background(), punch.Event{
		EmployeeID: "emp-day", UnitID: "unit-1",
		Entry: timePtr(at(19, 8, 0)),
		Exit:  timePtr(at(19, 19, 0)),
		Hours: &given,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Record.Hours)
	assert.Equal(t, "07:00:00", res.Record.Hours.Normal.String())
	assert.True(t, res.Record.Hours.Extra.IsZero())
}

// =============================================================================
// VALIDATION AND MASTER DATA
// =============================================================================

func TestRecord_RejectsEmptyEvent(t *testing.T) {
	rec, _, _ := newTestRecorder(t)

	_, err := rec.Record(context.Background(), punch.Event{
		EmployeeID: "emp-day", UnitID: "unit-1",
	})
	assert.ErrorIs(t, err, punch.ErrValidation)
}

func TestRecord_UnknownEmployeeOrUnit(t *testing.T) {
	rec, _, _ := newTestRecorder(t)
	ctx := context.Background()

	_, err := rec.Record(ctx, punch.Event{
		EmployeeID: "emp-ghost", UnitID: "unit-1",
		Entry: timePtr(at(19, 8, 0)),
	})
	assert.ErrorIs(t, err, punch.ErrNotFound)

	_, err = rec.Record(ctx, punch.Event{
		EmployeeID: "emp-day", UnitID: "unit-ghost",
		Entry: timePtr(at(19, 8, 0)),
	})
	assert.ErrorIs(t, err, punch.ErrNotFound)
}

func TestRecord_OnLeaveRejected(t *testing.T) {
	rec, _, dir := newTestRecorder(t)
	dir.PutLeave(punch.Leave{
		ID: "leave-1", EmployeeID: "emp-day",
		Start:  at(15, 0, 0),
		End:    at(30, 0, 0),
		Reason: "vacation",
	})

	_, err := rec.Record(context.Background(), punch.Event{
		EmployeeID: "emp-day", UnitID: "unit-1",
		Entry: timePtr(at(19, 8, 0)),
	})
	require.Error(t, err)

	var ol *punch.OnLeaveError
	require.ErrorAs(t, err, &ol)
	assert.Equal(t, "vacation", ol.Reason)
	assert.ErrorIs(t, err, punch.ErrValidation)
}

// =============================================================================
// CORRECTION AND DELETION
// =============================================================================

func TestCorrect_RecomputesHours(t *testing.T) {
	rec, _, _ := newTestRecorder(t)
	ctx := context.Background()

	created, err := rec.Record(ctx, punch.Event{
		EmployeeID: "emp-day", UnitID: "unit-1",
		Entry: timePtr(at(19, 8, 0)),
		Exit:  timePtr(at(19, 17, 0)),
	})
	require.NoError(t, err)

	fixed, err := rec.Correct(ctx, created.Record.ID, "08:00", "19:00")
	require.NoError(t, err)
	require.NotNil(t, fixed.Hours)
	assert.Equal(t, "02:00:00", fixed.Hours.Extra.String())
	assert.Equal(t, 19, fixed.ExitAt.Hour())
}

func TestCorrect_MidnightCrossingMovesExitForward(t *testing.T) {
	// GIVEN: A record punched on June 19
	// WHEN: Corrected to entry 22:00 / exit 06:00
	// THEN: The exit lands on June 20, not before the entry

	rec, _, _ := newTestRecorder(t)
	ctx := context.Background()

	created, err := rec.Record(ctx, punch.Event{
		EmployeeID: "emp-day", UnitID: "unit-1",
		Entry: timePtr(at(19, 22, 0)),
		Exit:  timePtr(at(19, 23, 0)),
	})
	require.NoError(t, err)

	fixed, err := rec.Correct(ctx, created.Record.ID, "22:00", "06:00")
	require.NoError(t, err)
	assert.Equal(t, 20, fixed.ExitAt.Day())
	assert.Equal(t, "08:00:00", fixed.Hours.Total.String())
}

func TestCorrect_RejectsLooseTimeFormats(t *testing.T) {
	rec, _, _ := newTestRecorder(t)

	_, err := rec.Correct(context.Background(), "punch-x", "8:00", "17:00")
	assert.ErrorIs(t, err, punch.ErrValidation)

	_, err = rec.Correct(context.Background(), "punch-x", "08:00:00", "17:00")
	assert.ErrorIs(t, err, punch.ErrValidation)
}

func TestCorrect_UnknownRecord(t *testing.T) {
	rec, _, _ := newTestRecorder(t)

	_, err := rec.Correct(context.Background(), "punch-ghost", "08:00", "17:00")
	assert.ErrorIs(t, err, punch.ErrNotFound)
}

func TestRemove(t *testing.T) {
	rec, ledger, _ := newTestRecorder(t)
	ctx := context.Background()

	created, err := rec.Record(ctx, punch.Event{
		EmployeeID: "emp-day", UnitID: "unit-1",
		Entry: timePtr(at(19, 8, 0)),
		Exit:  timePtr(at(19, 17, 0)),
	})
	require.NoError(t, err)

	require.NoError(t, rec.Remove(ctx, created.Record.ID))
	assert.Empty(t, ledger.All())
	assert.ErrorIs(t, rec.Remove(ctx, created.Record.ID), punch.ErrNotFound)
}
