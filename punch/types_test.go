package punch_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/muniworks/punch-engine/punch"
)

func TestLeaveCovers_InclusiveBounds(t *testing.T) {
	leave := punch.Leave{
		EmployeeID: "emp-1",
		Start:      time.Date(2025, time.June, 16, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2025, time.June, 20, 0, 0, 0, 0, time.UTC),
		Reason:     "vacation",
	}

	assert.True(t, leave.Covers(at(16, 0, 0)))
	assert.True(t, leave.Covers(at(18, 12, 30)))
	assert.True(t, leave.Covers(at(20, 23, 59)))
	assert.False(t, leave.Covers(at(15, 23, 59)))
	assert.False(t, leave.Covers(at(21, 0, 0)))
}

func TestLeaveCovers_LocalCalendarDate(t *testing.T) {
	// A late-evening instant west of UTC is past midnight in UTC terms but
	// still on its local calendar date; coverage follows the local date.
	leave := punch.Leave{
		EmployeeID: "emp-1",
		Start:      time.Date(2025, time.June, 16, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2025, time.June, 16, 0, 0, 0, 0, time.UTC),
		Reason:     "medical leave",
	}

	recife := time.FixedZone("UTC-3", -3*3600)
	lateEvening := time.Date(2025, time.June, 16, 23, 0, 0, 0, recife)
	assert.True(t, leave.Covers(lateEvening), "23:00 local is still June 16")

	nextMorning := time.Date(2025, time.June, 17, 1, 0, 0, 0, recife)
	assert.False(t, leave.Covers(nextMorning))
}
