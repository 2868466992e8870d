package punch_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muniworks/punch-engine/punch"
)

// =============================================================================
// FORMAT / PARSE ROUND TRIP
// =============================================================================

func TestInterval_String_DoesNotWrapHours(t *testing.T) {
	// A 31-hour rotation span renders with the full hour count, never as
	// "07:00:00" of a second day.
	iv := punch.NewInterval(31 * time.Hour)
	assert.Equal(t, "31:00:00", iv.String())
}

func TestInterval_RoundTrip(t *testing.T) {
	cases := []int64{
		0,
		59,
		60,
		3599,
		3600,
		8*3600 + 30*60,
		24 * 3600,
		31 * 3600,
		999*3600 + 59*60 + 59,
	}
	for _, secs := range cases {
		iv := punch.IntervalFromSeconds(secs)
		parsed, err := punch.ParseInterval(iv.String())
		require.NoError(t, err, "round trip of %d seconds", secs)
		assert.Equal(t, iv, parsed, "round trip of %q", iv.String())
	}
}

func TestParseInterval_AcceptsHHMM(t *testing.T) {
	iv, err := punch.ParseInterval("08:30")
	require.NoError(t, err)
	assert.Equal(t, int64(8*3600+30*60), iv.Seconds)
}

func TestParseInterval_RejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "8", "08:61:00", "08:00:61", "a:b:c", "1:2:3:4"} {
		_, err := punch.ParseInterval(s)
		assert.ErrorIs(t, err, punch.ErrValidation, "input %q", s)
	}
}

func TestIntervalFromParts(t *testing.T) {
	iv := punch.IntervalFromParts(punch.IntervalParts{Hours: 12, Minutes: 15, Seconds: 30})
	assert.Equal(t, "12:15:30", iv.String())
}

// =============================================================================
// DECIMAL HOURS
// =============================================================================

func TestDecimalHours_TwoPlaces(t *testing.T) {
	// 8h30m is exactly 8.50; 10 minutes rounds to 0.17.
	assert.True(t, decimal.NewFromFloat(8.5).Equal(
		punch.NewInterval(8*time.Hour+30*time.Minute).DecimalHours()))
	assert.True(t, decimal.NewFromFloat(0.17).Equal(
		punch.NewInterval(10*time.Minute).DecimalHours()))
}

// =============================================================================
// CLOCK FIELDS
// =============================================================================

func TestParseClock_AnchorsToDay(t *testing.T) {
	day := time.Date(2025, time.June, 19, 23, 45, 0, 0, time.UTC)

	got, err := punch.ParseClock("08:15", day)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.June, 19, 8, 15, 0, 0, time.UTC), got)

	withSecs, err := punch.ParseClock("08:15:42", day)
	require.NoError(t, err)
	assert.Equal(t, 42, withSecs.Second())
}

func TestParseClock_RejectsMalformed(t *testing.T) {
	day := time.Now()
	for _, s := range []string{"", "8", "25:00", "aa:bb"} {
		_, err := punch.ParseClock(s, day)
		assert.ErrorIs(t, err, punch.ErrValidation, "input %q", s)
	}
}

func TestValidClockHHMM(t *testing.T) {
	assert.True(t, punch.ValidClockHHMM("09:00"))
	assert.True(t, punch.ValidClockHHMM("23:59"))
	assert.False(t, punch.ValidClockHHMM("9:00"))
	assert.False(t, punch.ValidClockHHMM("09:00:00"))
	assert.False(t, punch.ValidClockHHMM("24:00"))
	assert.False(t, punch.ValidClockHHMM("09:60"))
}
