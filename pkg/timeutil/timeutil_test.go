package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAppTZ_MovesDayBoundaries(t *testing.T) {
	original := AppTZ
	defer SetAppTZ(original)

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	// 01:00 in Tokyo is still the previous evening in Berlin.
	at := time.Date(2026, 3, 15, 1, 0, 0, 0, tokyo)
	assert.Equal(t, "2026-03-14", DateKey(at))

	SetAppTZ(tokyo)
	assert.Equal(t, "2026-03-15", DateKey(at))
	assert.Equal(t, 15, DayOfMonth(at))
	assert.Equal(t, tokyo, StartOfDay(at).Location())
}

func TestSetAppTZ_NilKeepsCurrentZone(t *testing.T) {
	original := AppTZ
	defer SetAppTZ(original)

	SetAppTZ(nil)
	assert.Equal(t, original, AppTZ)
}

func TestWeekWindow_SevenCalendarDays(t *testing.T) {
	from, to := WeekWindow(Date(2026, 3, 15))

	assert.Equal(t, Date(2026, 3, 9), from)
	assert.Equal(t, Date(2026, 3, 15), to)
	assert.Equal(t, 6, DaysBetween(from, to))
}

func TestParseDateKey_RoundTrip(t *testing.T) {
	day, err := ParseDateKey("2026-03-15")

	require.NoError(t, err)
	assert.Equal(t, Date(2026, 3, 15), day)
	assert.Equal(t, "2026-03-15", DateKey(day))
}
