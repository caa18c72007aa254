package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewPeriod(t *testing.T) {
	p, err := NewPeriod(date(2025, 6, 1), date(2025, 6, 30))
	require.NoError(t, err)
	assert.Equal(t, date(2025, 6, 1), p.Start)
	assert.Equal(t, date(2025, 6, 30), p.End)

	_, err = NewPeriod(date(2025, 6, 30), date(2025, 6, 1))
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = NewPeriod(time.Time{}, date(2025, 6, 1))
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	// Timestamps normalize to midnight bounds.
	p, err = NewPeriod(
		time.Date(2025, 6, 1, 15, 30, 0, 0, time.UTC),
		time.Date(2025, 6, 30, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, date(2025, 6, 1), p.Start)
	assert.Equal(t, date(2025, 6, 30), p.End)
}

func TestMonthPeriod(t *testing.T) {
	p := MonthPeriod(date(2025, 2, 14))
	assert.Equal(t, date(2025, 2, 1), p.Start)
	assert.Equal(t, date(2025, 2, 28), p.End)

	leap := MonthPeriod(date(2024, 2, 1))
	assert.Equal(t, date(2024, 2, 29), leap.End)
}

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2025-06")
	require.NoError(t, err)
	assert.Equal(t, 2025, m.Year())
	assert.Equal(t, time.June, m.Month())

	_, err = ParseMonth("June 2025")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestPeriodMonths(t *testing.T) {
	p, err := NewPeriod(date(2025, 1, 15), date(2025, 3, 10))
	require.NoError(t, err)

	months := p.Months()
	require.Len(t, months, 3)
	assert.Equal(t, date(2025, 1, 1), months[0])
	assert.Equal(t, date(2025, 2, 1), months[1])
	assert.Equal(t, date(2025, 3, 1), months[2])

	single, err := NewPeriod(date(2025, 6, 5), date(2025, 6, 5))
	require.NoError(t, err)
	assert.Len(t, single.Months(), 1)
}

func TestPeriodContains(t *testing.T) {
	p, err := NewPeriod(date(2025, 6, 1), date(2025, 6, 30))
	require.NoError(t, err)

	assert.True(t, p.Contains(date(2025, 6, 1)))
	assert.True(t, p.Contains(date(2025, 6, 30)))
	assert.True(t, p.Contains(time.Date(2025, 6, 30, 23, 59, 0, 0, time.UTC)))
	assert.False(t, p.Contains(date(2025, 5, 31)))
	assert.False(t, p.Contains(date(2025, 7, 1)))
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 30, DaysInMonth(date(2025, 6, 15)))
	assert.Equal(t, 31, DaysInMonth(date(2025, 7, 1)))
	assert.Equal(t, 28, DaysInMonth(date(2025, 2, 28)))
	assert.Equal(t, 29, DaysInMonth(date(2024, 2, 1)))
}

func TestMonthKey(t *testing.T) {
	assert.Equal(t, "2025-06", MonthKey(date(2025, 6, 15)))
	// Grouping follows the record's own date, not UTC conversion.
	loc := time.FixedZone("UTC+10", 10*3600)
	assert.Equal(t, "2025-07", MonthKey(time.Date(2025, 7, 1, 1, 0, 0, 0, loc)))
}
