package datewindow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndDays(t *testing.T) {
	w, err := Parse("2024-02-01", "2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, 29, w.Days())
	assert.Equal(t, "2024-02-01:2024-02-29", w.Key())

	_, err = Parse("2024-13-01", "2024-02-29")
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestValidate(t *testing.T) {
	w, err := Parse("2024-03-10", "2024-03-01")
	require.NoError(t, err)
	assert.ErrorIs(t, w.Validate(366), ErrInvalidWindow)

	w, err = Parse("2024-01-01", "2025-06-30")
	require.NoError(t, err)
	assert.ErrorIs(t, w.Validate(366), ErrWindowTooLong)
	assert.NoError(t, w.Validate(0))
}

func TestClamp(t *testing.T) {
	w, _ := Parse("2024-02-01", "2024-02-29")

	end := time.Date(2024, 2, 20, 15, 30, 0, 0, time.UTC)
	clamped, ok := w.Clamp(time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), &end)
	require.True(t, ok)
	assert.Equal(t, "2024-02-10:2024-02-20", clamped.Key())

	// Open-ended entity only clamps the start side.
	clamped, ok = w.Clamp(time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), nil)
	require.True(t, ok)
	assert.Equal(t, "2024-02-15:2024-02-29", clamped.Key())

	// Disjoint ranges produce no window.
	_, ok = w.Clamp(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), nil)
	assert.False(t, ok)
}

func TestEachDayOrder(t *testing.T) {
	w, _ := Parse("2024-02-27", "2024-03-02")
	var days []string
	_ = w.EachDay(func(d time.Time) error {
		days = append(days, d.Format(time.DateOnly))
		return nil
	})
	assert.Equal(t, []string{"2024-02-27", "2024-02-28", "2024-02-29", "2024-03-01", "2024-03-02"}, days)
}
