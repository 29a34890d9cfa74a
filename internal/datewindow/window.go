// Package datewindow models the half-open daily date range every engine
// run is scoped to.
package datewindow

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidWindow = errors.New("invalid_window")
	ErrWindowTooLong = errors.New("window_too_long")
)

// Window is an inclusive range of calendar days [Start, End], both
// truncated to midnight UTC.
type Window struct {
	Start time.Time
	End   time.Time
}

// New truncates both bounds to day precision in UTC.
func New(start, end time.Time) Window {
	return Window{Start: Day(start), End: Day(end)}
}

// Parse builds a window from two ISO dates.
func Parse(start, end string) (Window, error) {
	s, err := time.Parse(time.DateOnly, start)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %s", ErrInvalidWindow, start)
	}
	e, err := time.Parse(time.DateOnly, end)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %s", ErrInvalidWindow, end)
	}
	return New(s, e), nil
}

// Validate rejects inverted or oversized windows.
func (w Window) Validate(maxDays int) error {
	if w.Start.IsZero() || w.End.IsZero() || w.End.Before(w.Start) {
		return ErrInvalidWindow
	}
	if maxDays > 0 && w.Days() > maxDays {
		return ErrWindowTooLong
	}
	return nil
}

// Days returns the number of calendar days covered by the window.
func (w Window) Days() int {
	return int(w.End.Sub(w.Start).Hours()/24) + 1
}

// Clamp intersects the window with an entity's active range. An open-ended
// entity (nil end) is clamped only on the start side. ok is false when the
// intersection is empty.
func (w Window) Clamp(entityStart time.Time, entityEnd *time.Time) (Window, bool) {
	start := w.Start
	if es := Day(entityStart); es.After(start) {
		start = es
	}
	end := w.End
	if entityEnd != nil {
		if ee := Day(*entityEnd); ee.Before(end) {
			end = ee
		}
	}
	if end.Before(start) {
		return Window{}, false
	}
	return Window{Start: start, End: end}, true
}

// EachDay invokes fn for every calendar day in the window, in order.
func (w Window) EachDay(fn func(day time.Time) error) error {
	for day := w.Start; !day.After(w.End); day = day.AddDate(0, 0, 1) {
		if err := fn(day); err != nil {
			return err
		}
	}
	return nil
}

// Key returns a stable scope fragment for stage bookkeeping.
func (w Window) Key() string {
	return w.Start.Format(time.DateOnly) + ":" + w.End.Format(time.DateOnly)
}

// NextDay returns the exclusive end bound (End + 1 day, midnight UTC).
func (w Window) NextDay() time.Time {
	return w.End.AddDate(0, 0, 1)
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
