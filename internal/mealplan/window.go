// Package mealplan maps calendar dates onto shopping weeks.
//
// A shopping week is a fixed 9-day inclusive window running Sunday through
// the Monday of the following week. Consecutive windows overlap on their
// final Sunday and Monday; boundary dates resolve to the older window so a
// part-finished week is never abandoned early.
package mealplan

import "time"

// WindowDays is the inclusive length of a shopping week
const WindowDays = 9

// Window is one shopping week
type Window struct {
	Start time.Time `json:"start"` // always a Sunday
	End   time.Time `json:"end"`   // always the Monday 8 days later
}

// Blackout is a date range removed from meal planning
type Blackout struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Reason string    `json:"reason,omitempty"`
}

// WindowFor returns the shopping week containing anchor. A Monday anchor is
// the endpoint of the window that began 8 days earlier and resolves to that
// window, not to the one that started the previous day.
func WindowFor(anchor time.Time) Window {
	anchor = midnight(anchor)

	var start time.Time
	switch anchor.Weekday() {
	case time.Monday:
		start = anchor.AddDate(0, 0, -(WindowDays - 1))
	default:
		start = anchor.AddDate(0, 0, -int(anchor.Weekday()))
	}

	return Window{Start: start, End: start.AddDate(0, 0, WindowDays-1)}
}

// Contains reports whether d falls inside the window
func (w Window) Contains(d time.Time) bool {
	d = midnight(d)
	return !d.Before(w.Start) && !d.After(w.End)
}

// Days lists every date in the window
func (w Window) Days() []time.Time {
	days := make([]time.Time, 0, WindowDays)
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// ActiveDays lists the window's dates with blackout ranges removed
func (w Window) ActiveDays(blackouts []Blackout) []time.Time {
	var out []time.Time
	for _, d := range w.Days() {
		if !blackedOut(d, blackouts) {
			out = append(out, d)
		}
	}
	return out
}

func blackedOut(d time.Time, blackouts []Blackout) bool {
	for _, b := range blackouts {
		if !d.Before(midnight(b.Start)) && !d.After(midnight(b.End)) {
			return true
		}
	}
	return false
}

func midnight(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}
