// Package billing projects recurring bill due dates onto calendar periods.
package billing

import (
	"fmt"
	"time"

	"github.com/home-ledger/internal/types"
)

// Schedule describes when a bill falls due
type Schedule struct {
	DueDay    int             // day of month, clamped to short months
	Frequency types.Frequency
	StartDate *time.Time // first date the bill is active, anchors weekly/biweekly/quarterly/annual
	EndDate   *time.Time // last date the bill is active
	Active    bool
}

// Occurrences enumerates the due dates of s within [from, to] inclusive.
// Occurrences outside the schedule's start/end window are skipped; an
// inactive schedule yields nothing.
func Occurrences(s Schedule, from, to time.Time) ([]time.Time, error) {
	if !s.Active {
		return nil, nil
	}
	if !types.ValidFrequency(s.Frequency) {
		return nil, fmt.Errorf("unknown frequency: %s", s.Frequency)
	}
	from, to = midnight(from), midnight(to)
	if to.Before(from) {
		return nil, fmt.Errorf("period end %s before start %s", to.Format("2006-01-02"), from.Format("2006-01-02"))
	}

	switch s.Frequency {
	case types.FrequencyWeekly:
		return everyNDays(s, from, to, 7)
	case types.FrequencyBiweekly:
		return everyNDays(s, from, to, 14)
	case types.FrequencyMonthly:
		return everyNMonths(s, from, to, 1), nil
	case types.FrequencyQuarterly:
		return everyNMonths(s, from, to, 3), nil
	case types.FrequencyAnnual:
		return everyNMonths(s, from, to, 12), nil
	}
	return nil, nil
}

// InMonth enumerates the due dates of s within a calendar month
func InMonth(s Schedule, year int, month time.Month) ([]time.Time, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return Occurrences(s, first, last)
}

// everyNDays walks the day-anchored frequencies (weekly, biweekly) forward
// from the schedule's start date.
func everyNDays(s Schedule, from, to time.Time, step int) ([]time.Time, error) {
	if s.StartDate == nil {
		return nil, fmt.Errorf("%s schedule requires a start date", s.Frequency)
	}
	anchor := midnight(*s.StartDate)

	// Skip ahead to the first occurrence at or after from.
	cur := anchor
	if from.After(anchor) {
		gap := int(from.Sub(anchor).Hours() / 24)
		cur = anchor.AddDate(0, 0, (gap+step-1)/step*step)
	}

	var out []time.Time
	for !cur.After(to) {
		if inWindow(s, cur) {
			out = append(out, cur)
		}
		cur = cur.AddDate(0, 0, step)
	}
	return out, nil
}

// everyNMonths walks the month-anchored frequencies. Quarterly and annual
// schedules anchor on the start date's month; without one they anchor on
// January.
func everyNMonths(s Schedule, from, to time.Time, step int) []time.Time {
	anchorMonth := time.January
	if s.StartDate != nil {
		anchorMonth = s.StartDate.Month()
	}

	var out []time.Time
	cur := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cur.After(to) {
		if step == 1 || int(cur.Month()-anchorMonth)%step == 0 {
			due := dueInMonth(cur.Year(), cur.Month(), s.DueDay)
			if !due.Before(from) && !due.After(to) && inWindow(s, due) {
				out = append(out, due)
			}
		}
		cur = cur.AddDate(0, 1, 0)
	}
	return out
}

// dueInMonth clamps a due day to the length of the month
func dueInMonth(year int, month time.Month, day int) time.Time {
	if last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day(); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// inWindow reports whether d falls inside the schedule's active window
func inWindow(s Schedule, d time.Time) bool {
	if s.StartDate != nil && d.Before(midnight(*s.StartDate)) {
		return false
	}
	if s.EndDate != nil && d.After(midnight(*s.EndDate)) {
		return false
	}
	return true
}

func midnight(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}
