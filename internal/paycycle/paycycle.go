// Package paycycle computes salary cycle boundaries.
//
// A pay cycle runs from one (adjusted) payday to the day before the next.
// Paydays are a fixed day of the month, clamped for short months, and
// optionally shifted off weekends and holidays by an adjustment rule.
package paycycle

import (
	"fmt"
	"time"
)

// Rule describes how a payday falling on a non-working day is adjusted
type Rule string

const (
	// RuleNone leaves the payday where it falls
	RuleNone Rule = "none"
	// RulePrevious moves the payday back to the previous working day
	RulePrevious Rule = "previous_working_day"
	// RuleNext moves the payday forward to the next working day
	RuleNext Rule = "next_working_day"
	// RuleClosest moves the payday to the nearest working day, ties going earlier
	RuleClosest Rule = "closest_working_day"
)

// ValidRule reports whether r is a supported adjustment rule
func ValidRule(r Rule) bool {
	switch r {
	case RuleNone, RulePrevious, RuleNext, RuleClosest:
		return true
	}
	return false
}

// Cycle represents one pay period, inclusive of both endpoints
type Cycle struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether d falls inside the cycle
func (c Cycle) Contains(d time.Time) bool {
	d = midnight(d)
	return !d.Before(c.Start) && !d.After(c.End)
}

// Current returns the pay cycle containing ref.
//
// payday is the nominal day of month (1-31); days beyond the length of a
// month clamp to its last day. holidays are extra non-working days on top of
// weekends.
func Current(payday int, rule Rule, ref time.Time, holidays []time.Time) (Cycle, error) {
	if payday < 1 || payday > 31 {
		return Cycle{}, fmt.Errorf("payday must be between 1 and 31, got %d", payday)
	}
	if !ValidRule(rule) {
		return Cycle{}, fmt.Errorf("unknown adjustment rule: %s", rule)
	}

	ref = midnight(ref)
	holidaySet := toSet(holidays)

	// An adjustment can shift a payday across a month boundary in either
	// direction, so the cycle containing ref may be anchored by a payday
	// nominally belonging to an adjacent month. Scan the surrounding
	// months, take the latest adjusted payday not after ref as the start,
	// and the one following it as the boundary of the next cycle.
	monthStart := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
	var start, nextStart time.Time
	for offset := -2; offset <= 2; offset++ {
		m := monthStart.AddDate(0, offset, 0)
		c := paydayFor(m.Year(), m.Month(), payday, rule, holidaySet)
		if !c.After(ref) {
			if start.IsZero() || c.After(start) {
				start = c
			}
			continue
		}
		if nextStart.IsZero() || c.Before(nextStart) {
			nextStart = c
		}
	}

	return Cycle{Start: start, End: nextStart.AddDate(0, 0, -1)}, nil
}

// Next returns the cycle immediately after the one containing ref
func Next(payday int, rule Rule, ref time.Time, holidays []time.Time) (Cycle, error) {
	cur, err := Current(payday, rule, ref, holidays)
	if err != nil {
		return Cycle{}, err
	}
	return Current(payday, rule, cur.End.AddDate(0, 0, 1), holidays)
}

// paydayFor computes the adjusted payday for a specific month
func paydayFor(year int, month time.Month, payday int, rule Rule, holidays map[time.Time]bool) time.Time {
	day := payday
	if last := daysIn(year, month); day > last {
		day = last
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return adjust(d, rule, holidays)
}

// adjust shifts d off weekends and holidays according to rule
func adjust(d time.Time, rule Rule, holidays map[time.Time]bool) time.Time {
	if rule == RuleNone || isWorking(d, holidays) {
		return d
	}

	switch rule {
	case RulePrevious:
		for !isWorking(d, holidays) {
			d = d.AddDate(0, 0, -1)
		}
	case RuleNext:
		for !isWorking(d, holidays) {
			d = d.AddDate(0, 0, 1)
		}
	case RuleClosest:
		prev, next := d, d
		for !isWorking(prev, holidays) {
			prev = prev.AddDate(0, 0, -1)
		}
		for !isWorking(next, holidays) {
			next = next.AddDate(0, 0, 1)
		}
		// Ties resolve to the earlier working day.
		if d.Sub(prev) <= next.Sub(d) {
			return prev
		}
		return next
	}
	return d
}

func isWorking(d time.Time, holidays map[time.Time]bool) bool {
	if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		return false
	}
	return !holidays[midnight(d)]
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func midnight(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func toSet(days []time.Time) map[time.Time]bool {
	set := make(map[time.Time]bool, len(days))
	for _, d := range days {
		set[midnight(d)] = true
	}
	return set
}
