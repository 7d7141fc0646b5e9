// Package stock forecasts consumable run-out and reorder urgency.
//
// A daily usage rate is estimated from a rolling window of usage logs and
// combined with the remaining quantity to project a run-out date. Walking
// backward from run-out through the supplier's dispatch and delivery windows
// gives the latest safe order date, which classifies into a reorder status.
package stock

import (
	"sort"
	"time"

	"github.com/home-ledger/internal/types"
)

// DefaultWindow is the rolling window considered when estimating usage
const DefaultWindow = 90 * 24 * time.Hour

// reorderSoonHorizon is how far ahead of the order-by date the status
// escalates from plenty to reorder_soon
const reorderSoonHorizon = 7

// UsageLog is a single consumption record
type UsageLog struct {
	At       time.Time
	Quantity float64
}

// ShippingProfile describes a supplier's dispatch and delivery behaviour
type ShippingProfile struct {
	DispatchMinDays    int  `json:"dispatchMinDays"`
	DispatchMaxDays    int  `json:"dispatchMaxDays"`
	DeliveryMinDays    int  `json:"deliveryMinDays"`
	DeliveryMaxDays    int  `json:"deliveryMaxDays"`
	DispatchesWeekends bool `json:"dispatchesWeekends"`
	DeliversWeekends   bool `json:"deliversWeekends"`
	CutoffHour         int  `json:"cutoffHour"` // orders after this hour dispatch next day
}

// Rate is a usage-rate estimate
type Rate struct {
	PerDay     float64              `json:"perDay"`
	Samples    int                  `json:"samples"`
	Confidence types.ConfidenceTier `json:"confidence"`
}

// Forecast is the full projection for one item
type Forecast struct {
	Rate          Rate                `json:"rate"`
	DaysRemaining float64             `json:"daysRemaining"`
	RunOutDate    *time.Time          `json:"runOutDate,omitempty"`
	OrderByDate   *time.Time          `json:"orderByDate,omitempty"`
	Status        types.ReorderStatus `json:"status"`
}

// UsageRate estimates daily consumption from logs within the window ending
// at now. Fewer than 3 samples gives no estimate.
func UsageRate(logs []UsageLog, window time.Duration, now time.Time) Rate {
	if window <= 0 {
		window = DefaultWindow
	}
	cutoff := now.Add(-window)

	var inWindow []UsageLog
	for _, l := range logs {
		if !l.At.Before(cutoff) && !l.At.After(now) {
			inWindow = append(inWindow, l)
		}
	}
	if len(inWindow) < 3 {
		return Rate{Samples: len(inWindow), Confidence: types.ConfidenceNone}
	}

	sort.Slice(inWindow, func(i, j int) bool { return inWindow[i].At.Before(inWindow[j].At) })

	var total float64
	for _, l := range inWindow {
		total += l.Quantity
	}
	spanDays := now.Sub(inWindow[0].At).Hours() / 24
	if spanDays < 1 {
		spanDays = 1
	}

	return Rate{
		PerDay:     total / spanDays,
		Samples:    len(inWindow),
		Confidence: confidence(len(inWindow)),
	}
}

func confidence(samples int) types.ConfidenceTier {
	switch {
	case samples >= 30:
		return types.ConfidenceHigh
	case samples >= 10:
		return types.ConfidenceMedium
	case samples >= 3:
		return types.ConfidenceLow
	default:
		return types.ConfidenceNone
	}
}

// RunOut projects the date remaining stock is exhausted at the given rate
func RunOut(remaining, perDay float64, now time.Time) (daysRemaining float64, runOut time.Time, ok bool) {
	if perDay <= 0 || remaining < 0 {
		return 0, time.Time{}, false
	}
	daysRemaining = remaining / perDay
	runOut = midnight(now).AddDate(0, 0, int(daysRemaining))
	return daysRemaining, runOut, true
}

// OrderBy computes the latest date an order can be placed and still arrive
// by runOut, assuming worst-case dispatch and delivery. Days the courier
// does not deliver (or the supplier does not dispatch) on weekends do not
// count toward the respective window. If the result lands on today but the
// cutoff hour has already passed, the order effectively needed placing
// yesterday.
func OrderBy(runOut time.Time, p ShippingProfile, now time.Time) time.Time {
	d := midnight(runOut)
	d = walkBack(d, p.DeliveryMaxDays, p.DeliversWeekends)
	d = walkBack(d, p.DispatchMaxDays, p.DispatchesWeekends)

	if d.Equal(midnight(now)) && p.CutoffHour > 0 && now.Hour() >= p.CutoffHour {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// walkBack steps back n counting days, skipping weekends when they do not
// count toward the window.
func walkBack(d time.Time, n int, weekendsCount bool) time.Time {
	for counted := 0; counted < n; {
		d = d.AddDate(0, 0, -1)
		if !weekendsCount && isWeekend(d) {
			continue
		}
		counted++
	}
	return d
}

// Status classifies an order-by date against today
func Status(orderBy *time.Time, now time.Time) types.ReorderStatus {
	if orderBy == nil {
		return types.ReorderNoData
	}
	today := midnight(now)
	ob := midnight(*orderBy)
	switch {
	case ob.Before(today):
		return types.ReorderOverdue
	case ob.Equal(today):
		return types.ReorderNow
	case !ob.After(today.AddDate(0, 0, reorderSoonHorizon)):
		return types.ReorderSoon
	default:
		return types.ReorderPlenty
	}
}

// Evaluate runs the full pipeline for one item
func Evaluate(remaining float64, logs []UsageLog, p ShippingProfile, window time.Duration, now time.Time) Forecast {
	rate := UsageRate(logs, window, now)

	f := Forecast{Rate: rate, Status: types.ReorderNoData}
	if rate.Confidence == types.ConfidenceNone {
		return f
	}

	days, runOut, ok := RunOut(remaining, rate.PerDay, now)
	if !ok {
		return f
	}
	f.DaysRemaining = days
	f.RunOutDate = &runOut

	orderBy := OrderBy(runOut, p, now)
	f.OrderByDate = &orderBy
	f.Status = Status(&orderBy, now)
	return f
}

func isWeekend(d time.Time) bool {
	return d.Weekday() == time.Saturday || d.Weekday() == time.Sunday
}

func midnight(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}
