// Package invest values investment accounts over time and projects growth.
package invest

import (
	"math"
	"sort"
	"time"
)

// TxKind is the kind of a discrete account transaction
type TxKind string

const (
	TxDeposit    TxKind = "deposit"
	TxWithdrawal TxKind = "withdrawal"
	TxFee        TxKind = "fee"
	TxDividend   TxKind = "dividend"
)

// ValidTxKind reports whether k is a supported transaction kind
func ValidTxKind(k TxKind) bool {
	switch k {
	case TxDeposit, TxWithdrawal, TxFee, TxDividend:
		return true
	}
	return false
}

// Transaction is a dated cash movement on an account
type Transaction struct {
	Date   time.Time
	Kind   TxKind
	Amount float64 // always positive; Kind decides the sign
}

// Point is one day of the valuation series
type Point struct {
	Date   time.Time `json:"date"`
	Value  float64   `json:"value"`
	Manual bool      `json:"manual"` // true when pinned by a manual valuation
}

// Scenario is a named projection preset
type Scenario string

const (
	ScenarioConservative Scenario = "conservative"
	ScenarioExpected     Scenario = "expected"
	ScenarioAggressive   Scenario = "aggressive"
)

// Scenario offsets in percentage points against the account's assumed return.
const (
	conservativeOffset = -3
	aggressiveOffset   = 4
)

// DailyRate converts an annual percentage return into a daily compounding rate
func DailyRate(annualPct float64) float64 {
	return math.Pow(1+annualPct/100, 1.0/365) - 1
}

// MonthlyRate converts an annual percentage return into a monthly compounding rate
func MonthlyRate(annualPct float64) float64 {
	return math.Pow(1+annualPct/100, 1.0/12) - 1
}

// Valuation computes the day-by-day value of an account from from to to
// inclusive. The running value compounds daily at the rate derived from
// annualPct; each day's transactions apply on their calendar date; a manual
// valuation on a date replaces the computed value from that date onward.
func Valuation(txs []Transaction, annualPct float64, from, to time.Time, manual map[time.Time]float64) []Point {
	from, to = midnight(from), midnight(to)
	if to.Before(from) {
		return nil
	}

	byDay := make(map[time.Time]float64)
	for _, tx := range txs {
		byDay[midnight(tx.Date)] += signed(tx)
	}

	pinned := make(map[time.Time]float64, len(manual))
	for d, v := range manual {
		pinned[midnight(d)] = v
	}

	rate := DailyRate(annualPct)
	days := int(to.Sub(from).Hours()/24) + 1
	points := make([]Point, 0, days)

	value := 0.0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		value *= 1 + rate
		value += byDay[d]
		if v, ok := pinned[d]; ok {
			value = v
			points = append(points, Point{Date: d, Value: value, Manual: true})
			continue
		}
		points = append(points, Point{Date: d, Value: value})
	}
	return points
}

// ValuationFromSeries is a convenience over Valuation for a slice of manual
// valuations rather than a map.
func ValuationFromSeries(txs []Transaction, annualPct float64, from, to time.Time, manual []Point) []Point {
	m := make(map[time.Time]float64, len(manual))
	for _, p := range manual {
		m[midnight(p.Date)] = p.Value
	}
	return Valuation(txs, annualPct, from, to, m)
}

// Projection is the outcome of compounding forward under one scenario
type Projection struct {
	Scenario  Scenario  `json:"scenario"`
	AnnualPct float64   `json:"annualPct"`
	Months    []float64 `json:"months"` // value at the end of each month
	Final     float64   `json:"final"`
}

// Project compounds current forward monthly for the given number of months,
// adding the contribution at the start of each month.
func Project(current, monthlyContribution, annualPct float64, months int) Projection {
	rate := MonthlyRate(annualPct)
	series := make([]float64, 0, months)

	value := current
	for i := 0; i < months; i++ {
		value += monthlyContribution
		value *= 1 + rate
		series = append(series, value)
	}

	final := current
	if len(series) > 0 {
		final = series[len(series)-1]
	}
	return Projection{Scenario: ScenarioExpected, AnnualPct: annualPct, Months: series, Final: final}
}

// ProjectScenarios runs the three standard presets around the expected return
func ProjectScenarios(current, monthlyContribution, annualPct float64, months int) []Projection {
	presets := []struct {
		scenario Scenario
		pct      float64
	}{
		{ScenarioConservative, annualPct + conservativeOffset},
		{ScenarioExpected, annualPct},
		{ScenarioAggressive, annualPct + aggressiveOffset},
	}

	out := make([]Projection, 0, len(presets))
	for _, p := range presets {
		proj := Project(current, monthlyContribution, p.pct, months)
		proj.Scenario = p.scenario
		proj.AnnualPct = p.pct
		out = append(out, proj)
	}
	return out
}

func signed(tx Transaction) float64 {
	amount := math.Abs(tx.Amount)
	switch tx.Kind {
	case TxWithdrawal, TxFee:
		return -amount
	default:
		return amount
	}
}

// SortTransactions orders transactions by date ascending
func SortTransactions(txs []Transaction) {
	sort.Slice(txs, func(i, j int) bool { return txs[i].Date.Before(txs[j].Date) })
}

func midnight(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}
