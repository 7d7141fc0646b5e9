package models

import (
	"time"

	"github.com/home-ledger/internal/nutrition"
)

// WeeklyNutritionTarget persists computed targets for one shopping week.
// The inputs snapshot lets the calculation be re-run or audited later.
type WeeklyNutritionTarget struct {
	ID        string            `json:"id" db:"id"`
	UserID    string            `json:"userId" db:"user_id"`
	WeekStart time.Time         `json:"weekStart" db:"week_start"` // always a Sunday
	Targets   nutrition.Targets `json:"targets" db:"targets"`
	Inputs    nutrition.Profile `json:"inputs" db:"inputs"`
	CreatedAt time.Time         `json:"createdAt" db:"created_at"`
}

// MealPlanBlackout removes a date range from meal planning
type MealPlanBlackout struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	StartDate time.Time `json:"startDate" db:"start_date"`
	EndDate   time.Time `json:"endDate" db:"end_date"`
	Reason    string    `json:"reason" db:"reason"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
