// Package nutrition computes calorie and macronutrient targets.
package nutrition

import (
	"fmt"
	"math"
)

// Formula selects the BMR equation
type Formula string

const (
	FormulaMifflinStJeor  Formula = "mifflin_st_jeor"
	FormulaHarrisBenedict Formula = "harris_benedict"
	// FormulaKatchMcArdle requires a body-fat percentage
	FormulaKatchMcArdle Formula = "katch_mcardle"
)

// Sex is the biological sex used by the BMR equations
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// ActivityLevel scales BMR into total daily energy expenditure
type ActivityLevel string

const (
	ActivitySedentary  ActivityLevel = "sedentary"
	ActivityLight      ActivityLevel = "lightly_active"
	ActivityModerate   ActivityLevel = "moderately_active"
	ActivityVery       ActivityLevel = "very_active"
	ActivityExtreme    ActivityLevel = "extremely_active"
)

var activityMultipliers = map[ActivityLevel]float64{
	ActivitySedentary: 1.2,
	ActivityLight:     1.375,
	ActivityModerate:  1.55,
	ActivityVery:      1.725,
	ActivityExtreme:   1.9,
}

// Goal adjusts maintenance calories
type Goal string

const (
	GoalMaintain Goal = "maintain"
	GoalCut      Goal = "cut"
	GoalBulk     Goal = "bulk"
)

var goalAdjustments = map[Goal]float64{
	GoalMaintain: 0,
	GoalCut:      -300,
	GoalBulk:     200,
}

// Calories per gram of each macronutrient.
const (
	kcalPerGramProtein = 4
	kcalPerGramCarb    = 4
	kcalPerGramFat     = 9
)

// Default per-kilogram macro allowances.
const (
	DefaultProteinPerKg = 2.0
	DefaultFatPerKg     = 1.0
)

// Profile is the input to a target calculation
type Profile struct {
	Formula      Formula       `json:"formula"`
	Sex          Sex           `json:"sex"`
	AgeYears     int           `json:"ageYears"`
	HeightCm     float64       `json:"heightCm"`
	WeightKg     float64       `json:"weightKg"`
	BodyFatPct   *float64      `json:"bodyFatPct,omitempty"` // required for Katch-McArdle
	Activity     ActivityLevel `json:"activity"`
	Goal         Goal          `json:"goal"`
	ProteinPerKg float64       `json:"proteinPerKg,omitempty"` // defaults to 2.0
	FatPerKg     float64       `json:"fatPerKg,omitempty"`     // defaults to 1.0
}

// Targets is the computed daily plan
type Targets struct {
	BMR      float64 `json:"bmr"`
	TDEE     float64 `json:"tdee"`
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"proteinG"`
	FatG     float64 `json:"fatG"`
	CarbsG   float64 `json:"carbsG"`
}

// BMR computes basal metabolic rate for the profile
func BMR(p Profile) (float64, error) {
	if p.WeightKg <= 0 || p.HeightCm <= 0 || p.AgeYears <= 0 {
		return 0, fmt.Errorf("weight, height and age must be positive")
	}

	switch p.Formula {
	case FormulaMifflinStJeor:
		base := 10*p.WeightKg + 6.25*p.HeightCm - 5*float64(p.AgeYears)
		if p.Sex == SexMale {
			return base + 5, nil
		}
		return base - 161, nil

	case FormulaHarrisBenedict:
		if p.Sex == SexMale {
			return 88.362 + 13.397*p.WeightKg + 4.799*p.HeightCm - 5.677*float64(p.AgeYears), nil
		}
		return 447.593 + 9.247*p.WeightKg + 3.098*p.HeightCm - 4.330*float64(p.AgeYears), nil

	case FormulaKatchMcArdle:
		if p.BodyFatPct == nil {
			return 0, fmt.Errorf("katch_mcardle requires a body-fat percentage")
		}
		if *p.BodyFatPct < 0 || *p.BodyFatPct >= 100 {
			return 0, fmt.Errorf("body-fat percentage out of range: %v", *p.BodyFatPct)
		}
		lean := p.WeightKg * (1 - *p.BodyFatPct/100)
		return 370 + 21.6*lean, nil

	default:
		return 0, fmt.Errorf("unknown BMR formula: %s", p.Formula)
	}
}

// TDEE scales BMR by the activity multiplier
func TDEE(bmr float64, activity ActivityLevel) (float64, error) {
	mult, ok := activityMultipliers[activity]
	if !ok {
		return 0, fmt.Errorf("unknown activity level: %s", activity)
	}
	return bmr * mult, nil
}

// Macros splits target calories into grams of protein, fat and carbs.
// Protein and fat come from the per-kilogram allowances; carbs fill whatever
// calories remain, floored at zero.
func Macros(calories, weightKg, proteinPerKg, fatPerKg float64) (proteinG, fatG, carbsG float64) {
	if proteinPerKg <= 0 {
		proteinPerKg = DefaultProteinPerKg
	}
	if fatPerKg <= 0 {
		fatPerKg = DefaultFatPerKg
	}

	proteinG = weightKg * proteinPerKg
	fatG = weightKg * fatPerKg

	remaining := calories - proteinG*kcalPerGramProtein - fatG*kcalPerGramFat
	carbsG = math.Max(0, remaining/kcalPerGramCarb)
	return proteinG, fatG, carbsG
}

// Calculate runs the full pipeline: BMR, TDEE, goal adjustment, macro split
func Calculate(p Profile) (Targets, error) {
	bmr, err := BMR(p)
	if err != nil {
		return Targets{}, err
	}

	tdee, err := TDEE(bmr, p.Activity)
	if err != nil {
		return Targets{}, err
	}

	adj, ok := goalAdjustments[p.Goal]
	if !ok {
		return Targets{}, fmt.Errorf("unknown goal: %s", p.Goal)
	}
	calories := tdee + adj

	proteinG, fatG, carbsG := Macros(calories, p.WeightKg, p.ProteinPerKg, p.FatPerKg)

	return Targets{
		BMR:      round1(bmr),
		TDEE:     round1(tdee),
		Calories: round1(calories),
		ProteinG: round1(proteinG),
		FatG:     round1(fatG),
		CarbsG:   round1(carbsG),
	}, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
