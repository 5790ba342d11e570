package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RatioTolerance is the allowed deviation of a blend's ratio sum from 100.
const RatioTolerance = 0.01

var (
	errRequired     = errors.New("is required")
	errOutOfRange   = errors.New("is out of range")
	errUnknownValue = errors.New("is not a known value")
)

// Validate checks the required fields of a recommendation request.
func (r RecommendationRequest) Validate() error {
	if strings.TrimSpace(r.DesiredEffect) == "" {
		return NewValidationError("desired_effect", "", errRequired)
	}
	if r.TimeOfDay == "" {
		return NewValidationError("time_of_day", "", errRequired)
	}
	if !r.TimeOfDay.Valid() {
		return NewValidationError("time_of_day", string(r.TimeOfDay), errUnknownValue)
	}
	if r.IntensityNeeded != 0 && (r.IntensityNeeded < 1 || r.IntensityNeeded > 5) {
		return NewValidationError("intensity_needed", strconv.Itoa(r.IntensityNeeded), errOutOfRange)
	}
	if r.RecentCaffeine < 0 {
		return NewValidationError("recent_caffeine", formatFloat(r.RecentCaffeine), errOutOfRange)
	}
	if mc := r.Preferences.MaxCaffeine; mc != nil && *mc < 0 {
		return NewValidationError("preferences.max_caffeine", formatFloat(*mc), errOutOfRange)
	}
	switch r.Preferences.Temperature {
	case "", "hot", "iced", "either":
	default:
		return NewValidationError("preferences.temperature", r.Preferences.Temperature, errUnknownValue)
	}
	return nil
}

// Validate checks the required fields of a blend creation request.
func (r BlendCreationRequest) Validate() error {
	if len(r.Targets()) == 0 {
		return NewValidationError("target_effects", "", errRequired)
	}
	if mc := r.MaxCaffeineMg; mc != nil && *mc < 0 {
		return NewValidationError("max_caffeine_mg", formatFloat(*mc), errOutOfRange)
	}
	if b := r.BudgetPerCup; b != nil && *b < 0 {
		return NewValidationError("budget_per_cup", formatFloat(*b), errOutOfRange)
	}
	return nil
}

// Targets returns the trimmed, non-empty target effects.
func (r BlendCreationRequest) Targets() []string {
	out := make([]string, 0, len(r.TargetEffects))
	for _, t := range r.TargetEffects {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Validate checks a knowledge-base question.
func (r RAGQueryRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return NewValidationError("query", "", errRequired)
	}
	if r.Limit < 0 {
		return NewValidationError("limit", strconv.Itoa(r.Limit), errOutOfRange)
	}
	return nil
}

// CheckRatios verifies that every ratio lies in [0, 100] and that the
// ratios sum to 100 within RatioTolerance. NaN fails both checks.
func CheckRatios(components []BlendComponent) error {
	if len(components) == 0 {
		return fmt.Errorf("blend has no components")
	}
	sum := 0.0
	for i, c := range components {
		if !(c.Ratio >= 0 && c.Ratio <= 100) {
			return fmt.Errorf("component %d ratio %.2f outside [0, 100]", i, c.Ratio)
		}
		sum += c.Ratio
	}
	if !(math.Abs(sum-100) <= RatioTolerance) {
		return fmt.Errorf("component ratios sum to %.4f, want 100", sum)
	}
	return nil
}

// TimingViolation is a TeaEffect whose onset or duration falls outside the
// validated range of its effect.
type TimingViolation struct {
	Tea    string `json:"tea"`
	Effect string `json:"effect"`
	Issue  string `json:"issue"`
}

func (v TimingViolation) String() string {
	return fmt.Sprintf("%s: %s: %s", v.Tea, v.Effect, v.Issue)
}

// CheckTiming compares one tea effect with its effect's validated ranges.
// A zero range maximum means the range is unknown and is not checked.
func CheckTiming(tea string, e Effect, onset, duration int) []TimingViolation {
	var out []TimingViolation
	add := func(issue string) {
		out = append(out, TimingViolation{Tea: tea, Effect: e.Name, Issue: issue})
	}
	if e.OnsetRangeMax > 0 {
		if onset < e.OnsetRangeMin {
			add(fmt.Sprintf("onset %d < min %d", onset, e.OnsetRangeMin))
		}
		if onset > e.OnsetRangeMax {
			add(fmt.Sprintf("onset %d > max %d", onset, e.OnsetRangeMax))
		}
	}
	if e.DurationRangeMax > 0 {
		if duration < e.DurationRangeMin {
			add(fmt.Sprintf("duration %d < min %d", duration, e.DurationRangeMin))
		}
		if duration > e.DurationRangeMax {
			add(fmt.Sprintf("duration %d > max %d", duration, e.DurationRangeMax))
		}
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
