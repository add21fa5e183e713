// ABOUTME: Per-collection validators for candidate records
// ABOUTME: Numbers may arrive as JSON numbers, Go numerics or numeric strings

package store

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// MaxScores maps a test type to its highest possible score.
var MaxScores = map[string]float64{
	"phq15": 45,
}

// DefaultMaxScore applies to test results without a known type.
const DefaultMaxScore = 45

func invalid(reason string) error {
	return &ValidationError{Reason: reason}
}

// ValidatorFor returns the validator for collection c, or nil.
func ValidatorFor(c Collection) Validator {
	switch c {
	case Workouts:
		return ValidateWorkout
	case Meditations:
		return ValidateMeditation
	case Code:
		return ValidateCode
	case Goals:
		return ValidateGoal
	case Achievements:
		return ValidateAchievement
	case Program:
		return ValidateProgram
	case TestResults:
		return ValidateTestResult
	}
	return nil
}

// ValidateWorkout requires date and exercise; sets, reps and weight must be
// non-negative numbers when given.
func ValidateWorkout(r Record) error {
	if !present(r["date"]) {
		return invalid("date is required")
	}
	if !nonBlank(r["exercise"]) {
		return invalid("exercise is required")
	}
	for _, field := range []string{"sets", "reps", "weight"} {
		if !present(r[field]) {
			continue
		}
		n, ok := Number(r[field])
		if !ok || n < 0 {
			return invalid(field + " must be a number >= 0")
		}
	}
	return nil
}

// ValidateMeditation requires date and a positive number of minutes.
func ValidateMeditation(r Record) error {
	if !present(r["date"]) {
		return invalid("date is required")
	}
	n, ok := Number(r["minutes"])
	if !ok || n <= 0 {
		return invalid("minutes must be a number > 0")
	}
	return nil
}

// ValidateGoal requires a name (older records used "goal"); progress must be
// within 0..100 when given.
func ValidateGoal(r Record) error {
	if !nonBlank(r["name"]) && !nonBlank(r["goal"]) {
		return invalid("name is required")
	}
	if present(r["progress"]) {
		n, ok := Number(r["progress"])
		if !ok || n < 0 || n > 100 {
			return invalid("progress must be between 0 and 100")
		}
	}
	return nil
}

// ValidateCode requires non-empty text.
func ValidateCode(r Record) error {
	if !nonBlank(r["text"]) {
		return invalid("text is required")
	}
	return nil
}

// ValidateAchievement requires non-empty text.
func ValidateAchievement(r Record) error {
	if !nonBlank(r["text"]) {
		return invalid("text is required")
	}
	return nil
}

// ValidateProgram requires day and exercise, at least one set and rep, and a
// non-negative weight.
func ValidateProgram(r Record) error {
	if !present(r["day"]) {
		return invalid("day is required")
	}
	if !nonBlank(r["exercise"]) {
		return invalid("exercise is required")
	}
	if n, ok := Number(r["sets"]); !ok || n < 1 {
		return invalid("sets must be at least 1")
	}
	if n, ok := Number(r["reps"]); !ok || n < 1 {
		return invalid("reps must be at least 1")
	}
	if n, ok := Number(r["weight"]); !ok || n < 0 {
		return invalid("weight must be a number >= 0")
	}
	return nil
}

// ValidateTestResult requires a score between 0 and the maximum for the test type.
func ValidateTestResult(r Record) error {
	if r["score"] == nil {
		return invalid("score is required")
	}
	n, ok := Number(r["score"])
	if !ok {
		return invalid("score must be a number")
	}
	maxScore := float64(DefaultMaxScore)
	if t, _ := r["type"].(string); t != "" {
		if m, known := MaxScores[t]; known {
			maxScore = m
		}
	}
	if n < 0 || n > maxScore {
		return invalid("score must be between 0 and " + strconv.FormatFloat(maxScore, 'f', -1, 64))
	}
	return nil
}

// Number converts v to a float64 if it holds a finite numeric value.
func Number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// present treats nil, "", false and zero as absent.
func present(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	}
	if n, ok := Number(v); ok {
		return n != 0
	}
	return true
}

func nonBlank(v any) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) != ""
}
