package metrics

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("metric record not found")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func normalize(r Record) Record {
	r.FoodIntake = strings.ToLower(strings.TrimSpace(r.FoodIntake))
	r.Behavior = strings.TrimSpace(r.Behavior)
	r.Notes = strings.TrimSpace(r.Notes)
	return r
}

// Validate exige al menos un campo y valida rangos.
func Validate(r Record) error {
	if r.RecordedAt.IsZero() {
		return invalid("recorded_at", "is required")
	}
	if len(r.Fields()) == 0 {
		return invalid("record", "at least one metric is required")
	}
	if r.WeightKg != nil {
		w := *r.WeightKg
		if math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
			return invalid("weight_kg", "must be greater than 0")
		}
	}
	if r.ActivityLevel != nil {
		if a := *r.ActivityLevel; a < 1 || a > 10 {
			return invalid("activity_level", "must be between 1 and 10")
		}
	}
	if r.SleepHours != nil {
		s := *r.SleepHours
		if math.IsNaN(s) || s < 0 || s > 24 {
			return invalid("sleep_hours", "must be between 0 and 24")
		}
	}
	return nil
}
