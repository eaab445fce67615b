package careitems

import (
	"errors"
	"strings"

	"pet-health-tracker/internal/platform/caldate"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("care item not found")
	ErrBadState      = errors.New("invalid state")
	ErrAlreadyExists = errors.New("care item already exists")
)

// ValidationError lleva el campo y un motivo legible. errors.Is(err, ErrInvalidInput) es true.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// normalize limpia texto y descarta el intervalo cuando no se repite.
func normalize(c CareItem) CareItem {
	c.Name = strings.TrimSpace(c.Name)
	c.Dosage = strings.TrimSpace(c.Dosage)
	c.Notes = strings.TrimSpace(c.Notes)
	if !c.Repeat {
		c.RepeatIntervalDays = 0
	}
	return c
}

// Validate corre antes de cualquier escritura. birthDate puede ser nil.
func Validate(c CareItem, birthDate *caldate.Date) error {
	if !c.Kind.Valid() {
		return invalid("kind", "must be medication or vaccination")
	}
	if c.Name == "" {
		return invalid("name", "is required")
	}
	if c.DueDate.IsZero() {
		return invalid("due_date", "is required")
	}
	if c.DueTime != nil && !c.DueTime.Valid() {
		return invalid("due_time", "must be HH:MM")
	}
	if c.Repeat && c.RepeatIntervalDays <= 0 {
		return invalid("repeat_interval_days", "must be a positive number of days when repeat is true")
	}
	if birthDate != nil && c.DueDate.Before(*birthDate) {
		return invalid("due_date", "must not precede the pet's birth date")
	}
	if c.ExpiresAt != nil && c.Kind != KindMedication {
		return invalid("expires_at", "only applies to medications")
	}
	return nil
}
