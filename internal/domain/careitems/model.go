package careitems

import (
	"time"

	"pet-health-tracker/internal/platform/caldate"
)

type Kind string

const (
	KindMedication  Kind = "medication"
	KindVaccination Kind = "vaccination"
)

func (k Kind) Valid() bool {
	return k == KindMedication || k == KindVaccination
}

// CareItem es una medicación o vacuna agendada para una mascota.
type CareItem struct {
	ID          string
	PetID       string
	OwnerUserID string

	Kind Kind
	Name string

	DueDate caldate.Date
	DueTime *caldate.TimeOfDay // nil => medianoche

	Repeat             bool
	RepeatIntervalDays int // sólo si Repeat

	Completed   bool
	CompletedAt *time.Time

	ExpiresAt *time.Time // sólo medicaciones

	Dosage string
	Notes  string

	// PreviousID apunta a la ocurrencia que generó este item (series repetitivas).
	PreviousID string
	// PendingSuccessorID queda seteado mientras el sucesor no está confirmado
	// en stores sin transacción; lo limpia la reconciliación.
	PendingSuccessorID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TimeOfDay devuelve la hora configurada o medianoche.
func (c CareItem) TimeOfDay() caldate.TimeOfDay {
	if c.DueTime == nil {
		return 0
	}
	return *c.DueTime
}

// Occurrence es la proyección de un CareItem sobre un día concreto (no se persiste).
type Occurrence struct {
	CareItemID string            `json:"care_item_id"`
	Date       caldate.Date      `json:"date"`
	Time       caldate.TimeOfDay `json:"time"`
}

type Outcome string

const (
	OutcomeCompleted                     Outcome = "completed"
	OutcomeCompletedWithPendingSuccessor Outcome = "completed_with_pending_successor"
)

// CompletionResult describe qué quedó aplicado al completar.
// Successor es nil para items no repetitivos y cuando el sucesor quedó pendiente.
type CompletionResult struct {
	Outcome   Outcome
	Completed CareItem
	Successor *CareItem
}

type ListFilter struct {
	Kind             Kind
	IncludeCompleted bool
}
