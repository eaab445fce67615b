// Package reminders revisa periódicamente los cuidados pendientes y avisa a
// través de un Notifier.
package reminders

import (
	"context"
	"time"

	"pet-health-tracker/internal/domain/careitems"
	"pet-health-tracker/internal/platform/caldate"
	"pet-health-tracker/internal/platform/logger"
)

// Reminder es el aviso de un item vencido o que vence hoy.
type Reminder struct {
	CareItemID   string             `json:"care_item_id"`
	PetID        string             `json:"pet_id"`
	OwnerUserID  string             `json:"owner_user_id"`
	Kind         careitems.Kind     `json:"kind"`
	Name         string             `json:"name"`
	Dosage       string             `json:"dosage,omitempty"`
	DueDate      caldate.Date       `json:"due_date"`
	DueTime      *caldate.TimeOfDay `json:"due_time,omitempty"`
	Status       careitems.Status   `json:"status"`
	GeneratedAt  time.Time          `json:"generated_at"`
	GeneratedFor caldate.Date       `json:"generated_for"` // "hoy" local de la corrida
}

type Notifier interface {
	Notify(ctx context.Context, r Reminder) error
}

// LogNotifier sólo loguea; es el default cuando no hay Kafka configurado.
type LogNotifier struct {
	Log logger.Logger
}

func (n LogNotifier) Notify(ctx context.Context, r Reminder) error {
	n.Log.Info("care reminder", map[string]any{
		"care_item_id":  r.CareItemID,
		"pet_id":        r.PetID,
		"owner_user_id": r.OwnerUserID,
		"kind":          string(r.Kind),
		"name":          r.Name,
		"due_date":      r.DueDate.String(),
		"status":        string(r.Status),
	})
	return nil
}
