package careitems

import (
	"time"

	"pet-health-tracker/internal/platform/caldate"
)

type Status string

const (
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
	StatusOverdue   Status = "overdue"
	StatusDueToday  Status = "due_today"
	StatusUpcoming  Status = "upcoming"
)

// Classify ubica el item respecto de now en la zona loc (nil => UTC).
func Classify(item CareItem, now time.Time, loc *time.Location) Status {
	if loc == nil {
		loc = time.UTC
	}

	if item.Completed {
		return StatusCompleted
	}
	if item.Kind == KindMedication && item.ExpiresAt != nil && !now.Before(*item.ExpiresAt) {
		return StatusExpired
	}

	today := caldate.In(now, loc)
	switch {
	case item.DueDate.Before(today):
		return StatusOverdue
	case item.DueDate == today:
		if item.DueTime != nil && now.After(item.DueDate.At(*item.DueTime, loc)) {
			return StatusOverdue
		}
		return StatusDueToday
	default:
		return StatusUpcoming
	}
}
