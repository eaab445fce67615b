package careitems

import "time"

// NextDueDate es due + intervalo (días exactos, sin semántica de meses).
func NextDueDate(item CareItem) (next CareItem, ok bool) {
	if !item.Repeat || item.RepeatIntervalDays <= 0 {
		return CareItem{}, false
	}
	next = item
	next.DueDate = item.DueDate.AddDays(item.RepeatIntervalDays)
	return next, true
}

// Complete marca el item como completado y, si se repite, arma el sucesor
// con identidad nueva, vencimiento desplazado y completed=false.
// No escribe nada: aplicar ambos cambios juntos es responsabilidad del Service.
func Complete(item CareItem, successorID string, now time.Time) (CareItem, *CareItem) {
	done := item
	done.Completed = true
	done.CompletedAt = &now
	done.PendingSuccessorID = ""
	done.UpdatedAt = now

	next, ok := NextDueDate(item)
	if !ok {
		return done, nil
	}

	next.ID = successorID
	next.Completed = false
	next.CompletedAt = nil
	next.PreviousID = item.ID
	next.PendingSuccessorID = ""
	next.CreatedAt = now
	next.UpdatedAt = now

	return done, &next
}

// Delay corre el vencimiento exactamente un día. No toca completed ni crea sucesor.
func Delay(item CareItem, now time.Time) CareItem {
	item.DueDate = item.DueDate.AddDays(1)
	item.UpdatedAt = now
	return item
}
