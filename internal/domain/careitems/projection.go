package careitems

import "pet-health-tracker/internal/platform/caldate"

// ProjectOccurrences devuelve los días en [from, to] en que el item vence.
//
// Completados no se proyectan. No repetitivos: a lo sumo su fecha de vencimiento.
// Repetitivos: due, due+k, due+2k... mientras no pasen de to.
// Un intervalo <= 0 se trata como una sola ocurrencia (nunca itera).
func ProjectOccurrences(item CareItem, from, to caldate.Date) []Occurrence {
	if item.Completed || item.DueDate.IsZero() || from.After(to) {
		return nil
	}

	due := item.DueDate
	if due.After(to) {
		return nil
	}

	occ := func(d caldate.Date) Occurrence {
		return Occurrence{CareItemID: item.ID, Date: d, Time: item.TimeOfDay()}
	}

	k := item.RepeatIntervalDays
	if !item.Repeat || k <= 0 {
		if due.Before(from) {
			return nil
		}
		return []Occurrence{occ(due)}
	}

	// Saltar directo a la primera ocurrencia >= from.
	cur := due
	if cur.Before(from) {
		steps := (cur.DaysUntil(from) + k - 1) / k
		cur = cur.AddDays(steps * k)
	}
	if cur.After(to) {
		return nil
	}

	out := make([]Occurrence, 0, cur.DaysUntil(to)/k+1)
	for !cur.After(to) {
		out = append(out, occ(cur))
		cur = cur.AddDays(k)
	}
	return out
}

// OccursOn es ProjectOccurrences sobre el rango [d, d].
func OccursOn(item CareItem, d caldate.Date) bool {
	return len(ProjectOccurrences(item, d, d)) > 0
}
