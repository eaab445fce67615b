// Package calendar arma la vista diaria (timeline) y mensual de la salud de una
// mascota a partir de registros de métricas y de la agenda de cuidados.
package calendar

import (
	"sort"
	"time"

	"pet-health-tracker/internal/domain/careitems"
	"pet-health-tracker/internal/domain/metrics"
	"pet-health-tracker/internal/platform/caldate"
)

type EntryType string

const (
	EntryMetric   EntryType = "metric"
	EntryCareItem EntryType = "care_item"
)

// TimelineEntry es una fila del timeline de un día: un campo de métrica o
// una ocurrencia de un item de cuidado.
type TimelineEntry struct {
	Type EntryType         `json:"type"`
	At   time.Time         `json:"at"`
	Time caldate.TimeOfDay `json:"time" swaggertype:"string"`
	// RefID es el id del registro de métricas o del item de cuidado.
	RefID      string         `json:"ref_id"`
	MetricKind metrics.Kind   `json:"metric_kind,omitempty"`
	CareKind   careitems.Kind `json:"care_kind,omitempty"`
	// Value es el valor de la métrica o el nombre del item.
	Value string `json:"value"`
}

type sortable struct {
	entry TimelineEntry
	order int
}

// AggregateDay mezcla las métricas registradas en date (visto desde loc) y las
// ocurrencias de cuidados de ese día, ordenadas por hora del día (Time). En el
// día del cambio de horario la hora repetida desempata por instante (At).
//
// Empates: métricas antes que cuidados, luego por RefID y luego por el orden
// de campos de metrics.Kinds. Mismas entradas => misma salida.
func AggregateDay(date caldate.Date, loc *time.Location, records []metrics.Record, items []careitems.CareItem) []TimelineEntry {
	if loc == nil {
		loc = time.UTC
	}

	rows := make([]sortable, 0)

	for _, rec := range records {
		at := rec.RecordedAt.In(loc)
		if caldate.Of(at) != date {
			continue
		}
		for i, f := range rec.Fields() {
			rows = append(rows, sortable{
				entry: TimelineEntry{
					Type:       EntryMetric,
					At:         at,
					Time:       caldate.TimeOfDayOf(at),
					RefID:      rec.ID,
					MetricKind: f.Kind,
					Value:      f.Value,
				},
				order: i,
			})
		}
	}

	for _, it := range items {
		if !careitems.OccursOn(it, date) {
			continue
		}
		tod := it.TimeOfDay()
		rows = append(rows, sortable{
			entry: TimelineEntry{
				Type:     EntryCareItem,
				At:       date.At(tod, loc),
				Time:     tod,
				RefID:    it.ID,
				CareKind: it.Kind,
				Value:    it.Name,
			},
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.entry.Time != b.entry.Time {
			return a.entry.Time < b.entry.Time
		}
		if !a.entry.At.Equal(b.entry.At) {
			return a.entry.At.Before(b.entry.At)
		}
		if a.entry.Type != b.entry.Type {
			return a.entry.Type == EntryMetric
		}
		if a.entry.RefID != b.entry.RefID {
			return a.entry.RefID < b.entry.RefID
		}
		return a.order < b.order
	})

	out := make([]TimelineEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.entry)
	}
	return out
}
