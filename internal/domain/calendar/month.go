package calendar

import (
	"sort"
	"time"

	"pet-health-tracker/internal/domain/careitems"
	"pet-health-tracker/internal/domain/metrics"
	"pet-health-tracker/internal/platform/caldate"
)

// Day es una celda del calendario mensual.
type Day struct {
	Date        caldate.Date           `json:"date" swaggertype:"string"`
	MetricKinds []metrics.Kind         `json:"metric_kinds"`
	RecordCount int                    `json:"record_count"`
	Occurrences []careitems.Occurrence `json:"occurrences"`
}

type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month" swaggertype:"integer"`
	Days  []Day      `json:"days"`
}

// MonthRange devuelve el primer y último día del mes.
func MonthRange(year int, month time.Month) (caldate.Date, caldate.Date) {
	first := caldate.New(year, month, 1)
	last := caldate.New(year, month+1, 1).AddDays(-1)
	return first, last
}

// BuildMonth arma una celda por día con los tipos de métrica registrados, la
// cantidad de registros y las ocurrencias proyectadas de cada item.
func BuildMonth(year int, month time.Month, loc *time.Location, records []metrics.Record, items []careitems.CareItem) Month {
	if loc == nil {
		loc = time.UTC
	}
	first, last := MonthRange(year, month)

	n := first.DaysUntil(last) + 1
	days := make([]Day, n)
	for i := range days {
		days[i] = Day{
			Date:        first.AddDays(i),
			MetricKinds: []metrics.Kind{},
			Occurrences: []careitems.Occurrence{},
		}
	}

	seen := make([]map[metrics.Kind]bool, n)
	for _, rec := range records {
		d := caldate.In(rec.RecordedAt, loc)
		if !d.Between(first, last) {
			continue
		}
		i := first.DaysUntil(d)
		days[i].RecordCount++
		if seen[i] == nil {
			seen[i] = map[metrics.Kind]bool{}
		}
		for _, f := range rec.Fields() {
			seen[i][f.Kind] = true
		}
	}
	for i := range days {
		for _, k := range metrics.Kinds {
			if seen[i][k] {
				days[i].MetricKinds = append(days[i].MetricKinds, k)
			}
		}
	}

	for _, it := range items {
		for _, occ := range careitems.ProjectOccurrences(it, first, last) {
			i := first.DaysUntil(occ.Date)
			days[i].Occurrences = append(days[i].Occurrences, occ)
		}
	}
	for i := range days {
		sortOccurrences(days[i].Occurrences)
	}

	return Month{Year: year, Month: month, Days: days}
}

func sortOccurrences(occ []careitems.Occurrence) {
	sort.Slice(occ, func(i, j int) bool {
		if occ[i].Time != occ[j].Time {
			return occ[i].Time < occ[j].Time
		}
		return occ[i].CareItemID < occ[j].CareItemID
	})
}
