package calendar

import (
	"testing"
	"time"

	"pet-health-tracker/internal/domain/careitems"
	"pet-health-tracker/internal/domain/metrics"
	"pet-health-tracker/internal/platform/caldate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthRange(t *testing.T) {
	first, last := MonthRange(2024, time.February)
	assert.Equal(t, caldate.New(2024, 2, 1), first)
	assert.Equal(t, caldate.New(2024, 2, 29), last)

	first, last = MonthRange(2023, time.December)
	assert.Equal(t, caldate.New(2023, 12, 1), first)
	assert.Equal(t, caldate.New(2023, 12, 31), last)
}

func TestBuildMonth(t *testing.T) {
	records := []metrics.Record{
		{ID: "r1", RecordedAt: time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC), Behavior: "calm", WeightKg: ptr(4.2)},
		{ID: "r2", RecordedAt: time.Date(2024, 1, 3, 18, 0, 0, 0, time.UTC), WeightKg: ptr(4.3)},
		{ID: "r3", RecordedAt: time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC), Notes: "fuera de rango"},
	}
	items := []careitems.CareItem{
		{ID: "c1", Kind: careitems.KindMedication, Name: "semanal", DueDate: caldate.New(2024, 1, 1), Repeat: true, RepeatIntervalDays: 7},
		{ID: "c2", Kind: careitems.KindVaccination, Name: "refuerzo", DueDate: caldate.New(2024, 1, 15)},
	}

	m := BuildMonth(2024, time.January, time.UTC, records, items)

	require.Len(t, m.Days, 31)
	assert.Equal(t, 2024, m.Year)
	assert.Equal(t, time.January, m.Month)

	d3 := m.Days[2]
	assert.Equal(t, caldate.New(2024, 1, 3), d3.Date)
	assert.Equal(t, 2, d3.RecordCount)
	assert.Equal(t, []metrics.Kind{metrics.KindWeight, metrics.KindBehavior}, d3.MetricKinds)

	var withOcc []int
	for _, day := range m.Days {
		if len(day.Occurrences) > 0 {
			withOcc = append(withOcc, day.Date.Day())
		}
	}
	assert.Equal(t, []int{1, 8, 15, 22, 29}, withOcc)

	d15 := m.Days[14]
	require.Len(t, d15.Occurrences, 2)
	assert.Equal(t, "c1", d15.Occurrences[0].CareItemID)
	assert.Equal(t, "c2", d15.Occurrences[1].CareItemID)

	assert.Empty(t, m.Days[1].MetricKinds)
	assert.NotNil(t, m.Days[1].Occurrences)
}
