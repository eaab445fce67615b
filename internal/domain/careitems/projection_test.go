package careitems

import (
	"testing"
	"time"

	"pet-health-tracker/internal/platform/caldate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(y, m, day int) caldate.Date {
	return caldate.New(y, time.Month(m), day)
}

func dates(occ []Occurrence) []caldate.Date {
	out := make([]caldate.Date, 0, len(occ))
	for _, o := range occ {
		out = append(out, o.Date)
	}
	return out
}

func TestProjectOccurrences_WeeklyOverJanuary(t *testing.T) {
	item := CareItem{ID: "c1", DueDate: d(2024, 1, 1), Repeat: true, RepeatIntervalDays: 7}

	got := ProjectOccurrences(item, d(2024, 1, 1), d(2024, 1, 31))

	assert.Equal(t, []caldate.Date{
		d(2024, 1, 1), d(2024, 1, 8), d(2024, 1, 15), d(2024, 1, 22), d(2024, 1, 29),
	}, dates(got))
	for _, o := range got {
		assert.Equal(t, "c1", o.CareItemID)
		assert.Equal(t, caldate.TimeOfDay(0), o.Time)
	}
}

func TestProjectOccurrences_StartsBeforeRange(t *testing.T) {
	item := CareItem{ID: "c1", DueDate: d(2023, 12, 25), Repeat: true, RepeatIntervalDays: 10}

	got := ProjectOccurrences(item, d(2024, 1, 1), d(2024, 1, 31))

	assert.Equal(t, []caldate.Date{d(2024, 1, 4), d(2024, 1, 14), d(2024, 1, 24)}, dates(got))
}

func TestProjectOccurrences_CrossesLeapDay(t *testing.T) {
	item := CareItem{ID: "c1", DueDate: d(2024, 2, 27), Repeat: true, RepeatIntervalDays: 1}

	got := ProjectOccurrences(item, d(2024, 2, 27), d(2024, 3, 1))

	assert.Equal(t, []caldate.Date{d(2024, 2, 27), d(2024, 2, 28), d(2024, 2, 29), d(2024, 3, 1)}, dates(got))
}

func TestProjectOccurrences_NonRepeating(t *testing.T) {
	tod, err := caldate.NewTimeOfDay(9, 15)
	require.NoError(t, err)
	item := CareItem{ID: "c1", DueDate: d(2024, 1, 10), DueTime: &tod}

	got := ProjectOccurrences(item, d(2024, 1, 1), d(2024, 1, 31))
	require.Len(t, got, 1)
	assert.Equal(t, d(2024, 1, 10), got[0].Date)
	assert.Equal(t, tod, got[0].Time)

	assert.Empty(t, ProjectOccurrences(item, d(2024, 1, 11), d(2024, 1, 31)))
	assert.Empty(t, ProjectOccurrences(item, d(2023, 12, 1), d(2024, 1, 9)))
}

func TestProjectOccurrences_EmptyCases(t *testing.T) {
	repeating := CareItem{ID: "c1", DueDate: d(2024, 1, 1), Repeat: true, RepeatIntervalDays: 7}

	completed := repeating
	completed.Completed = true
	assert.Empty(t, ProjectOccurrences(completed, d(2024, 1, 1), d(2024, 12, 31)))

	assert.Empty(t, ProjectOccurrences(repeating, d(2024, 2, 1), d(2024, 1, 1)), "rango invertido")
	assert.Empty(t, ProjectOccurrences(repeating, d(2023, 1, 1), d(2023, 12, 31)), "vence después del rango")
	assert.Empty(t, ProjectOccurrences(repeating, d(2024, 1, 2), d(2024, 1, 7)), "hueco entre ocurrencias")
	assert.Empty(t, ProjectOccurrences(CareItem{Repeat: true, RepeatIntervalDays: 1}, d(2024, 1, 1), d(2024, 1, 2)), "sin vencimiento")
}

func TestProjectOccurrences_NonPositiveIntervalIsSingle(t *testing.T) {
	for _, k := range []int{0, -3} {
		item := CareItem{ID: "c1", DueDate: d(2024, 1, 5), Repeat: true, RepeatIntervalDays: k}
		got := ProjectOccurrences(item, d(2024, 1, 1), d(2024, 12, 31))
		assert.Equal(t, []caldate.Date{d(2024, 1, 5)}, dates(got), "k=%d", k)
	}
}

func TestProjectOccurrences_CompletionShiftsProjection(t *testing.T) {
	// Completar una serie proyecta lo mismo que antes sin su primera ocurrencia.
	item := CareItem{ID: "c1", DueDate: d(2024, 1, 1), Repeat: true, RepeatIntervalDays: 7}
	from, to := d(2024, 1, 1), d(2024, 3, 31)

	before := dates(ProjectOccurrences(item, from, to))

	done, next := Complete(item, "c2", fixedNow)
	require.NotNil(t, next)
	assert.Empty(t, ProjectOccurrences(done, from, to))

	after := dates(ProjectOccurrences(*next, from, to))
	assert.Equal(t, before[1:], after)
}

func TestOccursOn(t *testing.T) {
	item := CareItem{ID: "c1", DueDate: d(2024, 1, 1), Repeat: true, RepeatIntervalDays: 14}

	assert.True(t, OccursOn(item, d(2024, 1, 15)))
	assert.False(t, OccursOn(item, d(2024, 1, 14)))
	assert.False(t, OccursOn(item, d(2023, 12, 18)))
}
