package careitems

import (
	"testing"
	"time"

	"pet-health-tracker/internal/platform/caldate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func TestComplete_NonRepeating(t *testing.T) {
	item := CareItem{ID: "c1", Kind: KindVaccination, Name: "Rabia", DueDate: d(2024, 1, 10)}

	done, next := Complete(item, "unused", fixedNow)

	assert.Nil(t, next)
	assert.True(t, done.Completed)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, fixedNow, *done.CompletedAt)
	assert.Equal(t, d(2024, 1, 10), done.DueDate)
	assert.False(t, item.Completed, "el original no se modifica")
}

func TestComplete_RepeatingSpawnsSuccessor(t *testing.T) {
	tod, err := caldate.ParseTimeOfDay("08:30")
	require.NoError(t, err)
	item := CareItem{
		ID:                 "c1",
		PetID:              "p1",
		OwnerUserID:        "u1",
		Kind:               KindMedication,
		Name:               "Antipulgas",
		DueDate:            d(2024, 1, 29),
		DueTime:            &tod,
		Repeat:             true,
		RepeatIntervalDays: 30,
		Dosage:             "1 pipeta",
		CreatedAt:          fixedNow.Add(-48 * time.Hour),
	}

	done, next := Complete(item, "c2", fixedNow)

	require.NotNil(t, next)
	assert.True(t, done.Completed)
	assert.Equal(t, "c2", next.ID)
	assert.False(t, next.Completed)
	assert.Nil(t, next.CompletedAt)
	assert.Equal(t, d(2024, 2, 28), next.DueDate)
	assert.Equal(t, "c1", next.PreviousID)
	assert.Equal(t, fixedNow, next.CreatedAt)

	// Atributos de la serie se heredan.
	assert.Equal(t, item.PetID, next.PetID)
	assert.Equal(t, item.Kind, next.Kind)
	assert.Equal(t, item.Name, next.Name)
	assert.Equal(t, item.Dosage, next.Dosage)
	assert.Equal(t, tod, *next.DueTime)
	assert.True(t, next.Repeat)
	assert.Equal(t, 30, next.RepeatIntervalDays)
}

func TestComplete_SuccessorRespectsLeapYear(t *testing.T) {
	item := CareItem{ID: "c1", DueDate: d(2024, 2, 28), Repeat: true, RepeatIntervalDays: 1}

	_, next := Complete(item, "c2", fixedNow)
	require.NotNil(t, next)
	assert.Equal(t, d(2024, 2, 29), next.DueDate)

	_, next = Complete(*next, "c3", fixedNow)
	require.NotNil(t, next)
	assert.Equal(t, d(2024, 3, 1), next.DueDate)
}

func TestDelay_AddsExactlyOneDay(t *testing.T) {
	item := CareItem{ID: "c1", DueDate: d(2024, 12, 31), Repeat: true, RepeatIntervalDays: 7}

	delayed := Delay(item, fixedNow)

	assert.Equal(t, d(2025, 1, 1), delayed.DueDate)
	assert.Equal(t, fixedNow, delayed.UpdatedAt)
	assert.False(t, delayed.Completed)
	assert.Equal(t, item.ID, delayed.ID)
	assert.Equal(t, item.RepeatIntervalDays, delayed.RepeatIntervalDays)
}

func TestDelay_ThenCompleteMatchesShiftedSeries(t *testing.T) {
	item := CareItem{ID: "c1", DueDate: d(2024, 1, 1), Repeat: true, RepeatIntervalDays: 7}

	_, next := Complete(Delay(item, fixedNow), "c2", fixedNow)
	require.NotNil(t, next)
	assert.Equal(t, d(2024, 1, 9), next.DueDate)
}

func TestNextDueDate(t *testing.T) {
	_, ok := NextDueDate(CareItem{DueDate: d(2024, 1, 1)})
	assert.False(t, ok)

	_, ok = NextDueDate(CareItem{DueDate: d(2024, 1, 1), Repeat: true})
	assert.False(t, ok)

	next, ok := NextDueDate(CareItem{DueDate: d(2024, 1, 1), Repeat: true, RepeatIntervalDays: 365})
	require.True(t, ok)
	assert.Equal(t, d(2024, 12, 31), next.DueDate)
}
