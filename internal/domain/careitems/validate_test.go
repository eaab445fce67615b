package careitems

import (
	"errors"
	"testing"
	"time"

	"pet-health-tracker/internal/platform/caldate"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	birth := d(2023, 6, 1)
	bad := caldate.TimeOfDay(24 * 60)
	exp := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	valid := CareItem{Kind: KindMedication, Name: "Antiparasitario", DueDate: d(2024, 1, 1), Repeat: true, RepeatIntervalDays: 30}

	cases := []struct {
		name  string
		mut   func(c *CareItem)
		field string
	}{
		{"kind", func(c *CareItem) { c.Kind = "surgery" }, "kind"},
		{"name", func(c *CareItem) { c.Name = "" }, "name"},
		{"due date", func(c *CareItem) { c.DueDate = caldate.Date{} }, "due_date"},
		{"due time", func(c *CareItem) { c.DueTime = &bad }, "due_time"},
		{"interval", func(c *CareItem) { c.RepeatIntervalDays = 0 }, "repeat_interval_days"},
		{"before birth", func(c *CareItem) { c.DueDate = d(2023, 5, 31) }, "due_date"},
		{"expires on vaccine", func(c *CareItem) { c.Kind = KindVaccination; c.ExpiresAt = &exp }, "expires_at"},
	}

	assert.NoError(t, Validate(valid, &birth))

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid
			tc.mut(&c)

			err := Validate(c, &birth)
			assert.True(t, errors.Is(err, ErrInvalidInput))

			var verr *ValidationError
			if assert.True(t, errors.As(err, &verr)) {
				assert.Equal(t, tc.field, verr.Field)
			}
		})
	}
}

func TestValidate_BirthDayItselfIsAllowed(t *testing.T) {
	birth := d(2023, 6, 1)
	c := CareItem{Kind: KindVaccination, Name: "Parvovirus", DueDate: d(2023, 6, 1)}
	assert.NoError(t, Validate(c, &birth))
}

func TestNormalize_DropsIntervalWhenNotRepeating(t *testing.T) {
	c := normalize(CareItem{Name: "  Rabia  ", Repeat: false, RepeatIntervalDays: 14})
	assert.Equal(t, "Rabia", c.Name)
	assert.Equal(t, 0, c.RepeatIntervalDays)
}
