package pets

import (
	"strings"
	"time"

	"pet-health-tracker/internal/platform/caldate"
)

// Species define las especies soportadas.
// @Enum dog, cat, other
type Species string

const (
	SpeciesDog   Species = "dog"
	SpeciesCat   Species = "cat"
	SpeciesOther Species = "other"
)

// ParseSpecies normaliza; vacío o desconocido cae en "other".
func ParseSpecies(s string) Species {
	switch v := Species(strings.ToLower(strings.TrimSpace(s))); v {
	case SpeciesDog, SpeciesCat:
		return v
	default:
		return SpeciesOther
	}
}

// Sex define el sexo de la mascota.
// @Enum male, female, unknown
type Sex string

const (
	SexMale    Sex = "male"
	SexFemale  Sex = "female"
	SexUnknown Sex = "unknown"
)

func ParseSex(s string) Sex {
	switch v := Sex(strings.ToLower(strings.TrimSpace(s))); v {
	case SexMale, SexFemale:
		return v
	default:
		return SexUnknown
	}
}

// Pet es el sujeto de toda la agenda de salud. Breed es texto libre.
type Pet struct {
	ID          string
	OwnerUserID string

	Name    string
	Species Species
	Breed   string
	Sex     Sex

	// BirthDate nil = desconocida. Acota los vencimientos de careitems.
	BirthDate *caldate.Date
	Microchip string
	Notes     string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OptionalDate distingue en un PATCH "campo ausente" de "null" (limpiar).
type OptionalDate struct {
	Set   bool
	Value *caldate.Date
}

func (o *OptionalDate) UnmarshalJSON(b []byte) error {
	o.Set = true
	o.Value = nil
	if string(b) == "null" {
		return nil
	}
	var d caldate.Date
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	if !d.IsZero() {
		o.Value = &d
	}
	return nil
}
