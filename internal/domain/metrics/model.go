package metrics

import (
	"strconv"
	"time"
)

type ActorType string

const (
	ActorTypeOwnerUser    ActorType = "OWNER_USER"
	ActorTypeDelegateUser ActorType = "DELEGATE_USER"
)

type Source string

const (
	SourceManual      Source = "manual"
	SourceIntegration Source = "integration"
)

// Kind identifica cada campo medible de un Record. El orden de Kinds es el
// orden en que se emiten las entradas de un mismo registro.
type Kind string

const (
	KindWeight     Kind = "weight"
	KindActivity   Kind = "activity"
	KindFoodIntake Kind = "food_intake"
	KindSleep      Kind = "sleep"
	KindBehavior   Kind = "behavior"
	KindNotes      Kind = "notes"
)

var Kinds = []Kind{KindWeight, KindActivity, KindFoodIntake, KindSleep, KindBehavior, KindNotes}

// Valores sugeridos de ingesta; se acepta cualquier string categórico.
const (
	FoodIntakeLess   = "less"
	FoodIntakeNormal = "normal"
	FoodIntakeMore   = "more"
)

type Actor struct {
	Type ActorType
	ID   string
}

// Record es una observación inmutable: no hay update ni delete.
type Record struct {
	ID          string
	PetID       string
	OwnerUserID string

	RecordedAt time.Time
	CreatedAt  time.Time

	WeightKg      *float64
	ActivityLevel *int
	FoodIntake    string
	SleepHours    *float64
	Behavior      string
	Notes         string

	Actor  Actor
	Source Source
}

// Field es un campo poblado de un Record, ya formateado para mostrar.
type Field struct {
	Kind  Kind
	Value string
}

// Fields devuelve los campos poblados en el orden de Kinds.
func (r Record) Fields() []Field {
	out := make([]Field, 0, len(Kinds))
	if r.WeightKg != nil {
		out = append(out, Field{Kind: KindWeight, Value: formatFloat(*r.WeightKg)})
	}
	if r.ActivityLevel != nil {
		out = append(out, Field{Kind: KindActivity, Value: strconv.Itoa(*r.ActivityLevel)})
	}
	if r.FoodIntake != "" {
		out = append(out, Field{Kind: KindFoodIntake, Value: r.FoodIntake})
	}
	if r.SleepHours != nil {
		out = append(out, Field{Kind: KindSleep, Value: formatFloat(*r.SleepHours)})
	}
	if r.Behavior != "" {
		out = append(out, Field{Kind: KindBehavior, Value: r.Behavior})
	}
	if r.Notes != "" {
		out = append(out, Field{Kind: KindNotes, Value: r.Notes})
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type ListFilter struct {
	From  *time.Time
	To    *time.Time
	Limit int
}
