package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pet-health-tracker/internal/platform/clock"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var recordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "metric_records_created_total",
	Help: "Metric records created by source",
}, []string{"source"})

type Service struct {
	repo  Repository
	clock clock.Clock
	newID func() string
}

func NewService(repo Repository, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{
		repo:  repo,
		clock: clk,
		newID: uuid.NewString,
	}
}

type CreateInput struct {
	// RecordedAt cero = ahora.
	RecordedAt    time.Time
	WeightKg      *float64
	ActivityLevel *int
	FoodIntake    string
	SleepHours    *float64
	Behavior      string
	Notes         string
	Source        Source
}

func (s *Service) Create(ctx context.Context, petID, ownerUserID string, actor Actor, in CreateInput) (Record, error) {
	petID = strings.TrimSpace(petID)
	ownerUserID = strings.TrimSpace(ownerUserID)
	if petID == "" || ownerUserID == "" {
		return Record{}, ErrInvalidInput
	}
	if actor.Type == "" || strings.TrimSpace(actor.ID) == "" {
		return Record{}, ErrInvalidInput
	}

	now := s.clock.Now()
	at := in.RecordedAt
	if at.IsZero() {
		at = now
	}
	src := in.Source
	if src == "" {
		src = SourceManual
	}

	rec := normalize(Record{
		ID:            s.newID(),
		PetID:         petID,
		OwnerUserID:   ownerUserID,
		RecordedAt:    at,
		CreatedAt:     now,
		WeightKg:      in.WeightKg,
		ActivityLevel: in.ActivityLevel,
		FoodIntake:    in.FoodIntake,
		SleepHours:    in.SleepHours,
		Behavior:      in.Behavior,
		Notes:         in.Notes,
		Actor:         actor,
		Source:        src,
	})
	if err := Validate(rec); err != nil {
		return Record{}, err
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("create metric record: %w", err)
	}
	recordsTotal.WithLabelValues(string(src)).Inc()
	return rec, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Record{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPet(ctx context.Context, ownerUserID, petID string, filter ListFilter) ([]Record, error) {
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, invalid("from", "must not be after to")
	}
	out, err := s.repo.ListByPet(ctx, ownerUserID, petID, filter)
	if err != nil {
		return nil, fmt.Errorf("list metric records: %w", err)
	}
	return out, nil
}
