package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"pet-health-tracker/internal/domain/metrics"
)

type metricRepo struct {
	mu   sync.RWMutex
	byID map[string]metrics.Record
}

func NewMetricRepo() metrics.Repository {
	return &metricRepo{
		byID: make(map[string]metrics.Record),
	}
}

func (r *metricRepo) Create(ctx context.Context, rec metrics.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == "" {
		return errors.New("record id required")
	}
	if _, exists := r.byID[rec.ID]; exists {
		return errors.New("record already exists")
	}

	r.byID[rec.ID] = rec
	return nil
}

func (r *metricRepo) GetByID(ctx context.Context, id string) (metrics.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byID[id]
	if !ok {
		return metrics.Record{}, metrics.ErrNotFound
	}
	return rec, nil
}

func (r *metricRepo) ListByPet(ctx context.Context, ownerUserID, petID string, filter metrics.ListFilter) ([]metrics.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]metrics.Record, 0)
	for _, rec := range r.byID {
		if rec.PetID != petID || rec.OwnerUserID != ownerUserID {
			continue
		}
		if filter.From != nil && rec.RecordedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && rec.RecordedAt.After(*filter.To) {
			continue
		}
		out = append(out, rec)
	}

	// Orden cronológico; en empate por id para que sea estable entre llamadas.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].RecordedAt.Before(out[j].RecordedAt)
		}
		return out[i].ID < out[j].ID
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
