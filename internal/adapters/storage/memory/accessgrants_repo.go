package memory

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"

	"pet-health-tracker/internal/domain/accessgrants"
)

type grantRepo struct {
	mu   sync.RWMutex
	byID map[string]accessgrants.Grant
}

func NewAccessGrantsRepo() accessgrants.Repository {
	return &grantRepo{
		byID: make(map[string]accessgrants.Grant),
	}
}

func (r *grantRepo) Create(ctx context.Context, g accessgrants.Grant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g.ID == "" {
		return errors.New("grant id required")
	}
	if _, exists := r.byID[g.ID]; exists {
		return errors.New("grant already exists")
	}
	r.byID[g.ID] = cloneGrant(g)
	return nil
}

func (r *grantRepo) Update(ctx context.Context, g accessgrants.Grant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[g.ID]; !exists {
		return accessgrants.ErrNotFound
	}
	r.byID[g.ID] = cloneGrant(g)
	return nil
}

func (r *grantRepo) GetByID(ctx context.Context, id string) (accessgrants.Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.byID[id]
	if !ok {
		return accessgrants.Grant{}, accessgrants.ErrNotFound
	}
	return cloneGrant(g), nil
}

// ListByPet en orden de creación, como el adapter de Postgres.
func (r *grantRepo) ListByPet(ctx context.Context, petID string) ([]accessgrants.Grant, error) {
	out := r.filter(func(g accessgrants.Grant) bool { return g.PetID == petID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListByGrantee: lo más reciente primero.
func (r *grantRepo) ListByGrantee(ctx context.Context, granteeUserID string) ([]accessgrants.Grant, error) {
	out := r.filter(func(g accessgrants.Grant) bool { return g.GranteeUserID == granteeUserID })
	sortNewestFirst(out)
	return out, nil
}

// FindActive resuelve data sucia (varios activos) quedándose con el más reciente.
func (r *grantRepo) FindActive(ctx context.Context, petID, granteeUserID string) (accessgrants.Grant, error) {
	out := r.filter(func(g accessgrants.Grant) bool {
		return g.PetID == petID && g.GranteeUserID == granteeUserID && g.Status == accessgrants.StatusActive
	})
	if len(out) == 0 {
		return accessgrants.Grant{}, accessgrants.ErrNotFound
	}
	sortNewestFirst(out)
	return out[0], nil
}

func (r *grantRepo) filter(keep func(accessgrants.Grant) bool) []accessgrants.Grant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]accessgrants.Grant, 0)
	for _, g := range r.byID {
		if keep(g) {
			out = append(out, cloneGrant(g))
		}
	}
	return out
}

func sortNewestFirst(gs []accessgrants.Grant) {
	sort.SliceStable(gs, func(i, j int) bool {
		if !gs[i].UpdatedAt.Equal(gs[j].UpdatedAt) {
			return gs[i].UpdatedAt.After(gs[j].UpdatedAt)
		}
		return gs[i].CreatedAt.After(gs[j].CreatedAt)
	})
}

// cloneGrant evita que el caller modifique Scopes del mapa.
func cloneGrant(g accessgrants.Grant) accessgrants.Grant {
	g.Scopes = slices.Clone(g.Scopes)
	return g
}
