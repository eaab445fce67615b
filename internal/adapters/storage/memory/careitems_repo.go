package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"pet-health-tracker/internal/domain/careitems"
	"pet-health-tracker/internal/platform/caldate"
)

type careItemRepo struct {
	mu   sync.RWMutex
	byID map[string]careitems.CareItem
}

// NewCareItemRepo también implementa careitems.AtomicCompleter.
func NewCareItemRepo() careitems.Repository {
	return &careItemRepo{
		byID: make(map[string]careitems.CareItem),
	}
}

func (r *careItemRepo) Create(ctx context.Context, item careitems.CareItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createLocked(item)
}

func (r *careItemRepo) createLocked(item careitems.CareItem) error {
	if item.ID == "" {
		return errors.New("care item id required")
	}
	if _, exists := r.byID[item.ID]; exists {
		return careitems.ErrAlreadyExists
	}
	r.byID[item.ID] = item
	return nil
}

// completableLocked: el item existe y sigue pendiente.
func (r *careItemRepo) completableLocked(id string) error {
	cur, exists := r.byID[id]
	if !exists {
		return careitems.ErrNotFound
	}
	if cur.Completed {
		return careitems.ErrBadState
	}
	return nil
}

func (r *careItemRepo) Update(ctx context.Context, item careitems.CareItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[item.ID]; !exists {
		return careitems.ErrNotFound
	}
	r.byID[item.ID] = item
	return nil
}

func (r *careItemRepo) CompletePending(ctx context.Context, item careitems.CareItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.completableLocked(item.ID); err != nil {
		return err
	}
	r.byID[item.ID] = item
	return nil
}

func (r *careItemRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; !exists {
		return careitems.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *careItemRepo) GetByID(ctx context.Context, id string) (careitems.CareItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.byID[id]
	if !ok {
		return careitems.CareItem{}, careitems.ErrNotFound
	}
	return item, nil
}

func (r *careItemRepo) ListByPet(ctx context.Context, ownerUserID, petID string) ([]careitems.CareItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]careitems.CareItem, 0)
	for _, item := range r.byID {
		if item.PetID == petID && item.OwnerUserID == ownerUserID {
			out = append(out, item)
		}
	}
	sortCareItems(out)
	return out, nil
}

func (r *careItemRepo) ListPendingDueBy(ctx context.Context, date caldate.Date) ([]careitems.CareItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]careitems.CareItem, 0)
	for _, item := range r.byID {
		if item.Completed || item.DueDate.After(date) {
			continue
		}
		out = append(out, item)
	}
	sortCareItems(out)
	return out, nil
}

// CompleteAndSpawn aplica ambas escrituras bajo el mismo lock.
func (r *careItemRepo) CompleteAndSpawn(ctx context.Context, completed careitems.CareItem, successor careitems.CareItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.completableLocked(completed.ID); err != nil {
		return err
	}
	if _, exists := r.byID[successor.ID]; exists {
		return careitems.ErrAlreadyExists
	}

	r.byID[completed.ID] = completed
	r.byID[successor.ID] = successor
	return nil
}

func sortCareItems(items []careitems.CareItem) {
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if c := a.DueDate.Compare(b.DueDate); c != 0 {
			return c < 0
		}
		if a.TimeOfDay() != b.TimeOfDay() {
			return a.TimeOfDay() < b.TimeOfDay()
		}
		return a.ID < b.ID
	})
}
