package careitems

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"pet-health-tracker/internal/platform/caldate"
	"pet-health-tracker/internal/platform/clock"
	"pet-health-tracker/internal/platform/logger"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	completionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "care_item_completions_total",
		Help: "Care item completions by outcome",
	}, []string{"outcome"})

	reconciledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "care_item_reconciled_successors_total",
		Help: "Successors repaired by the reconciliation pass",
	})
)

// BirthDateLookup evita importar pets desde acá (lo implementa pets.Service).
type BirthDateLookup interface {
	BirthDateOf(ctx context.Context, petID string) (*caldate.Date, error)
}

type Service struct {
	repo  Repository
	pets  BirthDateLookup
	clock clock.Clock
	log   logger.Logger
	newID func() string
}

func NewService(repo Repository, pets BirthDateLookup, clk clock.Clock, log logger.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:  repo,
		pets:  pets,
		clock: clk,
		log:   log,
		newID: uuid.NewString,
	}
}

// Now expone el reloj inyectado (los handlers clasifican status con él).
func (s *Service) Now() time.Time { return s.clock.Now() }

type CreateInput struct {
	Kind               Kind
	Name               string
	DueDate            caldate.Date
	DueTime            *caldate.TimeOfDay
	Repeat             bool
	RepeatIntervalDays int
	ExpiresAt          *time.Time
	Dosage             string
	Notes              string
}

func (s *Service) Create(ctx context.Context, petID, ownerUserID string, in CreateInput) (CareItem, error) {
	petID = strings.TrimSpace(petID)
	ownerUserID = strings.TrimSpace(ownerUserID)
	if petID == "" || ownerUserID == "" {
		return CareItem{}, ErrInvalidInput
	}

	now := s.clock.Now()
	item := normalize(CareItem{
		ID:                 s.newID(),
		PetID:              petID,
		OwnerUserID:        ownerUserID,
		Kind:               in.Kind,
		Name:               in.Name,
		DueDate:            in.DueDate,
		DueTime:            in.DueTime,
		Repeat:             in.Repeat,
		RepeatIntervalDays: in.RepeatIntervalDays,
		ExpiresAt:          in.ExpiresAt,
		Dosage:             in.Dosage,
		Notes:              in.Notes,
		CreatedAt:          now,
		UpdatedAt:          now,
	})

	if err := s.validate(ctx, item); err != nil {
		return CareItem{}, err
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return CareItem{}, fmt.Errorf("create care item: %w", err)
	}
	return item, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (CareItem, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return CareItem{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

// ListByPet devuelve los items ordenados por vencimiento, después de reparar
// sucesores pendientes.
func (s *Service) ListByPet(ctx context.Context, ownerUserID, petID string, filter ListFilter) ([]CareItem, error) {
	items, err := s.repo.ListByPet(ctx, ownerUserID, petID)
	if err != nil {
		return nil, fmt.Errorf("list care items: %w", err)
	}

	items = s.reconcile(ctx, items)

	out := make([]CareItem, 0, len(items))
	for _, it := range items {
		if filter.Kind != "" && it.Kind != filter.Kind {
			continue
		}
		if it.Completed && !filter.IncludeCompleted {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

// EarliestPendingDue lo usa pets para no dejar cuidados antes del nacimiento.
func (s *Service) EarliestPendingDue(ctx context.Context, ownerUserID, petID string) (*caldate.Date, error) {
	items, err := s.repo.ListByPet(ctx, ownerUserID, petID)
	if err != nil {
		return nil, fmt.Errorf("list care items: %w", err)
	}
	var earliest *caldate.Date
	for _, it := range items {
		if it.Completed {
			continue
		}
		if earliest == nil || it.DueDate.Before(*earliest) {
			due := it.DueDate
			earliest = &due
		}
	}
	return earliest, nil
}

// ListPendingDueBy se usa desde el job de recordatorios.
func (s *Service) ListPendingDueBy(ctx context.Context, date caldate.Date) ([]CareItem, error) {
	return s.repo.ListPendingDueBy(ctx, date)
}

type UpdateInput struct {
	// Punteros para PATCH real: nil = no tocar.
	Name               *string
	Dosage             *string
	Notes              *string
	DueDate            *caldate.Date
	DueTime            *caldate.TimeOfDay
	ClearDueTime       bool
	Repeat             *bool
	RepeatIntervalDays *int
	ExpiresAt          *time.Time
	ClearExpiresAt     bool
}

func (in UpdateInput) reschedules() bool {
	return in.DueDate != nil || in.DueTime != nil || in.ClearDueTime ||
		in.Repeat != nil || in.RepeatIntervalDays != nil
}

// Update aplica un PATCH. Cambios de agenda sólo mientras el item está pendiente.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (CareItem, error) {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return CareItem{}, err
	}
	if item.Completed && in.reschedules() {
		return CareItem{}, fmt.Errorf("%w: completed items cannot be rescheduled", ErrBadState)
	}

	if in.Name != nil {
		item.Name = *in.Name
	}
	if in.Dosage != nil {
		item.Dosage = *in.Dosage
	}
	if in.Notes != nil {
		item.Notes = *in.Notes
	}
	if in.DueDate != nil {
		item.DueDate = *in.DueDate
	}
	if in.ClearDueTime {
		item.DueTime = nil
	} else if in.DueTime != nil {
		t := *in.DueTime
		item.DueTime = &t
	}
	if in.Repeat != nil {
		item.Repeat = *in.Repeat
	}
	if in.RepeatIntervalDays != nil {
		item.RepeatIntervalDays = *in.RepeatIntervalDays
	}
	if in.ClearExpiresAt {
		item.ExpiresAt = nil
	} else if in.ExpiresAt != nil {
		t := *in.ExpiresAt
		item.ExpiresAt = &t
	}

	item = normalize(item)
	if err := s.validate(ctx, item); err != nil {
		return CareItem{}, err
	}

	item.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, item); err != nil {
		return CareItem{}, fmt.Errorf("update care item: %w", err)
	}
	return item, nil
}

// Delay corre el vencimiento un día (items pendientes, repetitivos o no).
func (s *Service) Delay(ctx context.Context, id string) (CareItem, error) {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return CareItem{}, err
	}
	if item.Completed {
		return CareItem{}, fmt.Errorf("%w: completed items cannot be delayed", ErrBadState)
	}

	delayed := Delay(item, s.clock.Now())
	if err := s.repo.Update(ctx, delayed); err != nil {
		return CareItem{}, fmt.Errorf("delay care item: %w", err)
	}
	return delayed, nil
}

// Complete marca la ocurrencia actual y, si se repite, crea la siguiente.
//
// Con un AtomicCompleter ambas escrituras van juntas o ninguna. Sin él se hacen
// en secuencia dejando PendingSuccessorID en el completado; si la creación del
// sucesor falla el resultado es OutcomeCompletedWithPendingSuccessor y la
// reconciliación lo termina en la próxima lectura.
func (s *Service) Complete(ctx context.Context, id string) (CompletionResult, error) {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return CompletionResult{}, err
	}
	if item.Completed {
		return CompletionResult{}, fmt.Errorf("%w: care item already completed", ErrBadState)
	}

	done, successor := Complete(item, s.newID(), s.clock.Now())

	if successor == nil {
		if err := s.repo.CompletePending(ctx, done); err != nil {
			return CompletionResult{}, fmt.Errorf("complete care item: %w", err)
		}
		completionsTotal.WithLabelValues(string(OutcomeCompleted)).Inc()
		return CompletionResult{Outcome: OutcomeCompleted, Completed: done}, nil
	}

	if tx, ok := s.repo.(AtomicCompleter); ok {
		if err := tx.CompleteAndSpawn(ctx, done, *successor); err != nil {
			return CompletionResult{}, fmt.Errorf("complete care item: %w", err)
		}
		completionsTotal.WithLabelValues(string(OutcomeCompleted)).Inc()
		return CompletionResult{Outcome: OutcomeCompleted, Completed: done, Successor: successor}, nil
	}

	marked := done
	marked.PendingSuccessorID = successor.ID
	if err := s.repo.CompletePending(ctx, marked); err != nil {
		return CompletionResult{}, fmt.Errorf("complete care item: %w", err)
	}

	if err := s.repo.Create(ctx, *successor); err != nil {
		s.log.Warn("care item completed without successor", map[string]any{
			"care_item_id": item.ID,
			"successor_id": successor.ID,
			"err":          err.Error(),
		})
		completionsTotal.WithLabelValues(string(OutcomeCompletedWithPendingSuccessor)).Inc()
		return CompletionResult{Outcome: OutcomeCompletedWithPendingSuccessor, Completed: marked}, nil
	}

	if err := s.repo.Update(ctx, done); err != nil {
		// El sucesor ya existe; la reconciliación sólo limpia la marca.
		s.log.Warn("pending successor mark not cleared", map[string]any{
			"care_item_id": item.ID,
			"err":          err.Error(),
		})
		done = marked
	}

	completionsTotal.WithLabelValues(string(OutcomeCompleted)).Inc()
	return CompletionResult{Outcome: OutcomeCompleted, Completed: done, Successor: successor}, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidInput
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete care item: %w", err)
	}
	return nil
}

func (s *Service) validate(ctx context.Context, item CareItem) error {
	var birth *caldate.Date
	if s.pets != nil {
		bd, err := s.pets.BirthDateOf(ctx, item.PetID)
		if err != nil {
			return fmt.Errorf("lookup pet birth date: %w", err)
		}
		birth = bd
	}
	return Validate(item, birth)
}

// reconcile termina completados que quedaron con PendingSuccessorID.
// Es idempotente: si el sucesor ya existe sólo se limpia la marca.
// Los errores se loguean y el item queda para el próximo intento.
func (s *Service) reconcile(ctx context.Context, items []CareItem) []CareItem {
	byID := make(map[string]struct{}, len(items))
	for _, it := range items {
		byID[it.ID] = struct{}{}
	}

	changed := false
	for i, it := range items {
		if !it.Completed || it.PendingSuccessorID == "" {
			continue
		}

		if _, exists := byID[it.PendingSuccessorID]; !exists {
			_, successor := Complete(it, it.PendingSuccessorID, s.clock.Now())
			if successor == nil {
				continue
			}
			if err := s.repo.Create(ctx, *successor); err != nil {
				if !errors.Is(err, ErrAlreadyExists) {
					s.log.Warn("reconcile: successor not created", map[string]any{
						"care_item_id": it.ID,
						"err":          err.Error(),
					})
					continue
				}
				// Otra lectura concurrente lo creó primero.
				existing, gerr := s.repo.GetByID(ctx, successor.ID)
				if gerr != nil {
					s.log.Warn("reconcile: successor not readable", map[string]any{
						"care_item_id": it.ID,
						"err":          gerr.Error(),
					})
					continue
				}
				successor = &existing
			} else {
				reconciledTotal.Inc()
			}
			items = append(items, *successor)
			byID[successor.ID] = struct{}{}
			changed = true
		}

		cleared := it
		cleared.PendingSuccessorID = ""
		if err := s.repo.Update(ctx, cleared); err != nil {
			s.log.Warn("reconcile: pending mark not cleared", map[string]any{
				"care_item_id": it.ID,
				"err":          err.Error(),
			})
			continue
		}
		items[i] = cleared
	}

	if changed {
		sortByDue(items)
	}
	return items
}

func sortByDue(items []CareItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if c := a.DueDate.Compare(b.DueDate); c != 0 {
			return c < 0
		}
		if a.TimeOfDay() != b.TimeOfDay() {
			return a.TimeOfDay() < b.TimeOfDay()
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}
