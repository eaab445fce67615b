package pets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pet-health-tracker/internal/platform/caldate"
	"pet-health-tracker/internal/platform/clock"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("pet not found")
)

// latestZone es UTC+14: ningún usuario tiene un "hoy" posterior a ese.
var latestZone = time.FixedZone("UTC+14", 14*60*60)

// CareSchedule da el vencimiento pendiente más temprano de una mascota (nil si
// no hay). Lo implementa careitems.Service.
type CareSchedule interface {
	EarliestPendingDue(ctx context.Context, ownerUserID, petID string) (*caldate.Date, error)
}

type Service struct {
	repo     Repository
	schedule CareSchedule
	clock    clock.Clock
	newID    func() string
}

func NewService(repo Repository, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{repo: repo, clock: clk, newID: uuid.NewString}
}

// UseCareSchedule se llama al cablear; careitems depende de pets, así que la
// agenda no puede pasarse en NewService.
func (s *Service) UseCareSchedule(c CareSchedule) { s.schedule = c }

type CreateInput struct {
	Name      string
	Species   string
	Breed     string
	Sex       string
	BirthDate *caldate.Date
	Microchip string
	Notes     string
}

func (s *Service) Create(ctx context.Context, ownerUserID string, in CreateInput) (Pet, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" {
		return Pet{}, ErrInvalidInput
	}

	if in.BirthDate != nil && in.BirthDate.IsZero() {
		in.BirthDate = nil
	}

	now := s.clock.Now()
	p := Pet{
		ID:          s.newID(),
		OwnerUserID: ownerUserID,
		Name:        strings.TrimSpace(in.Name),
		Species:     ParseSpecies(in.Species),
		Breed:       strings.TrimSpace(in.Breed),
		Sex:         ParseSex(in.Sex),
		BirthDate:   in.BirthDate,
		Microchip:   strings.TrimSpace(in.Microchip),
		Notes:       strings.TrimSpace(in.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.check(p, now); err != nil {
		return Pet{}, err
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return Pet{}, fmt.Errorf("create pet: %w", err)
	}
	return p, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Pet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Pet{}, ErrNotFound
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Pet{}, ErrNotFound
		}
		return Pet{}, fmt.Errorf("get pet: %w", err)
	}
	return p, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerUserID string) ([]Pet, error) {
	return s.repo.ListByOwner(ctx, strings.TrimSpace(ownerUserID))
}

// UpdateProfileInput: nil = no tocar. El permiso ya lo resolvió el handler.
type UpdateProfileInput struct {
	Name      *string
	Species   *string
	Breed     *string
	Sex       *string
	BirthDate OptionalDate
	Microchip *string
	Notes     *string
}

func (s *Service) UpdateProfile(ctx context.Context, petID string, in UpdateProfileInput) (Pet, error) {
	p, err := s.GetByID(ctx, petID)
	if err != nil {
		return Pet{}, err
	}

	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Species != nil {
		p.Species = ParseSpecies(*in.Species)
	}
	if in.Breed != nil {
		p.Breed = strings.TrimSpace(*in.Breed)
	}
	if in.Sex != nil {
		p.Sex = ParseSex(*in.Sex)
	}
	if in.Microchip != nil {
		p.Microchip = strings.TrimSpace(*in.Microchip)
	}
	if in.Notes != nil {
		p.Notes = strings.TrimSpace(*in.Notes)
	}
	if in.BirthDate.Set {
		p.BirthDate = in.BirthDate.Value
	}

	now := s.clock.Now()
	if err := s.check(p, now); err != nil {
		return Pet{}, err
	}
	if in.BirthDate.Set {
		if err := s.checkSchedule(ctx, p); err != nil {
			return Pet{}, err
		}
	}

	p.UpdatedAt = now
	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Pet{}, ErrNotFound
		}
		return Pet{}, fmt.Errorf("update pet: %w", err)
	}
	return p, nil
}

// checkSchedule: ningún cuidado pendiente puede vencer antes del nacimiento.
func (s *Service) checkSchedule(ctx context.Context, p Pet) error {
	if s.schedule == nil || p.BirthDate == nil {
		return nil
	}
	due, err := s.schedule.EarliestPendingDue(ctx, p.OwnerUserID, p.ID)
	if err != nil {
		return fmt.Errorf("lookup care schedule: %w", err)
	}
	if due != nil && due.Before(*p.BirthDate) {
		return fmt.Errorf("%w: birth_date is after a pending care item due %s", ErrInvalidInput, due)
	}
	return nil
}

func (s *Service) check(p Pet, now time.Time) error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if p.BirthDate != nil && p.BirthDate.After(caldate.In(now, latestZone)) {
		return fmt.Errorf("%w: birth_date must not be in the future", ErrInvalidInput)
	}
	return nil
}
