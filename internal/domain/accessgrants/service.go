package accessgrants

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pet-health-tracker/internal/platform/clock"
	"pet-health-tracker/internal/platform/logger"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("grant not found")
	ErrBadState     = errors.New("invalid state")
)

type Service struct {
	repo  Repository
	clock clock.Clock
	log   logger.Logger
	newID func() string
}

func NewService(repo Repository, clk clock.Clock, log logger.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, clock: clk, log: log, newID: uuid.NewString}
}

type InviteInput struct {
	PetID         string
	OwnerUserID   string
	GranteeUserID string
	Scopes        []Scope
	ExpiresAt     *time.Time
}

// Invite crea la invitación o, si ya hay una viva para (pet, owner, grantee),
// la reutiliza con los scopes nuevos y revoca los duplicados.
func (s *Service) Invite(ctx context.Context, in InviteInput) (Grant, error) {
	g := Grant{
		PetID:         strings.TrimSpace(in.PetID),
		OwnerUserID:   strings.TrimSpace(in.OwnerUserID),
		GranteeUserID: strings.TrimSpace(in.GranteeUserID),
	}
	if g.PetID == "" || g.OwnerUserID == "" || g.GranteeUserID == "" || g.OwnerUserID == g.GranteeUserID {
		return Grant{}, ErrInvalidInput
	}

	scopes, err := ParseScopes(in.Scopes)
	if err != nil {
		return Grant{}, err
	}

	now := s.clock.Now()
	if in.ExpiresAt != nil && !in.ExpiresAt.After(now) {
		return Grant{}, ErrInvalidInput
	}

	siblings, err := s.siblings(ctx, g)
	if err != nil {
		return Grant{}, err
	}

	if winner, ok := latestLive(siblings); ok {
		s.revokeOthers(ctx, winner.ID, siblings, now)

		// Un grant vencido vuelve a requerir aceptación.
		if winner.Expired(now) {
			winner.Status = StatusInvited
		}
		winner.Scopes = scopes
		winner.ExpiresAt = in.ExpiresAt
		winner.UpdatedAt = now
		if err := s.repo.Update(ctx, winner); err != nil {
			return Grant{}, fmt.Errorf("update grant: %w", err)
		}
		return winner, nil
	}

	g.ID = s.newID()
	g.Scopes = scopes
	g.Status = StatusInvited
	g.ExpiresAt = in.ExpiresAt
	g.CreatedAt = now
	g.UpdatedAt = now

	if err := s.repo.Create(ctx, g); err != nil {
		return Grant{}, fmt.Errorf("create grant: %w", err)
	}
	return g, nil
}

// Accept es idempotente; deja un único grant vivo para el par.
func (s *Service) Accept(ctx context.Context, grantID, granteeUserID string) (Grant, error) {
	granteeUserID = strings.TrimSpace(granteeUserID)
	if granteeUserID == "" {
		return Grant{}, ErrInvalidInput
	}

	g, err := s.get(ctx, grantID)
	if err != nil {
		return Grant{}, err
	}
	if g.GranteeUserID != granteeUserID {
		return Grant{}, ErrForbidden
	}

	now := s.clock.Now()
	switch g.EffectiveStatus(now) {
	case StatusActive:
		return g, nil
	case StatusInvited:
	default:
		return Grant{}, ErrBadState
	}

	g.Status = StatusActive
	g.UpdatedAt = now
	if err := s.repo.Update(ctx, g); err != nil {
		return Grant{}, fmt.Errorf("update grant: %w", err)
	}

	if siblings, err := s.siblings(ctx, g); err == nil {
		s.revokeOthers(ctx, g.ID, siblings, now)
	}
	return g, nil
}

// Revoke sólo lo puede hacer el dueño. Revocar dos veces no falla.
func (s *Service) Revoke(ctx context.Context, grantID, ownerUserID string) (Grant, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" {
		return Grant{}, ErrInvalidInput
	}

	g, err := s.get(ctx, grantID)
	if err != nil {
		return Grant{}, err
	}
	if g.OwnerUserID != ownerUserID {
		return Grant{}, ErrForbidden
	}
	if g.Status == StatusRevoked {
		return g, nil
	}

	revoke(&g, s.clock.Now())
	if err := s.repo.Update(ctx, g); err != nil {
		return Grant{}, fmt.Errorf("update grant: %w", err)
	}
	return g, nil
}

func (s *Service) ListByPet(ctx context.Context, petID string) ([]Grant, error) {
	petID = strings.TrimSpace(petID)
	if petID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByPet(ctx, petID)
}

// ListByGrantee filtra por status efectivo; sin statuses devuelve todo.
func (s *Service) ListByGrantee(ctx context.Context, granteeUserID string, statuses ...Status) ([]Grant, error) {
	granteeUserID = strings.TrimSpace(granteeUserID)
	if granteeUserID == "" {
		return nil, ErrInvalidInput
	}

	items, err := s.repo.ListByGrantee(ctx, granteeUserID)
	if err != nil || len(statuses) == 0 {
		return items, err
	}

	now := s.clock.Now()
	out := make([]Grant, 0, len(items))
	for _, g := range items {
		st := g.EffectiveStatus(now)
		for _, want := range statuses {
			if st == want {
				out = append(out, g)
				break
			}
		}
	}
	return out, nil
}

// ActiveGrant devuelve el grant que hoy habilita al delegado (ErrNotFound si no hay).
func (s *Service) ActiveGrant(ctx context.Context, petID, granteeUserID string) (Grant, error) {
	petID = strings.TrimSpace(petID)
	granteeUserID = strings.TrimSpace(granteeUserID)
	if petID == "" || granteeUserID == "" {
		return Grant{}, ErrInvalidInput
	}

	g, err := s.repo.FindActive(ctx, petID, granteeUserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Grant{}, ErrNotFound
		}
		return Grant{}, fmt.Errorf("find active grant: %w", err)
	}
	if g.Expired(s.clock.Now()) {
		return Grant{}, ErrNotFound
	}
	return g, nil
}

// Authorize aplica la regla que comparten todos los módulos:
// el owner siempre puede; un delegado necesita grant activo con el scope.
// Devuelve delegate=true cuando el acceso viene por grant.
func (s *Service) Authorize(ctx context.Context, petID, ownerUserID, userID string, scope Scope) (delegate bool, err error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, ErrForbidden
	}
	if ownerUserID == userID {
		return false, nil
	}

	g, err := s.ActiveGrant(ctx, petID, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Warn("grant lookup failed", map[string]any{"pet_id": petID, "user_id": userID, "error": err.Error()})
		}
		return false, ErrForbidden
	}
	if !g.Allows(scope, s.clock.Now()) {
		return false, ErrForbidden
	}
	return true, nil
}

func (s *Service) get(ctx context.Context, id string) (Grant, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Grant{}, ErrInvalidInput
	}
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Grant{}, ErrNotFound
		}
		return Grant{}, fmt.Errorf("get grant: %w", err)
	}
	return g, nil
}

// siblings son los grants del mismo (pet, owner, grantee), incluido g si existe.
func (s *Service) siblings(ctx context.Context, g Grant) ([]Grant, error) {
	items, err := s.repo.ListByPet(ctx, g.PetID)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	out := make([]Grant, 0, len(items))
	for _, it := range items {
		if it.samePair(g) {
			out = append(out, it)
		}
	}
	return out, nil
}

// revokeOthers es best-effort: un fallo se loguea y no corta la operación.
func (s *Service) revokeOthers(ctx context.Context, keepID string, siblings []Grant, now time.Time) {
	for _, g := range siblings {
		if g.ID == keepID || g.Status == StatusRevoked {
			continue
		}
		revoke(&g, now)
		if err := s.repo.Update(ctx, g); err != nil {
			s.log.Warn("revoke duplicate grant failed", map[string]any{"grant_id": g.ID, "error": err.Error()})
		}
	}
}

// latestLive elige el grant no revocado más reciente.
func latestLive(gs []Grant) (Grant, bool) {
	var (
		winner Grant
		found  bool
	)
	for _, g := range gs {
		if g.Status == StatusRevoked {
			continue
		}
		if !found || g.UpdatedAt.After(winner.UpdatedAt) {
			winner, found = g, true
		}
	}
	return winner, found
}

func revoke(g *Grant, now time.Time) {
	g.Status = StatusRevoked
	g.UpdatedAt = now
	g.RevokedAt = &now
}
