package accessgrants

import (
	"strings"
	"time"
)

// Scope es un permiso puntual que el dueño delega sobre una mascota.
type Scope string

const (
	ScopePetRead        Scope = "pet:read"
	ScopePetEditProfile Scope = "pet:edit_profile"
	ScopeCareRead       Scope = "care:read"
	ScopeCareWrite      Scope = "care:write"
	ScopeMetricsRead    Scope = "metrics:read"
	ScopeMetricsCreate  Scope = "metrics:create"
)

// DefaultScopes: ver perfil, agenda y métricas (caso típico: veterinaria).
var DefaultScopes = []Scope{ScopePetRead, ScopeCareRead, ScopeMetricsRead}

var knownScopes = map[Scope]struct{}{
	ScopePetRead:        {},
	ScopePetEditProfile: {},
	ScopeCareRead:       {},
	ScopeCareWrite:      {},
	ScopeMetricsRead:    {},
	ScopeMetricsCreate:  {},
}

// ParseScopes recorta, deduplica y rechaza scopes desconocidos.
// Vacío devuelve una copia de DefaultScopes.
func ParseScopes(in []Scope) ([]Scope, error) {
	out := make([]Scope, 0, len(in))
	seen := make(map[Scope]struct{}, len(in))
	for _, raw := range in {
		s := Scope(strings.TrimSpace(string(raw)))
		if s == "" {
			continue
		}
		if _, ok := knownScopes[s]; !ok {
			return nil, ErrInvalidInput
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return append([]Scope(nil), DefaultScopes...), nil
	}
	return out, nil
}

type Status string

const (
	StatusInvited Status = "invited"
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
	// StatusExpired no se persiste: es la vista de un grant vencido.
	StatusExpired Status = "expired"
)

type Grant struct {
	ID    string
	PetID string

	OwnerUserID   string // quien comparte
	GranteeUserID string // delegado (p.ej. personal veterinario)

	Scopes []Scope
	Status Status

	// ExpiresAt nil = sin vencimiento.
	ExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

func (g Grant) Has(scope Scope) bool {
	for _, s := range g.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

func (g Grant) Expired(now time.Time) bool {
	return g.ExpiresAt != nil && !now.Before(*g.ExpiresAt)
}

// EffectiveStatus es Status salvo que el grant haya vencido sin revocarse.
func (g Grant) EffectiveStatus(now time.Time) Status {
	if g.Status != StatusRevoked && g.Expired(now) {
		return StatusExpired
	}
	return g.Status
}

// Allows: activo, vigente y con el scope.
func (g Grant) Allows(scope Scope, now time.Time) bool {
	return g.EffectiveStatus(now) == StatusActive && g.Has(scope)
}

func (g Grant) samePair(o Grant) bool {
	return g.PetID == o.PetID && g.OwnerUserID == o.OwnerUserID && g.GranteeUserID == o.GranteeUserID
}
