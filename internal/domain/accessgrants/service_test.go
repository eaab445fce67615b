package accessgrants

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"pet-health-tracker/internal/platform/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo es un repo en memoria mínimo; failUpdate simula fallas de storage.
type fakeRepo struct {
	byID       map[string]Grant
	failUpdate map[string]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: map[string]Grant{}, failUpdate: map[string]bool{}}
}

func (r *fakeRepo) Create(_ context.Context, g Grant) error {
	if _, ok := r.byID[g.ID]; ok {
		return errors.New("duplicate")
	}
	r.byID[g.ID] = g
	return nil
}

func (r *fakeRepo) Update(_ context.Context, g Grant) error {
	if r.failUpdate[g.ID] {
		return errors.New("storage down")
	}
	if _, ok := r.byID[g.ID]; !ok {
		return ErrNotFound
	}
	r.byID[g.ID] = g
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (Grant, error) {
	g, ok := r.byID[id]
	if !ok {
		return Grant{}, ErrNotFound
	}
	return g, nil
}

func (r *fakeRepo) list(keep func(Grant) bool) []Grant {
	var out []Grant
	for _, g := range r.byID {
		if keep(g) {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

func (r *fakeRepo) ListByPet(_ context.Context, petID string) ([]Grant, error) {
	return r.list(func(g Grant) bool { return g.PetID == petID }), nil
}

func (r *fakeRepo) ListByGrantee(_ context.Context, granteeUserID string) ([]Grant, error) {
	return r.list(func(g Grant) bool { return g.GranteeUserID == granteeUserID }), nil
}

func (r *fakeRepo) FindActive(_ context.Context, petID, granteeUserID string) (Grant, error) {
	out := r.list(func(g Grant) bool {
		return g.PetID == petID && g.GranteeUserID == granteeUserID && g.Status == StatusActive
	})
	if len(out) == 0 {
		return Grant{}, ErrNotFound
	}
	return out[0], nil
}

var t0 = time.Date(2025, 12, 22, 10, 0, 0, 0, time.UTC)

// newTestService usa un reloj mutable e ids secuenciales.
func newTestService(repo Repository) (*Service, *time.Time) {
	now := t0
	svc := NewService(repo, clock.Func(func() time.Time { return now }), nil)
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("g%d", n)
	}
	return svc, &now
}

func invite(t *testing.T, svc *Service, scopes ...Scope) Grant {
	t.Helper()
	g, err := svc.Invite(context.Background(), InviteInput{
		PetID:         "pet1",
		OwnerUserID:   "owner",
		GranteeUserID: "vet",
		Scopes:        scopes,
	})
	require.NoError(t, err)
	return g
}

func TestInvite_DefaultScopesWhenEmpty(t *testing.T) {
	svc, _ := newTestService(newFakeRepo())

	g := invite(t, svc)

	assert.Equal(t, StatusInvited, g.Status)
	assert.ElementsMatch(t, DefaultScopes, g.Scopes)
	assert.False(t, g.Has(ScopeCareWrite))
	assert.Equal(t, t0, g.CreatedAt)
}

func TestInvite_RejectsBadInput(t *testing.T) {
	svc, _ := newTestService(newFakeRepo())
	past := t0.Add(-time.Hour)

	tests := []struct {
		name string
		in   InviteInput
	}{
		{"unknown scope", InviteInput{PetID: "pet1", OwnerUserID: "owner", GranteeUserID: "vet", Scopes: []Scope{"admin:all"}}},
		{"self invite", InviteInput{PetID: "pet1", OwnerUserID: "owner", GranteeUserID: "owner"}},
		{"missing grantee", InviteInput{PetID: "pet1", OwnerUserID: "owner"}},
		{"expiry in the past", InviteInput{PetID: "pet1", OwnerUserID: "owner", GranteeUserID: "vet", ExpiresAt: &past}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Invite(context.Background(), tt.in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestInvite_ReinviteUpdatesSameGrant(t *testing.T) {
	repo := newFakeRepo()
	svc, now := newTestService(repo)

	g1 := invite(t, svc, ScopePetRead)
	*now = t0.Add(time.Minute)
	g2 := invite(t, svc, ScopeCareRead, ScopeCareWrite, ScopeCareRead)

	assert.Equal(t, g1.ID, g2.ID)
	assert.Equal(t, []Scope{ScopeCareRead, ScopeCareWrite}, g2.Scopes)
	assert.Len(t, repo.byID, 1)
}

func TestInvite_AfterRevokeCreatesNewGrant(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	ctx := context.Background()

	g1 := invite(t, svc)
	_, err := svc.Revoke(ctx, g1.ID, "owner")
	require.NoError(t, err)

	g2 := invite(t, svc)
	assert.NotEqual(t, g1.ID, g2.ID)
	assert.Equal(t, StatusInvited, g2.Status)
}

func TestAccept_ActivatesAndIsIdempotent(t *testing.T) {
	svc, now := newTestService(newFakeRepo())
	ctx := context.Background()
	g := invite(t, svc)

	_, err := svc.Accept(ctx, g.ID, "intruder")
	assert.ErrorIs(t, err, ErrForbidden)

	*now = t0.Add(time.Minute)
	accepted, err := svc.Accept(ctx, g.ID, "vet")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, accepted.Status)

	again, err := svc.Accept(ctx, g.ID, "vet")
	require.NoError(t, err)
	assert.Equal(t, accepted.UpdatedAt, again.UpdatedAt)

	_, err = svc.Accept(ctx, "missing", "vet")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAccept_LeavesOneLiveGrantForPair(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	// Data sucia: dos invitaciones vivas para el mismo par.
	for _, id := range []string{"dirty1", "dirty2"} {
		repo.byID[id] = Grant{ID: id, PetID: "pet1", OwnerUserID: "owner", GranteeUserID: "vet",
			Scopes: DefaultScopes, Status: StatusInvited, CreatedAt: t0, UpdatedAt: t0}
	}

	_, err := svc.Accept(context.Background(), "dirty1", "vet")
	require.NoError(t, err)

	assert.Equal(t, StatusActive, repo.byID["dirty1"].Status)
	assert.Equal(t, StatusRevoked, repo.byID["dirty2"].Status)
	assert.NotNil(t, repo.byID["dirty2"].RevokedAt)
}

func TestAccept_DuplicateRevokeFailureIsNotFatal(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	for _, id := range []string{"a", "b"} {
		repo.byID[id] = Grant{ID: id, PetID: "pet1", OwnerUserID: "owner", GranteeUserID: "vet",
			Status: StatusInvited, CreatedAt: t0, UpdatedAt: t0}
	}
	repo.failUpdate["b"] = true

	g, err := svc.Accept(context.Background(), "a", "vet")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, g.Status)
}

func TestRevoke_OnlyOwner(t *testing.T) {
	svc, _ := newTestService(newFakeRepo())
	ctx := context.Background()
	g := invite(t, svc)

	_, err := svc.Revoke(ctx, g.ID, "vet")
	assert.ErrorIs(t, err, ErrForbidden)

	revoked, err := svc.Revoke(ctx, g.ID, "owner")
	require.NoError(t, err)
	assert.Equal(t, StatusRevoked, revoked.Status)

	_, err = svc.Accept(ctx, g.ID, "vet")
	assert.ErrorIs(t, err, ErrBadState)
}

func TestAuthorize_OwnerBypassDelegateNeedsScope(t *testing.T) {
	svc, _ := newTestService(newFakeRepo())
	ctx := context.Background()

	delegate, err := svc.Authorize(ctx, "pet1", "owner", "owner", ScopeCareWrite)
	require.NoError(t, err)
	assert.False(t, delegate)

	_, err = svc.Authorize(ctx, "pet1", "owner", "", ScopePetRead)
	assert.ErrorIs(t, err, ErrForbidden)

	g := invite(t, svc, ScopeCareRead)
	_, err = svc.Authorize(ctx, "pet1", "owner", "vet", ScopeCareRead)
	assert.ErrorIs(t, err, ErrForbidden, "invited grant does not authorize yet")

	_, err = svc.Accept(ctx, g.ID, "vet")
	require.NoError(t, err)

	delegate, err = svc.Authorize(ctx, "pet1", "owner", "vet", ScopeCareRead)
	require.NoError(t, err)
	assert.True(t, delegate)

	_, err = svc.Authorize(ctx, "pet1", "owner", "vet", ScopeCareWrite)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAuthorize_ExpiredGrantStopsWorking(t *testing.T) {
	svc, now := newTestService(newFakeRepo())
	ctx := context.Background()

	expires := t0.Add(24 * time.Hour)
	g, err := svc.Invite(ctx, InviteInput{PetID: "pet1", OwnerUserID: "owner", GranteeUserID: "vet", ExpiresAt: &expires})
	require.NoError(t, err)
	_, err = svc.Accept(ctx, g.ID, "vet")
	require.NoError(t, err)

	_, err = svc.Authorize(ctx, "pet1", "owner", "vet", ScopePetRead)
	require.NoError(t, err)

	*now = expires
	_, err = svc.Authorize(ctx, "pet1", "owner", "vet", ScopePetRead)
	assert.ErrorIs(t, err, ErrForbidden)

	expired, err := svc.ListByGrantee(ctx, "vet", StatusExpired)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, StatusExpired, expired[0].EffectiveStatus(*now))

	active, err := svc.ListByGrantee(ctx, "vet", StatusActive)
	require.NoError(t, err)
	assert.Empty(t, active)

	// Re-invitar renueva y vuelve a pedir aceptación.
	later := expires.Add(48 * time.Hour)
	renewed, err := svc.Invite(ctx, InviteInput{PetID: "pet1", OwnerUserID: "owner", GranteeUserID: "vet", ExpiresAt: &later})
	require.NoError(t, err)
	assert.Equal(t, g.ID, renewed.ID)
	assert.Equal(t, StatusInvited, renewed.Status)
}

func TestParseScopes(t *testing.T) {
	got, err := ParseScopes([]Scope{" care:read ", "", "care:read", "metrics:create"})
	require.NoError(t, err)
	assert.Equal(t, []Scope{ScopeCareRead, ScopeMetricsCreate}, got)

	got, err = ParseScopes(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultScopes, got)

	_, err = ParseScopes([]Scope{"pets:delete"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
