package pets

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"pet-health-tracker/internal/platform/caldate"
	"pet-health-tracker/internal/platform/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	byID map[string]Pet
	err  error
}

func newFakeRepo() *fakeRepo { return &fakeRepo{byID: map[string]Pet{}} }

func (r *fakeRepo) Create(_ context.Context, p Pet) error {
	if r.err != nil {
		return r.err
	}
	r.byID[p.ID] = p
	return nil
}

func (r *fakeRepo) Update(_ context.Context, p Pet) error {
	if _, ok := r.byID[p.ID]; !ok {
		return ErrNotFound
	}
	r.byID[p.ID] = p
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (Pet, error) {
	if r.err != nil {
		return Pet{}, r.err
	}
	p, ok := r.byID[id]
	if !ok {
		return Pet{}, ErrNotFound
	}
	return p, nil
}

func (r *fakeRepo) ListByOwner(_ context.Context, ownerUserID string) ([]Pet, error) {
	var out []Pet
	for _, p := range r.byID {
		if p.OwnerUserID == ownerUserID {
			out = append(out, p)
		}
	}
	return out, nil
}

var now = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func newTestService(repo Repository) *Service {
	svc := NewService(repo, clock.Fixed(now))
	svc.newID = func() string { return "pet1" }
	return svc
}

func date(y int, m time.Month, d int) *caldate.Date {
	v := caldate.New(y, m, d)
	return &v
}

func TestCreate_NormalizesFields(t *testing.T) {
	svc := newTestService(newFakeRepo())

	p, err := svc.Create(context.Background(), "owner", CreateInput{
		Name:      "  Luna ",
		Species:   "DOG",
		Sex:       "Female",
		BirthDate: date(2020, time.March, 1),
	})
	require.NoError(t, err)

	assert.Equal(t, "pet1", p.ID)
	assert.Equal(t, "Luna", p.Name)
	assert.Equal(t, SpeciesDog, p.Species)
	assert.Equal(t, SexFemale, p.Sex)
	assert.Equal(t, now, p.CreatedAt)
	assert.Equal(t, "2020-03-01", p.BirthDate.String())
}

func TestCreate_Rejects(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, "owner", CreateInput{Name: " "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, "", CreateInput{Name: "Luna"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, "owner", CreateInput{Name: "Luna", BirthDate: date(2024, time.January, 12)})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreate_BirthDateTodayAnywhereIsAccepted(t *testing.T) {
	svc := newTestService(newFakeRepo())

	// 12:00 UTC ya es 11 de enero en UTC+14.
	p, err := svc.Create(context.Background(), "owner", CreateInput{Name: "Luna", BirthDate: date(2024, time.January, 11)})
	require.NoError(t, err)
	assert.NotNil(t, p.BirthDate)
}

func TestCreate_WrapsStorageErrors(t *testing.T) {
	repo := newFakeRepo()
	repo.err = errors.New("connection refused")
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), "owner", CreateInput{Name: "Luna"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "create pet")
}

func TestUpdateProfile_PatchAndClearBirthDate(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, "owner", CreateInput{Name: "Luna", BirthDate: date(2020, time.March, 1)})
	require.NoError(t, err)

	name := "Luna II"
	p, err := svc.UpdateProfile(ctx, "pet1", UpdateProfileInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Luna II", p.Name)
	require.NotNil(t, p.BirthDate, "absent birth_date is left untouched")

	var req struct {
		BirthDate OptionalDate `json:"birth_date"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"birth_date": null}`), &req))
	require.True(t, req.BirthDate.Set)

	p, err = svc.UpdateProfile(ctx, "pet1", UpdateProfileInput{BirthDate: req.BirthDate})
	require.NoError(t, err)
	assert.Nil(t, p.BirthDate)

	empty := ""
	_, err = svc.UpdateProfile(ctx, "pet1", UpdateProfileInput{Name: &empty})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UpdateProfile(ctx, "missing", UpdateProfileInput{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

type fakeSchedule struct {
	due *caldate.Date
	err error
}

func (f fakeSchedule) EarliestPendingDue(_ context.Context, ownerUserID, petID string) (*caldate.Date, error) {
	return f.due, f.err
}

func TestUpdateProfile_BirthDateMustNotPassPendingCare(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, "owner", CreateInput{Name: "Luna", BirthDate: date(2020, time.March, 1)})
	require.NoError(t, err)
	svc.UseCareSchedule(fakeSchedule{due: date(2023, time.June, 1)})

	_, err = svc.UpdateProfile(ctx, "pet1", UpdateProfileInput{BirthDate: OptionalDate{Set: true, Value: date(2023, time.June, 2)}})
	assert.ErrorIs(t, err, ErrInvalidInput)
	p, _ := repo.GetByID(ctx, "pet1")
	assert.Equal(t, "2020-03-01", p.BirthDate.String())

	// El mismo día del vencimiento sí vale.
	p, err = svc.UpdateProfile(ctx, "pet1", UpdateProfileInput{BirthDate: OptionalDate{Set: true, Value: date(2023, time.June, 1)}})
	require.NoError(t, err)
	assert.Equal(t, "2023-06-01", p.BirthDate.String())

	// Un PATCH sin birth_date no consulta la agenda.
	svc.UseCareSchedule(fakeSchedule{err: errors.New("care store down")})
	name := "Luna II"
	_, err = svc.UpdateProfile(ctx, "pet1", UpdateProfileInput{Name: &name})
	require.NoError(t, err)

	_, err = svc.UpdateProfile(ctx, "pet1", UpdateProfileInput{BirthDate: OptionalDate{Set: true, Value: date(2022, time.January, 1)}})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidInput)
}

func TestOptionalDate(t *testing.T) {
	var req struct {
		BirthDate OptionalDate `json:"birth_date"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{}`), &req))
	assert.False(t, req.BirthDate.Set)

	require.NoError(t, json.Unmarshal([]byte(`{"birth_date":"2021-05-04"}`), &req))
	assert.True(t, req.BirthDate.Set)
	assert.Equal(t, "2021-05-04", req.BirthDate.Value.String())

	assert.Error(t, json.Unmarshal([]byte(`{"birth_date":"04/05/2021"}`), &req))
}

func TestParseSpeciesAndSex(t *testing.T) {
	assert.Equal(t, SpeciesCat, ParseSpecies(" Cat "))
	assert.Equal(t, SpeciesOther, ParseSpecies("ferret"))
	assert.Equal(t, SexMale, ParseSex("MALE"))
	assert.Equal(t, SexUnknown, ParseSex(""))
}

func TestOwnershipLookups(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, "owner", CreateInput{Name: "Luna", BirthDate: date(2020, time.March, 1)})
	require.NoError(t, err)

	owner, err := svc.OwnerOf(ctx, "pet1")
	require.NoError(t, err)
	assert.Equal(t, "owner", owner)

	bd, err := svc.BirthDateOf(ctx, "pet1")
	require.NoError(t, err)
	assert.Equal(t, caldate.New(2020, time.March, 1), *bd)

	_, err = svc.OwnerOf(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
