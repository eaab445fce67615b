package metrics

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

type testRepo struct {
	byID      map[string]Record
	createErr error
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Record{}}
}

func (r *testRepo) Create(ctx context.Context, rec Record) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.byID[rec.ID] = rec
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Record, error) {
	rec, ok := r.byID[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (r *testRepo) ListByPet(ctx context.Context, ownerUserID, petID string, filter ListFilter) ([]Record, error) {
	out := make([]Record, 0)
	for _, rec := range r.byID {
		if rec.OwnerUserID != ownerUserID || rec.PetID != petID {
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
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

func ptr[T any](v T) *T { return &v }

var owner = Actor{Type: ActorTypeOwnerUser, ID: "u1"}

func newTestService(now time.Time) (*Service, *testRepo) {
	repo := newTestRepo()
	svc := NewService(repo, clock.Fixed(now))
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("rec-%d", n)
	}
	return svc, repo
}

func TestService_Create_WeightAndBehavior(t *testing.T) {
	now := time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC)
	svc, repo := newTestService(now)

	at := time.Date(2024, 1, 1, 14, 30, 0, 0, time.UTC)
	rec, err := svc.Create(context.Background(), "p1", "u1", owner, CreateInput{
		RecordedAt: at,
		WeightKg:   ptr(4.2),
		Behavior:   "  calm ",
	})
	require.NoError(t, err)

	assert.Equal(t, at, rec.RecordedAt)
	assert.Equal(t, now, rec.CreatedAt)
	assert.Equal(t, "calm", rec.Behavior)
	assert.Equal(t, SourceManual, rec.Source)
	assert.Equal(t, []Field{
		{Kind: KindWeight, Value: "4.2"},
		{Kind: KindBehavior, Value: "calm"},
	}, rec.Fields())

	_, ok := repo.byID[rec.ID]
	assert.True(t, ok)
}

func TestService_Create_DefaultsRecordedAtToNow(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	svc, _ := newTestService(now)

	rec, err := svc.Create(context.Background(), "p1", "u1", owner, CreateInput{FoodIntake: "Normal"})
	require.NoError(t, err)
	assert.Equal(t, now, rec.RecordedAt)
	assert.Equal(t, FoodIntakeNormal, rec.FoodIntake)
}

func TestService_Create_ValidationBeforeWrite(t *testing.T) {
	svc, repo := newTestService(time.Now())

	cases := map[string]CreateInput{
		"empty":          {},
		"weight zero":    {WeightKg: ptr(0.0)},
		"weight neg":     {WeightKg: ptr(-1.5)},
		"activity low":   {ActivityLevel: ptr(0)},
		"activity high":  {ActivityLevel: ptr(11)},
		"sleep negative": {SleepHours: ptr(-0.5)},
		"sleep too much": {SleepHours: ptr(24.5)},
		"only spaces":    {Notes: "   "},
	}

	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "p1", "u1", owner, in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))

			var verr *ValidationError
			assert.True(t, errors.As(err, &verr))
		})
	}
	assert.Empty(t, repo.byID)
}

func TestService_Create_Boundaries(t *testing.T) {
	svc, _ := newTestService(time.Now())

	_, err := svc.Create(context.Background(), "p1", "u1", owner, CreateInput{ActivityLevel: ptr(1), SleepHours: ptr(0.0)})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), "p1", "u1", owner, CreateInput{ActivityLevel: ptr(10), SleepHours: ptr(24.0)})
	require.NoError(t, err)
}

func TestService_Create_RepoErrorIsWrapped(t *testing.T) {
	svc, repo := newTestService(time.Now())
	boom := errors.New("db down")
	repo.createErr = boom

	_, err := svc.Create(context.Background(), "p1", "u1", owner, CreateInput{WeightKg: ptr(3.0)})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, ErrInvalidInput))
}

func TestService_ListByPet_OrderedAndScopedToOwner(t *testing.T) {
	svc, _ := newTestService(time.Now())
	ctx := context.Background()

	late := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)
	early := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	_, err := svc.Create(ctx, "p1", "u1", owner, CreateInput{RecordedAt: late, WeightKg: ptr(4.0)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "p1", "u1", owner, CreateInput{RecordedAt: early, WeightKg: ptr(3.9)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "p1", "u2", Actor{Type: ActorTypeOwnerUser, ID: "u2"}, CreateInput{RecordedAt: early, Notes: "otro dueño"})
	require.NoError(t, err)

	items, err := svc.ListByPet(ctx, "u1", "p1", ListFilter{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, early, items[0].RecordedAt)
	assert.Equal(t, late, items[1].RecordedAt)
}

func TestService_ListByPet_InvertedRange(t *testing.T) {
	svc, _ := newTestService(time.Now())
	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(-time.Hour)

	_, err := svc.ListByPet(context.Background(), "u1", "p1", ListFilter{From: &from, To: &to})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
