package service_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-engine/internal/domain"
	"github.com/phrazzld/scry-engine/internal/domain/srs"
	"github.com/phrazzld/scry-engine/internal/platform/sqlite"
	"github.com/phrazzld/scry-engine/internal/service"
	"github.com/phrazzld/scry-engine/internal/store"
	"github.com/phrazzld/scry-engine/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC)

type fixture struct {
	repo    service.CardRepository
	cards   store.CardStore
	reviews store.ReviewStore
	clock   *testClock
}

// testClock is a settable time source.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutils.NewSQLiteDB(t)
	cards := sqlite.NewCardStore(db, nil)
	reviews := sqlite.NewReviewStore(db, nil)
	clock := &testClock{t: now}

	repo, err := service.NewCardRepository(db, cards, reviews, srs.NewDefaultService(),
		service.RepositoryOptions{StoreTimeout: 5 * time.Second, Now: clock.Now}, nil)
	require.NoError(t, err)

	return &fixture{repo: repo, cards: cards, reviews: reviews, clock: clock}
}

// gradeWith returns a GradeFunc that schedules with the default scheduler.
func gradeWith(q int, at time.Time) service.GradeFunc {
	scheduler := srs.NewDefaultService()
	return func(card *domain.Card) (*domain.Card, *domain.ReviewResult, error) {
		grade := domain.Grade{Quality: q}
		next, err := scheduler.Grade(card, grade, at)
		if err != nil {
			return nil, nil, err
		}
		return next, domain.NewReviewResult(card, next, grade, at), nil
	}
}

// conflictingCards behaves as if another writer always wins the race.
type conflictingCards struct {
	store.CardStore
}

func (c conflictingCards) Update(context.Context, *domain.Card) error {
	return store.ErrConcurrentModification
}

func (c conflictingCards) WithTx(tx *sql.Tx) store.CardStore {
	return conflictingCards{c.CardStore.WithTx(tx)}
}

func TestNewCardRepository(t *testing.T) {
	t.Parallel()
	db := testutils.NewSQLiteDB(t)
	cards := sqlite.NewCardStore(db, nil)
	reviews := sqlite.NewReviewStore(db, nil)
	sched := srs.NewDefaultService()

	tests := []struct {
		name    string
		build   func() (service.CardRepository, error)
		wantErr bool
	}{
		{"nil db", func() (service.CardRepository, error) {
			return service.NewCardRepository(nil, cards, reviews, sched, service.RepositoryOptions{}, nil)
		}, true},
		{"nil card store", func() (service.CardRepository, error) {
			return service.NewCardRepository(db, nil, reviews, sched, service.RepositoryOptions{}, nil)
		}, true},
		{"nil review store", func() (service.CardRepository, error) {
			return service.NewCardRepository(db, cards, nil, sched, service.RepositoryOptions{}, nil)
		}, true},
		{"nil scheduler", func() (service.CardRepository, error) {
			return service.NewCardRepository(db, cards, reviews, nil, service.RepositoryOptions{}, nil)
		}, true},
		{"all dependencies", func() (service.CardRepository, error) {
			return service.NewCardRepository(db, cards, reviews, sched, service.RepositoryOptions{}, nil)
		}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo, err := tc.build()
			if tc.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
				assert.Nil(t, repo)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, repo)
		})
	}
}

func TestCardRepository_Create(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	card, err := f.repo.Create(ctx, owner, "kana-a")
	require.NoError(t, err)
	assert.Equal(t, owner, card.OwnerID)
	assert.Equal(t, 2.5, card.EaseFactor)
	assert.Equal(t, 1, card.IntervalDays)
	assert.Zero(t, card.Repetitions)
	assert.True(t, card.Active)
	assert.True(t, card.NextReviewAt.Equal(now.AddDate(0, 0, 1)))

	_, err = f.repo.Create(ctx, owner, "kana-a")
	assert.ErrorIs(t, err, service.ErrDuplicateCard)

	_, err = f.repo.Create(ctx, owner, "")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.ErrorIs(t, err, domain.ErrCardItemIDEmpty)
}

func TestCardRepository_BulkCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates all", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		owner := uuid.New()

		cards, err := f.repo.BulkCreate(ctx, owner, []string{"a", "b", "c"})
		require.NoError(t, err)
		require.Len(t, cards, 3)

		active, err := f.repo.ListActive(ctx, owner)
		require.NoError(t, err)
		assert.Len(t, active, 3)
	})

	t.Run("empty batch", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		cards, err := f.repo.BulkCreate(ctx, uuid.New(), nil)
		require.NoError(t, err)
		assert.Empty(t, cards)
	})

	t.Run("existing duplicate aborts whole batch", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		owner := uuid.New()
		_, err := f.repo.Create(ctx, owner, "b")
		require.NoError(t, err)

		_, err = f.repo.BulkCreate(ctx, owner, []string{"a", "b", "c"})
		assert.ErrorIs(t, err, service.ErrDuplicateCard)

		active, err := f.repo.ListActive(ctx, owner)
		require.NoError(t, err)
		assert.Len(t, active, 1, "no partial insert")
	})

	t.Run("repeat within batch", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		owner := uuid.New()

		_, err := f.repo.BulkCreate(ctx, owner, []string{"a", "b", "a"})
		assert.ErrorIs(t, err, service.ErrDuplicateCard)

		active, err := f.repo.ListActive(ctx, owner)
		require.NoError(t, err)
		assert.Empty(t, active)
	})

	t.Run("invalid item", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.repo.BulkCreate(ctx, uuid.New(), []string{"a", ""})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestCardRepository_GetByID(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	card, err := f.repo.Create(ctx, owner, "x")
	require.NoError(t, err)

	got, err := f.repo.GetByID(ctx, owner, card.ID)
	require.NoError(t, err)
	assert.Equal(t, card.ID, got.ID)

	_, err = f.repo.GetByID(ctx, uuid.New(), card.ID)
	assert.ErrorIs(t, err, service.ErrCardNotOwned)

	_, err = f.repo.GetByID(ctx, owner, uuid.New())
	assert.ErrorIs(t, err, service.ErrCardNotFound)
}

func TestCardRepository_GetByItem(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	card, err := f.repo.Create(ctx, owner, "kana-a")
	require.NoError(t, err)
	_, err = f.repo.Create(ctx, owner, "kana-a")
	require.ErrorIs(t, err, service.ErrDuplicateCard)

	existing, err := f.repo.GetByItem(ctx, owner, "kana-a")
	require.NoError(t, err)
	assert.Equal(t, card.ID, existing.ID)
	assert.Equal(t, "kana-a", existing.ItemID)

	_, err = f.repo.Suspend(ctx, owner, card.ID)
	require.NoError(t, err)
	suspended, err := f.repo.GetByItem(ctx, owner, "kana-a")
	require.NoError(t, err)
	assert.False(t, suspended.Active, "inactive cards are still found")

	_, err = f.repo.GetByItem(ctx, uuid.New(), "kana-a")
	assert.ErrorIs(t, err, service.ErrCardNotFound, "other owners' cards are invisible")

	_, err = f.repo.GetByItem(ctx, owner, "kana-b")
	assert.ErrorIs(t, err, service.ErrCardNotFound)
}

func TestCardRepository_FetchDue(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	for i := 0; i < 60; i++ {
		testutils.MustInsertCard(ctx, t, f.cards, owner, now,
			testutils.WithNextReviewAt(now.Add(-time.Duration(i+1)*time.Minute)))
	}
	testutils.MustInsertCard(ctx, t, f.cards, owner, now, testutils.WithNextReviewAt(now.Add(time.Hour)))

	due, err := f.repo.FetchDue(ctx, owner, now, 0)
	require.NoError(t, err)
	assert.Len(t, due, service.DefaultDueLimit)
	for i := 1; i < len(due); i++ {
		assert.False(t, due[i].NextReviewAt.Before(due[i-1].NextReviewAt), "ascending by due time")
	}

	due, err = f.repo.FetchDue(ctx, owner, now, 5)
	require.NoError(t, err)
	assert.Len(t, due, 5)

	none, err := f.repo.FetchDue(ctx, uuid.New(), now, 5)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestCardRepository_ApplyGrade(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("persists card and review atomically", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		owner := uuid.New()
		card := testutils.MustInsertCard(ctx, t, f.cards, owner, now, testutils.WithNextReviewAt(now))

		next, result, err := f.repo.ApplyGrade(ctx, owner, card.ID, gradeWith(4, now))
		require.NoError(t, err)
		assert.Equal(t, 1, next.Repetitions)
		assert.Equal(t, int64(2), next.Version)
		assert.Equal(t, 4, result.Quality)
		assert.True(t, result.IsSuccess)

		stored, err := f.cards.GetByID(ctx, card.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.Repetitions)
		assert.Equal(t, int64(2), stored.Version)
		require.NotNil(t, stored.LastReviewedAt)
		assert.True(t, stored.LastReviewedAt.Equal(now))

		history, err := f.reviews.ListByCard(ctx, card.ID, 10)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, result.ID, history[0].ID)
	})

	t.Run("grade function error rolls back", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		owner := uuid.New()
		card := testutils.MustInsertCard(ctx, t, f.cards, owner, now)
		boom := errors.New("boom")

		_, _, err := f.repo.ApplyGrade(ctx, owner, card.ID,
			func(*domain.Card) (*domain.Card, *domain.ReviewResult, error) { return nil, nil, boom })
		assert.ErrorIs(t, err, boom)

		stored, err := f.cards.GetByID(ctx, card.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stored.Version)
	})

	t.Run("invalid quality leaves card untouched", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		owner := uuid.New()
		card := testutils.MustInsertCard(ctx, t, f.cards, owner, now)

		_, _, err := f.repo.ApplyGrade(ctx, owner, card.ID, gradeWith(6, now))
		assert.ErrorIs(t, err, domain.ErrInvalidQuality)

		history, err := f.reviews.ListByCard(ctx, card.ID, 10)
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("inactive card", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		owner := uuid.New()
		card := testutils.MustInsertCard(ctx, t, f.cards, owner, now, testutils.Inactive())

		_, _, err := f.repo.ApplyGrade(ctx, owner, card.ID, gradeWith(5, now))
		assert.ErrorIs(t, err, service.ErrCardInactive)
	})

	t.Run("ownership and existence", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		owner := uuid.New()
		card := testutils.MustInsertCard(ctx, t, f.cards, owner, now)

		_, _, err := f.repo.ApplyGrade(ctx, uuid.New(), card.ID, gradeWith(5, now))
		assert.ErrorIs(t, err, service.ErrCardNotOwned)

		_, _, err = f.repo.ApplyGrade(ctx, owner, uuid.New(), gradeWith(5, now))
		assert.ErrorIs(t, err, service.ErrCardNotFound)
	})

	t.Run("conflicting write is transient and rolls back", func(t *testing.T) {
		t.Parallel()
		db := testutils.NewSQLiteDB(t)
		cards := sqlite.NewCardStore(db, nil)
		reviews := sqlite.NewReviewStore(db, nil)
		repo, err := service.NewCardRepository(db, conflictingCards{cards}, reviews,
			srs.NewDefaultService(), service.RepositoryOptions{}, nil)
		require.NoError(t, err)

		owner := uuid.New()
		card := testutils.MustInsertCard(ctx, t, cards, owner, now)

		_, _, err = repo.ApplyGrade(ctx, owner, card.ID, gradeWith(5, now))
		assert.ErrorIs(t, err, store.ErrConcurrentModification)
		assert.True(t, store.IsTransientError(err))

		history, err := reviews.ListByCard(ctx, card.ID, 10)
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("expired store deadline is a timeout", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		owner := uuid.New()
		card := testutils.MustInsertCard(ctx, t, f.cards, owner, now)

		expired, cancel := context.WithDeadline(ctx, time.Now().Add(-time.Second))
		defer cancel()

		_, _, err := f.repo.ApplyGrade(expired, owner, card.ID, gradeWith(5, now))
		assert.ErrorIs(t, err, store.ErrStoreTimeout)
		assert.True(t, store.IsTransientError(err))
	})
}

func TestCardRepository_SuspendRestore(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	card := testutils.MustInsertCard(ctx, t, f.cards, owner, now,
		testutils.WithNextReviewAt(now.Add(-time.Hour)), testutils.WithSchedule(2.2, 12, 4))

	suspended, err := f.repo.Suspend(ctx, owner, card.ID)
	require.NoError(t, err)
	assert.False(t, suspended.Active)
	assert.Equal(t, 12, suspended.IntervalDays, "schedule untouched")
	assert.Equal(t, 4, suspended.Repetitions)
	assert.InDelta(t, 2.2, suspended.EaseFactor, 1e-9)

	due, err := f.repo.FetchDue(ctx, owner, now, 10)
	require.NoError(t, err)
	assert.Empty(t, due, "suspended cards are never due")

	restored, err := f.repo.Restore(ctx, owner, card.ID)
	require.NoError(t, err)
	assert.True(t, restored.Active)
	assert.True(t, restored.NextReviewAt.Equal(card.NextReviewAt))

	_, err = f.repo.Suspend(ctx, uuid.New(), card.ID)
	assert.ErrorIs(t, err, service.ErrCardNotOwned)
	_, err = f.repo.Restore(ctx, owner, uuid.New())
	assert.ErrorIs(t, err, service.ErrCardNotFound)
}

func TestCardRepository_Postpone(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	card := testutils.MustInsertCard(ctx, t, f.cards, owner, now, testutils.WithSchedule(2.5, 6, 2))

	postponed, err := f.repo.Postpone(ctx, owner, card.ID, 3)
	require.NoError(t, err)
	assert.True(t, postponed.NextReviewAt.Equal(card.NextReviewAt.AddDate(0, 0, 3)))
	assert.Equal(t, 6, postponed.IntervalDays)
	assert.Equal(t, 2, postponed.Repetitions)
	assert.Equal(t, int64(2), postponed.Version)

	_, err = f.repo.Postpone(ctx, owner, card.ID, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.ErrorIs(t, err, srs.ErrInvalidDays)
}

func TestCardRepository_ArchiveMastered(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("idempotent", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		owner := uuid.New()
		testutils.MustInsertCard(ctx, t, f.cards, owner, now, testutils.WithSchedule(2.5, 365, 12))
		testutils.MustInsertCard(ctx, t, f.cards, owner, now, testutils.WithSchedule(2.5, 30, 5))

		n, err := f.repo.ArchiveMastered(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = f.repo.ArchiveMastered(ctx, owner)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("disabled threshold archives nothing", func(t *testing.T) {
		t.Parallel()
		db := testutils.NewSQLiteDB(t)
		cards := sqlite.NewCardStore(db, nil)
		params, err := srs.NewParams(srs.ParamsConfig{DisableMastery: true})
		require.NoError(t, err)
		sched, err := srs.NewServiceWithParams(params)
		require.NoError(t, err)
		repo, err := service.NewCardRepository(db, cards, sqlite.NewReviewStore(db, nil), sched,
			service.RepositoryOptions{}, nil)
		require.NoError(t, err)

		owner := uuid.New()
		testutils.MustInsertCard(ctx, t, cards, owner, now, testutils.WithSchedule(2.5, 900, 20))

		n, err := repo.ArchiveMastered(ctx, owner)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestCardRepository_CountDue(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	testutils.MustInsertCard(ctx, t, f.cards, owner, now, testutils.WithNextReviewAt(now.Add(-time.Minute)))
	testutils.MustInsertCard(ctx, t, f.cards, owner, now, testutils.WithNextReviewAt(now.Add(time.Minute)))

	n, err := f.repo.CountDue(ctx, owner, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
