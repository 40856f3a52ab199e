// Package storetest is a behavioural test suite shared by every
// implementation of the store interfaces.
package storetest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-engine/internal/domain"
	"github.com/phrazzld/scry-engine/internal/store"
	"github.com/phrazzld/scry-engine/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory opens a fresh, migrated database and returns stores bound to it.
type Factory func(t *testing.T) (db *sql.DB, cards store.CardStore, reviews store.ReviewStore)

var base = time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

// Run exercises the CardStore and ReviewStore contracts.
func Run(t *testing.T, newStores Factory) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newStores) })
	t.Run("DuplicateOwnerItem", func(t *testing.T) { testDuplicate(t, newStores) })
	t.Run("CreateMultipleRollsBack", func(t *testing.T) { testCreateMultipleRollback(t, newStores) })
	t.Run("FindDue", func(t *testing.T) { testFindDue(t, newStores) })
	t.Run("CountDueAndListActive", func(t *testing.T) { testCountDue(t, newStores) })
	t.Run("VersionedUpdate", func(t *testing.T) { testVersionedUpdate(t, newStores) })
	t.Run("SetActive", func(t *testing.T) { testSetActive(t, newStores) })
	t.Run("DeactivateMastered", func(t *testing.T) { testDeactivateMastered(t, newStores) })
	t.Run("Reviews", func(t *testing.T) { testReviews(t, newStores) })
}

func testCreateAndGet(t *testing.T, newStores Factory) {
	ctx := context.Background()
	_, cards, _ := newStores(t)
	owner := uuid.New()

	card := testutils.MustInsertCard(ctx, t, cards, owner, base)

	got, err := cards.GetByID(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, card.ID, got.ID)
	assert.Equal(t, owner, got.OwnerID)
	assert.Equal(t, card.ItemID, got.ItemID)
	assert.Equal(t, 2.5, got.EaseFactor)
	assert.Equal(t, 1, got.IntervalDays)
	assert.Zero(t, got.Repetitions)
	assert.True(t, got.NextReviewAt.Equal(card.NextReviewAt))
	assert.Nil(t, got.LastReviewedAt)
	assert.True(t, got.Active)
	assert.Equal(t, int64(1), got.Version)

	byItem, err := cards.GetByOwnerAndItem(ctx, owner, card.ItemID)
	require.NoError(t, err)
	assert.Equal(t, card.ID, byItem.ID)

	_, err = cards.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrCardNotFound)

	_, err = cards.GetByOwnerAndItem(ctx, uuid.New(), card.ItemID)
	assert.ErrorIs(t, err, store.ErrCardNotFound)

	invalid := testutils.CreateTestCard(t, owner, base)
	invalid.EaseFactor = 1.0
	assert.ErrorIs(t, cards.Create(ctx, invalid), store.ErrInvalidEntity)
}

func testDuplicate(t *testing.T, newStores Factory) {
	ctx := context.Background()
	_, cards, _ := newStores(t)
	owner := uuid.New()

	card := testutils.MustInsertCard(ctx, t, cards, owner, base)

	dup, err := domain.NewCard(owner, card.ItemID, base)
	require.NoError(t, err)
	err = cards.Create(ctx, dup)
	assert.ErrorIs(t, err, store.ErrCardExists)
	assert.True(t, store.IsDuplicateError(err))

	other, err := domain.NewCard(uuid.New(), card.ItemID, base)
	require.NoError(t, err)
	assert.NoError(t, cards.Create(ctx, other), "same item for another owner is allowed")
}

func testCreateMultipleRollback(t *testing.T, newStores Factory) {
	ctx := context.Background()
	db, cards, _ := newStores(t)
	owner := uuid.New()

	existing := testutils.MustInsertCard(ctx, t, cards, owner, base)

	fresh := testutils.CreateTestCard(t, owner, base)
	dup, err := domain.NewCard(owner, existing.ItemID, base)
	require.NoError(t, err)

	err = store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return cards.WithTx(tx).CreateMultiple(ctx, []*domain.Card{fresh, dup})
	})
	assert.ErrorIs(t, err, store.ErrCardExists)

	_, err = cards.GetByID(ctx, fresh.ID)
	assert.ErrorIs(t, err, store.ErrCardNotFound, "batch is all or nothing")
}

func testFindDue(t *testing.T, newStores Factory) {
	ctx := context.Background()
	_, cards, _ := newStores(t)
	owner := uuid.New()

	oldest := testutils.MustInsertCard(ctx, t, cards, owner, base, testutils.WithNextReviewAt(base.Add(-48*time.Hour)))
	older := testutils.MustInsertCard(ctx, t, cards, owner, base, testutils.WithNextReviewAt(base.Add(-time.Hour)))
	exact := testutils.MustInsertCard(ctx, t, cards, owner, base, testutils.WithNextReviewAt(base))
	testutils.MustInsertCard(ctx, t, cards, owner, base, testutils.WithNextReviewAt(base.Add(time.Second)))
	testutils.MustInsertCard(ctx, t, cards, owner, base, testutils.WithNextReviewAt(base.Add(-72*time.Hour)), testutils.Inactive())
	testutils.MustInsertCard(ctx, t, cards, uuid.New(), base, testutils.WithNextReviewAt(base.Add(-72*time.Hour)))

	due, err := cards.FindDue(ctx, owner, base, 10)
	require.NoError(t, err)
	require.Len(t, due, 3)
	assert.Equal(t, []uuid.UUID{oldest.ID, older.ID, exact.ID}, []uuid.UUID{due[0].ID, due[1].ID, due[2].ID})

	limited, err := cards.FindDue(ctx, owner, base, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
	assert.Equal(t, oldest.ID, limited[0].ID)

	none, err := cards.FindDue(ctx, uuid.New(), base, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testCountDue(t *testing.T, newStores Factory) {
	ctx := context.Background()
	_, cards, _ := newStores(t)
	owner := uuid.New()

	testutils.MustInsertCard(ctx, t, cards, owner, base, testutils.WithNextReviewAt(base.Add(-time.Hour)))
	testutils.MustInsertCard(ctx, t, cards, owner, base, testutils.WithNextReviewAt(base))
	testutils.MustInsertCard(ctx, t, cards, owner, base, testutils.WithNextReviewAt(base.Add(time.Hour)))
	testutils.MustInsertCard(ctx, t, cards, owner, base, testutils.WithNextReviewAt(base.Add(-time.Hour)), testutils.Inactive())

	n, err := cards.CountDue(ctx, owner, base)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "strictly before")

	n, err = cards.CountDue(ctx, owner, base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	active, err := cards.ListActive(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, active, 3)
}

func testVersionedUpdate(t *testing.T, newStores Factory) {
	ctx := context.Background()
	_, cards, _ := newStores(t)
	card := testutils.MustInsertCard(ctx, t, cards, uuid.New(), base)

	stale := card.Clone()

	reviewed := base.Add(time.Hour)
	card.Repetitions = 1
	card.EaseFactor = 2.6
	card.NextReviewAt = reviewed.AddDate(0, 0, 1)
	card.LastReviewedAt = &reviewed
	card.UpdatedAt = reviewed
	require.NoError(t, cards.Update(ctx, card))
	assert.Equal(t, int64(2), card.Version)

	got, err := cards.GetByID(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, 1, got.Repetitions)
	assert.InDelta(t, 2.6, got.EaseFactor, 1e-9)
	require.NotNil(t, got.LastReviewedAt)
	assert.True(t, got.LastReviewedAt.Equal(reviewed))

	stale.Repetitions = 5
	err = cards.Update(ctx, stale)
	assert.ErrorIs(t, err, store.ErrConcurrentModification)
	assert.Equal(t, int64(1), stale.Version, "failed update leaves version untouched")

	missing := testutils.CreateTestCard(t, uuid.New(), base)
	assert.ErrorIs(t, cards.Update(ctx, missing), store.ErrCardNotFound)
}

func testSetActive(t *testing.T, newStores Factory) {
	ctx := context.Background()
	_, cards, _ := newStores(t)
	card := testutils.MustInsertCard(ctx, t, cards, uuid.New(), base)

	suspended, err := cards.SetActive(ctx, card.ID, false, base.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, suspended.Active)
	assert.Equal(t, int64(2), suspended.Version)
	assert.True(t, suspended.NextReviewAt.Equal(card.NextReviewAt), "schedule untouched")

	restored, err := cards.SetActive(ctx, card.ID, true, base.Add(2*time.Minute))
	require.NoError(t, err)
	assert.True(t, restored.Active)

	_, err = cards.SetActive(ctx, uuid.New(), true, base)
	assert.ErrorIs(t, err, store.ErrCardNotFound)
}

func testDeactivateMastered(t *testing.T, newStores Factory) {
	ctx := context.Background()
	_, cards, _ := newStores(t)
	owner := uuid.New()

	testutils.MustInsertCard(ctx, t, cards, owner, base, testutils.WithSchedule(2.5, 400, 12))
	testutils.MustInsertCard(ctx, t, cards, owner, base, testutils.WithSchedule(2.5, 365, 11))
	testutils.MustInsertCard(ctx, t, cards, owner, base, testutils.WithSchedule(2.5, 364, 11))
	testutils.MustInsertCard(ctx, t, cards, uuid.New(), base, testutils.WithSchedule(2.5, 500, 12))

	n, err := cards.DeactivateMastered(ctx, owner, 365, base)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = cards.DeactivateMastered(ctx, owner, 365, base)
	require.NoError(t, err)
	assert.Zero(t, n, "second call changes nothing")

	active, err := cards.ListActive(ctx, owner)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, 364, active[0].IntervalDays)
}

func testReviews(t *testing.T, newStores Factory) {
	ctx := context.Background()
	_, cards, reviews := newStores(t)
	owner := uuid.New()
	card := testutils.MustInsertCard(ctx, t, cards, owner, base)

	spent := 4200 * time.Millisecond
	confidence := 0.75
	for i, q := range []int{5, 2, 4, 3} {
		next := card.Clone()
		next.IntervalDays = i + 1
		grade := domain.Grade{Quality: q}
		if i == 0 {
			grade.TimeSpent = &spent
			grade.Confidence = &confidence
		}
		r := domain.NewReviewResult(card, next, grade, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, reviews.Create(ctx, r))
	}

	listed, err := reviews.ListByCard(ctx, card.ID, 10)
	require.NoError(t, err)
	require.Len(t, listed, 4)
	assert.Equal(t, 3, listed[0].Quality, "newest first")
	oldest := listed[3]
	assert.Equal(t, 5, oldest.Quality)
	assert.True(t, oldest.IsSuccess)
	require.NotNil(t, oldest.TimeSpent)
	assert.Equal(t, spent, *oldest.TimeSpent)
	require.NotNil(t, oldest.Confidence)
	assert.InDelta(t, confidence, *oldest.Confidence, 1e-9)
	assert.Nil(t, listed[0].TimeSpent)

	counts, err := reviews.CountSince(ctx, owner, base)
	require.NoError(t, err)
	assert.Equal(t, store.RetentionCounts{Total: 4, Successful: 3}, counts)

	counts, err = reviews.CountSince(ctx, owner, base.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, store.RetentionCounts{Total: 2, Successful: 2}, counts)

	counts, err = reviews.CountSince(ctx, uuid.New(), base)
	require.NoError(t, err)
	assert.Zero(t, counts.Total)

	times, err := reviews.GradedTimesSince(ctx, owner, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, times, 3)
	assert.True(t, times[0].Equal(base.Add(3*time.Hour)))
}
