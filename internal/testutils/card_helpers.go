package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-engine/internal/domain"
	"github.com/phrazzld/scry-engine/internal/store"
	"github.com/stretchr/testify/require"
)

// CardOption adjusts a fixture card before it is stored.
type CardOption func(c *domain.Card)

// WithNextReviewAt sets the card's due time.
func WithNextReviewAt(t time.Time) CardOption {
	return func(c *domain.Card) { c.NextReviewAt = t.UTC() }
}

// WithSchedule sets ease, interval and repetitions.
func WithSchedule(ease float64, interval, reps int) CardOption {
	return func(c *domain.Card) {
		c.EaseFactor = ease
		c.IntervalDays = interval
		c.Repetitions = reps
	}
}

// Inactive marks the card as archived or suspended.
func Inactive() CardOption {
	return func(c *domain.Card) { c.Active = false }
}

// CreateTestCard builds a valid card for owner without storing it.
func CreateTestCard(t *testing.T, ownerID uuid.UUID, now time.Time, opts ...CardOption) *domain.Card {
	t.Helper()
	card, err := domain.NewCard(ownerID, "item-"+uuid.NewString()[:8], now.Truncate(time.Microsecond))
	require.NoError(t, err, "Failed to create test card")
	for _, opt := range opts {
		opt(card)
	}
	return card
}

// MustInsertCard stores a fixture card and returns it.
func MustInsertCard(ctx context.Context, t *testing.T, cards store.CardStore, ownerID uuid.UUID, now time.Time, opts ...CardOption) *domain.Card {
	t.Helper()
	card := CreateTestCard(t, ownerID, now, opts...)
	require.NoError(t, cards.Create(ctx, card), "Failed to insert test card")
	return card
}
