package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-engine/internal/domain"
)

// RetentionCounts is the number of reviews in a period and how many succeeded.
type RetentionCounts struct {
	Total      int
	Successful int
}

// ReviewStore defines the interface for the append-only review history.
type ReviewStore interface {
	// Create appends a review result.
	Create(ctx context.Context, result *domain.ReviewResult) error

	// ListByCard returns the card's reviews, newest first, at most limit.
	ListByCard(ctx context.Context, cardID uuid.UUID, limit int) ([]*domain.ReviewResult, error)

	// CountSince counts the owner's reviews graded at or after since.
	CountSince(ctx context.Context, ownerID uuid.UUID, since time.Time) (RetentionCounts, error)

	// GradedTimesSince returns the graded_at time of every review of the
	// owner at or after since, newest first.
	GradedTimesSince(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]time.Time, error)

	// WithTx returns a new ReviewStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ReviewStore
}
