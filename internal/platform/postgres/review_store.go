package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-engine/internal/domain"
	"github.com/phrazzld/scry-engine/internal/platform/logger"
	"github.com/phrazzld/scry-engine/internal/store"
)

// PostgresReviewStore implements the store.ReviewStore interface.
type PostgresReviewStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReviewStore creates a new PostgreSQL implementation of the ReviewStore interface.
func NewPostgresReviewStore(db store.DBTX, logger *slog.Logger) *PostgresReviewStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresReviewStore{
		db:     db,
		logger: logger.With(slog.String("component", "review_store")),
	}
}

var _ store.ReviewStore = (*PostgresReviewStore)(nil)

// Create implements store.ReviewStore.Create
func (s *PostgresReviewStore) Create(ctx context.Context, r *domain.ReviewResult) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var timeSpentMS sql.NullInt64
	if r.TimeSpent != nil {
		timeSpentMS = sql.NullInt64{Int64: r.TimeSpent.Milliseconds(), Valid: true}
	}
	var confidence sql.NullFloat64
	if r.Confidence != nil {
		confidence = sql.NullFloat64{Float64: *r.Confidence, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO review_results (
			id, owner_id, card_id, item_id, quality, is_success, time_spent_ms,
			confidence, previous_interval, new_interval, new_ease_factor, graded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		r.ID, r.OwnerID, r.CardID, r.ItemID, r.Quality, r.IsSuccess, timeSpentMS,
		confidence, r.PreviousInterval, r.NewInterval, r.NewEaseFactor, r.GradedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", store.ErrReviewExists, r.ID)
		}
		log.Error("failed to record review result",
			slog.String("error", err.Error()),
			slog.String("card_id", r.CardID.String()))
		return MapError(err)
	}
	return nil
}

// ListByCard implements store.ReviewStore.ListByCard
func (s *PostgresReviewStore) ListByCard(ctx context.Context, cardID uuid.UUID, limit int) ([]*domain.ReviewResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, card_id, item_id, quality, is_success, time_spent_ms,
			confidence, previous_interval, new_interval, new_ease_factor, graded_at
		FROM review_results
		WHERE card_id = $1
		ORDER BY graded_at DESC
		LIMIT $2
	`, cardID, limit)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var results []*domain.ReviewResult
	for rows.Next() {
		var r domain.ReviewResult
		var timeSpentMS sql.NullInt64
		var confidence sql.NullFloat64
		if err := rows.Scan(
			&r.ID, &r.OwnerID, &r.CardID, &r.ItemID, &r.Quality, &r.IsSuccess, &timeSpentMS,
			&confidence, &r.PreviousInterval, &r.NewInterval, &r.NewEaseFactor, &r.GradedAt,
		); err != nil {
			return nil, MapError(err)
		}
		if timeSpentMS.Valid {
			d := time.Duration(timeSpentMS.Int64) * time.Millisecond
			r.TimeSpent = &d
		}
		if confidence.Valid {
			c := confidence.Float64
			r.Confidence = &c
		}
		r.GradedAt = r.GradedAt.UTC()
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return results, nil
}

// CountSince implements store.ReviewStore.CountSince
func (s *PostgresReviewStore) CountSince(ctx context.Context, ownerID uuid.UUID, since time.Time) (store.RetentionCounts, error) {
	var counts store.RetentionCounts
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_success)
		FROM review_results
		WHERE owner_id = $1 AND graded_at >= $2
	`, ownerID, since).Scan(&counts.Total, &counts.Successful)
	if err != nil {
		return store.RetentionCounts{}, MapError(err)
	}
	return counts, nil
}

// GradedTimesSince implements store.ReviewStore.GradedTimesSince
func (s *PostgresReviewStore) GradedTimesSince(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT graded_at FROM review_results
		WHERE owner_id = $1 AND graded_at >= $2
		ORDER BY graded_at DESC
	`, ownerID, since)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, MapError(err)
		}
		times = append(times, t.UTC())
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return times, nil
}

// WithTx implements store.ReviewStore.WithTx
func (s *PostgresReviewStore) WithTx(tx *sql.Tx) store.ReviewStore {
	return &PostgresReviewStore{
		db:     tx,
		logger: s.logger,
	}
}
