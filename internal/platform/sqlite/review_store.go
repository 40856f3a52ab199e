package sqlite

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

// ReviewStore implements store.ReviewStore on SQLite.
type ReviewStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewReviewStore creates a SQLite ReviewStore. If logger is nil, a default logger will be used.
func NewReviewStore(db store.DBTX, logger *slog.Logger) *ReviewStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewStore{
		db:     db,
		logger: logger.With(slog.String("component", "review_store")),
	}
}

var _ store.ReviewStore = (*ReviewStore)(nil)

// Create implements store.ReviewStore.Create
func (s *ReviewStore) Create(ctx context.Context, r *domain.ReviewResult) error {
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
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID, r.OwnerID, r.CardID, r.ItemID, r.Quality, r.IsSuccess, timeSpentMS,
		confidence, r.PreviousInterval, r.NewInterval, r.NewEaseFactor, toMicros(r.GradedAt),
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
func (s *ReviewStore) ListByCard(ctx context.Context, cardID uuid.UUID, limit int) ([]*domain.ReviewResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, card_id, item_id, quality, is_success, time_spent_ms,
			confidence, previous_interval, new_interval, new_ease_factor, graded_at
		FROM review_results
		WHERE card_id = ?
		ORDER BY graded_at DESC
		LIMIT ?
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
		var gradedAt int64
		if err := rows.Scan(
			&r.ID, &r.OwnerID, &r.CardID, &r.ItemID, &r.Quality, &r.IsSuccess, &timeSpentMS,
			&confidence, &r.PreviousInterval, &r.NewInterval, &r.NewEaseFactor, &gradedAt,
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
		r.GradedAt = fromMicros(gradedAt)
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return results, nil
}

// CountSince implements store.ReviewStore.CountSince
func (s *ReviewStore) CountSince(ctx context.Context, ownerID uuid.UUID, since time.Time) (store.RetentionCounts, error) {
	var counts store.RetentionCounts
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(is_success), 0)
		FROM review_results
		WHERE owner_id = ? AND graded_at >= ?
	`, ownerID, toMicros(since)).Scan(&counts.Total, &counts.Successful)
	if err != nil {
		return store.RetentionCounts{}, MapError(err)
	}
	return counts, nil
}

// GradedTimesSince implements store.ReviewStore.GradedTimesSince
func (s *ReviewStore) GradedTimesSince(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT graded_at FROM review_results
		WHERE owner_id = ? AND graded_at >= ?
		ORDER BY graded_at DESC
	`, ownerID, toMicros(since))
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var times []time.Time
	for rows.Next() {
		var micros int64
		if err := rows.Scan(&micros); err != nil {
			return nil, MapError(err)
		}
		times = append(times, fromMicros(micros))
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return times, nil
}

// WithTx implements store.ReviewStore.WithTx
func (s *ReviewStore) WithTx(tx *sql.Tx) store.ReviewStore {
	return &ReviewStore{db: tx, logger: s.logger}
}
