package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-engine/internal/domain"
	"github.com/phrazzld/scry-engine/internal/platform/logger"
	"github.com/phrazzld/scry-engine/internal/store"
)

const cardColumns = `id, owner_id, item_id, ease_factor, interval_days, repetitions,
	next_review_at, last_reviewed_at, active, version, created_at, updated_at`

// CardStore implements store.CardStore on SQLite.
type CardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewCardStore creates a SQLite CardStore. If logger is nil, a default logger will be used.
func NewCardStore(db store.DBTX, logger *slog.Logger) *CardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CardStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_store")),
	}
}

var _ store.CardStore = (*CardStore)(nil)

func toMicros(t time.Time) int64 { return t.UnixMicro() }

func fromMicros(v int64) time.Time { return time.UnixMicro(v).UTC() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*domain.Card, error) {
	var card domain.Card
	var nextReview, createdAt, updatedAt int64
	var lastReviewed sql.NullInt64

	err := row.Scan(
		&card.ID,
		&card.OwnerID,
		&card.ItemID,
		&card.EaseFactor,
		&card.IntervalDays,
		&card.Repetitions,
		&nextReview,
		&lastReviewed,
		&card.Active,
		&card.Version,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	card.NextReviewAt = fromMicros(nextReview)
	card.CreatedAt = fromMicros(createdAt)
	card.UpdatedAt = fromMicros(updatedAt)
	if lastReviewed.Valid {
		t := fromMicros(lastReviewed.Int64)
		card.LastReviewedAt = &t
	}
	return &card, nil
}

func nullMicros(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMicros(*t), Valid: true}
}

// Create implements store.CardStore.Create
func (s *CardStore) Create(ctx context.Context, card *domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := card.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cards (`+cardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		card.ID,
		card.OwnerID,
		card.ItemID,
		card.EaseFactor,
		card.IntervalDays,
		card.Repetitions,
		toMicros(card.NextReviewAt),
		nullMicros(card.LastReviewedAt),
		card.Active,
		card.Version,
		toMicros(card.CreatedAt),
		toMicros(card.UpdatedAt),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: owner %s item %q", store.ErrCardExists, card.OwnerID, card.ItemID)
		}
		log.Error("failed to create card",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return MapError(err)
	}
	return nil
}

// CreateMultiple implements store.CardStore.CreateMultiple
func (s *CardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	for _, card := range cards {
		if err := s.Create(ctx, card); err != nil {
			return err
		}
	}
	return nil
}

func (s *CardStore) getOne(ctx context.Context, query string, args ...any) (*domain.Card, error) {
	card, err := scanCard(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCardNotFound
		}
		return nil, MapError(err)
	}
	return card, nil
}

// GetByID implements store.CardStore.GetByID
func (s *CardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	return s.getOne(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
}

// GetByIDForUpdate implements store.CardStore.GetByIDForUpdate.
// SQLite has no row locks; the version check in Update detects conflicts.
func (s *CardStore) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	return s.GetByID(ctx, id)
}

// GetByOwnerAndItem implements store.CardStore.GetByOwnerAndItem
func (s *CardStore) GetByOwnerAndItem(ctx context.Context, ownerID uuid.UUID, itemID string) (*domain.Card, error) {
	return s.getOne(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE owner_id = ? AND item_id = ?`,
		ownerID, itemID)
}

func (s *CardStore) list(ctx context.Context, query string, args ...any) ([]*domain.Card, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var cards []*domain.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, MapError(err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return cards, nil
}

// FindDue implements store.CardStore.FindDue
func (s *CardStore) FindDue(ctx context.Context, ownerID uuid.UUID, now time.Time, limit int) ([]*domain.Card, error) {
	return s.list(ctx, `
		SELECT `+cardColumns+`
		FROM cards
		WHERE owner_id = ? AND active = 1 AND next_review_at <= ?
		ORDER BY next_review_at ASC, id ASC
		LIMIT ?
	`, ownerID, toMicros(now), limit)
}

// CountDue implements store.CardStore.CountDue
func (s *CardStore) CountDue(ctx context.Context, ownerID uuid.UUID, before time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cards WHERE owner_id = ? AND active = 1 AND next_review_at < ?`,
		ownerID, toMicros(before)).Scan(&n)
	if err != nil {
		return 0, MapError(err)
	}
	return n, nil
}

// ListActive implements store.CardStore.ListActive
func (s *CardStore) ListActive(ctx context.Context, ownerID uuid.UUID) ([]*domain.Card, error) {
	return s.list(ctx, `
		SELECT `+cardColumns+`
		FROM cards
		WHERE owner_id = ? AND active = 1
		ORDER BY next_review_at ASC, id ASC
	`, ownerID)
}

// Update implements store.CardStore.Update
func (s *CardStore) Update(ctx context.Context, card *domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := card.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE cards
		SET ease_factor = ?, interval_days = ?, repetitions = ?,
			next_review_at = ?, last_reviewed_at = ?, active = ?,
			updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`,
		card.EaseFactor,
		card.IntervalDays,
		card.Repetitions,
		toMicros(card.NextReviewAt),
		nullMicros(card.LastReviewedAt),
		card.Active,
		toMicros(card.UpdatedAt),
		card.ID,
		card.Version,
	)
	if err != nil {
		log.Error("failed to update card",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return MapError(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		if _, err := s.GetByID(ctx, card.ID); err != nil {
			return err
		}
		return fmt.Errorf("%w: card %s", store.ErrConcurrentModification, card.ID)
	}

	card.Version++
	return nil
}

// SetActive implements store.CardStore.SetActive
func (s *CardStore) SetActive(ctx context.Context, id uuid.UUID, active bool, now time.Time) (*domain.Card, error) {
	return s.getOne(ctx, `
		UPDATE cards
		SET active = ?, updated_at = ?, version = version + 1
		WHERE id = ?
		RETURNING `+cardColumns,
		active, toMicros(now), id)
}

// DeactivateMastered implements store.CardStore.DeactivateMastered
func (s *CardStore) DeactivateMastered(ctx context.Context, ownerID uuid.UUID, minInterval int, now time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE cards
		SET active = 0, updated_at = ?, version = version + 1
		WHERE owner_id = ? AND active = 1 AND interval_days >= ?
	`, toMicros(now), ownerID, minInterval)
	if err != nil {
		return 0, MapError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

// WithTx implements store.CardStore.WithTx
func (s *CardStore) WithTx(tx *sql.Tx) store.CardStore {
	return &CardStore{db: tx, logger: s.logger}
}
