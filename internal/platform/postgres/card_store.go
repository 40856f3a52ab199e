package postgres

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

// PostgresCardStore implements the store.CardStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCardStore creates a new PostgreSQL implementation of the CardStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresCardStore(db store.DBTX, logger *slog.Logger) *PostgresCardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCardStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_store")),
	}
}

// Ensure PostgresCardStore implements store.CardStore interface
var _ store.CardStore = (*PostgresCardStore)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*domain.Card, error) {
	var card domain.Card
	var lastReviewed sql.NullTime

	err := row.Scan(
		&card.ID,
		&card.OwnerID,
		&card.ItemID,
		&card.EaseFactor,
		&card.IntervalDays,
		&card.Repetitions,
		&card.NextReviewAt,
		&lastReviewed,
		&card.Active,
		&card.Version,
		&card.CreatedAt,
		&card.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	card.NextReviewAt = card.NextReviewAt.UTC()
	card.CreatedAt = card.CreatedAt.UTC()
	card.UpdatedAt = card.UpdatedAt.UTC()
	if lastReviewed.Valid {
		t := lastReviewed.Time.UTC()
		card.LastReviewedAt = &t
	}
	return &card, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Create implements store.CardStore.Create
func (s *PostgresCardStore) Create(ctx context.Context, card *domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := card.Validate(); err != nil {
		log.Warn("card validation failed during create",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO cards (` + cardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(ctx, query,
		card.ID,
		card.OwnerID,
		card.ItemID,
		card.EaseFactor,
		card.IntervalDays,
		card.Repetitions,
		card.NextReviewAt,
		nullTime(card.LastReviewedAt),
		card.Active,
		card.Version,
		card.CreatedAt,
		card.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("card already exists",
				slog.String("owner_id", card.OwnerID.String()),
				slog.String("item_id", card.ItemID))
			return fmt.Errorf("%w: owner %s item %q", store.ErrCardExists, card.OwnerID, card.ItemID)
		}
		log.Error("failed to create card",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return MapError(err)
	}

	log.Debug("card created",
		slog.String("card_id", card.ID.String()),
		slog.String("owner_id", card.OwnerID.String()))
	return nil
}

// CreateMultiple implements store.CardStore.CreateMultiple
func (s *PostgresCardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	for _, card := range cards {
		if err := s.Create(ctx, card); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresCardStore) getOne(ctx context.Context, query string, args ...any) (*domain.Card, error) {
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
func (s *PostgresCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	return s.getOne(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = $1`, id)
}

// GetByIDForUpdate implements store.CardStore.GetByIDForUpdate.
// The row stays locked until the surrounding transaction ends.
func (s *PostgresCardStore) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	return s.getOne(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = $1 FOR UPDATE`, id)
}

// GetByOwnerAndItem implements store.CardStore.GetByOwnerAndItem
func (s *PostgresCardStore) GetByOwnerAndItem(ctx context.Context, ownerID uuid.UUID, itemID string) (*domain.Card, error) {
	return s.getOne(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE owner_id = $1 AND item_id = $2`,
		ownerID, itemID)
}

func (s *PostgresCardStore) list(ctx context.Context, query string, args ...any) ([]*domain.Card, error) {
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
func (s *PostgresCardStore) FindDue(ctx context.Context, ownerID uuid.UUID, now time.Time, limit int) ([]*domain.Card, error) {
	return s.list(ctx, `
		SELECT `+cardColumns+`
		FROM cards
		WHERE owner_id = $1 AND active AND next_review_at <= $2
		ORDER BY next_review_at ASC, id ASC
		LIMIT $3
	`, ownerID, now, limit)
}

// CountDue implements store.CardStore.CountDue
func (s *PostgresCardStore) CountDue(ctx context.Context, ownerID uuid.UUID, before time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cards WHERE owner_id = $1 AND active AND next_review_at < $2`,
		ownerID, before).Scan(&n)
	if err != nil {
		return 0, MapError(err)
	}
	return n, nil
}

// ListActive implements store.CardStore.ListActive
func (s *PostgresCardStore) ListActive(ctx context.Context, ownerID uuid.UUID) ([]*domain.Card, error) {
	return s.list(ctx, `
		SELECT `+cardColumns+`
		FROM cards
		WHERE owner_id = $1 AND active
		ORDER BY next_review_at ASC, id ASC
	`, ownerID)
}

// Update implements store.CardStore.Update
func (s *PostgresCardStore) Update(ctx context.Context, card *domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := card.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE cards
		SET ease_factor = $1, interval_days = $2, repetitions = $3,
			next_review_at = $4, last_reviewed_at = $5, active = $6,
			updated_at = $7, version = version + 1
		WHERE id = $8 AND version = $9
	`,
		card.EaseFactor,
		card.IntervalDays,
		card.Repetitions,
		card.NextReviewAt,
		nullTime(card.LastReviewedAt),
		card.Active,
		card.UpdatedAt,
		card.ID,
		card.Version,
	)
	if err != nil {
		log.Error("failed to update card",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return MapError(err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return s.missingOrConflict(ctx, card.ID)
	}

	card.Version++
	return nil
}

// missingOrConflict explains why a versioned update matched no rows.
func (s *PostgresCardStore) missingOrConflict(ctx context.Context, id uuid.UUID) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM cards WHERE id = $1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrCardNotFound
	}
	if err != nil {
		return MapError(err)
	}
	return fmt.Errorf("%w: card %s", store.ErrConcurrentModification, id)
}

// SetActive implements store.CardStore.SetActive
func (s *PostgresCardStore) SetActive(ctx context.Context, id uuid.UUID, active bool, now time.Time) (*domain.Card, error) {
	return s.getOne(ctx, `
		UPDATE cards
		SET active = $1, updated_at = $2, version = version + 1
		WHERE id = $3
		RETURNING `+cardColumns,
		active, now, id)
}

// DeactivateMastered implements store.CardStore.DeactivateMastered
func (s *PostgresCardStore) DeactivateMastered(ctx context.Context, ownerID uuid.UUID, minInterval int, now time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE cards
		SET active = FALSE, updated_at = $1, version = version + 1
		WHERE owner_id = $2 AND active AND interval_days >= $3
	`, now, ownerID, minInterval)
	if err != nil {
		return 0, MapError(err)
	}
	n, err := rowsAffected(result)
	return int(n), err
}

// WithTx implements store.CardStore.WithTx
func (s *PostgresCardStore) WithTx(tx *sql.Tx) store.CardStore {
	return &PostgresCardStore{
		db:     tx,
		logger: s.logger,
	}
}
