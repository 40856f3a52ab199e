package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-engine/internal/domain"
)

// CardStore defines the interface for card persistence.
type CardStore interface {
	// Create saves a new card.
	// Returns ErrCardExists if the owner already has a card for the item.
	Create(ctx context.Context, card *domain.Card) error

	// CreateMultiple saves multiple cards.
	// IMPORTANT: This method MUST be run within a transaction for atomicity.
	// Use WithTx together with RunInTransaction:
	//
	//	err := store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
	//	    return cardStore.WithTx(tx).CreateMultiple(ctx, cards)
	//	})
	CreateMultiple(ctx context.Context, cards []*domain.Card) error

	// GetByID retrieves a card by its unique ID.
	// Returns ErrCardNotFound if the card does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)

	// GetByIDForUpdate retrieves a card and locks its row until the
	// surrounding transaction ends, where the dialect supports it.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Card, error)

	// GetByOwnerAndItem retrieves the owner's card for an item.
	// Returns ErrCardNotFound if there is none.
	GetByOwnerAndItem(ctx context.Context, ownerID uuid.UUID, itemID string) (*domain.Card, error)

	// FindDue returns active cards with next_review_at <= now, oldest first
	// (ties broken by ID), at most limit of them.
	FindDue(ctx context.Context, ownerID uuid.UUID, now time.Time, limit int) ([]*domain.Card, error)

	// CountDue counts active cards with next_review_at strictly before the given time.
	CountDue(ctx context.Context, ownerID uuid.UUID, before time.Time) (int, error)

	// ListActive returns every active card of the owner.
	ListActive(ctx context.Context, ownerID uuid.UUID) ([]*domain.Card, error)

	// Update writes the card's schedule if its stored version still equals
	// card.Version, then increments card.Version.
	// Returns ErrConcurrentModification on a version mismatch and
	// ErrCardNotFound if the card no longer exists.
	Update(ctx context.Context, card *domain.Card) error

	// SetActive sets the active flag and returns the updated card.
	// Returns ErrCardNotFound if the card does not exist.
	SetActive(ctx context.Context, id uuid.UUID, active bool, now time.Time) (*domain.Card, error)

	// DeactivateMastered deactivates the owner's active cards whose interval
	// is at least minInterval and returns how many changed.
	DeactivateMastered(ctx context.Context, ownerID uuid.UUID, minInterval int, now time.Time) (int, error)

	// WithTx returns a new CardStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) CardStore
}
