package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultEaseFactor is the ease a card is created with.
	DefaultEaseFactor = 2.5

	// MinEaseFactor is the lowest ease any card may carry.
	MinEaseFactor = 1.3

	// MaxItemIDLength bounds the opaque item reference.
	MaxItemIDLength = 255
)

// Card-specific validation errors
var (
	// ErrCardIDEmpty is returned when a card ID is empty or nil.
	ErrCardIDEmpty = errors.New("card ID cannot be empty")

	// ErrCardOwnerIDEmpty is returned when a card's owner ID is empty or nil.
	ErrCardOwnerIDEmpty = errors.New("card owner ID cannot be empty")

	// ErrCardItemIDEmpty is returned when a card does not reference an item.
	ErrCardItemIDEmpty = errors.New("card item ID cannot be empty")

	// ErrCardItemIDTooLong is returned when the item reference exceeds MaxItemIDLength.
	ErrCardItemIDTooLong = errors.New("card item ID is too long")

	// ErrInvalidEaseFactor is returned when the ease factor is below MinEaseFactor.
	ErrInvalidEaseFactor = errors.New("ease factor must be at least 1.3")

	// ErrInvalidInterval is returned when the interval is below one day.
	ErrInvalidInterval = errors.New("interval must be at least 1 day")

	// ErrInvalidRepetitions is returned when the repetition count is negative.
	ErrInvalidRepetitions = errors.New("repetitions cannot be negative")
)

// Card is the scheduling state of one item for one owner. Cards are only
// changed by the scheduler's output, applied through the repository.
type Card struct {
	ID             uuid.UUID  `json:"id"`
	OwnerID        uuid.UUID  `json:"owner_id"`
	ItemID         string     `json:"item_id"`
	EaseFactor     float64    `json:"ease_factor"`
	IntervalDays   int        `json:"interval_days"`
	Repetitions    int        `json:"repetitions"`
	NextReviewAt   time.Time  `json:"next_review_at"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
	Active         bool       `json:"active"`
	Version        int64      `json:"version"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewCard creates an active card for the given owner and item, first due one
// day after now. Returns an error if validation fails.
func NewCard(ownerID uuid.UUID, itemID string, now time.Time) (*Card, error) {
	now = now.UTC()
	card := &Card{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		ItemID:       itemID,
		EaseFactor:   DefaultEaseFactor,
		IntervalDays: 1,
		Repetitions:  0,
		NextReviewAt: now.AddDate(0, 0, 1),
		Active:       true,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks if the Card has valid data.
func (c *Card) Validate() error {
	if c.ID == uuid.Nil {
		return ErrCardIDEmpty
	}

	if c.OwnerID == uuid.Nil {
		return ErrCardOwnerIDEmpty
	}

	if c.ItemID == "" {
		return ErrCardItemIDEmpty
	}

	if len(c.ItemID) > MaxItemIDLength {
		return ErrCardItemIDTooLong
	}

	if c.EaseFactor < MinEaseFactor {
		return ErrInvalidEaseFactor
	}

	if c.IntervalDays < 1 {
		return ErrInvalidInterval
	}

	if c.Repetitions < 0 {
		return ErrInvalidRepetitions
	}

	return nil
}

// IsDue reports whether the card should be surfaced at now.
func (c *Card) IsDue(now time.Time) bool {
	return c.Active && !c.NextReviewAt.After(now)
}

// Clone returns a deep copy of the card.
func (c *Card) Clone() *Card {
	clone := *c
	if c.LastReviewedAt != nil {
		t := *c.LastReviewedAt
		clone.LastReviewedAt = &t
	}
	return &clone
}
