package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewCard(t *testing.T) {
	t.Parallel()
	ownerID := uuid.New()
	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

	card, err := NewCard(ownerID, "item-42", now)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if card.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}
	if card.OwnerID != ownerID {
		t.Errorf("Expected owner ID %s, got %s", ownerID, card.OwnerID)
	}
	if card.EaseFactor != 2.5 {
		t.Errorf("Expected ease factor 2.5, got %v", card.EaseFactor)
	}
	if card.IntervalDays != 1 || card.Repetitions != 0 {
		t.Errorf("Expected interval 1 and reps 0, got %d and %d", card.IntervalDays, card.Repetitions)
	}
	if !card.NextReviewAt.Equal(now.Add(24 * time.Hour)) {
		t.Errorf("Expected next review one day after creation, got %v", card.NextReviewAt)
	}
	if !card.Active {
		t.Error("Expected new card to be active")
	}
	if card.LastReviewedAt != nil {
		t.Error("Expected new card to have no last review")
	}

	if _, err := NewCard(uuid.Nil, "item-42", now); err != ErrCardOwnerIDEmpty {
		t.Errorf("Expected error %v, got %v", ErrCardOwnerIDEmpty, err)
	}
	if _, err := NewCard(ownerID, "", now); err != ErrCardItemIDEmpty {
		t.Errorf("Expected error %v, got %v", ErrCardItemIDEmpty, err)
	}
	if _, err := NewCard(ownerID, strings.Repeat("x", MaxItemIDLength+1), now); err != ErrCardItemIDTooLong {
		t.Errorf("Expected error %v, got %v", ErrCardItemIDTooLong, err)
	}
}

func TestCardValidate(t *testing.T) {
	t.Parallel()
	valid := func() Card {
		return Card{
			ID:           uuid.New(),
			OwnerID:      uuid.New(),
			ItemID:       "item",
			EaseFactor:   2.5,
			IntervalDays: 1,
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Card)
		want   error
	}{
		{"valid", func(c *Card) {}, nil},
		{"nil id", func(c *Card) { c.ID = uuid.Nil }, ErrCardIDEmpty},
		{"nil owner", func(c *Card) { c.OwnerID = uuid.Nil }, ErrCardOwnerIDEmpty},
		{"empty item", func(c *Card) { c.ItemID = "" }, ErrCardItemIDEmpty},
		{"ease below floor", func(c *Card) { c.EaseFactor = 1.29 }, ErrInvalidEaseFactor},
		{"ease at floor", func(c *Card) { c.EaseFactor = MinEaseFactor }, nil},
		{"zero interval", func(c *Card) { c.IntervalDays = 0 }, ErrInvalidInterval},
		{"negative reps", func(c *Card) { c.Repetitions = -1 }, ErrInvalidRepetitions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := valid()
			tt.mutate(&c)
			if err := c.Validate(); err != tt.want {
				t.Errorf("Expected error %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCardIsDue(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	card := &Card{Active: true, NextReviewAt: now}

	if !card.IsDue(now) {
		t.Error("Expected card due at its exact review time")
	}
	if card.IsDue(now.Add(-time.Second)) {
		t.Error("Expected card not due before its review time")
	}
	card.Active = false
	if card.IsDue(now.Add(time.Hour)) {
		t.Error("Expected inactive card never to be due")
	}
}

func TestCardClone(t *testing.T) {
	t.Parallel()
	reviewed := time.Now().UTC()
	card := &Card{ID: uuid.New(), LastReviewedAt: &reviewed}

	clone := card.Clone()
	*clone.LastReviewedAt = reviewed.Add(time.Hour)
	clone.Repetitions = 7

	if !card.LastReviewedAt.Equal(reviewed) {
		t.Error("Expected clone not to share LastReviewedAt with the original")
	}
	if card.Repetitions != 0 {
		t.Error("Expected clone changes not to leak into the original")
	}
}
