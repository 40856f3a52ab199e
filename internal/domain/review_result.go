package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReviewResult is the immutable record of a single graded review.
type ReviewResult struct {
	ID               uuid.UUID      `json:"id"`
	OwnerID          uuid.UUID      `json:"owner_id"`
	CardID           uuid.UUID      `json:"card_id"`
	ItemID           string         `json:"item_id"`
	Quality          int            `json:"quality"`
	IsSuccess        bool           `json:"is_success"`
	TimeSpent        *time.Duration `json:"time_spent,omitempty"`
	Confidence       *float64       `json:"confidence,omitempty"`
	PreviousInterval int            `json:"previous_interval"`
	NewInterval      int            `json:"new_interval"`
	NewEaseFactor    float64        `json:"new_ease_factor"`
	GradedAt         time.Time      `json:"graded_at"`
}

// NewReviewResult records the transition of a card from prev to next caused by grade.
func NewReviewResult(prev, next *Card, grade Grade, gradedAt time.Time) *ReviewResult {
	return &ReviewResult{
		ID:               uuid.New(),
		OwnerID:          prev.OwnerID,
		CardID:           prev.ID,
		ItemID:           prev.ItemID,
		Quality:          grade.Quality,
		IsSuccess:        grade.IsSuccess(),
		TimeSpent:        grade.TimeSpent,
		Confidence:       grade.Confidence,
		PreviousInterval: prev.IntervalDays,
		NewInterval:      next.IntervalDays,
		NewEaseFactor:    next.EaseFactor,
		GradedAt:         gradedAt.UTC(),
	}
}
