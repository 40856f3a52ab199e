package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-engine/internal/domain"
)

// CreateCardRequest enrolls one item.
type CreateCardRequest struct {
	ItemID string `json:"item_id" validate:"required,max=255"`
}

// BulkCreateCardsRequest enrolls several items at once; all or none are created.
type BulkCreateCardsRequest struct {
	ItemIDs []string `json:"item_ids" validate:"required,min=1,max=1000,unique,dive,required,max=255"`
}

// PostponeCardRequest pushes a card's next review back.
type PostponeCardRequest struct {
	Days int `json:"days" validate:"required,gte=1,lte=3650"`
}

// AnswerRequest grades the session's current card. Quality is range checked
// by the domain so that out-of-range values map to the invalid quality error.
type AnswerRequest struct {
	CardID      uuid.UUID `json:"card_id" validate:"required"`
	Quality     *int      `json:"quality" validate:"required"`
	TimeSpentMs *int64    `json:"time_spent_ms,omitempty" validate:"omitempty,gte=0,lte=86400000"`
	Confidence  *float64  `json:"confidence,omitempty"`
}

// Grade converts the request into a domain grade.
func (r AnswerRequest) Grade() domain.Grade {
	g := domain.Grade{Quality: *r.Quality, Confidence: r.Confidence}
	if r.TimeSpentMs != nil {
		d := time.Duration(*r.TimeSpentMs) * time.Millisecond
		g.TimeSpent = &d
	}
	return g
}

// SkipRequest names the card being skipped.
type SkipRequest struct {
	CardID uuid.UUID `json:"card_id" validate:"required"`
}

// CompleteSessionRequest ends a session; Force discards unanswered cards.
type CompleteSessionRequest struct {
	Force bool `json:"force"`
}

// ArchiveResponse reports how many cards ArchiveMastered deactivated.
type ArchiveResponse struct {
	Archived int `json:"archived"`
}

// StreakResponse wraps the streak length.
type StreakResponse struct {
	StreakDays int `json:"streak_days"`
}

// MasteryLevelResponse reports how many active cards sit at one mastery level.
type MasteryLevelResponse struct {
	Level domain.MasteryLevel `json:"level"`
	Count int                 `json:"count"`
}

// DueResponse reports due-today and overdue counts.
type DueResponse struct {
	DueToday int `json:"due_today"`
	Overdue  int `json:"overdue"`
}
