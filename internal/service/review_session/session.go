package review_session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-engine/internal/domain"
)

// State is a session lifecycle state.
type State string

// Session states.
const (
	StateIdle      State = "idle"
	StateLoaded    State = "loaded"
	StateReviewing State = "reviewing"
	StateComplete  State = "complete"
)

// ItemSource resolves item IDs to displayable content. It is optional.
type ItemSource interface {
	GetItem(ctx context.Context, itemID string) (*domain.Item, error)
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	SessionID uuid.UUID    `json:"session_id"`
	OwnerID   uuid.UUID    `json:"owner_id"`
	State     State        `json:"state"`
	Current   *domain.Card `json:"current,omitempty"`
	Item      *domain.Item `json:"item,omitempty"`
	Remaining int          `json:"remaining"`
	Correct   int          `json:"correct"`
	Incorrect int          `json:"incorrect"`
	Skipped   int          `json:"skipped"`
	StartedAt time.Time    `json:"started_at"`
}

// Summary describes a finished session.
type Summary struct {
	SessionID   uuid.UUID `json:"session_id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Total       int       `json:"total"`
	Correct     int       `json:"correct"`
	Incorrect   int       `json:"incorrect"`
	Skipped     int       `json:"skipped"`
	Discarded   int       `json:"discarded"`
	Forced      bool      `json:"forced"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// AnswerResult is the outcome of a successful Answer.
type AnswerResult struct {
	Card     *domain.Card         `json:"card"`
	Result   *domain.ReviewResult `json:"result"`
	Next     *Snapshot            `json:"next"`
	Summary  *Summary             `json:"summary,omitempty"`
	Attempts int                  `json:"attempts"`
}

// session is the mutable state of one owner's session. All fields are
// guarded by the manager's per-owner mutex.
type session struct {
	id        uuid.UUID
	ownerID   uuid.UUID
	state     State
	queue     []*domain.Card
	correct   int
	incorrect int
	skipped   int
	startedAt time.Time
	summary   *Summary
}

func (s *session) head() *domain.Card {
	if len(s.queue) == 0 {
		return nil
	}
	return s.queue[0]
}

func (s *session) snapshot() *Snapshot {
	var current *domain.Card
	if head := s.head(); head != nil {
		current = head.Clone()
	}
	return &Snapshot{
		SessionID: s.id,
		OwnerID:   s.ownerID,
		State:     s.state,
		Current:   current,
		Remaining: len(s.queue),
		Correct:   s.correct,
		Incorrect: s.incorrect,
		Skipped:   s.skipped,
		StartedAt: s.startedAt,
	}
}

// finish discards the remaining queue and records the summary.
func (s *session) finish(forced bool, at time.Time) *Summary {
	s.summary = &Summary{
		SessionID:   s.id,
		OwnerID:     s.ownerID,
		Total:       s.correct + s.incorrect + s.skipped,
		Correct:     s.correct,
		Incorrect:   s.incorrect,
		Skipped:     s.skipped,
		Discarded:   len(s.queue),
		Forced:      forced,
		StartedAt:   s.startedAt,
		CompletedAt: at,
	}
	s.queue = nil
	s.state = StateComplete
	return s.summary
}
