package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the review session manager.
const (
	TypeCardGraded       = "card.graded"
	TypeSessionCompleted = "session.completed"
)

// Event is a notification about something that happened to an owner's cards.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type* constants
	Type string `json:"type"`

	// OwnerID identifies whose cards the event concerns
	OwnerID uuid.UUID `json:"owner_id"`

	// Payload contains the type-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// CardGraded is the payload of a TypeCardGraded event.
type CardGraded struct {
	SessionID       uuid.UUID `json:"session_id"`
	CardID          uuid.UUID `json:"card_id"`
	ItemID          string    `json:"item_id"`
	Quality         int       `json:"quality"`
	IntervalDays    int       `json:"interval_days"`
	EaseFactor      float64   `json:"ease_factor"`
	NextReviewAt    time.Time `json:"next_review_at"`
	Deactivated     bool      `json:"deactivated"`
	RetriedAttempts int       `json:"retried_attempts,omitempty"`
}

// SessionCompleted is the payload of a TypeSessionCompleted event.
type SessionCompleted struct {
	SessionID uuid.UUID `json:"session_id"`
	Correct   int       `json:"correct"`
	Incorrect int       `json:"incorrect"`
	Skipped   int       `json:"skipped"`
	Discarded int       `json:"discarded"`
	Forced    bool      `json:"forced"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates an Event of the given type for ownerID with payload.
func NewEvent(eventType string, ownerID uuid.UUID, payload any) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		OwnerID:   ownerID,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *Event) error
}

// HandlerFunc adapts an ordinary function to EventHandler.
type HandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent calls f(ctx, event).
func (f HandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// OnType returns a handler that only passes events of eventType to h.
func OnType(eventType string, h EventHandler) EventHandler {
	return HandlerFunc(func(ctx context.Context, event *Event) error {
		if event.Type != eventType {
			return nil
		}
		return h.HandleEvent(ctx, event)
	})
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *Event) error
}

// NopEmitter discards every event.
type NopEmitter struct{}

// EmitEvent implements EventEmitter.
func (NopEmitter) EmitEvent(context.Context, *Event) error { return nil }
