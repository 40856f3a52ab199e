package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-engine/internal/domain"
	"github.com/phrazzld/scry-engine/internal/service/review_session"
)

// MockSessionManager implements review_session.Manager for testing.
// Methods without a configured function return zero values and Err.
type MockSessionManager struct {
	StartFn    func(ctx context.Context, ownerID uuid.UUID) (*review_session.Snapshot, error)
	CurrentFn  func(ctx context.Context, ownerID uuid.UUID) (*review_session.Snapshot, error)
	AnswerFn   func(ctx context.Context, ownerID, cardID uuid.UUID, grade domain.Grade) (*review_session.AnswerResult, error)
	SkipFn     func(ctx context.Context, ownerID, cardID uuid.UUID) (*review_session.Snapshot, error)
	CompleteFn func(ctx context.Context, ownerID uuid.UUID, force bool) (*review_session.Summary, error)

	Err error
}

var _ review_session.Manager = (*MockSessionManager)(nil)

// Start implements review_session.Manager
func (m *MockSessionManager) Start(ctx context.Context, ownerID uuid.UUID) (*review_session.Snapshot, error) {
	if m.StartFn != nil {
		return m.StartFn(ctx, ownerID)
	}
	return nil, m.Err
}

// Current implements review_session.Manager
func (m *MockSessionManager) Current(ctx context.Context, ownerID uuid.UUID) (*review_session.Snapshot, error) {
	if m.CurrentFn != nil {
		return m.CurrentFn(ctx, ownerID)
	}
	return nil, m.Err
}

// Answer implements review_session.Manager
func (m *MockSessionManager) Answer(
	ctx context.Context,
	ownerID, cardID uuid.UUID,
	grade domain.Grade,
) (*review_session.AnswerResult, error) {
	if m.AnswerFn != nil {
		return m.AnswerFn(ctx, ownerID, cardID, grade)
	}
	return nil, m.Err
}

// Skip implements review_session.Manager
func (m *MockSessionManager) Skip(ctx context.Context, ownerID, cardID uuid.UUID) (*review_session.Snapshot, error) {
	if m.SkipFn != nil {
		return m.SkipFn(ctx, ownerID, cardID)
	}
	return nil, m.Err
}

// Complete implements review_session.Manager
func (m *MockSessionManager) Complete(ctx context.Context, ownerID uuid.UUID, force bool) (*review_session.Summary, error) {
	if m.CompleteFn != nil {
		return m.CompleteFn(ctx, ownerID, force)
	}
	return nil, m.Err
}

// Abandon implements review_session.Manager
func (m *MockSessionManager) Abandon(ctx context.Context, ownerID uuid.UUID) (*review_session.Summary, error) {
	return m.Complete(ctx, ownerID, true)
}

// State implements review_session.Manager
func (m *MockSessionManager) State(uuid.UUID) review_session.State {
	return review_session.StateIdle
}
