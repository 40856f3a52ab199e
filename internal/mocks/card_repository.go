package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-engine/internal/domain"
	"github.com/phrazzld/scry-engine/internal/service"
)

// MockCardRepository implements service.CardRepository for testing.
// Methods without a configured function return zero values and Err.
type MockCardRepository struct {
	CreateFn          func(ctx context.Context, ownerID uuid.UUID, itemID string) (*domain.Card, error)
	BulkCreateFn      func(ctx context.Context, ownerID uuid.UUID, itemIDs []string) ([]*domain.Card, error)
	GetByIDFn         func(ctx context.Context, ownerID, cardID uuid.UUID) (*domain.Card, error)
	GetByItemFn       func(ctx context.Context, ownerID uuid.UUID, itemID string) (*domain.Card, error)
	FetchDueFn        func(ctx context.Context, ownerID uuid.UUID, now time.Time, limit int) ([]*domain.Card, error)
	ApplyGradeFn      func(ctx context.Context, ownerID, cardID uuid.UUID, fn service.GradeFunc) (*domain.Card, *domain.ReviewResult, error)
	SuspendFn         func(ctx context.Context, ownerID, cardID uuid.UUID) (*domain.Card, error)
	RestoreFn         func(ctx context.Context, ownerID, cardID uuid.UUID) (*domain.Card, error)
	PostponeFn        func(ctx context.Context, ownerID, cardID uuid.UUID, days int) (*domain.Card, error)
	ArchiveMasteredFn func(ctx context.Context, ownerID uuid.UUID) (int, error)
	CountDueFn        func(ctx context.Context, ownerID uuid.UUID, before time.Time) (int, error)
	ListActiveFn      func(ctx context.Context, ownerID uuid.UUID) ([]*domain.Card, error)

	// Err is returned by methods without a configured function
	Err error

	// ApplyGradeCalls tracks ApplyGrade invocations
	ApplyGradeCalls struct {
		mu      sync.Mutex
		Count   int
		CardIDs []uuid.UUID
	}
}

var _ service.CardRepository = (*MockCardRepository)(nil)

// NewStoreBackedCardRepository returns a mock whose FetchDue and ApplyGrade
// operate on the given in-memory cards, applying GradeFuncs for real.
func NewStoreBackedCardRepository(cards ...*domain.Card) *MockCardRepository {
	var mu sync.Mutex
	byID := make(map[uuid.UUID]*domain.Card, len(cards))
	order := make([]uuid.UUID, 0, len(cards))
	for _, c := range cards {
		byID[c.ID] = c.Clone()
		order = append(order, c.ID)
	}

	m := &MockCardRepository{}
	m.FetchDueFn = func(_ context.Context, ownerID uuid.UUID, now time.Time, limit int) ([]*domain.Card, error) {
		mu.Lock()
		defer mu.Unlock()
		due := []*domain.Card{}
		for _, id := range order {
			c := byID[id]
			if c.OwnerID == ownerID && c.Active && !c.NextReviewAt.After(now) && len(due) < limit {
				due = append(due, c.Clone())
			}
		}
		return due, nil
	}
	m.ApplyGradeFn = func(_ context.Context, ownerID, cardID uuid.UUID, fn service.GradeFunc) (*domain.Card, *domain.ReviewResult, error) {
		mu.Lock()
		defer mu.Unlock()
		c, ok := byID[cardID]
		if !ok {
			return nil, nil, service.ErrCardNotFound
		}
		if c.OwnerID != ownerID {
			return nil, nil, service.ErrCardNotOwned
		}
		if !c.Active {
			return nil, nil, service.ErrCardInactive
		}
		next, result, err := fn(c.Clone())
		if err != nil {
			return nil, nil, err
		}
		next.Version = c.Version + 1
		byID[cardID] = next.Clone()
		return next, result, nil
	}
	m.GetByIDFn = func(_ context.Context, ownerID, cardID uuid.UUID) (*domain.Card, error) {
		mu.Lock()
		defer mu.Unlock()
		c, ok := byID[cardID]
		if !ok {
			return nil, service.ErrCardNotFound
		}
		if c.OwnerID != ownerID {
			return nil, service.ErrCardNotOwned
		}
		return c.Clone(), nil
	}
	return m
}

// Create implements service.CardRepository
func (m *MockCardRepository) Create(ctx context.Context, ownerID uuid.UUID, itemID string) (*domain.Card, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, ownerID, itemID)
	}
	return nil, m.Err
}

// BulkCreate implements service.CardRepository
func (m *MockCardRepository) BulkCreate(ctx context.Context, ownerID uuid.UUID, itemIDs []string) ([]*domain.Card, error) {
	if m.BulkCreateFn != nil {
		return m.BulkCreateFn(ctx, ownerID, itemIDs)
	}
	return nil, m.Err
}

// GetByID implements service.CardRepository
func (m *MockCardRepository) GetByID(ctx context.Context, ownerID, cardID uuid.UUID) (*domain.Card, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, ownerID, cardID)
	}
	return nil, m.Err
}

// GetByItem implements service.CardRepository
func (m *MockCardRepository) GetByItem(ctx context.Context, ownerID uuid.UUID, itemID string) (*domain.Card, error) {
	if m.GetByItemFn != nil {
		return m.GetByItemFn(ctx, ownerID, itemID)
	}
	return nil, m.Err
}

// FetchDue implements service.CardRepository
func (m *MockCardRepository) FetchDue(ctx context.Context, ownerID uuid.UUID, now time.Time, limit int) ([]*domain.Card, error) {
	if m.FetchDueFn != nil {
		return m.FetchDueFn(ctx, ownerID, now, limit)
	}
	return nil, m.Err
}

// ApplyGrade implements service.CardRepository
func (m *MockCardRepository) ApplyGrade(
	ctx context.Context,
	ownerID, cardID uuid.UUID,
	fn service.GradeFunc,
) (*domain.Card, *domain.ReviewResult, error) {
	m.ApplyGradeCalls.mu.Lock()
	m.ApplyGradeCalls.Count++
	m.ApplyGradeCalls.CardIDs = append(m.ApplyGradeCalls.CardIDs, cardID)
	m.ApplyGradeCalls.mu.Unlock()

	if m.ApplyGradeFn != nil {
		return m.ApplyGradeFn(ctx, ownerID, cardID, fn)
	}
	return nil, nil, m.Err
}

// ApplyGradeCount returns how many times ApplyGrade was called.
func (m *MockCardRepository) ApplyGradeCount() int {
	m.ApplyGradeCalls.mu.Lock()
	defer m.ApplyGradeCalls.mu.Unlock()
	return m.ApplyGradeCalls.Count
}

// Suspend implements service.CardRepository
func (m *MockCardRepository) Suspend(ctx context.Context, ownerID, cardID uuid.UUID) (*domain.Card, error) {
	if m.SuspendFn != nil {
		return m.SuspendFn(ctx, ownerID, cardID)
	}
	return nil, m.Err
}

// Restore implements service.CardRepository
func (m *MockCardRepository) Restore(ctx context.Context, ownerID, cardID uuid.UUID) (*domain.Card, error) {
	if m.RestoreFn != nil {
		return m.RestoreFn(ctx, ownerID, cardID)
	}
	return nil, m.Err
}

// Postpone implements service.CardRepository
func (m *MockCardRepository) Postpone(ctx context.Context, ownerID, cardID uuid.UUID, days int) (*domain.Card, error) {
	if m.PostponeFn != nil {
		return m.PostponeFn(ctx, ownerID, cardID, days)
	}
	return nil, m.Err
}

// ArchiveMastered implements service.CardRepository
func (m *MockCardRepository) ArchiveMastered(ctx context.Context, ownerID uuid.UUID) (int, error) {
	if m.ArchiveMasteredFn != nil {
		return m.ArchiveMasteredFn(ctx, ownerID)
	}
	return 0, m.Err
}

// CountDue implements service.CardRepository
func (m *MockCardRepository) CountDue(ctx context.Context, ownerID uuid.UUID, before time.Time) (int, error) {
	if m.CountDueFn != nil {
		return m.CountDueFn(ctx, ownerID, before)
	}
	return 0, m.Err
}

// ListActive implements service.CardRepository
func (m *MockCardRepository) ListActive(ctx context.Context, ownerID uuid.UUID) ([]*domain.Card, error) {
	if m.ListActiveFn != nil {
		return m.ListActiveFn(ctx, ownerID)
	}
	return nil, m.Err
}
