package mocks

import (
	"context"
	"fmt"

	"github.com/phrazzld/scry-engine/internal/domain"
)

// MockItemSource resolves items from a map.
type MockItemSource struct {
	Items map[string]*domain.Item
	Err   error
}

// GetItem implements review_session.ItemSource
func (m *MockItemSource) GetItem(_ context.Context, itemID string) (*domain.Item, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	item, ok := m.Items[itemID]
	if !ok {
		return nil, fmt.Errorf("item %q not found", itemID)
	}
	return item, nil
}
