package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-engine/internal/platform/token"
)

// MockTokenService implements token.Service for testing.
type MockTokenService struct {
	Token     string
	IssueErr  error
	Claims    *token.Claims
	VerifyErr error

	// VerifyFn overrides Claims and VerifyErr when set.
	VerifyFn func(ctx context.Context, tokenString string) (*token.Claims, error)
}

var _ token.Service = (*MockTokenService)(nil)

// Issue implements token.Service
func (m *MockTokenService) Issue(_ context.Context, _ uuid.UUID) (string, error) {
	return m.Token, m.IssueErr
}

// Verify implements token.Service
func (m *MockTokenService) Verify(ctx context.Context, tokenString string) (*token.Claims, error) {
	if m.VerifyFn != nil {
		return m.VerifyFn(ctx, tokenString)
	}
	if m.VerifyErr != nil {
		return nil, m.VerifyErr
	}
	return m.Claims, nil
}
