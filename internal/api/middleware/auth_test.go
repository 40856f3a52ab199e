package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-engine/internal/api/shared"
	"github.com/phrazzld/scry-engine/internal/mocks"
	"github.com/phrazzld/scry-engine/internal/platform/token"
	"github.com/stretchr/testify/assert"
)

func TestAuthMiddleware_Authenticate(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()

	tests := []struct {
		name            string
		authHeader      string
		verifyErr       error
		claims          *token.Claims
		expectedStatus  int
		expectedOwnerID uuid.UUID
	}{
		{
			name:            "valid token",
			authHeader:      "Bearer valid-token",
			claims:          &token.Claims{OwnerID: ownerID},
			expectedStatus:  http.StatusOK,
			expectedOwnerID: ownerID,
		},
		{
			name:            "scheme is case insensitive",
			authHeader:      "bearer valid-token",
			claims:          &token.Claims{OwnerID: ownerID},
			expectedStatus:  http.StatusOK,
			expectedOwnerID: ownerID,
		},
		{
			name:           "missing auth header",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid auth format",
			authHeader:     "InvalidFormat",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "basic scheme",
			authHeader:     "Basic dXNlcjpwYXNz",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "expired token",
			authHeader:     "Bearer expired-token",
			verifyErr:      token.ErrExpiredToken,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid token",
			authHeader:     "Bearer invalid-token",
			verifyErr:      token.ErrInvalidToken,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "unexpected verifier failure",
			authHeader:     "Bearer some-token",
			verifyErr:      errors.New("keystore offline"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tokens := &mocks.MockTokenService{VerifyErr: tt.verifyErr, Claims: tt.claims}
			mw := NewAuthMiddleware(tokens)

			var captured uuid.UUID
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if id, ok := GetOwnerID(r); ok {
					captured = id
				}
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			mw.Authenticate(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, tt.expectedOwnerID, captured)
			}
		})
	}
}

func TestNewAuthMiddleware_NilService(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { NewAuthMiddleware(nil) })
}

func TestTraceMiddleware(t *testing.T) {
	t.Parallel()

	var traceID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	NewTraceMiddleware(nil)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Len(t, traceID, 2*shared.TraceIDLength)
	assert.Equal(t, traceID, rec.Header().Get("X-Trace-ID"))
}
