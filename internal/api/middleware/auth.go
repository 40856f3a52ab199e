package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-engine/internal/api/shared"
	"github.com/phrazzld/scry-engine/internal/platform/logger"
	"github.com/phrazzld/scry-engine/internal/platform/token"
	"github.com/phrazzld/scry-engine/internal/redact"
)

// AuthMiddleware authenticates requests with an owner bearer token.
type AuthMiddleware struct {
	tokens token.Service
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(tokens token.Service) *AuthMiddleware {
	if tokens == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("tokens cannot be nil for AuthMiddleware")
	}
	return &AuthMiddleware{tokens: tokens}
}

// Authenticate verifies the Authorization header and stores the owner ID in
// the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
			return
		}

		scheme, raw, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || raw == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		claims, err := m.tokens.Verify(r.Context(), raw)
		if err != nil {
			switch {
			case errors.Is(err, token.ErrExpiredToken):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Token expired")
			case errors.Is(err, token.ErrInvalidToken),
				errors.Is(err, token.ErrTokenNotYetValid),
				errors.Is(err, token.ErrMissingToken):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
			default:
				logger.FromContext(r.Context()).Error("failed to validate token",
					slog.String("error", redact.Error(err)))
				shared.RespondWithError(w, r, http.StatusInternalServerError, "Authentication error")
			}
			return
		}

		ctx := shared.WithOwnerID(r.Context(), claims.OwnerID)
		log := logger.FromContext(ctx).With(slog.String("owner_id", claims.OwnerID.String()))
		ctx = logger.WithLogger(ctx, log)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetOwnerID extracts the owner ID from the request context.
func GetOwnerID(r *http.Request) (uuid.UUID, bool) {
	return shared.OwnerIDFromContext(r.Context())
}
