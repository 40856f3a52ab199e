package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/scry-engine/internal/api/shared"
	"github.com/phrazzld/scry-engine/internal/domain"
	"github.com/phrazzld/scry-engine/internal/domain/srs"
	"github.com/phrazzld/scry-engine/internal/platform/token"
	"github.com/phrazzld/scry-engine/internal/service"
	"github.com/phrazzld/scry-engine/internal/service/review_session"
	"github.com/phrazzld/scry-engine/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, http.StatusInternalServerError},
		{"invalid token", token.ErrInvalidToken, http.StatusUnauthorized},
		{"expired token", fmt.Errorf("verify: %w", token.ErrExpiredToken), http.StatusUnauthorized},
		{"not owned", service.ErrCardNotOwned, http.StatusForbidden},
		{"card not found", service.ErrCardNotFound, http.StatusNotFound},
		{"store card not found", store.ErrCardNotFound, http.StatusNotFound},
		{"no active session", review_session.ErrNoActiveSession, http.StatusNotFound},
		{"duplicate card", service.ErrDuplicateCard, http.StatusConflict},
		{"session in progress", review_session.ErrSessionInProgress, http.StatusConflict},
		{"out of order", review_session.ErrOutOfOrder, http.StatusConflict},
		{"session not finished", review_session.ErrSessionNotFinished, http.StatusConflict},
		{"inactive card", service.ErrCardInactive, http.StatusConflict},
		{
			"retries exhausted on conflict",
			review_session.NewAnswerError("failed to record answer", store.ErrConcurrentModification),
			http.StatusConflict,
		},
		{"invalid quality", domain.ErrInvalidQuality, http.StatusBadRequest},
		{"invalid confidence", domain.ErrInvalidConfidence, http.StatusBadRequest},
		{"validation", fmt.Errorf("%w: item_id", domain.ErrValidation), http.StatusBadRequest},
		{"postpone days", fmt.Errorf("%w: %w", domain.ErrValidation, srs.ErrInvalidDays), http.StatusBadRequest},
		{"empty body", shared.ErrEmptyBody, http.StatusBadRequest},
		{"no cards due", review_session.ErrNoCardsDue, http.StatusNoContent},
		{
			"store timeout",
			review_session.NewStartError("failed to load due cards", store.ErrStoreTimeout),
			http.StatusServiceUnavailable,
		},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, MapErrorToStatusCode(tc.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "An unexpected error occurred"},
		{"expired token", token.ErrExpiredToken, "Token expired"},
		{"not owned", service.ErrCardNotOwned, "You do not own this card"},
		{"not found", store.ErrCardNotFound, "Card not found"},
		{"quality", domain.ErrInvalidQuality, "Quality must be between 0 and 5"},
		{"timeout", store.ErrStoreTimeout, "Service temporarily unavailable, try again"},
		{"internal detail", errors.New("pq: password authentication failed for user scry"), "An unexpected error occurred"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, GetSafeErrorMessage(tc.err))
		})
	}
}

func TestHandleAPIError(t *testing.T) {
	t.Parallel()

	t.Run("no content has no body", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		HandleAPIError(rec, httptest.NewRequest(http.MethodPost, "/", nil), review_session.ErrNoCardsDue, "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("default message for internal errors", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		err := errors.New("dial tcp 10.0.0.7:5432: connection refused")
		HandleAPIError(rec, httptest.NewRequest(http.MethodPost, "/", nil), err, "Failed to submit answer")

		var resp shared.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Failed to submit answer", resp.Error)
		assert.NotContains(t, rec.Body.String(), "5432")
	})

	t.Run("known errors keep their message", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		HandleAPIError(rec, httptest.NewRequest(http.MethodPost, "/", nil), service.ErrCardNotFound, "Failed")

		var resp shared.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Card not found", resp.Error)
	})
}

func TestSanitizeValidationError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  interface{}
		want string
	}{
		{"missing item", CreateCardRequest{}, "Invalid item_id: required field"},
		{"empty batch", BulkCreateCardsRequest{ItemIDs: []string{}}, "Invalid item_ids: too small"},
		{"duplicate batch", BulkCreateCardsRequest{ItemIDs: []string{"a", "a"}}, "Invalid item_ids: must not contain duplicates"},
		{"postpone too far", PostponeCardRequest{Days: 5000}, "Invalid days: too large"},
		{"answer without card", AnswerRequest{Quality: new(int)}, "Invalid card_id: required field"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := shared.ValidateRequest(tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.want, SanitizeValidationError(err))
		})
	}

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("other")))
}
