package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-engine/internal/api/shared"
	"github.com/phrazzld/scry-engine/internal/domain"
	"github.com/phrazzld/scry-engine/internal/service/review_session"
	"github.com/phrazzld/scry-engine/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewHandler_StartSession(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"started", nil, http.StatusCreated},
		{"nothing due", review_session.ErrNoCardsDue, http.StatusNoContent},
		{"already reviewing", review_session.ErrSessionInProgress, http.StatusConflict},
		{"store timeout", review_session.NewStartError("failed to load due cards", store.ErrStoreTimeout), http.StatusServiceUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			a := newTestAPI(t)
			a.sessions.StartFn = func(_ context.Context, owner uuid.UUID) (*review_session.Snapshot, error) {
				if tc.err != nil {
					return nil, tc.err
				}
				return &review_session.Snapshot{SessionID: uuid.New(), OwnerID: owner, State: review_session.StateReviewing, Remaining: 2}, nil
			}

			rec := a.do(t, http.MethodPost, "/api/reviews/session", nil)

			assert.Equal(t, tc.wantStatus, rec.Code)
			switch tc.wantStatus {
			case http.StatusCreated:
				snap := decodeBody[review_session.Snapshot](t, rec)
				assert.Equal(t, a.owner, snap.OwnerID)
				assert.Equal(t, 2, snap.Remaining)
			case http.StatusNoContent:
				assert.Empty(t, rec.Body.String())
			}
		})
	}
}

func TestReviewHandler_GetSession(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)
	a.sessions.Err = review_session.ErrNoActiveSession

	rec := a.do(t, http.MethodGet, "/api/reviews/session", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No active review session", decodeBody[shared.ErrorResponse](t, rec).Error)
}

func TestReviewHandler_Answer(t *testing.T) {
	t.Parallel()
	cardID := uuid.New()

	tests := []struct {
		name       string
		body       interface{}
		err        error
		wantStatus int
		check      func(t *testing.T, grade domain.Grade)
	}{
		{
			name:       "graded",
			body:       `{"card_id": "` + cardID.String() + `", "quality": 4, "time_spent_ms": 1500, "confidence": 0.8}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, grade domain.Grade) {
				assert.Equal(t, 4, grade.Quality)
				require.NotNil(t, grade.TimeSpent)
				assert.Equal(t, 1500*time.Millisecond, *grade.TimeSpent)
				require.NotNil(t, grade.Confidence)
				assert.InDelta(t, 0.8, *grade.Confidence, 1e-9)
			},
		},
		{
			name:       "quality zero is allowed",
			body:       `{"card_id": "` + cardID.String() + `", "quality": 0}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, grade domain.Grade) {
				assert.Zero(t, grade.Quality)
				assert.Nil(t, grade.TimeSpent)
			},
		},
		{
			name:       "a full day of thinking time is allowed",
			body:       `{"card_id": "` + cardID.String() + `", "quality": 3, "time_spent_ms": 86400000}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, grade domain.Grade) {
				require.NotNil(t, grade.TimeSpent)
				assert.Equal(t, 24*time.Hour, *grade.TimeSpent)
			},
		},
		{
			name:       "time spent that would overflow a duration",
			body:       `{"card_id": "` + cardID.String() + `", "quality": 3, "time_spent_ms": 9000000000000000}`,
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, grade domain.Grade) {
				assert.Nil(t, grade.TimeSpent, "session is never called")
			},
		},
		{
			name:       "negative time spent",
			body:       `{"card_id": "` + cardID.String() + `", "quality": 3, "time_spent_ms": -1}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing quality",
			body:       `{"card_id": "` + cardID.String() + `"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "quality out of range",
			body:       `{"card_id": "` + cardID.String() + `", "quality": 6}`,
			err:        domain.ErrInvalidQuality,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "wrong card",
			body:       `{"card_id": "` + cardID.String() + `", "quality": 3}`,
			err:        review_session.ErrOutOfOrder,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "bad card id",
			body:       `{"card_id": "nope", "quality": 3}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			a := newTestAPI(t)
			var got domain.Grade
			a.sessions.AnswerFn = func(_ context.Context, _, id uuid.UUID, grade domain.Grade) (*review_session.AnswerResult, error) {
				got = grade
				if tc.err != nil {
					return nil, tc.err
				}
				assert.Equal(t, cardID, id)
				return &review_session.AnswerResult{Attempts: 1, Next: &review_session.Snapshot{}}, nil
			}

			rec := a.do(t, http.MethodPost, "/api/reviews/session/answer", tc.body)

			assert.Equal(t, tc.wantStatus, rec.Code, rec.Body.String())
			if tc.check != nil {
				tc.check(t, got)
			}
		})
	}
}

func TestReviewHandler_SkipAndComplete(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)
	cardID := uuid.New()

	a.sessions.SkipFn = func(_ context.Context, _, id uuid.UUID) (*review_session.Snapshot, error) {
		assert.Equal(t, cardID, id)
		return &review_session.Snapshot{Skipped: 1}, nil
	}
	var forced []bool
	a.sessions.CompleteFn = func(_ context.Context, _ uuid.UUID, force bool) (*review_session.Summary, error) {
		forced = append(forced, force)
		if !force {
			return nil, review_session.ErrSessionNotFinished
		}
		return &review_session.Summary{Discarded: 3, Forced: true}, nil
	}

	rec := a.do(t, http.MethodPost, "/api/reviews/session/skip", SkipRequest{CardID: cardID})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeBody[review_session.Snapshot](t, rec).Skipped)

	rec = a.do(t, http.MethodPost, "/api/reviews/session/complete", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "empty body means no force")

	rec = a.do(t, http.MethodPost, "/api/reviews/session/complete", CompleteSessionRequest{Force: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decodeBody[review_session.Summary](t, rec).Discarded)

	rec = a.do(t, http.MethodPost, "/api/reviews/session/complete", `{"force": "yes"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, []bool{false, true}, forced)
}
