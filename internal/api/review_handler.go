package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/phrazzld/scry-engine/internal/api/shared"
	"github.com/phrazzld/scry-engine/internal/platform/logger"
	"github.com/phrazzld/scry-engine/internal/redact"
	"github.com/phrazzld/scry-engine/internal/service/review_session"
)

// ReviewHandler exposes the owner's review session.
type ReviewHandler struct {
	sessions review_session.Manager
	logger   *slog.Logger
}

// NewReviewHandler creates a ReviewHandler.
func NewReviewHandler(sessions review_session.Manager, logger *slog.Logger) *ReviewHandler {
	if sessions == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("sessions cannot be nil for ReviewHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewHandler{
		sessions: sessions,
		logger:   logger.With(slog.String("component", "review_handler")),
	}
}

// StartSession handles POST /reviews/session. Nothing due yields 204.
func (h *ReviewHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, ok := requireOwner(w, r, log)
	if !ok {
		return
	}

	snap, err := h.sessions.Start(r.Context(), ownerID)
	if err != nil {
		if errors.Is(err, review_session.ErrNoCardsDue) {
			log.Debug("no cards due for review", slog.String("owner_id", ownerID.String()))
		}
		HandleAPIError(w, r, err, "Failed to start review session")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, snap)
}

// GetSession handles GET /reviews/session
func (h *ReviewHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, ok := requireOwner(w, r, log)
	if !ok {
		return
	}

	snap, err := h.sessions.Current(r.Context(), ownerID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get review session")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, snap)
}

// Answer handles POST /reviews/session/answer
func (h *ReviewHandler) Answer(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, ok := requireOwner(w, r, log)
	if !ok {
		return
	}
	var req AnswerRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	res, err := h.sessions.Answer(r.Context(), ownerID, req.CardID, req.Grade())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit answer")
		return
	}

	log.Debug("answer recorded",
		slog.String("owner_id", ownerID.String()),
		slog.String("card_id", req.CardID.String()),
		slog.Int("quality", *req.Quality),
		slog.Int("attempts", res.Attempts))
	shared.RespondWithJSON(w, r, http.StatusOK, res)
}

// Skip handles POST /reviews/session/skip
func (h *ReviewHandler) Skip(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, ok := requireOwner(w, r, log)
	if !ok {
		return
	}
	var req SkipRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	snap, err := h.sessions.Skip(r.Context(), ownerID, req.CardID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to skip card")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, snap)
}

// Complete handles POST /reviews/session/complete. The body is optional.
func (h *ReviewHandler) Complete(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, ok := requireOwner(w, r, log)
	if !ok {
		return
	}
	var req CompleteSessionRequest
	if err := shared.DecodeJSON(r, &req); err != nil && !errors.Is(err, shared.ErrEmptyBody) {
		log.Warn("invalid request format", slog.String("error", redact.Error(err)))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	summary, err := h.sessions.Complete(r.Context(), ownerID, req.Force)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to complete review session")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, summary)
}
