package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/scry-engine/internal/api/shared"
	"github.com/phrazzld/scry-engine/internal/domain"
	"github.com/phrazzld/scry-engine/internal/platform/logger"
	"github.com/phrazzld/scry-engine/internal/service"
)

// MaxDueLimit caps the limit query parameter of ListDue.
const MaxDueLimit = 500

// CardHandler serves card enrolment and management.
type CardHandler struct {
	repo   service.CardRepository
	now    func() time.Time
	logger *slog.Logger
}

// NewCardHandler creates a CardHandler. now defaults to time.Now.
func NewCardHandler(repo service.CardRepository, now func() time.Time, logger *slog.Logger) *CardHandler {
	if repo == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("repo cannot be nil for CardHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &CardHandler{
		repo:   repo,
		now:    now,
		logger: logger.With(slog.String("component", "card_handler")),
	}
}

// CreateCard handles POST /cards
func (h *CardHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, ok := requireOwner(w, r, log)
	if !ok {
		return
	}
	var req CreateCardRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	card, err := h.repo.Create(r.Context(), ownerID, req.ItemID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create card")
		return
	}

	log.Debug("card created",
		slog.String("owner_id", ownerID.String()),
		slog.String("card_id", card.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, card)
}

// BulkCreateCards handles POST /cards/bulk
func (h *CardHandler) BulkCreateCards(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, ok := requireOwner(w, r, log)
	if !ok {
		return
	}
	var req BulkCreateCardsRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	cards, err := h.repo.BulkCreate(r.Context(), ownerID, req.ItemIDs)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create cards")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, cards)
}

// ListDue handles GET /cards/due?limit=N
func (h *CardHandler) ListDue(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, ok := requireOwner(w, r, log)
	if !ok {
		return
	}
	limit, err := getQueryInt(r, "limit", service.DefaultDueLimit, MaxDueLimit)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	cards, err := h.repo.FetchDue(r.Context(), ownerID, h.now(), limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list due cards")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, cards)
}

// LookupCard handles GET /cards?item_id=X
func (h *CardHandler) LookupCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, ok := requireOwner(w, r, log)
	if !ok {
		return
	}
	itemID, err := getQueryString(r, "item_id", domain.MaxItemIDLength)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	card, err := h.repo.GetByItem(r.Context(), ownerID, itemID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get card")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, card)
}

// GetCard handles GET /cards/{id}
func (h *CardHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, cardID, ok := handleOwnerAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	card, err := h.repo.GetByID(r.Context(), ownerID, cardID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get card")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, card)
}

// SuspendCard handles POST /cards/{id}/suspend
func (h *CardHandler) SuspendCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, cardID, ok := handleOwnerAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	card, err := h.repo.Suspend(r.Context(), ownerID, cardID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to suspend card")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, card)
}

// RestoreCard handles POST /cards/{id}/restore
func (h *CardHandler) RestoreCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, cardID, ok := handleOwnerAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	card, err := h.repo.Restore(r.Context(), ownerID, cardID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to restore card")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, card)
}

// PostponeCard handles POST /cards/{id}/postpone
func (h *CardHandler) PostponeCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, cardID, ok := handleOwnerAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	var req PostponeCardRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	card, err := h.repo.Postpone(r.Context(), ownerID, cardID, req.Days)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to postpone card")
		return
	}

	log.Debug("card postponed",
		slog.String("card_id", cardID.String()),
		slog.Int("days", req.Days),
		slog.Time("next_review_at", card.NextReviewAt))
	shared.RespondWithJSON(w, r, http.StatusOK, card)
}

// ArchiveMastered handles POST /cards/archive-mastered
func (h *CardHandler) ArchiveMastered(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, ok := requireOwner(w, r, log)
	if !ok {
		return
	}

	n, err := h.repo.ArchiveMastered(r.Context(), ownerID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to archive cards")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ArchiveResponse{Archived: n})
}
