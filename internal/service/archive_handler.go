package service

import (
	"context"
	"log/slog"

	"github.com/phrazzld/scry-engine/internal/events"
	"github.com/phrazzld/scry-engine/internal/platform/logger"
)

// ArchiveOnComplete archives mastered cards whenever a review session of
// their owner completes.
type ArchiveOnComplete struct {
	repo   CardRepository
	logger *slog.Logger
}

var _ events.EventHandler = (*ArchiveOnComplete)(nil)

// NewArchiveOnComplete creates the handler. It panics if repo is nil.
func NewArchiveOnComplete(repo CardRepository, logger *slog.Logger) *ArchiveOnComplete {
	if repo == nil {
		panic("repo cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ArchiveOnComplete{
		repo:   repo,
		logger: logger.With(slog.String("component", "archive_on_complete")),
	}
}

// HandleEvent implements events.EventHandler. Events other than
// session.completed are ignored.
func (h *ArchiveOnComplete) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.TypeSessionCompleted {
		return nil
	}
	log := logger.FromContextOrDefault(ctx, h.logger)

	n, err := h.repo.ArchiveMastered(ctx, event.OwnerID)
	if err != nil {
		return err
	}
	log.Debug("archived after session",
		slog.String("owner_id", event.OwnerID.String()),
		slog.String("event_id", event.ID.String()),
		slog.Int("archived", n))
	return nil
}
