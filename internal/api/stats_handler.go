package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/scry-engine/internal/api/shared"
	"github.com/phrazzld/scry-engine/internal/domain"
	"github.com/phrazzld/scry-engine/internal/platform/logger"
	"github.com/phrazzld/scry-engine/internal/service"
)

const (
	// DefaultRetentionWindowDays is used when window_days is not given.
	DefaultRetentionWindowDays = 30
	// MaxRetentionWindowDays caps window_days.
	MaxRetentionWindowDays = 3650
)

// StatsHandler serves read-only progress statistics.
type StatsHandler struct {
	stats  service.StatsService
	logger *slog.Logger
}

// NewStatsHandler creates a StatsHandler.
func NewStatsHandler(stats service.StatsService, logger *slog.Logger) *StatsHandler {
	if stats == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("stats cannot be nil for StatsHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsHandler{
		stats:  stats,
		logger: logger.With(slog.String("component", "stats_handler")),
	}
}

// Summary handles GET /stats?window_days=N
func (h *StatsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, ok := requireOwner(w, r, log)
	if !ok {
		return
	}
	window, err := getQueryInt(r, "window_days", DefaultRetentionWindowDays, MaxRetentionWindowDays)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	summary, err := h.stats.Summary(r.Context(), ownerID, window)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to compute statistics")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, summary)
}

// Retention handles GET /stats/retention?window_days=N
func (h *StatsHandler) Retention(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, ok := requireOwner(w, r, log)
	if !ok {
		return
	}
	window, err := getQueryInt(r, "window_days", DefaultRetentionWindowDays, MaxRetentionWindowDays)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	retention, err := h.stats.RetentionRate(r.Context(), ownerID, window)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to compute retention")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, retention)
}

// Mastery handles GET /stats/mastery?level=L
// Without level the whole distribution is returned.
func (h *StatsHandler) Mastery(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, ok := requireOwner(w, r, log)
	if !ok {
		return
	}
	var level domain.MasteryLevel
	if raw := r.URL.Query().Get("level"); raw != "" {
		parsed, err := domain.ParseMasteryLevel(raw)
		if err != nil {
			HandleAPIError(w, r, err, "")
			return
		}
		level = parsed
	}

	dist, err := h.stats.MasteryDistribution(r.Context(), ownerID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to compute mastery")
		return
	}
	if level != "" {
		shared.RespondWithJSON(w, r, http.StatusOK, MasteryLevelResponse{Level: level, Count: dist.Count(level)})
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, dist)
}

// Streak handles GET /stats/streak
func (h *StatsHandler) Streak(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, ok := requireOwner(w, r, log)
	if !ok {
		return
	}

	days, err := h.stats.Streak(r.Context(), ownerID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to compute streak")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, StreakResponse{StreakDays: days})
}

// Due handles GET /stats/due
func (h *StatsHandler) Due(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, ok := requireOwner(w, r, log)
	if !ok {
		return
	}

	due, err := h.stats.DueToday(r.Context(), ownerID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to count due cards")
		return
	}
	overdue, err := h.stats.Overdue(r.Context(), ownerID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to count overdue cards")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, DueResponse{DueToday: due, Overdue: overdue})
}
