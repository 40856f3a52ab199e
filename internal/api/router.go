package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/scry-engine/internal/api/middleware"
	"github.com/phrazzld/scry-engine/internal/platform/token"
	"github.com/phrazzld/scry-engine/internal/service"
	"github.com/phrazzld/scry-engine/internal/service/review_session"
)

// RouterDeps are the services the HTTP API is built on.
type RouterDeps struct {
	Cards    service.CardRepository
	Sessions review_session.Manager
	Stats    service.StatsService
	Tokens   token.Service
	Logger   *slog.Logger
	// Now is the clock used for due-card queries. Defaults to time.Now.
	Now func() time.Time
}

// NewRouter wires every route of the API.
func NewRouter(deps RouterDeps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewTraceMiddleware(log))
	r.Use(chimiddleware.Recoverer)

	cardHandler := NewCardHandler(deps.Cards, deps.Now, log)
	reviewHandler := NewReviewHandler(deps.Sessions, log)
	statsHandler := NewStatsHandler(deps.Stats, log)
	authMiddleware := middleware.NewAuthMiddleware(deps.Tokens)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Route("/cards", func(r chi.Router) {
			r.Post("/", cardHandler.CreateCard)
			r.Get("/", cardHandler.LookupCard)
			r.Post("/bulk", cardHandler.BulkCreateCards)
			r.Get("/due", cardHandler.ListDue)
			r.Post("/archive-mastered", cardHandler.ArchiveMastered)
			r.Get("/{id}", cardHandler.GetCard)
			r.Post("/{id}/suspend", cardHandler.SuspendCard)
			r.Post("/{id}/restore", cardHandler.RestoreCard)
			r.Post("/{id}/postpone", cardHandler.PostponeCard)
		})

		r.Route("/reviews/session", func(r chi.Router) {
			r.Post("/", reviewHandler.StartSession)
			r.Get("/", reviewHandler.GetSession)
			r.Post("/answer", reviewHandler.Answer)
			r.Post("/skip", reviewHandler.Skip)
			r.Post("/complete", reviewHandler.Complete)
		})

		r.Route("/stats", func(r chi.Router) {
			r.Get("/", statsHandler.Summary)
			r.Get("/retention", statsHandler.Retention)
			r.Get("/mastery", statsHandler.Mastery)
			r.Get("/streak", statsHandler.Streak)
			r.Get("/due", statsHandler.Due)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error("failed to write health check response", slog.String("error", err.Error()))
		}
	})

	return r
}
