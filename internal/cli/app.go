package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-engine/internal/config"
	"github.com/phrazzld/scry-engine/internal/domain/srs"
	"github.com/phrazzld/scry-engine/internal/events"
	"github.com/phrazzld/scry-engine/internal/platform/migrations"
	"github.com/phrazzld/scry-engine/internal/platform/postgres"
	"github.com/phrazzld/scry-engine/internal/platform/sqlite"
	"github.com/phrazzld/scry-engine/internal/service"
	"github.com/phrazzld/scry-engine/internal/service/review_session"
	"github.com/phrazzld/scry-engine/internal/store"
)

// application holds the shared dependencies of every command and closes
// them on cleanup.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	now    func() time.Time

	cardStore   store.CardStore
	reviewStore store.ReviewStore

	scheduler srs.Service
	cards     service.CardRepository
	stats     service.StatsService
	sessions  review_session.Manager
	emitter   *events.InMemoryEventEmitter
}

// openDatabase connects to the configured driver.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case "postgres":
		return postgres.Open(ctx, cfg.URL, cfg.MaxOpenConns)
	case "sqlite":
		// A single connection keeps transactions and plain store calls from
		// waiting on each other.
		return sqlite.Open(ctx, cfg.URL, 1)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// newStores returns the store adapters for driver.
func newStores(driver string, db *sql.DB, logger *slog.Logger) (store.CardStore, store.ReviewStore) {
	if driver == "postgres" {
		return postgres.NewPostgresCardStore(db, logger), postgres.NewPostgresReviewStore(db, logger)
	}
	return sqlite.NewCardStore(db, logger), sqlite.NewReviewStore(db, logger)
}

// paramsConfig maps the srs section onto scheduler parameters.
func paramsConfig(cfg config.SRSConfig) (srs.ParamsConfig, error) {
	strategy, err := srs.ParseStrategy(cfg.Strategy)
	if err != nil {
		return srs.ParamsConfig{}, err
	}
	return srs.ParamsConfig{
		MaxEaseFactor:       cfg.EaseCeiling,
		UnboundedEaseFactor: cfg.EaseCeilingUnbounded,
		MasteryIntervalDays: cfg.MasteryIntervalDays,
		DisableMastery:      cfg.MasteryIntervalDays == 0,
		TargetResponseTime:  cfg.TargetResponseTime,
		Strategy:            strategy,
	}, nil
}

// appOptions adjusts how an application is built.
type appOptions struct {
	// migrate applies pending migrations before the services are built.
	migrate bool
	// now replaces the clock. Defaults to time.Now.
	now func() time.Time
}

// newApplication opens the database and builds every service on top of it.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts appOptions) (*application, error) {
	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if opts.now == nil {
		opts.now = time.Now
	}

	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
		now:    opts.now,
	}
	if err := app.init(ctx, opts.migrate); err != nil {
		app.cleanup()
		return nil, err
	}
	return app, nil
}

func (app *application) init(ctx context.Context, migrate bool) error {
	cfg := app.config

	if migrate {
		m, err := migrations.New(app.db, cfg.Database.Driver, app.logger)
		if err != nil {
			return err
		}
		if _, err := m.Up(ctx); err != nil {
			return err
		}
	}

	app.cardStore, app.reviewStore = newStores(cfg.Database.Driver, app.db, app.logger)

	pc, err := paramsConfig(cfg.SRS)
	if err != nil {
		return fmt.Errorf("invalid srs configuration: %w", err)
	}
	params, err := srs.NewParams(pc)
	if err != nil {
		return fmt.Errorf("invalid srs configuration: %w", err)
	}
	app.scheduler, err = srs.NewServiceWithParams(params)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	app.cards, err = service.NewCardRepository(
		app.db,
		app.cardStore,
		app.reviewStore,
		app.scheduler,
		service.RepositoryOptions{StoreTimeout: cfg.Review.StoreTimeout, Now: app.now},
		app.logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create card repository: %w", err)
	}

	loc, err := cfg.Stats.Location()
	if err != nil {
		return fmt.Errorf("invalid stats timezone: %w", err)
	}
	app.stats, err = service.NewStatsService(app.cards, app.reviewStore, service.StatsOptions{
		Location:           loc,
		StreakLookbackDays: cfg.Stats.StreakLookbackDays,
		StoreTimeout:       cfg.Review.StoreTimeout,
		Now:                app.now,
	}, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create stats service: %w", err)
	}

	app.emitter = events.NewInMemoryEventEmitter(app.logger)
	if cfg.Review.ArchiveOnComplete {
		app.emitter.RegisterHandler(service.NewArchiveOnComplete(app.cards, app.logger))
		app.logger.Debug("mastered cards are archived when a session completes")
	}

	app.sessions = review_session.NewManager(app.cards, app.scheduler, nil, app.emitter, review_session.Options{
		SessionSize:    cfg.Review.SessionSize,
		MaxAttempts:    cfg.Review.MaxAttempts,
		RetryBaseDelay: cfg.Review.RetryBaseDelay,
		Now:            app.now,
	}, app.logger)

	return nil
}

// cleanup releases the database connection.
func (app *application) cleanup() {
	if app.db == nil {
		return
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database", "error", err)
	}
}
