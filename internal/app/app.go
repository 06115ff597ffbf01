// Package app provides the main application bootstrap and runtime orchestration.
//
// The App type wires together all dependencies and exposes methods to run
// different operational modes:
//
//   - Engine mode: Periodic correlation passes over the active item window
//   - Ingest mode: RSS/Atom feed polling into the news item store
//   - Serve mode: Health, metrics and the cluster read API only
//   - All mode: Every component in one process
//
// Each mode can be run independently or combined based on deployment needs.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lueurxax/storypulse/internal/engine"
	"github.com/lueurxax/storypulse/internal/ingest"
	"github.com/lueurxax/storypulse/internal/notify"
	"github.com/lueurxax/storypulse/internal/platform/config"
	"github.com/lueurxax/storypulse/internal/platform/observability"
	db "github.com/lueurxax/storypulse/internal/storage"

	coreerrors "github.com/lueurxax/storypulse/internal/core/errors"
)

var (
	_ engine.Repository = (*db.DB)(nil)
	_ ingest.Repository = (*db.DB)(nil)
)

const msgIngestStopped = "feed poller stopped"

// App holds the application dependencies and provides methods to run different modes.
type App struct {
	cfg      *config.Config
	database *db.DB
	logger   *zerolog.Logger
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	return &App{
		cfg:      cfg,
		database: database,
		logger:   logger,
	}
}

// StartHealthServer starts the health check, metrics and read API server.
func (a *App) StartHealthServer(ctx context.Context) error {
	srv := observability.NewServer(a.database, a.newEngine(), a.cfg.HealthPort, a.logger)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("health server start: %w", err)
	}

	return nil
}

// RunServe runs the API-only mode. Passes still run on demand through the
// POST /run endpoint, so a serve replica can cover for a paused engine.
func (a *App) RunServe(ctx context.Context) error {
	a.logger.Info().Msg("Starting serve mode")

	return a.StartHealthServer(ctx)
}

// RunEngine runs the correlation engine mode.
func (a *App) RunEngine(ctx context.Context, once bool) error {
	a.logger.Info().Bool("once", once).Msg("Starting engine mode")

	e := a.newEngine()

	if once {
		report, err := e.RunPass(ctx)
		if err != nil {
			return fmt.Errorf("engine run once: %w", err)
		}

		a.logger.Info().
			Int("items", report.ItemsProcessed).
			Int("groups", report.GroupsFound).
			Int("notified", report.NotificationsFired).
			Msg("single pass complete")

		return nil
	}

	if err := e.Run(ctx); err != nil {
		return fmt.Errorf("engine run: %w", err)
	}

	return nil
}

// RunIngest runs the feed poller mode.
func (a *App) RunIngest(ctx context.Context, once bool) error {
	a.logger.Info().Bool("once", once).Msg("Starting ingest mode")

	poller, err := ingest.New(a.cfg, a.database, a.logger)
	if err != nil {
		return fmt.Errorf("ingest init: %w", err)
	}

	if once {
		if err := poller.PollOnce(ctx); err != nil {
			return fmt.Errorf("ingest run once: %w", err)
		}

		return nil
	}

	if err := poller.Run(ctx); err != nil {
		return fmt.Errorf("ingest run: %w", err)
	}

	return nil
}

// RunAll runs the ingest poller alongside the engine in one process.
func (a *App) RunAll(ctx context.Context) error {
	a.logger.Info().Msg("Starting all-in-one mode")

	go a.runIngestWorker(ctx)

	return a.RunEngine(ctx, false)
}

func (a *App) runIngestWorker(ctx context.Context) {
	poller, err := ingest.New(a.cfg, a.database, a.logger)
	if err != nil {
		a.logger.Error().Err(err).Msg("ingest init failed")

		return
	}

	if err := poller.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			a.logger.Info().Msg(msgIngestStopped)

			return
		}

		a.logger.Warn().Err(err).Msg(msgIngestStopped)
	}
}

// newEngine builds the engine with its notifier. A missing webhook URL
// disables notifications without disabling the engine.
func (a *App) newEngine() *engine.Engine {
	var notifier engine.Notifier

	webhook, err := notify.NewWebhook(a.cfg.NotifyWebhookURL, a.cfg.NotifyTimeout, a.cfg.NotifyRPS, a.logger)

	switch {
	case err == nil:
		notifier = webhook
	case errors.Is(err, coreerrors.ErrNotifierDisabled):
		a.logger.Info().Msg("breaking-news notifications disabled, no webhook configured")
	default:
		a.logger.Warn().Err(err).Msg("notifier init failed, continuing without notifications")
	}

	return engine.New(a.cfg, a.database, notifier, a.logger)
}
