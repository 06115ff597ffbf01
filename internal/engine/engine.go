// Package engine runs one correlation pass over the active item window:
// LOAD, CLASSIFY/GROUP, per-group SCORE/SUMMARIZE/PERSIST, NOTIFY, PRUNE,
// REPORT.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/storypulse/internal/classify"
	"github.com/lueurxax/storypulse/internal/cluster"
	"github.com/lueurxax/storypulse/internal/core/domain"
	"github.com/lueurxax/storypulse/internal/core/errors"
	"github.com/lueurxax/storypulse/internal/match"
	"github.com/lueurxax/storypulse/internal/platform/config"
	"github.com/lueurxax/storypulse/internal/platform/observability"
	"github.com/lueurxax/storypulse/internal/platform/worker"
)

const (
	logFieldClusterKey = "cluster_key"
	logFieldScore      = "score"

	passStatusOK     = "ok"
	passStatusFailed = "failed"
	passStatusLocked = "locked"

	notifyStatusOK     = "ok"
	notifyStatusFailed = "failed"
)

// Repository is the persistence contract the engine runs against.
type Repository interface {
	GetEntities(ctx context.Context) ([]domain.Entity, error)
	GetItemsSince(ctx context.Context, since time.Time) ([]domain.NewsItem, error)
	GetCluster(ctx context.Context, key string) (*domain.StoryCluster, error)
	UpsertCluster(ctx context.Context, c *domain.StoryCluster) error
	UpsertSummary(ctx context.Context, s *domain.ClusterSummary) error
	AnnotateItems(ctx context.Context, ids []string, clusterKey, eventType string) error
	GetCoveredClusterKeys(ctx context.Context) (map[string]struct{}, error)
	WasNotified(ctx context.Context, clusterKey string) (bool, error)
	RecordNotification(ctx context.Context, clusterKey string, score int) error
	PruneStaleClusters(ctx context.Context, olderThan time.Time) (int, error)
	TryAcquirePassLock(ctx context.Context) (bool, error)
	ReleasePassLock(ctx context.Context) error
}

// Notifier delivers one breaking-news alert. Attempts are fire-and-forget;
// failures never fail a pass.
type Notifier interface {
	NotifyBreaking(ctx context.Context, clusterKey, title string, score int) error
}

// Engine wires the pure correlation stages to storage and notification.
type Engine struct {
	cfg      *config.Config
	repo     Repository
	notifier Notifier
	logger   *zerolog.Logger
	now      func() time.Time
}

func New(cfg *config.Config, repo Repository, notifier Notifier, logger *zerolog.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Run executes passes on the configured interval until ctx is canceled.
func (e *Engine) Run(ctx context.Context) error {
	return worker.Loop(ctx, worker.Config{
		Name:         "engine",
		PollInterval: e.cfg.PassInterval,
		Logger:       e.logger,
		Process: func(ctx context.Context) error {
			report, err := e.RunPass(ctx)
			if err != nil {
				if errors.Is(err, errors.ErrPassInProgress) {
					e.logger.Warn().Msg("skipping pass, previous pass still running")

					return nil
				}

				return err
			}

			e.logger.Info().
				Int("items", report.ItemsProcessed).
				Int("groups", report.GroupsFound).
				Int("created", report.ClustersCreated).
				Int("updated", report.ClustersUpdated).
				Int("notified", report.NotificationsFired).
				Int("pruned", report.ClustersPruned).
				Int("errors", report.Errors).
				Dur("duration", report.Duration).
				Msg("pass complete")

			return nil
		},
		OnError: func(err error) bool {
			e.logger.Error().Err(err).Msg("pass failed")

			return true
		},
	})
}

// RunPass executes exactly one pass and returns its report. Concurrent
// passes are serialized by an advisory lock; a losing caller gets
// ErrPassInProgress instead of duplicate upsert work.
func (e *Engine) RunPass(ctx context.Context) (domain.PassReport, error) {
	started := time.Now()
	now := e.now()
	report := domain.PassReport{StartedAt: now}

	acquired, err := e.repo.TryAcquirePassLock(ctx)
	if err != nil {
		observability.PassesTotal.WithLabelValues(passStatusFailed).Inc()

		return report, fmt.Errorf("acquire pass lock: %w", err)
	}

	if !acquired {
		observability.PassesTotal.WithLabelValues(passStatusLocked).Inc()

		return report, errors.ErrPassInProgress
	}

	defer func() {
		if err := e.repo.ReleasePassLock(context.WithoutCancel(ctx)); err != nil {
			e.logger.Warn().Err(err).Msg("release pass lock failed")
		}
	}()

	entities, items, err := e.load(ctx, now)
	if err != nil {
		observability.PassesTotal.WithLabelValues(passStatusFailed).Inc()

		return report, err
	}

	report.ItemsProcessed = len(items)
	observability.ItemsProcessed.Add(float64(len(items)))

	if len(items) == 0 {
		e.logger.Info().Msg("nothing to cluster")
		e.prune(ctx, now, &report)
		e.finish(&report, started)

		return report, nil
	}

	matcher, err := match.New(entities, match.Options{
		MinAliasLen:         e.cfg.ShortAliasMinLen,
		ShortAliasAllowlist: e.cfg.ShortAliasAllowlist,
		AmbiguousAliases:    e.cfg.AmbiguousAliases,
	})
	if err != nil {
		observability.PassesTotal.WithLabelValues(passStatusFailed).Inc()

		return report, fmt.Errorf("compile registry: %w", err)
	}

	groups, skipped := cluster.Partition(items, matcher, classify.Classify)
	report.GroupsFound = len(groups)
	report.ItemsSkipped = skipped

	if skipped > 0 {
		observability.ItemsSkipped.WithLabelValues("malformed_item").Add(float64(skipped))
	}

	observability.GroupsFound.Set(float64(len(groups)))

	persisted := e.processGroups(ctx, groups, now, &report)

	e.notify(ctx, persisted, now, &report)
	e.prune(ctx, now, &report)
	e.finish(&report, started)

	return report, nil
}

func (e *Engine) load(ctx context.Context, now time.Time) ([]domain.Entity, []domain.NewsItem, error) {
	var (
		entities []domain.Entity
		items    []domain.NewsItem
	)

	err := worker.RunWithTimeout(ctx, e.cfg.LoadTimeout, func(ctx context.Context) error {
		var err error

		entities, err = e.repo.GetEntities(ctx)
		if err != nil {
			return fmt.Errorf("load entity registry: %w", err)
		}

		items, err = e.repo.GetItemsSince(ctx, now.Add(-e.cfg.ItemWindow))
		if err != nil {
			return fmt.Errorf("load item window: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return entities, items, nil
}

// processGroups runs the SCORE/SUMMARIZE/PERSIST stage on a bounded pool.
// Each group touches a disjoint cluster key, so groups never contend on rows;
// the report is the only shared state and is mutex-guarded. The barrier
// before returning is what makes the subsequent NOTIFY/REPORT steps complete.
func (e *Engine) processGroups(ctx context.Context, groups []cluster.Group, now time.Time, report *domain.PassReport) []domain.StoryCluster {
	poolSize := e.cfg.WorkerPoolSize
	if poolSize <= 0 {
		poolSize = 1
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		persisted []domain.StoryCluster
	)

	sem := make(chan struct{}, poolSize)

	for _, g := range groups {
		wg.Add(1)

		go func(g cluster.Group) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			stored, created, err := e.processGroup(ctx, g, now)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				report.Errors++

				e.logger.Error().Err(err).Str(logFieldClusterKey, g.Key).Msg("group processing failed")

				return
			}

			if created {
				report.ClustersCreated++

				observability.ClustersCreated.Inc()
			} else {
				report.ClustersUpdated++

				observability.ClustersUpdated.Inc()
			}

			report.SummariesWritten++

			observability.SummariesWritten.Inc()

			persisted = append(persisted, *stored)
		}(g)
	}

	wg.Wait()

	return persisted
}

func (e *Engine) prune(ctx context.Context, now time.Time, report *domain.PassReport) {
	pruned, err := e.repo.PruneStaleClusters(ctx, now.Add(-e.cfg.StalenessHorizon))
	if err != nil {
		report.Errors++

		observability.GroupErrors.WithLabelValues("prune").Inc()
		e.logger.Error().Err(err).Msg("prune stale clusters failed")

		return
	}

	report.ClustersPruned = pruned
	observability.ClustersPruned.Add(float64(pruned))
}

func (e *Engine) finish(report *domain.PassReport, started time.Time) {
	report.Duration = time.Since(started)
	observability.PassDurationSeconds.Observe(report.Duration.Seconds())
	observability.PassesTotal.WithLabelValues(passStatusOK).Inc()
}
