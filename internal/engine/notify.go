package engine

import (
	"context"
	"time"

	"github.com/lueurxax/storypulse/internal/core/domain"
	"github.com/lueurxax/storypulse/internal/platform/observability"
)

// notify fires one attempt per breaking cluster not already covered
// downstream or attempted before. Delivery runs detached so a slow or dead
// webhook cannot stall the pass; only the attempt record is synchronous.
func (e *Engine) notify(ctx context.Context, clusters []domain.StoryCluster, now time.Time, report *domain.PassReport) {
	if e.notifier == nil {
		return
	}

	breaking := 0

	covered, err := e.repo.GetCoveredClusterKeys(ctx)
	if err != nil {
		report.Errors++

		observability.GroupErrors.WithLabelValues("notify").Inc()
		e.logger.Error().Err(err).Msg("load covered cluster keys failed")

		return
	}

	for _, c := range clusters {
		if c.Score < e.cfg.BreakingThreshold {
			continue
		}

		breaking++

		if now.Sub(c.LastItemAt) > e.cfg.BreakingRecency {
			continue
		}

		if c.SubjectCategory == domain.CategoryUnknown {
			continue
		}

		if _, ok := covered[c.Key]; ok {
			continue
		}

		notified, err := e.repo.WasNotified(ctx, c.Key)
		if err != nil {
			report.Errors++

			observability.GroupErrors.WithLabelValues("notify").Inc()
			e.logger.Error().Err(err).Str(logFieldClusterKey, c.Key).Msg("notification dedup check failed")

			continue
		}

		if notified {
			continue
		}

		if err := e.repo.RecordNotification(ctx, c.Key, c.Score); err != nil {
			report.Errors++

			observability.GroupErrors.WithLabelValues("notify").Inc()
			e.logger.Error().Err(err).Str(logFieldClusterKey, c.Key).Msg("record notification failed")

			continue
		}

		report.NotificationsFired++

		e.dispatch(context.WithoutCancel(ctx), c)
	}

	observability.BreakingClusters.Set(float64(breaking))
}

func (e *Engine) dispatch(ctx context.Context, c domain.StoryCluster) {
	go func() {
		ctx, cancel := context.WithTimeout(ctx, e.cfg.NotifyTimeout)
		defer cancel()

		if err := e.notifier.NotifyBreaking(ctx, c.Key, c.Title, c.Score); err != nil {
			observability.NotificationsFired.WithLabelValues(notifyStatusFailed).Inc()
			e.logger.Warn().Err(err).
				Str(logFieldClusterKey, c.Key).
				Int(logFieldScore, c.Score).
				Msg("breaking notification failed")

			return
		}

		observability.NotificationsFired.WithLabelValues(notifyStatusOK).Inc()
		e.logger.Info().
			Str(logFieldClusterKey, c.Key).
			Int(logFieldScore, c.Score).
			Msg("breaking notification sent")
	}()
}
