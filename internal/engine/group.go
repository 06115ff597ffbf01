package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/lueurxax/storypulse/internal/cluster"
	"github.com/lueurxax/storypulse/internal/core/domain"
	"github.com/lueurxax/storypulse/internal/core/errors"
	"github.com/lueurxax/storypulse/internal/platform/observability"
	"github.com/lueurxax/storypulse/internal/platform/worker"
	"github.com/lueurxax/storypulse/internal/score"
	"github.com/lueurxax/storypulse/internal/summary"
)

const velocityWindow = 30 * time.Minute

// processGroup scores, summarizes and persists one group. A panic inside the
// stage is converted into a counted error so sibling groups keep going.
func (e *Engine) processGroup(ctx context.Context, g cluster.Group, now time.Time) (stored *domain.StoryCluster, created bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("group panic: %v", r)

			observability.GroupErrors.WithLabelValues("panic").Inc()
		}
	}()

	prev, err := e.repo.GetCluster(ctx, g.Key)
	if err != nil && !errors.Is(err, errors.ErrClusterNotFound) {
		observability.GroupErrors.WithLabelValues("load").Inc()

		return nil, false, fmt.Errorf("load cluster %s: %w", g.Key, err)
	}

	sum := summary.Generate(g.Key, g.Items, summary.Options{
		MergeOverlap: e.cfg.ClaimMergeOverlap,
		TopClaims:    e.cfg.TopClaims,
	})
	sum.GeneratedAt = now

	c := e.buildCluster(g, prev, &sum, now)
	created = prev == nil

	err = worker.RunWithTimeout(ctx, e.cfg.PersistTimeout, func(ctx context.Context) error {
		if err := e.repo.UpsertCluster(ctx, c); err != nil {
			return fmt.Errorf("upsert cluster: %w", err)
		}

		if err := e.repo.UpsertSummary(ctx, &sum); err != nil {
			return fmt.Errorf("upsert summary: %w", err)
		}

		if err := e.repo.AnnotateItems(ctx, c.ItemIDs, c.Key, c.EventType); err != nil {
			return fmt.Errorf("annotate items: %w", err)
		}

		return nil
	})
	if err != nil {
		observability.GroupErrors.WithLabelValues("persist").Inc()

		return nil, false, fmt.Errorf("persist group %s: %w", g.Key, err)
	}

	return c, created, nil
}

// buildCluster assembles the aggregate for one group. The previous snapshot
// contributes only first-seen and the monotonic peak; every other field is
// recomputed from the current window.
func (e *Engine) buildCluster(g cluster.Group, prev *domain.StoryCluster, sum *domain.ClusterSummary, now time.Time) *domain.StoryCluster {
	firstSeen := g.Items[0].PublishedAt
	lastItem := g.Items[0].PublishedAt

	sources := make(map[string]struct{})
	itemIDs := make([]string, 0, len(g.Items))

	var tier1, tier2, tier3, recent, previous int

	for _, item := range g.Items {
		itemIDs = append(itemIDs, item.ID)
		sources[item.Source] = struct{}{}

		if item.PublishedAt.Before(firstSeen) {
			firstSeen = item.PublishedAt
		}

		if item.PublishedAt.After(lastItem) {
			lastItem = item.PublishedAt
		}

		switch item.SourceTier {
		case 1:
			tier1++
		case 2:
			tier2++
		default:
			tier3++
		}

		age := now.Sub(item.PublishedAt)
		if age <= velocityWindow {
			recent++
		} else if age <= 2*velocityWindow {
			previous++
		}
	}

	var (
		prevPeak   int
		prevPeakAt time.Time
	)

	if prev != nil {
		prevPeak = prev.PeakScore
		prevPeakAt = prev.PeakAt

		if !prev.FirstSeenAt.IsZero() && prev.FirstSeenAt.Before(firstSeen) {
			firstSeen = prev.FirstSeenAt
		}
	}

	scored := score.Compute(score.Input{
		Tier1Count:       tier1,
		Tier2Count:       tier2,
		Tier3Count:       tier3,
		Velocity30m:      recent,
		VelocityPrev30m:  previous,
		ConsistencyRatio: sum.Integrity.ConsistencyRatio,
		FirstSeenAt:      firstSeen,
		Now:              now,
		DecayHours:       e.cfg.DecayHours,
		PrevPeak:         prevPeak,
		PrevPeakAt:       prevPeakAt,
	})

	return &domain.StoryCluster{
		Key:              g.Key,
		Title:            bestHeadline(g.Items),
		EventType:        g.EventType,
		SubjectName:      g.Subject.Name,
		SubjectCategory:  g.Subject.Category,
		Entities:         g.Entities,
		SourceCount:      len(sources),
		Tier1Count:       tier1,
		Tier2Count:       tier2,
		Tier3Count:       tier3,
		HasConflict:      sum.Integrity.HasConflict,
		Velocity30m:      recent,
		VelocityPrev30m:  previous,
		Acceleration:     scored.Acceleration,
		Trend:            scored.Trend,
		ConsistencyRatio: sum.Integrity.ConsistencyRatio,
		Score:            scored.Score,
		PeakScore:        scored.PeakScore,
		PeakAt:           scored.PeakAt,
		FirstSeenAt:      firstSeen,
		LastItemAt:       lastItem,
		ItemIDs:          itemIDs,
		Status:           domain.ClusterStatusActive,
		UpdatedAt:        now,
	}
}

// bestHeadline picks the earliest title from the most authoritative tier
// present, with the trailing attribution suffix stripped.
func bestHeadline(items []domain.NewsItem) string {
	best := items[0]

	for _, item := range items[1:] {
		if item.SourceTier < best.SourceTier ||
			(item.SourceTier == best.SourceTier && item.PublishedAt.Before(best.PublishedAt)) {
			best = item
		}
	}

	return summary.StripAttribution(best.Title)
}
