package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lueurxax/storypulse/internal/core/domain"
	"github.com/lueurxax/storypulse/internal/core/errors"
)

const clusterColumns = `key, title, event_type, subject_name, subject_category, entities,
	source_count, tier1_count, tier2_count, tier3_count, has_conflict,
	velocity_30m, velocity_prev_30m, acceleration, trend, consistency_ratio,
	score, peak_score, peak_at, first_seen_at, last_item_at, item_ids, status, updated_at`

// ClusterFilter narrows the DIS-descending cluster listing.
type ClusterFilter struct {
	Category string
	Since    time.Time
	Limit    int
}

// GetCluster loads one cluster by key, returning ErrClusterNotFound when the
// key has never been persisted.
func (db *DB) GetCluster(ctx context.Context, key string) (*domain.StoryCluster, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT `+clusterColumns+`
		FROM story_clusters
		WHERE key = $1
	`, key)

	c, err := scanCluster(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrClusterNotFound
		}

		return nil, fmt.Errorf("get cluster: %w", err)
	}

	return c, nil
}

// UpsertCluster writes the freshly computed aggregate. All mutable fields are
// overwritten; the caller has already merged the monotonic peak and the
// first-seen timestamp into the value.
func (db *DB) UpsertCluster(ctx context.Context, c *domain.StoryCluster) error {
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO story_clusters (`+clusterColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		        $17, $18, $19, $20, $21, $22, $23, $24)
		ON CONFLICT (key) DO UPDATE SET
			title = EXCLUDED.title,
			event_type = EXCLUDED.event_type,
			subject_name = EXCLUDED.subject_name,
			subject_category = EXCLUDED.subject_category,
			entities = EXCLUDED.entities,
			source_count = EXCLUDED.source_count,
			tier1_count = EXCLUDED.tier1_count,
			tier2_count = EXCLUDED.tier2_count,
			tier3_count = EXCLUDED.tier3_count,
			has_conflict = EXCLUDED.has_conflict,
			velocity_30m = EXCLUDED.velocity_30m,
			velocity_prev_30m = EXCLUDED.velocity_prev_30m,
			acceleration = EXCLUDED.acceleration,
			trend = EXCLUDED.trend,
			consistency_ratio = EXCLUDED.consistency_ratio,
			score = EXCLUDED.score,
			peak_score = GREATEST(story_clusters.peak_score, EXCLUDED.peak_score),
			peak_at = CASE WHEN EXCLUDED.peak_score > story_clusters.peak_score
				THEN EXCLUDED.peak_at ELSE story_clusters.peak_at END,
			first_seen_at = LEAST(story_clusters.first_seen_at, EXCLUDED.first_seen_at),
			last_item_at = EXCLUDED.last_item_at,
			item_ids = EXCLUDED.item_ids,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`, c.Key, c.Title, c.EventType, c.SubjectName, string(c.SubjectCategory), c.Entities,
		c.SourceCount, c.Tier1Count, c.Tier2Count, c.Tier3Count, c.HasConflict,
		c.Velocity30m, c.VelocityPrev30m, c.Acceleration, string(c.Trend), c.ConsistencyRatio,
		c.Score, c.PeakScore, toTimestamptz(c.PeakAt), toTimestamptz(c.FirstSeenAt),
		toTimestamptz(c.LastItemAt), c.ItemIDs, c.Status, toTimestamptz(c.UpdatedAt)); err != nil {
		return fmt.Errorf("upsert cluster: %w", err)
	}

	return nil
}

// ListClusters returns active clusters ordered by DIS descending for the
// downstream consumer read contract.
func (db *DB) ListClusters(ctx context.Context, filter ClusterFilter) ([]domain.StoryCluster, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT `+clusterColumns+`
		FROM story_clusters
		WHERE status = $1
		  AND ($2 = '' OR subject_category = $2)
		  AND ($3::timestamptz IS NULL OR last_item_at >= $3)
		ORDER BY score DESC, key
		LIMIT $4
	`, domain.ClusterStatusActive, filter.Category, toTimestamptz(filter.Since), limit)
	if err != nil {
		return nil, fmt.Errorf("list clusters: %w", err)
	}
	defer rows.Close()

	var clusters []domain.StoryCluster

	for rows.Next() {
		c, err := scanCluster(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cluster: %w", err)
		}

		clusters = append(clusters, *c)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate clusters: %w", rows.Err())
	}

	return clusters, nil
}

// PruneStaleClusters deletes clusters whose newest item fell outside the
// staleness horizon. Summaries go with them via the foreign key cascade.
func (db *DB) PruneStaleClusters(ctx context.Context, olderThan time.Time) (int, error) {
	tag, err := db.Pool.Exec(ctx, `
		DELETE FROM story_clusters WHERE last_item_at < $1
	`, toTimestamptz(olderThan))
	if err != nil {
		return 0, fmt.Errorf("prune stale clusters: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

func scanCluster(row pgx.Row) (*domain.StoryCluster, error) {
	var (
		c                 domain.StoryCluster
		category, trend   string
		peakAt, firstSeen time.Time
		lastItem, updated time.Time
	)

	if err := row.Scan(&c.Key, &c.Title, &c.EventType, &c.SubjectName, &category, &c.Entities,
		&c.SourceCount, &c.Tier1Count, &c.Tier2Count, &c.Tier3Count, &c.HasConflict,
		&c.Velocity30m, &c.VelocityPrev30m, &c.Acceleration, &trend, &c.ConsistencyRatio,
		&c.Score, &c.PeakScore, &peakAt, &firstSeen, &lastItem, &c.ItemIDs, &c.Status, &updated); err != nil {
		return nil, err
	}

	c.SubjectCategory = domain.Category(category)
	c.Trend = domain.TrendLabel(trend)
	c.PeakAt = peakAt
	c.FirstSeenAt = firstSeen
	c.LastItemAt = lastItem
	c.UpdatedAt = updated

	return &c, nil
}
