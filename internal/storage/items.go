package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lueurxax/storypulse/internal/core/domain"
)

// GetItemsSince returns all news items published at or after the cutoff,
// ordered for deterministic grouping.
func (db *DB) GetItemsSince(ctx context.Context, since time.Time) ([]domain.NewsItem, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, title, source, source_tier, published_at, COALESCE(body, ''),
		       COALESCE(cluster_key, ''), COALESCE(event_type, '')
		FROM news_items
		WHERE published_at >= $1
		ORDER BY published_at, id
	`, toTimestamptz(since))
	if err != nil {
		return nil, fmt.Errorf("get items since: %w", err)
	}
	defer rows.Close()

	var items []domain.NewsItem

	for rows.Next() {
		var item domain.NewsItem

		if err := rows.Scan(&item.ID, &item.Title, &item.Source, &item.SourceTier,
			&item.PublishedAt, &item.Body, &item.ClusterKey, &item.EventType); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}

		items = append(items, item)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate items: %w", rows.Err())
	}

	return items, nil
}

// InsertItem stores one ingested item, deduplicating on (source, external_id).
// Returns true when a new row was written.
func (db *DB) InsertItem(ctx context.Context, item *domain.NewsItem, externalID string) (bool, error) {
	id := item.ID
	if id == "" {
		id = uuid.NewString()
	}

	tag, err := db.Pool.Exec(ctx, `
		INSERT INTO news_items (id, title, source, source_tier, published_at, body, external_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (source, external_id) DO NOTHING
	`, id, item.Title, item.Source, item.SourceTier,
		toTimestamptz(item.PublishedAt), toText(item.Body), toText(externalID))
	if err != nil {
		return false, fmt.Errorf("insert item: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// AnnotateItems batch-writes the cluster key and event type assignment for
// one group's members. Annotation is the only mutation this engine performs
// on ingested items.
func (db *DB) AnnotateItems(ctx context.Context, ids []string, clusterKey, eventType string) error {
	if len(ids) == 0 {
		return nil
	}

	if _, err := db.Pool.Exec(ctx, `
		UPDATE news_items
		SET cluster_key = $1, event_type = $2
		WHERE id = ANY($3)
	`, clusterKey, eventType, ids); err != nil {
		return fmt.Errorf("annotate items: %w", err)
	}

	return nil
}
