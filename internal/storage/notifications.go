package db

import (
	"context"
	"fmt"
)

// GetCoveredClusterKeys returns the cluster identifiers a downstream consumer
// has already produced an artifact for. The marking mechanism lives outside
// this engine; here it is only read as a set.
func (db *DB) GetCoveredClusterKeys(ctx context.Context) (map[string]struct{}, error) {
	rows, err := db.Pool.Query(ctx, `SELECT DISTINCT cluster_key FROM covered_clusters`)
	if err != nil {
		return nil, fmt.Errorf("get covered cluster keys: %w", err)
	}
	defer rows.Close()

	covered := make(map[string]struct{})

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan covered key: %w", err)
		}

		covered[key] = struct{}{}
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate covered keys: %w", rows.Err())
	}

	return covered, nil
}

// WasNotified reports whether a breaking notification was already attempted
// for this cluster.
func (db *DB) WasNotified(ctx context.Context, clusterKey string) (bool, error) {
	var exists bool

	if err := db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM notification_log WHERE cluster_key = $1)
	`, clusterKey).Scan(&exists); err != nil {
		return false, fmt.Errorf("check notification: %w", err)
	}

	return exists, nil
}

// RecordNotification logs one attempt. The log is what keeps attempts
// at-most-once per cluster; delivery itself is best-effort.
func (db *DB) RecordNotification(ctx context.Context, clusterKey string, score int) error {
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO notification_log (cluster_key, score)
		VALUES ($1, $2)
		ON CONFLICT (cluster_key) DO NOTHING
	`, clusterKey, score); err != nil {
		return fmt.Errorf("record notification: %w", err)
	}

	return nil
}
