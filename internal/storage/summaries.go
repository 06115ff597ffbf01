package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lueurxax/storypulse/internal/core/domain"
	"github.com/lueurxax/storypulse/internal/core/errors"
)

// UpsertSummary replaces the summary for a cluster in full. Summaries are
// regenerated, never patched, so the write is a plain overwrite by key.
func (db *DB) UpsertSummary(ctx context.Context, s *domain.ClusterSummary) error {
	claims, err := json.Marshal(s.Claims)
	if err != nil {
		return fmt.Errorf("marshal claims: %w", err)
	}

	conflicts, err := json.Marshal(s.Conflicts)
	if err != nil {
		return fmt.Errorf("marshal conflicts: %w", err)
	}

	integrity, err := json.Marshal(s.Integrity)
	if err != nil {
		return fmt.Errorf("marshal integrity: %w", err)
	}

	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO cluster_summaries (cluster_key, claims, conflicts, integrity, narrative, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (cluster_key) DO UPDATE SET
			claims = EXCLUDED.claims,
			conflicts = EXCLUDED.conflicts,
			integrity = EXCLUDED.integrity,
			narrative = EXCLUDED.narrative,
			generated_at = EXCLUDED.generated_at
	`, s.ClusterKey, claims, conflicts, integrity, s.Narrative, toTimestamptz(s.GeneratedAt)); err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}

	return nil
}

// GetSummary loads the summary paired with a cluster key.
func (db *DB) GetSummary(ctx context.Context, clusterKey string) (*domain.ClusterSummary, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT cluster_key, claims, conflicts, integrity, narrative, generated_at
		FROM cluster_summaries
		WHERE cluster_key = $1
	`, clusterKey)

	var (
		s         domain.ClusterSummary
		claims    []byte
		conflicts []byte
		integrity []byte
	)

	if err := row.Scan(&s.ClusterKey, &claims, &conflicts, &integrity, &s.Narrative, &s.GeneratedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrSummaryNotFound
		}

		return nil, fmt.Errorf("get summary: %w", err)
	}

	if err := json.Unmarshal(claims, &s.Claims); err != nil {
		return nil, fmt.Errorf("unmarshal claims: %w", err)
	}

	if len(conflicts) > 0 {
		if err := json.Unmarshal(conflicts, &s.Conflicts); err != nil {
			return nil, fmt.Errorf("unmarshal conflicts: %w", err)
		}
	}

	if err := json.Unmarshal(integrity, &s.Integrity); err != nil {
		return nil, fmt.Errorf("unmarshal integrity: %w", err)
	}

	return &s, nil
}
