package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lueurxax/storypulse/internal/core/domain"
)

// GetEntities loads the full entity registry. Rows with malformed metadata
// are returned with empty metadata rather than failing the whole load; the
// registry is read-only input and a bad metadata blob must not sink a pass.
func (db *DB) GetEntities(ctx context.Context) ([]domain.Entity, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT name, category, aliases, metadata
		FROM entities
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("get entities: %w", err)
	}
	defer rows.Close()

	var entities []domain.Entity

	for rows.Next() {
		var (
			entity      domain.Entity
			category    string
			metadataRaw []byte
		)

		if err := rows.Scan(&entity.Name, &category, &entity.Aliases, &metadataRaw); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}

		entity.Category = domain.Category(category)
		if entity.Category == "" {
			entity.Category = domain.CategoryUnknown
		}

		if len(metadataRaw) > 0 {
			if err := json.Unmarshal(metadataRaw, &entity.Metadata); err != nil {
				db.Logger.Warn().Err(err).Str("entity", entity.Name).Msg("bad entity metadata, ignoring")
			}
		}

		entities = append(entities, entity)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate entities: %w", rows.Err())
	}

	return entities, nil
}
