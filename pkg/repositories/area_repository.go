package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nobodyclimb/crag-sync/pkg/database"
	"github.com/nobodyclimb/crag-sync/pkg/models"
)

// AreaRepository provides idempotent store access for crag areas, keyed on
// the (cragSlug, id) composite natural key.
type AreaRepository interface {
	Upsert(ctx context.Context, area *models.Area) error
	UpsertBatch(ctx context.Context, areas []*models.Area) error
	List(ctx context.Context) ([]*models.Area, error)
}

type areaRepository struct {
	db *database.DB
}

// NewAreaRepository creates a new AreaRepository.
func NewAreaRepository(db *database.DB) AreaRepository {
	return &areaRepository{db: db}
}

var _ AreaRepository = (*areaRepository)(nil)

const upsertAreaSQL = `
	INSERT INTO areas (
		id, crag_id, crag_slug, name, name_en, description,
		difficulty_min, difficulty_max, bolt_count, image,
		created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
	ON CONFLICT (crag_slug, id) DO UPDATE SET
		crag_id = EXCLUDED.crag_id,
		name = EXCLUDED.name,
		name_en = EXCLUDED.name_en,
		description = EXCLUDED.description,
		difficulty_min = EXCLUDED.difficulty_min,
		difficulty_max = EXCLUDED.difficulty_max,
		bolt_count = EXCLUDED.bolt_count,
		image = EXCLUDED.image,
		updated_at = now()`

func areaArgs(a *models.Area) []any {
	return []any{
		a.ID,
		a.CragID,
		a.CragSlug,
		a.Name,
		nullString(a.NameEn),
		nullString(a.Description),
		nullString(a.DifficultyMin),
		nullString(a.DifficultyMax),
		nullInt(a.BoltCount),
		nullString(a.Image),
	}
}

func (r *areaRepository) Upsert(ctx context.Context, area *models.Area) error {
	if _, err := r.db.Exec(ctx, upsertAreaSQL, areaArgs(area)...); err != nil {
		return fmt.Errorf("failed to upsert area %s: %w", area.Key(), err)
	}
	return nil
}

func (r *areaRepository) UpsertBatch(ctx context.Context, areas []*models.Area) error {
	if len(areas) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, a := range areas {
		batch.Queue(upsertAreaSQL, areaArgs(a)...)
	}

	br := r.db.SendBatch(ctx, batch)
	for _, a := range areas {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("failed to upsert area %s: %w", a.Key(), err)
		}
	}
	return br.Close()
}

func (r *areaRepository) List(ctx context.Context) ([]*models.Area, error) {
	query := `
		SELECT id, crag_id, crag_slug, name, COALESCE(name_en, ''),
			COALESCE(description, ''), COALESCE(difficulty_min, ''),
			COALESCE(difficulty_max, ''), COALESCE(bolt_count, 0),
			COALESCE(image, '')
		FROM areas
		ORDER BY crag_slug, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list areas: %w", err)
	}
	defer rows.Close()

	var areas []*models.Area
	for rows.Next() {
		var a models.Area
		err := rows.Scan(
			&a.ID, &a.CragID, &a.CragSlug, &a.Name, &a.NameEn,
			&a.Description, &a.DifficultyMin, &a.DifficultyMax,
			&a.BoltCount, &a.Image,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan area: %w", err)
		}
		areas = append(areas, &a)
	}
	return areas, rows.Err()
}
