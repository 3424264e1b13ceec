package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nobodyclimb/crag-sync/pkg/apperrors"
	"github.com/nobodyclimb/crag-sync/pkg/database"
	"github.com/nobodyclimb/crag-sync/pkg/models"
)

// CragRepository provides idempotent store access for crags, keyed on the
// natural key. Upserts are insert-or-replace-on-conflict: calling twice with
// identical input leaves identical store state.
type CragRepository interface {
	Upsert(ctx context.Context, crag *models.Crag) error
	UpsertBatch(ctx context.Context, crags []*models.Crag) error
	GetBySlug(ctx context.Context, slug string) (*models.Crag, error)
	List(ctx context.Context) ([]*models.Crag, error)

	// RecomputeRouteCount refreshes the crag's derived route and bolt
	// aggregates from the routes table and returns the new route count.
	// Always invoked after route sync for the crag completes, never
	// interleaved with it.
	RecomputeRouteCount(ctx context.Context, cragSlug string) (int, error)
}

type cragRepository struct {
	db *database.DB
}

// NewCragRepository creates a new CragRepository.
func NewCragRepository(db *database.DB) CragRepository {
	return &cragRepository{db: db}
}

var _ CragRepository = (*cragRepository)(nil)

const upsertCragSQL = `
	INSERT INTO crags (
		id, slug, name, name_en, region, location,
		latitude, longitude, altitude, rock_type, climbing_types,
		difficulty_range, description, access_info, parking_info,
		approach_time, best_seasons, restrictions, cover_image, is_featured,
		created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, now(), now())
	ON CONFLICT (id) DO UPDATE SET
		slug = EXCLUDED.slug,
		name = EXCLUDED.name,
		name_en = EXCLUDED.name_en,
		region = EXCLUDED.region,
		location = EXCLUDED.location,
		latitude = EXCLUDED.latitude,
		longitude = EXCLUDED.longitude,
		altitude = EXCLUDED.altitude,
		rock_type = EXCLUDED.rock_type,
		climbing_types = EXCLUDED.climbing_types,
		difficulty_range = EXCLUDED.difficulty_range,
		description = EXCLUDED.description,
		access_info = EXCLUDED.access_info,
		parking_info = EXCLUDED.parking_info,
		approach_time = EXCLUDED.approach_time,
		best_seasons = EXCLUDED.best_seasons,
		restrictions = EXCLUDED.restrictions,
		cover_image = EXCLUDED.cover_image,
		is_featured = EXCLUDED.is_featured,
		updated_at = now()`

func cragArgs(c *models.Crag) []any {
	return []any{
		c.StoreID(),
		c.Slug,
		c.Name,
		nullString(c.NameEn),
		nullString(c.Region),
		nullString(c.Location),
		nullFloat(c.Latitude),
		nullFloat(c.Longitude),
		nullInt(c.Altitude),
		nullString(c.RockType),
		jsonbValue(c.ClimbingTypes),
		nullString(c.DifficultyRange),
		nullString(c.Description),
		nullString(c.AccessInfo),
		nullString(c.ParkingInfo),
		nullInt(c.ApproachTime),
		jsonbValue(c.BestSeasons),
		nullString(c.Restrictions),
		nullString(c.CoverImage),
		c.Featured,
	}
}

func (r *cragRepository) Upsert(ctx context.Context, crag *models.Crag) error {
	if _, err := r.db.Exec(ctx, upsertCragSQL, cragArgs(crag)...); err != nil {
		return fmt.Errorf("failed to upsert crag %s: %w", crag.Slug, err)
	}
	return nil
}

// UpsertBatch sends all upserts as one batched round-trip.
func (r *cragRepository) UpsertBatch(ctx context.Context, crags []*models.Crag) error {
	if len(crags) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range crags {
		batch.Queue(upsertCragSQL, cragArgs(c)...)
	}

	br := r.db.SendBatch(ctx, batch)
	for _, c := range crags {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("failed to upsert crag %s: %w", c.Slug, err)
		}
	}
	return br.Close()
}

const selectCragSQL = `
	SELECT id, slug, name, COALESCE(name_en, ''), COALESCE(region, ''),
		COALESCE(location, ''), COALESCE(latitude, 0), COALESCE(longitude, 0),
		COALESCE(altitude, 0), COALESCE(rock_type, ''), climbing_types,
		COALESCE(difficulty_range, ''), COALESCE(description, ''),
		COALESCE(access_info, ''), COALESCE(parking_info, ''),
		COALESCE(approach_time, 0), best_seasons, COALESCE(restrictions, ''),
		COALESCE(cover_image, ''), is_featured, route_count, bolt_count
	FROM crags`

func scanCrag(row pgx.Row) (*models.Crag, error) {
	var c models.Crag
	var climbingTypes, bestSeasons []byte
	err := row.Scan(
		&c.ID, &c.Slug, &c.Name, &c.NameEn, &c.Region,
		&c.Location, &c.Latitude, &c.Longitude,
		&c.Altitude, &c.RockType, &climbingTypes,
		&c.DifficultyRange, &c.Description,
		&c.AccessInfo, &c.ParkingInfo,
		&c.ApproachTime, &bestSeasons, &c.Restrictions,
		&c.CoverImage, &c.Featured, &c.RoutesCount, &c.BoltCount,
	)
	if err != nil {
		return nil, err
	}
	c.ClimbingTypes = decodeList(climbingTypes)
	c.BestSeasons = decodeList(bestSeasons)
	return &c, nil
}

func (r *cragRepository) GetBySlug(ctx context.Context, slug string) (*models.Crag, error) {
	row := r.db.QueryRow(ctx, selectCragSQL+" WHERE slug = $1", slug)
	crag, err := scanCrag(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get crag %s: %w", slug, err)
	}
	return crag, nil
}

func (r *cragRepository) List(ctx context.Context) ([]*models.Crag, error) {
	rows, err := r.db.Query(ctx, selectCragSQL+" ORDER BY slug")
	if err != nil {
		return nil, fmt.Errorf("failed to list crags: %w", err)
	}
	defer rows.Close()

	var crags []*models.Crag
	for rows.Next() {
		crag, err := scanCrag(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan crag: %w", err)
		}
		crags = append(crags, crag)
	}
	return crags, rows.Err()
}

func (r *cragRepository) RecomputeRouteCount(ctx context.Context, cragSlug string) (int, error) {
	query := `
		UPDATE crags
		SET route_count = (SELECT COUNT(*) FROM routes WHERE crag_slug = $1),
		    bolt_count = (SELECT COALESCE(SUM(bolt_count), 0) FROM routes WHERE crag_slug = $1),
		    updated_at = now()
		WHERE slug = $1
		RETURNING route_count`

	var count int
	if err := r.db.QueryRow(ctx, query, cragSlug).Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrNotFound
		}
		return 0, fmt.Errorf("failed to recompute route count for %s: %w", cragSlug, err)
	}
	return count, nil
}
