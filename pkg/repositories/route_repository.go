package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nobodyclimb/crag-sync/pkg/database"
	"github.com/nobodyclimb/crag-sync/pkg/models"
)

// RouteRepository provides idempotent store access for routes, keyed on the
// (cragSlug, id) composite natural key.
type RouteRepository interface {
	Upsert(ctx context.Context, route *models.Route) error
	UpsertBatch(ctx context.Context, routes []*models.Route) error
	List(ctx context.Context) ([]*models.Route, error)
}

type routeRepository struct {
	db *database.DB
}

// NewRouteRepository creates a new RouteRepository.
func NewRouteRepository(db *database.DB) RouteRepository {
	return &routeRepository{db: db}
}

var _ RouteRepository = (*routeRepository)(nil)

const upsertRouteSQL = `
	INSERT INTO routes (
		id, crag_id, crag_slug, area_id, sector, name, grade,
		grade_system, route_type, length, bolt_count, bolt_type,
		anchor_type, description, first_ascent, first_ascent_date,
		protection, tips, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, now(), now())
	ON CONFLICT (crag_slug, id) DO UPDATE SET
		crag_id = EXCLUDED.crag_id,
		area_id = EXCLUDED.area_id,
		sector = EXCLUDED.sector,
		name = EXCLUDED.name,
		grade = EXCLUDED.grade,
		grade_system = EXCLUDED.grade_system,
		route_type = EXCLUDED.route_type,
		length = EXCLUDED.length,
		bolt_count = EXCLUDED.bolt_count,
		bolt_type = EXCLUDED.bolt_type,
		anchor_type = EXCLUDED.anchor_type,
		description = EXCLUDED.description,
		first_ascent = EXCLUDED.first_ascent,
		first_ascent_date = EXCLUDED.first_ascent_date,
		protection = EXCLUDED.protection,
		tips = EXCLUDED.tips,
		updated_at = now()`

func routeArgs(r *models.Route) []any {
	return []any{
		r.ID,
		r.CragID,
		r.CragSlug,
		nullString(r.AreaID),
		nullString(r.Sector),
		r.Name,
		nullString(r.Grade),
		r.GradeSystem,
		r.RouteType,
		nullInt(r.Length),
		nullInt(r.BoltCount),
		nullString(r.BoltType),
		nullString(r.AnchorType),
		nullString(r.Description),
		nullString(r.FirstAscent),
		nullString(r.FirstAscentDate),
		nullString(r.Protection),
		nullString(r.Tips),
	}
}

func (r *routeRepository) Upsert(ctx context.Context, route *models.Route) error {
	if _, err := r.db.Exec(ctx, upsertRouteSQL, routeArgs(route)...); err != nil {
		return fmt.Errorf("failed to upsert route %s: %w", route.Key(), err)
	}
	return nil
}

func (r *routeRepository) UpsertBatch(ctx context.Context, routes []*models.Route) error {
	if len(routes) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rt := range routes {
		batch.Queue(upsertRouteSQL, routeArgs(rt)...)
	}

	br := r.db.SendBatch(ctx, batch)
	for _, rt := range routes {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("failed to upsert route %s: %w", rt.Key(), err)
		}
	}
	return br.Close()
}

func (r *routeRepository) List(ctx context.Context) ([]*models.Route, error) {
	query := `
		SELECT id, crag_id, crag_slug, COALESCE(area_id, ''),
			COALESCE(sector, ''), name, COALESCE(grade, ''), grade_system,
			route_type, COALESCE(length, 0), COALESCE(bolt_count, 0),
			COALESCE(bolt_type, ''), COALESCE(anchor_type, ''),
			COALESCE(description, ''), COALESCE(first_ascent, ''),
			COALESCE(first_ascent_date, ''), COALESCE(protection, ''),
			COALESCE(tips, '')
		FROM routes
		ORDER BY crag_slug, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	defer rows.Close()

	var routes []*models.Route
	for rows.Next() {
		var rt models.Route
		err := rows.Scan(
			&rt.ID, &rt.CragID, &rt.CragSlug, &rt.AreaID,
			&rt.Sector, &rt.Name, &rt.Grade, &rt.GradeSystem,
			&rt.RouteType, &rt.Length, &rt.BoltCount,
			&rt.BoltType, &rt.AnchorType,
			&rt.Description, &rt.FirstAscent,
			&rt.FirstAscentDate, &rt.Protection,
			&rt.Tips,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan route: %w", err)
		}
		routes = append(routes, &rt)
	}
	return routes, rows.Err()
}
