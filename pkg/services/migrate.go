package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/nobodyclimb/crag-sync/pkg/apperrors"
	"github.com/nobodyclimb/crag-sync/pkg/jsonutil"
	"github.com/nobodyclimb/crag-sync/pkg/models"
	"github.com/nobodyclimb/crag-sync/pkg/repositories"
)

// MigrateService seeds an empty store from the legacy JSON snapshot. It is a
// one-shot bootstrap: it reuses the same upsert path as the sync engine but
// never consults the spreadsheet, moderation status, or the audit trail.
type MigrateService interface {
	Migrate(ctx context.Context, opts MigrateOptions) (*MigrateSummary, error)
}

// MigrateOptions controls one bootstrap run.
type MigrateOptions struct {
	Dir    string
	DryRun bool
}

// MigrateSummary reports what the bootstrap did (or, for a dry run, would do).
type MigrateSummary struct {
	DryRun bool
	Files  int
	Crags  int
	Areas  int
	Routes int
}

type migrateService struct {
	crags  repositories.CragRepository
	areas  repositories.AreaRepository
	routes repositories.RouteRepository
	logger *zap.Logger
}

// NewMigrateService creates a new MigrateService.
func NewMigrateService(
	crags repositories.CragRepository,
	areas repositories.AreaRepository,
	routes repositories.RouteRepository,
	logger *zap.Logger,
) MigrateService {
	return &migrateService{crags: crags, areas: areas, routes: routes, logger: logger}
}

var _ MigrateService = (*migrateService)(nil)

// Snapshot document shapes. One file per crag, carrying its areas and routes
// inline. Legacy data is assumed pre-validated, so mapping is direct; the
// flexible types absorb the export's loose scalar typing, and the fields it
// left inconsistent (grade system, route type) are normalized on the way in.
type snapshotFile struct {
	Crag   snapshotCrag    `json:"crag"`
	Areas  []snapshotArea  `json:"areas"`
	Routes []snapshotRoute `json:"routes"`
}

type snapshotCrag struct {
	ID              jsonutil.FlexibleString `json:"id"`
	Name            string                  `json:"name"`
	NameEn          string                  `json:"nameEn"`
	Slug            string                  `json:"slug"`
	Region          string                  `json:"region"`
	Location        string                  `json:"location"`
	Latitude        jsonutil.FlexibleFloat  `json:"latitude"`
	Longitude       jsonutil.FlexibleFloat  `json:"longitude"`
	Altitude        jsonutil.FlexibleInt    `json:"altitude"`
	RockType        string                  `json:"rockType"`
	ClimbingTypes   []string                `json:"climbingTypes"`
	DifficultyRange string                  `json:"difficultyRange"`
	Description     string                  `json:"description"`
	AccessInfo      string                  `json:"accessInfo"`
	ParkingInfo     string                  `json:"parkingInfo"`
	ApproachTime    jsonutil.FlexibleInt    `json:"approachTime"`
	BestSeasons     []string                `json:"bestSeasons"`
	Restrictions    string                  `json:"restrictions"`
	CoverImage      string                  `json:"coverImage"`
	Featured        bool                    `json:"isFeatured"`
}

type snapshotArea struct {
	ID            jsonutil.FlexibleString `json:"id"`
	Name          string                  `json:"name"`
	NameEn        string                  `json:"nameEn"`
	Description   string                  `json:"description"`
	DifficultyMin string                  `json:"difficultyMin"`
	DifficultyMax string                  `json:"difficultyMax"`
	BoltCount     jsonutil.FlexibleInt    `json:"boltCount"`
	Image         string                  `json:"image"`
}

type snapshotRoute struct {
	ID              jsonutil.FlexibleString `json:"id"`
	AreaID          jsonutil.FlexibleString `json:"areaId"`
	Sector          string                  `json:"sector"`
	Name            string                  `json:"name"`
	Grade           string                  `json:"grade"`
	GradeSystem     string                  `json:"gradeSystem"`
	RouteType       string                  `json:"routeType"`
	Length          jsonutil.FlexibleInt    `json:"length"`
	BoltCount       jsonutil.FlexibleInt    `json:"boltCount"`
	BoltType        string                  `json:"boltType"`
	AnchorType      string                  `json:"anchorType"`
	Description     string                  `json:"description"`
	FirstAscent     string                  `json:"firstAscent"`
	FirstAscentDate string                  `json:"firstAscentDate"`
	Protection      string                  `json:"protection"`
	Tips            string                  `json:"tips"`
}

func (m *migrateService) Migrate(ctx context.Context, opts MigrateOptions) (*MigrateSummary, error) {
	paths, err := filepath.Glob(filepath.Join(opts.Dir, "*.json"))
	if err != nil {
		return nil, apperrors.Fatal("scan snapshot dir", err)
	}
	if len(paths) == 0 {
		return nil, apperrors.Fatal("scan snapshot dir",
			fmt.Errorf("no snapshot files found in %s", opts.Dir))
	}
	sort.Strings(paths)

	summary := &MigrateSummary{DryRun: opts.DryRun, Files: len(paths)}

	for _, path := range paths {
		snap, err := readSnapshot(path)
		if err != nil {
			return nil, apperrors.Fatal("read snapshot", err)
		}

		crag, areas, routes := snap.toModels()
		summary.Crags++
		summary.Areas += len(areas)
		summary.Routes += len(routes)

		if opts.DryRun {
			m.logger.Info("Would migrate crag",
				zap.String("file", filepath.Base(path)),
				zap.String("slug", crag.Slug),
				zap.Int("areas", len(areas)),
				zap.Int("routes", len(routes)))
			continue
		}

		if err := m.crags.Upsert(ctx, crag); err != nil {
			return nil, apperrors.Fatal("migrate crag", fmt.Errorf("%s: %w", crag.Slug, err))
		}
		if err := m.areas.UpsertBatch(ctx, areas); err != nil {
			return nil, apperrors.Fatal("migrate areas", fmt.Errorf("%s: %w", crag.Slug, err))
		}
		if err := m.routes.UpsertBatch(ctx, routes); err != nil {
			return nil, apperrors.Fatal("migrate routes", fmt.Errorf("%s: %w", crag.Slug, err))
		}
		count, err := m.crags.RecomputeRouteCount(ctx, crag.Slug)
		if err != nil {
			return nil, apperrors.Fatal("recompute route count", fmt.Errorf("%s: %w", crag.Slug, err))
		}

		m.logger.Info("Migrated crag",
			zap.String("slug", crag.Slug),
			zap.Int("areas", len(areas)),
			zap.Int("routes", count))
	}

	return summary, nil
}

func readSnapshot(path string) (*snapshotFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if snap.Crag.Slug == "" {
		return nil, fmt.Errorf("%s: snapshot crag has no slug", path)
	}
	return &snap, nil
}

func (f *snapshotFile) toModels() (*models.Crag, []*models.Area, []*models.Route) {
	crag := &models.Crag{
		ID:              string(f.Crag.ID),
		Name:            f.Crag.Name,
		NameEn:          f.Crag.NameEn,
		Slug:            f.Crag.Slug,
		Region:          f.Crag.Region,
		Location:        f.Crag.Location,
		Latitude:        float64(f.Crag.Latitude),
		Longitude:       float64(f.Crag.Longitude),
		Altitude:        int(f.Crag.Altitude),
		RockType:        f.Crag.RockType,
		ClimbingTypes:   f.Crag.ClimbingTypes,
		DifficultyRange: f.Crag.DifficultyRange,
		Description:     f.Crag.Description,
		AccessInfo:      f.Crag.AccessInfo,
		ParkingInfo:     f.Crag.ParkingInfo,
		ApproachTime:    int(f.Crag.ApproachTime),
		BestSeasons:     f.Crag.BestSeasons,
		Restrictions:    f.Crag.Restrictions,
		CoverImage:      f.Crag.CoverImage,
		Featured:        f.Crag.Featured,
		Status:          models.StatusApproved,
	}

	areas := make([]*models.Area, 0, len(f.Areas))
	for _, a := range f.Areas {
		areas = append(areas, &models.Area{
			ID:            string(a.ID),
			CragSlug:      crag.Slug,
			CragID:        crag.StoreID(),
			Name:          a.Name,
			NameEn:        a.NameEn,
			Description:   a.Description,
			DifficultyMin: a.DifficultyMin,
			DifficultyMax: a.DifficultyMax,
			BoltCount:     int(a.BoltCount),
			Image:         a.Image,
			Status:        models.StatusApproved,
		})
	}

	routes := make([]*models.Route, 0, len(f.Routes))
	for _, r := range f.Routes {
		gradeSystem := r.GradeSystem
		if gradeSystem == "" {
			gradeSystem = InferGradeSystem(r.Grade)
		}
		routes = append(routes, &models.Route{
			ID:              string(r.ID),
			CragSlug:        crag.Slug,
			CragID:          crag.StoreID(),
			AreaID:          string(r.AreaID),
			Sector:          r.Sector,
			Name:            r.Name,
			Grade:           r.Grade,
			GradeSystem:     gradeSystem,
			RouteType:       NormalizeRouteType(r.RouteType),
			Length:          int(r.Length),
			BoltCount:       int(r.BoltCount),
			BoltType:        r.BoltType,
			AnchorType:      r.AnchorType,
			Description:     r.Description,
			FirstAscent:     r.FirstAscent,
			FirstAscentDate: r.FirstAscentDate,
			Protection:      r.Protection,
			Tips:            r.Tips,
			Status:          models.StatusApproved,
		})
	}

	return crag, areas, routes
}

var (
	vScalePattern = regexp.MustCompile(`^[Vv](B|\d)`)
	frenchPattern = regexp.MustCompile(`^[3-9][abc][+]?$`)
)

// InferGradeSystem guesses the grade system for legacy routes that predate
// the gradeSystem column. V-grades are bouldering, French grades follow the
// number-letter pattern, and everything else in the old export was YDS.
func InferGradeSystem(grade string) string {
	grade = strings.TrimSpace(grade)
	switch {
	case vScalePattern.MatchString(grade):
		return "v-scale"
	case frenchPattern.MatchString(strings.ToLower(grade)):
		return "french"
	default:
		return "yds"
	}
}

// NormalizeRouteType folds the spellings the legacy export used into the
// canonical climbing type enum.
func NormalizeRouteType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "sport", "sports":
		return "sport"
	case "trad", "traditional":
		return "trad"
	case "boulder", "bouldering":
		return "boulder"
	case "mixed":
		return "mixed"
	default:
		return "sport"
	}
}
