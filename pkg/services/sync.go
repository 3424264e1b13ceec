// Package services holds the reconciliation engine and the bootstrap
// migrator. The engine is the sole caller of the store repositories and the
// audit writer; everything it needs arrives through constructors, so tests
// run it against in-memory fakes.
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nobodyclimb/crag-sync/pkg/apperrors"
	"github.com/nobodyclimb/crag-sync/pkg/audit"
	"github.com/nobodyclimb/crag-sync/pkg/models"
	"github.com/nobodyclimb/crag-sync/pkg/repositories"
	"github.com/nobodyclimb/crag-sync/pkg/retry"
	"github.com/nobodyclimb/crag-sync/pkg/schema"
	"github.com/nobodyclimb/crag-sync/pkg/sheets"
	"github.com/nobodyclimb/crag-sync/pkg/validate"
)

// SyncService reconciles the spreadsheet into the relational store.
type SyncService interface {
	// Sync runs one reconciliation pass. Row and structural errors are
	// collected into the summary and never abort the run; connectivity and
	// exhausted-retry failures return a fatal error with no summary.
	Sync(ctx context.Context, opts Options) (*Summary, error)

	// Validate produces a read-only validation report. No store or audit
	// writes occur.
	Validate(ctx context.Context) (*Report, error)
}

type syncService struct {
	client   sheets.Client
	crags    repositories.CragRepository
	areas    repositories.AreaRepository
	routes   repositories.RouteRepository
	recorder audit.Recorder
	retryCfg *retry.Config
	logger   *zap.Logger
}

// NewSyncService creates a new SyncService.
func NewSyncService(
	client sheets.Client,
	crags repositories.CragRepository,
	areas repositories.AreaRepository,
	routes repositories.RouteRepository,
	recorder audit.Recorder,
	retryCfg *retry.Config,
	logger *zap.Logger,
) SyncService {
	return &syncService{
		client:   client,
		crags:    crags,
		areas:    areas,
		routes:   routes,
		recorder: recorder,
		retryCfg: retryCfg,
		logger:   logger,
	}
}

var _ SyncService = (*syncService)(nil)

func (s *syncService) Sync(ctx context.Context, opts Options) (*Summary, error) {
	opts = opts.normalized()
	started := time.Now()
	runID := "run-" + uuid.NewString()[:8]
	log := s.logger.With(zap.String("run_id", runID), zap.Bool("dry_run", opts.DryRun), zap.String("scope", string(opts.Scope)))
	log.Info("Starting sync")

	src, err := s.fetchSheets(ctx)
	if err != nil {
		return nil, apperrors.Fatal("fetch sheets", err)
	}

	batch := parseAll(src)

	store, err := s.loadStore(ctx)
	if err != nil {
		return nil, apperrors.Fatal("load store state", err)
	}

	plan := buildPlan(batch, store, opts.Scope)

	summary := &Summary{
		RunID:   runID,
		DryRun:  opts.DryRun,
		Scope:   opts.Scope,
		Started: started,
		Errors:  plan.errors,
	}
	for _, c := range plan.crags {
		summary.Crags.add(c.op)
	}
	for _, a := range plan.areas {
		summary.Areas.add(a.op)
	}
	for _, r := range plan.routes {
		summary.Routes.add(r.op)
	}
	for _, e := range plan.errors {
		switch e.Sheet {
		case schema.Crags.Sheet:
			summary.Crags.Errors++
		case schema.Areas.Sheet:
			summary.Areas.Errors++
		case schema.Routes.Sheet:
			summary.Routes.Errors++
		}
	}

	if opts.DryRun {
		summary.Duration = time.Since(started)
		log.Info("Dry run complete, no writes performed",
			zap.Int("crag_creates", summary.Crags.Created),
			zap.Int("area_creates", summary.Areas.Created),
			zap.Int("route_creates", summary.Routes.Created),
			zap.Int("errors", len(summary.Errors)))
		return summary, nil
	}

	if err := s.execute(ctx, runID, plan, summary, log); err != nil {
		return nil, err
	}

	summary.Duration = time.Since(started)
	log.Info("Sync complete",
		zap.Duration("duration", summary.Duration),
		zap.Int("errors", len(summary.Errors)))
	return summary, nil
}

func (s *syncService) Validate(ctx context.Context) (*Report, error) {
	src, err := s.fetchSheets(ctx)
	if err != nil {
		return nil, apperrors.Fatal("fetch sheets", err)
	}

	batch := parseAll(src)

	// Referential checks need only the batch, not the store.
	plan := buildPlan(batch, emptyStoreState(), ScopeAll)

	return &Report{
		Sheets: []SheetReport{batch.cragStats, batch.areaStats, batch.routeStats},
		Errors: plan.errors,
	}, nil
}

// fetchSheets reads the three entity ranges concurrently. Any failure is
// fatal for the run.
func (s *syncService) fetchSheets(ctx context.Context) (*sourceRows, error) {
	var src sourceRows
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.client.FetchRange(ctx, schema.Crags.Range)
		src.crags = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.client.FetchRange(ctx, schema.Areas.Range)
		src.areas = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.client.FetchRange(ctx, schema.Routes.Range)
		src.routes = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &src, nil
}

type sourceRows struct {
	crags  [][]string
	areas  [][]string
	routes [][]string
}

type cragRow struct {
	row  int
	crag *models.Crag
}

type areaRow struct {
	row  int
	area *models.Area
}

type routeRow struct {
	row   int
	route *models.Route
}

// parsedBatch is the row-validated snapshot of all three sheets, before
// status gating and referential checks.
type parsedBatch struct {
	crags  []cragRow
	areas  []areaRow
	routes []routeRow
	errors []validate.RowError

	cragStats  SheetReport
	areaStats  SheetReport
	routeStats SheetReport
}

func parseAll(src *sourceRows) *parsedBatch {
	b := &parsedBatch{
		cragStats:  SheetReport{Sheet: schema.Crags.Sheet},
		areaStats:  SheetReport{Sheet: schema.Areas.Sheet},
		routeStats: SheetReport{Sheet: schema.Routes.Sheet},
	}

	for i, cells := range src.crags {
		rowNum := i + schema.FirstDataRow
		b.cragStats.Rows++
		if validate.IsBlankRow(cells) {
			b.cragStats.Blank++
			continue
		}
		crag, errs := validate.ParseCrag(rowNum, cells)
		if len(errs) > 0 {
			b.errors = append(b.errors, errs...)
			continue
		}
		b.cragStats.Valid++
		countStatus(&b.cragStats, crag.Status)
		b.crags = append(b.crags, cragRow{row: rowNum, crag: crag})
	}

	for i, cells := range src.areas {
		rowNum := i + schema.FirstDataRow
		b.areaStats.Rows++
		if validate.IsBlankRow(cells) {
			b.areaStats.Blank++
			continue
		}
		area, errs := validate.ParseArea(rowNum, cells)
		if len(errs) > 0 {
			b.errors = append(b.errors, errs...)
			continue
		}
		b.areaStats.Valid++
		countStatus(&b.areaStats, area.Status)
		b.areas = append(b.areas, areaRow{row: rowNum, area: area})
	}

	for i, cells := range src.routes {
		rowNum := i + schema.FirstDataRow
		b.routeStats.Rows++
		if validate.IsBlankRow(cells) {
			b.routeStats.Blank++
			continue
		}
		route, errs := validate.ParseRoute(rowNum, cells)
		if len(errs) > 0 {
			b.errors = append(b.errors, errs...)
			continue
		}
		b.routeStats.Valid++
		countStatus(&b.routeStats, route.Status)
		b.routes = append(b.routes, routeRow{row: rowNum, route: route})
	}

	return b
}

func countStatus(r *SheetReport, st models.Status) {
	switch st {
	case models.StatusApproved:
		r.Approved++
	case models.StatusPending:
		r.Pending++
	}
}

// storeState is the current store contents, loaded once per run and read-only
// thereafter.
type storeState struct {
	crags  map[string]*models.Crag  // by slug
	areas  map[string]*models.Area  // by cragSlug/id
	routes map[string]*models.Route // by cragSlug/id
}

func emptyStoreState() *storeState {
	return &storeState{
		crags:  map[string]*models.Crag{},
		areas:  map[string]*models.Area{},
		routes: map[string]*models.Route{},
	}
}

func (s *syncService) loadStore(ctx context.Context) (*storeState, error) {
	st := emptyStoreState()

	crags, err := s.crags.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list crags: %w", err)
	}
	for _, c := range crags {
		st.crags[c.Slug] = c
	}

	areas, err := s.areas.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list areas: %w", err)
	}
	for _, a := range areas {
		st.areas[a.Key()] = a
	}

	routes, err := s.routes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	for _, r := range routes {
		st.routes[r.Key()] = r
	}

	return st, nil
}

// changePlan is the full set of decisions for one run, in source row order
// within each type. rejected holds rows excluded by moderation status, kept
// for the audit trail only.
type changePlan struct {
	crags    []cragChange
	areas    []areaChange
	routes   []routeChange
	errors   []validate.RowError
	rejected []audit.Entry
}

// buildPlan gates by status, detects batch-scoped duplicate keys, resolves
// cross-entity references against the approved crag index, and classifies
// every surviving entity as create, update, or skip against store state.
// Crags are always planned before areas before routes; scope only controls
// which plans are kept.
func buildPlan(b *parsedBatch, store *storeState, scope Scope) *changePlan {
	p := &changePlan{errors: b.errors}

	// Approved crag index, the referential anchor for everything below.
	cragIndex := make(map[string]*models.Crag)
	for _, cr := range b.crags {
		c := cr.crag
		if !c.Status.SyncEligible() {
			if c.Status == models.StatusRejected {
				p.rejected = append(p.rejected, rejectedEntry("crag", c.Slug, c.Name))
			}
			continue
		}
		if _, dup := cragIndex[c.Slug]; dup {
			p.errors = append(p.errors, structuralError(schema.Crags.Sheet, cr.row, "slug", c.Slug,
				"Duplicate crag slug in batch"))
			continue
		}
		cragIndex[c.Slug] = c

		if scope.includesCrags() {
			p.crags = append(p.crags, cragChange{op: classifyCrag(c, store), row: cr.row, crag: c})
		}
	}

	// Areas inherit approval from their parent crag; their own status is
	// recorded but never gates.
	areaKeys := make(map[string]bool, len(store.areas))
	for k := range store.areas {
		areaKeys[k] = true
	}
	seenAreas := make(map[string]bool)
	for _, ar := range b.areas {
		a := ar.area
		key := a.Key()
		if seenAreas[key] {
			p.errors = append(p.errors, structuralError(schema.Areas.Sheet, ar.row, "id", a.ID,
				"Duplicate area key in batch"))
			continue
		}
		seenAreas[key] = true

		crag, ok := cragIndex[a.CragSlug]
		if !ok {
			p.errors = append(p.errors, structuralError(schema.Areas.Sheet, ar.row, "cragSlug", a.CragSlug,
				"References a crag that is not approved in this batch"))
			continue
		}
		a.CragID = crag.StoreID()
		areaKeys[key] = true

		if scope.includesAreas() {
			p.areas = append(p.areas, areaChange{op: classifyArea(a, store), row: ar.row, area: a})
		}
	}

	if !scope.includesRoutes() {
		return p
	}

	seenRoutes := make(map[string]bool)
	for _, rr := range b.routes {
		r := rr.route
		if !r.Status.SyncEligible() {
			if r.Status == models.StatusRejected {
				p.rejected = append(p.rejected, rejectedEntry("route", r.Key(), r.Name))
			}
			continue
		}

		crag, ok := cragIndex[r.CragSlug]
		if !ok {
			p.errors = append(p.errors, structuralError(schema.Routes.Sheet, rr.row, "cragSlug", r.CragSlug,
				"References a crag that is not approved in this batch"))
			continue
		}
		if scope == ScopeRoutesOnly {
			if _, inStore := store.crags[r.CragSlug]; !inStore {
				p.errors = append(p.errors, structuralError(schema.Routes.Sheet, rr.row, "cragSlug", r.CragSlug,
					"Crag is not in the store yet; run a full sync first"))
				continue
			}
		}
		r.CragID = crag.StoreID()

		if r.AreaID != "" && !areaKeys[r.CragSlug+"/"+r.AreaID] {
			p.errors = append(p.errors, structuralError(schema.Routes.Sheet, rr.row, "areaId", r.AreaID,
				"References an area that does not belong to this crag"))
			continue
		}

		ch := routeChange{row: rr.row, route: r}
		if r.ID == "" {
			// Generated at sync time and stamped back into the sheet, so
			// the next run sees a stable natural key and skips.
			r.ID = "r-" + uuid.NewString()[:8]
			ch.ackRef = schema.Routes.CellRef(rr.row, "id")
			ch.op = opCreate
		} else {
			if seenRoutes[r.Key()] {
				p.errors = append(p.errors, structuralError(schema.Routes.Sheet, rr.row, "id", r.ID,
					"Duplicate route key in batch"))
				continue
			}
			ch.op = classifyRoute(r, store)
		}
		seenRoutes[r.Key()] = true
		p.routes = append(p.routes, ch)
	}

	return p
}

func classifyCrag(c *models.Crag, store *storeState) changeOp {
	stored, ok := store.crags[c.Slug]
	if !ok {
		return opCreate
	}
	if c.ContentEquals(stored) {
		return opSkip
	}
	return opUpdate
}

func classifyArea(a *models.Area, store *storeState) changeOp {
	stored, ok := store.areas[a.Key()]
	if !ok {
		return opCreate
	}
	if a.ContentEquals(stored) {
		return opSkip
	}
	return opUpdate
}

func classifyRoute(r *models.Route, store *storeState) changeOp {
	stored, ok := store.routes[r.Key()]
	if !ok {
		return opCreate
	}
	if r.ContentEquals(stored) {
		return opSkip
	}
	return opUpdate
}

// execute applies the plan: batched writes per type in dependency order,
// aggregate recomputation, then audit. Audit entries for a batch are flushed
// only after its store writes succeeded, so an aborted batch leaves no audit
// claims behind it.
func (s *syncService) execute(ctx context.Context, runID string, plan *changePlan, summary *Summary, log *zap.Logger) error {
	if len(plan.crags) > 0 {
		writes := make([]*models.Crag, 0, len(plan.crags))
		for _, ch := range plan.crags {
			if ch.op != opSkip {
				writes = append(writes, ch.crag)
			}
		}
		if err := s.writeBatch(ctx, "crags", len(writes), func() error {
			return s.crags.UpsertBatch(ctx, writes)
		}); err != nil {
			return err
		}

		entries := make([]audit.Entry, 0, len(plan.crags))
		for _, ch := range plan.crags {
			entries = append(entries, changeEntry(runID, "crag", ch.crag.Slug, ch.crag.Name, ch.op))
		}
		if err := s.record(ctx, entries); err != nil {
			return err
		}
	}

	if len(plan.areas) > 0 {
		writes := make([]*models.Area, 0, len(plan.areas))
		for _, ch := range plan.areas {
			if ch.op != opSkip {
				writes = append(writes, ch.area)
			}
		}
		if err := s.writeBatch(ctx, "areas", len(writes), func() error {
			return s.areas.UpsertBatch(ctx, writes)
		}); err != nil {
			return err
		}

		entries := make([]audit.Entry, 0, len(plan.areas))
		for _, ch := range plan.areas {
			entries = append(entries, changeEntry(runID, "area", ch.area.Key(), ch.area.Name, ch.op))
		}
		if err := s.record(ctx, entries); err != nil {
			return err
		}
	}

	if len(plan.routes) > 0 {
		writes := make([]*models.Route, 0, len(plan.routes))
		var acks []audit.Ack
		for _, ch := range plan.routes {
			if ch.op != opSkip {
				writes = append(writes, ch.route)
			}
			if ch.ackRef != "" {
				acks = append(acks, audit.Ack{CellRef: ch.ackRef, Value: ch.route.ID})
			}
		}
		if err := s.writeBatch(ctx, "routes", len(writes), func() error {
			return s.routes.UpsertBatch(ctx, writes)
		}); err != nil {
			return err
		}

		// Acknowledgements go out only for rows whose writes succeeded;
		// the batch either fully commits or aborts above.
		if len(acks) > 0 {
			if err := s.recorder.AcknowledgeSync(ctx, acks); err != nil {
				return apperrors.Fatal("acknowledge sync", err)
			}
		}

		entries := make([]audit.Entry, 0, len(plan.routes))
		for _, ch := range plan.routes {
			entries = append(entries, changeEntry(runID, "route", ch.route.Key(), ch.route.Name, ch.op))
		}
		if err := s.record(ctx, entries); err != nil {
			return err
		}
	}

	// Aggregates depend on the routes table, so they come after route sync.
	for _, slug := range recomputeSlugs(plan) {
		count, err := s.crags.RecomputeRouteCount(ctx, slug)
		if err != nil {
			return apperrors.Fatal("recompute route count", fmt.Errorf("crag %s: %w", slug, err))
		}
		log.Debug("Recomputed route count", zap.String("crag", slug), zap.Int("routes", count))
	}

	var trailing []audit.Entry
	trailing = append(trailing, plan.rejected...)
	for _, e := range plan.errors {
		trailing = append(trailing, errorEntry(runID, e))
	}
	trailing = append(trailing, summaryEntry(runID, summary))
	return s.record(ctx, stampRun(runID, trailing))
}

// writeBatch sends one per-type batch with bounded backoff. Permanent errors
// (auth failures, bad SQL) abort on the first attempt; exhausted retries on
// transient errors escalate to a fatal abort.
func (s *syncService) writeBatch(ctx context.Context, entity string, count int, fn func() error) error {
	if count == 0 {
		return nil
	}
	s.logger.Debug("Writing batch", zap.String("entity", entity), zap.Int("count", count))
	if err := retry.DoIfRetryable(ctx, s.retryCfg, fn); err != nil {
		return apperrors.Fatal("upsert "+entity, err)
	}
	return nil
}

func (s *syncService) record(ctx context.Context, entries []audit.Entry) error {
	if err := s.recorder.Record(ctx, entries); err != nil {
		return apperrors.Fatal("write audit trail", err)
	}
	return nil
}

func changeEntry(runID, entityType, id, name string, op changeOp) audit.Entry {
	var action audit.Action
	switch op {
	case opCreate:
		action = audit.ActionCreated
	case opUpdate:
		action = audit.ActionUpdated
	default:
		action = audit.ActionSkipped
	}
	return audit.Entry{
		Action:     action,
		EntityType: entityType,
		EntityID:   id,
		EntityName: name,
		Operator:   runID,
	}
}

func rejectedEntry(entityType, id, name string) audit.Entry {
	return audit.Entry{
		Action:     audit.ActionRejected,
		EntityType: entityType,
		EntityID:   id,
		EntityName: name,
		Notes:      "excluded from sync by moderation status",
	}
}

func errorEntry(runID string, e validate.RowError) audit.Entry {
	entityType := strings.ToLower(strings.TrimSuffix(e.Sheet, "s"))
	return audit.Entry{
		Action:     audit.ActionError,
		EntityType: entityType,
		EntityID:   fmt.Sprintf("%s!%d", e.Sheet, e.Row),
		Operator:   runID,
		Notes:      e.Error(),
	}
}

func summaryEntry(runID string, s *Summary) audit.Entry {
	return audit.Entry{
		Action:     audit.ActionSync,
		EntityType: "batch",
		EntityID:   runID,
		Operator:   runID,
		Changes: map[string]any{
			"crags":  s.Crags,
			"areas":  s.Areas,
			"routes": s.Routes,
			"errors": len(s.Errors),
		},
	}
}

func stampRun(runID string, entries []audit.Entry) []audit.Entry {
	for i := range entries {
		if entries[i].Operator == "" {
			entries[i].Operator = runID
		}
	}
	return entries
}

// recomputeSlugs is the set of crags whose aggregates may have moved: every
// planned crag plus every crag that owns a planned route. Sorted for a
// deterministic write order.
func recomputeSlugs(plan *changePlan) []string {
	set := make(map[string]bool)
	for _, ch := range plan.crags {
		set[ch.crag.Slug] = true
	}
	for _, ch := range plan.routes {
		set[ch.route.CragSlug] = true
	}
	slugs := make([]string, 0, len(set))
	for slug := range set {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

func structuralError(sheet string, row int, field, value, message string) validate.RowError {
	return validate.RowError{
		Sheet:      sheet,
		Row:        row,
		Field:      field,
		Value:      value,
		Message:    message,
		Structural: true,
	}
}
