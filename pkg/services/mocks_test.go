package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/nobodyclimb/crag-sync/pkg/apperrors"
	"github.com/nobodyclimb/crag-sync/pkg/audit"
	"github.com/nobodyclimb/crag-sync/pkg/models"
	"github.com/nobodyclimb/crag-sync/pkg/retry"
	"github.com/nobodyclimb/crag-sync/pkg/schema"
)

// fakeSheets serves ranges from memory and applies cell updates back to its
// data, so a second run observes acknowledgement write-backs the way a real
// spreadsheet would.
type fakeSheets struct {
	data     map[string][][]string // keyed by range string
	fetchErr error
}

func newFakeSheets() *fakeSheets {
	return &fakeSheets{data: map[string][][]string{}}
}

func (f *fakeSheets) FetchRange(_ context.Context, readRange string) ([][]string, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.data[readRange], nil
}

func (f *fakeSheets) UpdateCell(_ context.Context, cellRef, value string) error {
	for _, t := range []schema.Table{schema.Crags, schema.Areas, schema.Routes} {
		prefix := t.Sheet + "!"
		if len(cellRef) <= len(prefix) || cellRef[:len(prefix)] != prefix {
			continue
		}
		ref := cellRef[len(prefix):]
		col := int(ref[0] - 'A')
		rowNum, err := strconv.Atoi(ref[1:])
		if err != nil {
			return fmt.Errorf("bad cell ref %s", cellRef)
		}
		rows := f.data[t.Range]
		i := rowNum - schema.FirstDataRow
		if i < 0 || i >= len(rows) || col >= len(rows[i]) {
			return fmt.Errorf("cell ref %s out of range", cellRef)
		}
		rows[i][col] = value
		return nil
	}
	return fmt.Errorf("unknown sheet in %s", cellRef)
}

func (f *fakeSheets) Append(_ context.Context, rangeRef string, rows [][]string) error {
	f.data[rangeRef] = append(f.data[rangeRef], rows...)
	return nil
}

// fakeRecorder captures audit entries and applies acknowledgements through
// the fake sheet when one is attached.
type fakeRecorder struct {
	entries   []audit.Entry
	acks      []audit.Ack
	sheets    *fakeSheets
	recordErr error
}

func (f *fakeRecorder) Record(_ context.Context, entries []audit.Entry) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.entries = append(f.entries, entries...)
	return nil
}

func (f *fakeRecorder) AcknowledgeSync(ctx context.Context, acks []audit.Ack) error {
	f.acks = append(f.acks, acks...)
	if f.sheets != nil {
		for _, a := range acks {
			if err := f.sheets.UpdateCell(ctx, a.CellRef, a.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

type fakeCragRepo struct {
	crags      map[string]*models.Crag
	routes     *fakeRouteRepo
	batchCalls int
	failTimes  int
	batchErr   error
	recomputed []string
}

func newFakeCragRepo(routes *fakeRouteRepo) *fakeCragRepo {
	return &fakeCragRepo{crags: map[string]*models.Crag{}, routes: routes}
}

func (f *fakeCragRepo) Upsert(_ context.Context, crag *models.Crag) error {
	f.crags[crag.Slug] = crag
	return nil
}

func (f *fakeCragRepo) UpsertBatch(ctx context.Context, crags []*models.Crag) error {
	f.batchCalls++
	if f.batchErr != nil {
		return f.batchErr
	}
	if f.failTimes > 0 {
		f.failTimes--
		return fmt.Errorf("connection reset by peer")
	}
	for _, c := range crags {
		f.crags[c.Slug] = c
	}
	return nil
}

func (f *fakeCragRepo) GetBySlug(_ context.Context, slug string) (*models.Crag, error) {
	c, ok := f.crags[slug]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return c, nil
}

func (f *fakeCragRepo) List(_ context.Context) ([]*models.Crag, error) {
	out := make([]*models.Crag, 0, len(f.crags))
	for _, c := range f.crags {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCragRepo) RecomputeRouteCount(_ context.Context, cragSlug string) (int, error) {
	f.recomputed = append(f.recomputed, cragSlug)
	count := 0
	for _, r := range f.routes.routes {
		if r.CragSlug == cragSlug {
			count++
		}
	}
	if c, ok := f.crags[cragSlug]; ok {
		c.RoutesCount = count
	}
	return count, nil
}

type fakeAreaRepo struct {
	areas      map[string]*models.Area
	batchCalls int
}

func newFakeAreaRepo() *fakeAreaRepo {
	return &fakeAreaRepo{areas: map[string]*models.Area{}}
}

func (f *fakeAreaRepo) Upsert(_ context.Context, area *models.Area) error {
	f.areas[area.Key()] = area
	return nil
}

func (f *fakeAreaRepo) UpsertBatch(_ context.Context, areas []*models.Area) error {
	f.batchCalls++
	for _, a := range areas {
		f.areas[a.Key()] = a
	}
	return nil
}

func (f *fakeAreaRepo) List(_ context.Context) ([]*models.Area, error) {
	out := make([]*models.Area, 0, len(f.areas))
	for _, a := range f.areas {
		out = append(out, a)
	}
	return out, nil
}

type fakeRouteRepo struct {
	routes     map[string]*models.Route
	batchCalls int
	failTimes  int
}

func newFakeRouteRepo() *fakeRouteRepo {
	return &fakeRouteRepo{routes: map[string]*models.Route{}}
}

func (f *fakeRouteRepo) Upsert(_ context.Context, route *models.Route) error {
	f.routes[route.Key()] = route
	return nil
}

func (f *fakeRouteRepo) UpsertBatch(_ context.Context, routes []*models.Route) error {
	f.batchCalls++
	if f.failTimes > 0 {
		f.failTimes--
		return fmt.Errorf("connection reset by peer")
	}
	for _, r := range routes {
		f.routes[r.Key()] = r
	}
	return nil
}

func (f *fakeRouteRepo) List(_ context.Context) ([]*models.Route, error) {
	out := make([]*models.Route, 0, len(f.routes))
	for _, r := range f.routes {
		out = append(out, r)
	}
	return out, nil
}

// testEnv wires a SyncService to fakes and exposes them for assertions.
type testEnv struct {
	svc      SyncService
	sheets   *fakeSheets
	recorder *fakeRecorder
	crags    *fakeCragRepo
	areas    *fakeAreaRepo
	routes   *fakeRouteRepo
}

func newTestEnv() *testEnv {
	sh := newFakeSheets()
	routes := newFakeRouteRepo()
	crags := newFakeCragRepo(routes)
	areas := newFakeAreaRepo()
	rec := &fakeRecorder{sheets: sh}
	cfg := &retry.Config{
		MaxRetries:   1,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1,
	}
	return &testEnv{
		svc:      NewSyncService(sh, crags, areas, routes, rec, cfg, zap.NewNop()),
		sheets:   sh,
		recorder: rec,
		crags:    crags,
		areas:    areas,
		routes:   routes,
	}
}

// sheetRow builds a positional row from field values, leaving unset columns
// empty.
func sheetRow(t schema.Table, fields map[string]string) []string {
	cells := make([]string, len(t.Columns))
	for f, v := range fields {
		cells[t.Index(f)] = v
	}
	return cells
}

func cragFields(slug string) map[string]string {
	return map[string]string{
		"status":        "approved",
		"name":          "Crag " + slug,
		"slug":          slug,
		"region":        "北部",
		"location":      "New Taipei City",
		"climbingTypes": "sport,trad",
	}
}

func routeFields(cragSlug, id string) map[string]string {
	return map[string]string{
		"status":      "approved",
		"id":          id,
		"cragSlug":    cragSlug,
		"name":        "Route " + id,
		"grade":       "5.10a",
		"gradeSystem": "yds",
		"routeType":   "sport",
	}
}

func areaFields(cragSlug, id string) map[string]string {
	return map[string]string{
		"status":   "approved",
		"id":       id,
		"cragSlug": cragSlug,
		"name":     "Area " + id,
	}
}

func (e *testEnv) addCragRow(fields map[string]string) {
	e.sheets.data[schema.Crags.Range] = append(e.sheets.data[schema.Crags.Range], sheetRow(schema.Crags, fields))
}

func (e *testEnv) addAreaRow(fields map[string]string) {
	e.sheets.data[schema.Areas.Range] = append(e.sheets.data[schema.Areas.Range], sheetRow(schema.Areas, fields))
}

func (e *testEnv) addRouteRow(fields map[string]string) {
	e.sheets.data[schema.Routes.Range] = append(e.sheets.data[schema.Routes.Range], sheetRow(schema.Routes, fields))
}

// auditActions projects the recorded trail to "action entityType entityID"
// strings for order assertions.
func (e *testEnv) auditActions() []string {
	out := make([]string, 0, len(e.recorder.entries))
	for _, entry := range e.recorder.entries {
		out = append(out, fmt.Sprintf("%s %s %s", entry.Action, entry.EntityType, entry.EntityID))
	}
	return out
}
