package services

import (
	"time"

	"github.com/nobodyclimb/crag-sync/pkg/models"
	"github.com/nobodyclimb/crag-sync/pkg/validate"
)

// Scope limits which entity types a run writes. All three sheets are always
// fetched and validated regardless, because Area and Route checks depend on
// the full crag index.
type Scope string

const (
	ScopeAll        Scope = "all"
	ScopeCragsOnly  Scope = "crags-only"
	ScopeRoutesOnly Scope = "routes-only"
)

func (s Scope) includesCrags() bool  { return s != ScopeRoutesOnly }
func (s Scope) includesAreas() bool  { return s == ScopeAll }
func (s Scope) includesRoutes() bool { return s != ScopeCragsOnly }

// Options controls one reconciliation run.
type Options struct {
	DryRun bool
	Scope  Scope
}

func (o Options) normalized() Options {
	if o.Scope == "" {
		o.Scope = ScopeAll
	}
	return o
}

// ActionCounts is the per-entity-type tally of a run.
type ActionCounts struct {
	Created int
	Updated int
	Skipped int
	Errors  int
}

// Summary is the result of one run. A dry run produces the same shape as a
// live run, so a reviewer can preview before applying.
type Summary struct {
	RunID    string
	DryRun   bool
	Scope    Scope
	Started  time.Time
	Duration time.Duration

	Crags  ActionCounts
	Areas  ActionCounts
	Routes ActionCounts

	// Errors holds every row and structural error found, with sheet, row
	// number, and field, so the source row can be fixed by hand.
	Errors []validate.RowError
}

// SheetReport is the per-sheet half of a validation report.
type SheetReport struct {
	Sheet    string
	Rows     int
	Blank    int
	Valid    int
	Approved int
	Pending  int
}

// Report is the output of the read-only validate command.
type Report struct {
	Sheets []SheetReport
	Errors []validate.RowError
}

type changeOp int

const (
	opCreate changeOp = iota
	opUpdate
	opSkip
)

func (c *ActionCounts) add(op changeOp) {
	switch op {
	case opCreate:
		c.Created++
	case opUpdate:
		c.Updated++
	case opSkip:
		c.Skipped++
	}
}

type cragChange struct {
	op   changeOp
	row  int
	crag *models.Crag
}

type areaChange struct {
	op   changeOp
	row  int
	area *models.Area
}

type routeChange struct {
	op    changeOp
	row   int
	route *models.Route

	// ackRef is set when the route had no ID in the source and one was
	// generated; after a successful store write the generated ID is stamped
	// back into this cell.
	ackRef string
}
