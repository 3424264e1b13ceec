// Package schema declares, per entity, the ordered spreadsheet column layout
// and the range each sheet is read from. Columns are positional: headers in
// the sheet exist for human use only, and these offsets are a contract with
// the human-edited source that must never be reordered without migrating the
// existing data. No other package hardcodes a column position.
package schema

import (
	"fmt"
	"strings"
)

// Kind is the semantic type of a column, used by the row validator to pick
// a parsing rule.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindStatus
	KindEmail
	KindURL
	KindList // comma-separated values
)

// Column maps one spreadsheet column offset to a field name and kind.
type Column struct {
	Index int
	Field string
	Kind  Kind
}

// Table is the full column layout for one entity sheet.
type Table struct {
	Sheet   string
	Range   string
	Columns []Column
}

var Crags = Table{
	Sheet: "Crags",
	Range: "Crags!A2:Z",
	Columns: []Column{
		{0, "status", KindStatus},
		{1, "id", KindString},
		{2, "name", KindString},
		{3, "nameEn", KindString},
		{4, "slug", KindString},
		{5, "region", KindString},
		{6, "location", KindString},
		{7, "latitude", KindNumber},
		{8, "longitude", KindNumber},
		{9, "altitude", KindNumber},
		{10, "rockType", KindString},
		{11, "climbingTypes", KindList},
		{12, "difficultyRange", KindString},
		{13, "description", KindString},
		{14, "accessInfo", KindString},
		{15, "parkingInfo", KindString},
		{16, "approachTime", KindNumber},
		{17, "bestSeasons", KindList},
		{18, "restrictions", KindString},
		{19, "coverImage", KindURL},
		{20, "isFeatured", KindBool},
		{21, "submittedBy", KindEmail},
		{22, "submittedAt", KindString},
		{23, "reviewedBy", KindEmail},
		{24, "reviewedAt", KindString},
		{25, "reviewNotes", KindString},
	},
}

var Areas = Table{
	Sheet: "Areas",
	Range: "Areas!A2:L",
	Columns: []Column{
		{0, "status", KindStatus},
		{1, "id", KindString},
		{2, "cragSlug", KindString},
		{3, "name", KindString},
		{4, "nameEn", KindString},
		{5, "description", KindString},
		{6, "difficultyMin", KindString},
		{7, "difficultyMax", KindString},
		{8, "boltCount", KindNumber},
		{9, "image", KindURL},
		{10, "submittedBy", KindEmail},
		{11, "submittedAt", KindString},
	},
}

var Routes = Table{
	Sheet: "Routes",
	Range: "Routes!A2:T",
	Columns: []Column{
		{0, "status", KindStatus},
		{1, "id", KindString},
		{2, "cragSlug", KindString},
		{3, "areaId", KindString},
		{4, "sector", KindString},
		{5, "name", KindString},
		{6, "grade", KindString},
		{7, "gradeSystem", KindString},
		{8, "routeType", KindString},
		{9, "length", KindNumber},
		{10, "boltCount", KindNumber},
		{11, "boltType", KindString},
		{12, "anchorType", KindString},
		{13, "description", KindString},
		{14, "firstAscent", KindString},
		{15, "firstAscentDate", KindString},
		{16, "protection", KindString},
		{17, "tips", KindString},
		{18, "submittedBy", KindEmail},
		{19, "submittedAt", KindString},
	},
}

// AuditLogRange is where the audit trail writer appends entries. The audit
// sheet is append-only; the pipeline never reads it back.
const AuditLogRange = "AuditLog!A2:H"

// AuditLogWidth is the number of columns an audit entry occupies.
const AuditLogWidth = 8

// FirstDataRow is the sheet row the data ranges start at (row 1 holds the
// human-facing headers).
const FirstDataRow = 2

// Index returns the column offset for a field name, or -1 when the table has
// no such field.
func (t Table) Index(field string) int {
	for _, c := range t.Columns {
		if c.Field == field {
			return c.Index
		}
	}
	return -1
}

// Cell returns the trimmed cell value for a field, tolerating rows shorter
// than the schema (trailing empty cells are not transmitted by the
// spreadsheet service).
func (t Table) Cell(row []string, field string) string {
	i := t.Index(field)
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// CellRef returns an A1-style reference for one field of one sheet row,
// e.g. "Crags!B5". Used for status acknowledgement write-backs.
func (t Table) CellRef(rowNum int, field string) string {
	i := t.Index(field)
	if i < 0 {
		return ""
	}
	return fmt.Sprintf("%s!%s%d", t.Sheet, columnLetter(i), rowNum)
}

// Check validates a table's internal consistency: contiguous indexes from
// zero, unique field names, and a column count matching the declared range
// width. Called once at startup; a failure means the schema tables were
// edited inconsistently and nothing should run.
func (t Table) Check() error {
	seen := make(map[string]bool, len(t.Columns))
	for i, c := range t.Columns {
		if c.Index != i {
			return fmt.Errorf("schema %s: column %q has index %d, want %d", t.Sheet, c.Field, c.Index, i)
		}
		if c.Field == "" {
			return fmt.Errorf("schema %s: column %d has no field name", t.Sheet, i)
		}
		if seen[c.Field] {
			return fmt.Errorf("schema %s: duplicate field %q", t.Sheet, c.Field)
		}
		seen[c.Field] = true
	}
	if w := rangeWidth(t.Range); w != len(t.Columns) {
		return fmt.Errorf("schema %s: range %s spans %d columns but table declares %d", t.Sheet, t.Range, w, len(t.Columns))
	}
	return nil
}

// CheckAll validates every entity table.
func CheckAll() error {
	for _, t := range []Table{Crags, Areas, Routes} {
		if err := t.Check(); err != nil {
			return err
		}
	}
	return nil
}

// rangeWidth derives the column span from a range like "Crags!A2:Z".
// Single-letter column bounds are all this layout uses.
func rangeWidth(rng string) int {
	_, ref, ok := strings.Cut(rng, "!")
	if !ok {
		return -1
	}
	start, end, ok := strings.Cut(ref, ":")
	if !ok || len(start) < 1 || len(end) < 1 {
		return -1
	}
	return int(end[0]-start[0]) + 1
}

func columnLetter(index int) string {
	return string(rune('A' + index))
}
