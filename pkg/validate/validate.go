// Package validate turns raw spreadsheet rows into typed entities, or into
// field-level errors a reviewer can act on. Everything here is pure: one row
// in, one entity or a list of errors out. Cross-entity references (area and
// route to crag, route to area) are not checked here since they need
// the whole batch and belong to the reconciliation engine.
package validate

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/nobodyclimb/crag-sync/pkg/models"
	"github.com/nobodyclimb/crag-sync/pkg/schema"
)

// RowError is one field-level problem on one source row. Sheet and Row point
// a human reviewer at the cell to fix. Structural marks errors the engine
// raised from batch-wide checks (unresolved references, duplicate keys)
// rather than single-row validation.
type RowError struct {
	Sheet      string
	Row        int
	Field      string
	Value      string
	Message    string
	Structural bool
}

func (e RowError) Error() string {
	return fmt.Sprintf("%s row %d [%s]: %s", e.Sheet, e.Row, e.Field, e.Message)
}

var (
	slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)
	idPattern   = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// IsBlankRow reports whether every cell of a row is empty after trimming.
// The spreadsheet service can return such rows inside a range; they are
// neither entities nor errors.
func IsBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ParseCrag validates one Crags row. On success the returned error slice is
// empty; otherwise the entity is nil and every problem found is reported,
// not just the first.
func ParseCrag(rowNum int, cells []string) (*models.Crag, []RowError) {
	p := newRowParser(schema.Crags, rowNum, cells)

	c := &models.Crag{
		ID:              p.str("id"),
		Name:            p.required("name", "Name is required"),
		NameEn:          p.str("nameEn"),
		Slug:            p.str("slug"),
		Region:          p.str("region"),
		Location:        p.required("location", "Location is required"),
		RockType:        p.str("rockType"),
		DifficultyRange: p.str("difficultyRange"),
		Description:     p.str("description"),
		AccessInfo:      p.str("accessInfo"),
		ParkingInfo:     p.str("parkingInfo"),
		Restrictions:    p.str("restrictions"),
		CoverImage:      p.urlField("coverImage"),
		SubmittedBy:     p.email("submittedBy"),
		SubmittedAt:     p.str("submittedAt"),
		ReviewedBy:      p.email("reviewedBy"),
		ReviewedAt:      p.str("reviewedAt"),
		ReviewNotes:     p.str("reviewNotes"),
	}
	c.Status = p.status()
	c.Latitude = p.float("latitude")
	c.Longitude = p.float("longitude")
	c.Altitude = p.int("altitude")
	c.ApproachTime = p.int("approachTime")
	c.Featured = p.boolField("isFeatured")
	c.ClimbingTypes = p.list("climbingTypes")
	c.BestSeasons = p.list("bestSeasons")

	if c.Slug == "" || !slugPattern.MatchString(c.Slug) {
		p.fail("slug", c.Slug, "Slug must be lowercase alphanumeric with hyphens")
	}
	if c.ID != "" && !idPattern.MatchString(c.ID) {
		p.fail("id", c.ID, "ID must be a URL-safe token")
	}
	if !models.ValidRegion(c.Region) {
		p.fail("region", c.Region, "Invalid region")
	}
	if len(c.ClimbingTypes) == 0 {
		p.fail("climbingTypes", "", "Climbing types required")
	} else {
		var invalid []string
		for _, ct := range c.ClimbingTypes {
			if !models.ValidClimbingType(ct) {
				invalid = append(invalid, ct)
			}
		}
		if len(invalid) > 0 {
			p.fail("climbingTypes", strings.Join(c.ClimbingTypes, ","),
				"Invalid climbing types: "+strings.Join(invalid, ", "))
		}
	}
	if c.Latitude != 0 && (c.Latitude < 21 || c.Latitude > 26) {
		p.fail("latitude", p.cell("latitude"), "Latitude must be within Taiwan range (21-26)")
	}
	if c.Longitude != 0 && (c.Longitude < 119 || c.Longitude > 123) {
		p.fail("longitude", p.cell("longitude"), "Longitude must be within Taiwan range (119-123)")
	}

	if len(p.errs) > 0 {
		return nil, p.errs
	}
	return c, nil
}

// ParseArea validates one Areas row.
func ParseArea(rowNum int, cells []string) (*models.Area, []RowError) {
	p := newRowParser(schema.Areas, rowNum, cells)

	a := &models.Area{
		ID:            p.required("id", "Area ID is required"),
		CragSlug:      p.str("cragSlug"),
		Name:          p.required("name", "Name is required"),
		NameEn:        p.str("nameEn"),
		Description:   p.str("description"),
		DifficultyMin: p.str("difficultyMin"),
		DifficultyMax: p.str("difficultyMax"),
		Image:         p.urlField("image"),
		SubmittedBy:   p.email("submittedBy"),
		SubmittedAt:   p.str("submittedAt"),
	}
	a.Status = p.status()
	a.BoltCount = p.int("boltCount")

	if a.ID != "" && !idPattern.MatchString(a.ID) {
		p.fail("id", a.ID, "Area ID must be a URL-safe token")
	}
	if a.CragSlug == "" || !slugPattern.MatchString(a.CragSlug) {
		p.fail("cragSlug", a.CragSlug, "Crag slug is required and must be lowercase alphanumeric with hyphens")
	}

	if len(p.errs) > 0 {
		return nil, p.errs
	}
	return a, nil
}

// ParseRoute validates one Routes row. A blank ID is not an error: the
// pipeline generates one at sync time and stamps it back into the sheet.
func ParseRoute(rowNum int, cells []string) (*models.Route, []RowError) {
	p := newRowParser(schema.Routes, rowNum, cells)

	r := &models.Route{
		ID:              p.str("id"),
		CragSlug:        p.str("cragSlug"),
		AreaID:          p.str("areaId"),
		Sector:          p.str("sector"),
		Name:            p.required("name", "Route name is required"),
		Grade:           p.required("grade", "Grade is required"),
		GradeSystem:     p.str("gradeSystem"),
		RouteType:       p.str("routeType"),
		BoltType:        p.str("boltType"),
		AnchorType:      p.str("anchorType"),
		Description:     p.str("description"),
		FirstAscent:     p.str("firstAscent"),
		FirstAscentDate: p.str("firstAscentDate"),
		Protection:      p.str("protection"),
		Tips:            p.str("tips"),
		SubmittedBy:     p.email("submittedBy"),
		SubmittedAt:     p.str("submittedAt"),
	}
	r.Status = p.status()
	r.Length = p.int("length")
	r.BoltCount = p.int("boltCount")

	if r.CragSlug == "" || !slugPattern.MatchString(r.CragSlug) {
		p.fail("cragSlug", r.CragSlug, "Crag slug is required and must be lowercase alphanumeric with hyphens")
	}
	if r.ID != "" && !idPattern.MatchString(r.ID) {
		p.fail("id", r.ID, "Route ID must be a URL-safe token")
	}
	if r.AreaID != "" && !idPattern.MatchString(r.AreaID) {
		p.fail("areaId", r.AreaID, "Area ID must be a URL-safe token")
	}
	if !models.ValidGradeSystem(r.GradeSystem) {
		p.fail("gradeSystem", r.GradeSystem, "Invalid grade system (must be yds, french, or v-scale)")
	}
	if !models.ValidClimbingType(r.RouteType) {
		p.fail("routeType", r.RouteType, "Invalid route type")
	}

	if len(p.errs) > 0 {
		return nil, p.errs
	}
	return r, nil
}

// rowParser accumulates typed cell reads and their errors for one row.
type rowParser struct {
	table  schema.Table
	rowNum int
	cells  []string
	errs   []RowError
}

func newRowParser(t schema.Table, rowNum int, cells []string) *rowParser {
	return &rowParser{table: t, rowNum: rowNum, cells: cells}
}

func (p *rowParser) cell(field string) string {
	return p.table.Cell(p.cells, field)
}

func (p *rowParser) fail(field, value, message string) {
	p.errs = append(p.errs, RowError{
		Sheet:   p.table.Sheet,
		Row:     p.rowNum,
		Field:   field,
		Value:   value,
		Message: message,
	})
}

func (p *rowParser) str(field string) string {
	return p.cell(field)
}

func (p *rowParser) required(field, message string) string {
	v := p.cell(field)
	if v == "" {
		p.fail(field, v, message)
	}
	return v
}

func (p *rowParser) status() models.Status {
	raw := p.cell("status")
	s, ok := models.ParseStatus(raw)
	if !ok {
		p.fail("status", raw, "Invalid status (must be draft, pending, approved, or rejected)")
	}
	return s
}

// float parses a numeric cell. Empty is allowed and reads as zero;
// non-numeric garbage is an error.
func (p *rowParser) float(field string) float64 {
	raw := p.cell(field)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(field, raw, "Must be a number")
		return 0
	}
	return v
}

func (p *rowParser) int(field string) int {
	raw := p.cell(field)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(field, raw, "Must be a whole number")
		return 0
	}
	return v
}

func (p *rowParser) boolField(field string) bool {
	raw := strings.ToLower(p.cell(field))
	switch raw {
	case "", "false":
		return false
	case "true":
		return true
	default:
		p.fail(field, raw, "Must be true or false")
		return false
	}
}

func (p *rowParser) list(field string) []string {
	raw := p.cell(field)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (p *rowParser) email(field string) string {
	raw := p.cell(field)
	if raw == "" {
		return ""
	}
	if _, err := mail.ParseAddress(raw); err != nil {
		p.fail(field, raw, "Invalid email format")
	}
	return raw
}

func (p *rowParser) urlField(field string) string {
	raw := p.cell(field)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		p.fail(field, raw, "Invalid URL format")
	}
	return raw
}
