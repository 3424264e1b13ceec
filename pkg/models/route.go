package models

// Route is a single climbable line within a crag, optionally scoped to an
// area. Natural key: cragSlug+ID. AreaID, when present, must resolve to an
// area of the same crag; that check belongs to the reconciliation engine
// because it needs the whole batch.
type Route struct {
	ID              string
	CragSlug        string
	CragID          string
	AreaID          string
	Sector          string
	Name            string
	Grade           string
	GradeSystem     string
	RouteType       string
	Length          int
	BoltCount       int
	BoltType        string
	AnchorType      string
	Description     string
	FirstAscent     string
	FirstAscentDate string
	Protection      string
	Tips            string

	Status      Status
	SubmittedBy string
	SubmittedAt string
}

// Key is the batch-scoped natural key used for duplicate detection.
func (r *Route) Key() string {
	return r.CragSlug + "/" + r.ID
}

// ContentEquals compares the fields persisted to the store.
func (r *Route) ContentEquals(o *Route) bool {
	if o == nil {
		return false
	}
	return r.ID == o.ID &&
		r.CragID == o.CragID &&
		r.AreaID == o.AreaID &&
		r.Sector == o.Sector &&
		r.Name == o.Name &&
		r.Grade == o.Grade &&
		r.GradeSystem == o.GradeSystem &&
		r.RouteType == o.RouteType &&
		r.Length == o.Length &&
		r.BoltCount == o.BoltCount &&
		r.BoltType == o.BoltType &&
		r.AnchorType == o.AnchorType &&
		r.Description == o.Description &&
		r.FirstAscent == o.FirstAscent &&
		r.FirstAscentDate == o.FirstAscentDate &&
		r.Protection == o.Protection &&
		r.Tips == o.Tips
}
