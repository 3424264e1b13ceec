package models

// Area is a sub-region within exactly one crag. Its natural key is the
// cragSlug+ID composite. Areas carry no independent moderation gate: they
// inherit trust from their parent crag's approval and are only checked for
// structural consistency at sync time.
type Area struct {
	ID            string
	CragSlug      string
	CragID        string
	Name          string
	NameEn        string
	Description   string
	DifficultyMin string
	DifficultyMax string
	BoltCount     int
	Image         string

	Status      Status
	SubmittedBy string
	SubmittedAt string
}

// Key is the batch-scoped natural key used for duplicate detection and
// route areaId resolution.
func (a *Area) Key() string {
	return a.CragSlug + "/" + a.ID
}

// ContentEquals compares the fields persisted to the store.
func (a *Area) ContentEquals(o *Area) bool {
	if o == nil {
		return false
	}
	return a.ID == o.ID &&
		a.CragID == o.CragID &&
		a.Name == o.Name &&
		a.NameEn == o.NameEn &&
		a.Description == o.Description &&
		a.DifficultyMin == o.DifficultyMin &&
		a.DifficultyMax == o.DifficultyMax &&
		a.BoltCount == o.BoltCount &&
		a.Image == o.Image
}
