package models

import "slices"

// Crag is a named outdoor climbing location. The slug is the natural key:
// human-assigned, unique, and immutable once approved. RoutesCount and
// BoltCount are derived aggregates recomputed by the pipeline, never
// hand-edited in the source sheet.
type Crag struct {
	ID              string
	Name            string
	NameEn          string
	Slug            string
	Region          string
	Location        string
	Latitude        float64
	Longitude       float64
	Altitude        int
	RockType        string
	ClimbingTypes   []string
	DifficultyRange string
	Description     string
	AccessInfo      string
	ParkingInfo     string
	ApproachTime    int
	BestSeasons     []string
	Restrictions    string
	CoverImage      string
	Featured        bool

	RoutesCount int
	BoltCount   int

	Status      Status
	SubmittedBy string
	SubmittedAt string
	ReviewedBy  string
	ReviewedAt  string
	ReviewNotes string
}

// StoreID is the primary key used in the relational store. Rows submitted
// without an explicit ID fall back to the slug, which keeps the upsert
// idempotent across runs without stamping a generated ID back into the
// sheet the way route IDs are.
func (c *Crag) StoreID() string {
	if c.ID != "" {
		return c.ID
	}
	return c.Slug
}

// ContentEquals compares the fields persisted to the store, ignoring
// moderation metadata and derived aggregates. Two crags that compare equal
// produce a skip in the change plan.
func (c *Crag) ContentEquals(o *Crag) bool {
	if o == nil {
		return false
	}
	return c.StoreID() == o.StoreID() &&
		c.Name == o.Name &&
		c.NameEn == o.NameEn &&
		c.Slug == o.Slug &&
		c.Region == o.Region &&
		c.Location == o.Location &&
		c.Latitude == o.Latitude &&
		c.Longitude == o.Longitude &&
		c.Altitude == o.Altitude &&
		c.RockType == o.RockType &&
		slices.Equal(c.ClimbingTypes, o.ClimbingTypes) &&
		c.DifficultyRange == o.DifficultyRange &&
		c.Description == o.Description &&
		c.AccessInfo == o.AccessInfo &&
		c.ParkingInfo == o.ParkingInfo &&
		c.ApproachTime == o.ApproachTime &&
		slices.Equal(c.BestSeasons, o.BestSeasons) &&
		c.Restrictions == o.Restrictions &&
		c.CoverImage == o.CoverImage &&
		c.Featured == o.Featured
}
