package models

import "strings"

// Status is the moderation state of a submitted row. Reviewers move rows
// from pending to approved or rejected in the spreadsheet; the pipeline
// never changes a status, it only gates on it.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus normalizes a raw status cell. An empty cell is treated as
// draft, matching how contributors leave the column blank while editing.
// Returns false for values outside the known set.
func ParseStatus(raw string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case "":
		return StatusDraft, true
	case StatusDraft:
		return StatusDraft, true
	case StatusPending:
		return StatusPending, true
	case StatusApproved:
		return StatusApproved, true
	case StatusRejected:
		return StatusRejected, true
	default:
		return "", false
	}
}

// SyncEligible reports whether a row with this status may be written to the
// store. Only approved rows are eligible; pending and draft rows have not
// passed review yet and rejected rows are permanently excluded.
func (s Status) SyncEligible() bool {
	return s == StatusApproved
}
