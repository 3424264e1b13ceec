// Package audit writes the append-only trail of every reconciliation action.
// The trail is the system of record for "what happened", independent of store
// state: entries are never edited or removed, and a dry run writes nothing.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nobodyclimb/crag-sync/pkg/schema"
	"github.com/nobodyclimb/crag-sync/pkg/sheets"
)

// Action is what the pipeline did (or found) for one entity.
type Action string

const (
	ActionCreated  Action = "created"
	ActionUpdated  Action = "updated"
	ActionSkipped  Action = "skipped"
	ActionRejected Action = "rejected"
	ActionError    Action = "error"
	// ActionSync is the per-run batch summary entry.
	ActionSync Action = "sync"
)

// Entry is one appended audit row.
type Entry struct {
	Timestamp  time.Time
	Action     Action
	EntityType string
	EntityID   string
	EntityName string
	Operator   string // pipeline run ID
	Changes    map[string]any
	Notes      string
}

// Ack is a sync acknowledgement written back into one source sheet cell for
// a row that synced successfully (generated ID stamp). Rows that errored are
// never acknowledged.
type Ack struct {
	CellRef string
	Value   string
}

// Recorder is the engine-facing contract.
type Recorder interface {
	Record(ctx context.Context, entries []Entry) error
	AcknowledgeSync(ctx context.Context, acks []Ack) error
}

// Writer appends audit entries to the audit sheet range and writes sync
// acknowledgements back to the source sheets. Appending is the only mutation
// it performs on the audit range.
type Writer struct {
	client sheets.Client
	logger *zap.Logger
}

// NewWriter creates a new audit Writer.
func NewWriter(client sheets.Client, logger *zap.Logger) *Writer {
	return &Writer{client: client, logger: logger}
}

var _ Recorder = (*Writer)(nil)

// Record appends entries to the audit destination.
func (w *Writer) Record(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = e.row()
	}

	if err := w.client.Append(ctx, schema.AuditLogRange, rows); err != nil {
		return fmt.Errorf("failed to append audit entries: %w", err)
	}
	w.logger.Debug("Appended audit entries", zap.Int("count", len(entries)))
	return nil
}

// AcknowledgeSync stamps the given source cells. Entries were only enqueued
// for rows whose store writes already succeeded.
func (w *Writer) AcknowledgeSync(ctx context.Context, acks []Ack) error {
	for _, ack := range acks {
		if err := w.client.UpdateCell(ctx, ack.CellRef, ack.Value); err != nil {
			return fmt.Errorf("failed to acknowledge %s: %w", ack.CellRef, err)
		}
	}
	return nil
}

func (e Entry) row() []string {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	changes := ""
	if len(e.Changes) > 0 {
		if b, err := json.Marshal(e.Changes); err == nil {
			changes = string(b)
		}
	}

	return []string{
		ts.UTC().Format(time.RFC3339),
		string(e.Action),
		e.EntityType,
		e.EntityID,
		e.EntityName,
		e.Operator,
		changes,
		e.Notes,
	}
}
