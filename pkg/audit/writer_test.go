package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nobodyclimb/crag-sync/pkg/schema"
)

type fakeSheets struct {
	appendRange string
	appended    [][]string
	updates     map[string]string
	appendErr   error
}

func newFakeSheets() *fakeSheets {
	return &fakeSheets{updates: make(map[string]string)}
}

func (f *fakeSheets) FetchRange(_ context.Context, _ string) ([][]string, error) {
	return nil, nil
}

func (f *fakeSheets) UpdateCell(_ context.Context, cellRef, value string) error {
	f.updates[cellRef] = value
	return nil
}

func (f *fakeSheets) Append(_ context.Context, rangeRef string, rows [][]string) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appendRange = rangeRef
	f.appended = append(f.appended, rows...)
	return nil
}

func TestRecordAppendsRows(t *testing.T) {
	fake := newFakeSheets()
	w := NewWriter(fake, zap.NewNop())

	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	err := w.Record(context.Background(), []Entry{
		{
			Timestamp:  ts,
			Action:     ActionCreated,
			EntityType: "crag",
			EntityID:   "longdong",
			EntityName: "Long Dong",
			Operator:   "run-abc",
			Changes:    map[string]any{"name": "Long Dong"},
			Notes:      "",
		},
		{
			Timestamp:  ts,
			Action:     ActionSkipped,
			EntityType: "route",
			EntityID:   "longdong/r-001",
			Operator:   "run-abc",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, schema.AuditLogRange, fake.appendRange)
	require.Len(t, fake.appended, 2)

	row := fake.appended[0]
	require.Len(t, row, schema.AuditLogWidth)
	assert.Equal(t, "2026-03-14T09:26:53Z", row[0])
	assert.Equal(t, "created", row[1])
	assert.Equal(t, "crag", row[2])
	assert.Equal(t, "longdong", row[3])
	assert.Equal(t, "Long Dong", row[4])
	assert.Equal(t, "run-abc", row[5])
	assert.JSONEq(t, `{"name":"Long Dong"}`, row[6])
	assert.Equal(t, "", row[7])

	// No changes means an empty changes column, not "null".
	assert.Equal(t, "", fake.appended[1][6])
}

func TestRecordEmptyIsNoop(t *testing.T) {
	fake := newFakeSheets()
	w := NewWriter(fake, zap.NewNop())

	require.NoError(t, w.Record(context.Background(), nil))
	assert.Empty(t, fake.appended)
}

func TestAcknowledgeSyncStampsCells(t *testing.T) {
	fake := newFakeSheets()
	w := NewWriter(fake, zap.NewNop())

	err := w.AcknowledgeSync(context.Background(), []Ack{
		{CellRef: "Routes!B5", Value: "r-9f2"},
		{CellRef: "Routes!B6", Value: "r-0a1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "r-9f2", fake.updates["Routes!B5"])
	assert.Equal(t, "r-0a1", fake.updates["Routes!B6"])
}
