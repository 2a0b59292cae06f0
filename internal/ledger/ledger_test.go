package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/istmo-digital/docintel/internal/common"
	"github.com/istmo-digital/docintel/internal/extract"
)

// fakeStore is an in-memory Store with switchable append failure.
type fakeStore struct {
	current   map[uuid.UUID]*extract.ExtractedRecord
	snapshots map[uuid.UUID][]VersionSnapshot
	failNext  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		current:   map[uuid.UUID]*extract.ExtractedRecord{},
		snapshots: map[uuid.UUID][]VersionSnapshot{},
	}
}

func (s *fakeStore) GetCurrentRecord(_ context.Context, id uuid.UUID) (*extract.ExtractedRecord, error) {
	record, ok := s.current[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return record, nil
}

func (s *fakeStore) PutRecord(_ context.Context, id uuid.UUID, record *extract.ExtractedRecord) error {
	s.current[id] = record
	return nil
}

func (s *fakeStore) AppendSnapshot(_ context.Context, id uuid.UUID, snapshot VersionSnapshot) error {
	if s.failNext {
		s.failNext = false
		return assert.AnError
	}
	s.snapshots[id] = append(s.snapshots[id], snapshot)
	return nil
}

func (s *fakeStore) ListSnapshots(_ context.Context, id uuid.UUID) ([]VersionSnapshot, error) {
	return s.snapshots[id], nil
}

func recordWithNumber(number string) *extract.ExtractedRecord {
	r := &extract.ExtractedRecord{Fields: map[string]extract.FieldValue{}}
	r.SetField("numero_documento", extract.FieldValue{Value: number})
	return r
}

func TestPreserveFirstRecordCreatesNoSnapshot(t *testing.T) {
	store := newFakeStore()
	led := NewLedger(store, nil)
	id := uuid.New()

	require.NoError(t, led.Preserve(context.Background(), id, recordWithNumber("8-236-51"), "initial"))

	assert.Empty(t, store.snapshots[id])
	current, err := led.Current(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "8-236-51", mustField(t, current, "numero_documento"))
}

func TestPreserveVersionsAreContiguous(t *testing.T) {
	store := newFakeStore()
	led := NewLedger(store, nil)
	id := uuid.New()
	ctx := context.Background()

	require.NoError(t, led.Preserve(ctx, id, recordWithNumber("v1"), "initial"))
	require.NoError(t, led.Preserve(ctx, id, recordWithNumber("v2"), "reprocess"))
	require.NoError(t, led.Preserve(ctx, id, recordWithNumber("v3"), "reprocess"))

	snapshots := store.snapshots[id]
	require.Len(t, snapshots, 2)
	assert.Equal(t, 1, snapshots[0].VersionNumber)
	assert.Equal(t, 2, snapshots[1].VersionNumber)
	assert.Equal(t, "v1", mustField(t, snapshots[0].Record, "numero_documento"))
	assert.Equal(t, "v2", mustField(t, snapshots[1].Record, "numero_documento"))
}

func TestPreserveFailureBlocksOverwrite(t *testing.T) {
	store := newFakeStore()
	led := NewLedger(store, nil)
	id := uuid.New()
	ctx := context.Background()

	require.NoError(t, led.Preserve(ctx, id, recordWithNumber("v1"), "initial"))
	store.failNext = true

	err := led.Preserve(ctx, id, recordWithNumber("v2"), "reprocess")

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrPreservation)
	current, _ := led.Current(ctx, id)
	assert.Equal(t, "v1", mustField(t, current, "numero_documento"))
	assert.Empty(t, store.snapshots[id])
}

func TestHistoryNewestFirst(t *testing.T) {
	store := newFakeStore()
	led := NewLedger(store, nil)
	id := uuid.New()
	ctx := context.Background()

	require.NoError(t, led.Preserve(ctx, id, recordWithNumber("v1"), "initial"))
	require.NoError(t, led.Preserve(ctx, id, recordWithNumber("v2"), "reprocess"))
	require.NoError(t, led.Preserve(ctx, id, recordWithNumber("v3"), "reprocess"))

	history, err := led.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 2, history[0].VersionNumber)
	assert.Equal(t, 1, history[1].VersionNumber)
}

func TestRestorePreservesDisplacedRecord(t *testing.T) {
	store := newFakeStore()
	led := NewLedger(store, nil)
	id := uuid.New()
	ctx := context.Background()

	require.NoError(t, led.Preserve(ctx, id, recordWithNumber("v1"), "initial"))
	require.NoError(t, led.Preserve(ctx, id, recordWithNumber("v2"), "reprocess"))

	restored, err := led.Restore(ctx, id, 1)
	require.NoError(t, err)
	assert.Equal(t, "v1", mustField(t, restored, "numero_documento"))

	// v2 was snapshotted as version 2 before being displaced.
	current, _ := led.Current(ctx, id)
	assert.Equal(t, "v1", mustField(t, current, "numero_documento"))
	snapshots := store.snapshots[id]
	require.Len(t, snapshots, 2)
	assert.Equal(t, "v2", mustField(t, snapshots[1].Record, "numero_documento"))
	assert.Equal(t, "restore", snapshots[1].Reason)
}

func TestRestoreUnknownVersion(t *testing.T) {
	store := newFakeStore()
	led := NewLedger(store, nil)
	id := uuid.New()

	_, err := led.Restore(context.Background(), id, 7)

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCompareFieldDiff(t *testing.T) {
	before := &extract.ExtractedRecord{Fields: map[string]extract.FieldValue{}}
	before.SetField("numero_documento", extract.FieldValue{Value: "8-236-51"})
	before.SetField("genero", extract.FieldValue{Value: "M"})
	before.SetField("nacionalidad", extract.FieldValue{Value: "PANAMENA"})

	after := &extract.ExtractedRecord{Fields: map[string]extract.FieldValue{}}
	after.SetField("numero_documento", extract.FieldValue{Value: "8-236-512"})
	after.SetField("genero", extract.FieldValue{Value: "M"})
	after.SetField("fecha_emision", extract.FieldValue{Value: "2017-11-16"})

	diff := Compare(before, after)

	require.Len(t, diff.Modified, 1)
	assert.Equal(t, FieldChange{Field: "numero_documento", Before: "8-236-51", After: "8-236-512"}, diff.Modified[0])
	require.Len(t, diff.Added, 1)
	assert.Equal(t, "fecha_emision", diff.Added[0].Field)
	require.Len(t, diff.Removed, 1)
	assert.Equal(t, "nacionalidad", diff.Removed[0].Field)
	assert.False(t, diff.Empty())

	assert.True(t, Compare(before, before).Empty())
}

func mustField(t *testing.T, record *extract.ExtractedRecord, name string) string {
	t.Helper()
	fv, ok := record.Field(name)
	require.True(t, ok, "field %s missing", name)
	return fv.Value
}
