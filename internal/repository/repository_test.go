package repository

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/istmo-digital/docintel/constants"
	"github.com/istmo-digital/docintel/internal/common"
	"github.com/istmo-digital/docintel/internal/entity"
	"github.com/istmo-digital/docintel/internal/extract"
	"github.com/istmo-digital/docintel/internal/ledger"
	"github.com/istmo-digital/docintel/internal/review"
)

func TestDocumentRepositoryCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDocumentRepository(mock, nil)

	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs(pgxmock.AnyArg(), "contrato.pdf", "abc123", "PDF", int64(2048),
			"desconocido", 0.0, false, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	doc, err := repo.Create(context.Background(), &entity.Document{
		Filename:    "contrato.pdf",
		ContentHash: "abc123",
		Format:      "PDF",
		SizeBytes:   2048,
	})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, doc.ID)
	assert.Equal(t, constants.TypeUnknown, doc.TypeID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryUpdateClassification(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDocumentRepository(mock, nil)
	id := uuid.New()

	mock.ExpectExec(`UPDATE documents`).
		WithArgs(id, "contrato", 0.85, false, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.UpdateClassification(context.Background(), id, constants.TypeContrato, 0.85, false)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryUpdateClassificationNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDocumentRepository(mock, nil)
	id := uuid.New()

	mock.ExpectExec(`UPDATE documents`).
		WithArgs(id, "contrato", 0.85, false, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.UpdateClassification(context.Background(), id, constants.TypeContrato, 0.85, false)

	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSnapshotRepositoryGetCurrentRecordNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSnapshotRepository(mock, nil)
	id := uuid.New()

	mock.ExpectQuery(`SELECT record FROM current_records`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.GetCurrentRecord(context.Background(), id)

	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSnapshotRepositoryRoundTrip(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSnapshotRepository(mock, nil)
	id := uuid.New()
	record := &extract.ExtractedRecord{
		DocumentType:  constants.DocTypeContract,
		TypeID:        constants.TypeContrato,
		SourceChannel: extract.ChannelTextRegex,
		Confidence:    0.82,
		Fields: map[string]extract.FieldValue{
			"numero_contrato": {Value: "2024-00371", Provenance: extract.ProvenanceText},
		},
	}
	payload, err := json.Marshal(record)
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO current_records`).
		WithArgs(id, payload, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, repo.PutRecord(context.Background(), id, record))

	mock.ExpectQuery(`SELECT record FROM current_records`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"record"}).AddRow(payload))

	loaded, err := repo.GetCurrentRecord(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "2024-00371", loaded.Fields["numero_contrato"].Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepositoryRejectsInvalidRecord(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSnapshotRepository(mock, nil)
	id := uuid.New()

	// Confidence above the 0.95 ceiling must never reach the database, so
	// no Exec expectation is registered.
	record := &extract.ExtractedRecord{
		DocumentType:  constants.DocTypeContract,
		TypeID:        constants.TypeContrato,
		SourceChannel: extract.ChannelTextRegex,
		Confidence:    1.2,
	}

	err = repo.PutRecord(context.Background(), id, record)
	require.Error(t, err)

	err = repo.AppendSnapshot(context.Background(), id, ledger.VersionSnapshot{
		VersionNumber: 1,
		Record:        record,
		Reason:        "reprocess",
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepositoryListSnapshots(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSnapshotRepository(mock, nil)
	id := uuid.New()
	payload, err := json.Marshal(&extract.ExtractedRecord{TypeID: constants.TypeContrato})
	require.NoError(t, err)
	preserved := time.Now().UTC()

	mock.ExpectQuery(`SELECT version_number, record, reason, preserved_at`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"version_number", "record", "reason", "preserved_at"}).
			AddRow(1, payload, "reprocess", preserved).
			AddRow(2, payload, "restore", preserved))

	snapshots, err := repo.ListSnapshots(context.Background(), id)

	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.Equal(t, 1, snapshots[0].VersionNumber)
	assert.Equal(t, "restore", snapshots[1].Reason)
}

func TestReviewTaskRepositoryCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReviewTaskRepository(mock, nil)
	task := review.Task{
		ID:         uuid.New(),
		DocumentID: uuid.New(),
		Reason:     constants.ReasonLowConfidence,
		Confidence: 0.6,
		Threshold:  0.75,
		CreatedAt:  time.Now().UTC(),
	}

	mock.ExpectExec(`INSERT INTO review_tasks`).
		WithArgs(task.ID, task.DocumentID, pgxmock.AnyArg(), "LOW_CONFIDENCE",
			0.6, 0.75, task.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.CreateReviewTask(context.Background(), task)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStoreRejectsInvalidRecord(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "docintel.db"), nil)
	require.NoError(t, err)
	defer store.Close()

	id := uuid.New()
	record := &extract.ExtractedRecord{
		DocumentType:  constants.DocTypeContract,
		TypeID:        constants.TypeContrato,
		SourceChannel: "carrier_pigeon",
		Confidence:    0.5,
	}

	require.Error(t, store.PutRecord(context.Background(), id, record))
	_, err = store.GetCurrentRecord(context.Background(), id)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMemoryStoreImplementsLedgerStore(t *testing.T) {
	var _ ledger.Store = NewMemoryStore()
	var _ review.TaskStore = NewMemoryStore()

	store := NewMemoryStore()
	id := uuid.New()
	ctx := context.Background()

	_, err := store.GetCurrentRecord(ctx, id)
	assert.ErrorIs(t, err, common.ErrNotFound)

	record := &extract.ExtractedRecord{TypeID: constants.TypeDNI}
	require.NoError(t, store.PutRecord(ctx, id, record))
	loaded, err := store.GetCurrentRecord(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constants.TypeDNI, loaded.TypeID)

	require.NoError(t, store.AppendSnapshot(ctx, id, ledger.VersionSnapshot{VersionNumber: 1, Record: record}))
	snapshots, err := store.ListSnapshots(ctx, id)
	require.NoError(t, err)
	assert.Len(t, snapshots, 1)
}
