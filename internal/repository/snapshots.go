package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/istmo-digital/docintel/internal/common"
	"github.com/istmo-digital/docintel/internal/extract"
	"github.com/istmo-digital/docintel/internal/ledger"
)

// SnapshotRepository stores current records and their version history. It
// satisfies ledger.Store.
type SnapshotRepository struct {
	db     Querier
	logger *slog.Logger
}

func NewSnapshotRepository(db Querier, logger *slog.Logger) *SnapshotRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotRepository{db: db, logger: logger}
}

func (r *SnapshotRepository) GetCurrentRecord(ctx context.Context, documentID uuid.UUID) (*extract.ExtractedRecord, error) {
	var payload []byte
	err := r.db.QueryRow(ctx,
		`SELECT record FROM current_records WHERE document_id = $1`,
		documentID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		r.logger.Error("failed to load current record", "document_id", documentID, "error", err)
		return nil, common.WrapError(err, "failed to load current record")
	}
	return decodeRecord(payload)
}

func (r *SnapshotRepository) PutRecord(ctx context.Context, documentID uuid.UUID, record *extract.ExtractedRecord) error {
	payload, err := extract.MarshalRecord(record)
	if err != nil {
		return common.WrapError(err, "failed to encode record")
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO current_records (document_id, record, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (document_id) DO UPDATE SET record = $2, updated_at = $3`,
		documentID, payload, time.Now().UTC())
	if err != nil {
		r.logger.Error("failed to store current record", "document_id", documentID, "error", err)
		return common.WrapError(err, "failed to store current record")
	}
	return nil
}

func (r *SnapshotRepository) AppendSnapshot(ctx context.Context, documentID uuid.UUID, snapshot ledger.VersionSnapshot) error {
	payload, err := extract.MarshalRecord(snapshot.Record)
	if err != nil {
		return common.WrapError(err, "failed to encode snapshot record")
	}
	// version_number carries a unique constraint per document, so a
	// concurrent writer loses here instead of corrupting the sequence.
	_, err = r.db.Exec(ctx,
		`INSERT INTO version_snapshots (document_id, version_number, record, reason, preserved_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		documentID, snapshot.VersionNumber, payload, snapshot.Reason, snapshot.PreservedAt)
	if err != nil {
		r.logger.Error("failed to append snapshot",
			"document_id", documentID, "version", snapshot.VersionNumber, "error", err)
		return common.WrapError(err, "failed to append snapshot")
	}
	return nil
}

func (r *SnapshotRepository) ListSnapshots(ctx context.Context, documentID uuid.UUID) ([]ledger.VersionSnapshot, error) {
	rows, err := r.db.Query(ctx,
		`SELECT version_number, record, reason, preserved_at
		 FROM version_snapshots
		 WHERE document_id = $1
		 ORDER BY version_number ASC`,
		documentID)
	if err != nil {
		r.logger.Error("failed to list snapshots", "document_id", documentID, "error", err)
		return nil, common.WrapError(err, "failed to list snapshots")
	}
	defer rows.Close()

	var snapshots []ledger.VersionSnapshot
	for rows.Next() {
		var s ledger.VersionSnapshot
		var payload []byte
		if err := rows.Scan(&s.VersionNumber, &payload, &s.Reason, &s.PreservedAt); err != nil {
			return nil, common.WrapError(err, "failed to scan snapshot")
		}
		record, err := decodeRecord(payload)
		if err != nil {
			return nil, err
		}
		s.Record = record
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

func decodeRecord(payload []byte) (*extract.ExtractedRecord, error) {
	var record extract.ExtractedRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, common.WrapError(err, "failed to decode record")
	}
	return &record, nil
}
