package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/istmo-digital/docintel/constants"
	"github.com/istmo-digital/docintel/internal/common"
	"github.com/istmo-digital/docintel/internal/entity"
	"github.com/istmo-digital/docintel/internal/extract"
	"github.com/istmo-digital/docintel/internal/ledger"
	"github.com/istmo-digital/docintel/internal/review"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id                        TEXT PRIMARY KEY,
	filename                  TEXT NOT NULL,
	content_hash              TEXT NOT NULL UNIQUE,
	format                    TEXT NOT NULL,
	size_bytes                INTEGER NOT NULL,
	type_id                   TEXT NOT NULL DEFAULT 'desconocido',
	classification_confidence REAL NOT NULL DEFAULT 0,
	requires_reverification   INTEGER NOT NULL DEFAULT 0,
	created_at                TIMESTAMP NOT NULL,
	updated_at                TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS current_records (
	document_id TEXT PRIMARY KEY,
	record      TEXT NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS version_snapshots (
	document_id    TEXT NOT NULL,
	version_number INTEGER NOT NULL,
	record         TEXT NOT NULL,
	reason         TEXT NOT NULL,
	preserved_at   TIMESTAMP NOT NULL,
	PRIMARY KEY (document_id, version_number)
);
CREATE TABLE IF NOT EXISTS review_tasks (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	record      TEXT,
	reason      TEXT NOT NULL,
	confidence  REAL NOT NULL,
	threshold   REAL NOT NULL,
	created_at  TIMESTAMP NOT NULL,
	resolved_at TIMESTAMP
);`

// SQLiteStore is the embedded single-file store for CLI runs. It satisfies
// ledger.Store, review.TaskStore and DocumentRepository.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.WrapError(err, "failed to open sqlite database")
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, common.WrapError(err, "failed to initialize sqlite schema")
	}
	logger.Info("sqlite store opened", "path", path)
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetCurrentRecord(ctx context.Context, documentID uuid.UUID) (*extract.ExtractedRecord, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM current_records WHERE document_id = ?`,
		documentID.String()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.WrapError(err, "failed to load current record")
	}
	return decodeRecord(payload)
}

func (s *SQLiteStore) PutRecord(ctx context.Context, documentID uuid.UUID, record *extract.ExtractedRecord) error {
	payload, err := extract.MarshalRecord(record)
	if err != nil {
		return common.WrapError(err, "failed to encode record")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO current_records (document_id, record, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (document_id) DO UPDATE SET record = excluded.record, updated_at = excluded.updated_at`,
		documentID.String(), payload, time.Now().UTC())
	if err != nil {
		return common.WrapError(err, "failed to store current record")
	}
	return nil
}

func (s *SQLiteStore) AppendSnapshot(ctx context.Context, documentID uuid.UUID, snapshot ledger.VersionSnapshot) error {
	payload, err := extract.MarshalRecord(snapshot.Record)
	if err != nil {
		return common.WrapError(err, "failed to encode snapshot record")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO version_snapshots (document_id, version_number, record, reason, preserved_at)
		 VALUES (?, ?, ?, ?, ?)`,
		documentID.String(), snapshot.VersionNumber, payload, snapshot.Reason, snapshot.PreservedAt)
	if err != nil {
		return common.WrapError(err, "failed to append snapshot")
	}
	return nil
}

func (s *SQLiteStore) ListSnapshots(ctx context.Context, documentID uuid.UUID) ([]ledger.VersionSnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT version_number, record, reason, preserved_at
		 FROM version_snapshots WHERE document_id = ?
		 ORDER BY version_number ASC`,
		documentID.String())
	if err != nil {
		return nil, common.WrapError(err, "failed to list snapshots")
	}
	defer rows.Close()

	var snapshots []ledger.VersionSnapshot
	for rows.Next() {
		var snapshot ledger.VersionSnapshot
		var payload []byte
		if err := rows.Scan(&snapshot.VersionNumber, &payload, &snapshot.Reason, &snapshot.PreservedAt); err != nil {
			return nil, common.WrapError(err, "failed to scan snapshot")
		}
		record, err := decodeRecord(payload)
		if err != nil {
			return nil, err
		}
		snapshot.Record = record
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, rows.Err()
}

func (s *SQLiteStore) CreateReviewTask(ctx context.Context, task review.Task) error {
	var payload []byte
	if task.Record != nil {
		var err error
		payload, err = json.Marshal(task.Record)
		if err != nil {
			return common.WrapError(err, "failed to encode review record")
		}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO review_tasks (id, document_id, record, reason, confidence, threshold, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		task.ID.String(), task.DocumentID.String(), payload, string(task.Reason),
		task.Confidence, task.Threshold, task.CreatedAt)
	if err != nil {
		return common.WrapError(err, "failed to create review task")
	}
	return nil
}

func (s *SQLiteStore) ListOpen(ctx context.Context, limit int) ([]review.Task, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, record, reason, confidence, threshold, created_at
		 FROM review_tasks
		 WHERE resolved_at IS NULL
		 ORDER BY created_at ASC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, common.WrapError(err, "failed to list review tasks")
	}
	defer rows.Close()

	var tasks []review.Task
	for rows.Next() {
		var task review.Task
		var id, docID, reason string
		var payload []byte
		if err := rows.Scan(&id, &docID, &payload, &reason,
			&task.Confidence, &task.Threshold, &task.CreatedAt); err != nil {
			return nil, common.WrapError(err, "failed to scan review task")
		}
		if task.ID, err = uuid.Parse(id); err != nil {
			return nil, common.WrapError(err, "malformed task id")
		}
		if task.DocumentID, err = uuid.Parse(docID); err != nil {
			return nil, common.WrapError(err, "malformed document id")
		}
		task.Reason = constants.ReviewReason(reason)
		if len(payload) > 0 {
			record, err := decodeRecord(payload)
			if err != nil {
				return nil, err
			}
			task.Record = record
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (s *SQLiteStore) Resolve(ctx context.Context, taskID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE review_tasks SET resolved_at = ? WHERE id = ? AND resolved_at IS NULL`,
		time.Now().UTC(), taskID.String())
	if err != nil {
		return common.WrapError(err, "failed to resolve review task")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Create(ctx context.Context, doc *entity.Document) (*entity.Document, error) {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	if doc.TypeID == "" {
		doc.TypeID = constants.TypeUnknown
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (`+documentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID.String(), doc.Filename, doc.ContentHash, doc.Format, doc.SizeBytes,
		string(doc.TypeID), doc.ClassificationConfidence, doc.RequiresReverification,
		doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return nil, common.WrapError(err, "failed to create document")
	}
	return doc, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id.String())
	return scanSQLiteDocument(row)
}

func (s *SQLiteStore) GetByHash(ctx context.Context, contentHash string) (*entity.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE content_hash = ?`, contentHash)
	return scanSQLiteDocument(row)
}

func (s *SQLiteStore) UpdateClassification(ctx context.Context, id uuid.UUID, typeID constants.TypeID, confidence float64, requiresReverification bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents
		 SET type_id = ?, classification_confidence = ?, requires_reverification = ?, updated_at = ?
		 WHERE id = ?`,
		string(typeID), confidence, requiresReverification, time.Now().UTC(), id.String())
	if err != nil {
		return common.WrapError(err, "failed to update classification")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, typeID constants.TypeID, limit int) ([]*entity.Document, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + documentColumns + ` FROM documents`
	var args []any
	if typeID != "" {
		query += ` WHERE type_id = ?`
		args = append(args, string(typeID))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.WrapError(err, "failed to list documents")
	}
	defer rows.Close()

	var docs []*entity.Document
	for rows.Next() {
		doc, err := scanSQLiteDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

type sqlScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteDocument(row sqlScanner) (*entity.Document, error) {
	var doc entity.Document
	var id, typeID string
	err := row.Scan(&id, &doc.Filename, &doc.ContentHash, &doc.Format,
		&doc.SizeBytes, &typeID, &doc.ClassificationConfidence,
		&doc.RequiresReverification, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.WrapError(err, "failed to load document")
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, common.WrapError(err, "malformed document id")
	}
	doc.ID = parsed
	doc.TypeID = constants.TypeID(typeID)
	return &doc, nil
}
