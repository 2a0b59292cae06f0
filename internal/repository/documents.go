package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/istmo-digital/docintel/constants"
	"github.com/istmo-digital/docintel/internal/common"
	"github.com/istmo-digital/docintel/internal/entity"
)

// DocumentRepository persists ingested documents and their classification.
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) (*entity.Document, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	GetByHash(ctx context.Context, contentHash string) (*entity.Document, error)
	UpdateClassification(ctx context.Context, id uuid.UUID, typeID constants.TypeID, confidence float64, requiresReverification bool) error
	List(ctx context.Context, typeID constants.TypeID, limit int) ([]*entity.Document, error)
}

type documentRepository struct {
	db     Querier
	logger *slog.Logger
}

func NewDocumentRepository(db Querier, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepository{db: db, logger: logger}
}

const documentColumns = `id, filename, content_hash, format, size_bytes, type_id, classification_confidence, requires_reverification, created_at, updated_at`

func (r *documentRepository) Create(ctx context.Context, doc *entity.Document) (*entity.Document, error) {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	if doc.TypeID == "" {
		doc.TypeID = constants.TypeUnknown
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (`+documentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		doc.ID, doc.Filename, doc.ContentHash, doc.Format, doc.SizeBytes,
		string(doc.TypeID), doc.ClassificationConfidence, doc.RequiresReverification,
		doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to create document", "filename", doc.Filename, "error", err)
		return nil, common.WrapError(err, "failed to create document")
	}
	r.logger.Info("document created", "document_id", doc.ID, "filename", doc.Filename)
	return doc, nil
}

func (r *documentRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	return r.scanDocument(row)
}

func (r *documentRepository) GetByHash(ctx context.Context, contentHash string) (*entity.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE content_hash = $1`, contentHash)
	return r.scanDocument(row)
}

func (r *documentRepository) UpdateClassification(ctx context.Context, id uuid.UUID, typeID constants.TypeID, confidence float64, requiresReverification bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE documents
		 SET type_id = $2, classification_confidence = $3, requires_reverification = $4, updated_at = $5
		 WHERE id = $1`,
		id, string(typeID), confidence, requiresReverification, time.Now().UTC())
	if err != nil {
		r.logger.Error("failed to update classification", "document_id", id, "error", err)
		return common.WrapError(err, "failed to update classification")
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *documentRepository) List(ctx context.Context, typeID constants.TypeID, limit int) ([]*entity.Document, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + documentColumns + ` FROM documents`
	args := []any{limit}
	if typeID != "" {
		query += ` WHERE type_id = $2`
		args = append(args, string(typeID))
	}
	query += ` ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list documents", "error", err)
		return nil, common.WrapError(err, "failed to list documents")
	}
	defer rows.Close()

	var docs []*entity.Document
	for rows.Next() {
		doc, err := scanDocumentRow(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *documentRepository) scanDocument(row pgx.Row) (*entity.Document, error) {
	doc, err := scanDocumentRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		r.logger.Error("failed to scan document", "error", err)
		return nil, common.WrapError(err, "failed to load document")
	}
	return doc, nil
}

func scanDocumentRow(row pgx.Row) (*entity.Document, error) {
	var doc entity.Document
	var typeID string
	err := row.Scan(&doc.ID, &doc.Filename, &doc.ContentHash, &doc.Format,
		&doc.SizeBytes, &typeID, &doc.ClassificationConfidence,
		&doc.RequiresReverification, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	doc.TypeID = constants.TypeID(typeID)
	return &doc, nil
}
