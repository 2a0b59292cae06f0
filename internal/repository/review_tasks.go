package repository

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/istmo-digital/docintel/constants"
	"github.com/istmo-digital/docintel/internal/common"
	"github.com/istmo-digital/docintel/internal/review"
)

// ReviewTaskRepository persists manual-review tasks. It satisfies
// review.TaskStore.
type ReviewTaskRepository struct {
	db     Querier
	logger *slog.Logger
}

func NewReviewTaskRepository(db Querier, logger *slog.Logger) *ReviewTaskRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewTaskRepository{db: db, logger: logger}
}

func (r *ReviewTaskRepository) CreateReviewTask(ctx context.Context, task review.Task) error {
	payload, err := json.Marshal(task.Record)
	if err != nil {
		return common.WrapError(err, "failed to encode review record")
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO review_tasks (id, document_id, record, reason, confidence, threshold, created_at, resolved_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NULL)`,
		task.ID, task.DocumentID, payload, string(task.Reason),
		task.Confidence, task.Threshold, task.CreatedAt)
	if err != nil {
		r.logger.Error("failed to create review task", "document_id", task.DocumentID, "error", err)
		return common.WrapError(err, "failed to create review task")
	}
	return nil
}

// ListOpen returns unresolved tasks, oldest first.
func (r *ReviewTaskRepository) ListOpen(ctx context.Context, limit int) ([]review.Task, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, record, reason, confidence, threshold, created_at
		 FROM review_tasks
		 WHERE resolved_at IS NULL
		 ORDER BY created_at ASC
		 LIMIT $1`, limit)
	if err != nil {
		r.logger.Error("failed to list review tasks", "error", err)
		return nil, common.WrapError(err, "failed to list review tasks")
	}
	defer rows.Close()

	var tasks []review.Task
	for rows.Next() {
		var task review.Task
		var payload []byte
		var reason string
		if err := rows.Scan(&task.ID, &task.DocumentID, &payload, &reason,
			&task.Confidence, &task.Threshold, &task.CreatedAt); err != nil {
			return nil, common.WrapError(err, "failed to scan review task")
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

// Resolve marks a task done.
func (r *ReviewTaskRepository) Resolve(ctx context.Context, taskID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE review_tasks SET resolved_at = $2 WHERE id = $1 AND resolved_at IS NULL`,
		taskID, time.Now().UTC())
	if err != nil {
		r.logger.Error("failed to resolve review task", "task_id", taskID, "error", err)
		return common.WrapError(err, "failed to resolve review task")
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	r.logger.Info("review task resolved", "task_id", taskID)
	return nil
}
