package review

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/istmo-digital/docintel/constants"
	"github.com/istmo-digital/docintel/internal/common"
	"github.com/istmo-digital/docintel/internal/extract"
)

// Task is one pending manual-review item.
type Task struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	Record     *extract.ExtractedRecord
	Reason     constants.ReviewReason
	Confidence float64
	Threshold  float64
	CreatedAt  time.Time
}

// Queue receives records that failed automated acceptance.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
}

// TaskStore persists review tasks. *repository.ReviewTaskRepository
// satisfies it.
type TaskStore interface {
	CreateReviewTask(ctx context.Context, task Task) error
}

// TaskLister reads back pending tasks for the review workflow.
type TaskLister interface {
	ListOpen(ctx context.Context, limit int) ([]Task, error)
	Resolve(ctx context.Context, taskID uuid.UUID) error
}

// LogQueue announces review tasks on the structured log only. It backs the
// CLI, where no database is configured.
type LogQueue struct {
	logger *slog.Logger
}

func NewLogQueue(logger *slog.Logger) *LogQueue {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogQueue{logger: logger}
}

func (q *LogQueue) Enqueue(_ context.Context, task Task) error {
	q.logger.Warn("manual review required",
		"document_id", task.DocumentID,
		"reason", task.Reason,
		"confidence", task.Confidence,
		"threshold", task.Threshold)
	return nil
}

// StoreQueue persists review tasks through a TaskStore.
type StoreQueue struct {
	store  TaskStore
	logger *slog.Logger
}

func NewStoreQueue(store TaskStore, logger *slog.Logger) *StoreQueue {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreQueue{store: store, logger: logger}
}

func (q *StoreQueue) Enqueue(ctx context.Context, task Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	if err := q.store.CreateReviewTask(ctx, task); err != nil {
		return common.WrapError(err, "failed to persist review task")
	}
	q.logger.Info("review task enqueued",
		"task_id", task.ID,
		"document_id", task.DocumentID,
		"reason", task.Reason)
	return nil
}
