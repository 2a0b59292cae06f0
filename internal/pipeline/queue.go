package pipeline

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/istmo-digital/docintel/internal/common"
)

// Job is one document handed to the background workers.
type Job struct {
	DocumentID  uuid.UUID
	Path        string
	Filename    string
	SubmittedAt time.Time
}

// Queue feeds documents to a worker pool running the processing pipeline.
type Queue struct {
	proc      *Processor
	logger    *slog.Logger
	workers   int
	timeout   time.Duration
	onOutcome func(context.Context, Job, *Outcome)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type QueueOption func(*Queue)

func WithWorkers(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithJobTimeout(d time.Duration) QueueOption {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithOutcomeHook registers a callback invoked after each successful run,
// before the worker picks up the next job.
func WithOutcomeHook(fn func(context.Context, Job, *Outcome)) QueueOption {
	return func(q *Queue) {
		q.onOutcome = fn
	}
}

func NewQueue(proc *Processor, logger *slog.Logger, opts ...QueueOption) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					q.run(workerID, job)
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *Queue) run(workerID int, job Job) {
	ctx, cancel := common.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	ctx = common.WithRequestID(ctx, uuid.New().String())

	data, err := os.ReadFile(job.Path)
	if err != nil {
		q.logger.Error("failed to read document",
			"worker_id", workerID, "document_id", job.DocumentID, "path", job.Path, "error", err)
		return
	}

	outcome, err := q.proc.Process(ctx, job.DocumentID, data, job.Filename)
	if err != nil {
		q.logger.Error("processing failed",
			"worker_id", workerID, "document_id", job.DocumentID, "error", err)
		return
	}
	q.logger.Info("document processed",
		"worker_id", workerID,
		"document_id", job.DocumentID,
		"state", outcome.State,
		"needs_review", outcome.Decision.RequiresReview)
	if q.onOutcome != nil {
		q.onOutcome(ctx, job, outcome)
	}
}

// Enqueue blocks when the buffer is full so the watcher cannot outrun the
// workers. Jobs submitted after Shutdown are dropped.
func (q *Queue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "document_id", job.DocumentID)
		return nil
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now().UTC()
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued document for processing", "document_id", job.DocumentID, "path", job.Path)
	default:
		q.logger.Warn("queue full, applying backpressure", "document_id", job.DocumentID)
		q.ch <- job
	}
	return nil
}

// Shutdown stops intake and waits for in-flight jobs until ctx expires.
func (q *Queue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
