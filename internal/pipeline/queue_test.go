package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/istmo-digital/docintel/internal/repository"
)

func writeDoc(t *testing.T, name, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestQueueProcessesJobAndFiresHook(t *testing.T) {
	store := repository.NewMemoryStore()
	processor := newTestProcessor(&scriptedClient{text: statementText}, store)

	var mu sync.Mutex
	var seen []Job
	hook := func(_ context.Context, job Job, out *Outcome) {
		mu.Lock()
		defer mu.Unlock()
		require.NotNil(t, out)
		seen = append(seen, job)
	}

	q := NewQueue(processor, nil, WithWorkers(2), WithOutcomeHook(hook))
	id := uuid.New()
	path := writeDoc(t, "extracto.jpg", "scan")

	require.NoError(t, q.Enqueue(context.Background(), Job{
		DocumentID: id,
		Path:       path,
		Filename:   "extracto.jpg",
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 1)
	assert.Equal(t, id, seen[0].DocumentID)
	assert.False(t, seen[0].SubmittedAt.IsZero())

	// The worker ran the full pipeline, so the record was preserved.
	_, err := store.GetCurrentRecord(context.Background(), id)
	assert.NoError(t, err)
}

func TestQueueSkipsUnreadablePath(t *testing.T) {
	store := repository.NewMemoryStore()
	processor := newTestProcessor(&scriptedClient{text: statementText}, store)

	fired := false
	q := NewQueue(processor, nil, WithWorkers(1), WithOutcomeHook(func(context.Context, Job, *Outcome) {
		fired = true
	}))

	require.NoError(t, q.Enqueue(context.Background(), Job{
		DocumentID: uuid.New(),
		Path:       filepath.Join(t.TempDir(), "missing.pdf"),
		Filename:   "missing.pdf",
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	assert.False(t, fired)
}

func TestQueueDropsJobsAfterShutdown(t *testing.T) {
	store := repository.NewMemoryStore()
	processor := newTestProcessor(&scriptedClient{text: statementText}, store)
	q := NewQueue(processor, nil, WithWorkers(1))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)
	q.Shutdown(ctx) // idempotent

	err := q.Enqueue(context.Background(), Job{
		DocumentID: uuid.New(),
		Path:       writeDoc(t, "late.jpg", "scan"),
		Filename:   "late.jpg",
	})
	assert.NoError(t, err)
	assert.Empty(t, store.ReviewTasks())
}
