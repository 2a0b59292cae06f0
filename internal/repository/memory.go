package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/istmo-digital/docintel/internal/common"
	"github.com/istmo-digital/docintel/internal/extract"
	"github.com/istmo-digital/docintel/internal/ledger"
	"github.com/istmo-digital/docintel/internal/review"
)

// MemoryStore keeps records, snapshots and review tasks in process memory.
// It backs single-shot CLI runs where no database is configured, and
// satisfies ledger.Store and review.TaskStore.
type MemoryStore struct {
	mu        sync.RWMutex
	current   map[uuid.UUID]*extract.ExtractedRecord
	snapshots map[uuid.UUID][]ledger.VersionSnapshot
	tasks     []review.Task
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		current:   make(map[uuid.UUID]*extract.ExtractedRecord),
		snapshots: make(map[uuid.UUID][]ledger.VersionSnapshot),
	}
}

func (s *MemoryStore) GetCurrentRecord(_ context.Context, documentID uuid.UUID) (*extract.ExtractedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.current[documentID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return record, nil
}

func (s *MemoryStore) PutRecord(_ context.Context, documentID uuid.UUID, record *extract.ExtractedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current[documentID] = record
	return nil
}

func (s *MemoryStore) AppendSnapshot(_ context.Context, documentID uuid.UUID, snapshot ledger.VersionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[documentID] = append(s.snapshots[documentID], snapshot)
	return nil
}

func (s *MemoryStore) ListSnapshots(_ context.Context, documentID uuid.UUID) ([]ledger.VersionSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.VersionSnapshot, len(s.snapshots[documentID]))
	copy(out, s.snapshots[documentID])
	return out, nil
}

func (s *MemoryStore) CreateReviewTask(_ context.Context, task review.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
	return nil
}

// ReviewTasks returns a copy of the accumulated tasks.
func (s *MemoryStore) ReviewTasks() []review.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]review.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}
