// Package ledger keeps the versioned history of extraction records. A
// current record is never overwritten until a snapshot of it has been
// durably appended.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/istmo-digital/docintel/internal/common"
	"github.com/istmo-digital/docintel/internal/extract"
)

// VersionSnapshot is one preserved prior state of a document's record.
// Version numbers are 1-based and contiguous per document.
type VersionSnapshot struct {
	VersionNumber int                      `json:"version_number"`
	Record        *extract.ExtractedRecord `json:"record"`
	PreservedAt   time.Time                `json:"preserved_at"`
	Reason        string                   `json:"reason"`
}

// Store is the persistence surface the ledger writes through.
// *repository.SnapshotRepository and *repository.MemoryStore satisfy it.
type Store interface {
	GetCurrentRecord(ctx context.Context, documentID uuid.UUID) (*extract.ExtractedRecord, error)
	PutRecord(ctx context.Context, documentID uuid.UUID, record *extract.ExtractedRecord) error
	AppendSnapshot(ctx context.Context, documentID uuid.UUID, snapshot VersionSnapshot) error
	ListSnapshots(ctx context.Context, documentID uuid.UUID) ([]VersionSnapshot, error)
}

// Ledger coordinates preservation, history and restore for one store.
type Ledger struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewLedger(store Store, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{store: store, logger: logger, now: time.Now}
}

// Preserve replaces the document's current record with next, snapshotting
// the existing record first. If the snapshot cannot be appended the current
// record is left untouched and the replacement is aborted.
func (l *Ledger) Preserve(ctx context.Context, documentID uuid.UUID, next *extract.ExtractedRecord, reason string) error {
	current, err := l.store.GetCurrentRecord(ctx, documentID)
	switch {
	case errors.Is(err, common.ErrNotFound):
		// First record for this document, nothing to preserve.
	case err != nil:
		return common.WrapError(err, "failed to load current record")
	default:
		version, err := l.nextVersion(ctx, documentID)
		if err != nil {
			return err
		}
		snapshot := VersionSnapshot{
			VersionNumber: version,
			Record:        current,
			PreservedAt:   l.now().UTC(),
			Reason:        reason,
		}
		if err := l.store.AppendSnapshot(ctx, documentID, snapshot); err != nil {
			l.logger.Error("snapshot append failed, overwrite aborted",
				"document_id", documentID, "version", version, "error", err)
			return common.NewAppError("PRESERVATION_FAILED", "snapshot append failed", common.ErrPreservation)
		}
		l.logger.Info("record version preserved",
			"document_id", documentID, "version", version, "reason", reason)
	}

	if err := l.store.PutRecord(ctx, documentID, next); err != nil {
		return common.WrapError(err, "failed to store record")
	}
	return nil
}

// History returns the preserved versions of a document, newest first.
func (l *Ledger) History(ctx context.Context, documentID uuid.UUID) ([]VersionSnapshot, error) {
	snapshots, err := l.store.ListSnapshots(ctx, documentID)
	if err != nil {
		return nil, common.WrapError(err, "failed to list snapshots")
	}
	out := make([]VersionSnapshot, len(snapshots))
	for i, s := range snapshots {
		out[len(snapshots)-1-i] = s
	}
	return out, nil
}

// Restore makes an earlier version the current record. The record being
// displaced is preserved first, so a restore is itself undoable.
func (l *Ledger) Restore(ctx context.Context, documentID uuid.UUID, versionNumber int) (*extract.ExtractedRecord, error) {
	snapshots, err := l.store.ListSnapshots(ctx, documentID)
	if err != nil {
		return nil, common.WrapError(err, "failed to list snapshots")
	}
	var target *VersionSnapshot
	for i := range snapshots {
		if snapshots[i].VersionNumber == versionNumber {
			target = &snapshots[i]
			break
		}
	}
	if target == nil {
		return nil, common.NewAppError("VERSION_NOT_FOUND", "no such version", common.ErrNotFound)
	}

	if err := l.Preserve(ctx, documentID, target.Record, "restore"); err != nil {
		return nil, err
	}
	l.logger.Info("record restored", "document_id", documentID, "version", versionNumber)
	return target.Record, nil
}

// Current returns the document's current record.
func (l *Ledger) Current(ctx context.Context, documentID uuid.UUID) (*extract.ExtractedRecord, error) {
	return l.store.GetCurrentRecord(ctx, documentID)
}

func (l *Ledger) nextVersion(ctx context.Context, documentID uuid.UUID) (int, error) {
	snapshots, err := l.store.ListSnapshots(ctx, documentID)
	if err != nil {
		return 0, common.WrapError(err, "failed to list snapshots")
	}
	highest := 0
	for _, s := range snapshots {
		if s.VersionNumber > highest {
			highest = s.VersionNumber
		}
	}
	return highest + 1, nil
}
