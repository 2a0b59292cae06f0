// Package expiry sweeps extracted records for documents whose validity is
// about to lapse and pushes the urgent ones into the review queue so a
// renewal can be requested.
package expiry

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/istmo-digital/docintel/constants"
	"github.com/istmo-digital/docintel/internal/common"
	"github.com/istmo-digital/docintel/internal/entity"
	"github.com/istmo-digital/docintel/internal/extract"
	"github.com/istmo-digital/docintel/internal/ledger"
	"github.com/istmo-digital/docintel/internal/repository"
	"github.com/istmo-digital/docintel/internal/review"
)

// renewalWindowDays is the horizon inside which an expiring document is
// escalated to the review queue instead of only being reported.
const renewalWindowDays = 15

// sweepLimit bounds one sweep; a nightly run covers the backlog in slices.
const sweepLimit = 500

// expiryFields are checked in order; the first parseable date wins.
var expiryFields = []string{"fecha_expiracion", "fecha_vencimiento", "fecha_fin"}

var dateLayouts = []string{"2006-01-02", "02/01/2006"}

// Candidate is one document inside the sweep window.
type Candidate struct {
	Document  *entity.Document
	ExpiresAt time.Time
	DaysLeft  int
	// Field names the record field the expiry date came from.
	Field string
}

// Stats summarizes one sweep.
type Stats struct {
	Scanned  int
	Expiring int
	Enqueued int
	Skipped  int
}

// Monitor walks the document inventory against current records.
type Monitor struct {
	documents repository.DocumentRepository
	records   ledger.Store
	queue     review.Queue
	logger    *slog.Logger
	now       func() time.Time
}

func NewMonitor(documents repository.DocumentRepository, records ledger.Store, queue review.Queue, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		documents: documents,
		records:   records,
		queue:     queue,
		logger:    logger,
		now:       time.Now,
	}
}

// Sweep reports every document expiring within windowDays. Documents inside
// the renewal window additionally land on the review queue. Identity
// documents outrank the rest, then closer expiry outranks farther.
func (m *Monitor) Sweep(ctx context.Context, windowDays int) ([]Candidate, Stats, error) {
	if windowDays <= 0 {
		windowDays = 30
	}
	var stats Stats

	docs, err := m.documents.List(ctx, "", sweepLimit)
	if err != nil {
		return nil, stats, common.WrapError(err, "failed to list documents")
	}

	today := m.now().UTC().Truncate(24 * time.Hour)
	var candidates []Candidate
	for _, doc := range docs {
		stats.Scanned++

		record, err := m.records.GetCurrentRecord(ctx, doc.ID)
		if errors.Is(err, common.ErrNotFound) {
			stats.Skipped++
			continue
		}
		if err != nil {
			return nil, stats, common.WrapError(err, "failed to load record")
		}

		expiresAt, field, ok := expiryDate(record.Fields)
		if !ok {
			stats.Skipped++
			continue
		}

		daysLeft := int(expiresAt.Sub(today).Hours() / 24)
		if daysLeft < 0 || daysLeft > windowDays {
			continue
		}
		stats.Expiring++
		candidates = append(candidates, Candidate{
			Document:  doc,
			ExpiresAt: expiresAt,
			DaysLeft:  daysLeft,
			Field:     field,
		})

		if daysLeft > renewalWindowDays {
			continue
		}
		task := review.Task{
			DocumentID: doc.ID,
			Record:     record,
			Reason:     constants.ReasonDocumentExpiring,
			Confidence: record.Confidence,
		}
		if err := m.queue.Enqueue(ctx, task); err != nil {
			return nil, stats, common.WrapError(err, "failed to enqueue renewal task")
		}
		stats.Enqueued++
		m.logger.Warn("document expiring, renewal requested",
			"document_id", doc.ID,
			"type_id", doc.TypeID,
			"expires_at", expiresAt.Format("2006-01-02"),
			"days_left", daysLeft)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ri, rj := categoryRank(candidates[i].Document.TypeID), categoryRank(candidates[j].Document.TypeID)
		if ri != rj {
			return ri < rj
		}
		return candidates[i].DaysLeft < candidates[j].DaysLeft
	})

	m.logger.Info("expiry sweep complete",
		"window_days", windowDays,
		"scanned", stats.Scanned,
		"expiring", stats.Expiring,
		"enqueued", stats.Enqueued,
		"skipped", stats.Skipped)
	return candidates, stats, nil
}

// categoryRank orders candidates: an expired cédula blocks every banking
// operation, a lapsed contract only its own product.
func categoryRank(typeID constants.TypeID) int {
	switch constants.CategoryOf(typeID) {
	case constants.DocTypeIdentity:
		return 0
	case constants.DocTypeContract:
		return 1
	case constants.DocTypeFinancial:
		return 2
	default:
		return 3
	}
}

func expiryDate(fields map[string]extract.FieldValue) (time.Time, string, bool) {
	for _, name := range expiryFields {
		fv, ok := fields[name]
		if !ok || fv.Value == "" {
			continue
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, fv.Value); err == nil {
				return t.UTC(), name, true
			}
		}
	}
	return time.Time{}, "", false
}
