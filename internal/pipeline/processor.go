// Package pipeline wires classification, extraction, reconciliation,
// review routing and version preservation into one document pass.
package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/istmo-digital/docintel/constants"
	"github.com/istmo-digital/docintel/internal/classify"
	"github.com/istmo-digital/docintel/internal/common"
	"github.com/istmo-digital/docintel/internal/extract"
	"github.com/istmo-digital/docintel/internal/ledger"
	"github.com/istmo-digital/docintel/internal/orchestrator"
	"github.com/istmo-digital/docintel/internal/reconcile"
	"github.com/istmo-digital/docintel/internal/review"
)

// Outcome summarizes one document pass.
type Outcome struct {
	DocumentID     uuid.UUID
	Classification classify.Result
	Record         *extract.ExtractedRecord
	Decision       review.Decision
	State          constants.ExtractionState
	Degraded       bool
}

// Processor runs the full pipeline for one document.
type Processor struct {
	classifier   *classify.Classifier
	orchestrator *orchestrator.Orchestrator
	registry     *extract.Registry
	reconciler   *reconcile.Engine
	router       *review.Router
	queue        review.Queue
	ledger       *ledger.Ledger
	logger       *slog.Logger
}

func NewProcessor(
	classifier *classify.Classifier,
	orch *orchestrator.Orchestrator,
	registry *extract.Registry,
	reconciler *reconcile.Engine,
	router *review.Router,
	queue review.Queue,
	led *ledger.Ledger,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		classifier:   classifier,
		orchestrator: orch,
		registry:     registry,
		reconciler:   reconciler,
		router:       router,
		queue:        queue,
		ledger:       led,
		logger:       logger,
	}
}

// Process runs classification, the extraction strategy chain,
// reconciliation, review routing and preservation for one document. The
// prior record, if any, is snapshotted before the new one lands.
func (p *Processor) Process(ctx context.Context, documentID uuid.UUID, document []byte, filename string) (*Outcome, error) {
	ctx = common.WithDocumentID(ctx, documentID.String())

	// Filename gives a provisional type so the right question catalog
	// rides along with the first backend call.
	provisional := p.classifier.ByFilename(filename)
	p.logger.Info("document submitted",
		"document_id", documentID, "filename", filename, "provisional_type", provisional.TypeID)

	result, err := p.orchestrator.Run(ctx, orchestrator.Input{
		Document: document,
		Filename: filename,
		TypeID:   provisional.TypeID,
	})
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		DocumentID: documentID,
		State:      result.State,
		Degraded:   result.Degraded,
	}

	if result.State == constants.StateAllFailed {
		outcome.Classification = provisional
		outcome.Decision = review.Decision{RequiresReview: true, Reason: result.FailureReason}
		if err := p.queue.Enqueue(ctx, review.Task{
			DocumentID: documentID,
			Reason:     result.FailureReason,
		}); err != nil {
			return nil, err
		}
		return outcome, nil
	}

	classification := p.reclassify(provisional, result.Raw.FullText)
	outcome.Classification = classification

	extracted := p.registry.For(classification.DocumentType).Extract(result.Raw, classification.TypeID)
	merged := p.reconciler.Reconcile(extracted, result.Raw.TargetedAnswers)
	merged.Confidence = overallConfidence(classification.Confidence, merged, result.Raw)
	outcome.Record = merged

	decision := p.router.Evaluate(merged)
	if !decision.RequiresReview && classification.RequiresReverification {
		// Nothing in the text confirmed the filename's claim.
		decision.RequiresReview = true
		decision.Reason = constants.ReasonFilenameOnly
	}
	outcome.Decision = decision

	if decision.RequiresReview {
		if err := p.queue.Enqueue(ctx, review.Task{
			DocumentID: documentID,
			Record:     merged,
			Reason:     decision.Reason,
			Confidence: decision.Confidence,
			Threshold:  decision.Threshold,
		}); err != nil {
			return nil, err
		}
	}

	if err := p.ledger.Preserve(ctx, documentID, merged, "reprocess"); err != nil {
		return nil, err
	}

	p.logger.Info("document processed",
		"document_id", documentID,
		"type_id", classification.TypeID,
		"confidence", merged.Confidence,
		"needs_review", decision.RequiresReview,
		"degraded", result.Degraded)
	return outcome, nil
}

// reclassify replaces the filename guess with a text classification when
// the extraction produced usable text.
func (p *Processor) reclassify(provisional classify.Result, fullText string) classify.Result {
	if strings.TrimSpace(fullText) == "" {
		return provisional
	}
	classification := p.classifier.Classify(fullText)
	if classification.TypeID == constants.TypeUnknown {
		return provisional
	}
	if classification.TypeID != provisional.TypeID {
		p.logger.Info("text classification overrode filename",
			"filename_type", provisional.TypeID, "text_type", classification.TypeID)
	}
	return classification
}

// overallConfidence averages the classification confidence, the mean
// targeted-answer confidence, a text-volume band and the record's own
// field-coverage score.
func overallConfidence(classConf float64, record *extract.ExtractedRecord, raw *extract.RawExtraction) float64 {
	components := []float64{classConf, record.Confidence, textBand(len(raw.FullText))}
	if len(raw.TargetedAnswers) > 0 {
		total := 0.0
		for _, a := range raw.TargetedAnswers {
			total += a.Confidence / 100
		}
		components = append(components, total/float64(len(raw.TargetedAnswers)))
	}

	sum := 0.0
	for _, c := range components {
		sum += c
	}
	confidence := sum / float64(len(components))
	if confidence > 0.95 {
		confidence = 0.95
	}
	if confidence < 0 {
		confidence = 0
	}
	return confidence
}

func textBand(chars int) float64 {
	switch {
	case chars > 2000:
		return 0.9
	case chars > 800:
		return 0.7
	case chars > 200:
		return 0.5
	default:
		return 0.3
	}
}
