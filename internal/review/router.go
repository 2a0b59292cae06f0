// Package review decides whether an extraction needs a human and persists
// the resulting review tasks.
package review

import (
	"log/slog"

	"github.com/istmo-digital/docintel/constants"
	"github.com/istmo-digital/docintel/internal/common"
	"github.com/istmo-digital/docintel/internal/extract"
)

// A record with more warnings than this is routed to review even when its
// confidence clears the threshold.
const maxTolerableWarnings = 2

// Decision is the routing outcome for one extracted record.
type Decision struct {
	RequiresReview bool
	Reason         constants.ReviewReason
	Threshold      float64
	Confidence     float64
}

// Router applies the per-type confidence thresholds.
type Router struct {
	cfg    common.ReviewConfig
	logger *slog.Logger
}

func NewRouter(cfg common.ReviewConfig, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{cfg: cfg, logger: logger}
}

// Threshold returns the confidence threshold for a document type.
func (r *Router) Threshold(typeID constants.TypeID) float64 {
	if t, ok := r.cfg.TypeThresholds[string(typeID)]; ok {
		return t
	}
	return r.cfg.DefaultThreshold
}

// Evaluate routes a record to manual review when its confidence falls below
// the type threshold, when validation recorded errors, or when warnings
// exceed the tolerable count.
func (r *Router) Evaluate(record *extract.ExtractedRecord) Decision {
	threshold := r.Threshold(record.TypeID)
	decision := Decision{Threshold: threshold, Confidence: record.Confidence}

	switch {
	case len(record.Validation.Errors) > 0:
		decision.RequiresReview = true
		decision.Reason = constants.ReasonValidationErrors
	case record.Confidence < threshold:
		decision.RequiresReview = true
		decision.Reason = constants.ReasonLowConfidence
	case len(record.Validation.Warnings) > maxTolerableWarnings:
		decision.RequiresReview = true
		decision.Reason = constants.ReasonTooManyWarnings
	}

	if decision.RequiresReview {
		r.logger.Info("record routed to manual review",
			"type_id", record.TypeID,
			"reason", decision.Reason,
			"confidence", record.Confidence,
			"threshold", threshold,
			"errors", len(record.Validation.Errors),
			"warnings", len(record.Validation.Warnings))
	}
	return decision
}
