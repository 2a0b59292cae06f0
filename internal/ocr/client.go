// Package ocr talks to the managed document-analysis backend and provides
// the local fallback text extractor.
package ocr

import (
	"context"
	"errors"

	"github.com/istmo-digital/docintel/internal/extract"
)

// Feature selects an analysis capability on the backend.
type Feature string

const (
	FeatureTables  Feature = "TABLES"
	FeatureForms   Feature = "FORMS"
	FeatureQueries Feature = "QUERIES"
	FeatureLayout  Feature = "LAYOUT"
)

// Backend error conditions the orchestrator degrades on.
var (
	// ErrQuestionsRejected means the backend refused the submitted query
	// set. Retrying without questions can still succeed.
	ErrQuestionsRejected = errors.New("backend rejected the query set")

	// ErrThrottled means the backend rate-limited the call.
	ErrThrottled = errors.New("backend throttled the request")

	// ErrBackendUnavailable means no analysis backend is configured.
	ErrBackendUnavailable = errors.New("analysis backend not configured")
)

// AnalysisInput is one document submitted for structural analysis.
type AnalysisInput struct {
	Document  []byte
	Filename  string
	Features  []Feature
	Questions []Question
}

// AnalysisOutput is the backend's structural read of a document, mapped
// into the extraction channel types.
type AnalysisOutput struct {
	Raw   extract.RawExtraction
	Pages int
}

// Client is the document-analysis backend surface. Implementations wrap the
// cloud SDK; tests stub it.
type Client interface {
	// AnalyzeDocument runs structural analysis with the requested features.
	// Targeted questions are answered into Raw.TargetedAnswers keyed by
	// alias.
	AnalyzeDocument(ctx context.Context, input AnalysisInput) (*AnalysisOutput, error)

	// DetectText runs plain line detection without structural analysis.
	DetectText(ctx context.Context, document []byte) (string, error)
}

// Unavailable is the Client for local-only deployments. Every call fails
// immediately so the orchestrator moves straight to the local extractor.
type Unavailable struct{}

func (Unavailable) AnalyzeDocument(context.Context, AnalysisInput) (*AnalysisOutput, error) {
	return nil, ErrBackendUnavailable
}

func (Unavailable) DetectText(context.Context, []byte) (string, error) {
	return "", ErrBackendUnavailable
}
