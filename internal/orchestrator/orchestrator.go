// Package orchestrator drives a document through the extraction strategy
// chain: full structural analysis with targeted questions, structural
// analysis without questions, plain text detection, then local extraction.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/istmo-digital/docintel/constants"
	"github.com/istmo-digital/docintel/internal/common"
	"github.com/istmo-digital/docintel/internal/extract"
	"github.com/istmo-digital/docintel/internal/ocr"
)

// Input is one document submitted to the strategy chain.
type Input struct {
	Document []byte
	Filename string
	TypeID   constants.TypeID
	Subtype  constants.ContractSubtype
}

// Result carries the winning channel's output and the transition trail.
type Result struct {
	Raw      *extract.RawExtraction
	State    constants.ExtractionState
	Trail    []constants.ExtractionState
	Degraded bool
	// FailureReason is set when State is ALL_FAILED.
	FailureReason constants.ReviewReason
}

// Orchestrator owns the degradation ladder between the backend client and
// the local extractor.
type Orchestrator struct {
	client    ocr.Client
	local     *ocr.LocalExtractor
	cfg       common.ExtractionConfig
	questions *common.TTLCache
	logger    *slog.Logger
}

func New(client ocr.Client, local *ocr.LocalExtractor, cfg common.ExtractionConfig, questions *common.TTLCache, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if questions == nil {
		questions = common.NewTTLCache(0)
	}
	return &Orchestrator{client: client, local: local, cfg: cfg, questions: questions, logger: logger}
}

// Run executes the strategy chain for one document. It never returns an
// error alongside a usable result: a terminal ALL_FAILED state carries the
// failure reason instead.
func (o *Orchestrator) Run(ctx context.Context, input Input) (*Result, error) {
	result := &Result{State: constants.StateSubmitted}
	result.Trail = append(result.Trail, constants.StateSubmitted)

	if o.preferLocal(input) {
		if raw, ok := o.tryLocal(ctx, input, result); ok {
			result.Raw = raw
			o.transition(result, constants.StateSucceeded)
			return result, nil
		}
		// Local miss on a small PDF is not terminal, the backend chain
		// still runs.
		result.Degraded = false
	}

	if raw, ok := o.tryPrimary(ctx, input, result); ok {
		result.Raw = raw
		o.transition(result, constants.StateSucceeded)
		return result, nil
	}

	if raw, ok := o.tryDetectText(ctx, input, result); ok {
		result.Raw = raw
		result.Degraded = true
		o.transition(result, constants.StateSucceeded)
		return result, nil
	}

	if !o.preferLocal(input) {
		if raw, ok := o.tryLocal(ctx, input, result); ok {
			result.Raw = raw
			result.Degraded = true
			o.transition(result, constants.StateSucceeded)
			return result, nil
		}
	}

	o.transition(result, constants.StateAllFailed)
	result.FailureReason = constants.ReasonExtractionFailed
	o.logger.Error("all extraction strategies failed", "filename", input.Filename, "type_id", input.TypeID)
	return result, nil
}

// preferLocal sends small PDFs through the local extractor first. Identity
// documents always go to the backend: they are scans with no text layer.
func (o *Orchestrator) preferLocal(input Input) bool {
	if constants.CategoryOf(input.TypeID) == constants.DocTypeIdentity {
		return false
	}
	ext := constants.NormalizeExt(filepath.Ext(input.Filename))
	return constants.FormatForExt(ext) == "PDF" && int64(len(input.Document)) <= o.cfg.LocalPDFLimit
}

// tryPrimary runs structural analysis with questions and degrades to a
// question-less call when the backend rejects the query set.
func (o *Orchestrator) tryPrimary(ctx context.Context, input Input, result *Result) (*extract.RawExtraction, bool) {
	o.transition(result, constants.StatePrimaryRunning)

	questions := o.questionSet(input.TypeID, input.Subtype)

	out, err := o.analyze(ctx, input, questions)
	if err == nil {
		return &out.Raw, true
	}
	o.transition(result, constants.StatePrimaryFailed)

	if errors.Is(err, ocr.ErrQuestionsRejected) {
		o.logger.Warn("query set rejected, retrying without questions",
			"filename", input.Filename, "questions", len(questions))
		o.transition(result, constants.StateAlternateRunning)
		out, err = o.analyze(ctx, input, nil)
		if err == nil {
			result.Degraded = true
			return &out.Raw, true
		}
	}

	o.logger.Warn("structural analysis failed", "filename", input.Filename, "error", err)
	return nil, false
}

// questionSet returns the validated, capped query set for a document type.
// Building the set walks the question catalog and filters malformed entries,
// so the result is cached per (type, subtype) for the configured TTL.
func (o *Orchestrator) questionSet(typeID constants.TypeID, subtype constants.ContractSubtype) []ocr.Question {
	key := "questions/" + string(typeID) + "/" + string(subtype)
	if cached, ok := o.questions.Get(key); ok {
		return cached.([]ocr.Question)
	}

	questions := ocr.ValidateQuestions(ocr.QuestionsFor(typeID, subtype), o.logger)
	if o.cfg.MaxQuestions > 0 && len(questions) > o.cfg.MaxQuestions {
		questions = questions[:o.cfg.MaxQuestions]
	}
	o.questions.Put(key, questions)
	return questions
}

func (o *Orchestrator) analyze(ctx context.Context, input Input, questions []ocr.Question) (*ocr.AnalysisOutput, error) {
	features := []ocr.Feature{ocr.FeatureTables, ocr.FeatureForms, ocr.FeatureLayout}
	if len(questions) > 0 {
		features = append(features, ocr.FeatureQueries)
	}

	var out *ocr.AnalysisOutput
	err := withRetry(ctx, o.logger, o.cfg.MaxRetries, o.cfg.BaseDelay, "analyze_document", func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
		defer cancel()
		var err error
		out, err = o.client.AnalyzeDocument(callCtx, ocr.AnalysisInput{
			Document:  input.Document,
			Filename:  input.Filename,
			Features:  features,
			Questions: questions,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("backend returned no analysis output")
	}
	return out, nil
}

func (o *Orchestrator) tryDetectText(ctx context.Context, input Input, result *Result) (*extract.RawExtraction, bool) {
	o.transition(result, constants.StateFallbackRunning)

	var text string
	err := withRetry(ctx, o.logger, o.cfg.MaxRetries, o.cfg.BaseDelay, "detect_text", func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
		defer cancel()
		var err error
		text, err = o.client.DetectText(callCtx, input.Document)
		return err
	})
	if err != nil || strings.TrimSpace(text) == "" {
		o.transition(result, constants.StateFallbackFailed)
		o.logger.Warn("text detection failed", "filename", input.Filename, "error", err)
		return nil, false
	}
	return rawFromText(text), true
}

// tryLocal runs the in-process extractor. In-band ERROR:/WARNING: signals
// count as failure.
func (o *Orchestrator) tryLocal(ctx context.Context, input Input, result *Result) (*extract.RawExtraction, bool) {
	if o.local == nil {
		return nil, false
	}
	o.transition(result, constants.StateAlternateRunning)

	text := o.local.ExtractText(ctx, input.Document, input.Filename)
	if ocr.IsFailureSignal(text) {
		o.transition(result, constants.StateFallbackFailed)
		o.logger.Info("local extraction signalled failure", "filename", input.Filename, "signal", firstLine(text))
		return nil, false
	}
	return rawFromText(text), true
}

func (o *Orchestrator) transition(result *Result, next constants.ExtractionState) {
	o.logger.Debug("extraction state transition", "from", result.State, "to", next)
	result.State = next
	result.Trail = append(result.Trail, next)
}

func rawFromText(text string) *extract.RawExtraction {
	return &extract.RawExtraction{
		FullText: text,
		Lines:    splitLines(text),
	}
}

func splitLines(text string) []extract.Line {
	var lines []extract.Line
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, extract.Line{Text: trimmed, Page: 1})
		}
	}
	return lines
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
