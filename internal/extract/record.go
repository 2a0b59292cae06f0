// Package extract turns raw OCR output into typed field records.
package extract

import (
	"log/slog"

	"github.com/istmo-digital/docintel/constants"
	"github.com/istmo-digital/docintel/internal/patterns"
)

// Provenance marks where a field value came from.
type Provenance string

const (
	ProvenanceText     Provenance = "text"
	ProvenanceQuery    Provenance = "query"
	ProvenanceInferred Provenance = "inferred"
)

// SourceChannel marks which extraction channel produced a record.
type SourceChannel string

const (
	ChannelTextRegex     SourceChannel = "text_regex"
	ChannelTargetedQuery SourceChannel = "targeted_query"
	ChannelReconciled    SourceChannel = "reconciled"
)

// Line is one OCR text line with its page and recognition confidence.
type Line struct {
	Text       string  `json:"text"`
	Page       int     `json:"page"`
	Confidence float64 `json:"confidence"`
}

// Answer is one targeted-question answer from the OCR backend. Confidence is
// the backend's 0-100 scale.
type Answer struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// RawExtraction is the immutable output of one OCR job.
type RawExtraction struct {
	FullText        string            `json:"full_text"`
	Lines           []Line            `json:"lines,omitempty"`
	Tables          [][][]string      `json:"tables,omitempty"`
	KeyValuePairs   map[string]string `json:"key_value_pairs,omitempty"`
	TargetedAnswers map[string]Answer `json:"targeted_answers,omitempty"`
}

// FieldValue is one extracted field. Absent fields are absent from the map,
// never fabricated.
type FieldValue struct {
	Value      string     `json:"value"`
	Number     *float64   `json:"number,omitempty"`
	Normalized bool       `json:"normalized,omitempty"`
	Provenance Provenance `json:"provenance"`
	Confidence float64    `json:"confidence,omitempty"`
}

// ValidationReport collects data-quality findings for one extraction pass.
// It is append-only: findings are never removed once recorded.
type ValidationReport struct {
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	IsValid  bool     `json:"is_valid"`
}

func (v *ValidationReport) AddError(msg string) {
	v.Errors = append(v.Errors, msg)
}

func (v *ValidationReport) AddWarning(msg string) {
	v.Warnings = append(v.Warnings, msg)
}

// Transaction is one statement movement row.
type Transaction struct {
	Date        string  `json:"date"`
	Reference   string  `json:"reference,omitempty"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// Clause is one contract section located by its heading.
type Clause struct {
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
}

// ExtractedRecord is the structured result for one (document, version).
type ExtractedRecord struct {
	DocumentType  constants.DocumentType `json:"document_type"`
	TypeID        constants.TypeID       `json:"type_id"`
	Subtype       string                 `json:"subtype,omitempty"`
	Fields        map[string]FieldValue  `json:"fields"`
	SourceChannel SourceChannel          `json:"source_channel"`
	Confidence    float64                `json:"confidence"`
	Validation    ValidationReport       `json:"validation"`

	// Entities is the structured-pattern scan of the full text, kept for
	// reconciliation's last-resort number search and for generic output.
	Entities patterns.EntitySet `json:"entities,omitempty"`

	Transactions []Transaction `json:"transactions,omitempty"`
	Clauses      []Clause      `json:"clauses,omitempty"`
}

// SetField stores a field value, ignoring empty values so absent stays absent.
func (r *ExtractedRecord) SetField(name string, fv FieldValue) {
	if fv.Value == "" && fv.Number == nil {
		return
	}
	if r.Fields == nil {
		r.Fields = make(map[string]FieldValue)
	}
	r.Fields[name] = fv
}

// Field returns the named field value if present.
func (r *ExtractedRecord) Field(name string) (FieldValue, bool) {
	fv, ok := r.Fields[name]
	return fv, ok
}

// FieldExtractor pulls typed fields out of one raw OCR result.
type FieldExtractor interface {
	Extract(raw *RawExtraction, typeID constants.TypeID) *ExtractedRecord
}

// Registry is the closed dispatch table from document category to extractor.
type Registry struct {
	extractors map[constants.DocumentType]FieldExtractor
	generic    FieldExtractor
}

// NewRegistry wires the four concrete extractors over one shared library.
func NewRegistry(library *patterns.Library, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	generic := NewGenericExtractor(library, logger)
	return &Registry{
		extractors: map[constants.DocumentType]FieldExtractor{
			constants.DocTypeIdentity:  NewIdentityExtractor(library, logger),
			constants.DocTypeContract:  NewContractExtractor(library, logger),
			constants.DocTypeFinancial: NewFinancialExtractor(library, logger),
			constants.DocTypeGeneric:   generic,
		},
		generic: generic,
	}
}

// For returns the extractor for a document category; unknown categories fall
// back to the generic extractor.
func (r *Registry) For(docType constants.DocumentType) FieldExtractor {
	if e, ok := r.extractors[docType]; ok {
		return e
	}
	return r.generic
}

// confidenceFromRequired computes the fraction-of-required-fields confidence
// with the shared floor and ceiling.
func confidenceFromRequired(record *ExtractedRecord, required []string, bonus float64) float64 {
	if len(required) == 0 {
		return 0.3
	}
	present := 0
	for _, name := range required {
		if _, ok := record.Fields[name]; ok {
			present++
		}
	}
	confidence := float64(present)/float64(len(required)) + bonus
	if confidence < 0.3 {
		confidence = 0.3
	}
	if confidence > 0.95 {
		confidence = 0.95
	}
	return confidence
}

// finishValidation applies the shared warning budget rule.
func finishValidation(v *ValidationReport) {
	v.IsValid = len(v.Errors) == 0 && len(v.Warnings) <= 3
}
