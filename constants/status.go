package constants

// ExtractionState is the canonical state for an extraction run.
type ExtractionState string

// Stable values (store these exact strings in DB).
const (
	StateSubmitted        ExtractionState = "SUBMITTED"
	StatePrimaryRunning   ExtractionState = "PRIMARY_RUNNING"
	StatePrimaryFailed    ExtractionState = "PRIMARY_FAILED"
	StateFallbackRunning  ExtractionState = "FALLBACK_TEXT_RUNNING"
	StateFallbackFailed   ExtractionState = "FALLBACK_FAILED"
	StateAlternateRunning ExtractionState = "ALTERNATE_RUNNING"
	StateSucceeded        ExtractionState = "SUCCEEDED"
	StateAllFailed        ExtractionState = "ALL_FAILED"
)

// Terminal reports whether no further strategy transitions are possible.
func (s ExtractionState) Terminal() bool {
	return s == StateSucceeded || s == StateAllFailed
}

// ReviewReason explains why a document was routed to manual review.
type ReviewReason string

const (
	ReasonLowConfidence     ReviewReason = "LOW_CONFIDENCE"
	ReasonValidationErrors  ReviewReason = "VALIDATION_ERRORS"
	ReasonTooManyWarnings   ReviewReason = "TOO_MANY_WARNINGS"
	ReasonExtractionFailed  ReviewReason = "EXTRACTION_FAILED"
	ReasonFilenameOnly      ReviewReason = "FILENAME_CLASSIFICATION"
	ReasonDocumentExpiring ReviewReason = "DOCUMENT_EXPIRING"
)

// ReviewReasons lists every reason value as stored in the database.
func ReviewReasons() []string {
	return []string{
		string(ReasonLowConfidence),
		string(ReasonValidationErrors),
		string(ReasonTooManyWarnings),
		string(ReasonExtractionFailed),
		string(ReasonFilenameOnly),
		string(ReasonDocumentExpiring),
	}
}
