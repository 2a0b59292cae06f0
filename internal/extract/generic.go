package extract

import (
	"log/slog"
	"strings"

	"github.com/istmo-digital/docintel/constants"
	"github.com/istmo-digital/docintel/internal/patterns"
)

// GenericExtractor is the best-effort extractor for receipts, KYC forms and
// anything without a dedicated parser. It reports the structured entity scan
// as fields and never errors.
type GenericExtractor struct {
	library *patterns.Library
	logger  *slog.Logger
}

func NewGenericExtractor(library *patterns.Library, logger *slog.Logger) *GenericExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenericExtractor{library: library, logger: logger}
}

func (e *GenericExtractor) Extract(raw *RawExtraction, typeID constants.TypeID) *ExtractedRecord {
	text := raw.FullText
	record := &ExtractedRecord{
		DocumentType:  constants.DocTypeGeneric,
		TypeID:        typeID,
		SourceChannel: ChannelTextRegex,
		Fields:        make(map[string]FieldValue),
		Entities:      e.library.ScanEntities(text),
	}

	if len(record.Entities.Emails) > 0 {
		record.SetField("email", FieldValue{Value: record.Entities.Emails[0], Provenance: ProvenanceText})
	}
	if len(record.Entities.Phones) > 0 {
		record.SetField("telefono", FieldValue{Value: record.Entities.Phones[0], Provenance: ProvenanceText})
	}
	if len(record.Entities.Cedulas) > 0 {
		record.SetField("numero_documento", FieldValue{Value: record.Entities.Cedulas[0], Provenance: ProvenanceText})
	}
	if len(record.Entities.IBANs) > 0 {
		record.SetField("iban", FieldValue{Value: record.Entities.IBANs[0], Provenance: ProvenanceText})
	}
	if len(record.Entities.Dates) > 0 {
		if iso, _, err := patterns.NormalizeDate(record.Entities.Dates[0]); err == nil {
			record.SetField("fecha", FieldValue{Value: iso, Normalized: true, Provenance: ProvenanceText})
		} else {
			record.SetField("fecha", FieldValue{Value: record.Entities.Dates[0], Provenance: ProvenanceText})
		}
	}
	if value, rawAmount, ok := e.library.LargestAmount(text); ok {
		v := value
		record.SetField("importe", FieldValue{Value: rawAmount, Number: &v, Provenance: ProvenanceText})
	}
	if currency := patterns.DetectCurrency(text); currency != "" {
		record.SetField("moneda", FieldValue{Value: currency, Provenance: ProvenanceText})
	}

	if strings.TrimSpace(text) == "" {
		record.Validation.AddWarning("documento sin texto")
	} else if record.Entities.Empty() {
		record.Validation.AddWarning("sin entidades estructuradas detectadas")
	}
	finishValidation(&record.Validation)

	// Generic yield is graded on entity richness rather than required fields.
	record.Confidence = 0.3 + 0.1*float64(len(record.Fields))
	if record.Confidence > 0.7 {
		record.Confidence = 0.7
	}
	return record
}
