// Package reconcile merges the free-text regex channel with the targeted
// query channel into one authoritative record.
package reconcile

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/istmo-digital/docintel/constants"
	"github.com/istmo-digital/docintel/internal/extract"
	"github.com/istmo-digital/docintel/internal/patterns"
)

// FieldKind selects the arbitration rule for a field.
type FieldKind int

const (
	KindText FieldKind = iota
	KindName
	KindDate
	KindEnum
	KindNumber
)

// Backend answer confidences run 0-100.
const (
	agreeThreshold    = 80.0
	fallbackThreshold = 50.0

	// Confidence assigned to an accepted text-channel value that carries no
	// score of its own.
	textChannelConfidence = 60.0

	duplicateOverlap = 0.5
)

// aliasCanonical maps every known question alias to its canonical field.
var aliasCanonical = map[string]string{
	"numero_documento":   "numero_documento",
	"numero_cedula":      "numero_documento",
	"numero_pasaporte":   "numero_documento",
	"nombres":            "nombres",
	"nombre_completo":    "nombres",
	"apellidos":          "apellidos",
	"fecha_nacimiento":   "fecha_nacimiento",
	"fecha_emision":      "fecha_emision",
	"fecha_expiracion":   "fecha_expiracion",
	"nacionalidad":       "nacionalidad",
	"genero":             "genero",
	"lugar_nacimiento":   "lugar_nacimiento",
	"numero_contrato":    "numero_contrato",
	"monto_prestamo":     "monto",
	"monto":              "monto",
	"tasa_interes":       "tasa_interes",
	"plazo":              "plazo_meses",
	"plazo_meses":        "plazo_meses",
	"fecha_inicio":       "fecha_inicio",
	"fecha_contrato":     "fecha_inicio",
	"fecha_vencimiento":  "fecha_fin",
	"fecha_fin":          "fecha_fin",
	"nombre_deudor":      "firmantes",
	"limite_credito":     "monto",
	"numero_cuenta":      "numero_cuenta",
	"numero_tarjeta":     "numero_contrato",
	"tipo_cuenta":        "tipo_contrato",
	"saldo_inicial":      "saldo_inicial",
	"saldo_final":        "saldo_final",
	"banco":              "banco",
	"moneda":             "moneda",
	"fecha":              "fecha",
	"importe":            "importe",
	"emisor":             "emisor",
	"beneficiario":       "beneficiario",
}

// fieldKinds assigns arbitration rules per canonical field. Unlisted fields
// arbitrate as plain text.
var fieldKinds = map[string]FieldKind{
	"nombre_completo":  KindName,
	"fecha_nacimiento": KindDate,
	"fecha_emision":    KindDate,
	"fecha_expiracion": KindDate,
	"fecha_inicio":     KindDate,
	"fecha_fin":        KindDate,
	"fecha":            KindDate,
	"genero":           KindEnum,
	"lugar_nacimiento": KindEnum,
	"monto":            KindNumber,
	"tasa_interes":     KindNumber,
	"saldo_inicial":    KindNumber,
	"saldo_final":      KindNumber,
	"importe":          KindNumber,
}

var genderValue = regexp.MustCompile(`^[MF]$`)
var letterValue = regexp.MustCompile(`[A-Za-zÁÉÍÓÚÑáéíóúñ]{3,}`)

// fieldValidators gate enum/simple fields; a value failing its validator is
// never allowed to displace one that passes.
var fieldValidators = map[string]func(string) bool{
	"genero": func(v string) bool {
		return genderValue.MatchString(strings.ToUpper(strings.TrimSpace(v)))
	},
	"lugar_nacimiento": func(v string) bool {
		return letterValue.MatchString(v)
	},
}

// noAnswerValues are backend phrasings of "nothing found".
var noAnswerValues = map[string]struct{}{
	"no encontrado": {}, "not found": {}, "n/a": {}, "na": {},
	"no aplica": {}, "none": {}, "-": {}, "sin datos": {}, "ninguno": {},
}

// Engine applies the per-field arbitration rules.
type Engine struct {
	library *patterns.Library
	logger  *slog.Logger
}

func NewEngine(library *patterns.Library, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{library: library, logger: logger}
}

// Reconcile merges the query channel into the text-channel record and
// returns a new record with recomputed confidence. The input record is not
// mutated. Reconcile(Reconcile(r, a), a) equals Reconcile(r, a).
func (e *Engine) Reconcile(text *extract.ExtractedRecord, answers map[string]extract.Answer) *extract.ExtractedRecord {
	record := cloneRecord(text)
	record.SourceChannel = extract.ChannelReconciled

	cleaned := e.cleanAnswers(answers)

	e.reconcileName(record, cleaned)

	for alias, answer := range cleaned {
		field, ok := aliasCanonical[alias]
		if !ok || field == "nombres" || field == "apellidos" {
			continue
		}
		e.reconcileField(record, field, answer)
	}

	e.recoverDocumentNumber(record)
	e.assignFieldConfidences(record)
	record.Confidence = e.recomputeConfidence(record)
	return record
}

// cleanAnswers drops empty and "not found" answers and lowercases aliases.
func (e *Engine) cleanAnswers(answers map[string]extract.Answer) map[string]extract.Answer {
	cleaned := make(map[string]extract.Answer, len(answers))
	for alias, answer := range answers {
		value := strings.TrimSpace(answer.Text)
		if value == "" {
			continue
		}
		if _, skip := noAnswerValues[strings.ToLower(value)]; skip {
			continue
		}
		cleaned[strings.ToLower(strings.TrimSpace(alias))] = extract.Answer{
			Text:       value,
			Confidence: answer.Confidence,
		}
	}
	return cleaned
}

// reconcileName arbitrates nombre_completo from the query channel's name and
// surname components.
func (e *Engine) reconcileName(record *extract.ExtractedRecord, answers map[string]extract.Answer) {
	given, hasGiven := answers["nombres"]
	if !hasGiven {
		given, hasGiven = answers["nombre_completo"]
	}
	surname, hasSurname := answers["apellidos"]

	textName, hasTextName := record.Field("nombre_completo")

	var queryName string
	var queryConf float64
	switch {
	case hasGiven && hasSurname:
		queryConf = minFloat(given.Confidence, surname.Confidence)
		if extract.TokenOverlapRatio(given.Text, surname.Text) > duplicateOverlap {
			// The backend answered both questions with the same fragment.
			queryName = longerByTokens(given.Text, surname.Text)
		} else {
			queryName = given.Text + " " + surname.Text
			if queryConf >= agreeThreshold {
				e.setField(record, "nombre_completo", queryName, extract.ProvenanceQuery, queryConf)
				return
			}
		}
	case hasGiven:
		queryName, queryConf = given.Text, given.Confidence
	case hasSurname:
		queryName, queryConf = surname.Text, surname.Confidence
	default:
		return
	}

	if !hasTextName {
		e.setField(record, "nombre_completo", queryName, extract.ProvenanceQuery, queryConf)
		return
	}

	queryTokens := len(strings.Fields(queryName))
	textTokens := len(strings.Fields(textName.Value))
	switch {
	case queryTokens > textTokens:
		e.setField(record, "nombre_completo", queryName, extract.ProvenanceQuery, queryConf)
	case queryTokens == textTokens && queryConf >= fallbackThreshold:
		e.setField(record, "nombre_completo", queryName, extract.ProvenanceQuery, queryConf)
	default:
		// Longer text-channel candidate stands. Known limitation: longer is
		// not always more accurate.
	}
}

func (e *Engine) reconcileField(record *extract.ExtractedRecord, field string, answer extract.Answer) {
	current, hasCurrent := record.Field(field)

	switch fieldKinds[field] {
	case KindDate:
		e.reconcileDate(record, field, answer, current, hasCurrent)
	case KindEnum:
		e.reconcileValidated(record, field, answer, current, hasCurrent)
	case KindNumber:
		if _, err := patterns.ParseAmount(answer.Text); err != nil {
			return
		}
		e.preferQuery(record, field, answer, hasCurrent)
	case KindName:
		// Handled by reconcileName.
	default:
		e.preferQuery(record, field, answer, hasCurrent)
	}
}

// reconcileDate races both channels through normalization: a normalizing
// channel beats a non-normalizing one, agreement of both goes to the query
// channel, and if neither normalizes the raw text value stays for review.
func (e *Engine) reconcileDate(record *extract.ExtractedRecord, field string, answer extract.Answer, current extract.FieldValue, hasCurrent bool) {
	queryISO, _, queryErr := patterns.NormalizeDate(answer.Text)

	textNormalized := hasCurrent && current.Normalized
	if !textNormalized && hasCurrent {
		if iso, _, err := patterns.NormalizeDate(current.Value); err == nil {
			record.SetField(field, extract.FieldValue{
				Value: iso, Normalized: true,
				Provenance: current.Provenance, Confidence: current.Confidence,
			})
			textNormalized = true
		}
	}

	switch {
	case queryErr == nil:
		// Query normalizes: it wins ties and non-normalizing text values.
		e.setNormalizedField(record, field, queryISO, extract.ProvenanceQuery, answer.Confidence)
	case textNormalized:
		// Text channel already holds the normalized winner.
	case hasCurrent:
		// Neither normalizes: keep the raw value for manual review.
		e.logger.Debug("unnormalizable date kept raw", "field", field, "value", current.Value)
	default:
		// Only an unnormalizable query answer exists; keep it raw.
		record.SetField(field, extract.FieldValue{
			Value: answer.Text, Provenance: extract.ProvenanceQuery, Confidence: answer.Confidence,
		})
	}
}

// reconcileValidated arbitrates fields with a dedicated validator: a passing
// value always beats a failing one, and the query channel wins when both
// pass.
func (e *Engine) reconcileValidated(record *extract.ExtractedRecord, field string, answer extract.Answer, current extract.FieldValue, hasCurrent bool) {
	validator := fieldValidators[field]
	if validator == nil {
		e.preferQuery(record, field, answer, hasCurrent)
		return
	}

	queryValue := answer.Text
	if field == "genero" {
		queryValue = strings.ToUpper(strings.TrimSpace(queryValue))
	}
	queryPasses := validator(queryValue)
	textPasses := hasCurrent && validator(current.Value)

	switch {
	case queryPasses:
		e.setField(record, field, queryValue, extract.ProvenanceQuery, answer.Confidence)
	case textPasses:
		// Validator-passing text value is never displaced by a failing
		// query value.
	case !hasCurrent:
		// Neither channel passes and nothing is set; leave the field absent
		// rather than store a failing value.
	}
}

func (e *Engine) preferQuery(record *extract.ExtractedRecord, field string, answer extract.Answer, hasCurrent bool) {
	if hasCurrent && answer.Confidence < fallbackThreshold {
		return
	}
	e.setField(record, field, answer.Text, extract.ProvenanceQuery, answer.Confidence)
}

// recoverDocumentNumber is the last-resort scan for a missing identity
// number through the detected-entity lists.
func (e *Engine) recoverDocumentNumber(record *extract.ExtractedRecord) {
	if record.DocumentType != constants.DocTypeIdentity {
		return
	}
	if _, ok := record.Field("numero_documento"); ok {
		return
	}
	if len(record.Entities.Cedulas) > 0 {
		e.setField(record, "numero_documento", record.Entities.Cedulas[0], extract.ProvenanceInferred, 0)
		return
	}
	if cedula, ok := e.library.CedulaFromPhones(record.Entities.Phones); ok {
		e.logger.Info("document number recovered from phone-shaped entity", "value", cedula)
		e.setField(record, "numero_documento", cedula, extract.ProvenanceInferred, 0)
		return
	}
	if len(record.Entities.DNIs) > 0 {
		e.setField(record, "numero_documento", record.Entities.DNIs[0], extract.ProvenanceInferred, 0)
		return
	}
	if len(record.Entities.Passports) > 0 {
		e.setField(record, "numero_documento", record.Entities.Passports[0], extract.ProvenanceInferred, 0)
	}
}

func (e *Engine) setField(record *extract.ExtractedRecord, field, value string, prov extract.Provenance, confidence float64) {
	record.SetField(field, extract.FieldValue{Value: value, Provenance: prov, Confidence: confidence})
}

func (e *Engine) setNormalizedField(record *extract.ExtractedRecord, field, value string, prov extract.Provenance, confidence float64) {
	record.SetField(field, extract.FieldValue{Value: value, Normalized: true, Provenance: prov, Confidence: confidence})
}

// assignFieldConfidences gives every accepted value a stable confidence so
// the record-level score is reproducible across repeated reconciliation.
func (e *Engine) assignFieldConfidences(record *extract.ExtractedRecord) {
	for name, fv := range record.Fields {
		if fv.Confidence == 0 {
			fv.Confidence = textChannelConfidence
			record.Fields[name] = fv
		}
	}
}

// recomputeConfidence derives the record confidence from the per-field
// confidences. It is never carried over from the input record.
func (e *Engine) recomputeConfidence(record *extract.ExtractedRecord) float64 {
	if len(record.Fields) == 0 {
		return 0
	}
	total := 0.0
	for _, fv := range record.Fields {
		total += fv.Confidence
	}
	confidence := total / float64(len(record.Fields)) / 100
	if confidence > 0.95 {
		confidence = 0.95
	}
	if confidence < 0 {
		confidence = 0
	}
	return confidence
}

func cloneRecord(in *extract.ExtractedRecord) *extract.ExtractedRecord {
	out := *in
	out.Fields = make(map[string]extract.FieldValue, len(in.Fields))
	for name, fv := range in.Fields {
		out.Fields[name] = fv
	}
	out.Validation = extract.ValidationReport{
		Errors:   append([]string(nil), in.Validation.Errors...),
		Warnings: append([]string(nil), in.Validation.Warnings...),
		IsValid:  in.Validation.IsValid,
	}
	out.Transactions = append([]extract.Transaction(nil), in.Transactions...)
	out.Clauses = append([]extract.Clause(nil), in.Clauses...)
	return &out
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func longerByTokens(a, b string) string {
	if len(strings.Fields(b)) > len(strings.Fields(a)) {
		return b
	}
	return a
}
