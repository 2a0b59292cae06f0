package extract

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/istmo-digital/docintel/constants"
	"github.com/istmo-digital/docintel/internal/patterns"
)

// Sub-type detection cues. A sub-type is adopted only at or above its
// threshold; below every threshold the generic field set is extracted.
var (
	cedulaAuthorityRe = regexp.MustCompile(`(?i)TRIBUNAL\s+ELECTORAL`)
	panamaRepublicRe  = regexp.MustCompile(`(?i)REPUBLICA\s+DE\s+PANAMA|REPÚBLICA\s+DE\s+PANAMÁ`)
	dniLabelRe        = regexp.MustCompile(`(?i)\bDNI\b|DOCUMENTO\s+NACIONAL`)
	dniNumberRe       = regexp.MustCompile(`\b\d{8}[A-Z]\b`)
	passportLabelRe   = regexp.MustCompile(`(?i)\bPASAPORTE\b|\bPASSPORT\b`)
	passportNumberRe  = regexp.MustCompile(`\b[A-Z]{1,2}\d{6,7}\b`)
	passportMRZRe     = regexp.MustCompile(`P<[A-Z]{3}`)

	issueLabelRe  = regexp.MustCompile(`(?i)(?:EXPEDIDA|EMITIDA|EMISI[OÓ]N|FECHA\s+DE\s+EXPEDICI[OÓ]N)\s*[:\s]\s*(` + dateValuePattern + `)`)
	expiryLabelRe = regexp.MustCompile(`(?i)(?:EXPIRA|EXPIRACI[OÓ]N|VENCE|VENCIMIENTO|CADUCIDAD)\s*[:\s]\s*(` + dateValuePattern + `)`)
	birthLabelRe  = regexp.MustCompile(`(?i)(?:FECHA\s+DE\s+NACIMIENTO|NACIMIENTO|DATE\s+OF\s+BIRTH)\s*[:\s]\s*(` + dateValuePattern + `)`)

	genderRe      = regexp.MustCompile(`(?i)SEXO\s*[:/]?\s*([FM])\b`)
	nationalityRe = regexp.MustCompile(`(?i)NACIONALIDAD\s*[:/]?\s*([A-ZÁÉÍÓÚÑa-záéíóúñ]+)`)
	birthplaceRe  = regexp.MustCompile(`(?i)LUGAR\s+DE\s+NACIMIENTO\s*[:/]?\s*([A-ZÁÉÍÓÚÑ][A-ZÁÉÍÓÚÑ ,]{1,60})`)

	givenNameRe = regexp.MustCompile(`\b(?:NOMBRES?|NAME)\s*[:/]?\s+([A-ZÁÉÍÓÚÑ][A-ZÁÉÍÓÚÑ ]{2,60})`)
	surnameRe   = regexp.MustCompile(`\b(?:APELLIDOS?|SURNAME)\s*[:/]?\s+([A-ZÁÉÍÓÚÑ][A-ZÁÉÍÓÚÑ ]{2,60})`)
)

const dateValuePattern = `\d{1,2}[-/.\s][A-Za-zÁÉÍÓÚáéíóúñ]{3,12}[-/.\s]\d{4}|\d{1,2}[-/.]\d{1,2}[-/.]\d{2,4}`

// IdentityExtractor parses national IDs, Panamanian cédulas and passports.
type IdentityExtractor struct {
	library *patterns.Library
	logger  *slog.Logger
}

func NewIdentityExtractor(library *patterns.Library, logger *slog.Logger) *IdentityExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentityExtractor{library: library, logger: logger}
}

func (e *IdentityExtractor) Extract(raw *RawExtraction, typeID constants.TypeID) *ExtractedRecord {
	text := raw.FullText
	record := &ExtractedRecord{
		DocumentType:  constants.DocTypeIdentity,
		TypeID:        typeID,
		SourceChannel: ChannelTextRegex,
		Fields:        make(map[string]FieldValue),
		Entities:      e.library.ScanEntities(text),
	}

	subtype := e.detectSubtype(text)
	record.Subtype = string(subtype)
	if subtype == constants.SubtypeIDUnknown {
		record.Validation.AddWarning("subtipo de documento de identidad no determinado")
	}

	e.extractNumber(record, text, subtype)
	e.extractName(record, text)
	e.extractDates(record, text)

	if m := genderRe.FindStringSubmatch(text); m != nil {
		record.SetField("genero", FieldValue{Value: strings.ToUpper(m[1]), Provenance: ProvenanceText})
	}
	if m := nationalityRe.FindStringSubmatch(text); m != nil {
		record.SetField("nacionalidad", FieldValue{Value: strings.TrimSpace(m[1]), Provenance: ProvenanceText})
	}
	if m := birthplaceRe.FindStringSubmatch(text); m != nil {
		record.SetField("lugar_nacimiento", FieldValue{Value: strings.TrimSpace(m[1]), Provenance: ProvenanceText})
	}
	if panamaRepublicRe.MatchString(text) {
		record.SetField("pais_emisor", FieldValue{Value: "PANAMA", Provenance: ProvenanceInferred})
	}

	e.validate(record)
	record.Confidence = confidenceFromRequired(record, identityRequiredFields, 0)
	return record
}

var identityRequiredFields = []string{
	"numero_documento", "nombre_completo", "fecha_emision", "fecha_expiracion", "genero",
}

func (e *IdentityExtractor) detectSubtype(text string) constants.IdentitySubtype {
	scores := map[constants.IdentitySubtype]int{}

	if e.library.CedulaPattern().MatchString(text) {
		scores[constants.SubtypeCedulaPanama] += 2
	}
	if cedulaAuthorityRe.MatchString(text) {
		scores[constants.SubtypeCedulaPanama] += 2
	}
	if panamaRepublicRe.MatchString(text) {
		scores[constants.SubtypeCedulaPanama]++
	}

	if dniNumberRe.MatchString(text) {
		scores[constants.SubtypeDNI] += 2
	}
	if dniLabelRe.MatchString(text) {
		scores[constants.SubtypeDNI] += 2
	}

	if passportNumberRe.MatchString(text) {
		scores[constants.SubtypePasaporte] += 2
	}
	if passportLabelRe.MatchString(text) {
		scores[constants.SubtypePasaporte] += 2
	}
	if passportMRZRe.MatchString(text) {
		scores[constants.SubtypePasaporte] += 2
	}

	// Each sub-type needs corroboration from at least two cues.
	const threshold = 3
	best, bestScore := constants.SubtypeIDUnknown, 0
	for _, subtype := range []constants.IdentitySubtype{
		constants.SubtypeCedulaPanama, constants.SubtypeDNI, constants.SubtypePasaporte,
	} {
		if scores[subtype] >= threshold && scores[subtype] > bestScore {
			best, bestScore = subtype, scores[subtype]
		}
	}
	return best
}

func (e *IdentityExtractor) extractNumber(record *ExtractedRecord, text string, subtype constants.IdentitySubtype) {
	var number string
	switch subtype {
	case constants.SubtypeCedulaPanama:
		number = e.library.CedulaPattern().FindString(text)
	case constants.SubtypeDNI:
		number = dniNumberRe.FindString(text)
	case constants.SubtypePasaporte:
		number = passportNumberRe.FindString(text)
	default:
		for _, re := range append([]*regexp.Regexp{e.library.CedulaPattern()}, e.library.GeneralIDPatterns()...) {
			if number = re.FindString(text); number != "" {
				break
			}
		}
	}
	if number != "" {
		record.SetField("numero_documento", FieldValue{Value: number, Provenance: ProvenanceText})
	}
}

func (e *IdentityExtractor) extractName(record *ExtractedRecord, text string) {
	var given, surname string
	if m := givenNameRe.FindStringSubmatch(text); m != nil {
		given = strings.TrimSpace(m[1])
	}
	if m := surnameRe.FindStringSubmatch(text); m != nil {
		surname = strings.TrimSpace(m[1])
	}

	switch {
	case given != "" && surname != "":
		if TokenOverlapRatio(given, surname) > 0.5 {
			// Same fragment captured twice under both labels.
			if len(strings.Fields(surname)) > len(strings.Fields(given)) {
				given = surname
			}
			record.SetField("nombre_completo", FieldValue{Value: given, Provenance: ProvenanceText})
		} else {
			record.SetField("nombre_completo", FieldValue{Value: given + " " + surname, Provenance: ProvenanceText})
		}
	case given != "":
		record.SetField("nombre_completo", FieldValue{Value: given, Provenance: ProvenanceText})
	case surname != "":
		record.SetField("nombre_completo", FieldValue{Value: surname, Provenance: ProvenanceText})
	}
}

func (e *IdentityExtractor) extractDates(record *ExtractedRecord, text string) {
	e.setDateField(record, "fecha_emision", issueLabelRe, text)
	e.setDateField(record, "fecha_expiracion", expiryLabelRe, text)
	e.setDateField(record, "fecha_nacimiento", birthLabelRe, text)
}

func (e *IdentityExtractor) setDateField(record *ExtractedRecord, name string, re *regexp.Regexp, text string) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return
	}
	raw := strings.TrimSpace(m[1])
	iso, coerced, err := patterns.NormalizeDate(raw)
	if err != nil {
		// Unnormalizable dates stay raw for manual review.
		record.SetField(name, FieldValue{Value: raw, Provenance: ProvenanceText})
		record.Validation.AddWarning(fmt.Sprintf("fecha no normalizable en %s: %q", name, raw))
		return
	}
	if coerced {
		record.Validation.AddWarning(fmt.Sprintf("fecha corregida en %s: %q -> %s", name, raw, iso))
		e.logger.Warn("out-of-range date coerced", "field", name, "raw", raw, "normalized", iso)
	}
	record.SetField(name, FieldValue{Value: iso, Normalized: true, Provenance: ProvenanceText})
}

func (e *IdentityExtractor) validate(record *ExtractedRecord) {
	if _, ok := record.Field("numero_documento"); !ok {
		record.Validation.AddError("numero de documento no encontrado")
	}
	if _, ok := record.Field("nombre_completo"); !ok {
		record.Validation.AddWarning("nombre no encontrado")
	}

	issue, hasIssue := record.Field("fecha_emision")
	expiry, hasExpiry := record.Field("fecha_expiracion")
	if hasIssue && hasExpiry && issue.Normalized && expiry.Normalized && issue.Value > expiry.Value {
		record.Validation.AddError("fecha de emision posterior a la expiracion")
	}

	finishValidation(&record.Validation)
}

// TokenOverlapRatio is the fraction of tokens of the smaller string found in
// the larger one. Above 0.5 the two strings are treated as near-duplicates.
func TokenOverlapRatio(a, b string) float64 {
	tokensA := strings.Fields(strings.ToLower(a))
	tokensB := strings.Fields(strings.ToLower(b))
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}
	if len(tokensB) < len(tokensA) {
		tokensA, tokensB = tokensB, tokensA
	}
	inB := make(map[string]struct{}, len(tokensB))
	for _, tok := range tokensB {
		inB[tok] = struct{}{}
	}
	hits := 0
	for _, tok := range tokensA {
		if _, ok := inB[tok]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(tokensA))
}
