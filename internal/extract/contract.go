package extract

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/istmo-digital/docintel/constants"
	"github.com/istmo-digital/docintel/internal/patterns"
)

var (
	contractNumberRe = regexp.MustCompile(`(?i)(?:CONTRATO|PR[EÉ]STAMO|P[OÓ]LIZA)[^\n0-9]{0,40}?(?:NUMERO|N[Oº°]|#)\s*[.,:]?\s*(\d{3,15}(?:-\d{1,6})?)`)
	interestRateRe   = regexp.MustCompile(`(?i)(?:TASA|INTER[EÉ]S)[^%\n]{0,50}?(\d{1,2}(?:[.,]\d{1,2})?)\s*%`)
	termRe           = regexp.MustCompile(`(?i)PLAZO[^0-9\n]{0,30}(\d{1,3})\s*(MESES|MES|A[NÑ]OS?)`)
	startDateRe      = regexp.MustCompile(`(?i)(?:FECHA\s+DE\s+INICIO|FECHA\s+DEL\s+CONTRATO|CELEBRADO\s+EL|SUSCRITO\s+EL)\s*[:\s]\s*(` + dateValuePattern + `|\d{1,2}\s+de\s+[a-záéíóúñ]+\s+(?:de|del)\s+\d{4})`)
	endDateRe        = regexp.MustCompile(`(?i)(?:FECHA\s+DE\s+VENCIMIENTO|FECHA\s+DE\s+FIN|VENCE\s+EL)\s*[:\s]\s*(` + dateValuePattern + `|\d{1,2}\s+de\s+[a-záéíóúñ]+\s+(?:de|del)\s+\d{4})`)
	signatoryRe      = regexp.MustCompile(`(?:EL\s+DEUDOR|EL\s+ACREEDOR|EL\s+CLIENTE|EL\s+BANCO|POR)\s*[:\s]\s*([A-ZÁÉÍÓÚÑ][A-ZÁÉÍÓÚÑ .,]{4,60})`)
	digitalSignRe    = regexp.MustCompile(`(?i)FIRMA\s+(?:ELECTR[OÓ]NICA|DIGITAL)`)
	clauseHeaderRe   = regexp.MustCompile(`(?i)CL[AÁ]USULA\s+(PRIMERA|SEGUNDA|TERCERA|CUARTA|QUINTA|SEXTA|S[EÉ]PTIMA|OCTAVA|NOVENA|D[EÉ]CIMA|\d+)\s*[:.\-]?`)
	observationRe    = regexp.MustCompile(`(?i)OBSERVACI[OÓ]N(?:ES)?\s*[:\s]\s*([^\n]{4,200})`)
)

// contractSubtypeKeywords maps keyword families to the product subtype.
var contractSubtypeKeywords = []struct {
	subtype  constants.ContractSubtype
	keywords []string
}{
	{constants.ContractPrestamo, []string{"prestamo", "préstamo", "credito personal", "crédito personal", "linea de credito"}},
	{constants.ContractTarjetaCredito, []string{"tarjeta de credito", "tarjeta de crédito", "tarjetahabiente"}},
	{constants.ContractCuentaCorriente, []string{"cuenta corriente", "cuenta de ahorro", "apertura de cuenta"}},
	{constants.ContractDeposito, []string{"deposito a plazo", "depósito a plazo", "plazo fijo"}},
}

// ContractExtractor parses loan, account, card and deposit contracts.
type ContractExtractor struct {
	library *patterns.Library
	logger  *slog.Logger
}

func NewContractExtractor(library *patterns.Library, logger *slog.Logger) *ContractExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContractExtractor{library: library, logger: logger}
}

func (e *ContractExtractor) Extract(raw *RawExtraction, typeID constants.TypeID) *ExtractedRecord {
	text := raw.FullText
	record := &ExtractedRecord{
		DocumentType:  constants.DocTypeContract,
		TypeID:        typeID,
		SourceChannel: ChannelTextRegex,
		Fields:        make(map[string]FieldValue),
		Entities:      e.library.ScanEntities(text),
	}

	subtype := detectContractSubtype(text)
	record.Subtype = string(subtype)
	record.SetField("tipo_contrato", FieldValue{Value: string(subtype), Provenance: ProvenanceInferred})

	if m := contractNumberRe.FindStringSubmatch(text); m != nil {
		record.SetField("numero_contrato", FieldValue{Value: strings.TrimSpace(m[1]), Provenance: ProvenanceText})
	}

	// The largest currency-marked figure on the page is taken as the
	// principal.
	if value, rawAmount, ok := e.library.LargestAmount(text); ok {
		v := value
		record.SetField("monto", FieldValue{Value: rawAmount, Number: &v, Provenance: ProvenanceText})
	}
	if currency := patterns.DetectCurrency(text); currency != "" {
		record.SetField("moneda", FieldValue{Value: currency, Provenance: ProvenanceText})
	}

	if m := interestRateRe.FindStringSubmatch(text); m != nil {
		if rate, err := patterns.ParseAmount(m[1]); err == nil {
			r := rate
			record.SetField("tasa_interes", FieldValue{Value: m[1] + "%", Number: &r, Provenance: ProvenanceText})
		}
	}

	e.extractTerm(record, text)
	e.setDateField(record, "fecha_inicio", startDateRe, text)
	e.setDateField(record, "fecha_fin", endDateRe, text)
	e.inferEndDate(record)

	e.extractSignatories(record, text)
	if digitalSignRe.MatchString(text) {
		record.SetField("firma_digital", FieldValue{Value: "true", Provenance: ProvenanceInferred})
	}

	record.Clauses = extractClauses(text)
	if m := observationRe.FindStringSubmatch(text); m != nil {
		record.SetField("observaciones", FieldValue{Value: strings.TrimSpace(m[1]), Provenance: ProvenanceText})
	}

	e.validate(record, subtype)
	bonus := 0.0
	if len(record.Clauses) > 0 {
		bonus = 0.05
	}
	record.Confidence = confidenceFromRequired(record, contractRequiredFields(subtype), bonus)
	return record
}

func contractRequiredFields(subtype constants.ContractSubtype) []string {
	switch subtype {
	case constants.ContractPrestamo:
		return []string{"numero_contrato", "monto", "tasa_interes", "plazo_meses", "fecha_inicio"}
	case constants.ContractCuentaCorriente, constants.ContractDeposito:
		return []string{"numero_contrato", "fecha_inicio", "firmantes"}
	case constants.ContractTarjetaCredito:
		return []string{"numero_contrato", "monto", "tasa_interes", "firmantes"}
	default:
		return []string{"numero_contrato", "monto", "fecha_inicio"}
	}
}

func detectContractSubtype(text string) constants.ContractSubtype {
	lower := strings.ToLower(text)
	best := constants.ContractGenerico
	bestCount := 0
	for _, family := range contractSubtypeKeywords {
		count := 0
		for _, kw := range family.keywords {
			count += strings.Count(lower, kw)
		}
		if count > bestCount {
			best, bestCount = family.subtype, count
		}
	}
	return best
}

func (e *ContractExtractor) extractTerm(record *ExtractedRecord, text string) {
	m := termRe.FindStringSubmatch(text)
	if m == nil {
		return
	}
	months, err := strconv.Atoi(m[1])
	if err != nil {
		return
	}
	if strings.HasPrefix(strings.ToLower(m[2]), "a") {
		months *= 12
	}
	v := float64(months)
	record.SetField("plazo_meses", FieldValue{Value: strconv.Itoa(months), Number: &v, Provenance: ProvenanceText})
}

// inferEndDate derives fecha_fin from fecha_inicio plus the term when the
// document does not state it. Months are approximated as 30 days.
func (e *ContractExtractor) inferEndDate(record *ExtractedRecord) {
	if _, ok := record.Field("fecha_fin"); ok {
		return
	}
	start, hasStart := record.Field("fecha_inicio")
	term, hasTerm := record.Field("plazo_meses")
	if !hasStart || !hasTerm || !start.Normalized || term.Number == nil {
		return
	}
	startDate, err := patterns.ParseISODate(start.Value)
	if err != nil {
		return
	}
	end := startDate.AddDate(0, 0, int(*term.Number)*30)
	record.SetField("fecha_fin", FieldValue{
		Value:      end.Format("2006-01-02"),
		Normalized: true,
		Provenance: ProvenanceInferred,
	})
}

func (e *ContractExtractor) extractSignatories(record *ExtractedRecord, text string) {
	seen := make(map[string]struct{})
	var names []string
	for _, m := range signatoryRe.FindAllStringSubmatch(text, -1) {
		name := strings.Trim(strings.TrimSpace(m[1]), ".,")
		if len(strings.Fields(name)) < 2 {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, name)
	}
	if len(names) > 0 {
		record.SetField("firmantes", FieldValue{Value: strings.Join(names, "; "), Provenance: ProvenanceText})
	}
}

func (e *ContractExtractor) setDateField(record *ExtractedRecord, name string, re *regexp.Regexp, text string) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return
	}
	raw := strings.TrimSpace(m[1])
	iso, coerced, err := patterns.NormalizeDate(raw)
	if err != nil {
		record.SetField(name, FieldValue{Value: raw, Provenance: ProvenanceText})
		record.Validation.AddWarning(fmt.Sprintf("fecha no normalizable en %s: %q", name, raw))
		return
	}
	if coerced {
		record.Validation.AddWarning(fmt.Sprintf("fecha corregida en %s: %q -> %s", name, raw, iso))
	}
	record.SetField(name, FieldValue{Value: iso, Normalized: true, Provenance: ProvenanceText})
}

func (e *ContractExtractor) validate(record *ExtractedRecord, subtype constants.ContractSubtype) {
	// At least two of the three critical fields must be present.
	critical := 0
	for _, name := range []string{"numero_contrato", "monto", "fecha_inicio"} {
		if _, ok := record.Field(name); ok {
			critical++
		}
	}
	if critical < 2 {
		record.Validation.AddError("menos de dos campos criticos presentes")
	}

	if subtype == constants.ContractPrestamo {
		if _, ok := record.Field("tasa_interes"); !ok {
			record.Validation.AddWarning("prestamo sin tasa de interes")
		}
		if _, ok := record.Field("monto"); !ok {
			record.Validation.AddError("prestamo sin monto")
		}
	}

	if monto, ok := record.Field("monto"); ok && monto.Number != nil {
		if *monto.Number <= 0 {
			record.Validation.AddError("monto no positivo")
		} else if *monto.Number > 100_000_000 {
			record.Validation.AddWarning("monto fuera de rango esperado")
		}
	}
	if rate, ok := record.Field("tasa_interes"); ok && rate.Number != nil && *rate.Number > 60 {
		record.Validation.AddWarning("tasa de interes fuera de rango esperado")
	}

	start, hasStart := record.Field("fecha_inicio")
	end, hasEnd := record.Field("fecha_fin")
	if hasStart && hasEnd && start.Normalized && end.Normalized && start.Value > end.Value {
		record.Validation.AddError("fecha de inicio posterior al vencimiento")
	}

	finishValidation(&record.Validation)
}

// maxClauseExcerpt bounds a clause body in bytes.
const maxClauseExcerpt = 300

func extractClauses(text string) []Clause {
	locations := clauseHeaderRe.FindAllStringSubmatchIndex(text, -1)
	if len(locations) == 0 {
		return nil
	}
	clauses := make([]Clause, 0, len(locations))
	for i, loc := range locations {
		title := strings.TrimSpace(text[loc[0]:loc[1]])
		bodyStart := loc[1]
		bodyEnd := len(text)
		if i+1 < len(locations) {
			bodyEnd = locations[i+1][0]
		}
		excerpt := strings.TrimSpace(text[bodyStart:bodyEnd])
		if len(excerpt) > maxClauseExcerpt {
			cut := maxClauseExcerpt
			// Back up to a rune boundary so an accented character is never
			// split in half.
			for cut > 0 && !utf8.RuneStart(excerpt[cut]) {
				cut--
			}
			excerpt = excerpt[:cut]
		}
		clauses = append(clauses, Clause{Title: strings.Trim(title, ":.- "), Excerpt: excerpt})
	}
	return clauses
}
