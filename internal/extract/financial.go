package extract

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/istmo-digital/docintel/constants"
	"github.com/istmo-digital/docintel/internal/patterns"
)

var (
	accountNumberRe = regexp.MustCompile(`(?i)(?:N[OÚ°º.]*\s*DE\s+CUENTA|CUENTA|CTA)\s*[:#]?\s*(\d[\d-]{5,20}\d)`)
	openingRe       = regexp.MustCompile(`(?i)SALDO\s+(?:ANTERIOR|INICIAL)\s*[:\s]\s*([-+]?[\$€£]?\s?\d[\d.,]*)`)
	closingRe       = regexp.MustCompile(`(?i)SALDO\s+(?:ACTUAL|FINAL|NUEVO|DISPONIBLE)\s*[:\s]\s*([-+]?[\$€£]?\s?\d[\d.,]*)`)
	periodRe        = regexp.MustCompile(`(?i)PER[IÍ]ODO\s*[:\s]\s*(\d{1,2}[-/.]\d{1,2}[-/.]\d{2,4})\s*(?:-|AL?|HASTA)\s*(\d{1,2}[-/.]\d{1,2}[-/.]\d{2,4})`)
	totalDueRe      = regexp.MustCompile(`(?i)(?:NETO\s+A\s+PAGAR|TOTAL\s+A\s+PAGAR|TOTAL)\s*[:\s]\s*([-+]?[\$€£]?\s?\d[\d.,]*)`)

	// Two movement-line shapes: date+description+amount and
	// date+reference+description+amount.
	txnWithRefRe = regexp.MustCompile(`(?m)^(\d{1,2}[-/]\d{1,2}[-/]\d{2,4})\s+([A-Z]{0,6}\d[A-Z0-9]{3,10})\s+(.{4,60}?)\s+([-+]?[\$€£]?\d[\d.,]*)\s*$`)
	txnPlainRe   = regexp.MustCompile(`(?m)^(\d{1,2}[-/]\d{1,2}[-/]\d{2,4})\s+(.{4,60}?)\s+([-+]?[\$€£]?\d[\d.,]*)\s*$`)

	bankNames = []string{
		"banco general", "banistmo", "bac credomatic", "banco nacional",
		"global bank", "multibank", "scotiabank", "citibank", "bbva",
		"santander", "caja de ahorros",
	}
)

// financialSubtypeKeywords drives weighted sub-type counting. Statement is
// the default when nothing dominates.
var financialSubtypeKeywords = []struct {
	typeID   constants.TypeID
	weight   int
	keywords []string
}{
	{constants.TypeExtracto, 2, []string{"extracto", "estado de cuenta", "saldo", "movimientos"}},
	{constants.TypeNomina, 2, []string{"nomina", "nómina", "planilla", "salario", "devengado", "neto a pagar"}},
	{constants.TypeFactura, 2, []string{"factura", "itbms", "iva", "subtotal", "total a pagar"}},
}

// FinancialExtractor parses bank statements, payroll slips and invoices.
type FinancialExtractor struct {
	library *patterns.Library
	logger  *slog.Logger
}

func NewFinancialExtractor(library *patterns.Library, logger *slog.Logger) *FinancialExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FinancialExtractor{library: library, logger: logger}
}

func (e *FinancialExtractor) Extract(raw *RawExtraction, typeID constants.TypeID) *ExtractedRecord {
	text := raw.FullText
	record := &ExtractedRecord{
		DocumentType:  constants.DocTypeFinancial,
		TypeID:        typeID,
		SourceChannel: ChannelTextRegex,
		Fields:        make(map[string]FieldValue),
		Entities:      e.library.ScanEntities(text),
	}

	subtype := detectFinancialSubtype(text)
	record.Subtype = string(subtype)

	e.extractAccount(record, text)
	e.extractBalance(record, "saldo_inicial", openingRe, text)
	e.extractBalance(record, "saldo_final", closingRe, text)
	if _, ok := record.Field("saldo_final"); !ok && subtype != constants.TypeExtracto {
		// Payroll slips and invoices label their closing figure as a total.
		e.extractBalance(record, "saldo_final", totalDueRe, text)
	}
	e.extractPeriod(record, text)

	if currency := patterns.DetectCurrency(text); currency != "" {
		record.SetField("moneda", FieldValue{Value: currency, Provenance: ProvenanceText})
	}
	if bank := detectBankName(text); bank != "" {
		record.SetField("banco", FieldValue{Value: bank, Provenance: ProvenanceText})
	}

	if subtype == constants.TypeExtracto {
		record.Transactions = e.extractTransactions(text, &record.Validation)
	}

	e.validate(record, subtype)

	bonus := float64(len(record.Transactions)) / 100
	if bonus > 0.1 {
		bonus = 0.1
	}
	record.Confidence = confidenceFromRequired(record, financialRequiredFields(subtype), bonus)
	return record
}

func financialRequiredFields(subtype constants.TypeID) []string {
	switch subtype {
	case constants.TypeNomina:
		return []string{"saldo_final", "periodo_inicio", "moneda"}
	case constants.TypeFactura:
		return []string{"saldo_final", "moneda"}
	default:
		return []string{"numero_cuenta", "saldo_final", "periodo_inicio", "periodo_fin"}
	}
}

func detectFinancialSubtype(text string) constants.TypeID {
	lower := strings.ToLower(text)
	best := constants.TypeExtracto
	bestScore := 0
	for _, family := range financialSubtypeKeywords {
		score := 0
		for _, kw := range family.keywords {
			score += strings.Count(lower, kw) * family.weight
		}
		if score > bestScore {
			best, bestScore = family.typeID, score
		}
	}
	return best
}

// extractAccount prefers an IBAN over a local account number.
func (e *FinancialExtractor) extractAccount(record *ExtractedRecord, text string) {
	if len(record.Entities.IBANs) > 0 {
		record.SetField("iban", FieldValue{Value: record.Entities.IBANs[0], Provenance: ProvenanceText})
		record.SetField("numero_cuenta", FieldValue{Value: record.Entities.IBANs[0], Provenance: ProvenanceText})
		return
	}
	if m := accountNumberRe.FindStringSubmatch(text); m != nil {
		record.SetField("numero_cuenta", FieldValue{Value: m[1], Provenance: ProvenanceText})
	}
}

func (e *FinancialExtractor) extractBalance(record *ExtractedRecord, name string, re *regexp.Regexp, text string) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return
	}
	raw := strings.TrimSpace(m[1])
	value, err := patterns.ParseAmount(raw)
	if err != nil {
		record.Validation.AddWarning(fmt.Sprintf("importe no legible en %s: %q", name, raw))
		return
	}
	if strings.HasPrefix(raw, "-") {
		value = -value
	}
	record.SetField(name, FieldValue{Value: raw, Number: &value, Normalized: true, Provenance: ProvenanceText})
}

func (e *FinancialExtractor) extractPeriod(record *ExtractedRecord, text string) {
	m := periodRe.FindStringSubmatch(text)
	if m == nil {
		return
	}
	for i, name := range []string{"periodo_inicio", "periodo_fin"} {
		raw := m[i+1]
		iso, _, err := patterns.NormalizeDate(raw)
		if err != nil {
			record.SetField(name, FieldValue{Value: raw, Provenance: ProvenanceText})
			record.Validation.AddWarning(fmt.Sprintf("fecha de periodo no normalizable: %q", raw))
			continue
		}
		record.SetField(name, FieldValue{Value: iso, Normalized: true, Provenance: ProvenanceText})
	}
}

// extractTransactions parses movement rows line by line, trying the
// reference-bearing shape first. Unparseable amounts skip the row rather
// than aborting the extraction.
func (e *FinancialExtractor) extractTransactions(text string, validation *ValidationReport) []Transaction {
	var txns []Transaction
	matched := make(map[int]struct{})

	for _, m := range txnWithRefRe.FindAllStringSubmatchIndex(text, -1) {
		matched[m[0]] = struct{}{}
	}

	appendTxn := func(date, ref, desc, amountRaw string) {
		amount, err := patterns.ParseAmount(amountRaw)
		if err != nil {
			validation.AddWarning(fmt.Sprintf("movimiento con importe ilegible: %q", amountRaw))
			return
		}
		if strings.HasPrefix(amountRaw, "-") {
			amount = -amount
		}
		iso, _, err := patterns.NormalizeDate(date)
		if err != nil {
			iso = date
		}
		txns = append(txns, Transaction{
			Date:        iso,
			Reference:   ref,
			Description: strings.TrimSpace(desc),
			Amount:      amount,
		})
	}

	for _, m := range txnWithRefRe.FindAllStringSubmatch(text, -1) {
		appendTxn(m[1], m[2], m[3], m[4])
	}
	for _, idx := range txnPlainRe.FindAllStringSubmatchIndex(text, -1) {
		if _, ok := matched[idx[0]]; ok {
			continue
		}
		m := txnPlainRe.FindStringSubmatch(text[idx[0]:idx[1]])
		if m == nil {
			continue
		}
		appendTxn(m[1], "", m[2], m[3])
	}
	return txns
}

func detectBankName(text string) string {
	lower := strings.ToLower(text)
	for _, bank := range bankNames {
		if strings.Contains(lower, bank) {
			return strings.ToUpper(bank)
		}
	}
	return ""
}

func (e *FinancialExtractor) validate(record *ExtractedRecord, subtype constants.TypeID) {
	if subtype == constants.TypeExtracto {
		if _, ok := record.Field("numero_cuenta"); !ok {
			record.Validation.AddError("extracto sin numero de cuenta")
		}
		if _, ok := record.Field("saldo_final"); !ok {
			record.Validation.AddError("extracto sin saldo final")
		}
		if _, ok := record.Field("periodo_inicio"); !ok {
			record.Validation.AddWarning("extracto sin periodo")
		}
	} else {
		if _, ok := record.Field("saldo_final"); !ok {
			record.Validation.AddWarning("importe principal no encontrado")
		}
	}

	start, hasStart := record.Field("periodo_inicio")
	end, hasEnd := record.Field("periodo_fin")
	if hasStart && hasEnd && start.Normalized && end.Normalized && start.Value > end.Value {
		record.Validation.AddError("periodo invertido")
	}

	finishValidation(&record.Validation)
}
