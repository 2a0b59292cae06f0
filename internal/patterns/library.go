// Package patterns holds the per-document-type rule sets and the regex
// families shared by the classifier, the extractors and reconciliation.
package patterns

import (
	"regexp"

	"github.com/istmo-digital/docintel/constants"
)

// RuleSet is the classification signal set for one concrete document type.
type RuleSet struct {
	// Keywords are matched case-insensitively; hits inside the first 500
	// characters of a document score higher.
	Keywords []string
	// Regexes score double a keyword hit.
	Regexes []*regexp.Regexp
	// Strong regexes carry issuing-authority boilerplate or cross-field
	// structure and score triple.
	Strong []*regexp.Regexp
}

// Library is the compiled pattern catalog. Compile once, share freely; all
// lookups are read-only after construction.
type Library struct {
	rules map[constants.TypeID]RuleSet

	cedulaPanama   *regexp.Regexp
	cedulaLoose    *regexp.Regexp
	generalIDs     []*regexp.Regexp
	entityFamilies map[string]*regexp.Regexp
	datePatterns   []*regexp.Regexp
	amountPattern  *regexp.Regexp
}

// NewLibrary compiles the full rule catalog.
func NewLibrary() *Library {
	return &Library{
		rules: map[constants.TypeID]RuleSet{
			constants.TypeDNI: {
				Keywords: []string{
					"documento nacional de identidad", "cedula de identidad",
					"identidad personal", "tribunal electoral",
					"republica de panama", "fecha de nacimiento",
					"lugar de nacimiento", "expedida", "expira",
				},
				Regexes: []*regexp.Regexp{
					regexp.MustCompile(`(?i)\bDNI\b`),
					regexp.MustCompile(`\b\d{8}[A-Z]\b`),
					regexp.MustCompile(`\b\d{1,2}-\d{3,4}-\d{1,4}\b`),
				},
				Strong: []*regexp.Regexp{
					regexp.MustCompile(`(?i)TRIBUNAL\s+ELECTORAL`),
					regexp.MustCompile(`(?i)\bIDENTIDAD\b`),
					regexp.MustCompile(`(?i)\bCEDULA\b|\bCÉDULA\b`),
				},
			},
			constants.TypePasaporte: {
				Keywords: []string{
					"pasaporte", "passport", "nacionalidad", "nationality",
					"autoridad", "lugar de emision", "surname", "given names",
				},
				Regexes: []*regexp.Regexp{
					regexp.MustCompile(`\b[A-Z]{1,2}\d{6,7}\b`),
					regexp.MustCompile(`(?i)P<[A-Z]{3}`),
				},
				Strong: []*regexp.Regexp{
					regexp.MustCompile(`(?i)\bPASAPORTE\b|\bPASSPORT\b`),
				},
			},
			constants.TypeContrato: {
				Keywords: []string{
					"contrato", "prestamo", "préstamo", "clausula", "cláusula",
					"las partes", "el deudor", "el acreedor", "firmante",
					"condiciones generales", "tasa de interes", "plazo",
				},
				Regexes: []*regexp.Regexp{
					regexp.MustCompile(`(?i)\bCONTRATO\b`),
					regexp.MustCompile(`(?i)CL[AÁ]USULA\s+[A-Z0-9]+`),
					regexp.MustCompile(`(?i)entre\s+.{1,40}\s+y\s+`),
				},
			},
			constants.TypeExtracto: {
				Keywords: []string{
					"extracto bancario", "estado de cuenta", "saldo anterior",
					"saldo actual", "movimientos", "periodo", "número de cuenta",
					"numero de cuenta", "depositos", "retiros",
				},
				Regexes: []*regexp.Regexp{
					regexp.MustCompile(`(?i)\bEXTRACTO\b`),
					regexp.MustCompile(`(?i)SALDO\s+(ANTERIOR|ACTUAL|FINAL)`),
					regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{10,30}\b`),
				},
			},
			constants.TypeNomina: {
				Keywords: []string{
					"nomina", "nómina", "planilla", "salario", "empleado",
					"devengado", "deducciones", "neto a pagar", "seguro social",
					"periodo de pago",
				},
				Regexes: []*regexp.Regexp{
					regexp.MustCompile(`(?i)\bN[OÓ]MINA\b`),
					regexp.MustCompile(`(?i)NETO\s+A\s+PAGAR`),
				},
			},
			constants.TypeFactura: {
				Keywords: []string{
					"factura", "iva", "itbms", "subtotal", "total a pagar",
					"cliente", "ruc", "fecha de factura", "descripcion",
				},
				Regexes: []*regexp.Regexp{
					regexp.MustCompile(`(?i)\bFACTURA\b`),
					regexp.MustCompile(`(?i)FACTURA\s+N[OÚ°º.]*\s*\d+`),
				},
			},
			constants.TypeRecibo: {
				Keywords: []string{
					"recibo", "recibi", "recibí", "pago", "cantidad",
					"concepto", "la suma de",
				},
				Regexes: []*regexp.Regexp{
					regexp.MustCompile(`(?i)\bRECIBO\b`),
				},
			},
			constants.TypeKYC: {
				Keywords: []string{
					"conozca a su cliente", "kyc", "formulario", "declaracion",
					"declaración", "beneficiario final", "origen de fondos",
					"pep", "actividad economica",
				},
				Regexes: []*regexp.Regexp{
					regexp.MustCompile(`(?i)CONOZCA\s+A\s+SU\s+CLIENTE`),
					regexp.MustCompile(`(?i)\bKYC\b`),
				},
			},
		},

		// Panamanian cédula: 1-2 digit province, tome, folio.
		cedulaPanama: regexp.MustCompile(`\b\d{1,2}-\d{3,4}-\d{1,4}\b`),
		// Looser shape used for last-resort scans over phone-like strings.
		cedulaLoose: regexp.MustCompile(`\b\d{1,2}-\d{1,4}-\d{1,4}\b`),
		generalIDs: []*regexp.Regexp{
			regexp.MustCompile(`\b\d{8}[A-Z]\b`),
			regexp.MustCompile(`\b[A-Z]{1,2}\d{6,7}\b`),
		},
		entityFamilies: map[string]*regexp.Regexp{
			"dni":        regexp.MustCompile(`\b\d{8}[A-Z]\b`),
			"passport":   regexp.MustCompile(`\b[A-Z]{1,2}\d{6,7}\b`),
			"cedula":     regexp.MustCompile(`\b\d{1,2}-\d{3,4}-\d{1,4}\b`),
			"email":      regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`),
			"phone":      regexp.MustCompile(`\+?\d[\d\s\-]{6,14}\d`),
			"iban":       regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{10,30}\b`),
			"percentage": regexp.MustCompile(`\d+(?:[.,]\d+)?\s?%`),
		},
		datePatterns: []*regexp.Regexp{
			regexp.MustCompile(`\b\d{1,2}[-/.]\d{1,2}[-/.]\d{2,4}\b`),
			regexp.MustCompile(`(?i)\b\d{1,2}[-\s][a-zñé]{3,10}[-\s]\d{4}\b`),
			regexp.MustCompile(`(?i)\b\d{1,2}\s+de\s+[a-zñé]{3,10}\s+de\s+\d{4}\b`),
			regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
		},
		amountPattern: regexp.MustCompile(`[\$€£]?\s?\d{1,3}(?:[.,]\d{3})*(?:[.,]\d{2})?\b`),
	}
}

// Rules returns the rule set for a concrete type.
func (l *Library) Rules(id constants.TypeID) (RuleSet, bool) {
	rs, ok := l.rules[id]
	return rs, ok
}

// CedulaPattern returns the strict Panamanian cédula shape.
func (l *Library) CedulaPattern() *regexp.Regexp { return l.cedulaPanama }

// CedulaLoosePattern returns the relaxed cédula shape used to re-examine
// phone-like strings.
func (l *Library) CedulaLoosePattern() *regexp.Regexp { return l.cedulaLoose }

// GeneralIDPatterns returns the non-cédula identity number shapes.
func (l *Library) GeneralIDPatterns() []*regexp.Regexp { return l.generalIDs }
