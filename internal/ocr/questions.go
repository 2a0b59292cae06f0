package ocr

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/istmo-digital/docintel/constants"
)

// The backend caps query sets at 15 entries per call.
const (
	MaxQuestions      = 15
	maxQuestionLength = 200
	maxAliasLength    = 100
)

// Question is one targeted query submitted alongside structural analysis.
// The alias keys the answer in the result set.
type Question struct {
	Text  string `json:"text"`
	Alias string `json:"alias"`
}

var questionCharset = regexp.MustCompile(`^[\p{L}\p{N}\s¿?¡!.,:;()/%'-]+$`)
var aliasCharset = regexp.MustCompile(`^[a-z0-9_]+$`)

var identityQuestions = []Question{
	{Text: "¿Cuál es el número del documento de identidad?", Alias: "numero_documento"},
	{Text: "¿Cuáles son los nombres de la persona?", Alias: "nombres"},
	{Text: "¿Cuáles son los apellidos de la persona?", Alias: "apellidos"},
	{Text: "¿Cuál es la fecha de nacimiento?", Alias: "fecha_nacimiento"},
	{Text: "¿Cuál es la fecha de emisión del documento?", Alias: "fecha_emision"},
	{Text: "¿Cuál es la fecha de expiración del documento?", Alias: "fecha_expiracion"},
	{Text: "¿Cuál es la nacionalidad de la persona?", Alias: "nacionalidad"},
	{Text: "¿Cuál es el sexo o género indicado?", Alias: "genero"},
}

var loanQuestions = []Question{
	{Text: "¿Cuál es el número del contrato de préstamo?", Alias: "numero_contrato"},
	{Text: "¿Cuál es el monto del préstamo?", Alias: "monto_prestamo"},
	{Text: "¿Cuál es la tasa de interés anual?", Alias: "tasa_interes"},
	{Text: "¿Cuál es el plazo del préstamo en meses?", Alias: "plazo"},
	{Text: "¿Cuál es la fecha de inicio o celebración del contrato?", Alias: "fecha_inicio"},
	{Text: "¿Cuál es la fecha de vencimiento del contrato?", Alias: "fecha_vencimiento"},
	{Text: "¿Quién es el deudor del contrato?", Alias: "nombre_deudor"},
	{Text: "¿En qué moneda está expresado el contrato?", Alias: "moneda"},
}

var accountQuestions = []Question{
	{Text: "¿Cuál es el número de cuenta?", Alias: "numero_cuenta"},
	{Text: "¿Cuál es el saldo inicial o anterior del período?", Alias: "saldo_inicial"},
	{Text: "¿Cuál es el saldo final o actual del período?", Alias: "saldo_final"},
	{Text: "¿Qué período cubre el estado de cuenta?", Alias: "periodo"},
	{Text: "¿Qué banco emite el estado de cuenta?", Alias: "banco"},
}

var cardQuestions = []Question{
	{Text: "¿Cuál es el número de la tarjeta o del contrato de tarjeta?", Alias: "numero_tarjeta"},
	{Text: "¿Cuál es el límite de crédito aprobado?", Alias: "limite_credito"},
	{Text: "¿Cuál es la tasa de interés de la tarjeta?", Alias: "tasa_interes"},
	{Text: "¿Cuál es la fecha de emisión del contrato?", Alias: "fecha_inicio"},
	{Text: "¿Quién es el titular de la tarjeta?", Alias: "nombre_deudor"},
	{Text: "¿En qué moneda está expresado el límite?", Alias: "moneda"},
}

var genericQuestions = []Question{
	{Text: "¿Cuál es la fecha del documento?", Alias: "fecha"},
	{Text: "¿Cuál es el importe total del documento?", Alias: "importe"},
	{Text: "¿Quién emite el documento?", Alias: "emisor"},
	{Text: "¿Quién es el beneficiario o destinatario?", Alias: "beneficiario"},
}

// QuestionsFor returns the validated query catalog for a document type. The
// contract subtype narrows loan versus card questions.
func QuestionsFor(typeID constants.TypeID, subtype constants.ContractSubtype) []Question {
	var catalog []Question
	switch constants.CategoryOf(typeID) {
	case constants.DocTypeIdentity:
		catalog = identityQuestions
	case constants.DocTypeContract:
		if subtype == constants.ContractTarjetaCredito {
			catalog = cardQuestions
		} else {
			catalog = loanQuestions
		}
	case constants.DocTypeFinancial:
		if typeID == constants.TypeExtracto {
			catalog = accountQuestions
		} else {
			catalog = genericQuestions
		}
	default:
		catalog = genericQuestions
	}
	return ValidateQuestions(catalog, nil)
}

// ValidateQuestions drops malformed questions instead of failing the whole
// set: over-length text or alias, unsafe characters, empty entries. Aliases
// are lowercased and stripped of diacritics. At most MaxQuestions survive.
func ValidateQuestions(questions []Question, logger *slog.Logger) []Question {
	if logger == nil {
		logger = slog.Default()
	}
	out := make([]Question, 0, len(questions))
	seen := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		text := strings.TrimSpace(q.Text)
		alias := normalizeAlias(q.Alias)
		switch {
		case text == "" || alias == "":
			logger.Debug("question dropped, empty text or alias")
		case len(text) > maxQuestionLength:
			logger.Warn("question dropped, text too long", "alias", alias, "length", len(text))
		case len(alias) > maxAliasLength:
			logger.Warn("question dropped, alias too long", "alias", alias)
		case !questionCharset.MatchString(text):
			logger.Warn("question dropped, unsafe characters", "alias", alias)
		case !aliasCharset.MatchString(alias):
			logger.Warn("question dropped, malformed alias", "alias", alias)
		default:
			if _, dup := seen[alias]; dup {
				logger.Warn("question dropped, duplicate alias", "alias", alias)
				continue
			}
			seen[alias] = struct{}{}
			out = append(out, Question{Text: text, Alias: alias})
		}
	}
	if len(out) > MaxQuestions {
		out = out[:MaxQuestions]
	}
	return out
}

var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func normalizeAlias(alias string) string {
	alias = strings.ToLower(strings.TrimSpace(alias))
	alias = strings.ReplaceAll(alias, " ", "_")
	if stripped, _, err := transform.String(stripDiacritics, alias); err == nil {
		alias = stripped
	}
	return alias
}
