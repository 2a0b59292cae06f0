package ocr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/istmo-digital/docintel/constants"
)

func TestQuestionsForCatalogSizes(t *testing.T) {
	tests := []struct {
		typeID  constants.TypeID
		subtype constants.ContractSubtype
		want    int
	}{
		{constants.TypeDNI, "", 8},
		{constants.TypePasaporte, "", 8},
		{constants.TypeContrato, constants.ContractPrestamo, 8},
		{constants.TypeContrato, constants.ContractTarjetaCredito, 6},
		{constants.TypeExtracto, "", 5},
		{constants.TypeFactura, "", 4},
		{constants.TypeRecibo, "", 4},
		{constants.TypeUnknown, "", 4},
	}
	for _, tt := range tests {
		questions := QuestionsFor(tt.typeID, tt.subtype)
		assert.Len(t, questions, tt.want, "type %s subtype %s", tt.typeID, tt.subtype)
	}
}

func TestQuestionsForAliasesAreNormalized(t *testing.T) {
	for _, q := range QuestionsFor(constants.TypeDNI, "") {
		assert.Regexp(t, `^[a-z0-9_]+$`, q.Alias)
		assert.LessOrEqual(t, len(q.Text), 200)
	}
}

func TestValidateQuestionsDropsInvalid(t *testing.T) {
	questions := []Question{
		{Text: "¿Cuál es el número de cuenta?", Alias: "Número Cuenta"},
		{Text: strings.Repeat("x", 201), Alias: "too_long"},
		{Text: "", Alias: "empty_text"},
		{Text: "¿Alias vacío?", Alias: ""},
		{Text: "¿Caracteres <script> inseguros?", Alias: "unsafe"},
		{Text: "¿Pregunta válida?", Alias: "valida"},
	}

	valid := ValidateQuestions(questions, nil)

	require.Len(t, valid, 2)
	assert.Equal(t, "numero_cuenta", valid[0].Alias)
	assert.Equal(t, "valida", valid[1].Alias)
}

func TestValidateQuestionsDropsDuplicateAliases(t *testing.T) {
	questions := []Question{
		{Text: "¿Primera?", Alias: "campo"},
		{Text: "¿Segunda?", Alias: "campo"},
	}

	valid := ValidateQuestions(questions, nil)

	require.Len(t, valid, 1)
	assert.Equal(t, "¿Primera?", valid[0].Text)
}

func TestValidateQuestionsCapsAtFifteen(t *testing.T) {
	var questions []Question
	for i := 0; i < 20; i++ {
		questions = append(questions, Question{
			Text:  "¿Pregunta de prueba?",
			Alias: "alias_" + string(rune('a'+i)),
		})
	}

	assert.Len(t, ValidateQuestions(questions, nil), MaxQuestions)
}
