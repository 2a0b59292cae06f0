package extract

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/istmo-digital/docintel/constants"
	"github.com/istmo-digital/docintel/internal/patterns"
)

const loanContractText = `CONTRATO DE PRESTAMO PERSONAL No 2024-00371
CELEBRADO EL 25 de mayo de 2025 entre BANCO GENERAL y el cliente.
EL DEUDOR: JUAN CARLOS GONZALEZ PEREZ
EL ACREEDOR: BANCO GENERAL S.A.
MONTO DEL PRESTAMO: $35,000.00 comision $250.00
TASA DE INTERES: 7.5% ANUAL
PLAZO DE 36 MESES
CLAUSULA PRIMERA: El deudor se obliga a pagar el prestamo.
CLAUSULA SEGUNDA: Los pagos seran mensuales y consecutivos.
FIRMA ELECTRONICA registrada.
OBSERVACIONES: sujeto a verificacion de ingresos`

func newContractExtractor() *ContractExtractor {
	return NewContractExtractor(patterns.NewLibrary(), nil)
}

func TestContractExtractLoan(t *testing.T) {
	e := newContractExtractor()

	record := e.Extract(&RawExtraction{FullText: loanContractText}, constants.TypeContrato)

	assert.Equal(t, string(constants.ContractPrestamo), record.Subtype)
	assert.Equal(t, "2024-00371", fieldValue(t, record, "numero_contrato").Value)

	monto := fieldValue(t, record, "monto")
	require.NotNil(t, monto.Number)
	assert.InDelta(t, 35000.00, *monto.Number, 0.001)

	rate := fieldValue(t, record, "tasa_interes")
	require.NotNil(t, rate.Number)
	assert.InDelta(t, 7.5, *rate.Number, 0.001)

	assert.Equal(t, "36", fieldValue(t, record, "plazo_meses").Value)
	assert.Equal(t, "2025-05-25", fieldValue(t, record, "fecha_inicio").Value)
	assert.Equal(t, "USD", fieldValue(t, record, "moneda").Value)
	assert.Contains(t, fieldValue(t, record, "firmantes").Value, "JUAN CARLOS GONZALEZ PEREZ")
	assert.Equal(t, "true", fieldValue(t, record, "firma_digital").Value)

	assert.Len(t, record.Clauses, 2)
	assert.True(t, record.Validation.IsValid)
	assert.GreaterOrEqual(t, record.Confidence, 0.8)
	assert.LessOrEqual(t, record.Confidence, 0.95)
}

func TestContractInfersEndDateFromTerm(t *testing.T) {
	e := newContractExtractor()

	record := e.Extract(&RawExtraction{FullText: loanContractText}, constants.TypeContrato)

	end := fieldValue(t, record, "fecha_fin")
	assert.Equal(t, ProvenanceInferred, end.Provenance)
	// 36 months at 30 days each past 2025-05-25.
	assert.Equal(t, "2028-05-09", end.Value)
}

func TestContractTermInYears(t *testing.T) {
	e := newContractExtractor()
	text := "CONTRATO No 555123 PLAZO DE 2 AÑOS MONTO $10,000.00"

	record := e.Extract(&RawExtraction{FullText: text}, constants.TypeContrato)

	assert.Equal(t, "24", fieldValue(t, record, "plazo_meses").Value)
}

func TestContractMissingCriticalFields(t *testing.T) {
	e := newContractExtractor()

	record := e.Extract(&RawExtraction{FullText: "CONTRATO entre las partes."}, constants.TypeContrato)

	assert.False(t, record.Validation.IsValid)
	assert.NotEmpty(t, record.Validation.Errors)
	assert.GreaterOrEqual(t, record.Confidence, 0.3)
}

func TestContractClauseExcerptKeepsRunesWhole(t *testing.T) {
	// The multi-byte "ó" straddles the excerpt limit.
	body := strings.Repeat("a", maxClauseExcerpt-1) + "ó" + strings.Repeat("b", 50)
	text := "CLAUSULA PRIMERA: " + body

	clauses := extractClauses(text)

	require.Len(t, clauses, 1)
	assert.LessOrEqual(t, len(clauses[0].Excerpt), maxClauseExcerpt)
	assert.True(t, utf8.ValidString(clauses[0].Excerpt))
}

func TestDetectContractSubtype(t *testing.T) {
	assert.Equal(t, constants.ContractPrestamo, detectContractSubtype("contrato de prestamo personal"))
	assert.Equal(t, constants.ContractTarjetaCredito, detectContractSubtype("contrato de tarjeta de credito, el tarjetahabiente"))
	assert.Equal(t, constants.ContractCuentaCorriente, detectContractSubtype("apertura de cuenta corriente"))
	assert.Equal(t, constants.ContractDeposito, detectContractSubtype("deposito a plazo fijo"))
	assert.Equal(t, constants.ContractGenerico, detectContractSubtype("acuerdo de servicios"))
}
