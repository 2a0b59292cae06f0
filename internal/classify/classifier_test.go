package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/istmo-digital/docintel/constants"
	"github.com/istmo-digital/docintel/internal/patterns"
)

func newTestClassifier() *Classifier {
	return NewClassifier(patterns.NewLibrary(), nil)
}

const cedulaText = `REPUBLICA DE PANAMA TRIBUNAL ELECTORAL
CEDULA DE IDENTIDAD PERSONAL
NOMBRE: JUAN CARLOS GONZALEZ PEREZ
8-236-51
FECHA DE NACIMIENTO: 12-MAR-1985
EXPEDIDA: 16-NOV-2017 EXPIRA: 16-NOV-2027
SEXO: M`

func TestClassifyCedulaPanama(t *testing.T) {
	c := newTestClassifier()

	result := c.Classify(cedulaText)
	assert.Equal(t, constants.TypeDNI, result.TypeID)
	assert.Equal(t, constants.DocTypeIdentity, result.DocumentType)
	assert.GreaterOrEqual(t, result.Confidence, 0.8)
	assert.LessOrEqual(t, result.Confidence, 0.95)
}

func TestClassifyStrongSignalsPerType(t *testing.T) {
	tests := []struct {
		name string
		text string
		want constants.TypeID
	}{
		{
			"pasaporte",
			"PASAPORTE REPUBLICA DE PANAMA PASSPORT NACIONALIDAD: PANAMEÑA PA1234567 SURNAME GONZALEZ",
			constants.TypePasaporte,
		},
		{
			"contrato",
			"CONTRATO DE PRESTAMO PERSONAL CLAUSULA PRIMERA: LAS PARTES EL DEUDOR Y EL ACREEDOR ACUERDAN TASA DE INTERES 7.5% ANUAL PLAZO DE 36 MESES",
			constants.TypeContrato,
		},
		{
			"extracto",
			"EXTRACTO BANCARIO ESTADO DE CUENTA SALDO ANTERIOR: $1,000.00 SALDO ACTUAL: $2,500.00 MOVIMIENTOS DEL PERIODO NUMERO DE CUENTA 001-456789",
			constants.TypeExtracto,
		},
		{
			"nomina",
			"NOMINA PLANILLA DE PAGO EMPLEADO: JUAN PEREZ SALARIO DEVENGADO DEDUCCIONES NETO A PAGAR: $1,234.56 SEGURO SOCIAL PERIODO DE PAGO MARZO",
			constants.TypeNomina,
		},
		{
			"factura",
			"FACTURA No 00123 CLIENTE: EMPRESA XYZ RUC 123456-1-2024 SUBTOTAL $900.00 ITBMS $63.00 TOTAL A PAGAR $963.00",
			constants.TypeFactura,
		},
		{
			"recibo",
			"RECIBO DE PAGO RECIBI LA SUMA DE $500.00 CONCEPTO: ALQUILER CANTIDAD QUINIENTOS",
			constants.TypeRecibo,
		},
		{
			"kyc",
			"FORMULARIO CONOZCA A SU CLIENTE KYC DECLARACION DE BENEFICIARIO FINAL ORIGEN DE FONDOS PEP ACTIVIDAD ECONOMICA",
			constants.TypeKYC,
		},
	}

	c := newTestClassifier()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := c.Classify(tc.text)
			assert.Equal(t, tc.want, result.TypeID)
			assert.Greater(t, result.Confidence, 0.5)
			assert.LessOrEqual(t, result.Confidence, 0.95)
		})
	}
}

func TestClassifyEmptyText(t *testing.T) {
	c := newTestClassifier()

	result := c.Classify("   ")
	assert.Equal(t, constants.TypeUnknown, result.TypeID)
	assert.Equal(t, constants.DocTypeUnknown, result.DocumentType)
	assert.Zero(t, result.Confidence)
}

func TestClassifyBelowFloorDefaultsToContract(t *testing.T) {
	c := newTestClassifier()

	result := c.Classify("hola mundo sin señales")
	assert.Equal(t, constants.TypeContrato, result.TypeID)
	assert.Equal(t, 0.5, result.Confidence)
}

func TestClassifyTieIsDeterministic(t *testing.T) {
	c := newTestClassifier()

	// Equal raw signal for factura and recibo; the priority list decides.
	result := c.Classify("FACTURA RECIBO")
	require.Equal(t, result.Scores[constants.TypeFactura], result.Scores[constants.TypeRecibo])
	assert.Equal(t, constants.TypeFactura, result.TypeID)
}

func TestClassifyAmbiguityPenalty(t *testing.T) {
	c := newTestClassifier()

	ambiguous := c.Classify("FACTURA RECIBO")
	clear := c.Classify("FACTURA No 00123 SUBTOTAL $900.00 ITBMS TOTAL A PAGAR CLIENTE RUC")
	assert.Less(t, ambiguous.Confidence, clear.Confidence)
}

func TestBandConfidenceTiers(t *testing.T) {
	assert.InDelta(t, 0.1, bandConfidence(0), 0.0001)
	assert.InDelta(t, 0.3, bandConfidence(10), 0.0001)
	assert.InDelta(t, 0.5, bandConfidence(20), 0.0001)
	assert.InDelta(t, 0.75, bandConfidence(50), 0.0001)
	assert.InDelta(t, 0.85, bandConfidence(100), 0.0001)
	// Saturates at 150 and above.
	assert.InDelta(t, 0.95, bandConfidence(150), 0.0001)
	assert.InDelta(t, 0.95, bandConfidence(400), 0.0001)
}

func TestByFilename(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		filename string
		want     constants.TypeID
		conf     float64
	}{
		{"cedula_juan_perez.pdf", constants.TypeDNI, 0.7},
		{"Pasaporte-2024.jpg", constants.TypePasaporte, 0.7},
		{"contrato_prestamo_2024.pdf", constants.TypeContrato, 0.6},
		{"extracto_enero.pdf", constants.TypeExtracto, 0.6},
		{"scan_001.pdf", constants.TypeContrato, 0.5},
	}
	for _, tc := range tests {
		result := c.ByFilename(tc.filename)
		assert.Equal(t, tc.want, result.TypeID, tc.filename)
		assert.Equal(t, tc.conf, result.Confidence, tc.filename)
		assert.True(t, result.RequiresReverification, tc.filename)
		assert.LessOrEqual(t, result.Confidence, 0.7, tc.filename)
	}
}
