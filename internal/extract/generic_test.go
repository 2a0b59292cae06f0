package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/istmo-digital/docintel/constants"
	"github.com/istmo-digital/docintel/internal/patterns"
)

func TestGenericExtract(t *testing.T) {
	e := NewGenericExtractor(patterns.NewLibrary(), nil)
	text := "RECIBO cliente juan.perez@mail.com cedula 8-236-51 fecha 15/02/2024 por $350.00"

	record := e.Extract(&RawExtraction{FullText: text}, constants.TypeRecibo)

	assert.Equal(t, "juan.perez@mail.com", fieldValue(t, record, "email").Value)
	assert.Equal(t, "8-236-51", fieldValue(t, record, "numero_documento").Value)
	assert.Equal(t, "2024-02-15", fieldValue(t, record, "fecha").Value)

	importe := fieldValue(t, record, "importe")
	require.NotNil(t, importe.Number)
	assert.InDelta(t, 350.00, *importe.Number, 0.001)

	assert.True(t, record.Validation.IsValid)
	assert.GreaterOrEqual(t, record.Confidence, 0.3)
	assert.LessOrEqual(t, record.Confidence, 0.7)
}

func TestGenericExtractEmptyText(t *testing.T) {
	e := NewGenericExtractor(patterns.NewLibrary(), nil)

	record := e.Extract(&RawExtraction{FullText: ""}, constants.TypeRecibo)

	assert.Empty(t, record.Fields)
	assert.NotEmpty(t, record.Validation.Warnings)
	assert.InDelta(t, 0.3, record.Confidence, 0.0001)
}

func TestRegistryDispatch(t *testing.T) {
	registry := NewRegistry(patterns.NewLibrary(), nil)

	assert.IsType(t, &IdentityExtractor{}, registry.For(constants.DocTypeIdentity))
	assert.IsType(t, &ContractExtractor{}, registry.For(constants.DocTypeContract))
	assert.IsType(t, &FinancialExtractor{}, registry.For(constants.DocTypeFinancial))
	assert.IsType(t, &GenericExtractor{}, registry.For(constants.DocTypeGeneric))
	assert.IsType(t, &GenericExtractor{}, registry.For(constants.DocTypeUnknown))
}

func TestMarshalRecordSchema(t *testing.T) {
	e := newIdentityExtractor()
	record := e.Extract(&RawExtraction{FullText: cedulaText}, constants.TypeDNI)

	data, err := MarshalRecord(record)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"document_type":"identity"`)

	// A confidence outside the persisted range must be rejected.
	record.Confidence = 1.2
	_, err = MarshalRecord(record)
	assert.Error(t, err)
}
