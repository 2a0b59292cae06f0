package export

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/istmo-digital/docintel/constants"
	"github.com/istmo-digital/docintel/internal/extract"
	"github.com/istmo-digital/docintel/internal/ledger"
	"github.com/istmo-digital/docintel/internal/repository"
)

func seedRecord(t *testing.T, store *repository.MemoryStore, id uuid.UUID) *extract.ExtractedRecord {
	t.Helper()
	record := &extract.ExtractedRecord{
		DocumentType: constants.DocTypeFinancial,
		TypeID:       constants.TypeExtracto,
		Fields:       map[string]extract.FieldValue{},
		Confidence:   0.88,
		Transactions: []extract.Transaction{
			{Date: "2024-03-02", Reference: "ABC123XYZ", Description: "PAGO PLANILLA", Amount: 1500},
			{Date: "2024-03-10", Description: "RETIRO ATM", Amount: -200},
		},
	}
	record.SetField("numero_cuenta", extract.FieldValue{Value: "04-1234-567890", Provenance: extract.ProvenanceText})
	record.SetField("saldo_final", extract.FieldValue{Value: "2464.50", Provenance: extract.ProvenanceQuery, Confidence: 92})
	require.NoError(t, store.PutRecord(context.Background(), id, record))
	return record
}

func TestExportRecordXLSX(t *testing.T) {
	store := repository.NewMemoryStore()
	id := uuid.New()
	seedRecord(t, store, id)
	service := NewService(ledger.NewLedger(store, nil), nil)

	data, err := service.ExportRecordXLSX(context.Background(), id)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Contains(t, sheets, "Fields")
	assert.Contains(t, sheets, "Transactions")

	rows, err := f.GetRows("Fields")
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, []string{"Field", "Value", "Provenance", "Normalized", "Confidence"}, rows[0])
	// Fields are sorted by name.
	assert.Equal(t, "numero_cuenta", rows[1][0])
	assert.Equal(t, "saldo_final", rows[2][0])

	txRows, err := f.GetRows("Transactions")
	require.NoError(t, err)
	require.Len(t, txRows, 3)
	assert.Equal(t, "ABC123XYZ", txRows[1][1])
}

func TestExportRecordXLSXSkipsEmptyTransactions(t *testing.T) {
	store := repository.NewMemoryStore()
	id := uuid.New()
	record := &extract.ExtractedRecord{
		DocumentType: constants.DocTypeIdentity,
		TypeID:       constants.TypeDNI,
		Fields:       map[string]extract.FieldValue{},
	}
	record.SetField("numero_documento", extract.FieldValue{Value: "8-236-51"})
	require.NoError(t, store.PutRecord(context.Background(), id, record))
	service := NewService(ledger.NewLedger(store, nil), nil)

	data, err := service.ExportRecordXLSX(context.Background(), id)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	assert.NotContains(t, f.GetSheetList(), "Transactions")
}

func TestExportRecordXLSXUnknownDocument(t *testing.T) {
	service := NewService(ledger.NewLedger(repository.NewMemoryStore(), nil), nil)

	_, err := service.ExportRecordXLSX(context.Background(), uuid.New())

	assert.Error(t, err)
}

func TestExportHistoryXLSX(t *testing.T) {
	store := repository.NewMemoryStore()
	id := uuid.New()
	ctx := context.Background()
	led := ledger.NewLedger(store, nil)

	first := &extract.ExtractedRecord{TypeID: constants.TypeExtracto, Fields: map[string]extract.FieldValue{}}
	first.SetField("saldo_final", extract.FieldValue{Value: "100.00"})
	require.NoError(t, led.Preserve(ctx, id, first, "initial"))
	second := &extract.ExtractedRecord{TypeID: constants.TypeExtracto, Fields: map[string]extract.FieldValue{}}
	second.SetField("saldo_final", extract.FieldValue{Value: "200.00"})
	require.NoError(t, led.Preserve(ctx, id, second, "reprocess"))

	service := NewService(led, nil)
	data, err := service.ExportHistoryXLSX(ctx, id)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	sheets := f.GetSheetList()
	assert.Contains(t, sheets, "Current")
	assert.Contains(t, sheets, "v1")
}
