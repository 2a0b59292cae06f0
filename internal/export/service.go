// Package export produces XLSX workbooks from extraction records.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/istmo-digital/docintel/internal/extract"
	"github.com/istmo-digital/docintel/internal/ledger"
)

// RecordSource resolves a document's current record. *ledger.Ledger
// satisfies it.
type RecordSource interface {
	Current(ctx context.Context, documentID uuid.UUID) (*extract.ExtractedRecord, error)
	History(ctx context.Context, documentID uuid.UUID) ([]ledger.VersionSnapshot, error)
}

// Service is a tiny façade over the ledger that produces XLSX bytes.
type Service struct {
	records RecordSource
	logger  *slog.Logger
}

func NewService(records RecordSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{records: records, logger: logger}
}

// ExportRecordXLSX returns a workbook with a Fields sheet and, when the
// record carries transactions, a Transactions sheet.
func (s *Service) ExportRecordXLSX(ctx context.Context, documentID uuid.UUID) ([]byte, error) {
	start := time.Now()

	record, err := s.records.Current(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}

	f := excelize.NewFile()
	const fieldsSheet = "Fields"
	index, err := f.NewSheet(fieldsSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	if err := writeFieldsSheet(f, fieldsSheet, record); err != nil {
		return nil, err
	}

	if len(record.Transactions) > 0 {
		const txSheet = "Transactions"
		if _, err := f.NewSheet(txSheet); err != nil {
			return nil, err
		}
		if err := writeTransactionsSheet(f, txSheet, record.Transactions); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"document_id", documentID.String(),
		"fields", len(record.Fields),
		"transactions", len(record.Transactions),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// ExportHistoryXLSX returns a workbook with one sheet per preserved
// version, newest first, plus the current record.
func (s *Service) ExportHistoryXLSX(ctx context.Context, documentID uuid.UUID) ([]byte, error) {
	record, err := s.records.Current(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}
	history, err := s.records.History(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	f := excelize.NewFile()
	index, err := f.NewSheet("Current")
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	if err := writeFieldsSheet(f, "Current", record); err != nil {
		return nil, err
	}

	for _, snapshot := range history {
		sheet := fmt.Sprintf("v%d", snapshot.VersionNumber)
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
		if err := writeFieldsSheet(f, sheet, snapshot.Record); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.history.ok",
		"document_id", documentID.String(), "versions", len(history))
	return buf.Bytes(), nil
}

func writeFieldsSheet(f *excelize.File, sheet string, record *extract.ExtractedRecord) error {
	headers := []string{"Field", "Value", "Provenance", "Normalized", "Confidence"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	names := make([]string, 0, len(record.Fields))
	for name := range record.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	row := 2
	for _, name := range names {
		fv := record.Fields[name]
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, name)
		write(2, fv.Value)
		write(3, string(fv.Provenance))
		write(4, fv.Normalized)
		write(5, fv.Confidence)
		row++
	}

	// Summary block under the fields.
	row++
	summary := [][2]any{
		{"document_type", string(record.DocumentType)},
		{"type_id", string(record.TypeID)},
		{"source_channel", string(record.SourceChannel)},
		{"confidence", record.Confidence},
		{"is_valid", record.Validation.IsValid},
	}
	for _, pair := range summary {
		keyCell, _ := excelize.CoordinatesToCellName(1, row)
		valCell, _ := excelize.CoordinatesToCellName(2, row)
		_ = f.SetCellValue(sheet, keyCell, pair[0])
		_ = f.SetCellValue(sheet, valCell, pair[1])
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 24)
	_ = f.SetColWidth(sheet, "B", "B", 48)
	_ = f.SetColWidth(sheet, "C", "E", 14)
	return nil
}

func writeTransactionsSheet(f *excelize.File, sheet string, transactions []extract.Transaction) error {
	headers := []string{"Date", "Reference", "Description", "Amount"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	for i, tx := range transactions {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, tx.Date)
		write(2, tx.Reference)
		write(3, tx.Description)
		write(4, tx.Amount)
	}

	_ = f.SetColWidth(sheet, "A", "B", 16)
	_ = f.SetColWidth(sheet, "C", "C", 42)
	_ = f.SetColWidth(sheet, "D", "D", 14)
	return nil
}
