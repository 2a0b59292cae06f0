package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/istmo-digital/docintel/internal/export"
	"github.com/istmo-digital/docintel/internal/ledger"
)

var exportCmd = &cobra.Command{
	Use:   "export <document-id>",
	Short: "Export a document's record to XLSX",
	Long: `Writes the current record (fields, summary block and statement
transactions when present) to an XLSX workbook. With --history, every
preserved version gets its own sheet.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringP("output", "o", "record.xlsx", "output file path")
	exportCmd.Flags().Bool("history", false, "include one sheet per preserved version")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid document id: %w", err)
	}
	output, _ := cmd.Flags().GetString("output")
	withHistory, _ := cmd.Flags().GetBool("history")

	st, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer st.close()

	svc := export.NewService(ledger.NewLedger(st.store, nil), nil)

	var data []byte
	if withHistory {
		data, err = svc.ExportHistoryXLSX(cmd.Context(), id)
	} else {
		data, err = svc.ExportRecordXLSX(cmd.Context(), id)
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(output, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d bytes)\n", output, len(data))
	return nil
}
