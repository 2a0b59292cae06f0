package main

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/istmo-digital/docintel/internal/extract"
	"github.com/istmo-digital/docintel/internal/ledger"
)

var historyCmd = &cobra.Command{
	Use:   "history <document-id>",
	Short: "Show the preserved versions of a document's record",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var restoreCmd = &cobra.Command{
	Use:   "restore <document-id> <version>",
	Short: "Restore a preserved version as the current record",
	Long: `Makes the given preserved version current again. The record being
displaced is preserved first, so the restore itself never loses data.`,
	Args: cobra.ExactArgs(2),
	RunE: runRestore,
}

var compareCmd = &cobra.Command{
	Use:   "compare <document-id> <version> [version]",
	Short: "Diff two versions of a document's record",
	Long: `With one version argument, compares that version against the current
record. With two, compares the older against the newer.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(historyCmd, restoreCmd, compareCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid document id: %w", err)
	}

	st, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer st.close()

	led := ledger.NewLedger(st.store, nil)
	current, err := led.Current(cmd.Context(), id)
	if err != nil {
		return err
	}
	fmt.Printf("current: %s %s conf=%.2f fields=%d\n",
		current.TypeID, current.SourceChannel, current.Confidence, len(current.Fields))

	history, err := led.History(cmd.Context(), id)
	if err != nil {
		return err
	}
	for _, snapshot := range history {
		fmt.Printf("v%-3d %s  %-12s %s conf=%.2f fields=%d\n",
			snapshot.VersionNumber,
			snapshot.PreservedAt.Format("2006-01-02 15:04:05"),
			snapshot.Reason,
			snapshot.Record.TypeID,
			snapshot.Record.Confidence,
			len(snapshot.Record.Fields))
	}
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid document id: %w", err)
	}
	version, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid version number: %w", err)
	}

	st, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer st.close()

	led := ledger.NewLedger(st.store, nil)
	record, err := led.Restore(cmd.Context(), id, version)
	if err != nil {
		return err
	}
	fmt.Printf("restored v%d: %s conf=%.2f fields=%d\n",
		version, record.TypeID, record.Confidence, len(record.Fields))
	return nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid document id: %w", err)
	}

	st, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer st.close()

	led := ledger.NewLedger(st.store, nil)
	history, err := led.History(cmd.Context(), id)
	if err != nil {
		return err
	}

	byVersion := func(arg string) (*extract.ExtractedRecord, error) {
		v, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid version number: %w", err)
		}
		for _, snapshot := range history {
			if snapshot.VersionNumber == v {
				return snapshot.Record, nil
			}
		}
		return nil, fmt.Errorf("version %d not found", v)
	}

	before, err := byVersion(args[1])
	if err != nil {
		return err
	}
	var after *extract.ExtractedRecord
	if len(args) == 3 {
		after, err = byVersion(args[2])
	} else {
		after, err = led.Current(cmd.Context(), id)
	}
	if err != nil {
		return err
	}

	diff := ledger.Compare(before, after)
	if diff.Empty() {
		fmt.Println("no field changes")
		return nil
	}
	printDiff(diff)
	return nil
}

func printDiff(diff ledger.Diff) {
	for _, c := range diff.Added {
		fmt.Printf("+ %-24s %s\n", c.Field, c.After)
	}
	for _, c := range diff.Removed {
		fmt.Printf("- %-24s %s\n", c.Field, c.Before)
	}
	for _, c := range diff.Modified {
		fmt.Printf("~ %-24s %s -> %s\n", c.Field, c.Before, c.After)
	}
}
