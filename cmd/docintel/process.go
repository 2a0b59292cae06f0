package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/istmo-digital/docintel/internal/ingest"
	"github.com/istmo-digital/docintel/internal/pipeline"
)

var processCmd = &cobra.Command{
	Use:   "process <file|dir>...",
	Short: "Ingest and process documents end to end",
	Long: `Registers each file, runs the extraction pipeline and preserves the
resulting record. Directories are walked recursively; duplicates (by
content hash) are reprocessed against the already-registered document so
prior versions are preserved.

Examples:
  # Single statement
  docintel process extracto_enero.pdf

  # A whole dropbox, eight documents at a time
  docintel process ./inbox --workers 8`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().Int("workers", 4, "documents processed in parallel")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workers, _ := cmd.Flags().GetInt("workers")
	if workers < 1 {
		workers = 1
	}

	st, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer st.close()

	processor := buildProcessor(st)
	ingestor := ingest.NewFSIngestor(st.documents, cfg.Ingest.MaxFileSize, nil)

	// Collect intake results first so the worker pool only sees
	// registered documents.
	var intake []ingest.IngestionResult
	for _, arg := range args {
		results, stats, err := ingestor.IngestDirectory(ctx, arg, true)
		if err == nil && stats.Matched > 0 {
			intake = append(intake, results...)
			continue
		}
		r, err := ingestor.IngestPath(ctx, arg)
		if err != nil {
			fmt.Printf("SKIP %s: %v\n", arg, err)
			continue
		}
		intake = append(intake, r)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, r := range intake {
		if r.Err != "" {
			fmt.Printf("SKIP %s: %s\n", r.SourcePath, r.Err)
			continue
		}
		g.Go(func() error {
			id, err := uuid.Parse(r.DocumentID)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(r.SourcePath)
			if err != nil {
				return err
			}
			outcome, err := processor.Process(gctx, id, data, filepath.Base(r.SourcePath))
			if err != nil {
				return fmt.Errorf("%s: %w", r.SourcePath, err)
			}

			mu.Lock()
			defer mu.Unlock()
			printOutcome(r, outcome)
			_ = st.documents.UpdateClassification(gctx, id,
				outcome.Classification.TypeID, outcome.Classification.Confidence,
				outcome.Classification.RequiresReverification)
			return nil
		})
	}
	return g.Wait()
}

func printOutcome(r ingest.IngestionResult, out *pipeline.Outcome) {
	status := "OK"
	switch {
	case out.State.Terminal() && out.Record == nil:
		status = "FAILED"
	case out.Decision.RequiresReview:
		status = "REVIEW"
	}
	fmt.Printf("%-7s %s\n", status, r.SourcePath)
	fmt.Printf("        id=%s type=%s conf=%.2f state=%s", r.DocumentID,
		out.Classification.TypeID, out.Classification.Confidence, out.State)
	if out.Record != nil {
		fmt.Printf(" fields=%d", len(out.Record.Fields))
	}
	if out.Decision.RequiresReview {
		fmt.Printf(" reason=%s", out.Decision.Reason)
	}
	if out.Degraded {
		fmt.Printf(" degraded=true")
	}
	fmt.Println()
}
