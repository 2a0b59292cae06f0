package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/istmo-digital/docintel/internal/common"
	"github.com/istmo-digital/docintel/internal/ledger"
	"github.com/istmo-digital/docintel/internal/ocr"
	"github.com/istmo-digital/docintel/internal/pipeline"
	"github.com/istmo-digital/docintel/internal/repository"
	"github.com/istmo-digital/docintel/internal/review"
)

var (
	cfg     *common.Config
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "docintel",
	Short: "Banking document intelligence pipeline",
	Long: `Classifies banking documents (identity, contracts, statements),
extracts structured fields through the dual OCR channel, reconciles the
results and keeps a versioned record ledger.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = common.LoadConfig()

		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// storage bundles the CLI's persistence handles. Postgres when DB_URL is
// set, the embedded SQLite file otherwise.
type storage struct {
	documents repository.DocumentRepository
	store     ledger.Store
	tasks     review.TaskStore
	reviews   review.TaskLister
	close     func()
}

func openStorage(ctx context.Context) (*storage, error) {
	if cfg.Database.DSN != "" {
		pool, err := repository.Open(ctx, repository.Config{
			DSN:             cfg.Database.DSN,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
			DialTimeout:     cfg.Database.DialTimeout,
		}, nil)
		if err != nil {
			return nil, err
		}
		tasks := repository.NewReviewTaskRepository(pool, nil)
		return &storage{
			documents: repository.NewDocumentRepository(pool, nil),
			store:     repository.NewSnapshotRepository(pool, nil),
			tasks:     tasks,
			reviews:   tasks,
			close:     func() { repository.Close(pool, nil) },
		}, nil
	}

	sqlite, err := repository.OpenSQLite(cfg.Database.SQLitePath, nil)
	if err != nil {
		return nil, err
	}
	return &storage{
		documents: sqlite,
		store:     sqlite,
		tasks:     sqlite,
		reviews:   sqlite,
		close:     func() { _ = sqlite.Close() },
	}, nil
}

func backendClient() ocr.Client {
	if cfg.OCR.Endpoint == "" {
		return nil
	}
	return ocr.NewHTTPClient(ocr.HTTPConfig{
		BaseURL: cfg.OCR.Endpoint,
		APIKey:  cfg.OCR.APIKey,
		Timeout: cfg.Extraction.CallTimeout,
	}, nil)
}

func buildProcessor(st *storage) *pipeline.Processor {
	return pipeline.Build(cfg, pipeline.Deps{
		Client: backendClient(),
		Store:  st.store,
		Tasks:  st.tasks,
	}, nil)
}
