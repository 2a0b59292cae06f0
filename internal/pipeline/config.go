package pipeline

import (
	"log/slog"

	"github.com/istmo-digital/docintel/internal/classify"
	"github.com/istmo-digital/docintel/internal/common"
	"github.com/istmo-digital/docintel/internal/extract"
	"github.com/istmo-digital/docintel/internal/ledger"
	"github.com/istmo-digital/docintel/internal/ocr"
	"github.com/istmo-digital/docintel/internal/orchestrator"
	"github.com/istmo-digital/docintel/internal/patterns"
	"github.com/istmo-digital/docintel/internal/reconcile"
	"github.com/istmo-digital/docintel/internal/review"
)

// Deps are the externally owned collaborators of a Processor.
type Deps struct {
	// Client is the analysis backend. Nil means local-only operation.
	Client ocr.Client

	// Store persists current records and version snapshots.
	Store ledger.Store

	// Tasks persists review tasks. Nil routes review to the log only.
	Tasks review.TaskStore
}

// Build assembles the full processing stack from configuration. Every
// component shares the same pattern library instance.
func Build(cfg *common.Config, deps Deps, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}

	client := deps.Client
	if client == nil {
		client = ocr.Unavailable{}
	}

	library := patterns.NewLibrary()
	local := ocr.NewLocalExtractor(ocr.LocalConfig{
		Pdftotext: cfg.OCR.PdftotextPath,
	}, logger)

	var queue review.Queue
	if deps.Tasks != nil {
		queue = review.NewStoreQueue(deps.Tasks, logger)
	} else {
		queue = review.NewLogQueue(logger)
	}

	questionCache := common.NewTTLCache(cfg.Extraction.CacheTTL)

	return NewProcessor(
		classify.NewClassifier(library, logger),
		orchestrator.New(client, local, cfg.Extraction, questionCache, logger),
		extract.NewRegistry(library, logger),
		reconcile.NewEngine(library, logger),
		review.NewRouter(cfg.Review, logger),
		queue,
		ledger.NewLedger(deps.Store, logger),
		logger,
	)
}
