package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/istmo-digital/docintel/internal/common"
	"github.com/istmo-digital/docintel/internal/ingest"
	"github.com/istmo-digital/docintel/internal/ledger"
	"github.com/istmo-digital/docintel/internal/ocr"
	"github.com/istmo-digital/docintel/internal/pipeline"
	"github.com/istmo-digital/docintel/internal/repository"
	"github.com/istmo-digital/docintel/internal/review"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	log := logger.Sugar()

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if cfg.Ingest.WatchDir == "" {
		log.Fatal("WATCH_DIR env var is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage: Postgres when DB_URL is set, embedded SQLite otherwise.
	var (
		documents repository.DocumentRepository
		store     ledger.Store
		tasks     review.TaskStore
	)
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
			log.Fatalf("opening database: %v", err)
		}
		defer repository.Close(pool, nil)

		if err := repository.HealthCheck(ctx, pool, cfg.Database.DialTimeout, nil); err != nil {
			log.Fatalf("database health check failed: %v", err)
		}
		log.Infow("database health OK")

		documents = repository.NewDocumentRepository(pool, nil)
		store = repository.NewSnapshotRepository(pool, nil)
		tasks = repository.NewReviewTaskRepository(pool, nil)
	} else {
		sqlite, err := repository.OpenSQLite(cfg.Database.SQLitePath, nil)
		if err != nil {
			log.Fatalf("opening sqlite store: %v", err)
		}
		defer sqlite.Close()

		documents = sqlite
		store = sqlite
		tasks = sqlite
	}

	var client ocr.Client
	if cfg.OCR.Endpoint != "" {
		client = ocr.NewHTTPClient(ocr.HTTPConfig{
			BaseURL: cfg.OCR.Endpoint,
			APIKey:  cfg.OCR.APIKey,
			Timeout: cfg.Extraction.CallTimeout,
		}, nil)
	} else {
		log.Warnw("no analysis backend configured, running local-only")
	}

	processor := pipeline.Build(cfg, pipeline.Deps{
		Client: client,
		Store:  store,
		Tasks:  tasks,
	}, nil)
	queue := pipeline.NewQueue(processor, nil,
		pipeline.WithOutcomeHook(func(ctx context.Context, job pipeline.Job, out *pipeline.Outcome) {
			err := documents.UpdateClassification(ctx, job.DocumentID,
				out.Classification.TypeID, out.Classification.Confidence,
				out.Classification.RequiresReverification)
			if err != nil {
				log.Errorw("failed to record classification",
					"document_id", job.DocumentID, "error", err)
			}
		}))

	ingestor := ingest.NewFSIngestor(documents, cfg.Ingest.MaxFileSize, nil)
	events, watchErrs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{cfg.Ingest.WatchDir},
		InitialScan: true,
		Debounce:    cfg.Ingest.PollInterval,
	}, nil)
	if err != nil {
		log.Fatalf("starting watcher: %v", err)
	}
	log.Infof("watching %s", cfg.Ingest.WatchDir)

	go func() {
		for {
			select {
			case path, ok := <-events:
				if !ok {
					return
				}
				res, err := ingestor.IngestPath(ctx, path)
				if err != nil {
					log.Errorw("ingestion failed", "path", path, "error", err)
					continue
				}
				if res.Deduplicated {
					log.Infow("duplicate skipped", "path", path, "document_id", res.DocumentID)
					continue
				}
				id, err := uuid.Parse(res.DocumentID)
				if err != nil {
					log.Errorw("malformed document id", "path", path, "error", err)
					continue
				}
				_ = queue.Enqueue(ctx, pipeline.Job{
					DocumentID: id,
					Path:       res.SourcePath,
					Filename:   filepath.Base(res.SourcePath),
				})
			case err, ok := <-watchErrs:
				if !ok {
					return
				}
				log.Errorw("watch error", "error", err)
			}
		}
	}()

	// gRPC surface: health + reflection for probes and grpcurl.
	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	log.Infof("gRPC serving on %s", cfg.Server.GRPCAddr)

	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("grpc serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	grpcServer.GracefulStop()

	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	queue.Shutdown(drainCtx)
	log.Info("stopped")
}
