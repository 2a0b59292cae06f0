// Package ingest validates and registers documents from the filesystem.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/istmo-digital/docintel/constants"
	"github.com/istmo-digital/docintel/internal/common"
	"github.com/istmo-digital/docintel/internal/entity"
	"github.com/istmo-digital/docintel/internal/repository"
)

// IngestionResult is the per-file intake outcome.
type IngestionResult struct {
	SourcePath   string
	DocumentID   string
	Deduplicated bool
	HashHex      string
	FileExt      string
	IngestedAt   time.Time
	Err          string
}

// DirStats summarizes a directory intake.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// FSIngestor reads documents from the local filesystem and registers them.
type FSIngestor struct {
	documents   repository.DocumentRepository
	maxFileSize int64
	logger      *slog.Logger
}

func NewFSIngestor(documents repository.DocumentRepository, maxFileSize int64, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{documents: documents, maxFileSize: maxFileSize, logger: logger}
}

// IngestPath validates, hashes and registers one file. A file whose hash is
// already known reports Deduplicated instead of creating a second document.
func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	var out IngestionResult

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return out, err
	}

	if err := ValidateFile(FileMetadata{
		Filename:  filepath.Base(abs),
		SizeBytes: info.Size(),
	}, i.maxFileSize); err != nil {
		i.logger.Warn("file rejected at intake", "path", abs, "error", err)
		return out, err
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return out, err
	}
	sum := sha256.Sum256(data)
	hashHex := hex.EncodeToString(sum[:])
	ext := constants.NormalizeExt(filepath.Ext(abs))

	if existing, err := i.documents.GetByHash(ctx, hashHex); err == nil {
		i.logger.Info("duplicate document skipped", "path", abs, "document_id", existing.ID)
		return IngestionResult{
			SourcePath:   abs,
			DocumentID:   existing.ID.String(),
			Deduplicated: true,
			HashHex:      hashHex,
			FileExt:      ext,
			IngestedAt:   existing.CreatedAt,
		}, nil
	} else if !errors.Is(err, common.ErrNotFound) {
		return out, err
	}

	doc, err := i.documents.Create(ctx, &entity.Document{
		Filename:    filepath.Base(abs),
		ContentHash: hashHex,
		Format:      constants.FormatForExt(ext),
		SizeBytes:   info.Size(),
	})
	if err != nil {
		return out, err
	}

	return IngestionResult{
		SourcePath: abs,
		DocumentID: doc.ID.String(),
		HashHex:    hashHex,
		FileExt:    ext,
		IngestedAt: doc.CreatedAt,
	}, nil
}

// IngestDirectory walks root, skips hidden entries if requested, and calls
// IngestPath for each allowed file. Per-file failures do not stop the walk.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}

		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}
