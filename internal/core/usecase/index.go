package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/avoronov/bookqa/internal/core/domain"
	"github.com/avoronov/bookqa/internal/core/ports"
)

// IndexDocumentSetUseCase makes sure the configured document set is chunked,
// embedded and stored. The expensive path runs at most once per FileID: a
// stored-row existence check gates reprocessing, and concurrent first-time
// requests for the same FileID collapse into a single in-process run.
type IndexDocumentSetUseCase struct {
	locators  []string
	store     ports.ChunkStore
	fetcher   ports.DocumentFetcher
	extractor ports.TextExtractor
	chunker   ports.Chunker
	batcher   *BatchEmbedder
	workers   int

	group singleflight.Group
}

func NewIndexDocumentSetUseCase(
	locators []string,
	store ports.ChunkStore,
	fetcher ports.DocumentFetcher,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	batcher *BatchEmbedder,
	workers int,
) *IndexDocumentSetUseCase {
	if workers < 1 {
		workers = 1
	}
	return &IndexDocumentSetUseCase{
		locators:  locators,
		store:     store,
		fetcher:   fetcher,
		extractor: extractor,
		chunker:   chunker,
		batcher:   batcher,
		workers:   workers,
	}
}

func (uc *IndexDocumentSetUseCase) EnsureIndexed(ctx context.Context, userID string) (domain.FileID, error) {
	fileID, err := domain.DeriveFileID(uc.locators)
	if err != nil {
		return "", err
	}

	_, err, _ = uc.group.Do(fileID.String(), func() (any, error) {
		return nil, uc.indexIfAbsent(ctx, fileID, userID)
	})
	if err != nil {
		return "", err
	}
	return fileID, nil
}

func (uc *IndexDocumentSetUseCase) indexIfAbsent(ctx context.Context, fileID domain.FileID, userID string) error {
	exists, err := uc.store.HasFileID(ctx, fileID)
	if err != nil {
		return fmt.Errorf("check existing embeddings: %w", err)
	}
	if exists {
		slog.Info("embeddings_present", "file_id", fileID, "user_id", userID)
		return nil
	}

	paths, err := uc.fetcher.Fetch(ctx, uc.locators)
	if err != nil {
		return fmt.Errorf("download documents: %w", err)
	}

	text := uc.extractAll(ctx, paths)
	if strings.TrimSpace(text) == "" {
		return domain.WrapError(domain.ErrExtractionFailed, "extract documents", errors.New("no text extracted from any document"))
	}

	segments := uc.chunker.Chunk(text)
	if len(segments) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "chunk documents", errors.New("chunking produced zero segments"))
	}
	slog.Info("chunks_created", "file_id", fileID, "count", len(segments))

	vectors, err := uc.batcher.EmbedSegments(ctx, segments)
	if err != nil {
		return fmt.Errorf("embed segments: %w", err)
	}

	if err := uc.store.InsertChunks(ctx, fileID, userID, segments, vectors); err != nil {
		return fmt.Errorf("store embeddings: %w", err)
	}
	slog.Info("embeddings_stored", "file_id", fileID, "count", len(segments))
	return nil
}

// extractAll extracts every spooled document over a bounded worker pool.
// Each worker handles one document end-to-end with no shared state; a
// failing document degrades to an empty contribution instead of aborting
// the set.
func (uc *IndexDocumentSetUseCase) extractAll(ctx context.Context, paths []string) string {
	texts := make([]string, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.workers)
	for i, path := range paths {
		g.Go(func() error {
			text, err := uc.extractor.Extract(gctx, path)
			if err != nil {
				slog.Warn("extract_failed", "path", path, "error", err)
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	_ = g.Wait()

	nonEmpty := make([]string, 0, len(texts))
	for _, t := range texts {
		if t != "" {
			nonEmpty = append(nonEmpty, t)
		}
	}
	return strings.Join(nonEmpty, "\n")
}
