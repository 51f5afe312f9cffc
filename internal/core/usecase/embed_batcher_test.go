package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/avoronov/bookqa/internal/core/domain"
)

// wordCounter counts whitespace-separated tokens so batch boundaries are
// easy to reason about in tests.
type wordCounter struct{}

func (wordCounter) Count(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		if r == ' ' {
			inWord = false
			continue
		}
		if !inWord {
			count++
			inWord = true
		}
	}
	return count
}

type embedderFake struct {
	batches [][]string
	failOn  int
	err     error
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	call := len(f.batches)
	f.batches = append(f.batches, append([]string{}, texts...))
	if f.err != nil && call == f.failOn {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		// Tag each vector with its batch and position so order is traceable.
		vectors[i] = []float32{float32(call), float32(i)}
	}
	return vectors, nil
}

func (f *embedderFake) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func segmentsOf(contents ...string) []domain.Segment {
	segments := make([]domain.Segment, len(contents))
	for i, c := range contents {
		segments[i] = domain.Segment{Content: c}
	}
	return segments
}

func TestEmbedSegmentsRespectsTokenCeiling(t *testing.T) {
	embedder := &embedderFake{}
	batcher := NewBatchEmbedder(embedder, wordCounter{}, 5)

	// 3 + 3 tokens exceed the ceiling of 5, so the second segment starts a
	// new batch.
	vectors, err := batcher.EmbedSegments(context.Background(), segmentsOf(
		"one two three",
		"four five six",
	))
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(embedder.batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(embedder.batches))
	}
	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}
}

func TestEmbedSegmentsPreservesInputOrder(t *testing.T) {
	embedder := &embedderFake{}
	batcher := NewBatchEmbedder(embedder, wordCounter{}, 4)

	contents := make([]string, 7)
	for i := range contents {
		contents[i] = fmt.Sprintf("segment %d", i)
	}
	vectors, err := batcher.EmbedSegments(context.Background(), segmentsOf(contents...))
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vectors) != len(contents) {
		t.Fatalf("expected %d vectors, got %d", len(contents), len(vectors))
	}

	flat := 0
	for _, batch := range embedder.batches {
		for _, text := range batch {
			if text != contents[flat] {
				t.Fatalf("position %d: expected %q, got %q", flat, contents[flat], text)
			}
			flat++
		}
	}
	if flat != len(contents) {
		t.Fatalf("batches cover %d segments, want %d", flat, len(contents))
	}
}

func TestEmbedSegmentsOversizedSegmentFormsOwnBatch(t *testing.T) {
	embedder := &embedderFake{}
	batcher := NewBatchEmbedder(embedder, wordCounter{}, 3)

	_, err := batcher.EmbedSegments(context.Background(), segmentsOf(
		"a b",
		"one two three four five",
		"c d",
	))
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(embedder.batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(embedder.batches))
	}
	if len(embedder.batches[1]) != 1 {
		t.Fatalf("oversized segment must sit alone, batch had %d entries", len(embedder.batches[1]))
	}
}

func TestEmbedSegmentsNeverIssuesEmptyBatch(t *testing.T) {
	embedder := &embedderFake{}
	batcher := NewBatchEmbedder(embedder, wordCounter{}, 1)

	// Every segment exceeds the ceiling on its own; a naive flush-first
	// loop would call the provider with zero texts.
	_, err := batcher.EmbedSegments(context.Background(), segmentsOf("a b c", "d e f"))
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	for i, batch := range embedder.batches {
		if len(batch) == 0 {
			t.Fatalf("batch %d was empty", i)
		}
	}
}

func TestEmbedSegmentsFailureDiscardsPartialResults(t *testing.T) {
	embedder := &embedderFake{failOn: 1, err: errors.New("provider down")}
	batcher := NewBatchEmbedder(embedder, wordCounter{}, 2)

	vectors, err := batcher.EmbedSegments(context.Background(), segmentsOf("a b", "c d", "e f"))
	if err == nil {
		t.Fatalf("expected error from failing batch")
	}
	if !domain.IsKind(err, domain.ErrEmbeddingFailed) {
		t.Fatalf("expected ErrEmbeddingFailed, got %v", err)
	}
	if vectors != nil {
		t.Fatalf("expected no partial vectors, got %d", len(vectors))
	}
}

func TestEmbedSegmentsEmptyInputMakesNoCalls(t *testing.T) {
	embedder := &embedderFake{}
	batcher := NewBatchEmbedder(embedder, wordCounter{}, 10)

	vectors, err := batcher.EmbedSegments(context.Background(), nil)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vectors) != 0 {
		t.Fatalf("expected no vectors, got %d", len(vectors))
	}
	if len(embedder.batches) != 0 {
		t.Fatalf("expected no provider calls, got %d", len(embedder.batches))
	}
}

func TestEmbedSegmentsRejectsVectorCountMismatch(t *testing.T) {
	batcher := NewBatchEmbedder(shortEmbedder{}, wordCounter{}, 10)

	_, err := batcher.EmbedSegments(context.Background(), segmentsOf("a", "b"))
	if !domain.IsKind(err, domain.ErrEmbeddingFailed) {
		t.Fatalf("expected ErrEmbeddingFailed for count mismatch, got %v", err)
	}
}

type shortEmbedder struct{}

func (shortEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return [][]float32{{1}}, nil
}

func (shortEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{1}, nil
}
