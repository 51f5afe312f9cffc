package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/avoronov/bookqa/internal/core/domain"
	"github.com/avoronov/bookqa/internal/core/ports"
)

// FallbackAnswer is the designated degraded response returned when the
// completion generator fails. It reaches the user as a normal string but is
// tagged so the audit trail can tell it apart from a genuine answer.
const FallbackAnswer = "An error occurred while generating the response."

type AskUseCase struct {
	indexer   ports.DocumentSetIndexer
	embedder  ports.Embedder
	store     ports.ChunkStore
	generator ports.AnswerGenerator
	audit     ports.AuditPublisher
	topK      int
}

func NewAskUseCase(
	indexer ports.DocumentSetIndexer,
	embedder ports.Embedder,
	store ports.ChunkStore,
	generator ports.AnswerGenerator,
	audit ports.AuditPublisher,
	topK int,
) *AskUseCase {
	if topK <= 0 {
		topK = 5
	}
	return &AskUseCase{
		indexer:   indexer,
		embedder:  embedder,
		store:     store,
		generator: generator,
		audit:     audit,
		topK:      topK,
	}
}

func (uc *AskUseCase) Ask(ctx context.Context, question, userID string) (*domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("question is empty"))
	}

	fileID, err := uc.indexer.EnsureIndexed(ctx, userID)
	if err != nil {
		return nil, err
	}

	chunks, err := uc.retrieve(ctx, question, fileID)
	if err != nil {
		return nil, err
	}
	slog.Info("chunks_retrieved", "file_id", fileID, "count", len(chunks), "user_id", userID)

	answer := uc.compose(ctx, chunks, question)

	record := domain.QueryRecord{
		FileID:   fileID,
		Question: question,
		Answer:   answer.Text,
		Degraded: answer.Degraded,
		UserID:   userID,
	}
	if err := uc.audit.PublishQueryRecord(ctx, record); err != nil {
		// Audit persistence is best-effort; the answer still goes out.
		slog.Error("query_audit_publish_failed", "file_id", fileID, "error", err)
	}

	return answer, nil
}

// retrieve embeds the question and asks storage for the topK nearest chunks
// scoped to the FileID, best match first.
func (uc *AskUseCase) retrieve(ctx context.Context, question string, fileID domain.FileID) ([]domain.RetrievedChunk, error) {
	queryVector, err := uc.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalFailed, "embed question", err)
	}

	chunks, err := uc.store.MatchChunks(ctx, queryVector, uc.topK, fileID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalFailed, "match chunks", err)
	}
	return chunks, nil
}

// compose builds the bounded context prompt and invokes the completion
// generator once. Generator failure degrades to the fallback answer rather
// than propagating.
func (uc *AskUseCase) compose(ctx context.Context, chunks []domain.RetrievedChunk, question string) *domain.Answer {
	text, err := uc.generator.Complete(ctx, buildAnswerPrompt(chunks, question))
	if err != nil {
		slog.Warn("completion_degraded", "error", err)
		return &domain.Answer{Text: FallbackAnswer, Degraded: true}
	}
	return &domain.Answer{Text: text}
}

func buildAnswerPrompt(chunks []domain.RetrievedChunk, question string) string {
	contents := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		contents = append(contents, chunk.Content)
	}
	context := strings.Join(contents, "\n\n")

	var b strings.Builder
	b.WriteString("You are a helpful assistant. ")
	b.WriteString("Use ONLY the context below to answer the question. ")
	b.WriteString("Format the response in Markdown, using bullet points if helpful. ")
	b.WriteString("Use '\\n' explicitly for line breaks.\n\n")
	b.WriteString("---\n")
	b.WriteString(context)
	b.WriteString("\n---\n\n")
	b.WriteString("**Q:** " + question + "\n")
	b.WriteString("**A:**")
	return b.String()
}
