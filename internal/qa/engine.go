package qa

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/yomu/internal/models"
	"github.com/hyperjump/yomu/pkg/utils"
)

const snippetChars = 100

// Registry is the part of the document registry the engine needs.
type Registry interface {
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	GetDocumentContent(ctx context.Context, id string) (string, error)
	RecordQuestion(ctx context.Context, rec *models.QuestionRecord) error
}

// ChunkRetriever finds the chunks most relevant to a question.
type ChunkRetriever interface {
	RetrieveChunks(ctx context.Context, docID, question string, k int) []models.Chunk
}

// Engine answers questions about registered documents and records them in
// the question history.
type Engine struct {
	registry   Registry
	retriever  ChunkRetriever
	answerer   *Answerer
	summarizer *Summarizer
	topK       int
	logger     *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithTopK sets how many chunks are retrieved when a request does not say.
func WithTopK(k int) EngineOption {
	return func(e *Engine) {
		if k > 0 {
			e.topK = k
		}
	}
}

// NewEngine creates a Q&A engine.
func NewEngine(registry Registry, retriever ChunkRetriever, answerer *Answerer, summarizer *Summarizer, opts ...EngineOption) *Engine {
	e := &Engine{
		registry:   registry,
		retriever:  retriever,
		answerer:   answerer,
		summarizer: summarizer,
		topK:       5,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ask answers req.Question about req.DocumentID. A missing document yields an
// error wrapping storage.ErrNotFound. Nothing relevant in the document is not
// an error: the answer is NoContextAnswer with zero confidence.
func (e *Engine) Ask(ctx context.Context, req models.QuestionRequest) (*models.QAResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	if _, err := e.registry.GetDocument(ctx, req.DocumentID); err != nil {
		return nil, fmt.Errorf("ask: %w", err)
	}

	k := req.TopK
	if k <= 0 {
		k = e.topK
	}
	chunks := e.retriever.RetrieveChunks(ctx, req.DocumentID, req.Question, k)
	texts := models.Texts(chunks)

	answer, err := e.answerer.Answer(ctx, req.Question, texts)
	if err != nil {
		return nil, fmt.Errorf("ask: %w", err)
	}

	snippets := make([]string, len(texts))
	for i, t := range texts {
		snippets[i] = fmt.Sprintf("Document section %d: \"%s\"", i+1, utils.Snippet(t, snippetChars))
	}
	result := &models.QAResult{
		GroundedAnswer: *answer,
		DocumentID:     req.DocumentID,
		Question:       req.Question,
		SourceSnippets: snippets,
		ResponseTimeMs: time.Since(start).Milliseconds(),
	}

	rec := &models.QuestionRecord{
		DocumentID:     req.DocumentID,
		Question:       req.Question,
		Answer:         answer.Text,
		Type:           models.QuestionTypeQA,
		ResponseTimeMs: result.ResponseTimeMs,
	}
	if err := e.registry.RecordQuestion(ctx, rec); err != nil && e.logger != nil {
		e.logger.Warn("failed to record question", zap.String("document_id", req.DocumentID), zap.Error(err))
	}
	if e.logger != nil {
		e.logger.Info("question answered",
			zap.String("document_id", req.DocumentID),
			zap.Int("chunks", len(chunks)),
			zap.Int64("response_time_ms", result.ResponseTimeMs))
	}
	return result, nil
}

// Summary summarizes a registered document.
func (e *Engine) Summary(ctx context.Context, docID string) (string, error) {
	content, err := e.registry.GetDocumentContent(ctx, docID)
	if err != nil {
		return "", fmt.Errorf("summary: %w", err)
	}
	summary, err := e.summarizer.Summarize(ctx, content)
	if err != nil {
		return "", fmt.Errorf("summary: %w", err)
	}
	return summary, nil
}

// Summarizer returns the engine's summarizer.
func (e *Engine) Summarizer() *Summarizer {
	return e.summarizer
}
