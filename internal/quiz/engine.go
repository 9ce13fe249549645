package quiz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/yomu/internal/models"
	"github.com/hyperjump/yomu/pkg/utils"
)

// MinChunksForQuestions is the chunk count from which a document is
// considered suitable for challenge questions.
const MinChunksForQuestions = 3

// Registry is the part of the document registry the engine needs.
type Registry interface {
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	GetDocumentContent(ctx context.Context, id string) (string, error)
	RecordQuestion(ctx context.Context, rec *models.QuestionRecord) error
}

// Limits bound challenge requests.
type Limits struct {
	DefaultDifficulty models.Difficulty
	DefaultQuestions  int
	MaxQuestions      int
}

// Engine generates challenges for registered documents and grades answers.
type Engine struct {
	registry  Registry
	generator *Generator
	evaluator *Evaluator
	limits    Limits
	logger    *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a challenge engine. Zero limits fall back to medium
// difficulty, 3 questions by default and at most 10.
func NewEngine(registry Registry, generator *Generator, evaluator *Evaluator, limits Limits, opts ...EngineOption) *Engine {
	if limits.DefaultDifficulty == "" {
		limits.DefaultDifficulty = models.DifficultyMedium
	}
	if limits.DefaultQuestions <= 0 {
		limits.DefaultQuestions = 3
	}
	if limits.MaxQuestions <= 0 {
		limits.MaxQuestions = 10
	}
	e := &Engine{registry: registry, generator: generator, evaluator: evaluator, limits: limits}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Generate creates questions for req.DocumentID with ids "<document id>_<n>".
// A missing document yields an error wrapping storage.ErrNotFound.
func (e *Engine) Generate(ctx context.Context, req models.ChallengeRequest) (*models.ChallengeResponse, error) {
	if err := req.Validate(e.limits.DefaultDifficulty, e.limits.DefaultQuestions, e.limits.MaxQuestions); err != nil {
		return nil, err
	}
	start := time.Now()
	content, err := e.content(ctx, req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("challenge: %w", err)
	}
	questions, err := e.generator.Generate(ctx, content, req.Difficulty, req.NumQuestions)
	if err != nil {
		return nil, fmt.Errorf("challenge: %w", err)
	}
	elapsed := time.Since(start).Milliseconds()
	for i, q := range questions {
		q.ID = fmt.Sprintf("%s_%d", req.DocumentID, i+1)
		e.record(ctx, &models.QuestionRecord{
			DocumentID:     req.DocumentID,
			Question:       q.Prompt,
			Answer:         q.CorrectAnswer,
			Type:           models.QuestionTypeChallenge,
			ResponseTimeMs: elapsed,
		})
	}
	if e.logger != nil {
		e.logger.Info("challenge generated",
			zap.String("document_id", req.DocumentID),
			zap.String("difficulty", string(req.Difficulty)),
			zap.Int("requested", req.NumQuestions),
			zap.Int("generated", len(questions)))
	}
	return &models.ChallengeResponse{DocumentID: req.DocumentID, Difficulty: req.Difficulty, Questions: questions}, nil
}

// Evaluate grades one answer against the document's content.
func (e *Engine) Evaluate(ctx context.Context, req models.EvaluateRequest) (*models.EvaluationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	content, err := e.content(ctx, req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	result, err := e.evaluator.Evaluate(ctx, req.Question, req.UserAnswer, req.CorrectAnswer, content)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	if e.logger != nil {
		e.logger.Info("answer evaluated",
			zap.String("document_id", req.DocumentID),
			zap.String("question_id", req.QuestionID),
			zap.Bool("correct", result.IsCorrect),
			zap.Int("score", result.Score))
	}
	return result, nil
}

// Statistics describes how well a document supports challenge questions.
func (e *Engine) Statistics(ctx context.Context, docID string) (*models.DocumentStatistics, error) {
	doc, err := e.registry.GetDocument(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("statistics: %w", err)
	}
	content, err := e.registry.GetDocumentContent(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("statistics: %w", err)
	}
	return &models.DocumentStatistics{
		DocumentID:           doc.ID,
		Filename:             doc.Filename,
		CreatedAt:            doc.CreatedAt,
		ChunkCount:           doc.ChunkCount,
		ContentLength:        len([]rune(content)),
		WordCount:            utils.CountWords(content),
		SuitableForQuestions: doc.ChunkCount >= MinChunksForQuestions,
		Difficulties:         models.Difficulties,
	}, nil
}

func (e *Engine) content(ctx context.Context, docID string) (string, error) {
	content, err := e.registry.GetDocumentContent(ctx, docID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("document %s has no content", docID)
	}
	return content, nil
}

func (e *Engine) record(ctx context.Context, rec *models.QuestionRecord) {
	if err := e.registry.RecordQuestion(ctx, rec); err != nil && e.logger != nil {
		e.logger.Warn("failed to record question", zap.String("document_id", rec.DocumentID), zap.Error(err))
	}
}
