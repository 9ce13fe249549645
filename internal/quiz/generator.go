package quiz

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/yomu/internal/llm"
	"github.com/hyperjump/yomu/internal/models"
	"github.com/hyperjump/yomu/pkg/utils"
)

// DefaultGenerateOptions trade some determinism for variety.
var DefaultGenerateOptions = llm.Options{MaxOutputTokens: 8192, Temperature: 0.7, TopP: 0.9, TopK: 40}

// Generator turns document text into quiz questions.
type Generator struct {
	gen          llm.Generator
	contentChars int
	opts         llm.Options
	logger       *zap.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithGenerateOptions overrides the sampling settings.
func WithGenerateOptions(opts llm.Options) GeneratorOption {
	return func(g *Generator) { g.opts = opts }
}

// WithGeneratorLogger sets a logger for repaired and rejected questions.
func WithGeneratorLogger(l *zap.Logger) GeneratorOption {
	return func(g *Generator) { g.logger = l }
}

// NewGenerator creates a quiz generator. Content longer than contentChars is
// cut, with "..." appended, before prompting.
func NewGenerator(gen llm.Generator, contentChars int, opts ...GeneratorOption) *Generator {
	if contentChars <= 0 {
		contentChars = 6000
	}
	g := &Generator{gen: gen, contentChars: contentChars, opts: DefaultGenerateOptions}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns at most n questions. Fewer are returned when the model
// produced fewer usable ones; the list is never padded. Every returned
// question has CorrectAnswer among its Options.
func (g *Generator) Generate(ctx context.Context, content string, difficulty models.Difficulty, n int) ([]*models.QuizQuestion, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: number of questions must be at least 1", models.ErrInvalidRequest)
	}
	prompt := BuildQuizPrompt(utils.Truncate(content, g.contentChars), difficulty, n)
	output, err := g.gen.Generate(ctx, prompt, g.opts)
	if err != nil {
		return nil, err
	}

	parsed := Parse(output)
	questions := make([]*models.QuizQuestion, 0, min(len(parsed), n))
	for i, q := range parsed {
		if !g.validate(i, q) {
			continue
		}
		q.Difficulty = difficulty
		questions = append(questions, q)
		if len(questions) == n {
			break
		}
	}
	if g.logger != nil {
		g.logger.Debug("quiz generated",
			zap.Int("requested", n),
			zap.Int("parsed", len(parsed)),
			zap.Int("accepted", len(questions)))
	}
	return questions, nil
}

// validate repairs a degraded answer letter against the final option list and
// reports whether q is usable.
func (g *Generator) validate(pos int, q *models.QuizQuestion) bool {
	if q.Degraded {
		if i, ok := letterIndex(q.CorrectAnswer); ok && i < len(q.Options) {
			g.warn("repaired correct answer", pos, q, zap.String("token", q.CorrectAnswer))
			q.CorrectAnswer = q.Options[i]
			q.Degraded = false
		}
	}
	switch {
	case q.Prompt == "":
		g.warn("rejected question without text", pos, q)
		return false
	case len(q.Options) < 2:
		g.warn("rejected question with too few options", pos, q, zap.Int("options", len(q.Options)))
		return false
	case q.Degraded || !q.AnswerInOptions():
		g.warn("rejected question with unresolved correct answer", pos, q, zap.String("token", q.CorrectAnswer))
		return false
	}
	return true
}

func (g *Generator) warn(msg string, pos int, q *models.QuizQuestion, fields ...zap.Field) {
	if g.logger == nil {
		return
	}
	fields = append(fields, zap.Int("position", pos+1), zap.String("question", utils.Truncate(q.Prompt, 80)))
	g.logger.Warn(msg, fields...)
}
