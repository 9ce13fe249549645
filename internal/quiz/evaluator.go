package quiz

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/hyperjump/yomu/internal/llm"
	"github.com/hyperjump/yomu/internal/models"
	"github.com/hyperjump/yomu/pkg/utils"
)

// DefaultEvaluateOptions keep judgments stable.
var DefaultEvaluateOptions = llm.Options{MaxOutputTokens: 500, Temperature: 0.2, TopP: 0.8, TopK: 40}

// Evaluator grades answers.
type Evaluator struct {
	gen          llm.Generator
	contextChars int
	opts         llm.Options
}

// NewEvaluator creates an evaluator that shows the model at most contextChars
// characters of the document.
func NewEvaluator(gen llm.Generator, contextChars int) *Evaluator {
	if contextChars <= 0 {
		contextChars = 2000
	}
	return &Evaluator{gen: gen, contextChars: contextChars, opts: DefaultEvaluateOptions}
}

// Evaluate grades userAnswer. When correctAnswer is given, IsCorrect and Score
// come only from trimmed case-insensitive equality (100 or 0); the model's
// proposed score is kept in ModelScore and never changes Score. Without a
// correct answer IsCorrect is false and Score is the model's score, or 0 if
// none could be read. Feedback is the model's text verbatim.
func (e *Evaluator) Evaluate(ctx context.Context, question, userAnswer, correctAnswer, content string) (*models.EvaluationResult, error) {
	correctAnswer = strings.TrimSpace(correctAnswer)
	prompt := BuildEvaluationPrompt(question, userAnswer, correctAnswer, utils.Truncate(content, e.contextChars))
	feedback, err := e.gen.Generate(ctx, prompt, e.opts)
	if err != nil {
		return nil, err
	}

	result := &models.EvaluationResult{
		Feedback:      feedback,
		References:    []string{},
		CorrectAnswer: correctAnswer,
		ModelScore:    ParseModelScore(feedback),
	}
	if correctAnswer != "" {
		result.IsCorrect = AnswersMatch(userAnswer, correctAnswer)
		if result.IsCorrect {
			result.Score = 100
		}
	} else if result.ModelScore != nil {
		result.Score = *result.ModelScore
	}
	return result, nil
}

// AnswersMatch compares answers ignoring case and surrounding whitespace.
func AnswersMatch(user, correct string) bool {
	return strings.EqualFold(strings.TrimSpace(user), strings.TrimSpace(correct))
}

var scorePattern = regexp.MustCompile(`(?i)score\**\s*(?:\(0-100\))?\s*[:=-]?\s*\**\s*(\d{1,3})`)

// ParseModelScore reads the first "Score: N" figure from a judgment, clamped
// to 0..100. It returns nil when there is none.
func ParseModelScore(text string) *int {
	m := scorePattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	n = max(0, min(n, 100))
	return &n
}
