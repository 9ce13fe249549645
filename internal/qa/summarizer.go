package qa

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/yomu/internal/llm"
	"github.com/hyperjump/yomu/pkg/utils"
)

// ErrNoContent is returned when there is no text to summarize.
var ErrNoContent = errors.New("no content to summarize")

// SummaryWordLimit is the word budget given to the model.
const SummaryWordLimit = 150

// Summarizer writes short summaries of document content.
type Summarizer struct {
	gen          llm.Generator
	contentChars int
	opts         llm.Options
}

// NewSummarizer creates a summarizer. Content beyond contentChars characters is
// cut before prompting; maxTokens bounds the reply.
func NewSummarizer(gen llm.Generator, contentChars, maxTokens int) *Summarizer {
	if contentChars <= 0 {
		contentChars = 8000
	}
	if maxTokens <= 0 {
		maxTokens = 200
	}
	return &Summarizer{
		gen:          gen,
		contentChars: contentChars,
		opts:         llm.Options{MaxOutputTokens: maxTokens, Temperature: 0.3, TopP: 0.8, TopK: 40},
	}
}

// Summarize returns a summary of content.
func (s *Summarizer) Summarize(ctx context.Context, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", ErrNoContent
	}
	return s.gen.Generate(ctx, BuildSummaryPrompt(utils.Truncate(content, s.contentChars)), s.opts)
}

// BuildSummaryPrompt asks for a summary of at most SummaryWordLimit words.
func BuildSummaryPrompt(content string) string {
	return fmt.Sprintf("Please provide a concise summary of the following document in %d words or less.\n"+
		"Focus on the main themes, key findings, and important conclusions.\n\n"+
		"Document content:\n%s\n\n"+
		"Summary (at most %d words):", SummaryWordLimit, content, SummaryWordLimit)
}
