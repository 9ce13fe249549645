// Package qa answers free-form questions about a document using only
// retrieved passages of that document, and produces document summaries.
package qa

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/yomu/internal/llm"
	"github.com/hyperjump/yomu/internal/models"
)

const (
	// NotFoundPhrase is the phrase the model is told to use when the context lacks the answer.
	NotFoundPhrase = "I cannot find this information in the document"
	// NoContextAnswer is returned without calling the model when retrieval found nothing.
	NoContextAnswer = "I couldn't find relevant information in the document to answer your question."
	// AnswerConfidence is the fixed confidence of a generated answer.
	AnswerConfidence = 0.8
)

// DefaultAnswerOptions favor deterministic output.
var DefaultAnswerOptions = llm.Options{MaxOutputTokens: 8192, Temperature: 0.1, TopP: 0.9, TopK: 40}

// Answerer produces answers grounded in supplied context chunks.
type Answerer struct {
	gen    llm.Generator
	opts   llm.Options
	logger *zap.Logger
}

// AnswererOption configures an Answerer.
type AnswererOption func(*Answerer)

// WithAnswerOptions overrides the sampling settings.
func WithAnswerOptions(opts llm.Options) AnswererOption {
	return func(a *Answerer) { a.opts = opts }
}

// WithAnswererLogger sets a logger.
func WithAnswererLogger(l *zap.Logger) AnswererOption {
	return func(a *Answerer) { a.logger = l }
}

// NewAnswerer creates an answerer that calls gen.
func NewAnswerer(gen llm.Generator, opts ...AnswererOption) *Answerer {
	a := &Answerer{gen: gen, opts: DefaultAnswerOptions}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Answer answers question from chunks. With no chunks it returns NoContextAnswer
// at zero confidence and does not call the model. Generation errors are returned
// unchanged and wrap llm.ErrGenerationFailed.
func (a *Answerer) Answer(ctx context.Context, question string, chunks []string) (*models.GroundedAnswer, error) {
	if len(chunks) == 0 {
		return &models.GroundedAnswer{Text: NoContextAnswer, References: []string{}, Confidence: 0}, nil
	}
	text, err := a.gen.Generate(ctx, BuildAnswerPrompt(question, chunks), a.opts)
	if err != nil {
		return nil, err
	}
	refs := ExtractReferences(text, len(chunks))
	if a.logger != nil {
		a.logger.Debug("answer generated", zap.Int("chunks", len(chunks)), zap.Int("references", len(refs)))
	}
	return &models.GroundedAnswer{Text: text, References: refs, Confidence: AnswerConfidence}, nil
}

// BuildAnswerPrompt labels each chunk "[Chunk i]" (1-based) and instructs the
// model to answer from that context only.
func BuildAnswerPrompt(question string, chunks []string) string {
	labeled := make([]string, len(chunks))
	for i, c := range chunks {
		labeled[i] = fmt.Sprintf("[Chunk %d]: %s", i+1, c)
	}
	var b strings.Builder
	b.WriteString("Based on the following document context, please answer the user's question.\n\n")
	b.WriteString("IMPORTANT RULES:\n")
	b.WriteString("1. Only use information from the provided context\n")
	fmt.Fprintf(&b, "2. If the answer cannot be found in the context, say %q\n", NotFoundPhrase)
	b.WriteString("3. Include specific references to which chunks contain the relevant information (for example \"Chunk 2\")\n")
	b.WriteString("4. Be precise and factual\n\n")
	b.WriteString("Context:\n")
	b.WriteString(strings.Join(labeled, "\n\n"))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer:")
	return b.String()
}

var chunkMarker = regexp.MustCompile(`\b[Cc]hunk (\d+)\b`)

// ExtractReferences returns one "Reference: Document chunk i" entry for every
// ordinal 1..n mentioned as "Chunk i" or "chunk i" in text, in ascending order.
// The model's citation is trusted as written.
func ExtractReferences(text string, n int) []string {
	seen := make(map[int]bool)
	for _, m := range chunkMarker.FindAllStringSubmatch(text, -1) {
		i, err := strconv.Atoi(m[1])
		if err == nil && i >= 1 && i <= n {
			seen[i] = true
		}
	}
	refs := []string{}
	for i := 1; i <= n; i++ {
		if seen[i] {
			refs = append(refs, fmt.Sprintf("Reference: Document chunk %d", i))
		}
	}
	return refs
}
