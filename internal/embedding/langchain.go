package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/googleai"

	"github.com/hyperjump/yomu/internal/config"
)

// LangChainEmbedder adapts a langchaingo embedder to Embedder.
type LangChainEmbedder struct {
	impl       embeddings.Embedder
	dimensions int
}

// NewLangChainEmbedder wraps impl. Results must have the given dimensions.
func NewLangChainEmbedder(impl embeddings.Embedder, dimensions int) *LangChainEmbedder {
	return &LangChainEmbedder{impl: impl, dimensions: dimensions}
}

// NewGoogleAIEmbedder returns an embedder backed by the Gemini embedding API.
func NewGoogleAIEmbedder(ctx context.Context, cfg *config.EmbeddingConfig) (*LangChainEmbedder, error) {
	key := cfg.ResolveAPIKey()
	if key == "" {
		return nil, fmt.Errorf("googleai embedder: API key is required (set %s)", cfg.APIKeyEnv)
	}
	client, err := googleai.New(ctx,
		googleai.WithAPIKey(key),
		googleai.WithDefaultEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("googleai embedder: %w", err)
	}
	impl, err := embeddings.NewEmbedder(client,
		embeddings.WithBatchSize(cfg.BatchSize),
		embeddings.WithStripNewLines(true),
	)
	if err != nil {
		return nil, fmt.Errorf("googleai embedder: %w", err)
	}
	return NewLangChainEmbedder(impl, cfg.Dimensions), nil
}

// Embed returns the embedding of a single query text.
func (e *LangChainEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.impl.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if err := checkDimensions([][]float32{vec}, e.dimensions); err != nil {
		return nil, err
	}
	return vec, nil
}

// EmbedBatch returns one embedding per text, in order.
func (e *LangChainEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := e.impl.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embed documents: got %d embeddings for %d texts", len(vecs), len(texts))
	}
	if err := checkDimensions(vecs, e.dimensions); err != nil {
		return nil, err
	}
	return vecs, nil
}

// Dimensions returns the expected embedding dimension.
func (e *LangChainEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the underlying client holds no resources that need releasing here.
func (e *LangChainEmbedder) Close() error {
	return nil
}
