// Package embedding provides text embedding providers and an LRU cache in front of them.
package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/yomu/internal/config"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// NewEmbedder builds the embedder selected by cfg.Provider, wrapped in an LRU
// cache when cfg.CacheSize is positive.
func NewEmbedder(ctx context.Context, cfg *config.EmbeddingConfig) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case "googleai":
		e, err = NewGoogleAIEmbedder(ctx, cfg)
	case "openai":
		e, err = NewOpenAIEmbedder(cfg)
	case "mock":
		e = NewMockEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: googleai, openai, mock)", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(e, cfg.CacheSize)
	}
	return e, nil
}

func checkDimensions(vectors [][]float32, want int) error {
	if want <= 0 {
		return nil
	}
	for i, v := range vectors {
		if len(v) != want {
			return fmt.Errorf("embedding %d has %d dimensions, expected %d", i, len(v), want)
		}
	}
	return nil
}
