// Package llm wraps text generation providers behind a single Generator
// interface and spaces outbound calls with a shared rate limiter.
package llm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/yomu/internal/config"
)

// ErrGenerationFailed wraps every provider failure: network errors, quota
// errors, timeouts and empty or malformed responses.
var ErrGenerationFailed = errors.New("generation failed")

// Options are the sampling settings for one generation call. Zero values
// leave the provider default in place.
type Options struct {
	MaxOutputTokens int
	Temperature     float64
	TopP            float64
	TopK            int
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// OptionsFromConfig returns the configured default sampling settings.
func OptionsFromConfig(cfg *config.LLMConfig) Options {
	return Options{
		MaxOutputTokens: cfg.MaxOutputTokens,
		Temperature:     cfg.Temperature,
		TopP:            cfg.TopP,
		TopK:            cfg.TopK,
	}
}

// NewGenerator builds the provider selected by cfg.Provider and wraps it in a
// RateLimited generator spaced by cfg.MinInterval.
func NewGenerator(ctx context.Context, cfg *config.LLMConfig, logger *zap.Logger) (Generator, error) {
	var (
		g   Generator
		err error
	)
	switch cfg.Provider {
	case "googleai":
		g, err = NewGoogleAIGenerator(ctx, cfg)
	case "openai":
		g, err = NewOpenAIGenerator(cfg)
	case "ollama":
		g, err = NewOllamaGenerator(cfg)
	case "mock":
		g = NewMockGenerator(mockResponse)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s (supported: googleai, openai, ollama, mock)", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Info("llm provider ready",
			zap.String("provider", cfg.Provider),
			zap.String("model", cfg.Model),
			zap.Duration("min_interval", cfg.MinInterval))
	}
	return NewRateLimited(g, NewLimiter(cfg.MinInterval), logger), nil
}

const mockResponse = "This is a mock response generated without a language model, based on Chunk 1."

func failed(err error) error {
	return fmt.Errorf("%w: %w", ErrGenerationFailed, err)
}
