package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/fake"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/hyperjump/yomu/internal/config"
)

// LangChainGenerator adapts any langchaingo model to Generator.
type LangChainGenerator struct {
	model   llms.Model
	timeout time.Duration
}

// NewLangChainGenerator wraps model. A positive timeout bounds every call.
func NewLangChainGenerator(model llms.Model, timeout time.Duration) *LangChainGenerator {
	return &LangChainGenerator{model: model, timeout: timeout}
}

// NewGoogleAIGenerator returns a generator backed by the Gemini API.
func NewGoogleAIGenerator(ctx context.Context, cfg *config.LLMConfig) (*LangChainGenerator, error) {
	key := cfg.ResolveAPIKey()
	if key == "" {
		return nil, fmt.Errorf("googleai llm: API key is required (set %s)", cfg.APIKeyEnv)
	}
	model, err := googleai.New(ctx,
		googleai.WithAPIKey(key),
		googleai.WithDefaultModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("googleai llm: %w", err)
	}
	return NewLangChainGenerator(model, cfg.Timeout), nil
}

// NewOllamaGenerator returns a generator for a local Ollama server.
func NewOllamaGenerator(cfg *config.LLMConfig) (*LangChainGenerator, error) {
	opts := []ollama.Option{ollama.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}
	model, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("ollama llm: %w", err)
	}
	return NewLangChainGenerator(model, cfg.Timeout), nil
}

// NewMockGenerator returns an offline generator that replies with responses
// in order, starting over after the last one.
func NewMockGenerator(responses ...string) *LangChainGenerator {
	return NewLangChainGenerator(&lockedModel{Model: fake.NewFakeLLM(responses)}, 0)
}

// Generate calls the model with opts and returns the trimmed text.
func (g *LangChainGenerator) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	text, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt, callOptions(opts)...)
	if err != nil {
		return "", failed(err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", failed(errors.New("empty response"))
	}
	return text, nil
}

func callOptions(opts Options) []llms.CallOption {
	var out []llms.CallOption
	if opts.MaxOutputTokens > 0 {
		out = append(out, llms.WithMaxTokens(opts.MaxOutputTokens))
	}
	if opts.Temperature > 0 {
		out = append(out, llms.WithTemperature(opts.Temperature))
	}
	if opts.TopP > 0 {
		out = append(out, llms.WithTopP(opts.TopP))
	}
	if opts.TopK > 0 {
		out = append(out, llms.WithTopK(opts.TopK))
	}
	return out
}

// lockedModel serializes access to a model that keeps internal state.
type lockedModel struct {
	llms.Model
	mu sync.Mutex
}

func (m *lockedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Model.GenerateContent(ctx, messages, options...)
}

func (m *lockedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Model.Call(ctx, prompt, options...)
}
