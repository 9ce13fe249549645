package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/hyperjump/yomu/internal/config"
)

// OpenAIGenerator calls an OpenAI-compatible chat completions endpoint.
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIGenerator returns a generator for the OpenAI API or a compatible server at cfg.BaseURL.
func NewOpenAIGenerator(cfg *config.LLMConfig) (*OpenAIGenerator, error) {
	key := cfg.ResolveAPIKey()
	if key == "" {
		return nil, fmt.Errorf("openai llm: API key is required (set %s)", cfg.APIKeyEnv)
	}
	clientConfig := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIGenerator{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   model,
		timeout: timeout,
	}, nil
}

// Generate sends prompt as a single user message. TopK has no equivalent in
// the chat completions API and is ignored.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   opts.MaxOutputTokens,
		Temperature: float32(opts.Temperature),
		TopP:        float32(opts.TopP),
	}
	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", failed(fmt.Errorf("openai: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", failed(errors.New("openai: no choices in response"))
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", failed(errors.New("openai: empty response"))
	}
	return text, nil
}
