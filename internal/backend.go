package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// Backend is one external text-completion provider invoked per chunk.
type Backend interface {
	Name() string
	// Rewrite sends one chunk with the rewrite prompt and returns the
	// rewritten text. Exactly one outbound call, no retries here.
	Rewrite(ctx context.Context, prompt, chunkText string) (string, error)
}

// BackendResult is the outcome of one backend invocation for one chunk.
// Exactly one of Content/Error is meaningful.
type BackendResult struct {
	BackendName string `json:"backendName"`
	Content     string `json:"content,omitempty"`
	Error       string `json:"error,omitempty"`
}

// BackendConfig describes one configured provider. All supported providers
// expose OpenAI-compatible chat completion endpoints, so a base URL plus a
// model name is enough to drive any of them through the same SDK.
type BackendConfig struct {
	Name        string  `mapstructure:"name"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int64   `mapstructure:"max_tokens"`
	Enabled     bool    `mapstructure:"enabled"`
}

// ChatBackend drives one OpenAI-compatible provider via the OpenAI SDK.
type ChatBackend struct {
	name    string
	client  openai.Client
	model   string
	temp    float64
	maxTok  int64
	timeout time.Duration
}

// NewChatBackend creates a backend from its config
func NewChatBackend(cfg BackendConfig, timeout time.Duration) *ChatBackend {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &ChatBackend{
		name:    cfg.Name,
		client:  openai.NewClient(opts...),
		model:   cfg.Model,
		temp:    cfg.Temperature,
		maxTok:  cfg.MaxTokens,
		timeout: timeout,
	}
}

// Name implements Backend
func (b *ChatBackend) Name() string { return b.name }

// Rewrite implements Backend
func (b *ChatBackend) Rewrite(ctx context.Context, prompt, chunkText string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(b.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt),
			openai.UserMessage(chunkText),
		},
	}
	if b.temp > 0 {
		params.Temperature = openai.Float(b.temp)
	}
	if b.maxTok > 0 {
		params.MaxTokens = openai.Int(b.maxTok)
	}

	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("calling %s: %w", b.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices from %s", b.name)
	}
	return resp.Choices[0].Message.Content, nil
}

// EnabledBackends builds the backend set for a run. Disabled backends and
// backends without a key are omitted entirely, never invoked-and-discarded.
func EnabledBackends(configs []BackendConfig, timeout time.Duration) []Backend {
	var backends []Backend
	for _, cfg := range configs {
		if !cfg.Enabled || cfg.APIKey == "" {
			continue
		}
		backends = append(backends, NewChatBackend(cfg, timeout))
	}
	return backends
}
