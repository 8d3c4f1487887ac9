package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// chatGenerator is the eino chat model surface the backend needs.
type chatGenerator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error)
}

// EinoBackend wraps an eino chat model (OpenAI-compatible or DeepSeek).
type EinoBackend struct {
	name  string
	model chatGenerator
}

// EinoConfig configures an eino-backed backend.
type EinoConfig struct {
	Name      string
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// NewOpenAIBackend creates a backend for any OpenAI-compatible endpoint.
func NewOpenAIBackend(ctx context.Context, cfg EinoConfig) (*EinoBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai backend %q: api key not set", cfg.Name)
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	modelCfg := &openai.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
	}
	if cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		modelCfg.MaxTokens = &maxTokens
	}
	cm, err := openai.NewChatModel(ctx, modelCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai chat model: %w", err)
	}
	return NewEinoBackend(nameOr(cfg.Name, "openai"), cm), nil
}

// NewDeepSeekBackend creates a backend for the DeepSeek API.
func NewDeepSeekBackend(ctx context.Context, cfg EinoConfig) (*EinoBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("deepseek backend %q: api key not set", cfg.Name)
	}
	if cfg.Model == "" {
		cfg.Model = "deepseek-chat"
	}
	cm, err := deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create deepseek chat model: %w", err)
	}
	return NewEinoBackend(nameOr(cfg.Name, "deepseek"), cm), nil
}

// NewEinoBackend wraps an existing eino chat model.
func NewEinoBackend(name string, model chatGenerator) *EinoBackend {
	return &EinoBackend{name: name, model: model}
}

// Name returns the backend name.
func (b *EinoBackend) Name() string { return b.name }

// Generate sends the prompt as a system and a user message.
func (b *EinoBackend) Generate(ctx context.Context, p Prompt) (string, error) {
	msgs := make([]*schema.Message, 0, 2)
	if p.System != "" {
		msgs = append(msgs, schema.SystemMessage(p.System))
	}
	msgs = append(msgs, schema.UserMessage(p.User))

	out, err := b.model.Generate(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("%s generate failed: %w", b.name, err)
	}
	if out == nil {
		return "", fmt.Errorf("no response from %s", b.name)
	}
	return out.Content, nil
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
