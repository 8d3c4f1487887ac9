package llm

import (
	"context"
	"fmt"

	"google.golang.org/adk/model/gemini"
	"google.golang.org/genai"

	"github.com/cpunion/reply-bot/pkg/config"
)

// FromConfig builds chain members in configured order.
func FromConfig(ctx context.Context, cfgs []config.BackendConfig) ([]Member, error) {
	members := make([]Member, 0, len(cfgs))
	for _, c := range cfgs {
		b, err := newBackend(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("backend %q: %w", c.Name, err)
		}
		members = append(members, Member{Backend: b, Timeout: c.Timeout, Retries: c.Retries})
	}
	return members, nil
}

func newBackend(ctx context.Context, c config.BackendConfig) (Backend, error) {
	switch c.Kind {
	case config.KindGemini:
		return NewGeminiBackend(ctx, GeminiConfig{Name: c.Name, APIKey: c.APIKey, Model: c.Model, MaxTokens: c.MaxTokens})
	case config.KindADK:
		if c.APIKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY not set")
		}
		modelName := c.Model
		if modelName == "" {
			modelName = "gemini-2.5-flash"
		}
		m, err := gemini.NewModel(ctx, modelName, &genai.ClientConfig{
			APIKey:  c.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create ADK gemini model: %w", err)
		}
		return NewADKBackend(ADKConfig{Name: c.Name, Model: m})
	case config.KindOpenAI:
		return NewOpenAIBackend(ctx, EinoConfig{Name: c.Name, APIKey: c.APIKey, BaseURL: c.BaseURL, Model: c.Model, MaxTokens: c.MaxTokens})
	case config.KindDeepSeek:
		return NewDeepSeekBackend(ctx, EinoConfig{Name: c.Name, APIKey: c.APIKey, BaseURL: c.BaseURL, Model: c.Model, MaxTokens: c.MaxTokens})
	default:
		return nil, fmt.Errorf("unknown backend kind %q", c.Kind)
	}
}
