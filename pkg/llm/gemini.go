package llm

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"
)

// contentGenerator is the part of genai.Models the Gemini backend uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiBackend implements Backend using Google GenAI Gemini.
type GeminiBackend struct {
	name      string
	models    contentGenerator
	model     string
	maxTokens int32
}

// GeminiConfig holds configuration for the Gemini backend.
type GeminiConfig struct {
	Name      string
	APIKey    string // If empty, uses GOOGLE_API_KEY env var
	Model     string // e.g., "gemini-2.5-flash"
	MaxTokens int
}

// NewGeminiBackend creates a new Gemini backend.
func NewGeminiBackend(ctx context.Context, cfg GeminiConfig) (*GeminiBackend, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return newGeminiBackend(client.Models, cfg), nil
}

func newGeminiBackend(models contentGenerator, cfg GeminiConfig) *GeminiBackend {
	model := cfg.Model
	if model == "" {
		model = os.Getenv("GOOGLE_MODEL")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	name := cfg.Name
	if name == "" {
		name = "gemini"
	}
	return &GeminiBackend{name: name, models: models, model: model, maxTokens: int32(cfg.MaxTokens)}
}

// Name returns the backend name.
func (b *GeminiBackend) Name() string { return b.name }

// Model returns the model name.
func (b *GeminiBackend) Model() string { return b.model }

// Generate produces a reply from Gemini.
func (b *GeminiBackend) Generate(ctx context.Context, p Prompt) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.8),
	}
	if p.System != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: p.System}}}
	}
	if b.maxTokens > 0 {
		config.MaxOutputTokens = b.maxTokens
	}

	resp, err := b.models.GenerateContent(ctx, b.model, genai.Text(p.User), config)
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response from gemini")
	}

	var result string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" && !part.Thought {
			result += part.Text
		}
	}
	return result, nil
}
