package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"
)

const adkAppName = "reply-bot"

// ADKBackend runs an ADK LLM agent. Each call gets a fresh session so
// replies never see earlier posts.
type ADKBackend struct {
	name     string
	userID   string
	runner   *runner.Runner
	sessions session.Service
}

// ADKConfig configures the ADK backend.
type ADKConfig struct {
	Name  string
	Model model.LLM
	// Instruction defaults to SystemPrompt.
	Instruction string
}

// NewADKBackend creates a backend around an ADK model.
func NewADKBackend(cfg ADKConfig) (*ADKBackend, error) {
	if cfg.Model == nil {
		return nil, fmt.Errorf("adk backend: model is required")
	}
	name := cfg.Name
	if name == "" {
		name = "adk"
	}
	instruction := cfg.Instruction
	if instruction == "" {
		instruction = SystemPrompt
	}

	replier, err := llmagent.New(llmagent.Config{
		Name:        "replier",
		Model:       cfg.Model,
		Description: "Writes short replies to collector posts",
		Instruction: instruction,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ADK agent: %w", err)
	}

	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        adkAppName,
		Agent:          replier,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}
	return &ADKBackend{name: name, userID: name + "-user", runner: r, sessions: sessionService}, nil
}

// Name returns the backend name.
func (b *ADKBackend) Name() string { return b.name }

// Generate runs the agent on the prompt's user part. The system part is the
// agent's instruction.
func (b *ADKBackend) Generate(ctx context.Context, p Prompt) (string, error) {
	sess, err := b.sessions.Create(ctx, &session.CreateRequest{
		AppName:   adkAppName,
		UserID:    b.userID,
		SessionID: uuid.NewString(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	sessionID := sess.Session.ID()
	defer func() {
		_ = b.sessions.Delete(context.WithoutCancel(ctx), &session.DeleteRequest{
			AppName:   adkAppName,
			UserID:    b.userID,
			SessionID: sessionID,
		})
	}()

	msg := &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: p.User}},
	}
	var sb strings.Builder
	for event, err := range b.runner.Run(ctx, b.userID, sessionID, msg, agent.RunConfig{}) {
		if err != nil {
			return "", fmt.Errorf("adk run: %w", err)
		}
		if event != nil && event.Content != nil {
			for _, part := range event.Content.Parts {
				if part.Text != "" {
					sb.WriteString(part.Text)
				}
			}
		}
	}
	return sb.String(), nil
}
