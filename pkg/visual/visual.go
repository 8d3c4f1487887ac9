// Package visual turns post images into structured facts and facts into
// reply text.
package visual

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"google.golang.org/genai"

	"github.com/cpunion/reply-bot/pkg/types"
)

// Analyzer extracts facts from an image and composes replies from them.
type Analyzer interface {
	Analyze(ctx context.Context, imageRef string) (*types.VisualFacts, error)
	ComposeFromFacts(text string, facts *types.VisualFacts) (string, error)
}

var _ Analyzer = (*GeminiAnalyzer)(nil)

// contentGenerator is the part of genai.Models the analyzer uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config configures the Gemini analyzer.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	// MaxImageBytes bounds downloaded images.
	MaxImageBytes int64
}

// DefaultConfig returns the defaults.
func DefaultConfig() Config {
	return Config{Model: "gemini-2.5-flash", Timeout: 15 * time.Second, MaxImageBytes: 8 << 20}
}

const instruction = `You look at a photo posted by a trading card collector.
Reply with JSON only, using these keys:
"subject" (what the photo shows, a few words), "card_name", "grader" (PSA, BGS, CGC or empty),
"grade" (as printed on the slab or empty), "condition" (raw card condition in a few words or empty),
"highlights" (up to three short visual details).
Leave a key empty when unsure. Never guess prices.`

// GeminiAnalyzer asks a Gemini model to describe images.
type GeminiAnalyzer struct {
	models   contentGenerator
	http     *resty.Client
	model    string
	maxBytes int64
}

// NewGeminiAnalyzer creates an analyzer backed by the Gemini API.
func NewGeminiAnalyzer(ctx context.Context, cfg Config) (*GeminiAnalyzer, error) {
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
	return newAnalyzer(client.Models, cfg), nil
}

func newAnalyzer(models contentGenerator, cfg Config) *GeminiAnalyzer {
	def := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = def.MaxImageBytes
	}
	return &GeminiAnalyzer{
		models:   models,
		http:     resty.New().SetTimeout(cfg.Timeout),
		model:    cfg.Model,
		maxBytes: cfg.MaxImageBytes,
	}
}

// Analyze fetches the image and asks the model for facts. Empty facts are
// returned as nil.
func (a *GeminiAnalyzer) Analyze(ctx context.Context, imageRef string) (*types.VisualFacts, error) {
	data, err := a.fetch(ctx, imageRef)
	if err != nil {
		return nil, err
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("image %s: unexpected content type %s", imageRef, mime)
	}

	contents := []*genai.Content{genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromBytes(data, mime),
		genai.NewPartFromText(instruction),
	}, genai.RoleUser)}
	resp, err := a.models.GenerateContent(ctx, a.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.2),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini analyze failed: %w", err)
	}

	raw := strings.TrimSpace(resp.Text())
	raw = strings.TrimSuffix(strings.TrimPrefix(raw, "```json"), "```")
	var facts types.VisualFacts
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &facts); err != nil {
		return nil, fmt.Errorf("decode visual facts: %w", err)
	}
	if facts.Empty() {
		return nil, nil
	}
	return &facts, nil
}

func (a *GeminiAnalyzer) fetch(ctx context.Context, ref string) ([]byte, error) {
	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		resp, err := a.http.R().SetContext(ctx).Get(ref)
		if err != nil {
			return nil, fmt.Errorf("fetch image %s: %w", ref, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("fetch image %s: status %d", ref, resp.StatusCode())
		}
		if int64(len(resp.Body())) > a.maxBytes {
			return nil, fmt.Errorf("fetch image %s: larger than %d bytes", ref, a.maxBytes)
		}
		return resp.Body(), nil
	default:
		path := strings.TrimPrefix(ref, "file://")
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
		if info.Size() > a.maxBytes {
			return nil, fmt.Errorf("read image %s: larger than %d bytes", path, a.maxBytes)
		}
		return os.ReadFile(path)
	}
}

// ComposeFromFacts renders facts as a reply. Unusable facts give "".
func (a *GeminiAnalyzer) ComposeFromFacts(text string, facts *types.VisualFacts) (string, error) {
	return Compose(facts), nil
}

// Compose is the template behind ComposeFromFacts.
func Compose(facts *types.VisualFacts) string {
	if facts.Empty() {
		return ""
	}
	name := facts.CardName
	if name == "" {
		name = facts.Subject
	}

	var parts []string
	switch {
	case facts.Grader != "" && facts.Grade != "":
		parts = append(parts, fmt.Sprintf("A %s %s %s is a great slab to have.", strings.ToUpper(facts.Grader), facts.Grade, name))
	case facts.Condition != "" && name != "":
		parts = append(parts, fmt.Sprintf("That %s looks %s from here.", name, strings.ToLower(facts.Condition)))
	case name != "":
		parts = append(parts, fmt.Sprintf("That %s looks great.", name))
	}
	if len(facts.Highlights) > 0 {
		parts = append(parts, fmt.Sprintf("The %s really stands out.", strings.ToLower(facts.Highlights[0])))
	}
	return strings.Join(parts, " ")
}
