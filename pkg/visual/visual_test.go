package visual

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/cpunion/reply-bot/pkg/types"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type fakeModels struct {
	reply    string
	err      error
	gotModel string
	gotParts []*genai.Part
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.gotModel = model
	f.gotParts = contents[0].Parts
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: f.reply}}},
	}}}, nil
}

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "card.png")
	require.NoError(t, os.WriteFile(path, pngBytes, 0o644))
	return path
}

func TestAnalyze_LocalFile(t *testing.T) {
	fake := &fakeModels{reply: "```json\n{\"subject\":\"graded card\",\"card_name\":\"Umbreon VMAX\",\"grader\":\"psa\",\"grade\":\"10\"}\n```"}
	a := newAnalyzer(fake, Config{Model: "test-model"})

	facts, err := a.Analyze(context.Background(), "file://"+writeImage(t))
	require.NoError(t, err)
	require.NotNil(t, facts)
	assert.Equal(t, "Umbreon VMAX", facts.CardName)
	assert.Equal(t, "test-model", fake.gotModel)
	require.Len(t, fake.gotParts, 2)
	assert.Equal(t, "image/png", fake.gotParts[0].InlineData.MIMEType)
}

func TestAnalyze_RemoteImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(pngBytes)
	}))
	defer srv.Close()

	a := newAnalyzer(&fakeModels{reply: `{"subject":"","card_name":""}`}, Config{})

	facts, err := a.Analyze(context.Background(), srv.URL+"/card.png")
	require.NoError(t, err)
	assert.Nil(t, facts, "empty facts become nil")

	_, err = a.Analyze(context.Background(), srv.URL+"/missing.png")
	assert.ErrorContains(t, err, "status 404")
}

func TestAnalyze_Errors(t *testing.T) {
	notImage := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(notImage, []byte("just text"), 0o644))

	a := newAnalyzer(&fakeModels{reply: "not json"}, Config{})
	_, err := a.Analyze(context.Background(), notImage)
	assert.ErrorContains(t, err, "unexpected content type")

	_, err = a.Analyze(context.Background(), writeImage(t))
	assert.ErrorContains(t, err, "decode visual facts")

	a = newAnalyzer(&fakeModels{err: errors.New("quota")}, Config{})
	_, err = a.Analyze(context.Background(), writeImage(t))
	assert.ErrorContains(t, err, "quota")

	a = newAnalyzer(&fakeModels{}, Config{MaxImageBytes: 4})
	_, err = a.Analyze(context.Background(), writeImage(t))
	assert.ErrorContains(t, err, "larger than")
}

func TestCompose(t *testing.T) {
	assert.Equal(t, "", Compose(nil))
	assert.Equal(t, "", Compose(&types.VisualFacts{}))

	assert.Equal(t, "A PSA 10 Umbreon VMAX is a great slab to have. The holo pattern really stands out.",
		Compose(&types.VisualFacts{CardName: "Umbreon VMAX", Grader: "psa", Grade: "10", Highlights: []string{"Holo pattern"}}))
	assert.Equal(t, "That Charizard looks near mint from here.",
		Compose(&types.VisualFacts{CardName: "Charizard", Condition: "Near Mint"}))
	assert.Equal(t, "That binder page looks great.",
		Compose(&types.VisualFacts{Subject: "binder page"}))

	out, err := (&GeminiAnalyzer{}).ComposeFromFacts("x", &types.VisualFacts{Subject: "binder page"})
	require.NoError(t, err)
	assert.Equal(t, "That binder page looks great.", out)
}
