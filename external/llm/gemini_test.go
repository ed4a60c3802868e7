package llm

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"
)

type fakeModels struct {
	resp       *genai.GenerateContentResponse
	err        error
	lastModel  string
	lastConfig *genai.GenerateContentConfig
	lastText   string
	calls      int
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.lastModel = model
	f.lastConfig = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.lastText = contents[0].Parts[0].Text
	}
	return f.resp, f.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func TestGenerateContent_JoinsTextParts(t *testing.T) {
	models := &fakeModels{resp: textResponse("  first ", "", "second")}
	g := newGeminiGenerator(models, GeminiConfig{Model: "gemini-test"})

	got, err := g.GenerateContent(context.Background(), "  ask something  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "first\nsecond" {
		t.Fatalf("unexpected output: %q", got)
	}
	if models.lastModel != "gemini-test" {
		t.Fatalf("unexpected model: %s", models.lastModel)
	}
	if models.lastText != "ask something" {
		t.Fatalf("expected trimmed prompt, got %q", models.lastText)
	}
}

func TestGenerateContent_SkipsThoughtParts(t *testing.T) {
	resp := textResponse("visible")
	resp.Candidates[0].Content.Parts = append([]*genai.Part{{Text: "thinking", Thought: true}}, resp.Candidates[0].Content.Parts...)
	g := newGeminiGenerator(&fakeModels{resp: resp}, GeminiConfig{})

	got, err := g.GenerateContent(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "visible" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestGenerateContent_EmptyResponse(t *testing.T) {
	g := newGeminiGenerator(&fakeModels{resp: textResponse("   ")}, GeminiConfig{})
	if _, err := g.GenerateContent(context.Background(), "prompt"); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected empty response error, got %v", err)
	}
}

func TestGenerateContent_EmptyPromptSkipsCall(t *testing.T) {
	models := &fakeModels{resp: textResponse("x")}
	g := newGeminiGenerator(models, GeminiConfig{})
	if _, err := g.GenerateContent(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty prompt")
	}
	if models.calls != 0 {
		t.Fatalf("expected no api call, got %d", models.calls)
	}
}

func TestGenerateContent_WrapsAPIError(t *testing.T) {
	apiErr := errors.New("boom")
	g := newGeminiGenerator(&fakeModels{err: apiErr}, GeminiConfig{})
	if _, err := g.GenerateContent(context.Background(), "prompt"); !errors.Is(err, apiErr) {
		t.Fatalf("expected wrapped api error, got %v", err)
	}
}

func TestBuildContentConfig(t *testing.T) {
	cfg := buildContentConfig(GeminiConfig{
		SystemInstruction: "be strict",
		Temperature:       0.2,
		MaxOutputTokens:   100,
		ResponseMIMEType:  "application/json",
	})
	if cfg.SystemInstruction == nil || cfg.SystemInstruction.Parts[0].Text != "be strict" {
		t.Fatalf("unexpected system instruction: %+v", cfg.SystemInstruction)
	}
	if cfg.Temperature == nil || *cfg.Temperature != 0.2 {
		t.Fatalf("unexpected temperature: %v", cfg.Temperature)
	}
	if cfg.MaxOutputTokens != 100 || cfg.ResponseMIMEType != "application/json" {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	empty := buildContentConfig(GeminiConfig{})
	if empty.SystemInstruction != nil || empty.Temperature != nil {
		t.Fatalf("expected zero config, got %+v", empty)
	}
}

func TestNewGeminiGenerator_RequiresAPIKey(t *testing.T) {
	if _, err := NewGeminiGenerator(context.Background(), GeminiConfig{}); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestModelDefaults(t *testing.T) {
	g := newGeminiGenerator(&fakeModels{}, GeminiConfig{})
	if g.Model() != defaultModel {
		t.Fatalf("unexpected default model: %s", g.Model())
	}
}
