package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/foxseedlab/mensetsu/internal/llm"
	"google.golang.org/genai"
)

const defaultModel = "gemini-2.5-flash"

var ErrEmptyResponse = errors.New("gemini api returned empty response")

type contentModel interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiConfig struct {
	APIKey            string
	Model             string
	SystemInstruction string
	Temperature       float32
	MaxOutputTokens   int32
	// ResponseMIMEType asks the model for structured output, e.g. "application/json".
	ResponseMIMEType string
}

type GeminiGenerator struct {
	models    contentModel
	modelName string
	config    *genai.GenerateContentConfig
}

func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig) (llm.Generator, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGeminiGenerator(client.Models, cfg), nil
}

func newGeminiGenerator(models contentModel, cfg GeminiConfig) *GeminiGenerator {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	return &GeminiGenerator{
		models:    models,
		modelName: model,
		config:    buildContentConfig(cfg),
	}
}

func buildContentConfig(cfg GeminiConfig) *genai.GenerateContentConfig {
	out := &genai.GenerateContentConfig{}
	if instruction := strings.TrimSpace(cfg.SystemInstruction); instruction != "" {
		out.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: instruction}}}
	}
	if cfg.Temperature > 0 {
		temperature := cfg.Temperature
		out.Temperature = &temperature
	}
	if cfg.MaxOutputTokens > 0 {
		out.MaxOutputTokens = cfg.MaxOutputTokens
	}
	out.ResponseMIMEType = strings.TrimSpace(cfg.ResponseMIMEType)
	return out
}

func (g *GeminiGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	started := time.Now()
	slog.Debug("gemini generate content request", "model", g.modelName, "prompt_length", utf8.RuneCountInString(prompt))
	resp, err := g.models.GenerateContent(ctx, g.modelName, genai.Text(prompt), g.config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	output := collectText(resp)
	slog.Debug("gemini generate content response", "model", g.modelName, "response_length", utf8.RuneCountInString(output), "elapsed_ms", time.Since(started).Milliseconds())
	if output == "" {
		return "", ErrEmptyResponse
	}
	return output, nil
}

func (g *GeminiGenerator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}

func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}
	return strings.TrimSpace(builder.String())
}
