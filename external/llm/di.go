package llm

import (
	"context"

	"github.com/foxseedlab/mensetsu/internal/config"
	"github.com/foxseedlab/mensetsu/internal/llm"
	"github.com/samber/do/v2"
)

const (
	questionSystemInstruction = "You are a professional AI interviewer. You ask exactly one concise interview question at a time."
	scorerSystemInstruction   = "You are an expert HR evaluator. You respond with a single JSON object and nothing else."
)

func RegisterDI(injector do.Injector) {
	do.ProvideNamed(injector, llm.QuestionGeneratorName, func(i do.Injector) (llm.Generator, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewGeminiGenerator(context.Background(), GeminiConfig{
			APIKey:            c.GeminiAPIKey,
			Model:             c.GeminiModel,
			SystemInstruction: questionSystemInstruction,
			Temperature:       0.7,
			MaxOutputTokens:   400,
		})
	})
	do.ProvideNamed(injector, llm.ScorerName, func(i do.Injector) (llm.Generator, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewGeminiGenerator(context.Background(), GeminiConfig{
			APIKey:            c.GeminiAPIKey,
			Model:             c.GeminiModel,
			SystemInstruction: scorerSystemInstruction,
			Temperature:       0.2,
			MaxOutputTokens:   1500,
			ResponseMIMEType:  "application/json",
		})
	})
}
