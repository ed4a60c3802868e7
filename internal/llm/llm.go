package llm

import "context"

// Names under which the two generators are registered in the injector.
const (
	QuestionGeneratorName = "llm.question-generator"
	ScorerName            = "llm.scorer"
)

// Generator turns a prompt into free text. Implementations return an error
// instead of an empty string.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}
