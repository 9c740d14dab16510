package ai

import (
	"context"
	"errors"
	"strings"
)

// Generator is the contract for the text-generation backends. It lets the
// planner swap OpenAI and Gemini without touching the pipeline.
type Generator interface {
	// Generate returns the model's reply text for the prompt.
	Generate(ctx context.Context, p Prompt) (string, error)
}

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("empty model response")

// CleanJSONString removes markdown code blocks if present (e.g. ```json ... ```)
func CleanJSONString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}
