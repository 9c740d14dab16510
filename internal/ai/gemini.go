package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no model name is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider implements Generator using Google's Gemini models.
type GeminiProvider struct {
	client    *genai.Client
	modelName string
}

// NewGeminiProvider initializes a new Gemini client.
// Extra options (endpoint, HTTP client) are appended after the API key.
func NewGeminiProvider(ctx context.Context, apiKey, modelName string, opts ...option.ClientOption) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini: missing api key")
	}
	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	return &GeminiProvider{client: client, modelName: modelName}, nil
}

// Close cleans up the Gemini client resources.
func (p *GeminiProvider) Close() {
	p.client.Close()
}

// Generate sends the system messages as the system instruction and the user
// messages as content parts. The model handle is built per call because its
// settings differ between JSON and free-text prompts.
func (p *GeminiProvider) Generate(ctx context.Context, prompt Prompt) (string, error) {
	system, parts, err := geminiContent(prompt)
	if err != nil {
		return "", err
	}

	model := p.client.GenerativeModel(p.modelName)
	model.SetTemperature(prompt.Temperature)
	model.SystemInstruction = system
	if prompt.Format == FormatJSON {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini generation error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini: %w: no candidates", ErrEmptyResponse)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}
	return text.String(), nil
}

// geminiContent splits a prompt into the system instruction (nil when there
// is none) and the non-blank user parts.
func geminiContent(prompt Prompt) (*genai.Content, []genai.Part, error) {
	var system *genai.Content
	if sys := prompt.System(); sys != "" {
		system = &genai.Content{Parts: []genai.Part{genai.Text(sys)}}
	}

	var parts []genai.Part
	for _, m := range prompt.Messages {
		if m.Role == RoleUser && strings.TrimSpace(m.Content) != "" {
			parts = append(parts, genai.Text(m.Content))
		}
	}
	if len(parts) == 0 {
		return nil, nil, fmt.Errorf("gemini: empty message")
	}
	return system, parts, nil
}
