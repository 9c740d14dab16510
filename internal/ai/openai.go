package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"bikeplan/internal/upstream"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com"
	// DefaultOpenAIModel is used when no model name is configured.
	DefaultOpenAIModel = "gpt-4o-mini"
)

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float32         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// OpenAIProvider implements Generator against the chat completions API.
type OpenAIProvider struct {
	client  *upstream.Client
	apiKey  string
	model   string
	baseURL string
}

func NewOpenAIProvider(client *upstream.Client, apiKey, model string) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIProvider{
		client:  client,
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultOpenAIBaseURL,
	}
}

func (p *OpenAIProvider) WithBaseURL(base string) *OpenAIProvider {
	p.baseURL = strings.TrimRight(base, "/")
	return p
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt Prompt) (string, error) {
	req := chatRequest{
		Model:       p.model,
		Messages:    prompt.Messages,
		Temperature: prompt.Temperature,
	}
	if prompt.Format == FormatJSON {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+p.apiKey)

	var cr chatResponse
	if err := p.client.DoJSON(ctx, http.MethodPost, p.baseURL+"/v1/chat/completions", header, req, &cr); err != nil {
		return "", fmt.Errorf("chatgpt: %w", err)
	}
	if cr.Error != nil {
		return "", fmt.Errorf("chatgpt: api error: %s", cr.Error.Message)
	}
	if len(cr.Choices) == 0 || strings.TrimSpace(cr.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("chatgpt: %w", ErrEmptyResponse)
	}
	return cr.Choices[0].Message.Content, nil
}
