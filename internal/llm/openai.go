package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// OpenAIClient speaks the chat completions API, so it also works against
// OpenAI-compatible gateways.
type OpenAIClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		model:   model,
		client:  httpClient(cfg.Timeout),
	}, nil
}

func (c *OpenAIClient) Provider() string { return "openai" }

func (c *OpenAIClient) Generate(ctx context.Context, prompt Prompt) (string, error) {
	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt.Text},
		},
		"temperature": prompt.Temperature,
	}
	raw, err := postJSON(ctx, c.client, c.baseURL+"/v1/chat/completions", map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	}, payload)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content *string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode chat completion response: %v", ErrResponseShape, err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == nil {
		return "", fmt.Errorf("%w: empty chat completion choices", ErrResponseShape)
	}
	return *parsed.Choices[0].Message.Content, nil
}
