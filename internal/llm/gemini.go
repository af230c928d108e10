package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type GeminiConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type GeminiClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewGeminiClient(cfg GeminiConfig) (*GeminiClient, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-2.5-flash-preview-05-20"
	}
	return &GeminiClient{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		model:   model,
		client:  httpClient(cfg.Timeout),
	}, nil
}

func (c *GeminiClient) Provider() string { return "gemini" }

func (c *GeminiClient) Generate(ctx context.Context, prompt Prompt) (string, error) {
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	payload := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": prompt.Text}}},
		},
		"generationConfig": map[string]any{
			"temperature": prompt.Temperature,
		},
	}

	// The key travels as a header so transport errors, which quote the URL,
	// never carry it into logs.
	raw, err := postJSON(ctx, c.client, endpoint, map[string]string{
		"x-goog-api-key": c.apiKey,
	}, payload)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text *string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode generateContent response: %v", ErrResponseShape, err)
	}
	if len(parsed.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates in %s", ErrResponseShape, truncate(string(raw), 512))
	}
	parts := parsed.Candidates[0].Content.Parts
	if len(parts) == 0 || parts[0].Text == nil {
		return "", fmt.Errorf("%w: no text part in %s", ErrResponseShape, truncate(string(raw), 512))
	}
	return *parts[0].Text, nil
}
