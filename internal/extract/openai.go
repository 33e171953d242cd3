// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
)

const defaultOpenAIURL = "https://api.openai.com/v1"

// OpenAIBackend calls an OpenAI-compatible chat completions endpoint with a
// json_schema response format.
type OpenAIBackend struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	MaxRetries  int
	Client      *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model          string               `json:"model"`
	Messages       []chatMessage        `json:"messages"`
	Temperature    float64              `json:"temperature"`
	MaxTokens      int                  `json:"max_tokens,omitempty"`
	ResponseFormat openAIResponseFormat `json:"response_format"`
}

type openAIResponseFormat struct {
	Type       string           `json:"type"`
	JSONSchema openAIJSONSchema `json:"json_schema"`
}

type openAIJSONSchema struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict bool           `json:"strict"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
	} `json:"choices"`
}

func (o *OpenAIBackend) Name() string { return "openai:" + o.Model }

func (o *OpenAIBackend) Invoke(ctx context.Context, p Prompt) ([]byte, error) {
	reqBody := openAIRequest{
		Model: o.Model,
		Messages: []chatMessage{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.User},
		},
		Temperature: o.Temperature,
		MaxTokens:   o.MaxTokens,
		ResponseFormat: openAIResponseFormat{
			Type:       "json_schema",
			JSONSchema: openAIJSONSchema{Name: p.Name, Schema: p.Schema, Strict: true},
		},
	}

	var headers map[string]string
	if o.APIKey != "" {
		headers = map[string]string{"Authorization": "Bearer " + o.APIKey}
	}
	body, err := postJSON(ctx, o.Client, endpoint(o.BaseURL, defaultOpenAIURL, "/chat/completions"), headers, reqBody, o.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("calling OpenAI API: %w", err)
	}

	var resp openAIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding OpenAI response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("OpenAI API returned no choices")
	}
	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		return nil, fmt.Errorf("model refused: %s", msg.Refusal)
	}
	return jsonDocument(msg.Content)
}
