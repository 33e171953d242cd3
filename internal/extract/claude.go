// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
)

// claudeAPIURL is the Claude API base. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1"

// ClaudeBackend calls the Claude Messages API. The schema is attached to the
// system prompt since the API has no JSON response mode.
type ClaudeBackend struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	MaxRetries  int
	Client      *http.Client
}

type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	System      string          `json:"system,omitempty"`
	Messages    []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (c *ClaudeBackend) Name() string { return "claude:" + c.Model }

// Invoke sends one prompt and returns the JSON object from the first text block.
func (c *ClaudeBackend) Invoke(ctx context.Context, p Prompt) ([]byte, error) {
	schema, err := json.Marshal(p.Schema)
	if err != nil {
		return nil, fmt.Errorf("marshaling schema: %w", err)
	}

	maxTokens := c.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	reqBody := claudeRequest{
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: c.Temperature,
		System:      p.System + "\n\nThe JSON object must conform to this JSON Schema:\n" + string(schema),
		Messages:    []claudeMessage{{Role: "user", Content: p.User}},
	}

	headers := map[string]string{
		"x-api-key":         c.APIKey,
		"anthropic-version": "2023-06-01",
	}
	body, err := postJSON(ctx, c.Client, endpoint(c.BaseURL, claudeAPIURL, "/messages"), headers, reqBody, c.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("calling Claude API: %w", err)
	}

	var cResp claudeResponse
	if err := json.Unmarshal(body, &cResp); err != nil {
		return nil, fmt.Errorf("decoding Claude response: %w", err)
	}
	for _, block := range cResp.Content {
		if block.Type != "text" {
			continue
		}
		return jsonDocument(block.Text)
	}
	return nil, fmt.Errorf("no text content in Claude API response")
}
