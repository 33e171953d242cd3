// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaBackend calls a local Ollama server's /api/chat endpoint with the
// prompt schema as the structured output format.
type OllamaBackend struct {
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	MaxRetries  int
	Client      *http.Client
}

type ollamaRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Format   map[string]any `json:"format"`
	Options  ollamaOptions  `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Message chatMessage `json:"message"`
	Error   string      `json:"error"`
}

func (o *OllamaBackend) Name() string { return "ollama:" + o.Model }

func (o *OllamaBackend) Invoke(ctx context.Context, p Prompt) ([]byte, error) {
	reqBody := ollamaRequest{
		Model: o.Model,
		Messages: []chatMessage{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.User},
		},
		Format:  p.Schema,
		Options: ollamaOptions{Temperature: o.Temperature, NumPredict: o.MaxTokens},
	}

	body, err := postJSON(ctx, o.Client, endpoint(o.BaseURL, defaultOllamaURL, "/api/chat"), nil, reqBody, o.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("calling Ollama: %w", err)
	}

	var resp ollamaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding Ollama response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("ollama: %s", resp.Error)
	}
	return jsonDocument(resp.Message.Content)
}
