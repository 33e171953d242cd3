// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/pdiddy/travel-recommender/internal/httputil"
	"github.com/pdiddy/travel-recommender/pkg/types"
)

// ErrBackendUnavailable is returned while the circuit breaker is open.
var ErrBackendUnavailable = errors.New("language model unavailable")

// NewBackend builds the backend named by cfg.Provider and wraps it in a
// circuit breaker. "chatgpt" selects the OpenAI backend.
func NewBackend(cfg types.LLMConfig, client *http.Client, logger zerolog.Logger) (Backend, error) {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	var b Backend
	switch p := strings.ToLower(strings.TrimSpace(string(cfg.Provider))); p {
	case string(types.ProviderOllama), "":
		b = &OllamaBackend{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			MaxRetries:  cfg.MaxRetries,
			Client:      client,
		}
	case string(types.ProviderOpenAI), "chatgpt":
		if cfg.APIKey == "" && cfg.BaseURL == "" {
			return nil, &types.ValidationError{Field: "llm.api_key", Reason: "is required for the openai provider"}
		}
		b = &OpenAIBackend{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			MaxRetries:  cfg.MaxRetries,
			Client:      client,
		}
	case string(types.ProviderClaude):
		if cfg.APIKey == "" {
			return nil, &types.ValidationError{Field: "llm.api_key", Reason: "is required for the claude provider"}
		}
		b = &ClaudeBackend{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			MaxRetries:  cfg.MaxRetries,
			Client:      client,
		}
	default:
		return nil, &types.ValidationError{Field: "llm.provider", Value: cfg.Provider, Reason: "must be one of [ollama openai claude]"}
	}

	return WithBreaker(b, cfg.BreakerFailures, cfg.BreakerCooldown, logger), nil
}

// postJSON sends body to url and returns the response body of a 200 reply.
// Throttled replies are retried by httputil.DoWithRetry.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body any, maxRetries int) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, maxRetries)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(out)))
	}
	return out, nil
}

// jsonDocument trims a model reply down to the JSON object it contains.
// Some models wrap their output in a Markdown code fence.
func jsonDocument(text string) ([]byte, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in model reply")
	}
	return []byte(text[start : end+1]), nil
}

func endpoint(base, fallback, path string) string {
	if base == "" {
		base = fallback
	}
	return strings.TrimRight(base, "/") + path
}
