// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/pdiddy/travel-recommender/internal/logging"
	"github.com/pdiddy/travel-recommender/internal/secrets"
	"github.com/pdiddy/travel-recommender/internal/validation"
	"github.com/pdiddy/travel-recommender/pkg/types"
)

// setDefaults registers every configuration key so AutomaticEnv can
// override any of them.
func setDefaults(v *viper.Viper, d types.AppConfig) {
	v.SetDefault("llm.provider", string(d.LLM.Provider))
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.max_retries", d.LLM.MaxRetries)
	v.SetDefault("llm.breaker_failures", d.LLM.BreakerFailures)
	v.SetDefault("llm.breaker_cooldown", d.LLM.BreakerCooldown)

	v.SetDefault("embedding.kind", string(d.Embedding.Kind))
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.base_url", d.Embedding.BaseURL)
	v.SetDefault("embedding.api_key", d.Embedding.APIKey)
	v.SetDefault("embedding.timeout", d.Embedding.Timeout)
	v.SetDefault("embedding.max_retries", d.Embedding.MaxRetries)

	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("index.dir", d.Index.Dir)
	v.SetDefault("index.source_csv", d.Index.SourceCSV)

	v.SetDefault("ranking.embedding_weight", d.Ranking.EmbeddingWeight)
	v.SetDefault("ranking.logistics_weight", d.Ranking.LogisticsWeight)

	v.SetDefault("pipeline.max_recommendations", d.Pipeline.MaxRecommendations)
	v.SetDefault("pipeline.timeout", d.Pipeline.Timeout)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.requests_per_min", d.Server.RequestsPerMin)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// loadConfig decodes the merged viper settings, fills API keys from secrets
// and validates the result.
func loadConfig(v *viper.Viper, s secrets.Set) (types.AppConfig, error) {
	var cfg types.AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}

	cfg.LLM.Provider = types.Provider(strings.ToLower(strings.TrimSpace(string(cfg.LLM.Provider))))
	cfg.Embedding.Kind = types.EmbedderKind(strings.ToLower(strings.TrimSpace(string(cfg.Embedding.Kind))))

	switch cfg.LLM.Provider {
	case types.ProviderClaude:
		cfg.LLM.APIKey = s.Resolve(secrets.AnthropicAPIKey, cfg.LLM.APIKey)
	case types.ProviderOpenAI, "chatgpt":
		cfg.LLM.APIKey = s.Resolve(secrets.OpenAIAPIKey, cfg.LLM.APIKey)
	}
	if cfg.Embedding.Kind == types.EmbedderOpenAI {
		cfg.Embedding.APIKey = s.Resolve(secrets.OpenAIAPIKey, cfg.Embedding.APIKey)
	}

	if err := validation.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// mustConfig loads the configuration and a logger writing to stderr.
func mustConfig() (types.AppConfig, zerolog.Logger, error) {
	cfg, err := loadConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return cfg, zerolog.Nop(), err
	}
	return cfg, logging.New(cfg.Logging, os.Stderr), nil
}
