// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// MaxRetries bounds the number of 429 retries (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// Provider identifies the structured extraction capability.
type Provider string

const (
	ProviderOllama Provider = "ollama"
	ProviderOpenAI Provider = "openai"
	ProviderClaude Provider = "claude"
)

// LLMConfig selects and parameterises the language model used for
// preference extraction.
type LLMConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Provider is one of ollama, openai, claude. "chatgpt" is accepted as
	// an alias for openai.
	Provider Provider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the provider model identifier (e.g. "llama3.1").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// BaseURL overrides the provider endpoint. Empty uses the provider default.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// APIKey is the authentication key for hosted providers.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BreakerFailures is the number of consecutive failures that opens the
	// circuit breaker (default 5).
	BreakerFailures uint32 `json:"breaker_failures" yaml:"breaker_failures" mapstructure:"breaker_failures"`

	// BreakerCooldown is how long the breaker stays open before probing again.
	BreakerCooldown time.Duration `json:"breaker_cooldown" yaml:"breaker_cooldown" mapstructure:"breaker_cooldown"`
}

// EmbedderKind selects the embedding function used by the similarity index.
type EmbedderKind string

const (
	EmbedderTFIDF  EmbedderKind = "tfidf"
	EmbedderOpenAI EmbedderKind = "openai"
)

// EmbeddingConfig configures the embedder.
type EmbeddingConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	Kind    EmbedderKind `json:"kind" yaml:"kind" mapstructure:"kind"`
	Model   string       `json:"model" yaml:"model" mapstructure:"model"`
	BaseURL string       `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`
	APIKey  string       `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`
}

// StoreConfig locates the destination database.
type StoreConfig struct {
	// Path is the SQLite database file (default "data/destinations.db").
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// IndexConfig locates the persisted embedding index.
type IndexConfig struct {
	// Dir is the index directory (default "data/index").
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// SourceCSV is the dataset used by "index build" when no path is given.
	SourceCSV string `json:"source_csv" yaml:"source_csv" mapstructure:"source_csv"`
}

// RankingConfig holds the combination weights for the ranking score.
type RankingConfig struct {
	EmbeddingWeight float64 `json:"embedding_weight" yaml:"embedding_weight" mapstructure:"embedding_weight" validate:"gte=0,lte=1"`
	LogisticsWeight float64 `json:"logistics_weight" yaml:"logistics_weight" mapstructure:"logistics_weight" validate:"gte=0,lte=1"`
}

// PipelineConfig controls the recommendation pipeline.
type PipelineConfig struct {
	// MaxRecommendations truncates the response. Zero returns every candidate.
	MaxRecommendations int `json:"max_recommendations" yaml:"max_recommendations" mapstructure:"max_recommendations" validate:"gte=0"`

	// Timeout bounds one pipeline run. Zero disables the bound.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Addr            string        `json:"addr" yaml:"addr" mapstructure:"addr"`
	RequestsPerMin  int           `json:"requests_per_min" yaml:"requests_per_min" mapstructure:"requests_per_min"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// LoggingConfig selects log level and format.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error (default info).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is json or console (default console).
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// AppConfig groups every component configuration.
type AppConfig struct {
	LLM       LLMConfig       `json:"llm" yaml:"llm" mapstructure:"llm"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding" mapstructure:"embedding"`
	Store     StoreConfig     `json:"store" yaml:"store" mapstructure:"store"`
	Index     IndexConfig     `json:"index" yaml:"index" mapstructure:"index"`
	Ranking   RankingConfig   `json:"ranking" yaml:"ranking" mapstructure:"ranking"`
	Pipeline  PipelineConfig  `json:"pipeline" yaml:"pipeline" mapstructure:"pipeline"`
	Server    ServerConfig    `json:"server" yaml:"server" mapstructure:"server"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging" mapstructure:"logging"`
}

// DefaultConfig returns the configuration used when no file or flag overrides it.
func DefaultConfig() AppConfig {
	return AppConfig{
		LLM: LLMConfig{
			HTTPConfig:      HTTPConfig{Timeout: 60 * time.Second, MaxRetries: 2},
			Provider:        ProviderOllama,
			Model:           "llama3.1",
			Temperature:     0.2,
			MaxTokens:       1024,
			BreakerFailures: 5,
			BreakerCooldown: 30 * time.Second,
		},
		Embedding: EmbeddingConfig{
			HTTPConfig: HTTPConfig{Timeout: 30 * time.Second, MaxRetries: 2},
			Kind:       EmbedderTFIDF,
		},
		Store: StoreConfig{Path: "data/destinations.db"},
		Index: IndexConfig{Dir: "data/index", SourceCSV: "data/regions.csv"},
		Ranking: RankingConfig{
			EmbeddingWeight: 0.6,
			LogisticsWeight: 0.4,
		},
		Pipeline: PipelineConfig{MaxRecommendations: 10},
		Server: ServerConfig{
			Addr:            ":8080",
			RequestsPerMin:  60,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}
