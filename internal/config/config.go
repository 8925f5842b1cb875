// Package config provides application configuration.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Default configuration values.
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 8080
	DefaultLogLevel        = "INFO"
	DefaultWorkerCount     = 2
	DefaultFreeRepoLimit   = 5
	DefaultFreeReviewLimit = 50
	DefaultEndpointTimeout = 60 * time.Second
	DefaultEndpointRetries = 5
	DefaultEndpointDelay   = 2 * time.Second
	DefaultEndpointBackoff = 2.0
	DefaultTaskMaxAttempts = 3
	DefaultTaskRetryDelay  = 5 * time.Second
	DefaultTaskRetryFactor = 5.0
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// EndpointEnv holds environment configuration for an OpenAI-compatible endpoint.
type EndpointEnv struct {
	// BaseURL is the base URL for the endpoint.
	// Env: *_BASE_URL
	BaseURL string `envconfig:"BASE_URL"`

	// Model is the model identifier.
	// Env: *_MODEL
	Model string `envconfig:"MODEL"`

	// APIKey authenticates requests to the endpoint.
	// Env: *_API_KEY
	APIKey string `envconfig:"API_KEY"`

	// TimeoutSeconds is the per-request timeout.
	// Env: *_TIMEOUT_SECONDS (default: 60)
	TimeoutSeconds int `envconfig:"TIMEOUT_SECONDS" default:"60"`

	// MaxRetries is the retry budget for retryable API errors.
	// Env: *_MAX_RETRIES (default: 5)
	MaxRetries int `envconfig:"MAX_RETRIES" default:"5"`
}

// Timeout returns the endpoint timeout as a duration.
func (e EndpointEnv) Timeout() time.Duration {
	if e.TimeoutSeconds <= 0 {
		return DefaultEndpointTimeout
	}
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// Retries returns the endpoint retry budget.
func (e EndpointEnv) Retries() int {
	if e.MaxRetries <= 0 {
		return DefaultEndpointRetries
	}
	return e.MaxRetries
}

// Configured reports whether the endpoint has enough settings to be usable.
func (e EndpointEnv) Configured() bool {
	return e.BaseURL != "" && e.APIKey != ""
}

// Config holds all environment-based configuration.
type Config struct {
	// Host is the server host to bind to.
	// Env: HOST (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Port is the server port to listen on.
	// Env: PORT (default: 8080)
	Port int `envconfig:"PORT" default:"8080"`

	// DBURL is the database connection URL.
	// Env: DB_URL (default: sqlite:///codeowl.db)
	DBURL string `envconfig:"DB_URL" default:"sqlite:///codeowl.db"`

	// LogLevel is the log verbosity level.
	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	// Env: LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// GithubWebhookSecret is the shared secret used to verify inbound
	// webhook signatures.
	// Env: GITHUB_WEBHOOK_SECRET
	GithubWebhookSecret string `envconfig:"GITHUB_WEBHOOK_SECRET"`

	// WebhookCallbackURL is the public URL GitHub delivers webhook events to.
	// Env: WEBHOOK_CALLBACK_URL
	WebhookCallbackURL string `envconfig:"WEBHOOK_CALLBACK_URL"`

	// CORSOrigins is a comma-separated list of allowed dashboard origins.
	// Env: CORS_ORIGINS
	CORSOrigins []string `envconfig:"CORS_ORIGINS"`

	// EmbeddingEndpoint configures the embedding AI service.
	EmbeddingEndpoint EndpointEnv `envconfig:"EMBEDDING_ENDPOINT"`

	// ReviewEndpoint configures the review-generation AI service.
	ReviewEndpoint EndpointEnv `envconfig:"REVIEW_ENDPOINT"`

	// WorkerCount is the number of workers per queue.
	// Env: WORKER_COUNT (default: 2)
	WorkerCount int `envconfig:"WORKER_COUNT" default:"2"`

	// FreeRepoLimit is the free-tier ceiling on connected repositories.
	// Env: FREE_REPO_LIMIT (default: 5)
	FreeRepoLimit int `envconfig:"FREE_REPO_LIMIT" default:"5"`

	// FreeReviewLimit is the free-tier ceiling on lifetime reviews.
	// Env: FREE_REVIEW_LIMIT (default: 50)
	FreeReviewLimit int `envconfig:"FREE_REVIEW_LIMIT" default:"50"`
}

// Addr returns the host:port address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogFormatValue returns the parsed log format.
func (c Config) LogFormatValue() LogFormat {
	if c.LogFormat == string(LogFormatJSON) {
		return LogFormatJSON
	}
	return LogFormatPretty
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}
	return cfg, nil
}
