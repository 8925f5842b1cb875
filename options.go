package codeowl

import (
	"log/slog"

	"github.com/codeowl/codeowl/application/service"
	"github.com/codeowl/codeowl/infrastructure/github"
	"github.com/codeowl/codeowl/infrastructure/provider"
	"github.com/codeowl/codeowl/internal/config"
)

// clientConfig holds configuration for Client construction.
type clientConfig struct {
	cfg           config.Config
	logger        *slog.Logger
	embedder      provider.Embedder
	textGenerator provider.TextGenerator
	github        *github.Client
	workerOpts    []service.WorkerPoolOption
}

// newClientConfig creates a clientConfig with defaults.
func newClientConfig() *clientConfig {
	return &clientConfig{
		cfg: config.Config{
			Host:            config.DefaultHost,
			Port:            config.DefaultPort,
			LogLevel:        config.DefaultLogLevel,
			DBURL:           "sqlite:///codeowl.db",
			WorkerCount:     config.DefaultWorkerCount,
			FreeRepoLimit:   config.DefaultFreeRepoLimit,
			FreeReviewLimit: config.DefaultFreeReviewLimit,
		},
	}
}

// Option configures the Client.
type Option func(*clientConfig)

// WithConfig applies a full environment configuration.
func WithConfig(cfg config.Config) Option {
	return func(c *clientConfig) {
		c.cfg = cfg
	}
}

// WithDatabaseURL sets the database connection URL.
func WithDatabaseURL(url string) Option {
	return func(c *clientConfig) {
		c.cfg.DBURL = url
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithEmbeddingEndpoint configures the embedding AI endpoint.
func WithEmbeddingEndpoint(endpoint config.EndpointEnv) Option {
	return func(c *clientConfig) {
		c.cfg.EmbeddingEndpoint = endpoint
	}
}

// WithReviewEndpoint configures the review-generation AI endpoint.
func WithReviewEndpoint(endpoint config.EndpointEnv) Option {
	return func(c *clientConfig) {
		c.cfg.ReviewEndpoint = endpoint
	}
}

// WithWebhook configures webhook installation and verification.
func WithWebhook(callbackURL, secret string) Option {
	return func(c *clientConfig) {
		c.cfg.WebhookCallbackURL = callbackURL
		c.cfg.GithubWebhookSecret = secret
	}
}

// WithEmbedder injects a pre-built embedding provider.
func WithEmbedder(e provider.Embedder) Option {
	return func(c *clientConfig) {
		c.embedder = e
	}
}

// WithTextGenerator injects a pre-built text-generation provider.
func WithTextGenerator(g provider.TextGenerator) Option {
	return func(c *clientConfig) {
		c.textGenerator = g
	}
}

// WithGithubClient injects a pre-built source-host client.
func WithGithubClient(gh *github.Client) Option {
	return func(c *clientConfig) {
		c.github = gh
	}
}

// WithWorkerOptions forwards options to the worker pool.
func WithWorkerOptions(opts ...service.WorkerPoolOption) Option {
	return func(c *clientConfig) {
		c.workerOpts = opts
	}
}
