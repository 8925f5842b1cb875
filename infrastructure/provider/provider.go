// Package provider provides AI provider abstractions for embedding
// generation and review text generation.
package provider

import (
	"context"
	"errors"
)

// Common errors.
var (
	// ErrNotConfigured indicates the endpoint is missing required settings.
	ErrNotConfigured = errors.New("provider endpoint not configured")

	// ErrRateLimited indicates the provider rate limited the request.
	ErrRateLimited = errors.New("rate limited")
)

// Embedder generates embedding vectors for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch generates embeddings for the given texts, preserving
	// input order. Inputs beyond the provider's per-request ceiling are
	// split into sequential sub-requests.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// TextGenerator generates text completions.
type TextGenerator interface {
	// Complete generates a completion for the given system and user prompts.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Model returns the model identifier used for generation.
	Model() string
}

// ProviderError wraps provider errors with additional context.
type ProviderError struct {
	operation  string
	statusCode int
	message    string
	cause      error
}

// NewProviderError creates a new ProviderError.
func NewProviderError(operation string, statusCode int, message string, cause error) *ProviderError {
	return &ProviderError{
		operation:  operation,
		statusCode: statusCode,
		message:    message,
		cause:      cause,
	}
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error {
	return e.cause
}

// Operation returns the operation that failed.
func (e *ProviderError) Operation() string { return e.operation }

// StatusCode returns the HTTP status code if available.
func (e *ProviderError) StatusCode() int { return e.statusCode }

// IsRateLimited returns true if the error is due to rate limiting.
func (e *ProviderError) IsRateLimited() bool {
	return e.statusCode == 429
}
