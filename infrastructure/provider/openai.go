package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/codeowl/codeowl/internal/config"
)

// embedBatchCeiling is the maximum number of inputs per embedding request.
const embedBatchCeiling = 96

// OpenAIProvider implements embedding and text generation against any
// OpenAI-compatible endpoint.
type OpenAIProvider struct {
	client        *openai.Client
	model         string
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
}

// OpenAIProviderOption is a functional option for OpenAIProvider.
type OpenAIProviderOption func(*OpenAIProvider)

// WithMaxRetries sets the maximum retry count.
func WithMaxRetries(n int) OpenAIProviderOption {
	return func(p *OpenAIProvider) { p.maxRetries = n }
}

// WithInitialDelay sets the initial retry delay.
func WithInitialDelay(d time.Duration) OpenAIProviderOption {
	return func(p *OpenAIProvider) { p.initialDelay = d }
}

// WithBackoffFactor sets the backoff multiplier.
func WithBackoffFactor(f float64) OpenAIProviderOption {
	return func(p *OpenAIProvider) { p.backoffFactor = f }
}

// NewOpenAIProvider creates a provider from endpoint configuration.
func NewOpenAIProvider(endpoint config.EndpointEnv, opts ...OpenAIProviderOption) (*OpenAIProvider, error) {
	if !endpoint.Configured() {
		return nil, ErrNotConfigured
	}

	cfg := openai.DefaultConfig(endpoint.APIKey)

	if endpoint.BaseURL != "" {
		cfg.BaseURL = endpoint.BaseURL
	}

	cfg.HTTPClient = &http.Client{
		Timeout: endpoint.Timeout(),
	}

	p := &OpenAIProvider{
		client:        openai.NewClientWithConfig(cfg),
		model:         endpoint.Model,
		maxRetries:    endpoint.Retries(),
		initialDelay:  config.DefaultEndpointDelay,
		backoffFactor: config.DefaultEndpointBackoff,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Model returns the configured model identifier.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Embed generates an embedding for a single text.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	embeddings, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, NewProviderError("embedding", 0, "no embedding in response", nil)
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for the given texts, preserving input
// order across sub-requests.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	embeddings := make([][]float64, 0, len(texts))

	for start := 0; start < len(texts); start += embedBatchCeiling {
		end := min(start+embedBatchCeiling, len(texts))

		batch, err := p.embedOnce(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}

		embeddings = append(embeddings, batch...)
	}

	return embeddings, nil
}

func (p *OpenAIProvider) embedOnce(ctx context.Context, texts []string) ([][]float64, error) {
	req := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.model),
		Input: texts,
	}

	var resp openai.EmbeddingResponse

	err := p.withRetry(ctx, func() error {
		var callErr error
		resp, callErr = p.client.CreateEmbeddings(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, p.wrapError("embedding", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, NewProviderError(
			"embedding", 0,
			fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(resp.Data)),
			nil,
		)
	}

	embeddings := make([][]float64, len(resp.Data))
	for i, data := range resp.Data {
		embeddings[i] = make([]float64, len(data.Embedding))
		for j, v := range data.Embedding {
			embeddings[i][j] = float64(v)
		}
	}

	return embeddings, nil
}

// Complete generates a chat completion for the given prompts.
func (p *OpenAIProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	}

	var resp openai.ChatCompletionResponse

	err := p.withRetry(ctx, func() error {
		var callErr error
		resp, callErr = p.client.CreateChatCompletion(ctx, req)
		return callErr
	})
	if err != nil {
		return "", p.wrapError("chat_completion", err)
	}

	if len(resp.Choices) == 0 {
		return "", NewProviderError("chat_completion", 0, "no choices in response", nil)
	}

	return resp.Choices[0].Message.Content, nil
}

// withRetry executes the function with exponential backoff retry.
func (p *OpenAIProvider) withRetry(ctx context.Context, fn func() error) error {
	delay := p.initialDelay
	var lastErr error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !p.isRetryable(lastErr) {
			return lastErr
		}

		if attempt < p.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * p.backoffFactor)
			}
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// isRetryable determines if an error should be retried.
func (p *OpenAIProvider) isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		// Network errors are retryable
		return true
	}

	return false
}

// wrapError wraps an OpenAI error into a ProviderError.
func (p *OpenAIProvider) wrapError(operation string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			err = fmt.Errorf("%w: %w", ErrRateLimited, err)
		}
		return NewProviderError(operation, apiErr.HTTPStatusCode, apiErr.Message, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return NewProviderError(operation, reqErr.HTTPStatusCode, reqErr.Error(), err)
	}

	return NewProviderError(operation, 0, err.Error(), err)
}

// Ensure OpenAIProvider implements the interfaces.
var (
	_ Embedder      = (*OpenAIProvider)(nil)
	_ TextGenerator = (*OpenAIProvider)(nil)
)
