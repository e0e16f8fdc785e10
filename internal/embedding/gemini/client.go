// Package gemini implements the cloud embedding provider backed by the
// Google Gemini embeddings API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"docqa/internal/domain"
)

// Defaults for the managed Gemini embedding model. The output
// dimensionality differs from the local provider, so the two variants can
// never share one index. gemini-embedding-001 accepts output
// dimensionalities up to 3072, so the 1536 default is within its range.
const (
	DefaultModel     = "gemini-embedding-001"
	DefaultDimension = 1536
	DefaultTimeout   = 30 * time.Second

	// maxTextRunes is the per-text input ceiling. Texts over this limit fail
	// the whole call; the provider never silently truncates.
	maxTextRunes = 8192
)

// Client embeds text batches through the Gemini API.
type Client struct {
	client     *genai.Client
	model      string
	dimension  int
	timeout    time.Duration
	maxRetries int
}

// Config configures the Gemini embedding client. Zero values fall back to
// the package defaults.
type Config struct {
	APIKey    string
	Model     string
	Dimension int
	Timeout   time.Duration
}

// NewClient creates a Gemini embedding client. The API key is required.
// All calls go through an HTTP client with a bounded timeout, so a stalled
// connection fails instead of hanging the pipeline.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing Gemini API key", domain.ErrConfiguration)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create gemini client: %v", domain.ErrConfiguration, err)
	}
	return &Client{
		client:     client,
		model:      cfg.Model,
		dimension:  cfg.Dimension,
		timeout:    cfg.Timeout,
		maxRetries: 3,
	}, nil
}

// Name returns the identifier of this provider variant.
func (c *Client) Name() string { return "gemini" }

// Dimensions returns the fixed dimensionality of produced vectors.
func (c *Client) Dimensions() int { return c.dimension }

// Embed returns one vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([]domain.EmbeddingVector, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: no texts to embed", domain.ErrInvalidInput)
	}
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		if t == "" {
			return nil, fmt.Errorf("%w: text %d is empty", domain.ErrInvalidInput, i)
		}
		if len([]rune(t)) > maxTextRunes {
			return nil, fmt.Errorf("%w: text %d exceeds the %d-rune provider limit", domain.ErrInvalidInput, i, maxTextRunes)
		}
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	resp, err := c.embedWithRetry(ctx, contents)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: gemini returned %d embeddings for %d texts", domain.ErrProviderUnavailable, len(resp.Embeddings), len(texts))
	}

	vectors := make([]domain.EmbeddingVector, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) != c.dimension {
			return nil, fmt.Errorf("%w: gemini embedding %d has unexpected dimension", domain.ErrDimensionMismatch, i)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}

// embedWithRetry retries rate-limit and server failures with exponential
// backoff. Validation failures return immediately.
func (c *Client) embedWithRetry(ctx context.Context, contents []*genai.Content) (*genai.EmbedContentResponse, error) {
	dim := int32(c.dimension)
	cfg := &genai.EmbedContentConfig{OutputDimensionality: &dim}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, ctx.Err())
			case <-time.After(retryDelay(attempt - 1)):
			}
		}
		resp, err := c.client.Models.EmbedContent(ctx, c.model, contents, cfg)
		if err == nil {
			return resp, nil
		}
		lastErr = classify(err)
		if !domain.IsRetryable(lastErr) {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// retryDelay returns an exponential backoff delay capped at 5s.
func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

// classify maps a Gemini API error onto the core error taxonomy so the
// caller can distinguish rate limiting from other transient failures.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: gemini: %s", domain.ErrRateLimited, apiErr.Message)
		case apiErr.Code >= 500:
			return fmt.Errorf("%w: gemini: %s", domain.ErrProviderUnavailable, apiErr.Message)
		case apiErr.Code >= 400:
			return fmt.Errorf("%w: gemini: %s", domain.ErrInvalidInput, apiErr.Message)
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
}
