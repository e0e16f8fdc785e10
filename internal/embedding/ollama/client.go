// Package ollama implements the local embedding provider backed by an
// Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"docqa/internal/domain"
)

// Defaults for a locally hosted nomic-embed-text model.
const (
	DefaultHost      = "http://localhost:11434"
	DefaultModel     = "nomic-embed-text"
	DefaultDimension = 768

	// maxTextRunes is the per-text input ceiling. Texts over this limit fail
	// the whole call; the provider never silently truncates.
	maxTextRunes = 8192
)

// Client is an embedding client for the Ollama /api/embeddings endpoint.
// The endpoint embeds one text per request, so batch calls fan out through
// a bounded worker pool that preserves input order.
type Client struct {
	host        string
	model       string
	dimension   int
	concurrency int
	maxRetries  int
	client      *http.Client
}

// Config configures the Ollama embedding client. Zero values fall back to
// the package defaults.
type Config struct {
	Host        string
	Model       string
	Dimension   int
	Timeout     time.Duration
	Concurrency int
}

// NewClient creates an Ollama embedding client.
func NewClient(cfg Config) *Client {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Client{
		host:        cfg.Host,
		model:       cfg.Model,
		dimension:   cfg.Dimension,
		concurrency: cfg.Concurrency,
		maxRetries:  3,
		client:      &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the identifier of this provider variant.
func (c *Client) Name() string { return "ollama" }

// Dimensions returns the fixed dimensionality of produced vectors.
func (c *Client) Dimensions() int { return c.dimension }

// Embed returns one vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([]domain.EmbeddingVector, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: no texts to embed", domain.ErrInvalidInput)
	}
	for i, t := range texts {
		if t == "" {
			return nil, fmt.Errorf("%w: text %d is empty", domain.ErrInvalidInput, i)
		}
		if len([]rune(t)) > maxTextRunes {
			return nil, fmt.Errorf("%w: text %d exceeds the %d-rune provider limit", domain.ErrInvalidInput, i, maxTextRunes)
		}
	}

	vectors := make([]domain.EmbeddingVector, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, text := range texts {
		g.Go(func() error {
			vec, err := c.embedOne(gctx, text)
			if err != nil {
				return err
			}
			if len(vec) != c.dimension {
				return fmt.Errorf("%w: model %s returned %d-dimensional vector, expected %d", domain.ErrDimensionMismatch, c.model, len(vec), c.dimension)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (c *Client) embedOne(ctx context.Context, text string) (domain.EmbeddingVector, error) {
	body, _ := json.Marshal(map[string]string{
		"model":  c.model,
		"prompt": text,
	})
	url := c.host + "/api/embeddings"

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, ctx.Err())
			case <-time.After(retryDelay(attempt - 1)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("%w: ollama returned %s", domain.ErrRateLimited, resp.Status)
			continue
		case resp.StatusCode >= 500:
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("%w: ollama returned %s", domain.ErrProviderUnavailable, resp.Status)
			continue
		case resp.StatusCode >= 300:
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			_ = resp.Body.Close()
			return nil, fmt.Errorf("%w: ollama returned %s: %s", domain.ErrInvalidInput, resp.Status, msg)
		}

		var out struct {
			Embedding []float32 `json:"embedding"`
		}
		err = json.NewDecoder(resp.Body).Decode(&out)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("%w: decode response: %v", domain.ErrProviderUnavailable, err)
			continue
		}
		if len(out.Embedding) == 0 {
			return nil, fmt.Errorf("%w: ollama returned no embedding", domain.ErrProviderUnavailable)
		}
		return out.Embedding, nil
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
