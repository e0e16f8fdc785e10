package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func newTestClient(url string, dimension int) *Client {
	return NewClient(Config{
		Host:        url,
		Model:       "test-model",
		Dimension:   dimension,
		Timeout:     2 * time.Second,
		Concurrency: 2,
	})
}

func embeddingHandler(t *testing.T, dimension int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)

		// Encode the prompt length into the first component so the test can
		// verify order preservation across the worker pool.
		vec := make([]float32, dimension)
		vec[0] = float32(len(req.Prompt))
		json.NewEncoder(w).Encode(map[string]any{"embedding": vec})
	}
}

func TestEmbedSuccess(t *testing.T) {
	srv := httptest.NewServer(embeddingHandler(t, 4))
	defer srv.Close()

	c := newTestClient(srv.URL, 4)
	vectors, err := c.Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Len(t, vectors[0], 4)
}

func TestEmbedPreservesOrder(t *testing.T) {
	srv := httptest.NewServer(embeddingHandler(t, 4))
	defer srv.Close()

	c := newTestClient(srv.URL, 4)
	texts := []string{"a", "bb", "ccc", "dddd", "eeeee", "ffffff"}
	vectors, err := c.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))
	for i, text := range texts {
		assert.Equal(t, float32(len(text)), vectors[i][0], "vector %d out of order", i)
	}
}

func TestEmbedInputValidation(t *testing.T) {
	c := newTestClient("http://unused", 4)

	_, err := c.Embed(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = c.Embed(context.Background(), []string{"ok", ""})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = c.Embed(context.Background(), []string{strings.Repeat("x", maxTextRunes+1)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEmbedDimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(embeddingHandler(t, 8))
	defer srv.Close()

	c := newTestClient(srv.URL, 4)
	_, err := c.Embed(context.Background(), []string{"hello"})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestEmbedRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 4)
	_, err := c.Embed(context.Background(), []string{"hello"})
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestEmbedServerErrorRetriesThenFails(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 4)
	_, err := c.Embed(context.Background(), []string{"hello"})
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.Equal(t, 4, calls)
}

func TestEmbedConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := newTestClient(srv.URL, 4)
	_, err := c.Embed(context.Background(), []string{"hello"})
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestEmbedBadRequestNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 4)
	_, err := c.Embed(context.Background(), []string{"hello"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 1, calls)
}

func TestRetryDelayCapped(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, retryDelay(0))
	assert.Equal(t, 400*time.Millisecond, retryDelay(1))
	assert.Equal(t, 5*time.Second, retryDelay(20))
}
