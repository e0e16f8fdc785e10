// Package pinecone is a minimal REST adapter over a Pinecone index.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"docqa/internal/domain"
)

const (
	// DefaultBatchSize is the number of records written per upsert request,
	// chosen to respect backend payload limits.
	DefaultBatchSize = 100

	// listProbeTopK is the topK ceiling used by the zero-vector probe that
	// approximates a full metadata scan for document listing.
	listProbeTopK = 10000
)

// Store talks to one Pinecone index over its data-plane REST API.
// It assumes cosine similarity and an index created with the same
// dimension as the active embedding provider.
type Store struct {
	host      string
	apiKey    string
	dimension int
	batchSize int
	client    *http.Client
}

// Config configures the Pinecone store adapter.
type Config struct {
	Host      string
	APIKey    string
	Dimension int
	BatchSize int
	Timeout   time.Duration
}

// NewStore creates a Pinecone store adapter. Dimension must match the
// dimension the index was created with; it is validated against every
// vector before a write goes on the wire.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: missing pinecone index host", domain.ErrConfiguration)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing pinecone api key", domain.ErrConfiguration)
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("%w: invalid index dimension %d", domain.ErrConfiguration, cfg.Dimension)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Store{
		host:      cfg.Host,
		apiKey:    cfg.APIKey,
		dimension: cfg.Dimension,
		batchSize: cfg.BatchSize,
		client:    &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type recordMetadata struct {
	Text          string `json:"text"`
	Filename      string `json:"filename"`
	ChunkIndex    int    `json:"chunkIndex"`
	TotalChunks   int    `json:"totalChunks"`
	PageNumber    *int   `json:"pageNumber,omitempty"`
	StartPosition *int   `json:"startPosition,omitempty"`
	EndPosition   *int   `json:"endPosition,omitempty"`
}

type record struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata recordMetadata `json:"metadata"`
}

// Upsert writes chunk vectors in sequential fixed-size batches. There is
// no cross-batch atomicity: if batch k fails, batches 1..k-1 stay
// committed and the returned PartialBatchError reports how many records
// were written. Retrying the whole document is safe because ids are
// deterministic and upsert-by-id overwrites.
func (s *Store) Upsert(ctx context.Context, chunks []domain.DocumentChunk, vectors []domain.EmbeddingVector) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks but %d vectors", domain.ErrInvalidInput, len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}
	for i, v := range vectors {
		if len(v) != s.dimension {
			return fmt.Errorf("%w: vector %d has dimension %d, index expects %d", domain.ErrDimensionMismatch, i, len(v), s.dimension)
		}
	}

	records := make([]record, len(chunks))
	for i, ch := range chunks {
		records[i] = record{
			ID:     ch.ID,
			Values: vectors[i],
			Metadata: recordMetadata{
				Text:          ch.Text,
				Filename:      ch.Metadata.Filename,
				ChunkIndex:    ch.Metadata.ChunkIndex,
				TotalChunks:   ch.Metadata.TotalChunks,
				PageNumber:    ch.Metadata.PageNumber,
				StartPosition: ch.Metadata.StartPosition,
				EndPosition:   ch.Metadata.EndPosition,
			},
		}
	}

	for start := 0; start < len(records); start += s.batchSize {
		batch := (start / s.batchSize) + 1
		if err := ctx.Err(); err != nil {
			return &domain.PartialBatchError{Batch: batch, Committed: start, Err: err}
		}
		end := start + s.batchSize
		if end > len(records) {
			end = len(records)
		}
		body := map[string]any{"vectors": records[start:end]}
		if err := s.postJSON(ctx, "/vectors/upsert", body, nil); err != nil {
			return &domain.PartialBatchError{Batch: batch, Committed: start, Err: err}
		}
	}
	return nil
}

// Query returns up to topK results ranked by descending similarity score.
// A topK larger than the index size returns everything available.
func (s *Store) Query(ctx context.Context, vector domain.EmbeddingVector, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive, got %d", domain.ErrInvalidInput, topK)
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query vector has dimension %d, index expects %d", domain.ErrDimensionMismatch, len(vector), s.dimension)
	}
	matches, err := s.query(ctx, vector, topK)
	if err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, domain.SearchResult{
			Text:          m.Metadata.Text,
			Filename:      m.Metadata.Filename,
			Score:         m.Score,
			PageNumber:    m.Metadata.PageNumber,
			StartPosition: m.Metadata.StartPosition,
			EndPosition:   m.Metadata.EndPosition,
		})
	}
	return results, nil
}

// ListDocuments approximates a full metadata scan with a zero-vector
// similarity query capped at a large topK. The probe dimension follows the
// configured index dimension, so it stays correct whichever embedding
// provider is active. Best effort: indexes holding more than the probe
// ceiling may be listed incompletely.
func (s *Store) ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error) {
	probe := make(domain.EmbeddingVector, s.dimension)
	matches, err := s.query(ctx, probe, listProbeTopK)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(matches))
	docs := make([]domain.DocumentInfo, 0, len(matches))
	for _, m := range matches {
		if m.Metadata.Filename == "" {
			continue
		}
		if _, ok := seen[m.Metadata.Filename]; ok {
			continue
		}
		seen[m.Metadata.Filename] = struct{}{}
		docs = append(docs, domain.DocumentInfo{
			Filename:    m.Metadata.Filename,
			TotalChunks: m.Metadata.TotalChunks,
		})
	}
	return docs, nil
}

type match struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata recordMetadata `json:"metadata"`
}

func (s *Store) query(ctx context.Context, vector domain.EmbeddingVector, topK int) ([]match, error) {
	body := map[string]any{
		"vector":          vector,
		"topK":            topK,
		"includeMetadata": true,
	}
	var resp struct {
		Matches []match `json:"matches"`
	}
	if err := s.postJSON(ctx, "/query", body, &resp); err != nil {
		return nil, err
	}
	return resp.Matches, nil
}

func (s *Store) postJSON(ctx context.Context, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.host+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: pinecone returned %s", domain.ErrRateLimited, resp.Status)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: pinecone returned %s", domain.ErrStoreUnavailable, resp.Status)
	case resp.StatusCode >= 300:
		return fmt.Errorf("pinecone POST %s failed: %s", path, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
