// Package memory is an in-process vector store used for development and
// tests. It mirrors the remote adapter's contract: upsert-by-id overwrite,
// cosine similarity, stable ranking.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"docqa/internal/domain"
)

type entry struct {
	chunk  domain.DocumentChunk
	vector domain.EmbeddingVector
}

// Store keeps chunk vectors in memory, ordered by first insertion.
type Store struct {
	mu        sync.RWMutex
	dimension int
	order     []string
	entries   map[string]entry
}

// NewStore creates an in-memory store for vectors of the given dimension.
func NewStore(dimension int) (*Store, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: invalid index dimension %d", domain.ErrConfiguration, dimension)
	}
	return &Store{dimension: dimension, entries: make(map[string]entry)}, nil
}

// Upsert inserts or overwrites records keyed by chunk id. All vectors are
// validated against the configured dimension before anything is written.
func (s *Store) Upsert(_ context.Context, chunks []domain.DocumentChunk, vectors []domain.EmbeddingVector) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks but %d vectors", domain.ErrInvalidInput, len(chunks), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != s.dimension {
			return fmt.Errorf("%w: vector %d has dimension %d, index expects %d", domain.ErrDimensionMismatch, i, len(v), s.dimension)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, ch := range chunks {
		if _, ok := s.entries[ch.ID]; !ok {
			s.order = append(s.order, ch.ID)
		}
		s.entries[ch.ID] = entry{chunk: ch, vector: vectors[i]}
	}
	return nil
}

// Query returns up to topK results by descending cosine similarity.
// Ties keep insertion order. An empty store yields an empty slice.
func (s *Store) Query(_ context.Context, vector domain.EmbeddingVector, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive, got %d", domain.ErrInvalidInput, topK)
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query vector has dimension %d, index expects %d", domain.ErrDimensionMismatch, len(vector), s.dimension)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		pos   int
		score float64
	}
	scores := make([]scored, 0, len(s.order))
	for pos, id := range s.order {
		e := s.entries[id]
		scores = append(scores, scored{pos: pos, score: cosine(e.vector, vector)})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	if topK > len(scores) {
		topK = len(scores)
	}
	results := make([]domain.SearchResult, 0, topK)
	for _, sc := range scores[:topK] {
		e := s.entries[s.order[sc.pos]]
		results = append(results, domain.SearchResult{
			Text:          e.chunk.Text,
			Filename:      e.chunk.Metadata.Filename,
			Score:         sc.score,
			PageNumber:    e.chunk.Metadata.PageNumber,
			StartPosition: e.chunk.Metadata.StartPosition,
			EndPosition:   e.chunk.Metadata.EndPosition,
		})
	}
	return results, nil
}

// ListDocuments scans stored metadata and returns one entry per filename,
// in first-insertion order.
func (s *Store) ListDocuments(_ context.Context) ([]domain.DocumentInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	docs := make([]domain.DocumentInfo, 0)
	for _, id := range s.order {
		meta := s.entries[id].chunk.Metadata
		if _, ok := seen[meta.Filename]; ok {
			continue
		}
		seen[meta.Filename] = struct{}{}
		docs = append(docs, domain.DocumentInfo{Filename: meta.Filename, TotalChunks: meta.TotalChunks})
	}
	return docs, nil
}

// Count returns the number of stored records.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func cosine(a, b domain.EmbeddingVector) float64 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
