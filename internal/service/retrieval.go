package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"docqa/internal/domain"
)

// DefaultTopK is the result count used when the caller does not ask for a
// specific one.
const DefaultTopK = 5

// Retriever embeds a query through the single active provider and ranks
// stored chunks by similarity.
type Retriever struct {
	provider    domain.EmbeddingProvider
	store       domain.VectorStore
	defaultTopK int
	log         *zap.Logger
}

// NewRetriever creates a retrieval orchestrator.
func NewRetriever(provider domain.EmbeddingProvider, store domain.VectorStore, defaultTopK int, log *zap.Logger) *Retriever {
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Retriever{provider: provider, store: store, defaultTopK: defaultTopK, log: log}
}

// Search returns the topK stored chunks most similar to queryText, ranked
// by descending score. An empty or whitespace-only query fails fast with
// ErrInvalidInput before any network call. An empty index yields an empty
// slice, not an error.
func (s *Retriever) Search(ctx context.Context, queryText string, topK int) ([]domain.SearchResult, error) {
	if strings.TrimSpace(queryText) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if topK <= 0 {
		topK = s.defaultTopK
	}

	vectors, err := s.provider.Embed(ctx, []string{queryText})
	if err != nil {
		return nil, err
	}
	results, err := s.store.Query(ctx, vectors[0], topK)
	if err != nil {
		return nil, err
	}

	s.log.Debug("search completed",
		zap.String("query", queryText),
		zap.Int("topK", topK),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// ListDocuments reports the store's document inventory.
func (s *Retriever) ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error) {
	return s.store.ListDocuments(ctx)
}
