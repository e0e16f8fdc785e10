// Package service wires the chunker, embedding provider and vector store
// into the ingestion and retrieval pipelines.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"docqa/internal/domain"
)

// DefaultEmbedBatchSize bounds how many chunk texts go into one embedding
// call, so large documents split into several provider requests.
const DefaultEmbedBatchSize = 64

// Ingestor drives one document through chunk -> embed -> store. Failures
// carry the stage they occurred in. Ingestions of the same filename are
// serialised; different filenames proceed independently.
//
// Re-ingesting a document with identical chunking parameters overwrites
// prior vectors (ids are deterministic). Re-ingesting with different
// parameters leaves orphaned chunks from the previous ingestion in the
// store; there is no automatic cleanup.
type Ingestor struct {
	chunker        domain.Chunker
	provider       domain.EmbeddingProvider
	store          domain.VectorStore
	embedBatchSize int
	log            *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewIngestor creates an ingestion orchestrator.
func NewIngestor(chunker domain.Chunker, provider domain.EmbeddingProvider, store domain.VectorStore, embedBatchSize int, log *zap.Logger) *Ingestor {
	if embedBatchSize <= 0 {
		embedBatchSize = DefaultEmbedBatchSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ingestor{
		chunker:        chunker,
		provider:       provider,
		store:          store,
		embedBatchSize: embedBatchSize,
		log:            log,
		locks:          make(map[string]*sync.Mutex),
	}
}

// Ingest chunks text, embeds every chunk and upserts the result under
// filename. The chunk/embedding alignment invariant is enforced before
// any store write.
func (s *Ingestor) Ingest(ctx context.Context, text, filename string) (*domain.IngestResult, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("%w: missing filename", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: document text is empty", domain.ErrInvalidInput)
	}

	unlock := s.lockFilename(filename)
	defer unlock()

	chunks, err := s.chunker.Chunk(text, filename)
	if err != nil {
		return nil, &domain.StageError{Stage: domain.StageChunk, Err: err}
	}
	if len(chunks) == 0 {
		return &domain.IngestResult{Filename: filename}, nil
	}

	vectors, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return nil, &domain.StageError{Stage: domain.StageEmbed, Err: err}
	}
	if len(vectors) != len(chunks) {
		return nil, &domain.StageError{
			Stage: domain.StageEmbed,
			Err:   fmt.Errorf("%w: %d chunks but %d embeddings", domain.ErrInvalidInput, len(chunks), len(vectors)),
		}
	}

	if err := s.store.Upsert(ctx, chunks, vectors); err != nil {
		return nil, &domain.StageError{Stage: domain.StageStore, Err: err}
	}

	s.log.Info("document ingested",
		zap.String("filename", filename),
		zap.Int("chunks", len(chunks)),
		zap.String("provider", s.provider.Name()),
	)
	return &domain.IngestResult{Filename: filename, ChunksCount: len(chunks)}, nil
}

// embedChunks splits the chunk texts into provider-sized batches and
// embeds them sequentially, preserving chunk order end to end.
func (s *Ingestor) embedChunks(ctx context.Context, chunks []domain.DocumentChunk) ([]domain.EmbeddingVector, error) {
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors := make([]domain.EmbeddingVector, 0, len(texts))
	for start := 0; start < len(texts); start += s.embedBatchSize {
		end := start + s.embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := s.provider.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("provider returned %d vectors for %d texts", len(batch), end-start)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (s *Ingestor) lockFilename(filename string) func() {
	s.mu.Lock()
	l, ok := s.locks[filename]
	if !ok {
		l = &sync.Mutex{}
		s.locks[filename] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}
