package domain

import "context"

// EmbeddingProvider converts free text into numeric vector representations.
// Implementations produce vectors of a fixed dimension and must return one
// vector per input text, in input order. A provider never truncates or
// drops inputs: a text over the provider's limit fails the whole call with
// ErrInvalidInput rather than returning fewer vectors than inputs.
type EmbeddingProvider interface {
	Name() string
	Dimensions() int
	Embed(ctx context.Context, texts []string) ([]EmbeddingVector, error)
}

// Chunker splits extracted document text into an ordered sequence of
// overlapping chunks with stable positional metadata.
type Chunker interface {
	Chunk(text, filename string) ([]DocumentChunk, error)
}

// VectorStore persists chunk vectors and supports similarity search.
//
// Upsert writes in fixed-size sequential batches with no cross-batch
// atomicity: if a batch fails, earlier batches stay committed and the
// error is a PartialBatchError. Because chunk ids are deterministic,
// retrying a failed ingestion overwrites rather than duplicates.
//
// ListDocuments is a best-effort approximation derived from stored
// metadata, not a guaranteed-complete listing.
type VectorStore interface {
	Upsert(ctx context.Context, chunks []DocumentChunk, vectors []EmbeddingVector) error
	Query(ctx context.Context, vector EmbeddingVector, topK int) ([]SearchResult, error)
	ListDocuments(ctx context.Context) ([]DocumentInfo, error)
}

// Extractor turns raw file bytes into plain text. Binary formats (PDF,
// DOCX, images) are handled by external collaborators; the shipped
// implementation covers text-based MIME types only.
type Extractor interface {
	Extract(data []byte, mimeType string) (string, error)
}
