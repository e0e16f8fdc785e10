package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
)

// ChunkMetadata carries the positional provenance of a chunk within its
// source document. PageNumber, StartPosition and EndPosition are optional:
// a nil pointer means the upstream extractor did not supply the value.
type ChunkMetadata struct {
	Filename      string
	ChunkIndex    int
	TotalChunks   int
	PageNumber    *int
	StartPosition *int
	EndPosition   *int
}

// DocumentChunk is a bounded slice of a document's text, the unit of
// embedding and retrieval. Chunks live only inside the vector store; they
// are never persisted elsewhere.
type DocumentChunk struct {
	ID       string
	Text     string
	Metadata ChunkMetadata
}

// EmbeddingVector is a fixed-length numeric representation of text.
// Its length is determined by the embedding provider and must match the
// dimension the vector index was created with.
type EmbeddingVector = []float32

// SearchResult is a read-only projection of a stored chunk plus its
// similarity score. It is never mutated after construction.
type SearchResult struct {
	Text          string
	Filename      string
	Score         float64
	PageNumber    *int
	StartPosition *int
	EndPosition   *int
}

// DocumentInfo describes one ingested document in the store inventory.
type DocumentInfo struct {
	Filename    string
	TotalChunks int
}

// IngestResult reports the outcome of a successful ingestion.
type IngestResult struct {
	Filename    string
	ChunksCount int
}

// ChunkID derives the stable identifier for a chunk from its filename and
// position. Re-ingesting the same file with the same chunking parameters
// reproduces identical ids, so upserts overwrite instead of duplicating.
func ChunkID(filename string, index int) string {
	h := sha1.Sum([]byte(filename))
	return hex.EncodeToString(h[:8]) + ":" + strconv.Itoa(index)
}
