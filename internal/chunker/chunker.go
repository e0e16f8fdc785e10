// Package chunker splits extracted document text into overlapping,
// position-annotated chunks sized for embedding.
package chunker

import (
	"fmt"
	"strings"

	"docqa/internal/domain"
)

// Default chunking parameters, matching the document processing defaults
// used at ingestion time.
const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// TextChunker produces fixed-size chunks with a trailing overlap carried
// into the next chunk. Boundaries prefer natural breakpoints (paragraph,
// sentence, whitespace) found within a tolerance window near the chunk
// size, falling back to a hard cut so pathological input still terminates.
type TextChunker struct {
	chunkSize int
	overlap   int
	tolerance int
}

// New creates a chunker. chunkSize and overlap are measured in runes and
// must satisfy 0 <= overlap < chunkSize.
func New(chunkSize, overlap int) (*TextChunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrConfiguration, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap must satisfy 0 <= overlap < chunk size, got overlap=%d size=%d", domain.ErrConfiguration, overlap, chunkSize)
	}
	tolerance := chunkSize / 5
	if tolerance < 1 {
		tolerance = 1
	}
	return &TextChunker{chunkSize: chunkSize, overlap: overlap, tolerance: tolerance}, nil
}

// Chunk splits text into an ordered chunk sequence for filename. Identical
// input always yields an identical sequence; chunk ids derive from
// (filename, index) so re-ingestion overwrites prior vectors.
//
// Empty or whitespace-only input produces no chunks and no error.
func (c *TextChunker) Chunk(text, filename string) ([]domain.DocumentChunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	runes := []rune(text)
	total := len(runes)

	var chunks []domain.DocumentChunk
	start := 0
	for start < total {
		end := start + c.chunkSize
		if end >= total {
			end = total
		} else {
			end = c.adjustBoundary(runes, start, end)
		}

		idx := len(chunks)
		startPos := start
		endPos := end
		chunks = append(chunks, domain.DocumentChunk{
			ID:   domain.ChunkID(filename, idx),
			Text: string(runes[start:end]),
			Metadata: domain.ChunkMetadata{
				Filename:      filename,
				ChunkIndex:    idx,
				StartPosition: &startPos,
				EndPosition:   &endPos,
			},
		})

		if end == total {
			break
		}
		start = end - c.overlap
	}

	for i := range chunks {
		chunks[i].Metadata.TotalChunks = len(chunks)
	}
	return chunks, nil
}

// adjustBoundary searches backwards from the hard cut for a natural
// breakpoint inside the tolerance window. Paragraph breaks win over
// sentence ends, sentence ends over plain whitespace. The adjusted end
// must stay past start+overlap so the next chunk always makes progress.
func (c *TextChunker) adjustBoundary(runes []rune, start, end int) int {
	low := end - c.tolerance
	if min := start + c.overlap + 1; low < min {
		low = min
	}
	if low >= end {
		return end
	}

	paragraph, sentence, space := -1, -1, -1
	for i := end - 1; i >= low; i-- {
		r := runes[i]
		if r == '\n' && i > 0 && runes[i-1] == '\n' {
			paragraph = i + 1
			break
		}
		if sentence < 0 && isSentenceEnd(runes, i) {
			sentence = i + 1
		}
		if space < 0 && (r == ' ' || r == '\t' || r == '\n') {
			space = i + 1
		}
	}
	switch {
	case paragraph > 0:
		return paragraph
	case sentence > 0:
		return sentence
	case space > 0:
		return space
	}
	return end
}

func isSentenceEnd(runes []rune, i int) bool {
	switch runes[i] {
	case '.', '!', '?':
	default:
		return false
	}
	if i+1 >= len(runes) {
		return true
	}
	next := runes[i+1]
	return next == ' ' || next == '\t' || next == '\n'
}
