package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func TestNewRejectsBadParameters(t *testing.T) {
	_, err := New(0, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = New(100, 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = New(100, -1)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestChunkEmptyInput(t *testing.T) {
	c, err := New(100, 20)
	require.NoError(t, err)

	for _, text := range []string{"", "   ", "\n\t\n"} {
		chunks, err := c.Chunk(text, "empty.txt")
		require.NoError(t, err)
		assert.Empty(t, chunks)
	}
}

func TestChunkShortInputSingleChunk(t *testing.T) {
	c, err := New(1000, 200)
	require.NoError(t, err)

	chunks, err := c.Chunk("The quick brown fox jumps over the lazy dog.", "fox.txt")
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	ch := chunks[0]
	assert.Equal(t, "The quick brown fox jumps over the lazy dog.", ch.Text)
	assert.Equal(t, "fox.txt", ch.Metadata.Filename)
	assert.Equal(t, 0, ch.Metadata.ChunkIndex)
	assert.Equal(t, 1, ch.Metadata.TotalChunks)
	assert.Equal(t, domain.ChunkID("fox.txt", 0), ch.ID)
}

func TestChunkDeterministic(t *testing.T) {
	c, err := New(120, 30)
	require.NoError(t, err)

	text := strings.Repeat("Some sentences go here. They repeat a lot. ", 40)
	first, err := c.Chunk(text, "doc.txt")
	require.NoError(t, err)
	second, err := c.Chunk(text, "doc.txt")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestChunkMetadataConsistent(t *testing.T) {
	c, err := New(150, 40)
	require.NoError(t, err)

	text := strings.Repeat("Alpha beta gamma delta epsilon zeta eta theta. ", 30)
	chunks, err := c.Chunk(text, "letters.txt")
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, ch := range chunks {
		assert.Equal(t, i, ch.Metadata.ChunkIndex)
		assert.Equal(t, len(chunks), ch.Metadata.TotalChunks)
		assert.Equal(t, "letters.txt", ch.Metadata.Filename)
		assert.NotEmpty(t, ch.Text)

		require.NotNil(t, ch.Metadata.StartPosition)
		require.NotNil(t, ch.Metadata.EndPosition)
		assert.Less(t, *ch.Metadata.StartPosition, *ch.Metadata.EndPosition)
	}
}

func TestChunkOverlapCarriedForward(t *testing.T) {
	overlap := 25
	c, err := New(100, overlap)
	require.NoError(t, err)

	text := strings.Repeat("word ", 200)
	chunks, err := c.Chunk(text, "words.txt")
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prevEnd := *chunks[i-1].Metadata.EndPosition
		start := *chunks[i].Metadata.StartPosition
		assert.Equal(t, prevEnd-overlap, start)
	}
}

func TestChunkZeroOverlap(t *testing.T) {
	c, err := New(100, 0)
	require.NoError(t, err)

	text := strings.Repeat("word ", 200)
	chunks, err := c.Chunk(text, "words.txt")
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	// With overlap zero, chunks tile the text without sharing runes.
	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, *chunks[i-1].Metadata.EndPosition, *chunks[i].Metadata.StartPosition)
	}
}

func TestChunkPathologicalNoWhitespace(t *testing.T) {
	c, err := New(50, 10)
	require.NoError(t, err)

	// No natural breakpoint anywhere; hard cuts must still terminate
	// and cover the full text.
	text := strings.Repeat("x", 500)
	chunks, err := c.Chunk(text, "blob.bin")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	last := chunks[len(chunks)-1]
	assert.Equal(t, len(text), *last.Metadata.EndPosition)
	for i := 1; i < len(chunks); i++ {
		assert.Greater(t, *chunks[i].Metadata.StartPosition, *chunks[i-1].Metadata.StartPosition)
	}
}

func TestChunkPrefersSentenceBoundary(t *testing.T) {
	c, err := New(35, 5)
	require.NoError(t, err)

	text := "First sentence is right here. Second sentence follows the first one. Third sentence closes it all out properly."
	chunks, err := c.Chunk(text, "sentences.txt")
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	// The first cut lands just after a sentence end rather than mid-word.
	assert.True(t, strings.HasSuffix(strings.TrimRight(chunks[0].Text, " "), "."),
		"first chunk %q should end at a sentence boundary", chunks[0].Text)
}

func TestChunkIDStableAcrossFiles(t *testing.T) {
	a := domain.ChunkID("a.txt", 0)
	b := domain.ChunkID("b.txt", 0)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, domain.ChunkID("a.txt", 0))
}
