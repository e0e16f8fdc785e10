package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"docqa/internal/domain"
)

func TestTokenSet(t *testing.T) {
	set := tokenSet("The quick brown fox, the lazy dog.")
	assert.Len(t, set, 6)
	assert.Contains(t, set, "the")
	assert.Contains(t, set, "fox")
	assert.NotContains(t, set, "fox,")
}

func TestOverlapCount(t *testing.T) {
	q := tokenSet("quick brown fox")
	assert.Equal(t, 3, overlapCount(q, tokenSet("The quick brown fox jumps.")))
	assert.Equal(t, 1, overlapCount(q, tokenSet("A brown bear.")))
	assert.Equal(t, 0, overlapCount(q, tokenSet("Nothing shared here.")))
	assert.Equal(t, 0, overlapCount(q, tokenSet("")))
}

func TestHighlightBestSentencePreservesText(t *testing.T) {
	text := "First sentence here. Second sentence about foxes. Third one."
	out := highlightBestSentence(text, "foxes")
	assert.Contains(t, out, "Second sentence about foxes.")
	assert.Contains(t, out, "First sentence here.")

	assert.Equal(t, "", highlightBestSentence("", "query"))
	assert.Equal(t, "   ", highlightBestSentence("   ", "query"))
}

func TestProvenance(t *testing.T) {
	start, end, page := 100, 350, 4

	assert.Equal(t, "  chars 100-350", provenance(domain.SearchResult{StartPosition: &start, EndPosition: &end}))
	assert.Equal(t, "  page 4", provenance(domain.SearchResult{PageNumber: &page}))
	assert.Equal(t, "", provenance(domain.SearchResult{}))
}
