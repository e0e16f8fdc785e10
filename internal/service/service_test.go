package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/chunker"
	"docqa/internal/domain"
	"docqa/internal/vectorstore/memory"
)

// stubProvider embeds texts deterministically: each vector encodes crude
// token-presence features so related texts score closer than unrelated
// ones. Calls returns how many Embed invocations happened.
type stubProvider struct {
	dimension int
	calls     int
	err       error
}

func (p *stubProvider) Name() string    { return "stub" }
func (p *stubProvider) Dimensions() int { return p.dimension }

func (p *stubProvider) Embed(_ context.Context, texts []string) ([]domain.EmbeddingVector, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	vectors := make([]domain.EmbeddingVector, len(texts))
	for i, text := range texts {
		vec := make(domain.EmbeddingVector, p.dimension)
		for _, word := range strings.Fields(strings.ToLower(text)) {
			sum := 0
			for _, r := range word {
				sum += int(r)
			}
			vec[sum%p.dimension]++
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// misalignedProvider returns one vector too few.
type misalignedProvider struct{ stubProvider }

func (p *misalignedProvider) Embed(ctx context.Context, texts []string) ([]domain.EmbeddingVector, error) {
	vectors, err := p.stubProvider.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	return vectors[:len(vectors)-1], nil
}

func newPipeline(t *testing.T) (*Ingestor, *Retriever, *stubProvider, *memory.Store) {
	t.Helper()
	provider := &stubProvider{dimension: 16}
	store, err := memory.NewStore(provider.Dimensions())
	require.NoError(t, err)
	ch, err := chunker.New(200, 40)
	require.NoError(t, err)
	ing := NewIngestor(ch, provider, store, 0, nil)
	ret := NewRetriever(provider, store, 0, nil)
	return ing, ret, provider, store
}

func TestIngestValidation(t *testing.T) {
	ing, _, _, _ := newPipeline(t)
	ctx := context.Background()

	_, err := ing.Ingest(ctx, "some text", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = ing.Ingest(ctx, "   \n", "doc.txt")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngestAndSearchRoundTrip(t *testing.T) {
	ing, ret, _, _ := newPipeline(t)
	ctx := context.Background()

	_, err := ing.Ingest(ctx, "The quick brown fox jumps over the lazy dog.", "fox.txt")
	require.NoError(t, err)
	_, err = ing.Ingest(ctx, "Stock markets rallied on strong quarterly earnings.", "markets.txt")
	require.NoError(t, err)

	results, err := ret.Search(ctx, "The quick brown fox jumps over the lazy dog.", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "fox.txt", results[0].Filename)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestIngestReportsChunkCount(t *testing.T) {
	ing, _, _, store := newPipeline(t)
	ctx := context.Background()

	text := strings.Repeat("A sentence that fills the chunk with words. ", 30)
	result, err := ing.Ingest(ctx, text, "long.txt")
	require.NoError(t, err)
	assert.Greater(t, result.ChunksCount, 1)
	assert.Equal(t, result.ChunksCount, store.Count())
}

func TestIngestIdempotentReingest(t *testing.T) {
	ing, _, _, store := newPipeline(t)
	ctx := context.Background()

	text := strings.Repeat("Same document, same chunking, same ids every time. ", 20)
	first, err := ing.Ingest(ctx, text, "doc.txt")
	require.NoError(t, err)
	second, err := ing.Ingest(ctx, text, "doc.txt")
	require.NoError(t, err)

	assert.Equal(t, first.ChunksCount, second.ChunksCount)
	assert.Equal(t, first.ChunksCount, store.Count())
}

func TestIngestEmbedFailureCarriesStage(t *testing.T) {
	ing, _, provider, store := newPipeline(t)
	provider.err = fmt.Errorf("%w: provider down", domain.ErrProviderUnavailable)

	_, err := ing.Ingest(context.Background(), "some document text", "doc.txt")
	require.Error(t, err)

	var stageErr *domain.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, domain.StageEmbed, stageErr.Stage)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.Equal(t, 0, store.Count())
}

func TestIngestRateLimitPassthrough(t *testing.T) {
	ing, _, provider, _ := newPipeline(t)
	provider.err = fmt.Errorf("%w: slow down", domain.ErrRateLimited)

	_, err := ing.Ingest(context.Background(), "some document text", "doc.txt")
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestIngestMisalignedEmbeddingsNeverStored(t *testing.T) {
	provider := &misalignedProvider{stubProvider{dimension: 16}}
	store, err := memory.NewStore(16)
	require.NoError(t, err)
	ch, err := chunker.New(100, 20)
	require.NoError(t, err)
	ing := NewIngestor(ch, provider, store, 0, nil)

	text := strings.Repeat("Words that split into several chunks for sure. ", 20)
	_, err = ing.Ingest(context.Background(), text, "doc.txt")
	require.Error(t, err)

	var stageErr *domain.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, domain.StageEmbed, stageErr.Stage)
	assert.Equal(t, 0, store.Count())
}

func TestIngestSplitsEmbeddingBatches(t *testing.T) {
	provider := &stubProvider{dimension: 16}
	store, err := memory.NewStore(16)
	require.NoError(t, err)
	ch, err := chunker.New(100, 20)
	require.NoError(t, err)
	ing := NewIngestor(ch, provider, store, 2, nil)

	text := strings.Repeat("Filler words keep the chunker producing chunks here. ", 20)
	result, err := ing.Ingest(context.Background(), text, "doc.txt")
	require.NoError(t, err)
	require.Greater(t, result.ChunksCount, 4)

	wantCalls := (result.ChunksCount + 1) / 2
	assert.Equal(t, wantCalls, provider.calls)
}

func TestSearchEmptyQueryFailsBeforeProvider(t *testing.T) {
	_, ret, provider, _ := newPipeline(t)

	_, err := ret.Search(context.Background(), "   ", 5)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 0, provider.calls)
}

func TestSearchEmptyIndexReturnsEmpty(t *testing.T) {
	_, ret, _, _ := newPipeline(t)

	results, err := ret.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchDefaultsTopK(t *testing.T) {
	ing, ret, _, _ := newPipeline(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		_, err := ing.Ingest(ctx, fmt.Sprintf("Document number %d has distinct words inside.", i), fmt.Sprintf("doc%d.txt", i))
		require.NoError(t, err)
	}

	results, err := ret.Search(ctx, "distinct words", 0)
	require.NoError(t, err)
	assert.Len(t, results, DefaultTopK)
}

func TestListDocuments(t *testing.T) {
	ing, ret, _, _ := newPipeline(t)
	ctx := context.Background()

	_, err := ing.Ingest(ctx, "first document body", "a.txt")
	require.NoError(t, err)
	_, err = ing.Ingest(ctx, "second document body", "b.txt")
	require.NoError(t, err)

	docs, err := ret.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a.txt", docs[0].Filename)
	assert.Equal(t, "b.txt", docs[1].Filename)
}
