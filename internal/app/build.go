// Package app assembles the pipeline components from configuration. The
// provider choice is made once here and injected everywhere else, so a
// process can never mix vector dimensions inside one index.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/embedding/gemini"
	"docqa/internal/embedding/ollama"
	"docqa/internal/vectorstore/memory"
	"docqa/internal/vectorstore/pinecone"
)

// BuildChunker creates the text chunker from config.
func BuildChunker(cfg *config.AppConfig) (domain.Chunker, error) {
	return chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
}

// BuildProvider creates the configured embedding provider variant.
func BuildProvider(ctx context.Context, cfg *config.AppConfig) (domain.EmbeddingProvider, error) {
	switch cfg.Provider {
	case config.ProviderLocal:
		return ollama.NewClient(ollama.Config{
			Host:        cfg.Ollama.Host,
			Model:       cfg.Ollama.Model,
			Dimension:   cfg.Ollama.Dimension,
			Timeout:     time.Duration(cfg.Ollama.TimeoutSecs) * time.Second,
			Concurrency: cfg.Ollama.Concurrency,
		}), nil
	case config.ProviderCloud:
		key := os.Getenv(cfg.Gemini.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("%w: missing API key in env %s", domain.ErrConfiguration, cfg.Gemini.APIKeyEnv)
		}
		return gemini.NewClient(ctx, gemini.Config{
			APIKey:    key,
			Model:     cfg.Gemini.Model,
			Dimension: cfg.Gemini.Dimension,
			Timeout:   time.Duration(cfg.Gemini.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrConfiguration, cfg.Provider)
	}
}

// BuildStore creates the vector store. The index dimension always follows
// the active provider, including the zero-vector listing probe. Without a
// pinecone section the in-memory store is used.
func BuildStore(cfg *config.AppConfig, provider domain.EmbeddingProvider) (domain.VectorStore, error) {
	if cfg.Pinecone == nil {
		return memory.NewStore(provider.Dimensions())
	}
	key := os.Getenv(cfg.Pinecone.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: missing API key in env %s", domain.ErrConfiguration, cfg.Pinecone.APIKeyEnv)
	}
	return pinecone.NewStore(pinecone.Config{
		Host:      cfg.Pinecone.Host,
		APIKey:    key,
		Dimension: provider.Dimensions(),
		BatchSize: cfg.BatchSize,
		Timeout:   time.Duration(cfg.Pinecone.TimeoutSecs) * time.Second,
	})
}
