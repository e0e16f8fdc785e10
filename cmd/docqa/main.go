package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"docqa/internal/app"
	"docqa/internal/config"
	"docqa/internal/extract"
	"docqa/internal/service"
	"docqa/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/docqa/config.yaml if not provided)")
	flag.Parse()
	inputs := flag.Args()
	if len(inputs) == 0 {
		fmt.Println("Usage: docqa [--config=config.yaml] file1.txt [file2.txt ...]")
		os.Exit(1)
	}

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx := context.Background()

	// Assemble components
	ch, err := app.BuildChunker(cfg)
	if err != nil {
		log.Fatalf("chunker init failed: %v", err)
	}
	provider, err := app.BuildProvider(ctx, cfg)
	if err != nil {
		log.Fatalf("embedding provider init failed: %v", err)
	}
	store, err := app.BuildStore(cfg, provider)
	if err != nil {
		log.Fatalf("vector store init failed: %v", err)
	}

	ingestor := service.NewIngestor(ch, provider, store, cfg.EmbedBatchSize, nil)
	retriever := service.NewRetriever(provider, store, cfg.DefaultTopK, nil)
	extractor := extract.New()

	totalChunks := 0
	for _, path := range inputs {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("read %s: %v", path, err)
		}
		text, err := extractor.Extract(data, mimeForPath(path))
		if err != nil {
			log.Fatalf("extract %s: %v", path, err)
		}
		result, err := ingestor.Ingest(ctx, text, filepath.Base(path))
		if err != nil {
			log.Fatalf("ingest %s: %v", path, err)
		}
		totalChunks += result.ChunksCount
	}

	summary := fmt.Sprintf("Ingested %d file(s), %d chunks, provider=%s (%dd)",
		len(inputs), totalChunks, provider.Name(), provider.Dimensions())
	m := tui.New(retriever, summary)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
	}
}

func mimeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return "text/markdown"
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	default:
		return "text/plain"
	}
}
