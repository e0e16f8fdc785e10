package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"docqa/internal/app"
	"docqa/internal/config"
	"docqa/internal/drive"
	"docqa/internal/extract"
	"docqa/internal/server"
	"docqa/internal/service"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/docqa/config.yaml if not provided)")
	flag.Parse()

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

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	ch, err := app.BuildChunker(cfg)
	if err != nil {
		logger.Fatal("chunker init failed", zap.Error(err))
	}
	provider, err := app.BuildProvider(ctx, cfg)
	if err != nil {
		logger.Fatal("embedding provider init failed", zap.Error(err))
	}
	store, err := app.BuildStore(cfg, provider)
	if err != nil {
		logger.Fatal("vector store init failed", zap.Error(err))
	}

	ingestor := service.NewIngestor(ch, provider, store, cfg.EmbedBatchSize, logger)
	retriever := service.NewRetriever(provider, store, cfg.DefaultTopK, logger)

	var driveSource server.DriveSource
	if cfg.Drive != nil {
		token := os.Getenv(cfg.Drive.AccessTokenEnv)
		if token == "" {
			logger.Fatal("drive access token missing", zap.String("env", cfg.Drive.AccessTokenEnv))
		}
		conn, err := drive.NewConnector(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
		if err != nil {
			logger.Fatal("drive connector init failed", zap.Error(err))
		}
		driveSource = conn
	}

	srv := server.New(ingestor, retriever, extract.New(), driveSource, logger)
	httpSrv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router(),
	}

	go func() {
		logger.Info("server listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("provider", provider.Name()),
			zap.Int("dimensions", provider.Dimensions()),
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
