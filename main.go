package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hzhu628/kontext/internal/adapter/ollama"
	"github.com/hzhu628/kontext/internal/config"
	"github.com/hzhu628/kontext/internal/repository"
	"github.com/hzhu628/kontext/internal/service"
	transport "github.com/hzhu628/kontext/internal/transport/http"
	"github.com/hzhu628/kontext/internal/vectorstore"
	"github.com/hzhu628/kontext/policy"
)

func main() {
	// Load configuration
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("starting chat backend",
		"http_port", cfg.HTTPPort,
		"database", cfg.DatabaseURL,
		"ollama", cfg.OllamaBaseURL,
		"weaviate", cfg.WeaviateURL)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize vector index. Collection management fails loudly;
	// everything downstream degrades instead.
	index, err := vectorstore.NewWeaviateIndex(cfg.WeaviateURL, cfg.WeaviateClass, cfg.EmbeddingDim)
	if err != nil {
		log.Fatalf("Failed to initialize vector index: %v", err)
	}
	ctx := context.Background()
	if err := index.EnsureReady(ctx); err != nil {
		log.Fatalf("Failed to prepare vector index: %v", err)
	}

	// Initialize Ollama client
	ollamaClient := ollama.NewClient(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.EmbedModel, cfg.EmbeddingDim, cfg.OllamaTimeout)

	// Initialize embedding policy engine
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Wire service and server
	svc := service.New(db, index, ollamaClient, ollamaClient, policyEngine, cfg)
	server := transport.NewServer(svc, index, ollamaClient.ModelInfo())

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	slog.Info("API started", "port", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server gracefully", "error", err)
	}

	slog.Info("stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}
