package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/scribehq/scribe/internal/adapters/driven/embedding"
	embeddingopenai "github.com/scribehq/scribe/internal/adapters/driven/embedding/openai"
	"github.com/scribehq/scribe/internal/adapters/driven/index/memory"
	"github.com/scribehq/scribe/internal/adapters/driven/keyword"
	"github.com/scribehq/scribe/internal/adapters/driven/llm/anthropic"
	llmopenai "github.com/scribehq/scribe/internal/adapters/driven/llm/openai"
	"github.com/scribehq/scribe/internal/adapters/driven/storage/sqlite"
	"github.com/scribehq/scribe/internal/api"
	"github.com/scribehq/scribe/internal/config"
	"github.com/scribehq/scribe/internal/core/ports/driven"
	"github.com/scribehq/scribe/internal/core/services"
	"github.com/scribehq/scribe/internal/loaders"
	"github.com/scribehq/scribe/internal/logger"
	"github.com/scribehq/scribe/internal/splitter"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	embedder, err := embeddingopenai.NewEmbeddingService(embeddingopenai.Config{
		APIKey:     cfg.OpenAIAPIKey,
		Model:      cfg.EmbeddingModel,
		Dimensions: cfg.EmbeddingDimensions,
	})
	if err != nil {
		return fmt.Errorf("embedding service: %w", err)
	}
	cached, err := embedding.NewCached(embedder, embedding.WithCacheSize(cfg.EmbeddingCacheSize))
	if err != nil {
		return fmt.Errorf("embedding cache: %w", err)
	}

	var models []driven.ChatModel
	if cfg.OpenAIAPIKey != "" {
		model, err := llmopenai.NewChatModel(llmopenai.Config{APIKey: cfg.OpenAIAPIKey})
		if err != nil {
			return fmt.Errorf("openai chat model: %w", err)
		}
		models = append(models, model)
	}
	if cfg.AnthropicAPIKey != "" {
		model, err := anthropic.NewChatModel(anthropic.Config{APIKey: cfg.AnthropicAPIKey})
		if err != nil {
			return fmt.Errorf("anthropic chat model: %w", err)
		}
		models = append(models, model)
	}

	split, err := splitter.New(
		splitter.WithChunkSize(cfg.ChunkSize),
		splitter.WithChunkOverlap(cfg.ChunkOverlap),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	vectorstore := services.NewVectorStoreService(store, memory.NewVectorIndex(), log)
	retriever := services.NewRetrieverService(vectorstore, cached, keyword.NewNoop(), log)
	chat := services.NewChatService(retriever, models, log)
	ingest := services.NewIngestService(loaders.NewRegistry(), split, cached, vectorstore, log,
		services.WithMaxFileBytes(cfg.MaxFileMB<<20))

	// The in-memory vector index is rebuilt from the database on boot.
	added, err := vectorstore.Rehydrate(ctx)
	if err != nil {
		return fmt.Errorf("rehydrate index: %w", err)
	}
	log.Info("vector index rehydrated", "chunks", added)

	srv := api.NewServer(ingest, vectorstore, retriever, chat, log)

	httpServer := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     srv,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting scribe", "port", cfg.Port, "providers", len(models))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
