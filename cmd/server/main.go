package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atelier-ai/atelier/internal/ai"
	"github.com/atelier-ai/atelier/internal/feedback"
	"github.com/atelier-ai/atelier/internal/generate"
	"github.com/atelier-ai/atelier/internal/ingest"
	"github.com/atelier-ai/atelier/internal/learn/bandit"
	"github.com/atelier-ai/atelier/internal/learn/rlhf"
	"github.com/atelier-ai/atelier/internal/profile"
	"github.com/atelier-ai/atelier/internal/prompt"
	"github.com/atelier-ai/atelier/internal/redis"
	"github.com/atelier-ai/atelier/internal/rest"
	"github.com/atelier-ai/atelier/internal/selector"
	"github.com/atelier-ai/atelier/internal/setup"
	"go.uber.org/zap"
)

// ServerLogDir specifies where API server log files are stored.
const ServerLogDir = "logs/server_logs"

// Server timeouts. Write stays generous since generation batches stream over
// long-lived connections.
const (
	ReadTimeout     = 30 * time.Second
	WriteTimeout    = 10 * time.Minute
	ShutdownTimeout = 30 * time.Second
)

func main() {
	ctx := context.Background()

	app, err := setup.InitializeApp(ctx, ServerLogDir)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.Cleanup()

	cfg := app.Config
	logger := app.Logger

	cacheClient, err := app.RedisManager.GetClient(redis.CacheDBIndex)
	if err != nil {
		logger.Fatal("Failed to create cache client", zap.Error(err))
	}

	eventsClient, err := app.RedisManager.GetClient(redis.EventsDBIndex)
	if err != nil {
		logger.Fatal("Failed to create events client", zap.Error(err))
	}

	// Learning stores and profile aggregation
	profiles := profile.NewAggregator(app.DB, profile.NewCache(cacheClient), logger)
	banditStore := bandit.NewStore(app.DB, cfg.Server.Learning.BanditFloor, logger)
	rlhfStore := rlhf.NewStore(
		app.DB, cfg.Server.Learning.RLHFEpsilon, cfg.Server.Learning.RLHFLearningRate, logger,
	)

	// Analysis and generation pipeline
	descriptorAnalyzer := ai.NewDescriptorAnalyzer(app.AIClient.Chat(), cfg, logger)
	critiqueAnalyzer := ai.NewCritiqueAnalyzer(app.AIClient.Chat(), cfg, logger)

	pipeline := ingest.NewPipeline(
		app.DB, app.Storage, descriptorAnalyzer, profiles,
		cfg.Server.Pipeline.AnalysisConcurrency, logger,
	)

	builder := prompt.NewBuilder(app.DB, banditStore, rlhfStore, cfg, logger)

	var adapters []generate.Adapter
	if cfg.Server.Adapters.OpenAI.Enabled {
		adapters = append(adapters, generate.NewOpenAIAdapter(
			app.AIClient.Images(), &cfg.Server.Adapters.OpenAI, logger,
		))
	}

	if cfg.Server.Adapters.Flux.Enabled {
		adapters = append(adapters, generate.NewFluxAdapter(&cfg.Server.Adapters.Flux, logger))
	}

	if len(adapters) == 0 {
		logger.Fatal("No image adapters enabled")
	}

	orchestrator := generate.NewOrchestrator(app.DB, builder, adapters, app.Storage, cfg, logger)
	sel := selector.NewSelector(app.DB, app.Storage, cfg, logger)
	processor := feedback.NewProcessor(app.DB, eventsClient, banditStore, rlhfStore, critiqueAnalyzer, logger)

	handler, err := rest.NewServer(rest.Deps{
		DB:           app.DB,
		RedisManager: app.RedisManager,
		Pipeline:     pipeline,
		Profiles:     profiles,
		Orchestrator: orchestrator,
		Selector:     sel,
		Feedback:     processor,
		Bandit:       banditStore,
		RLHF:         rlhfStore,
	}, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create REST server", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      handler,
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
	}

	go func() {
		logger.Info("API server started", zap.String("addr", cfg.Server.ListenAddr))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server gracefully stopped")
}
