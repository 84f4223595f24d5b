// Package setup assembles the shared application dependencies.
package setup

import (
	"context"
	"log"

	"github.com/atelier-ai/atelier/internal/ai/client"
	"github.com/atelier-ai/atelier/internal/database"
	"github.com/atelier-ai/atelier/internal/redis"
	"github.com/atelier-ai/atelier/internal/setup/config"
	"github.com/atelier-ai/atelier/internal/storage"
	"go.uber.org/zap"
)

// App contains the common setup components shared by every entry point.
type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	DBLogger     *zap.Logger
	DB           database.Client
	RedisManager *redis.Manager
	Storage      *storage.Client
	AIClient     client.Client
}

// InitializeApp loads configuration and connects the shared dependencies.
func InitializeApp(ctx context.Context, logDir string) (*App, error) {
	cfg, configPath, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logger, dbLogger, err := GetLoggers(logDir, cfg.Common.Debug.LogLevel, cfg.Common.Debug.MaxLogsToKeep)
	if err != nil {
		return nil, err
	}

	logger.Info("Loaded configuration", zap.String("configPath", configPath))

	db, err := database.NewConnection(ctx, &cfg.Common.PostgreSQL, dbLogger, true)
	if err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		return nil, err
	}

	redisManager := redis.NewManager(&cfg.Common.Redis, logger)

	store, err := storage.NewClient(&cfg.Common.Storage, logger)
	if err != nil {
		logger.Error("Failed to create storage client", zap.Error(err))
		return nil, err
	}

	if err := store.EnsureBucket(ctx); err != nil {
		logger.Error("Failed to ensure storage bucket", zap.Error(err))
		return nil, err
	}

	aiClient, err := client.NewClient(&cfg.Common.OpenAI, logger)
	if err != nil {
		logger.Error("Failed to create AI client", zap.Error(err))
		return nil, err
	}

	return &App{
		Config:       cfg,
		Logger:       logger,
		DBLogger:     dbLogger,
		DB:           db,
		RedisManager: redisManager,
		Storage:      store,
		AIClient:     aiClient,
	}, nil
}

// Cleanup releases the shared dependencies.
func (a *App) Cleanup() {
	if err := a.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := a.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}

	if err := a.DB.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
	}

	a.RedisManager.Close()
}
