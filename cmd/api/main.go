package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/omarwh/finsent/internal/analysis"
	"github.com/omarwh/finsent/internal/api"
	"github.com/omarwh/finsent/internal/api/middleware"
	"github.com/omarwh/finsent/internal/config"
	"github.com/omarwh/finsent/internal/logger"
	"github.com/omarwh/finsent/internal/pipeline"
	"github.com/omarwh/finsent/internal/repository"
	"github.com/omarwh/finsent/internal/source"
	"github.com/omarwh/finsent/internal/source/gulfnews"
	"github.com/omarwh/finsent/internal/source/menabytes"
	"github.com/omarwh/finsent/internal/source/zawya"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger := logger.NewFromEnv(logger.LoadFromEnv())
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	// Initialize repositories
	articleRepo := repository.NewArticleRepository(db)
	sentimentRepo := repository.NewSentimentRepository(db)
	usageRepo := repository.NewUsageRepository(db)
	runRepo := repository.NewRunRepository(db)
	configRepo := repository.NewConfigRepository(db)

	// Initialize source registry
	registry := source.NewRegistry(appLogger,
		gulfnews.New(cfg.Sources.HTTPTimeout, cfg.Sources.UserAgent),
		zawya.New(cfg.Sources.HTTPTimeout, cfg.Sources.UserAgent),
		menabytes.New(cfg.Sources.HTTPTimeout, cfg.Sources.UserAgent),
	)
	appLogger.Infof("Available sources: %v", registry.Names())

	// Default LLM configuration, used by scheduled runs and as the base
	// for triggered runs
	defaultLLMConfig := analysis.Config{
		Provider:     cfg.Analyzer.Provider,
		ModelName:    cfg.Analyzer.Model,
		OpenAIAPIKey: cfg.Analyzer.OpenAIAPIKey,
		GroqAPIKey:   cfg.Analyzer.GroqAPIKey,
	}

	// Per-run extractor factory: request overrides fall back to the
	// configured defaults
	factory := func(runCfg analysis.Config) (pipeline.EntityExtractor, error) {
		merged := defaultLLMConfig
		if runCfg.Provider != "" {
			merged.Provider = runCfg.Provider
			merged.ModelName = runCfg.ModelName
		}
		if runCfg.ModelName != "" {
			merged.ModelName = runCfg.ModelName
		}
		if runCfg.OpenAIAPIKey != "" {
			merged.OpenAIAPIKey = runCfg.OpenAIAPIKey
		}
		if runCfg.GroqAPIKey != "" {
			merged.GroqAPIKey = runCfg.GroqAPIKey
		}
		return analysis.New(merged, appLogger)
	}

	// Initialize pipeline
	tracker := pipeline.NewTracker()
	acquirer := pipeline.NewAcquirer(articleRepo, appLogger)
	extractor := pipeline.NewExtractor(articleRepo, sentimentRepo, usageRepo, factory, appLogger)
	runner := pipeline.NewRunner(tracker, acquirer, extractor, runRepo, appLogger)

	// Start the daily scheduler from the persisted schedule time
	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	scheduler := pipeline.NewScheduler(runner, registry, configRepo, defaultLLMConfig, cfg.Pipeline.DefaultScheduleTime, appLogger)
	if err := scheduler.Start(rootCtx); err != nil {
		appLogger.WithError(err).Fatal("Failed to start scheduler")
	}

	// The summary endpoint needs its own analyzer built from the default
	// config; without credentials it stays disabled rather than failing
	// startup
	deps := api.Deps{
		Runner:     runner,
		Scheduler:  scheduler,
		Registry:   registry,
		Sentiments: sentimentRepo,
		Articles:   articleRepo,
		Usage:      usageRepo,
		Logger:     appLogger,
		CORS: middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		},
	}
	if summarizer, err := analysis.New(defaultLLMConfig, appLogger); err != nil {
		appLogger.WithError(err).Warn("Entity summarization disabled")
	} else {
		deps.Summarizer = summarizer
	}

	// Setup router
	router := api.SetupRouter(deps, cfg.Server.Mode)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLogger.Infof("Starting API server on port %d (mode=%s)", cfg.Server.Port, cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	cancelRoot()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
