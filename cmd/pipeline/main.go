package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/omarwh/finsent/internal/analysis"
	"github.com/omarwh/finsent/internal/config"
	"github.com/omarwh/finsent/internal/logger"
	"github.com/omarwh/finsent/internal/pipeline"
	"github.com/omarwh/finsent/internal/repository"
	"github.com/omarwh/finsent/internal/source"
	"github.com/omarwh/finsent/internal/source/gulfnews"
	"github.com/omarwh/finsent/internal/source/menabytes"
	"github.com/omarwh/finsent/internal/source/zawya"
)

// One-shot pipeline run over every source with the configured LLM
// defaults. Useful for cron-less deployments and local backfills.
func main() {
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.NewFromEnv(logger.LoadFromEnv())
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	articleRepo := repository.NewArticleRepository(db)
	sentimentRepo := repository.NewSentimentRepository(db)
	usageRepo := repository.NewUsageRepository(db)

	registry := source.NewRegistry(appLogger,
		gulfnews.New(cfg.Sources.HTTPTimeout, cfg.Sources.UserAgent),
		zawya.New(cfg.Sources.HTTPTimeout, cfg.Sources.UserAgent),
		menabytes.New(cfg.Sources.HTTPTimeout, cfg.Sources.UserAgent),
	)
	sources := registry.All()
	if len(sources) == 0 {
		appLogger.Fatal("No sources registered, exiting")
	}
	appLogger.Infof("Found %d sources: %v", len(sources), registry.Names())

	llmConfig := analysis.Config{
		Provider:     cfg.Analyzer.Provider,
		ModelName:    cfg.Analyzer.Model,
		OpenAIAPIKey: cfg.Analyzer.OpenAIAPIKey,
		GroqAPIKey:   cfg.Analyzer.GroqAPIKey,
	}
	factory := func(analysis.Config) (pipeline.EntityExtractor, error) {
		return analysis.New(llmConfig, appLogger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// SIGINT requests a graceful stop at the next item boundary
	tracker := pipeline.NewTracker()
	token, ok := tracker.TryStart()
	if !ok {
		appLogger.Fatal("Tracker unexpectedly busy")
	}
	defer tracker.Reset()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		appLogger.Info("Stop signal received, finishing current item")
		token.Stop()
	}()

	acquirer := pipeline.NewAcquirer(articleRepo, appLogger)
	acquireStats, err := acquirer.Run(ctx, tracker, sources, token)
	if err != nil {
		appLogger.WithError(err).Fatal("Acquisition failed")
	}
	appLogger.Infof("Acquisition finished: %d new links, %d articles scraped",
		acquireStats.NewLinksFound, acquireStats.ArticlesScraped)

	if token.Stopped() {
		appLogger.Info("Stopped before analysis")
		return
	}

	extractor := pipeline.NewExtractor(articleRepo, sentimentRepo, usageRepo, factory, appLogger)
	extractStats, err := extractor.Run(ctx, tracker, token, llmConfig)
	if err != nil {
		appLogger.WithError(err).Fatal("Extraction failed")
	}
	appLogger.Infof("Extraction finished: %d entities analyzed", extractStats.EntitiesAnalyzed)
}
