package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/omarwh/finsent/internal/analysis"
	"github.com/omarwh/finsent/internal/domain"
	"github.com/omarwh/finsent/internal/logger"
	"github.com/omarwh/finsent/internal/repository"
)

// ExtractStats summarizes one extraction stage invocation.
type ExtractStats struct {
	EntitiesAnalyzed int
}

// EntityExtractor is the slice of the analyzer the extraction stage
// needs. Satisfied by *analysis.Analyzer.
type EntityExtractor interface {
	Analyze(ctx context.Context, text string) ([]analysis.EntitySentiment, *analysis.Usage, error)
	Provider() string
}

// ExtractorFactory builds an extractor from per-run configuration.
// Construction fails fast on bad credentials, before any article is
// touched.
type ExtractorFactory func(cfg analysis.Config) (EntityExtractor, error)

// Extractor runs the extraction stage: LLM entity and sentiment
// analysis over every unanalyzed article.
type Extractor struct {
	articles   *repository.ArticleRepository
	sentiments *repository.SentimentRepository
	usage      *repository.UsageRepository
	factory    ExtractorFactory
	log        *logger.Logger
}

// NewExtractor creates an Extractor.
// Parameters:
//   - articles: article store.
//   - sentiments: sentiment store.
//   - usage: usage log store.
//   - factory: builds the per-run LLM extractor.
//   - log: structured logger.
// Returns:
//   - *Extractor: configured stage.
func NewExtractor(
	articles *repository.ArticleRepository,
	sentiments *repository.SentimentRepository,
	usage *repository.UsageRepository,
	factory ExtractorFactory,
	log *logger.Logger,
) *Extractor {
	return &Extractor{
		articles:   articles,
		sentiments: sentiments,
		usage:      usage,
		factory:    factory,
		log:        log,
	}
}

// Run analyzes all pending articles. A failed extractor construction
// ends the stage with zero work done but does not fail the run. A
// per-article error leaves the article unmarked so a later run retries
// it. Articles with zero extracted entities are still marked analyzed.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - tracker: run state to publish progress into.
//   - stop: cooperative stop token, polled between articles.
//   - cfg: LLM configuration for this run.
// Returns:
//   - ExtractStats: sentiment rows committed in this invocation.
//   - error: non-nil only when listing pending articles fails.
func (e *Extractor) Run(ctx context.Context, tracker *Tracker, stop *StopToken, cfg analysis.Config) (ExtractStats, error) {
	var stats ExtractStats

	extractor, err := e.factory(cfg)
	if err != nil {
		e.log.WithError(err).Error("Failed to initialize entity extractor")
		tracker.SetStatus(fmt.Sprintf("Error: %v", err))
		return stats, nil
	}

	articles, err := e.articles.ListUnanalyzed(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list unanalyzed articles: %w", err)
	}

	tracker.SetStage("Analyzing sentiment", len(articles))
	if len(articles) == 0 {
		tracker.SetTask("No new articles to analyze.")
		return stats, nil
	}

	var sessionCost float64
	for i, article := range articles {
		if stop.Stopped() {
			e.log.Info("Stop request received, halting analysis")
			tracker.SetStatus(statusStopping)
			break
		}

		tracker.SetTask(fmt.Sprintf("Analyzing article ID: %d", article.ID))
		log := e.log.WithField(logger.FieldArticleID, article.ID)

		entities, usage, err := extractor.Analyze(ctx, article.CleanedText)
		if err != nil {
			log.WithError(err).Error("Failed to analyze article")
			tracker.SetProgress(i + 1)
			continue
		}

		if usage != nil {
			if err := e.usage.Create(ctx, &domain.UsageLog{
				ArticleID:        article.ID,
				Provider:         extractor.Provider(),
				TotalTokens:      usage.TotalTokens,
				PromptTokens:     usage.PromptTokens,
				CompletionTokens: usage.CompletionTokens,
				TotalCostUSD:     usage.TotalCostUSD,
				Timestamp:        time.Now().UTC(),
			}); err != nil {
				log.WithError(err).Error("Failed to record usage")
			}
			sessionCost += usage.TotalCostUSD
		}

		persistFailed := false
		for _, entity := range entities {
			if err := e.sentiments.Create(ctx, &domain.Sentiment{
				ArticleID:          article.ID,
				EntityName:         entity.EntityName,
				EntityType:         entity.EntityType,
				FinancialSentiment: entity.FinancialSentiment,
				OverallSentiment:   entity.OverallSentiment,
				Reasoning:          entity.Reasoning,
			}); err != nil {
				log.WithError(err).Errorf("Failed to store sentiment for %q", entity.EntityName)
				persistFailed = true
				break
			}
			stats.EntitiesAnalyzed++
		}
		if persistFailed {
			// Leave the article retryable rather than recording a
			// partial result as done.
			tracker.SetProgress(i + 1)
			continue
		}

		if err := e.articles.MarkAnalyzed(ctx, article.ID); err != nil {
			log.WithError(err).Error("Failed to mark article analyzed")
		}
		tracker.SetProgress(i + 1)
	}

	e.log.WithFields(logger.Fields{
		logger.FieldCount:   stats.EntitiesAnalyzed,
		logger.FieldCostUSD: sessionCost,
	}).Info("Finished sentiment analysis")
	return stats, nil
}
