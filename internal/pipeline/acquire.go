package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/omarwh/finsent/internal/domain"
	"github.com/omarwh/finsent/internal/logger"
	"github.com/omarwh/finsent/internal/repository"
	"github.com/omarwh/finsent/internal/source"
)

// AcquireStats summarizes one acquisition stage invocation.
type AcquireStats struct {
	NewLinksFound   int
	ArticlesScraped int
}

// Acquirer runs the acquisition stage: link discovery followed by
// content download for every link without an article.
type Acquirer struct {
	articles *repository.ArticleRepository
	log      *logger.Logger
}

// NewAcquirer creates an Acquirer.
// Parameters:
//   - articles: link/article store.
//   - log: structured logger.
// Returns:
//   - *Acquirer: configured stage.
func NewAcquirer(articles *repository.ArticleRepository, log *logger.Logger) *Acquirer {
	return &Acquirer{articles: articles, log: log}
}

// Run executes both acquisition phases. A failing source is logged and
// skipped; only storage errors abort the stage. When stop is requested
// the stage returns what it has committed so far.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - tracker: run state to publish progress into.
//   - sources: adapters to discover and fetch from.
//   - stop: cooperative stop token, polled between items.
// Returns:
//   - AcquireStats: links and articles committed in this invocation.
//   - error: non-nil only when the database fails.
func (a *Acquirer) Run(ctx context.Context, tracker *Tracker, sources []source.Source, stop *StopToken) (AcquireStats, error) {
	var stats AcquireStats

	tracker.SetStage("Scraping links", len(sources))
	tracker.SetTask("Fetching article lists from sources.")

	for i, src := range sources {
		if stop.Stopped() {
			a.log.Info("Stop request received, halting link discovery")
			tracker.SetStatus(statusStopping)
			return stats, nil
		}

		name := src.Name()
		log := a.log.WithField(logger.FieldSource, name)
		tracker.SetTask(fmt.Sprintf("Fetching links from %s", name))

		urls, err := src.ListArticleURLs(ctx)
		if err != nil {
			log.WithError(err).Error("Failed to list article URLs")
			tracker.SetProgress(i + 1)
			continue
		}
		if len(urls) == 0 {
			log.Info("No links found")
			tracker.SetProgress(i + 1)
			continue
		}

		for _, u := range urls {
			inserted, err := a.articles.InsertLinkIfAbsent(ctx, &domain.Link{
				URL:           u,
				SourceWebsite: name,
				ScrapedDate:   time.Now().UTC(),
			})
			if err != nil {
				return stats, fmt.Errorf("failed to store link %s: %w", u, err)
			}
			if inserted {
				stats.NewLinksFound++
			}
		}
		log.WithFields(logger.Fields{logger.FieldCount: len(urls)}).
			Info("Collected article links")
		tracker.SetProgress(i + 1)
	}

	a.log.Infof("Finished link discovery, found %d new URLs", stats.NewLinksFound)

	if stop.Stopped() {
		return stats, nil
	}

	links, err := a.articles.ListUnfetchedLinks(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list unfetched links: %w", err)
	}

	tracker.SetStage("Scraping articles", len(links))
	if len(links) == 0 {
		tracker.SetTask("No new articles to scrape.")
		return stats, nil
	}

	bySource := make(map[string]source.Source, len(sources))
	for _, src := range sources {
		bySource[src.Name()] = src
	}

	for i, link := range links {
		if stop.Stopped() {
			a.log.Info("Stop request received, halting article download")
			tracker.SetStatus(statusStopping)
			break
		}

		src, ok := bySource[link.SourceWebsite]
		if !ok {
			// Link discovered by a source not selected for this run.
			tracker.SetProgress(i + 1)
			continue
		}

		content, err := src.FetchArticle(ctx, link.URL)
		if err != nil {
			a.log.WithError(err).
				WithField(logger.FieldSource, link.SourceWebsite).
				Errorf("Failed to fetch article %s", link.URL)
			tracker.SetProgress(i + 1)
			continue
		}

		inserted, err := a.articles.CreateArticle(ctx, &domain.Article{
			LinkID:          link.ID,
			URL:             content.URL,
			Title:           content.Title,
			Author:          content.Author,
			PublicationDate: content.PublicationDate,
			RawText:         content.RawText,
			CleanedText:     content.CleanedText,
		})
		if err != nil {
			return stats, fmt.Errorf("failed to store article %s: %w", content.URL, err)
		}
		if inserted {
			stats.ArticlesScraped++
			tracker.SetTask(fmt.Sprintf("Scraped: %s", content.Title))
		}
		tracker.SetProgress(i + 1)
	}

	a.log.Infof("Finished article download, scraped %d new articles", stats.ArticlesScraped)
	return stats, nil
}
