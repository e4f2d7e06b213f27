package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/omarwh/finsent/internal/analysis"
	"github.com/omarwh/finsent/internal/domain"
	"github.com/omarwh/finsent/internal/logger"
	"github.com/omarwh/finsent/internal/repository"
)

// SentimentStore is the slice of the sentiment repository the query
// handler needs.
type SentimentStore interface {
	ListEntities(ctx context.Context) ([]repository.EntityRef, error)
	TopEntities(ctx context.Context, sentimentType string, sentiment domain.SentimentLabel, descending bool, limit int) ([]repository.EntityCount, error)
	Timeline(ctx context.Context, entityName string) ([]repository.TimelinePoint, error)
	EntityArticles(ctx context.Context, entityName string, entityType domain.EntityType) ([]repository.EntityArticle, error)
	Reasonings(ctx context.Context, entityName string) ([]repository.ReasoningRow, error)
	Stats(ctx context.Context) (*repository.DashboardStats, error)
	ArticlesWithSentiments(ctx context.Context, filter repository.ArticleFilter) ([]repository.ArticleWithSentiments, error)
}

// ArticleStore exposes acquisition counters for the stats endpoint.
type ArticleStore interface {
	CountLinks(ctx context.Context) (int64, error)
	CountArticles(ctx context.Context) (int64, error)
	CountAnalyzedArticles(ctx context.Context) (int64, error)
	CountArticlesBySource(ctx context.Context) (map[string]int64, error)
}

// UsageStore is the slice of the usage repository the query handler needs.
type UsageStore interface {
	List(ctx context.Context) ([]domain.UsageLog, error)
	SummarizeByProvider(ctx context.Context) ([]repository.ProviderSummary, error)
}

// EntitySummarizer generates structured entity summaries. A nil
// summarizer means the feature is unavailable.
type EntitySummarizer interface {
	Summarize(ctx context.Context, entityName, reasoningList string) (*analysis.EntitySummary, error)
}

// QueryHandler serves the read-side endpoints over analyzed data.
type QueryHandler struct {
	sentiments SentimentStore
	articles   ArticleStore
	usage      UsageStore
	summarizer EntitySummarizer
	logger     *logger.Logger
}

// NewQueryHandler creates a new query handler.
// Parameters:
//   - sentiments: sentiment store.
//   - articles: article store.
//   - usage: usage store.
//   - summarizer: entity summarizer, nil when unavailable.
//   - log: logger instance.
// Returns:
//   - *QueryHandler: initialized handler.
func NewQueryHandler(sentiments SentimentStore, articles ArticleStore, usage UsageStore, summarizer EntitySummarizer, log *logger.Logger) *QueryHandler {
	return &QueryHandler{
		sentiments: sentiments,
		articles:   articles,
		usage:      usage,
		summarizer: summarizer,
		logger:     log,
	}
}

// GetArticles returns articles with their sentiments, filtered by
// entity attributes.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *QueryHandler) GetArticles(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	filter := repository.ArticleFilter{
		EntityName:         c.Query("entity_name"),
		EntityType:         c.Query("entity_type"),
		FinancialSentiment: c.Query("financial_sentiment"),
		OverallSentiment:   c.Query("overall_sentiment"),
		Limit:              limit,
	}

	articles, err := h.sentiments.ArticlesWithSentiments(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, articles)
}

// GetEntities returns all distinct entities.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *QueryHandler) GetEntities(c *gin.Context) {
	entities, err := h.sentiments.ListEntities(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if entities == nil {
		entities = []repository.EntityRef{}
	}
	c.JSON(http.StatusOK, entities)
}

// GetTopEntities returns entities ranked by sentiment label count.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *QueryHandler) GetTopEntities(c *gin.Context) {
	sentimentType := c.DefaultQuery("sentiment_type", "overall")
	sentiment := c.DefaultQuery("sentiment", "positive")
	order := c.DefaultQuery("order", "desc")
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	orderUpper := strings.ToUpper(order)
	if (sentimentType != "financial" && sentimentType != "overall") ||
		!domain.ValidSentimentLabel(domain.SentimentLabel(sentiment)) ||
		(orderUpper != "ASC" && orderUpper != "DESC") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters."})
		return
	}

	rows, err := h.sentiments.TopEntities(c.Request.Context(), sentimentType, domain.SentimentLabel(sentiment), orderUpper == "DESC", limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rows == nil {
		rows = []repository.EntityCount{}
	}
	c.JSON(http.StatusOK, rows)
}

// GetTimeline returns an entity's sentiment scores over time, formatted
// for graphing. Labels map to scores: positive 1, negative -1, neutral 0.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *QueryHandler) GetTimeline(c *gin.Context) {
	entityName := c.Query("entity_name")
	if entityName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "An 'entity_name' query parameter is required."})
		return
	}

	points, err := h.sentiments.Timeline(c.Request.Context(), entityName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(points) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("No sentiment data found for entity: %s", entityName)})
		return
	}

	financialTrend := make([][]interface{}, 0, len(points))
	overallTrend := make([][]interface{}, 0, len(points))
	for _, p := range points {
		financialTrend = append(financialTrend, []interface{}{p.PublicationDate, sentimentScore(p.FinancialSentiment)})
		overallTrend = append(overallTrend, []interface{}{p.PublicationDate, sentimentScore(p.OverallSentiment)})
	}

	c.JSON(http.StatusOK, gin.H{
		"entity_name":               entityName,
		"financial_sentiment_trend": financialTrend,
		"overall_sentiment_trend":   overallTrend,
	})
}

func sentimentScore(label domain.SentimentLabel) int {
	switch label {
	case domain.SentimentPositive:
		return 1
	case domain.SentimentNegative:
		return -1
	default:
		return 0
	}
}

// GetEntityArticles returns an entity's articles grouped into six
// sentiment buckets.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *QueryHandler) GetEntityArticles(c *gin.Context) {
	entityName := c.Query("entity_name")
	entityType := c.Query("entity_type")
	if entityName == "" || entityType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Both 'entity_name' and 'entity_type' query parameters are required."})
		return
	}

	rows, err := h.sentiments.EntityArticles(c.Request.Context(), entityName, domain.EntityType(entityType))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("No articles found for entity '%s' of type '%s'", entityName, entityType)})
		return
	}

	type articleInfo struct {
		Title     string `json:"title"`
		URL       string `json:"url"`
		Reasoning string `json:"reasoning"`
	}
	buckets := map[string][]articleInfo{
		"positive_financial": {}, "negative_financial": {}, "neutral_financial": {},
		"positive_overall": {}, "negative_overall": {}, "neutral_overall": {},
	}
	seen := map[string]map[articleInfo]struct{}{}
	add := func(bucket string, info articleInfo) {
		if seen[bucket] == nil {
			seen[bucket] = map[articleInfo]struct{}{}
		}
		if _, dup := seen[bucket][info]; dup {
			return
		}
		seen[bucket][info] = struct{}{}
		buckets[bucket] = append(buckets[bucket], info)
	}

	for _, row := range rows {
		info := articleInfo{Title: row.Title, URL: row.URL, Reasoning: row.Reasoning}
		switch row.FinancialSentiment {
		case domain.SentimentPositive:
			add("positive_financial", info)
		case domain.SentimentNegative:
			add("negative_financial", info)
		default:
			add("neutral_financial", info)
		}
		switch row.OverallSentiment {
		case domain.SentimentPositive:
			add("positive_overall", info)
		case domain.SentimentNegative:
			add("negative_overall", info)
		default:
			add("neutral_overall", info)
		}
	}

	c.JSON(http.StatusOK, buckets)
}

// SummarizeEntity generates an AI summary of an entity's sentiment profile.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *QueryHandler) SummarizeEntity(c *gin.Context) {
	entityName := c.Query("entity_name")
	if entityName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "An 'entity_name' query parameter is required."})
		return
	}

	rows, err := h.sentiments.Reasonings(c.Request.Context(), entityName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("No sentiment data found for entity: %s", entityName)})
		return
	}
	if h.summarizer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Summarization agent is not available."})
		return
	}

	var sb strings.Builder
	for i, row := range rows {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "- (Financial: %s, Overall: %s) %s", row.FinancialSentiment, row.OverallSentiment, row.Reasoning)
	}

	summary, err := h.summarizer.Summarize(c.Request.Context(), entityName, sb.String())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate a valid summary after multiple attempts.", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetStats returns dashboard aggregates across the whole dataset.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *QueryHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	stats, err := h.sentiments.Stats(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	totalLinks, err := h.articles.CountLinks(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	totalArticles, err := h.articles.CountArticles(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	analyzedArticles, err := h.articles.CountAnalyzedArticles(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	bySource, err := h.articles.CountArticlesBySource(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_entities":         stats.TotalEntities,
		"articles_analyzed":      stats.ArticlesAnalyzed,
		"total_sentiment_points": stats.TotalSentimentPoints,
		"sentiment_distribution": stats.SentimentDistribution,
		"total_links":            totalLinks,
		"total_articles":         totalArticles,
		"articles_processed":     analyzedArticles,
		"articles_by_source":     bySource,
	})
}

// GetUsage returns LLM usage logs, optionally grouped by provider.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *QueryHandler) GetUsage(c *gin.Context) {
	if strings.EqualFold(c.Query("summarize"), "true") {
		rows, err := h.usage.SummarizeByProvider(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if rows == nil {
			rows = []repository.ProviderSummary{}
		}
		c.JSON(http.StatusOK, rows)
		return
	}

	entries, err := h.usage.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []domain.UsageLog{}
	}
	c.JSON(http.StatusOK, entries)
}
