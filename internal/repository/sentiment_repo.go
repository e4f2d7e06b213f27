package repository

import (
	"context"
	"fmt"

	"github.com/omarwh/finsent/internal/domain"
	"gorm.io/gorm"
)

// SentimentRepository handles entity sentiment data operations.
type SentimentRepository struct {
	db *gorm.DB
}

// NewSentimentRepository creates a new SentimentRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *SentimentRepository: repository instance bound to db.
func NewSentimentRepository(db *gorm.DB) *SentimentRepository {
	return &SentimentRepository{db: db}
}

// Create inserts a new sentiment record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - sentiment: sentiment record to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *SentimentRepository) Create(ctx context.Context, sentiment *domain.Sentiment) error {
	return r.db.WithContext(ctx).Create(sentiment).Error
}

// EntityRef identifies a distinct entity found across articles.
type EntityRef struct {
	EntityName string `json:"entity_name"`
	EntityType string `json:"entity_type"`
}

// ListEntities retrieves all distinct entities ordered by name.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - []EntityRef: distinct (name, type) pairs.
//   - error: non-nil if the query fails.
func (r *SentimentRepository) ListEntities(ctx context.Context) ([]EntityRef, error) {
	var entities []EntityRef
	if err := r.db.WithContext(ctx).
		Model(&domain.Sentiment{}).
		Distinct("entity_name", "entity_type").
		Order("entity_name").
		Scan(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

// EntityCount is an entity ranked by how often a sentiment label was assigned.
type EntityCount struct {
	EntityName     string `json:"entity_name"`
	EntityType     string `json:"entity_type"`
	SentimentCount int64  `json:"sentiment_count"`
}

// TopEntities ranks entities by the count of a given sentiment label.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - sentimentType: "financial" or "overall", selecting the column.
//   - sentiment: sentiment label to count.
//   - descending: true for highest counts first.
//   - limit: maximum number of entities to return.
// Returns:
//   - []EntityCount: ranked entities.
//   - error: non-nil if parameters are invalid or the query fails.
func (r *SentimentRepository) TopEntities(ctx context.Context, sentimentType string, sentiment domain.SentimentLabel, descending bool, limit int) ([]EntityCount, error) {
	var column string
	switch sentimentType {
	case "financial":
		column = "financial_sentiment"
	case "overall":
		column = "overall_sentiment"
	default:
		return nil, fmt.Errorf("invalid sentiment type %q", sentimentType)
	}

	direction := "ASC"
	if descending {
		direction = "DESC"
	}

	var rows []EntityCount
	if err := r.db.WithContext(ctx).
		Model(&domain.Sentiment{}).
		Select("entity_name, entity_type, COUNT(*) AS sentiment_count").
		Where(column+" = ?", sentiment).
		Group("entity_name, entity_type").
		Order("sentiment_count " + direction).
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// TimelinePoint is one sentiment observation in publication order.
type TimelinePoint struct {
	PublicationDate    string                `json:"publication_date"`
	FinancialSentiment domain.SentimentLabel `json:"financial_sentiment"`
	OverallSentiment   domain.SentimentLabel `json:"overall_sentiment"`
}

// Timeline retrieves an entity's sentiment observations ordered by
// article publication date. The entity name matches as a substring.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - entityName: entity name fragment to match.
// Returns:
//   - []TimelinePoint: chronological sentiment points.
//   - error: non-nil if the query fails.
func (r *SentimentRepository) Timeline(ctx context.Context, entityName string) ([]TimelinePoint, error) {
	var points []TimelinePoint
	if err := r.db.WithContext(ctx).
		Model(&domain.Sentiment{}).
		Select("articles.publication_date, sentiments.financial_sentiment, sentiments.overall_sentiment").
		Joins("JOIN articles ON articles.id = sentiments.article_id").
		Where("sentiments.entity_name LIKE ?", "%"+entityName+"%").
		Order("articles.publication_date ASC").
		Scan(&points).Error; err != nil {
		return nil, err
	}
	return points, nil
}

// EntityArticle is an article reference with the reasoning that linked it
// to an entity.
type EntityArticle struct {
	Title              string                `json:"title"`
	URL                string                `json:"url"`
	Reasoning          string                `json:"reasoning"`
	FinancialSentiment domain.SentimentLabel `json:"financial_sentiment"`
	OverallSentiment   domain.SentimentLabel `json:"overall_sentiment"`
}

// EntityArticles retrieves articles mentioning an entity of a given type.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - entityName: entity name fragment to match.
//   - entityType: exact entity type.
// Returns:
//   - []EntityArticle: matching article references.
//   - error: non-nil if the query fails.
func (r *SentimentRepository) EntityArticles(ctx context.Context, entityName string, entityType domain.EntityType) ([]EntityArticle, error) {
	var rows []EntityArticle
	if err := r.db.WithContext(ctx).
		Model(&domain.Sentiment{}).
		Select("articles.title, articles.url, sentiments.reasoning, sentiments.financial_sentiment, sentiments.overall_sentiment").
		Joins("JOIN articles ON articles.id = sentiments.article_id").
		Where("sentiments.entity_name LIKE ? AND sentiments.entity_type = ?", "%"+entityName+"%", entityType).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ReasoningRow carries a single reasoning snippet with its labels.
type ReasoningRow struct {
	Reasoning          string                `json:"reasoning"`
	FinancialSentiment domain.SentimentLabel `json:"financial_sentiment"`
	OverallSentiment   domain.SentimentLabel `json:"overall_sentiment"`
}

// Reasonings retrieves all reasoning snippets recorded for an entity.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - entityName: entity name fragment to match.
// Returns:
//   - []ReasoningRow: reasoning snippets with sentiment labels.
//   - error: non-nil if the query fails.
func (r *SentimentRepository) Reasonings(ctx context.Context, entityName string) ([]ReasoningRow, error) {
	var rows []ReasoningRow
	if err := r.db.WithContext(ctx).
		Model(&domain.Sentiment{}).
		Select("reasoning, financial_sentiment, overall_sentiment").
		Where("entity_name LIKE ?", "%"+entityName+"%").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DashboardStats aggregates headline numbers for the dashboard view.
type DashboardStats struct {
	TotalEntities         int64            `json:"total_entities"`
	ArticlesAnalyzed      int64            `json:"articles_analyzed"`
	TotalSentimentPoints  int64            `json:"total_sentiment_points"`
	SentimentDistribution map[string]int64 `json:"sentiment_distribution"`
}

// Stats computes dashboard aggregates across all sentiment rows. The
// distribution counts both sentiment columns, so each row contributes
// two observations.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - *DashboardStats: aggregate counts and label distribution.
//   - error: non-nil if any query fails.
func (r *SentimentRepository) Stats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{
		SentimentDistribution: map[string]int64{"positive": 0, "negative": 0, "neutral": 0},
	}

	if err := r.db.WithContext(ctx).
		Model(&domain.Sentiment{}).
		Distinct("entity_name").
		Count(&stats.TotalEntities).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Model(&domain.Sentiment{}).
		Distinct("article_id").
		Count(&stats.ArticlesAnalyzed).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Model(&domain.Sentiment{}).
		Count(&stats.TotalSentimentPoints).Error; err != nil {
		return nil, err
	}

	type distRow struct {
		Sentiment string
		Count     int64
	}
	var dist []distRow
	if err := r.db.WithContext(ctx).
		Raw(`SELECT sentiment, COUNT(*) AS count FROM (
			SELECT financial_sentiment AS sentiment FROM sentiments
			UNION ALL
			SELECT overall_sentiment AS sentiment FROM sentiments
		) labels GROUP BY sentiment`).
		Scan(&dist).Error; err != nil {
		return nil, err
	}
	for _, row := range dist {
		if _, ok := stats.SentimentDistribution[row.Sentiment]; ok {
			stats.SentimentDistribution[row.Sentiment] = row.Count
		}
	}
	return stats, nil
}

// ArticleFilter narrows the article listing endpoint.
type ArticleFilter struct {
	EntityName         string
	EntityType         string
	FinancialSentiment string
	OverallSentiment   string
	Limit              int
}

// ArticleWithSentiments is an article together with every sentiment
// extracted from it.
type ArticleWithSentiments struct {
	ID              int64             `json:"id"`
	Title           string            `json:"title"`
	URL             string            `json:"url"`
	Author          string            `json:"author"`
	PublicationDate string            `json:"publication_date"`
	Sentiments      []SentimentDetail `json:"sentiments"`
}

// SentimentDetail is one entity observation attached to an article.
type SentimentDetail struct {
	EntityName         string                `json:"entity_name"`
	EntityType         domain.EntityType     `json:"entity_type"`
	FinancialSentiment domain.SentimentLabel `json:"financial_sentiment"`
	OverallSentiment   domain.SentimentLabel `json:"overall_sentiment"`
	Reasoning          string                `json:"reasoning"`
}

// ArticlesWithSentiments retrieves articles with their sentiments, filtered
// by entity attributes. Filters select articles that have at least one
// matching sentiment; all sentiments of a selected article are returned.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - filter: optional entity filters and result limit.
// Returns:
//   - []ArticleWithSentiments: grouped rows, newest publication first.
//   - error: non-nil if the query fails.
func (r *SentimentRepository) ArticlesWithSentiments(ctx context.Context, filter ArticleFilter) ([]ArticleWithSentiments, error) {
	type flatRow struct {
		ArticleID          int64
		Title              string
		URL                string
		Author             string
		PublicationDate    string
		SentimentID        *int64
		EntityName         string
		EntityType         domain.EntityType
		FinancialSentiment domain.SentimentLabel
		OverallSentiment   domain.SentimentLabel
		Reasoning          string
	}

	query := r.db.WithContext(ctx).
		Model(&domain.Article{}).
		Select(`articles.id AS article_id, articles.title, articles.url, articles.author,
			articles.publication_date, sentiments.id AS sentiment_id, sentiments.entity_name,
			sentiments.entity_type, sentiments.financial_sentiment, sentiments.overall_sentiment,
			sentiments.reasoning`).
		Joins("LEFT JOIN sentiments ON sentiments.article_id = articles.id")

	sub := r.db.Model(&domain.Sentiment{}).Distinct("article_id")
	filtered := false
	if filter.EntityName != "" {
		sub = sub.Where("entity_name LIKE ?", "%"+filter.EntityName+"%")
		filtered = true
	}
	if filter.EntityType != "" {
		sub = sub.Where("entity_type = ?", filter.EntityType)
		filtered = true
	}
	if filter.FinancialSentiment != "" {
		sub = sub.Where("financial_sentiment = ?", filter.FinancialSentiment)
		filtered = true
	}
	if filter.OverallSentiment != "" {
		sub = sub.Where("overall_sentiment = ?", filter.OverallSentiment)
		filtered = true
	}
	if filtered {
		query = query.Where("articles.id IN (?)", sub)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	var rows []flatRow
	if err := query.
		Order("articles.publication_date DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	// Group flat join rows by article, preserving query order.
	var out []ArticleWithSentiments
	index := make(map[int64]int)
	for _, row := range rows {
		i, ok := index[row.ArticleID]
		if !ok {
			out = append(out, ArticleWithSentiments{
				ID:              row.ArticleID,
				Title:           row.Title,
				URL:             row.URL,
				Author:          row.Author,
				PublicationDate: row.PublicationDate,
				Sentiments:      []SentimentDetail{},
			})
			i = len(out) - 1
			index[row.ArticleID] = i
		}
		if row.SentimentID != nil {
			out[i].Sentiments = append(out[i].Sentiments, SentimentDetail{
				EntityName:         row.EntityName,
				EntityType:         row.EntityType,
				FinancialSentiment: row.FinancialSentiment,
				OverallSentiment:   row.OverallSentiment,
				Reasoning:          row.Reasoning,
			})
		}
	}
	if out == nil {
		out = []ArticleWithSentiments{}
	}
	return out, nil
}
