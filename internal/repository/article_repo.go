package repository

import (
	"context"

	"github.com/omarwh/finsent/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ArticleRepository handles link and article data operations.
type ArticleRepository struct {
	db *gorm.DB
}

// NewArticleRepository creates a new ArticleRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ArticleRepository: repository instance bound to db.
func NewArticleRepository(db *gorm.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// InsertLinkIfAbsent inserts a link unless its URL is already stored.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - link: link record to persist.
// Returns:
//   - bool: true if a new row was inserted, false if the URL already existed.
//   - error: non-nil if the insert fails.
func (r *ArticleRepository) InsertLinkIfAbsent(ctx context.Context, link *domain.Link) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "url"}},
		DoNothing: true,
	}).Create(link)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListUnfetchedLinks retrieves links that have no article row yet.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - []domain.Link: links awaiting content download.
//   - error: non-nil if the query fails.
func (r *ArticleRepository) ListUnfetchedLinks(ctx context.Context) ([]domain.Link, error) {
	var links []domain.Link
	if err := r.db.WithContext(ctx).
		Joins("LEFT JOIN articles ON articles.url = links.url").
		Where("articles.id IS NULL").
		Order("links.id").
		Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

// CreateArticle inserts a fetched article unless its URL is already
// stored. Losing an insert race to a concurrent writer is a skip, not
// an error.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - article: article record to persist.
// Returns:
//   - bool: true if a new row was inserted, false if the URL already existed.
//   - error: non-nil if the insert fails.
func (r *ArticleRepository) CreateArticle(ctx context.Context, article *domain.Article) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "url"}},
		DoNothing: true,
	}).Create(article)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListUnanalyzed retrieves articles that have usable text and no analysis yet.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - []domain.Article: articles awaiting entity extraction.
//   - error: non-nil if the query fails.
func (r *ArticleRepository) ListUnanalyzed(ctx context.Context) ([]domain.Article, error) {
	var articles []domain.Article
	if err := r.db.WithContext(ctx).
		Where("is_analyzed = ? AND cleaned_text IS NOT NULL AND cleaned_text <> ''", false).
		Order("id").
		Find(&articles).Error; err != nil {
		return nil, err
	}
	return articles, nil
}

// MarkAnalyzed flags an article as processed by the extraction stage.
// The flag is set even when extraction yielded zero entities, so reruns
// do not revisit the article.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - articleID: article ID to update.
// Returns:
//   - error: non-nil if the update fails.
func (r *ArticleRepository) MarkAnalyzed(ctx context.Context, articleID int64) error {
	return r.db.WithContext(ctx).
		Model(&domain.Article{}).
		Where("id = ?", articleID).
		Update("is_analyzed", true).Error
}

// GetArticleByID retrieves a single article.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: article ID.
// Returns:
//   - *domain.Article: article record if found.
//   - error: non-nil if lookup fails.
func (r *ArticleRepository) GetArticleByID(ctx context.Context, id int64) (*domain.Article, error) {
	var article domain.Article
	if err := r.db.WithContext(ctx).First(&article, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &article, nil
}

// ListArticles retrieves articles with optional source filtering and pagination.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - source: source website to filter by; empty means all.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
// Returns:
//   - []domain.Article: matching article records, newest first.
//   - int64: total number of matching records before pagination.
//   - error: non-nil if the query fails.
func (r *ArticleRepository) ListArticles(ctx context.Context, source string, limit, offset int) ([]domain.Article, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&domain.Article{}).
		Joins("JOIN links ON links.url = articles.url")
	if source != "" {
		query = query.Where("links.source_website = ?", source)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var articles []domain.Article
	if err := query.
		Order("articles.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&articles).Error; err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

// CountLinks counts all discovered links.
func (r *ArticleRepository) CountLinks(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Link{}).Count(&count).Error
	return count, err
}

// CountArticles counts all fetched articles.
func (r *ArticleRepository) CountArticles(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Article{}).Count(&count).Error
	return count, err
}

// CountAnalyzedArticles counts articles already processed by extraction.
func (r *ArticleRepository) CountAnalyzedArticles(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Article{}).
		Where("is_analyzed = ?", true).
		Count(&count).Error
	return count, err
}

// CountArticlesBySource counts fetched articles grouped by source website.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - map[string]int64: article counts keyed by source name.
//   - error: non-nil if the query fails.
func (r *ArticleRepository) CountArticlesBySource(ctx context.Context) (map[string]int64, error) {
	type row struct {
		SourceWebsite string
		Count         int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&domain.Article{}).
		Select("links.source_website AS source_website, COUNT(*) AS count").
		Joins("JOIN links ON links.url = articles.url").
		Group("links.source_website").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.SourceWebsite] = r.Count
	}
	return counts, nil
}
