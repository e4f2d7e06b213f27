package repository

import (
	"context"

	"github.com/omarwh/finsent/internal/domain"
	"gorm.io/gorm"
)

// UsageRepository records LLM token usage and cost per analyzed article.
type UsageRepository struct {
	db *gorm.DB
}

// NewUsageRepository creates a new UsageRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *UsageRepository: repository instance bound to db.
func NewUsageRepository(db *gorm.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// Create inserts a usage log entry.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - entry: usage entry to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *UsageRepository) Create(ctx context.Context, entry *domain.UsageLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// List retrieves all usage entries, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - []domain.UsageLog: usage entries.
//   - error: non-nil if the query fails.
func (r *UsageRepository) List(ctx context.Context) ([]domain.UsageLog, error) {
	var entries []domain.UsageLog
	if err := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ProviderSummary aggregates usage per LLM provider.
type ProviderSummary struct {
	Provider    string  `json:"provider"`
	TotalCalls  int64   `json:"total_calls"`
	TotalTokens int64   `json:"total_tokens"`
	TotalCost   float64 `json:"total_cost"`
}

// SummarizeByProvider aggregates call counts, tokens and cost per provider.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - []ProviderSummary: one row per provider.
//   - error: non-nil if the query fails.
func (r *UsageRepository) SummarizeByProvider(ctx context.Context) ([]ProviderSummary, error) {
	var rows []ProviderSummary
	if err := r.db.WithContext(ctx).
		Model(&domain.UsageLog{}).
		Select("provider, COUNT(*) AS total_calls, SUM(total_tokens) AS total_tokens, SUM(total_cost_usd) AS total_cost").
		Group("provider").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
