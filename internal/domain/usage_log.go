package domain

import "time"

// UsageLog records token consumption and estimated cost for one extractor
// call against one article.
type UsageLog struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ArticleID        int64     `gorm:"not null;index" json:"article_id"`
	Provider         string    `gorm:"type:text;not null" json:"provider"`
	TotalTokens      int       `json:"total_tokens"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalCostUSD     float64   `json:"total_cost_usd"`
	Timestamp        time.Time `gorm:"not null" json:"timestamp"`
}

// TableName returns the database table name for UsageLog.
func (UsageLog) TableName() string {
	return "usage_logs"
}
