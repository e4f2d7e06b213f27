package domain

// EntityType classifies an extracted entity.
type EntityType string

const (
	EntityTypeCompany EntityType = "company"
	EntityTypeCrypto  EntityType = "crypto"
)

// SentimentLabel is one of the three sentiment classes.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

// Sentiment is one entity-level dual sentiment judgment derived from one
// article. An article may have zero or more sentiments.
type Sentiment struct {
	ID                 int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ArticleID          int64          `gorm:"not null;index" json:"article_id"`
	EntityName         string         `gorm:"type:text;not null;index" json:"entity_name"`
	EntityType         EntityType     `gorm:"type:text;not null" json:"entity_type"`
	FinancialSentiment SentimentLabel `gorm:"type:text;not null" json:"financial_sentiment"`
	OverallSentiment   SentimentLabel `gorm:"type:text;not null" json:"overall_sentiment"`
	Reasoning          string         `gorm:"type:text" json:"reasoning"`
}

// TableName returns the database table name for Sentiment.
func (Sentiment) TableName() string {
	return "sentiments"
}

// ValidEntityType reports whether t is a known entity type.
func ValidEntityType(t EntityType) bool {
	return t == EntityTypeCompany || t == EntityTypeCrypto
}

// ValidSentimentLabel reports whether s is a known sentiment class.
func ValidSentimentLabel(s SentimentLabel) bool {
	return s == SentimentPositive || s == SentimentNegative || s == SentimentNeutral
}
