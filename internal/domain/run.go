package domain

import "time"

// Run status values. StatusFailed entries carry the error description
// appended after the prefix, e.g. "Failed: connection refused".
const (
	RunStatusCompleted    = "Completed"
	RunStatusStopped      = "Stopped by user"
	RunStatusFailedPrefix = "Failed: "
)

// PipelineRun is the append-only summary of one orchestration run. Rows are
// never mutated after creation.
type PipelineRun struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RunTimestamp     time.Time `gorm:"not null;index" json:"run_timestamp"`
	NewLinksFound    int       `json:"new_links_found"`
	ArticlesScraped  int       `json:"articles_scraped"`
	EntitiesAnalyzed int       `json:"entities_analyzed"`
	Status           string    `gorm:"type:text;not null" json:"status"`
}

// TableName returns the database table name for PipelineRun.
func (PipelineRun) TableName() string {
	return "pipeline_runs"
}
