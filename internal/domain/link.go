package domain

import "time"

// Link is a discovered article URL waiting to be fetched. The url column is
// unique so repeated discovery of the same reference is a no-op.
type Link struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	URL           string    `gorm:"type:text;not null;uniqueIndex" json:"url"`
	SourceWebsite string    `gorm:"type:text;not null;index" json:"source_website"`
	ScrapedDate   time.Time `gorm:"not null" json:"scraped_date"`
}

// TableName returns the database table name for Link.
func (Link) TableName() string {
	return "links"
}
