package domain

// Article is the fetched content of one link. Exactly one article exists per
// link URL, enforced by the unique index; IsAnalyzed flips to true once the
// extraction stage has seen the article, even when no entities were found.
type Article struct {
	ID              int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	LinkID          int64  `gorm:"not null;index" json:"link_id"`
	URL             string `gorm:"type:text;not null;uniqueIndex" json:"url"`
	Title           string `gorm:"type:text" json:"title"`
	Author          string `gorm:"type:text" json:"author"`
	PublicationDate string `gorm:"type:text" json:"publication_date"`
	RawText         string `gorm:"type:text" json:"raw_text,omitempty"`
	CleanedText     string `gorm:"type:text" json:"cleaned_text,omitempty"`
	IsAnalyzed      bool   `gorm:"default:false;index" json:"is_analyzed"`
}

// TableName returns the database table name for Article.
func (Article) TableName() string {
	return "articles"
}

// ArticleContent carries the fields a source adapter extracts from a single
// article page before the row exists.
type ArticleContent struct {
	URL             string
	Title           string
	Author          string
	PublicationDate string
	RawText         string
	CleanedText     string
}
