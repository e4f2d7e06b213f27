package gulfnews

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/omarwh/finsent/internal/domain"
	"github.com/omarwh/finsent/internal/source"
)

const (
	SourceName = "gulfnews.com"
	baseURL    = "https://gulfnews.com"
	listURL    = baseURL + "/business"
)

// Article URLs end with a numeric story ID, e.g. /business/some-slug-1.1234567.
var articlePattern = regexp.MustCompile(`^/[^/]+/.+-1\.\d+`)

// Adapter scrapes the Gulf News business section.
type Adapter struct {
	client *resty.Client
}

// New creates a Gulf News adapter.
// Parameters:
//   - timeout: per-request HTTP timeout.
//   - userAgent: User-Agent header sent with every request.
// Returns:
//   - *Adapter: configured adapter.
func New(timeout time.Duration, userAgent string) *Adapter {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", userAgent)
	return &Adapter{client: client}
}

// Name returns the source identifier.
func (a *Adapter) Name() string {
	return SourceName
}

// ListArticleURLs scrapes the business section page for article links.
func (a *Adapter) ListArticleURLs(ctx context.Context) ([]string, error) {
	doc, err := a.fetchDocument(ctx, listURL)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if articlePattern.MatchString(href) && strings.HasPrefix(href, "/") {
			seen[baseURL+href] = struct{}{}
		}
	})

	urls := make([]string, 0, len(seen))
	for u := range seen {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls, nil
}

// FetchArticle downloads and parses a single article page.
func (a *Adapter) FetchArticle(ctx context.Context, url string) (*domain.ArticleContent, error) {
	doc, err := a.fetchDocument(ctx, url)
	if err != nil {
		return nil, err
	}
	return parseArticle(doc, url), nil
}

func (a *Adapter) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	resp, err := a.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", source.ErrUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: %s returned status %d", source.ErrUnavailable, url, resp.StatusCode())
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", url, err)
	}
	return doc, nil
}

func parseArticle(doc *goquery.Document, requestURL string) *domain.ArticleContent {
	articleURL := requestURL
	if canonical, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok && canonical != "" {
		articleURL = canonical
	}

	title := strings.TrimSpace(doc.Find("h1.ORiM7").First().Text())
	if title == "" {
		title = "Title not found"
	}

	publicationDate := extractPublishedDate(doc)

	author := strings.TrimSpace(doc.Find("div._48or4 > a").First().Text())
	if author == "" {
		author = "Author not found"
	}

	var paragraphs []string
	doc.Find("div.Iqx1L p").Each(func(_ int, s *goquery.Selection) {
		paragraphs = append(paragraphs, strings.TrimSpace(s.Text()))
	})
	rawText := strings.Join(paragraphs, " ")
	cleanedText := strings.Join(strings.Fields(rawText), " ")

	return &domain.ArticleContent{
		URL:             articleURL,
		Title:           title,
		Author:          author,
		PublicationDate: publicationDate,
		RawText:         rawText,
		CleanedText:     cleanedText,
	}
}

// extractPublishedDate reads datePublished from the page's ld+json
// metadata, falling back to the first <time> element.
func extractPublishedDate(doc *goquery.Document) string {
	date := ""
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var payload struct {
			Type          string `json:"@type"`
			DatePublished string `json:"datePublished"`
		}
		if err := json.Unmarshal([]byte(s.Text()), &payload); err != nil {
			return true
		}
		if (payload.Type == "Article" || payload.Type == "NewsArticle") && payload.DatePublished != "" {
			date = payload.DatePublished
			return false
		}
		return true
	})
	if date != "" {
		return date
	}

	timeTag := doc.Find("time").First()
	if dt, ok := timeTag.Attr("datetime"); ok && dt != "" {
		return dt
	}
	if text := strings.TrimSpace(timeTag.Text()); text != "" {
		return text
	}
	return "Date not found"
}
