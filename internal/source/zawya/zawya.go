package zawya

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/omarwh/finsent/internal/domain"
	"github.com/omarwh/finsent/internal/source"
)

const (
	SourceName = "zawya.com"
	baseURL    = "https://www.zawya.com"
	listURL    = baseURL + "/en/business"
)

// Adapter scrapes the Zawya business section.
type Adapter struct {
	client *resty.Client
}

// New creates a Zawya adapter.
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

// ListArticleURLs scrapes teaser cards on the business listing page.
func (a *Adapter) ListArticleURLs(ctx context.Context) ([]string, error) {
	doc, err := a.fetchDocument(ctx, listURL)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	doc.Find("div.teaser").Each(func(_ int, teaser *goquery.Selection) {
		link := teaser.Find("h2.teaser-title a, h3.teaser-title a").First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return
		}
		if !strings.HasPrefix(href, "http") {
			href = baseURL + href
		}
		seen[href] = struct{}{}
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

	title := strings.TrimSpace(doc.Find("h1.article-title").First().Text())
	if title == "" {
		title = "N/A"
	}

	date := strings.TrimSpace(doc.Find("div.article-date span").First().Text())
	if date == "" {
		date = "N/A"
	}

	author := strings.TrimSpace(doc.Find("span.author-name-text").First().Text())
	if author == "" {
		author = "N/A"
	}

	rawText := "N/A"
	cleanedText := "N/A"
	body := doc.Find("div.article-body").First()
	if body.Length() > 0 {
		rawText = joinText(body)
		var paragraphs []string
		body.Find("p").Each(func(_ int, p *goquery.Selection) {
			paragraphs = append(paragraphs, strings.TrimSpace(p.Text()))
		})
		cleanedText = strings.Join(paragraphs, "\n")
	}

	return &domain.ArticleContent{
		URL:             url,
		Title:           title,
		Author:          author,
		PublicationDate: date,
		RawText:         rawText,
		CleanedText:     cleanedText,
	}, nil
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

// joinText flattens the element's text nodes into newline-separated lines.
func joinText(sel *goquery.Selection) string {
	var lines []string
	for _, line := range strings.Split(sel.Text(), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return strings.Join(lines, "\n")
}
