package menabytes

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
	SourceName = "menabytes.com"
	baseURL    = "https://www.menabytes.com"
)

// Adapter scrapes the MENAbytes front page.
type Adapter struct {
	client  *resty.Client
	listURL string
}

// New creates a MENAbytes adapter.
// Parameters:
//   - timeout: per-request HTTP timeout.
//   - userAgent: User-Agent header sent with every request.
// Returns:
//   - *Adapter: configured adapter.
func New(timeout time.Duration, userAgent string) *Adapter {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", userAgent)
	return &Adapter{client: client, listURL: baseURL}
}

// Name returns the source identifier.
func (a *Adapter) Name() string {
	return SourceName
}

// ListArticleURLs scrapes the infinite-scroll post list on the front page.
// Hrefs on this site are already absolute.
func (a *Adapter) ListArticleURLs(ctx context.Context) ([]string, error) {
	doc, err := a.fetchDocument(ctx, a.listURL)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	doc.Find("li.infinite-post").Each(func(_ int, item *goquery.Selection) {
		href, ok := item.Find("a").First().Attr("href")
		if ok && href != "" {
			seen[href] = struct{}{}
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

	title := strings.TrimSpace(doc.Find("h1.post-title").First().Text())
	if title == "" {
		title = "N/A"
	}

	date := "N/A"
	if dt, ok := doc.Find(`time[itemprop="datePublished"]`).First().Attr("datetime"); ok && dt != "" {
		date = dt
	}

	author := strings.TrimSpace(doc.Find("span.author-name").First().Text())
	if author == "" {
		author = "N/A"
	}

	rawText := ""
	cleanedText := ""
	content := doc.Find("div#content-main").First()
	if content.Length() > 0 {
		rawText = flattenText(content)
		var paragraphs []string
		content.Find("p").Each(func(_ int, p *goquery.Selection) {
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

func flattenText(sel *goquery.Selection) string {
	var lines []string
	for _, line := range strings.Split(sel.Text(), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return strings.Join(lines, "\n")
}
