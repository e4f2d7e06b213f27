package source

import (
	"context"
	"errors"

	"github.com/omarwh/finsent/internal/domain"
)

// ErrUnavailable indicates the upstream site could not be reached or
// returned a non-success status.
var ErrUnavailable = errors.New("source unavailable")

// Source defines the interface for news website adapters.
type Source interface {
	// Name returns the stable identifier for this source, typically the
	// site's domain name.
	// Parameters: none.
	// Returns:
	//   - string: stable source identifier.
	Name() string

	// ListArticleURLs discovers candidate article URLs from the site's
	// listing pages.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	// Returns:
	//   - []string: unique absolute article URLs.
	//   - error: non-nil if the listing page could not be fetched.
	ListArticleURLs(ctx context.Context) ([]string, error)

	// FetchArticle downloads one article page and extracts its content.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - url: absolute article URL.
	// Returns:
	//   - *domain.ArticleContent: extracted article fields.
	//   - error: non-nil if the page could not be fetched or parsed.
	FetchArticle(ctx context.Context, url string) (*domain.ArticleContent, error)
}
