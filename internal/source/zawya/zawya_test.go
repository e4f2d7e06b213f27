package zawya

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/omarwh/finsent/internal/source"
)

func serveHTML(t *testing.T, status int, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(status)
		w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchArticle(t *testing.T) {
	srv := serveHTML(t, http.StatusOK, `<html><body>
		<h1 class="article-title">Gulf markets rally on oil prices</h1>
		<div class="article-date"><span>May 2, 2024</span></div>
		<span class="author-name-text">A. Writer</span>
		<div class="article-body">
			<p>Oil prices rose sharply.</p>
			<p>Regional indices followed.</p>
		</div>
	</body></html>`)

	a := New(5*time.Second, "test-agent")
	got, err := a.FetchArticle(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchArticle failed: %v", err)
	}

	if got.URL != srv.URL {
		t.Errorf("URL = %q, want %q", got.URL, srv.URL)
	}
	if got.Title != "Gulf markets rally on oil prices" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.PublicationDate != "May 2, 2024" {
		t.Errorf("PublicationDate = %q", got.PublicationDate)
	}
	if got.Author != "A. Writer" {
		t.Errorf("Author = %q", got.Author)
	}
	if got.CleanedText != "Oil prices rose sharply.\nRegional indices followed." {
		t.Errorf("CleanedText = %q", got.CleanedText)
	}
}

func TestFetchArticleMissingFields(t *testing.T) {
	srv := serveHTML(t, http.StatusOK, "<html><body><p>bare page</p></body></html>")

	a := New(5*time.Second, "test-agent")
	got, err := a.FetchArticle(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchArticle failed: %v", err)
	}

	for name, field := range map[string]string{
		"Title":           got.Title,
		"Author":          got.Author,
		"PublicationDate": got.PublicationDate,
		"RawText":         got.RawText,
		"CleanedText":     got.CleanedText,
	} {
		if field != "N/A" {
			t.Errorf("%s = %q, want N/A placeholder", name, field)
		}
	}
}

func TestFetchArticleHTTPError(t *testing.T) {
	srv := serveHTML(t, http.StatusNotFound, "not found")

	a := New(5*time.Second, "test-agent")
	_, err := a.FetchArticle(context.Background(), srv.URL)
	if !errors.Is(err, source.ErrUnavailable) {
		t.Errorf("error = %v, want source.ErrUnavailable", err)
	}
}

func TestAdapterName(t *testing.T) {
	if got := New(time.Second, "ua").Name(); got != "zawya.com" {
		t.Errorf("Name() = %q, want zawya.com", got)
	}
}
