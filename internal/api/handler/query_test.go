package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/omarwh/finsent/internal/analysis"
	"github.com/omarwh/finsent/internal/domain"
	"github.com/omarwh/finsent/internal/logger"
	"github.com/omarwh/finsent/internal/repository"
)

type fakeSentimentStore struct {
	entities   []repository.EntityRef
	top        []repository.EntityCount
	gotType    string
	gotLabel   domain.SentimentLabel
	gotDesc    bool
	gotLimit   int
	timeline   []repository.TimelinePoint
	articles   []repository.EntityArticle
	reasonings []repository.ReasoningRow
	stats      *repository.DashboardStats
	filtered   []repository.ArticleWithSentiments
	gotFilter  repository.ArticleFilter
}

func (f *fakeSentimentStore) ListEntities(ctx context.Context) ([]repository.EntityRef, error) {
	return f.entities, nil
}

func (f *fakeSentimentStore) TopEntities(ctx context.Context, sentimentType string, sentiment domain.SentimentLabel, descending bool, limit int) ([]repository.EntityCount, error) {
	f.gotType = sentimentType
	f.gotLabel = sentiment
	f.gotDesc = descending
	f.gotLimit = limit
	return f.top, nil
}

func (f *fakeSentimentStore) Timeline(ctx context.Context, entityName string) ([]repository.TimelinePoint, error) {
	return f.timeline, nil
}

func (f *fakeSentimentStore) EntityArticles(ctx context.Context, entityName string, entityType domain.EntityType) ([]repository.EntityArticle, error) {
	return f.articles, nil
}

func (f *fakeSentimentStore) Reasonings(ctx context.Context, entityName string) ([]repository.ReasoningRow, error) {
	return f.reasonings, nil
}

func (f *fakeSentimentStore) Stats(ctx context.Context) (*repository.DashboardStats, error) {
	return f.stats, nil
}

func (f *fakeSentimentStore) ArticlesWithSentiments(ctx context.Context, filter repository.ArticleFilter) ([]repository.ArticleWithSentiments, error) {
	f.gotFilter = filter
	return f.filtered, nil
}

type fakeArticleStore struct {
	links, articles, analyzed int64
	bySource                  map[string]int64
}

func (f *fakeArticleStore) CountLinks(ctx context.Context) (int64, error)    { return f.links, nil }
func (f *fakeArticleStore) CountArticles(ctx context.Context) (int64, error) { return f.articles, nil }
func (f *fakeArticleStore) CountAnalyzedArticles(ctx context.Context) (int64, error) {
	return f.analyzed, nil
}
func (f *fakeArticleStore) CountArticlesBySource(ctx context.Context) (map[string]int64, error) {
	return f.bySource, nil
}

type fakeUsageStore struct {
	entries   []domain.UsageLog
	summaries []repository.ProviderSummary
}

func (f *fakeUsageStore) List(ctx context.Context) ([]domain.UsageLog, error) {
	return f.entries, nil
}

func (f *fakeUsageStore) SummarizeByProvider(ctx context.Context) ([]repository.ProviderSummary, error) {
	return f.summaries, nil
}

type fakeSummarizer struct {
	summary      *analysis.EntitySummary
	err          error
	gotReasoning string
}

func (f *fakeSummarizer) Summarize(ctx context.Context, entityName, reasoningList string) (*analysis.EntitySummary, error) {
	f.gotReasoning = reasoningList
	return f.summary, f.err
}

func newQueryTest(sentiments *fakeSentimentStore, articles *fakeArticleStore, usage *fakeUsageStore, summarizer EntitySummarizer) *gin.Engine {
	h := NewQueryHandler(sentiments, articles, usage, summarizer, logger.NewDefault())
	r := gin.New()
	r.GET("/articles", h.GetArticles)
	r.GET("/entities", h.GetEntities)
	r.GET("/entities/top", h.GetTopEntities)
	r.GET("/entities/timeline", h.GetTimeline)
	r.GET("/entities/articles", h.GetEntityArticles)
	r.GET("/entities/summary", h.SummarizeEntity)
	r.GET("/stats", h.GetStats)
	r.GET("/usage", h.GetUsage)
	return r
}

func get(t *testing.T, r *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetArticlesAppliesFilter(t *testing.T) {
	store := &fakeSentimentStore{filtered: []repository.ArticleWithSentiments{}}
	r := newQueryTest(store, &fakeArticleStore{}, &fakeUsageStore{}, nil)

	w := get(t, r, "/articles?entity_name=Apple&entity_type=company&financial_sentiment=positive&limit=5")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if store.gotFilter.EntityName != "Apple" || store.gotFilter.EntityType != "company" ||
		store.gotFilter.FinancialSentiment != "positive" || store.gotFilter.Limit != 5 {
		t.Errorf("filter = %+v", store.gotFilter)
	}
}

func TestGetArticlesDefaultLimit(t *testing.T) {
	store := &fakeSentimentStore{}
	r := newQueryTest(store, &fakeArticleStore{}, &fakeUsageStore{}, nil)

	get(t, r, "/articles")
	if store.gotFilter.Limit != 20 {
		t.Errorf("default limit = %d, want 20", store.gotFilter.Limit)
	}

	get(t, r, "/articles?limit=-3")
	if store.gotFilter.Limit != 20 {
		t.Errorf("negative limit should fall back to 20, got %d", store.gotFilter.Limit)
	}
}

func TestGetEntitiesEmptyIsArray(t *testing.T) {
	r := newQueryTest(&fakeSentimentStore{}, &fakeArticleStore{}, &fakeUsageStore{}, nil)

	w := get(t, r, "/entities")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Body.String(); got != "[]" {
		t.Errorf("body = %q, want an empty JSON array", got)
	}
}

func TestGetTopEntitiesDefaults(t *testing.T) {
	store := &fakeSentimentStore{top: []repository.EntityCount{{EntityName: "Apple", SentimentCount: 4}}}
	r := newQueryTest(store, &fakeArticleStore{}, &fakeUsageStore{}, nil)

	w := get(t, r, "/entities/top")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if store.gotType != "overall" || store.gotLabel != domain.SentimentPositive || !store.gotDesc || store.gotLimit != 10 {
		t.Errorf("defaults: type=%q label=%q desc=%v limit=%d", store.gotType, store.gotLabel, store.gotDesc, store.gotLimit)
	}
}

func TestGetTopEntitiesValidation(t *testing.T) {
	r := newQueryTest(&fakeSentimentStore{}, &fakeArticleStore{}, &fakeUsageStore{}, nil)

	for _, path := range []string{
		"/entities/top?sentiment_type=emotional",
		"/entities/top?sentiment=bullish",
		"/entities/top?order=sideways",
	} {
		if w := get(t, r, path); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, w.Code)
		}
	}

	if w := get(t, r, "/entities/top?sentiment_type=financial&sentiment=negative&order=ASC"); w.Code != http.StatusOK {
		t.Errorf("valid params rejected with status %d", w.Code)
	}
}

func TestGetTimeline(t *testing.T) {
	store := &fakeSentimentStore{timeline: []repository.TimelinePoint{
		{PublicationDate: "2024-05-01", FinancialSentiment: domain.SentimentPositive, OverallSentiment: domain.SentimentNegative},
		{PublicationDate: "2024-05-02", FinancialSentiment: domain.SentimentNeutral, OverallSentiment: domain.SentimentNeutral},
	}}
	r := newQueryTest(store, &fakeArticleStore{}, &fakeUsageStore{}, nil)

	w := get(t, r, "/entities/timeline?entity_name=Apple")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var payload struct {
		EntityName string          `json:"entity_name"`
		Financial  [][]interface{} `json:"financial_sentiment_trend"`
		Overall    [][]interface{} `json:"overall_sentiment_trend"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if payload.EntityName != "Apple" {
		t.Errorf("entity_name = %q", payload.EntityName)
	}
	if len(payload.Financial) != 2 || len(payload.Overall) != 2 {
		t.Fatalf("trend lengths = %d/%d, want 2/2", len(payload.Financial), len(payload.Overall))
	}
	if payload.Financial[0][1].(float64) != 1 {
		t.Errorf("positive financial score = %v, want 1", payload.Financial[0][1])
	}
	if payload.Overall[0][1].(float64) != -1 {
		t.Errorf("negative overall score = %v, want -1", payload.Overall[0][1])
	}
	if payload.Financial[1][1].(float64) != 0 {
		t.Errorf("neutral score = %v, want 0", payload.Financial[1][1])
	}
}

func TestGetTimelineValidation(t *testing.T) {
	r := newQueryTest(&fakeSentimentStore{}, &fakeArticleStore{}, &fakeUsageStore{}, nil)

	if w := get(t, r, "/entities/timeline"); w.Code != http.StatusBadRequest {
		t.Errorf("missing entity_name: status = %d, want 400", w.Code)
	}
	if w := get(t, r, "/entities/timeline?entity_name=Unknown"); w.Code != http.StatusNotFound {
		t.Errorf("no data: status = %d, want 404", w.Code)
	}
}

func TestGetEntityArticlesBuckets(t *testing.T) {
	store := &fakeSentimentStore{articles: []repository.EntityArticle{
		{Title: "A", URL: "u1", Reasoning: "r1", FinancialSentiment: domain.SentimentPositive, OverallSentiment: domain.SentimentNeutral},
		{Title: "A", URL: "u1", Reasoning: "r1", FinancialSentiment: domain.SentimentPositive, OverallSentiment: domain.SentimentNeutral},
		{Title: "B", URL: "u2", Reasoning: "r2", FinancialSentiment: domain.SentimentNegative, OverallSentiment: domain.SentimentPositive},
	}}
	r := newQueryTest(store, &fakeArticleStore{}, &fakeUsageStore{}, nil)

	w := get(t, r, "/entities/articles?entity_name=Apple&entity_type=company")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var buckets map[string][]map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &buckets); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(buckets) != 6 {
		t.Errorf("got %d buckets, want 6", len(buckets))
	}
	if len(buckets["positive_financial"]) != 1 {
		t.Errorf("positive_financial = %v, want duplicate rows collapsed to 1", buckets["positive_financial"])
	}
	if len(buckets["negative_financial"]) != 1 || len(buckets["positive_overall"]) != 1 {
		t.Errorf("buckets = %v", buckets)
	}
	if len(buckets["negative_overall"]) != 0 {
		t.Errorf("negative_overall = %v, want empty", buckets["negative_overall"])
	}
}

func TestGetEntityArticlesValidation(t *testing.T) {
	r := newQueryTest(&fakeSentimentStore{}, &fakeArticleStore{}, &fakeUsageStore{}, nil)

	if w := get(t, r, "/entities/articles?entity_name=Apple"); w.Code != http.StatusBadRequest {
		t.Errorf("missing entity_type: status = %d, want 400", w.Code)
	}
	if w := get(t, r, "/entities/articles?entity_name=Apple&entity_type=company"); w.Code != http.StatusNotFound {
		t.Errorf("no rows: status = %d, want 404", w.Code)
	}
}

func TestSummarizeEntity(t *testing.T) {
	store := &fakeSentimentStore{reasonings: []repository.ReasoningRow{
		{Reasoning: "earnings up", FinancialSentiment: domain.SentimentPositive, OverallSentiment: domain.SentimentNeutral},
		{Reasoning: "new product", FinancialSentiment: domain.SentimentNeutral, OverallSentiment: domain.SentimentPositive},
	}}
	summarizer := &fakeSummarizer{summary: &analysis.EntitySummary{FinalSummary: "Looking good."}}
	r := newQueryTest(store, &fakeArticleStore{}, &fakeUsageStore{}, summarizer)

	w := get(t, r, "/entities/summary?entity_name=Apple")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	want := "- (Financial: positive, Overall: neutral) earnings up\n- (Financial: neutral, Overall: positive) new product"
	if summarizer.gotReasoning != want {
		t.Errorf("reasoning list = %q, want %q", summarizer.gotReasoning, want)
	}
}

func TestSummarizeEntityUnavailable(t *testing.T) {
	store := &fakeSentimentStore{reasonings: []repository.ReasoningRow{{Reasoning: "x"}}}
	r := newQueryTest(store, &fakeArticleStore{}, &fakeUsageStore{}, nil)

	w := get(t, r, "/entities/summary?entity_name=Apple")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	var payload map[string]string
	json.Unmarshal(w.Body.Bytes(), &payload)
	if payload["error"] != "Summarization agent is not available." {
		t.Errorf("error = %q", payload["error"])
	}
}

func TestSummarizeEntityErrors(t *testing.T) {
	store := &fakeSentimentStore{reasonings: []repository.ReasoningRow{{Reasoning: "x"}}}
	summarizer := &fakeSummarizer{err: errors.New("model produced garbage")}
	r := newQueryTest(store, &fakeArticleStore{}, &fakeUsageStore{}, summarizer)

	if w := get(t, r, "/entities/summary"); w.Code != http.StatusBadRequest {
		t.Errorf("missing entity_name: status = %d, want 400", w.Code)
	}
	if w := get(t, r, "/entities/summary?entity_name=Apple"); w.Code != http.StatusInternalServerError {
		t.Errorf("summarizer failure: status = %d, want 500", w.Code)
	}

	empty := newQueryTest(&fakeSentimentStore{}, &fakeArticleStore{}, &fakeUsageStore{}, summarizer)
	if w := get(t, empty, "/entities/summary?entity_name=Apple"); w.Code != http.StatusNotFound {
		t.Errorf("no reasonings: status = %d, want 404", w.Code)
	}
}

func TestGetStats(t *testing.T) {
	store := &fakeSentimentStore{stats: &repository.DashboardStats{
		TotalEntities:         3,
		ArticlesAnalyzed:      5,
		TotalSentimentPoints:  8,
		SentimentDistribution: map[string]int64{"positive": 10, "negative": 2, "neutral": 4},
	}}
	articles := &fakeArticleStore{links: 40, articles: 30, analyzed: 5, bySource: map[string]int64{"gulfnews.com": 30}}
	r := newQueryTest(store, articles, &fakeUsageStore{}, nil)

	w := get(t, r, "/stats")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if payload["total_entities"].(float64) != 3 {
		t.Errorf("total_entities = %v", payload["total_entities"])
	}
	if payload["total_links"].(float64) != 40 {
		t.Errorf("total_links = %v", payload["total_links"])
	}
	if payload["articles_processed"].(float64) != 5 {
		t.Errorf("articles_processed = %v", payload["articles_processed"])
	}
	if _, ok := payload["articles_by_source"].(map[string]interface{}); !ok {
		t.Errorf("articles_by_source missing or wrong shape: %v", payload["articles_by_source"])
	}
}

func TestGetUsage(t *testing.T) {
	usage := &fakeUsageStore{
		entries:   []domain.UsageLog{{Provider: "openai", TotalTokens: 150}},
		summaries: []repository.ProviderSummary{{Provider: "openai", TotalCalls: 1, TotalTokens: 150}},
	}
	r := newQueryTest(&fakeSentimentStore{}, &fakeArticleStore{}, usage, nil)

	w := get(t, r, "/usage")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var entries []map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(entries) != 1 || entries[0]["provider"] != "openai" {
		t.Errorf("entries = %v", entries)
	}

	w = get(t, r, "/usage?summarize=true")
	var summaries []map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(summaries) != 1 || summaries[0]["total_calls"].(float64) != 1 {
		t.Errorf("summaries = %v", summaries)
	}
}
