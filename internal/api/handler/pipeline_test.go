package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/omarwh/finsent/internal/analysis"
	"github.com/omarwh/finsent/internal/domain"
	"github.com/omarwh/finsent/internal/logger"
	"github.com/omarwh/finsent/internal/pipeline"
	"github.com/omarwh/finsent/internal/source"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRunner struct {
	triggerErr  error
	stopErr     error
	lastRun     *domain.PipelineRun
	lastRunErr  error
	gotSources  []source.Source
	gotConfig   analysis.Config
	triggerSeen bool
	stopSeen    bool
}

func (f *fakeRunner) Trigger(sources []source.Source, cfg analysis.Config) error {
	f.triggerSeen = true
	f.gotSources = sources
	f.gotConfig = cfg
	return f.triggerErr
}

func (f *fakeRunner) Stop() error {
	f.stopSeen = true
	return f.stopErr
}

func (f *fakeRunner) Status() pipeline.Snapshot {
	return pipeline.Snapshot{Status: "Idle", CurrentTask: "N/A"}
}

func (f *fakeRunner) LastRun(ctx context.Context) (*domain.PipelineRun, error) {
	return f.lastRun, f.lastRunErr
}

type fakeScheduler struct {
	gotValue string
	err      error
}

func (f *fakeScheduler) SetScheduleTime(ctx context.Context, value string) error {
	f.gotValue = value
	return f.err
}

type fakeRegistry struct {
	names []string
}

type namedSource struct{ name string }

func (s *namedSource) Name() string { return s.name }
func (s *namedSource) ListArticleURLs(ctx context.Context) ([]string, error) {
	return nil, nil
}
func (s *namedSource) FetchArticle(ctx context.Context, url string) (*domain.ArticleContent, error) {
	return nil, nil
}

func (f *fakeRegistry) Names() []string { return f.names }

func (f *fakeRegistry) Resolve(names []string) []source.Source {
	known := map[string]bool{}
	for _, n := range f.names {
		known[n] = true
	}
	if names == nil {
		names = f.names
	}
	var out []source.Source
	for _, n := range names {
		if known[n] {
			out = append(out, &namedSource{name: n})
		}
	}
	return out
}

func newPipelineTest(runner *fakeRunner, scheduler *fakeScheduler, registry *fakeRegistry) *gin.Engine {
	h := NewPipelineHandler(runner, scheduler, registry, logger.NewDefault())
	r := gin.New()
	r.GET("/sources", h.ListSources)
	r.POST("/pipeline/trigger", h.Trigger)
	r.POST("/pipeline/stop", h.Stop)
	r.GET("/pipeline/status", h.Status)
	r.GET("/pipeline/last-run", h.LastRun)
	r.POST("/pipeline/schedule", h.SetSchedule)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var payload map[string]interface{}
	if strings.HasPrefix(w.Body.String(), "{") {
		if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
			t.Fatalf("response is not valid JSON: %v", err)
		}
	}
	return w, payload
}

func TestListSources(t *testing.T) {
	r := newPipelineTest(&fakeRunner{}, &fakeScheduler{}, &fakeRegistry{names: []string{"gulfnews.com", "zawya.com"}})

	w, _ := doJSON(t, r, http.MethodGet, "/sources", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var names []string
	if err := json.Unmarshal(w.Body.Bytes(), &names); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("names = %v, want 2 entries", names)
	}
}

func TestTriggerAccepted(t *testing.T) {
	runner := &fakeRunner{}
	r := newPipelineTest(runner, &fakeScheduler{}, &fakeRegistry{names: []string{"gulfnews.com"}})

	w, payload := doJSON(t, r, http.MethodPost, "/pipeline/trigger", `{"provider": "groq", "groq_api_key": "gsk-x"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
	if payload["message"] != "Pipeline triggered successfully in the background." {
		t.Errorf("message = %q", payload["message"])
	}
	if !runner.triggerSeen {
		t.Fatal("runner was not triggered")
	}
	if len(runner.gotSources) != 1 {
		t.Errorf("triggered with %d sources, want all registered", len(runner.gotSources))
	}
	if runner.gotConfig.Provider != "groq" || runner.gotConfig.GroqAPIKey != "gsk-x" {
		t.Errorf("config = %+v, want request overrides applied", runner.gotConfig)
	}
}

func TestTriggerEmptyBodyRunsAllSources(t *testing.T) {
	runner := &fakeRunner{}
	r := newPipelineTest(runner, &fakeScheduler{}, &fakeRegistry{names: []string{"a", "b"}})

	w, _ := doJSON(t, r, http.MethodPost, "/pipeline/trigger", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
	if len(runner.gotSources) != 2 {
		t.Errorf("triggered with %d sources, want 2", len(runner.gotSources))
	}
}

func TestTriggerNoValidSources(t *testing.T) {
	runner := &fakeRunner{}
	r := newPipelineTest(runner, &fakeScheduler{}, &fakeRegistry{names: []string{"a"}})

	w, payload := doJSON(t, r, http.MethodPost, "/pipeline/trigger", `{"sources": ["unknown.com"]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if payload["error"] != "No valid sources found for the given selection." {
		t.Errorf("error = %q", payload["error"])
	}
	if runner.triggerSeen {
		t.Error("runner should not be triggered when no sources resolve")
	}
}

func TestTriggerConflict(t *testing.T) {
	runner := &fakeRunner{triggerErr: pipeline.ErrRunActive}
	r := newPipelineTest(runner, &fakeScheduler{}, &fakeRegistry{names: []string{"a"}})

	w, payload := doJSON(t, r, http.MethodPost, "/pipeline/trigger", "{}")
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	if payload["error"] != "A pipeline is already running." {
		t.Errorf("error = %q", payload["error"])
	}
}

func TestStop(t *testing.T) {
	runner := &fakeRunner{}
	r := newPipelineTest(runner, &fakeScheduler{}, &fakeRegistry{})

	w, payload := doJSON(t, r, http.MethodPost, "/pipeline/stop", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
	if payload["message"] != "Pipeline stop signal sent. It will terminate shortly." {
		t.Errorf("message = %q", payload["message"])
	}
	if !runner.stopSeen {
		t.Error("runner.Stop was not called")
	}
}

func TestStopWhenIdle(t *testing.T) {
	runner := &fakeRunner{stopErr: pipeline.ErrNoActiveRun}
	r := newPipelineTest(runner, &fakeScheduler{}, &fakeRegistry{})

	w, payload := doJSON(t, r, http.MethodPost, "/pipeline/stop", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if payload["error"] != "No pipeline is currently running." {
		t.Errorf("error = %q", payload["error"])
	}
}

func TestStatus(t *testing.T) {
	r := newPipelineTest(&fakeRunner{}, &fakeScheduler{}, &fakeRegistry{})

	w, payload := doJSON(t, r, http.MethodGet, "/pipeline/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if payload["status"] != "Idle" {
		t.Errorf("status field = %q, want Idle", payload["status"])
	}
	if payload["current_task"] != "N/A" {
		t.Errorf("current_task = %q, want N/A", payload["current_task"])
	}
}

func TestLastRun(t *testing.T) {
	runner := &fakeRunner{lastRun: &domain.PipelineRun{Status: "Completed", ArticlesScraped: 3}}
	r := newPipelineTest(runner, &fakeScheduler{}, &fakeRegistry{})

	w, payload := doJSON(t, r, http.MethodGet, "/pipeline/last-run", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if payload["status"] != "Completed" {
		t.Errorf("status = %q", payload["status"])
	}
}

func TestLastRunNotFound(t *testing.T) {
	runner := &fakeRunner{lastRunErr: gorm.ErrRecordNotFound}
	r := newPipelineTest(runner, &fakeScheduler{}, &fakeRegistry{})

	w, payload := doJSON(t, r, http.MethodGet, "/pipeline/last-run", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if payload["message"] != "No previous pipeline run found." {
		t.Errorf("message = %q", payload["message"])
	}
}

func TestSetSchedule(t *testing.T) {
	scheduler := &fakeScheduler{}
	r := newPipelineTest(&fakeRunner{}, scheduler, &fakeRegistry{})

	w, payload := doJSON(t, r, http.MethodPost, "/pipeline/schedule", `{"schedule_time": "04:30"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if payload["message"] != "Pipeline schedule updated successfully to 04:30 UTC." {
		t.Errorf("message = %q", payload["message"])
	}
	if scheduler.gotValue != "04:30" {
		t.Errorf("scheduler received %q", scheduler.gotValue)
	}
}

func TestSetScheduleInvalid(t *testing.T) {
	scheduler := &fakeScheduler{}
	r := newPipelineTest(&fakeRunner{}, scheduler, &fakeRegistry{})

	for _, body := range []string{`{"schedule_time": "25:00"}`, `{"schedule_time": "7:30"}`, `{}`, ""} {
		w, payload := doJSON(t, r, http.MethodPost, "/pipeline/schedule", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
			continue
		}
		if payload["error"] != "Invalid time format. Please use 'HH:MM'." {
			t.Errorf("body %q: error = %q", body, payload["error"])
		}
	}
	if scheduler.gotValue != "" {
		t.Error("scheduler should not be called for invalid input")
	}
}
