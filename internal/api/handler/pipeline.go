package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/omarwh/finsent/internal/analysis"
	"github.com/omarwh/finsent/internal/domain"
	"github.com/omarwh/finsent/internal/logger"
	"github.com/omarwh/finsent/internal/pipeline"
	"github.com/omarwh/finsent/internal/source"
)

// RunController is the slice of the pipeline runner the handler needs.
type RunController interface {
	Trigger(sources []source.Source, cfg analysis.Config) error
	Stop() error
	Status() pipeline.Snapshot
	LastRun(ctx context.Context) (*domain.PipelineRun, error)
}

// ScheduleController applies schedule changes.
type ScheduleController interface {
	SetScheduleTime(ctx context.Context, value string) error
}

// SourceResolver exposes the source registry to the handler.
type SourceResolver interface {
	Names() []string
	Resolve(names []string) []source.Source
}

// PipelineHandler handles pipeline control operations.
type PipelineHandler struct {
	runner    RunController
	scheduler ScheduleController
	registry  SourceResolver
	logger    *logger.Logger
}

// NewPipelineHandler creates a new pipeline handler.
// Parameters:
//   - runner: job controller.
//   - scheduler: daily schedule controller.
//   - registry: source registry.
//   - log: logger instance.
// Returns:
//   - *PipelineHandler: initialized handler.
func NewPipelineHandler(runner RunController, scheduler ScheduleController, registry SourceResolver, log *logger.Logger) *PipelineHandler {
	return &PipelineHandler{
		runner:    runner,
		scheduler: scheduler,
		registry:  registry,
		logger:    log,
	}
}

// TriggerRequest represents the pipeline trigger API request. A nil
// Sources list selects every registered source; an explicit empty list
// selects none and is rejected.
type TriggerRequest struct {
	Sources      []string `json:"sources"`
	Provider     string   `json:"provider"`
	ModelName    string   `json:"model_name"`
	OpenAIAPIKey string   `json:"openai_api_key"`
	GroqAPIKey   string   `json:"groq_api_key"`
}

// ScheduleRequest represents the schedule update API request.
type ScheduleRequest struct {
	ScheduleTime string `json:"schedule_time"`
}

// ListSources returns the names of all registered source adapters.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *PipelineHandler) ListSources(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.Names())
}

// Trigger starts a pipeline run in the background.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *PipelineHandler) Trigger(c *gin.Context) {
	var req TriggerRequest
	// An empty or malformed body runs every source with default config,
	// matching the permissive contract of the trigger endpoint.
	_ = c.ShouldBindJSON(&req)

	sources := h.registry.Resolve(req.Sources)
	if len(sources) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No valid sources found for the given selection."})
		return
	}

	cfg := analysis.Config{
		Provider:     req.Provider,
		ModelName:    req.ModelName,
		OpenAIAPIKey: req.OpenAIAPIKey,
		GroqAPIKey:   req.GroqAPIKey,
	}

	if err := h.runner.Trigger(sources, cfg); err != nil {
		if errors.Is(err, pipeline.ErrRunActive) {
			c.JSON(http.StatusConflict, gin.H{"error": "A pipeline is already running."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Pipeline triggered successfully in the background."})
}

// Stop requests the running pipeline to terminate gracefully.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *PipelineHandler) Stop(c *gin.Context) {
	if err := h.runner.Stop(); err != nil {
		if errors.Is(err, pipeline.ErrNoActiveRun) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No pipeline is currently running."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Pipeline stop signal sent. It will terminate shortly."})
}

// Status returns the real-time state of the current run.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *PipelineHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.runner.Status())
}

// LastRun returns the statistics of the most recent pipeline run.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *PipelineHandler) LastRun(c *gin.Context) {
	run, err := h.runner.LastRun(c.Request.Context())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "No previous pipeline run found."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}

// SetSchedule updates the daily UTC run time.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *PipelineHandler) SetSchedule(c *gin.Context) {
	var req ScheduleRequest
	_ = c.ShouldBindJSON(&req)

	if !pipeline.ValidScheduleTime(req.ScheduleTime) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid time format. Please use 'HH:MM'."})
		return
	}

	if err := h.scheduler.SetScheduleTime(c.Request.Context(), req.ScheduleTime); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update schedule.", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Pipeline schedule updated successfully to " + req.ScheduleTime + " UTC."})
}
