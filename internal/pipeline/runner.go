package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/omarwh/finsent/internal/analysis"
	"github.com/omarwh/finsent/internal/domain"
	"github.com/omarwh/finsent/internal/logger"
	"github.com/omarwh/finsent/internal/repository"
	"github.com/omarwh/finsent/internal/source"
)

var (
	// ErrRunActive is returned when a trigger arrives while a run holds
	// the tracker.
	ErrRunActive = errors.New("a pipeline is already running")

	// ErrNoActiveRun is returned when a stop arrives with no run to stop.
	ErrNoActiveRun = errors.New("no pipeline is currently running")
)

// Runner is the job controller: it admits at most one run at a time,
// drives both stages in a background goroutine and records a summary
// row for every run regardless of how it ended.
type Runner struct {
	tracker   *Tracker
	acquirer  *Acquirer
	extractor *Extractor
	runs      *repository.RunRepository
	log       *logger.Logger
}

// NewRunner creates a Runner.
// Parameters:
//   - tracker: shared run state.
//   - acquirer: acquisition stage.
//   - extractor: extraction stage.
//   - runs: run summary store.
//   - log: structured logger.
// Returns:
//   - *Runner: configured controller.
func NewRunner(
	tracker *Tracker,
	acquirer *Acquirer,
	extractor *Extractor,
	runs *repository.RunRepository,
	log *logger.Logger,
) *Runner {
	return &Runner{
		tracker:   tracker,
		acquirer:  acquirer,
		extractor: extractor,
		runs:      runs,
		log:       log,
	}
}

// Trigger starts a pipeline run in the background.
// Parameters:
//   - sources: adapters selected for this run.
//   - cfg: LLM configuration for the extraction stage.
// Returns:
//   - error: ErrRunActive when a run is already in progress.
func (r *Runner) Trigger(sources []source.Source, cfg analysis.Config) error {
	token, ok := r.tracker.TryStart()
	if !ok {
		return ErrRunActive
	}
	go r.run(token, sources, cfg)
	return nil
}

// Stop requests the active run to terminate at the next boundary.
// Parameters: none.
// Returns:
//   - error: ErrNoActiveRun when nothing is running.
func (r *Runner) Stop() error {
	if !r.tracker.RequestStop() {
		return ErrNoActiveRun
	}
	return nil
}

// Status returns a snapshot of the current run state.
func (r *Runner) Status() Snapshot {
	return r.tracker.Snapshot()
}

// LastRun returns the most recent recorded run.
func (r *Runner) LastRun(ctx context.Context) (*domain.PipelineRun, error) {
	return r.runs.Latest(ctx)
}

// run is the body of one pipeline run. It always resets the tracker
// and always records a summary row, including on panic.
func (r *Runner) run(token *StopToken, sources []source.Source, cfg analysis.Config) {
	runID := uuid.New().String()
	log := r.log.WithField(logger.FieldRunID, runID)
	ctx := log.WithContext(context.Background())

	start := time.Now()
	summary := domain.PipelineRun{RunTimestamp: start.UTC()}

	defer r.tracker.Reset()
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("Pipeline run panicked: %v", rec)
			summary.Status = fmt.Sprintf("%s%v", domain.RunStatusFailedPrefix, rec)
			r.record(&summary)
		}
	}()

	log.WithField(logger.FieldCount, len(sources)).Info("Pipeline run started")

	acquireStats, err := r.acquirer.Run(ctx, r.tracker, sources, token)
	summary.NewLinksFound = acquireStats.NewLinksFound
	summary.ArticlesScraped = acquireStats.ArticlesScraped
	if err != nil {
		log.WithError(err).Error("Pipeline run failed during acquisition")
		summary.Status = domain.RunStatusFailedPrefix + err.Error()
		r.record(&summary)
		return
	}

	if !token.Stopped() {
		extractStats, err := r.extractor.Run(ctx, r.tracker, token, cfg)
		summary.EntitiesAnalyzed = extractStats.EntitiesAnalyzed
		if err != nil {
			log.WithError(err).Error("Pipeline run failed during extraction")
			summary.Status = domain.RunStatusFailedPrefix + err.Error()
			r.record(&summary)
			return
		}
	}

	summary.Status = domain.RunStatusCompleted
	if token.Stopped() {
		summary.Status = domain.RunStatusStopped
	}
	r.record(&summary)

	log.WithFields(logger.Fields{
		logger.FieldStatus:     summary.Status,
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Info("Pipeline run finished")
}

func (r *Runner) record(summary *domain.PipelineRun) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.runs.Create(ctx, summary); err != nil {
		r.log.WithError(err).Error("Failed to record pipeline run")
	}
}
