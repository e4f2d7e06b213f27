package repository

import (
	"context"

	"github.com/omarwh/finsent/internal/domain"
	"gorm.io/gorm"
)

// RunRepository records completed pipeline runs. The table is append-only.
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a new RunRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *RunRepository: repository instance bound to db.
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create appends a pipeline run summary.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - run: run summary to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *RunRepository) Create(ctx context.Context, run *domain.PipelineRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Latest retrieves the most recent pipeline run.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - *domain.PipelineRun: latest run, or gorm.ErrRecordNotFound when none exist.
//   - error: non-nil if lookup fails.
func (r *RunRepository) Latest(ctx context.Context) (*domain.PipelineRun, error) {
	var run domain.PipelineRun
	if err := r.db.WithContext(ctx).
		Order("run_timestamp DESC").
		First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}
