package repository

import (
	"context"
	"errors"

	"github.com/omarwh/finsent/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConfigRepository persists runtime key/value settings such as the
// pipeline schedule time.
type ConfigRepository struct {
	db *gorm.DB
}

// NewConfigRepository creates a new ConfigRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ConfigRepository: repository instance bound to db.
func NewConfigRepository(db *gorm.DB) *ConfigRepository {
	return &ConfigRepository{db: db}
}

// Get retrieves a config value, falling back to a default when the key
// is not stored.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - key: config key.
//   - fallback: value returned when the key is absent.
// Returns:
//   - string: stored or fallback value.
//   - error: non-nil if the lookup fails for reasons other than absence.
func (r *ConfigRepository) Get(ctx context.Context, key, fallback string) (string, error) {
	var entry domain.AppConfig
	err := r.db.WithContext(ctx).First(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fallback, nil
	}
	if err != nil {
		return "", err
	}
	return entry.Value, nil
}

// Set stores a config value, overwriting any existing value for the key.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - key: config key.
//   - value: value to store.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *ConfigRepository) Set(ctx context.Context, key, value string) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&domain.AppConfig{Key: key, Value: value}).Error
}
