package domain

// ConfigKeyScheduleTime is the app_config key holding the daily pipeline
// trigger time as an "HH:MM" UTC string.
const ConfigKeyScheduleTime = "schedule_time"

// AppConfig is a persisted key/value application setting.
type AppConfig struct {
	Key   string `gorm:"type:text;primaryKey" json:"key"`
	Value string `gorm:"type:text;not null" json:"value"`
}

// TableName returns the database table name for AppConfig.
func (AppConfig) TableName() string {
	return "app_config"
}
