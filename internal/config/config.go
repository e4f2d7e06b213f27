package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Analyzer AnalyzerConfig `mapstructure:"analyzer"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Sources  SourcesConfig  `mapstructure:"sources"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// AnalyzerConfig holds the default LLM extractor settings. Per-request
// overrides from the trigger endpoint take precedence over these.
type AnalyzerConfig struct {
	Provider     string `mapstructure:"provider"`
	Model        string `mapstructure:"model"`
	OpenAIAPIKey string `mapstructure:"openai_api_key"`
	GroqAPIKey   string `mapstructure:"groq_api_key"`
}

type PipelineConfig struct {
	// Password guards the mutating pipeline endpoints when non-empty.
	Password string `mapstructure:"password"`
	// DefaultScheduleTime seeds app_config when no schedule is persisted yet.
	DefaultScheduleTime string `mapstructure:"default_schedule_time"`
}

type SourcesConfig struct {
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/news_data.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("analyzer.provider", "openai")
	v.SetDefault("analyzer.model", "")
	v.SetDefault("pipeline.default_schedule_time", "01:00")
	v.SetDefault("sources.http_timeout", 15*time.Second)
	v.SetDefault("sources.user_agent", "Mozilla/5.0")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("analyzer.openai_api_key", "OPENAI_API_KEY")
	v.BindEnv("analyzer.groq_api_key", "GROQ_API_KEY")
	v.BindEnv("analyzer.provider", "LLM_PROVIDER")
	v.BindEnv("analyzer.model", "LLM_MODEL")
	v.BindEnv("pipeline.password", "PIPELINE_PASSWORD")
	v.BindEnv("database.dsn", "DATABASE_DSN")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
