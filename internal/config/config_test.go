package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Database.Path != "./data/news_data.db" {
		t.Errorf("path = %q", cfg.Database.Path)
	}
	if cfg.Analyzer.Provider != "openai" {
		t.Errorf("provider = %q, want openai", cfg.Analyzer.Provider)
	}
	if cfg.Pipeline.DefaultScheduleTime != "01:00" {
		t.Errorf("default schedule = %q, want 01:00", cfg.Pipeline.DefaultScheduleTime)
	}
	if cfg.Sources.HTTPTimeout != 15*time.Second {
		t.Errorf("http timeout = %v, want 15s", cfg.Sources.HTTPTimeout)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	t.Setenv("LLM_PROVIDER", "groq")
	t.Setenv("LLM_MODEL", "llama3-70b-8192")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Analyzer.OpenAIAPIKey != "sk-from-env" {
		t.Errorf("openai key = %q", cfg.Analyzer.OpenAIAPIKey)
	}
	if cfg.Analyzer.Provider != "groq" {
		t.Errorf("provider = %q, want env override", cfg.Analyzer.Provider)
	}
	if cfg.Analyzer.Model != "llama3-70b-8192" {
		t.Errorf("model = %q, want env override", cfg.Analyzer.Model)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `server:
  port: 9090
  mode: release
database:
  driver: postgres
sources:
  http_timeout: 30s
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Mode != "release" {
		t.Errorf("mode = %q, want release", cfg.Server.Mode)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("driver = %q, want postgres", cfg.Database.Driver)
	}
	if cfg.Sources.HTTPTimeout != 30*time.Second {
		t.Errorf("http timeout = %v, want 30s", cfg.Sources.HTTPTimeout)
	}
	if cfg.Database.MaxOpenConns != 20 {
		t.Errorf("unset keys should keep defaults, got max_open_conns = %d", cfg.Database.MaxOpenConns)
	}
}
