package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DOCSTRUCT_API_KEY", "secret")
	t.Setenv("WORKER_COUNT", "")
	t.Setenv("MAX_TREE_DEPTH", "")
	t.Setenv("LOG_LEVEL", "")

	cfg := Load()
	if cfg.Port != "8090" {
		t.Errorf("expected default port 8090, got %q", cfg.Port)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.WorkerCount)
	}
	if cfg.MaxTreeDepth != 10 {
		t.Errorf("expected max tree depth 10, got %d", cfg.MaxTreeDepth)
	}
	if cfg.JobTTL != time.Hour {
		t.Errorf("expected job TTL 1h, got %s", cfg.JobTTL)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("expected info level, got %s", cfg.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DOCSTRUCT_API_KEY", "secret")
	t.Setenv("WORKER_COUNT", "-3")
	t.Setenv("MAX_TREE_DEPTH", "4")
	t.Setenv("INFER_REVIEW_THRESHOLD", "0.65")
	t.Setenv("JOB_TTL", "90s")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg := Load()
	if cfg.WorkerCount != 4 {
		t.Errorf("expected negative worker count to fall back to 4, got %d", cfg.WorkerCount)
	}
	if cfg.MaxTreeDepth != 4 {
		t.Errorf("expected max tree depth 4, got %d", cfg.MaxTreeDepth)
	}
	if cfg.InferReviewThreshold != 0.65 {
		t.Errorf("expected threshold 0.65, got %v", cfg.InferReviewThreshold)
	}
	if cfg.JobTTL != 90*time.Second {
		t.Errorf("expected 90s TTL, got %s", cfg.JobTTL)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("expected debug level, got %s", cfg.LogLevel)
	}
}

func TestValidate(t *testing.T) {
	base := Config{APIKey: "k", DBPath: "x.db", MaxTreeDepth: 10, InferReviewThreshold: 0.8}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing api key", func(c *Config) { c.APIKey = "" }, true},
		{"empty db path", func(c *Config) { c.DBPath = "" }, true},
		{"zero depth", func(c *Config) { c.MaxTreeDepth = 0 }, true},
		{"threshold above one", func(c *Config) { c.InferReviewThreshold = 1.5 }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
