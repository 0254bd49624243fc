package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.BaseLearningRate != 0.01 {
		t.Fatalf("expected default learning rate 0.01, got %f", cfg.BaseLearningRate)
	}
	if cfg.RetrainingDuration() != 24*time.Hour {
		t.Fatalf("expected default interval 24h, got %s", cfg.RetrainingDuration())
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	content := []byte("base_learning_rate: 0.05\nmax_history_size: 200\nretraining_interval: 2h\nreplace_policy: replace_if_better\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseLearningRate != 0.05 {
		t.Fatalf("expected learning rate 0.05, got %f", cfg.BaseLearningRate)
	}
	if cfg.MaxHistorySize != 200 {
		t.Fatalf("expected history size 200, got %d", cfg.MaxHistorySize)
	}
	if cfg.RetrainingDuration() != 2*time.Hour {
		t.Fatalf("expected interval 2h, got %s", cfg.RetrainingDuration())
	}
	if cfg.ReplacePolicy != ReplaceIfBetter {
		t.Fatalf("expected replace_if_better, got %s", cfg.ReplacePolicy)
	}
	// untouched knobs keep defaults
	if cfg.DriftThreshold != 0.15 {
		t.Fatalf("expected default drift threshold, got %f", cfg.DriftThreshold)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ENSEMBLE_BASE_LEARNING_RATE", "0.2")
	t.Setenv("ENSEMBLE_MAX_HISTORY_SIZE", "42")
	t.Setenv("ENSEMBLE_RETRAINING_INTERVAL", "30m")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseLearningRate != 0.2 {
		t.Fatalf("expected env learning rate 0.2, got %f", cfg.BaseLearningRate)
	}
	if cfg.MaxHistorySize != 42 {
		t.Fatalf("expected env history size 42, got %d", cfg.MaxHistorySize)
	}
	if cfg.RetrainingDuration() != 30*time.Minute {
		t.Fatalf("expected env interval 30m, got %s", cfg.RetrainingDuration())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []func(*EngineConfig){
		func(c *EngineConfig) { c.BaseLearningRate = 0 },
		func(c *EngineConfig) { c.BaseLearningRate = 1.5 },
		func(c *EngineConfig) { c.DriftThreshold = -0.1 },
		func(c *EngineConfig) { c.MaxHistorySize = 0 },
		func(c *EngineConfig) { c.RetrainingInterval = "yesterday" },
		func(c *EngineConfig) { c.ReplacePolicy = "replace_sometimes" },
		func(c *EngineConfig) { c.OnlineLearningBatchSize = -3 },
	}
	for i, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("case %d: expected validation failure", i)
		}
	}
}
