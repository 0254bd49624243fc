// Package config provides engine configuration.
// Configuration is resolved from (highest to lowest priority):
// 1. Environment variables (ENSEMBLE_*)
// 2. YAML config file (when a path is given)
// 3. Defaults
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// #region engine-config

// EngineConfig holds all tuning knobs for the adaptive ensemble engine.
type EngineConfig struct {
	// BaseLearningRate scales weight deltas computed per adaptation (default 0.01).
	BaseLearningRate float64 `yaml:"base_learning_rate"`
	// ErrorThresholdForAdaptation gates weight adaptation on prediction error (default 0.1).
	ErrorThresholdForAdaptation float64 `yaml:"error_threshold_for_adaptation"`

	// AccuracyThresholdForRetraining triggers retraining when model accuracy drops below it (default 0.7).
	AccuracyThresholdForRetraining float64 `yaml:"accuracy_threshold_for_retraining"`
	// AdaptationCountForRetraining triggers retraining after N weight adaptations (default 10).
	AdaptationCountForRetraining int `yaml:"adaptation_count_for_retraining"`
	// RetrainingInterval is a Go duration string; retraining triggers when the
	// model is older than this (default "24h").
	RetrainingInterval string `yaml:"retraining_interval"`
	// MinSamplesForRetraining is the minimum training buffer size for a retrain run (default 50).
	MinSamplesForRetraining int `yaml:"min_samples_for_retraining"`
	// ReplacePolicy is "replace_always" or "replace_if_better" (default "replace_always").
	ReplacePolicy string `yaml:"replace_policy"`

	// MaxHistorySize bounds the per-category learning history (default 1000).
	MaxHistorySize int `yaml:"max_history_size"`
	// MaxTrainingBufferSize bounds the per-category training buffer (default 500).
	MaxTrainingBufferSize int `yaml:"max_training_buffer_size"`

	// TrendAnalysisWindow is the number of recent cycles used for trend stats (default 20).
	TrendAnalysisWindow int `yaml:"trend_analysis_window"`
	// ErrorThresholdForOptimization flags optimization need on average error (default 0.2).
	ErrorThresholdForOptimization float64 `yaml:"error_threshold_for_optimization"`
	// TrendThresholdForOptimization flags optimization need on error slope (default 0.05).
	TrendThresholdForOptimization float64 `yaml:"trend_threshold_for_optimization"`

	// MinSamplesForDriftDetection is the minimum history length for drift checks (default 20).
	MinSamplesForDriftDetection int `yaml:"min_samples_for_drift_detection"`
	// DriftDetectionWindow is the trailing "recent" window size (default 10).
	DriftDetectionWindow int `yaml:"drift_detection_window"`
	// DriftThreshold is the accuracy delta that counts as drift (default 0.15).
	DriftThreshold float64 `yaml:"drift_threshold"`

	// MinSamplesForOnlineLearning gates the online fine-tune pass (default 10).
	MinSamplesForOnlineLearning int `yaml:"min_samples_for_online_learning"`
	// OnlineLearningBatchSize is the number of recent points per fine-tune pass (default 20).
	OnlineLearningBatchSize int `yaml:"online_learning_batch_size"`
}

// #endregion engine-config

// #region replace-policy

const (
	ReplaceAlways   = "replace_always"
	ReplaceIfBetter = "replace_if_better"
)

// #endregion replace-policy

// #region defaults

// Default returns sensible defaults for every knob.
func Default() EngineConfig {
	return EngineConfig{
		BaseLearningRate:               0.01,
		ErrorThresholdForAdaptation:    0.1,
		AccuracyThresholdForRetraining: 0.7,
		AdaptationCountForRetraining:   10,
		RetrainingInterval:             "24h",
		MinSamplesForRetraining:        50,
		ReplacePolicy:                  ReplaceAlways,
		MaxHistorySize:                 1000,
		MaxTrainingBufferSize:          500,
		TrendAnalysisWindow:            20,
		ErrorThresholdForOptimization:  0.2,
		TrendThresholdForOptimization:  0.05,
		MinSamplesForDriftDetection:    20,
		DriftDetectionWindow:           10,
		DriftThreshold:                 0.15,
		MinSamplesForOnlineLearning:    10,
		OnlineLearningBatchSize:        20,
	}
}

// #endregion defaults

// #region load

// Load resolves configuration: defaults, then the YAML file at path
// (skipped when path is empty), then ENSEMBLE_* env overrides.
func Load(path string) (EngineConfig, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides cfg fields from ENSEMBLE_* environment variables.
func applyEnv(cfg *EngineConfig) {
	envFloat("ENSEMBLE_BASE_LEARNING_RATE", &cfg.BaseLearningRate)
	envFloat("ENSEMBLE_ERROR_THRESHOLD_FOR_ADAPTATION", &cfg.ErrorThresholdForAdaptation)
	envFloat("ENSEMBLE_ACCURACY_THRESHOLD_FOR_RETRAINING", &cfg.AccuracyThresholdForRetraining)
	envInt("ENSEMBLE_ADAPTATION_COUNT_FOR_RETRAINING", &cfg.AdaptationCountForRetraining)
	envString("ENSEMBLE_RETRAINING_INTERVAL", &cfg.RetrainingInterval)
	envInt("ENSEMBLE_MIN_SAMPLES_FOR_RETRAINING", &cfg.MinSamplesForRetraining)
	envString("ENSEMBLE_REPLACE_POLICY", &cfg.ReplacePolicy)
	envInt("ENSEMBLE_MAX_HISTORY_SIZE", &cfg.MaxHistorySize)
	envInt("ENSEMBLE_MAX_TRAINING_BUFFER_SIZE", &cfg.MaxTrainingBufferSize)
	envInt("ENSEMBLE_TREND_ANALYSIS_WINDOW", &cfg.TrendAnalysisWindow)
	envFloat("ENSEMBLE_ERROR_THRESHOLD_FOR_OPTIMIZATION", &cfg.ErrorThresholdForOptimization)
	envFloat("ENSEMBLE_TREND_THRESHOLD_FOR_OPTIMIZATION", &cfg.TrendThresholdForOptimization)
	envInt("ENSEMBLE_MIN_SAMPLES_FOR_DRIFT_DETECTION", &cfg.MinSamplesForDriftDetection)
	envInt("ENSEMBLE_DRIFT_DETECTION_WINDOW", &cfg.DriftDetectionWindow)
	envFloat("ENSEMBLE_DRIFT_THRESHOLD", &cfg.DriftThreshold)
	envInt("ENSEMBLE_MIN_SAMPLES_FOR_ONLINE_LEARNING", &cfg.MinSamplesForOnlineLearning)
	envInt("ENSEMBLE_ONLINE_LEARNING_BATCH_SIZE", &cfg.OnlineLearningBatchSize)
}

// #endregion load

// #region validate

// Validate rejects out-of-range knob values.
func (c EngineConfig) Validate() error {
	if c.BaseLearningRate <= 0 || c.BaseLearningRate > 1 {
		return fmt.Errorf("base_learning_rate %.4f out of range (0,1]", c.BaseLearningRate)
	}
	for name, v := range map[string]float64{
		"error_threshold_for_adaptation":    c.ErrorThresholdForAdaptation,
		"accuracy_threshold_for_retraining": c.AccuracyThresholdForRetraining,
		"error_threshold_for_optimization":  c.ErrorThresholdForOptimization,
		"drift_threshold":                   c.DriftThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s %.4f out of range [0,1]", name, v)
		}
	}
	if c.DriftThreshold == 0 {
		return fmt.Errorf("drift_threshold must be positive")
	}
	for name, v := range map[string]int{
		"adaptation_count_for_retraining": c.AdaptationCountForRetraining,
		"min_samples_for_retraining":      c.MinSamplesForRetraining,
		"max_history_size":                c.MaxHistorySize,
		"max_training_buffer_size":        c.MaxTrainingBufferSize,
		"trend_analysis_window":           c.TrendAnalysisWindow,
		"min_samples_for_drift_detection": c.MinSamplesForDriftDetection,
		"drift_detection_window":          c.DriftDetectionWindow,
		"min_samples_for_online_learning": c.MinSamplesForOnlineLearning,
		"online_learning_batch_size":      c.OnlineLearningBatchSize,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be a positive integer, got %d", name, v)
		}
	}
	if d, err := time.ParseDuration(c.RetrainingInterval); err != nil || d <= 0 {
		return fmt.Errorf("retraining_interval must be a positive duration, got %q", c.RetrainingInterval)
	}
	if c.ReplacePolicy != ReplaceAlways && c.ReplacePolicy != ReplaceIfBetter {
		return fmt.Errorf("replace_policy must be %q or %q, got %q", ReplaceAlways, ReplaceIfBetter, c.ReplacePolicy)
	}
	return nil
}

// #endregion validate

// #region env-helpers

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// #endregion env-helpers

// #region duration-accessor

// RetrainingDuration returns the parsed retraining interval.
// Falls back to the default when the string is unparseable.
func (c EngineConfig) RetrainingDuration() time.Duration {
	d, err := time.ParseDuration(c.RetrainingInterval)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// #endregion duration-accessor
