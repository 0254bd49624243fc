package history

import (
	"time"

	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/features"
)

// #region learning-cycle

// LearningCycle is one recorded feedback event. Immutable once created.
type LearningCycle struct {
	ID              string
	Timestamp       time.Time
	SuggestionText  string
	ActualScore     float64
	PredictedScore  float64
	PredictionError float64 // |actual - predicted|
	ValidatorScores map[string]float64
}

// #endregion learning-cycle

// #region training-point

// TrainingPoint is one buffered sample for model retraining.
// Consumed (not removed) by retraining runs.
type TrainingPoint struct {
	SuggestionText  string
	Context         string
	ActualScore     float64
	ValidatorScores map[string]float64
	Features        features.FeatureSet
	Timestamp       time.Time
}

// #endregion training-point
