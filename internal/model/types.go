package model

import (
	"time"

	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/ensemble"
	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/features"
)

// #region kind

// Kind tags the sub-model variants consulted by the combiner.
type Kind string

const (
	KindRegression Kind = "regression"
	KindEnsemble   Kind = "ensemble"
	KindTransfer   Kind = "transfer"
)

// #endregion kind

// #region model-interface

// Model is the uniform prediction capability shared by all sub-model
// variants. Selected by availability, never by type inspection.
type Model interface {
	Kind() Kind
	// Available reports whether the model can score this input.
	Available(in Input) bool
	// Predict returns (score, confidence), both in [0,1].
	Predict(in Input) (float64, float64)
}

// #endregion model-interface

// #region input

// Input bundles everything a sub-model may consume for one prediction.
// ValidatorSignals and Weights are optional; sub-models that need them
// report unavailable when absent.
type Input struct {
	Features         features.FeatureSet
	ValidatorSignals []ensemble.ValidatorSignal
	Weights          map[string]float64 // effective clamped ensemble weights
}

// #endregion input

// #region prediction

// SubScore is one sub-model's raw output.
type SubScore struct {
	Score      float64
	Confidence float64
}

// Prediction is the combined multi-model output.
type Prediction struct {
	Score         float64
	Confidence    float64
	Breakdown     map[string]SubScore // per sub-model (score, confidence)
	Contributions map[string]float64  // per sub-model raw score
}

// #endregion prediction

// #region model-state

// State is the per-category trained model artifact plus rolling
// accuracy bookkeeping. Replaced atomically on successful retraining.
type State struct {
	Category        ensemble.Category
	VersionID       string
	Trained         *Regression // nil until first successful retrain
	CurrentAccuracy float64     // [0,1], EMA-updated per feedback cycle
	SampleCount     int
	LastUpdate      time.Time
}

// #endregion model-state
