// Package weights implements the adaptive weight controller: bounded
// per-validator weight deltas computed from observed prediction error.
package weights

import (
	"fmt"
	"time"

	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/ensemble"
)

// epsilon avoids division by zero when prediction error is tiny.
const epsilon = 0.001

// #region controller

// Controller computes per-validator weight deltas from error feedback.
type Controller struct {
	rate     float64
	strategy Strategy
}

// NewController creates a controller with the given base learning rate
// and strategy.
func NewController(rate float64, strategy Strategy) *Controller {
	return &Controller{rate: rate, strategy: strategy}
}

// #endregion controller

// #region adjust

// Adjust computes one delta per validator and records them as pending
// adjustments on state. Deltas are not applied to current weights
// here; consumers fold and clamp them via ApplyPending.
//
// For each validator v with score s:
//
//	validatorError = |actual - s|
//	relativePerformance = 1 - validatorError/max(predictionError, ε)
//	delta = rate * relativePerformance * sign(actual - s)
func (c *Controller) Adjust(state *State, predictionError float64, validatorScores map[string]float64, actual float64) (map[string]float64, error) {
	if len(validatorScores) == 0 {
		return nil, fmt.Errorf("adjust weights: empty validator scores")
	}
	if ensemble.AllZero(validatorScores) {
		return nil, fmt.Errorf("adjust weights: all validator scores are zero")
	}

	denom := predictionError
	if denom < epsilon {
		denom = epsilon
	}

	scale := c.strategy.scale()
	deltas := make(map[string]float64, len(validatorScores))
	for name, s := range validatorScores {
		validatorError := abs(actual - s)
		relative := 1 - validatorError/denom
		deltas[name] = c.rate * scale * relative * sign(actual-s)
	}

	for name, d := range deltas {
		state.PendingAdjustments[name] += d
	}
	state.AdaptationCount++
	state.LastAdaptation = time.Now().UTC()

	return deltas, nil
}

// #endregion adjust

// #region apply-pending

// ApplyPending folds pending adjustments into current weights, clamps
// each weight to its bounds, and clears the pending map. Called by
// whichever path consumes weights for scoring.
func (s *State) ApplyPending(bounds map[string]Bounds) {
	for name, d := range s.PendingAdjustments {
		w := s.CurrentWeights[name] + d
		if b, ok := bounds[name]; ok {
			if w < b.Min {
				w = b.Min
			}
			if w > b.Max {
				w = b.Max
			}
		}
		s.CurrentWeights[name] = w
	}
	s.PendingAdjustments = make(map[string]float64)
}

// #endregion apply-pending

// #region helpers

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// #endregion helpers
