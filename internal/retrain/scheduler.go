// Package retrain decides when to refit the regression model and runs
// the fit/evaluate/replace cycle.
//
// State machine per category: Idle → Evaluating → {Retraining → Idle}.
// The engine holds the category lock for transitions and for the
// atomic model swap; the fit itself runs outside the lock.
package retrain

import (
	"fmt"
	"time"

	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/history"
	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/model"
	"github.com/google/uuid"
)

// #region scheduler

// Scheduler owns the retraining state machine for one category.
// Phase transitions must happen under the category lock.
type Scheduler struct {
	config Config
	phase  Phase
}

// NewScheduler creates an idle scheduler.
func NewScheduler(config Config) *Scheduler {
	return &Scheduler{config: config, phase: PhaseIdle}
}

// Phase returns the current state-machine phase.
func (s *Scheduler) Phase() Phase { return s.phase }

// #endregion scheduler

// #region transitions

// BeginEvaluation moves Idle → Evaluating. Returns false when a run is
// already in flight, which also serializes retrains per category.
func (s *Scheduler) BeginEvaluation() bool {
	if s.phase != PhaseIdle {
		return false
	}
	s.phase = PhaseEvaluating
	return true
}

// StartRetraining moves Evaluating → Retraining.
func (s *Scheduler) StartRetraining() {
	s.phase = PhaseRetraining
}

// Finish returns the scheduler to Idle from any phase.
func (s *Scheduler) Finish() {
	s.phase = PhaseIdle
}

// #endregion transitions

// #region should-retrain

// ShouldRetrain evaluates the three trigger conditions: low accuracy,
// adaptation-count limit, elapsed interval. Any one firing is enough.
func (s *Scheduler) ShouldRetrain(accuracy float64, adaptationCount int, lastRetraining, now time.Time) Trigger {
	var reasons []string
	if accuracy < s.config.AccuracyThreshold {
		reasons = append(reasons, fmt.Sprintf("accuracy %.4f below threshold %.4f", accuracy, s.config.AccuracyThreshold))
	}
	if adaptationCount >= s.config.AdaptationCount {
		reasons = append(reasons, fmt.Sprintf("adaptation count %d reached limit %d", adaptationCount, s.config.AdaptationCount))
	}
	if now.Sub(lastRetraining) > s.config.Interval {
		reasons = append(reasons, fmt.Sprintf("last retraining %s ago exceeds interval %s", now.Sub(lastRetraining).Round(time.Second), s.config.Interval))
	}
	return Trigger{Should: len(reasons) > 0, Reasons: reasons}
}

// #endregion should-retrain

// #region fit

// Fit retrains from the buffered points and builds the replacement
// model state. Pure computation: no locking, no phase change. Fails
// fast with "insufficient data" below MinSamples, leaving the current
// state untouched.
func (s *Scheduler) Fit(points []history.TrainingPoint, current model.State, now time.Time) (Result, model.State) {
	start := time.Now()

	if len(points) < s.config.MinSamples {
		return Result{
			Success:     false,
			Reason:      "insufficient data",
			OldAccuracy: current.CurrentAccuracy,
			SampleCount: len(points),
		}, current
	}

	fitted, err := model.FitRegression(points)
	if err != nil {
		return Result{
			Success:     false,
			Reason:      fmt.Sprintf("fit failed: %v", err),
			OldAccuracy: current.CurrentAccuracy,
			SampleCount: len(points),
		}, current
	}

	replaced := true
	reason := "model replaced"
	if s.config.Policy == PolicyReplaceIfBetter && current.Trained != nil && fitted.Accuracy < current.CurrentAccuracy {
		replaced = false
		reason = fmt.Sprintf("kept existing model: new accuracy %.4f below current %.4f", fitted.Accuracy, current.CurrentAccuracy)
	}

	next := current
	if replaced {
		next = model.State{
			Category:        current.Category,
			VersionID:       uuid.New().String(),
			Trained:         fitted,
			CurrentAccuracy: fitted.Accuracy,
			SampleCount:     len(points),
			LastUpdate:      now,
		}
	}

	return Result{
		Success:     true,
		Reason:      reason,
		Replaced:    replaced,
		OldAccuracy: current.CurrentAccuracy,
		NewAccuracy: fitted.Accuracy,
		SampleCount: len(points),
		VersionID:   next.VersionID,
		DurationMs:  time.Since(start).Milliseconds(),
	}, next
}

// #endregion fit
