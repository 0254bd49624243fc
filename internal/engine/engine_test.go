package engine

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/config"
	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/ensemble"
	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/feedback"
	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/history"
	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/model"
)

func validScores() map[string]float64 {
	return map[string]float64{"pattern": 0.7, "causal": 0.6, "performance": 0.8, "domain": 0.5}
}

// #region input-validation

func TestProcessFeedbackRejectsBadInput(t *testing.T) {
	e := New(config.Default(), nil, nil)

	cases := []struct {
		name string
		call func() error
	}{
		{"unknown category", func() error {
			_, err := e.ProcessFeedback("nonsense", "text", "", 0.5, 0.5, validScores())
			return err
		}},
		{"actual out of range", func() error {
			_, err := e.ProcessFeedback(ensemble.CategoryPatternDetection, "text", "", 1.5, 0.5, validScores())
			return err
		}},
		{"predicted out of range", func() error {
			_, err := e.ProcessFeedback(ensemble.CategoryPatternDetection, "text", "", 0.5, -0.1, validScores())
			return err
		}},
		{"validator score out of range", func() error {
			_, err := e.ProcessFeedback(ensemble.CategoryPatternDetection, "text", "", 0.5, 0.5, map[string]float64{"pattern": 2})
			return err
		}},
		{"validator not in configured set", func() error {
			_, err := e.ProcessFeedback(ensemble.CategoryPatternDetection, "text", "", 0.5, 0.5, map[string]float64{"X": 0.1})
			return err
		}},
	}
	for _, tc := range cases {
		if err := tc.call(); err == nil {
			t.Fatalf("%s: expected rejection", tc.name)
		}
	}

	// Rejected inputs must not leave partial state behind.
	for _, cr := range e.GenerateReport().Categories {
		if cr.CycleCount != 0 || cr.BufferSize != 0 || cr.AdaptationCount != 0 {
			t.Fatalf("rejected input mutated state for %s: %+v", cr.Category, cr)
		}
	}
}

func TestUnknownValidatorCannotEscapeWeightBounds(t *testing.T) {
	e := New(config.Default(), nil, nil)

	for i := 0; i < 200; i++ {
		if _, err := e.ProcessFeedback(ensemble.CategoryPatternDetection,
			fmt.Sprintf("suggestion %d", i), "", 0.9, 0.4, map[string]float64{"X": 0.1}); err == nil {
			t.Fatalf("cycle %d: expected unconfigured validator rejection", i)
		}
	}
	if _, err := e.Predict(ensemble.CategoryPatternDetection, "text", ""); err != nil {
		t.Fatalf("Predict: %v", err)
	}

	for _, cr := range e.GenerateReport().Categories {
		if _, ok := cr.CurrentWeights["X"]; ok {
			t.Fatalf("unconfigured validator gained a weight: %+v", cr.CurrentWeights)
		}
		for name, w := range cr.CurrentWeights {
			if w < 0.05 || w > 0.5 {
				t.Fatalf("weight %s=%f escaped bounds [0.05, 0.5]", name, w)
			}
		}
	}
}

// #endregion input-validation

// #region feedback-cycle

func TestProcessFeedbackAccuracyConverges(t *testing.T) {
	e := New(config.Default(), nil, nil)

	var last FeedbackResult
	for i := 0; i < 60; i++ {
		res, err := e.ProcessFeedback(ensemble.CategoryPatternDetection,
			fmt.Sprintf("suggestion %d", i), "", 0.8, 0.8, validScores())
		if err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
		if res.ErrorMessage != "" {
			t.Fatalf("cycle %d internal failure: %s", i, res.ErrorMessage)
		}
		if len(res.Adjustments) != 0 {
			t.Fatalf("cycle %d: zero error must not adjust weights", i)
		}
		last = res
	}

	if last.Accuracy < 0.99 {
		t.Fatalf("expected EMA accuracy to converge above 0.99, got %f", last.Accuracy)
	}
	if last.PredictionError != 0 {
		t.Fatalf("expected zero prediction error, got %f", last.PredictionError)
	}
	if len(last.Insights) == 0 {
		t.Fatal("expected insights")
	}
}

func TestProcessFeedbackAdaptsOnLargeError(t *testing.T) {
	e := New(config.Default(), nil, nil)

	res, err := e.ProcessFeedback(ensemble.CategoryCausalAnalysis, "text", "", 0.9, 0.4, validScores())
	if err != nil {
		t.Fatalf("ProcessFeedback: %v", err)
	}
	if len(res.Adjustments) != len(validScores()) {
		t.Fatalf("expected one delta per validator, got %d", len(res.Adjustments))
	}

	for _, cr := range e.GenerateReport().Categories {
		if cr.Category == ensemble.CategoryCausalAnalysis {
			if cr.AdaptationCount != 1 {
				t.Fatalf("expected adaptation count 1, got %d", cr.AdaptationCount)
			}
			if cr.PendingCount == 0 {
				t.Fatal("expected pending adjustments awaiting the next prediction")
			}
		}
	}
}

func TestProcessFeedbackIsolatesCategories(t *testing.T) {
	e := New(config.Default(), nil, nil)

	if _, err := e.ProcessFeedback(ensemble.CategoryPatternDetection, "text", "", 0.9, 0.4, validScores()); err != nil {
		t.Fatalf("ProcessFeedback: %v", err)
	}

	for _, cr := range e.GenerateReport().Categories {
		if cr.Category == ensemble.CategoryPatternDetection {
			if cr.CycleCount != 1 {
				t.Fatalf("expected 1 cycle, got %d", cr.CycleCount)
			}
			continue
		}
		if cr.CycleCount != 0 || cr.AdaptationCount != 0 {
			t.Fatalf("feedback leaked into %s", cr.Category)
		}
	}
}

// #endregion feedback-cycle

// #region retraining

func retrainEagerConfig() config.EngineConfig {
	cfg := config.Default()
	cfg.AccuracyThresholdForRetraining = 0.99 // trigger every cycle
	cfg.MinSamplesForRetraining = 5
	return cfg
}

func TestRetrainingInsufficientDataThenSuccess(t *testing.T) {
	e := New(retrainEagerConfig(), nil, nil)

	var last FeedbackResult
	for i := 0; i < 5; i++ {
		res, err := e.ProcessFeedback(ensemble.CategoryPatternDetection,
			fmt.Sprintf("add caching to handler %d", i), "api layer",
			0.3+0.1*float64(i), 0.5, validScores())
		if err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
		if res.Retraining == nil {
			t.Fatalf("cycle %d: expected a retraining attempt", i)
		}
		if i < 4 {
			if res.Retraining.Success {
				t.Fatalf("cycle %d: expected insufficient data, got %+v", i, res.Retraining)
			}
			if res.Retraining.Reason != "insufficient data" {
				t.Fatalf("cycle %d: unexpected reason %q", i, res.Retraining.Reason)
			}
		}
		last = res
	}

	if !last.Retraining.Success || !last.Retraining.Replaced {
		t.Fatalf("expected successful replacement at 5 samples, got %+v", last.Retraining)
	}
	if last.Retraining.VersionID == "" {
		t.Fatal("expected a model version id")
	}

	for _, cr := range e.GenerateReport().Categories {
		if cr.Category == ensemble.CategoryPatternDetection {
			if cr.ModelVersion == "" {
				t.Fatal("expected report to carry the trained model version")
			}
			if cr.AdaptationCount != 0 {
				t.Fatalf("expected adaptation count reset after retrain, got %d", cr.AdaptationCount)
			}
			if cr.SchedulerPhase != "idle" {
				t.Fatalf("expected scheduler back to idle, got %s", cr.SchedulerPhase)
			}
		}
	}
}

// #endregion retraining

// #region predict

func TestPredictNeutralFallback(t *testing.T) {
	e := New(config.Default(), nil, nil)

	p, err := e.Predict(ensemble.CategoryComprehensive, "untrained category, no signals", "")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if p.Score != 0.5 || p.Confidence != 0.1 {
		t.Fatalf("expected neutral fallback, got (%f, %f)", p.Score, p.Confidence)
	}
}

func TestPredictFromSignals(t *testing.T) {
	e := New(config.Default(), nil, nil)

	p, err := e.Predict(ensemble.CategoryPatternDetection, "text", "",
		ensemble.ValidatorSignal{Name: "pattern", Score: 0.8, Confidence: 0.5},
		ensemble.ValidatorSignal{Name: "causal", Score: 0.6, Confidence: 0.5},
	)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	// Uniform weights: signal ensemble averages the two scores.
	if p.Score < 0.69 || p.Score > 0.71 {
		t.Fatalf("expected score near 0.7, got %f", p.Score)
	}
	if _, ok := p.Breakdown["ensemble"]; !ok {
		t.Fatalf("expected signal ensemble in breakdown, got %+v", p.Breakdown)
	}
}

func TestPredictRejectsBadSignal(t *testing.T) {
	e := New(config.Default(), nil, nil)
	if _, err := e.Predict(ensemble.CategoryPatternDetection, "text", "",
		ensemble.ValidatorSignal{Name: "pattern", Score: 1.2}); err == nil {
		t.Fatal("expected out-of-range signal rejection")
	}
}

func TestPredictConsumesPendingAdjustments(t *testing.T) {
	e := New(config.Default(), nil, nil)

	if _, err := e.ProcessFeedback(ensemble.CategoryPatternDetection, "text", "", 0.9, 0.4, validScores()); err != nil {
		t.Fatalf("ProcessFeedback: %v", err)
	}
	if _, err := e.Predict(ensemble.CategoryPatternDetection, "text", ""); err != nil {
		t.Fatalf("Predict: %v", err)
	}

	for _, cr := range e.GenerateReport().Categories {
		if cr.Category == ensemble.CategoryPatternDetection && cr.PendingCount != 0 {
			t.Fatalf("expected prediction to consume pending adjustments, %d left", cr.PendingCount)
		}
	}
}

// #endregion predict

// #region continuous-learning

func TestRunContinuousLearningNoSignal(t *testing.T) {
	e := New(config.Default(), nil, nil)

	res, err := e.RunContinuousLearning(ensemble.CategoryPatternDetection)
	if err != nil {
		t.Fatalf("RunContinuousLearning: %v", err)
	}
	if res.Online.Applied {
		t.Fatal("expected no online update without optimization or drift signal")
	}
	if res.Online.Reason == "" {
		t.Fatal("expected a skip reason")
	}
}

func TestRunContinuousLearningRejectsUnknownCategory(t *testing.T) {
	e := New(config.Default(), nil, nil)
	if _, err := e.RunContinuousLearning("nonsense"); err == nil {
		t.Fatal("expected unknown category rejection")
	}
}

// feedHighErrorCycles trains a model and leaves the history with large
// enough errors that a continuous-learning sweep reaches fine-tuning.
func feedHighErrorCycles(t *testing.T, e *Engine, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := e.ProcessFeedback(ensemble.CategoryPatternDetection,
			fmt.Sprintf("suggestion %d", i), "", 0.9, 0.4, validScores()); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
	}
}

func TestRunContinuousLearningAppliesUpdate(t *testing.T) {
	e := New(retrainEagerConfig(), nil, nil)
	feedHighErrorCycles(t, e, 12)

	res, err := e.RunContinuousLearning(ensemble.CategoryPatternDetection)
	if err != nil {
		t.Fatalf("RunContinuousLearning: %v", err)
	}
	if !res.Trends.RequiresOptimization {
		t.Fatalf("expected optimization flag on 0.5 average error: %+v", res.Trends)
	}
	if !res.Online.Applied {
		t.Fatalf("expected online update applied: %+v", res.Online)
	}
	if res.Online.Samples == 0 {
		t.Fatal("expected a non-empty fine-tune batch")
	}
}

// retrainingLearner drives a feedback cycle from inside the fine-tune
// step, forcing a model replacement between clone and write-back.
type retrainingLearner struct {
	t *testing.T
	e *Engine
}

func (l retrainingLearner) Name() string { return "interleaved" }

func (l retrainingLearner) Update(m *model.Regression, points []history.TrainingPoint) {
	m.FineTune(points, 0.05)
	if _, err := l.e.ProcessFeedback(ensemble.CategoryPatternDetection,
		"feedback during fine-tuning", "", 0.9, 0.4, validScores()); err != nil {
		l.t.Errorf("mid-update feedback: %v", err)
	}
}

func TestRunContinuousLearningDiscardsStaleUpdate(t *testing.T) {
	e := New(retrainEagerConfig(), nil, nil)
	feedHighErrorCycles(t, e, 12)
	e.SetOnlineLearner(retrainingLearner{t: t, e: e})

	res, err := e.RunContinuousLearning(ensemble.CategoryPatternDetection)
	if err != nil {
		t.Fatalf("RunContinuousLearning: %v", err)
	}
	if res.Online.Applied {
		t.Fatal("fine-tuned clone of a replaced model must be discarded")
	}
	if res.Online.Reason == "" {
		t.Fatal("expected a discard reason")
	}
}

// #endregion continuous-learning

// #region transfer

func TestRegisterTransferRequiresTrainedSource(t *testing.T) {
	e := New(config.Default(), nil, nil)

	if err := e.RegisterTransfer(ensemble.CategoryCausalAnalysis, ensemble.CategoryPatternDetection); err == nil {
		t.Fatal("expected error for untrained source")
	}
	if err := e.RegisterTransfer(ensemble.CategoryCausalAnalysis, ensemble.CategoryCausalAnalysis); err == nil {
		t.Fatal("expected error for self transfer")
	}
}

func TestRegisterTransferAfterTraining(t *testing.T) {
	e := New(retrainEagerConfig(), nil, nil)

	for i := 0; i < 5; i++ {
		if _, err := e.ProcessFeedback(ensemble.CategoryPatternDetection,
			fmt.Sprintf("reduce allocation in parser %d", i), "hot path",
			0.4+0.1*float64(i), 0.5, validScores()); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
	}

	if err := e.RegisterTransfer(ensemble.CategoryCausalAnalysis, ensemble.CategoryPatternDetection); err != nil {
		t.Fatalf("RegisterTransfer: %v", err)
	}

	p, err := e.Predict(ensemble.CategoryCausalAnalysis, "reduce allocation in parser", "hot path")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if _, ok := p.Breakdown["transfer"]; !ok {
		t.Fatalf("expected transfer model in breakdown, got %+v", p.Breakdown)
	}
}

// #endregion transfer

// #region persistence

func TestProcessFeedbackPersistsCycles(t *testing.T) {
	store, err := feedback.NewStore(filepath.Join(t.TempDir(), "engine.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	e := New(config.Default(), nil, store)
	res, err := e.ProcessFeedback(ensemble.CategoryPatternDetection, "persisted suggestion", "", 0.8, 0.7, validScores())
	if err != nil {
		t.Fatalf("ProcessFeedback: %v", err)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", res.Warnings)
	}

	cycles, err := store.RecentCycles(string(ensemble.CategoryPatternDetection), 5)
	if err != nil {
		t.Fatalf("RecentCycles: %v", err)
	}
	if len(cycles) != 1 || cycles[0].CycleID != res.CycleID {
		t.Fatalf("expected the processed cycle persisted, got %+v", cycles)
	}
}

// #endregion persistence

// #region concurrency

func TestConcurrentFeedbackAcrossCategories(t *testing.T) {
	e := New(config.Default(), nil, nil)
	cats := ensemble.AllCategories()

	var wg sync.WaitGroup
	errs := make(chan error, len(cats)*10)
	for _, cat := range cats {
		wg.Add(1)
		go func(cat ensemble.Category) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				if _, err := e.ProcessFeedback(cat, fmt.Sprintf("suggestion %d", i), "", 0.7, 0.6, validScores()); err != nil {
					errs <- err
					return
				}
			}
		}(cat)
	}
	wg.Wait()
	close(errs)
	if err := <-errs; err != nil {
		t.Fatalf("concurrent feedback: %v", err)
	}

	for _, cr := range e.GenerateReport().Categories {
		if cr.CycleCount != 10 {
			t.Fatalf("category %s: expected 10 cycles, got %d", cr.Category, cr.CycleCount)
		}
	}
}

// #endregion concurrency
