// Package engine implements the ensemble orchestrator: the façade
// that, per feedback event, appends history, adapts weights, schedules
// retraining, and serves multi-model predictions.
package engine

import (
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/config"
	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/ensemble"
	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/feedback"
	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/features"
	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/history"
	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/model"
	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/retrain"
	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/trend"
	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/weights"
	"github.com/google/uuid"
)

// defaultValidators are the upstream analyzer names seeding the
// uniform initial weight configuration.
var defaultValidators = []string{"pattern", "causal", "performance", "domain"}

// insightWindow is the number of recent cycles summarized in insights.
const insightWindow = 5

// initialAccuracy seeds the EMA before any feedback arrives.
const initialAccuracy = 0.5

// #region category-state

// categoryState is all mutable state for one category, guarded by its
// own mutex. Categories never share state, so calls for different
// categories run fully in parallel.
type categoryState struct {
	mu         sync.Mutex
	config     weights.Configuration
	weights    *weights.State
	controller *weights.Controller
	history    *history.History
	buffer     *history.TrainingBuffer
	model      model.State
	scheduler  *retrain.Scheduler
	transfer   *model.Transfer
}

// #endregion category-state

// #region engine

// Engine is the adaptive ensemble scoring engine. Safe for concurrent
// use; feedback for the same category is serialized.
type Engine struct {
	config     config.EngineConfig
	extractor  features.Extractor
	store      *feedback.Store // nil = in-memory only
	analyzer   *trend.Analyzer
	online     OnlineLearner
	categories map[ensemble.Category]*categoryState
}

// New creates an engine with per-category state for every known
// category. A nil extractor falls back to the default text extractor;
// a nil store disables durable persistence.
func New(cfg config.EngineConfig, extractor features.Extractor, store *feedback.Store) *Engine {
	if extractor == nil {
		extractor = features.NewTextExtractor()
	}

	e := &Engine{
		config:    cfg,
		extractor: extractor,
		store:     store,
		analyzer: trend.NewAnalyzer(trend.Config{
			Window:                        cfg.TrendAnalysisWindow,
			ErrorThresholdForOptimization: cfg.ErrorThresholdForOptimization,
			TrendThresholdForOptimization: cfg.TrendThresholdForOptimization,
			MinSamplesForDrift:            cfg.MinSamplesForDriftDetection,
			DriftWindow:                   cfg.DriftDetectionWindow,
			DriftThreshold:                cfg.DriftThreshold,
		}),
		online:     SGDLearner{Rate: cfg.BaseLearningRate},
		categories: make(map[ensemble.Category]*categoryState),
	}

	now := time.Now().UTC()
	for _, cat := range ensemble.AllCategories() {
		wcfg := weights.NewConfiguration(cat, defaultValidators)
		wstate := weights.NewState(wcfg)
		wstate.LastRetraining = now
		e.categories[cat] = &categoryState{
			config:     wcfg,
			weights:    wstate,
			controller: weights.NewController(cfg.BaseLearningRate, wcfg.OptimizationStrategy),
			history:    history.NewHistory(cfg.MaxHistorySize),
			buffer:     history.NewTrainingBuffer(cfg.MaxTrainingBufferSize),
			model: model.State{
				Category:        cat,
				CurrentAccuracy: initialAccuracy,
				LastUpdate:      now,
			},
			scheduler: retrain.NewScheduler(retrain.Config{
				AccuracyThreshold: cfg.AccuracyThresholdForRetraining,
				AdaptationCount:   cfg.AdaptationCountForRetraining,
				Interval:          cfg.RetrainingDuration(),
				MinSamples:        cfg.MinSamplesForRetraining,
				Policy:            retrain.Policy(cfg.ReplacePolicy),
			}),
		}
	}
	return e
}

// SetOnlineLearner swaps the fine-tuning strategy. Call before use;
// not synchronized with in-flight sweeps.
func (e *Engine) SetOnlineLearner(l OnlineLearner) {
	if l != nil {
		e.online = l
	}
}

// #endregion engine

// #region process-feedback

// ProcessFeedback runs one feedback cycle for a category: append the
// learning cycle, adapt weights when the error exceeds the threshold,
// buffer the training point, update the accuracy EMA, and retrain when
// triggered. Malformed inputs fail before any state mutation; internal
// sub-step failures are captured into the result instead of
// propagating.
func (e *Engine) ProcessFeedback(category ensemble.Category, text, context string, actual, predicted float64, validatorScores map[string]float64) (result FeedbackResult, err error) {
	start := time.Now()

	// Input validation: atomicity of inputs, not of success.
	if !category.Valid() {
		return FeedbackResult{}, fmt.Errorf("unknown category %q", category)
	}
	if vErr := ensemble.ValidateScore("actual score", actual); vErr != nil {
		return FeedbackResult{}, vErr
	}
	if vErr := ensemble.ValidateScore("predicted score", predicted); vErr != nil {
		return FeedbackResult{}, vErr
	}
	if vErr := ensemble.ValidateValidatorScores(validatorScores); vErr != nil {
		return FeedbackResult{}, vErr
	}

	cs := e.categories[category]
	for name := range validatorScores {
		if _, ok := cs.config.BaseWeights[name]; !ok {
			return FeedbackResult{}, fmt.Errorf("unknown validator %q for category %s", name, category)
		}
	}

	locked := false
	lock := func() { cs.mu.Lock(); locked = true }
	unlock := func() { locked = false; cs.mu.Unlock() }

	defer func() {
		if r := recover(); r != nil {
			if locked {
				cs.mu.Unlock()
			}
			result = FeedbackResult{
				Category:     category,
				ErrorMessage: fmt.Sprintf("internal failure: %v", r),
			}
			err = nil
		}
		result.DurationMs = time.Since(start).Milliseconds()
	}()

	result = FeedbackResult{Category: category, CycleID: uuid.New().String()}
	predictionError := math.Abs(actual - predicted)
	result.PredictionError = predictionError
	now := time.Now().UTC()

	// Collaborator call, outside the lock.
	fs := e.extractor.Extract(text, context)

	lock()

	cs.history.Append(history.LearningCycle{
		ID:              result.CycleID,
		Timestamp:       now,
		SuggestionText:  text,
		ActualScore:     actual,
		PredictedScore:  predicted,
		PredictionError: predictionError,
		ValidatorScores: validatorScores,
	})

	if predictionError > e.config.ErrorThresholdForAdaptation && cs.config.DynamicWeighting {
		deltas, aErr := cs.controller.Adjust(cs.weights, predictionError, validatorScores, actual)
		if aErr != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("weight adaptation skipped: %v", aErr))
		} else {
			result.Adjustments = deltas
			log.Printf("[WEIGHTS] category=%s error=%.4f adaptations=%d", category, predictionError, cs.weights.AdaptationCount)
		}
	}

	cs.buffer.Append(history.TrainingPoint{
		SuggestionText:  text,
		Context:         context,
		ActualScore:     actual,
		ValidatorScores: validatorScores,
		Features:        fs,
		Timestamp:       now,
	})

	cs.model.CurrentAccuracy = 0.9*cs.model.CurrentAccuracy + 0.1*(1-predictionError)
	cs.model.SampleCount++
	cs.model.LastUpdate = now
	result.Accuracy = cs.model.CurrentAccuracy

	// Retraining: trigger evaluation under the lock, fit outside it,
	// re-lock only for the atomic swap.
	var retrainRes *retrain.Result
	if cs.scheduler.BeginEvaluation() {
		trigger := cs.scheduler.ShouldRetrain(cs.model.CurrentAccuracy, cs.weights.AdaptationCount, cs.weights.LastRetraining, now)
		if !trigger.Should {
			cs.scheduler.Finish()
		} else {
			cs.scheduler.StartRetraining()
			points := cs.buffer.All()
			current := cs.model
			unlock()

			res, next := cs.scheduler.Fit(points, current, now)

			lock()
			if res.Success {
				if res.Replaced {
					cs.model = next
				}
				cs.weights.AdaptationCount = 0
				cs.weights.LastRetraining = now
			}
			cs.scheduler.Finish()
			retrainRes = &res
			log.Printf("[RETRAIN] category=%s success=%v replaced=%v samples=%d reason=%q trigger=%v",
				category, res.Success, res.Replaced, res.SampleCount, res.Reason, trigger.Reasons)
		}
	}
	result.Retraining = retrainRes

	recent := cs.history.Recent(insightWindow)
	unlock()

	result.Insights = buildInsights(recent, &result)

	if e.store != nil {
		if sErr := e.store.AppendCycle(feedback.CycleRecord{
			CycleID:         result.CycleID,
			Category:        string(category),
			SuggestionText:  text,
			ActualScore:     actual,
			PredictedScore:  predicted,
			PredictionError: predictionError,
			ValidatorScores: validatorScores,
			CreatedAt:       now,
		}); sErr != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("feedback store append failed: %v", sErr))
		}
		if retrainRes != nil {
			if sErr := e.store.AppendRetrain(feedback.RetrainRecord{
				Category:    string(category),
				VersionID:   retrainRes.VersionID,
				Success:     retrainRes.Success,
				Replaced:    retrainRes.Replaced,
				OldAccuracy: retrainRes.OldAccuracy,
				NewAccuracy: retrainRes.NewAccuracy,
				SampleCount: retrainRes.SampleCount,
				Reason:      retrainRes.Reason,
				CreatedAt:   now,
			}); sErr != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("retrain log append failed: %v", sErr))
			}
		}
	}

	return result, nil
}

// #endregion process-feedback

// #region predict

// Predict scores a suggestion with the available sub-models. Pending
// weight adjustments are folded into the current weights (clamped to
// bounds) here, the consumption point. Validator signals are optional;
// without them only the regression and transfer models contribute.
func (e *Engine) Predict(category ensemble.Category, text, context string, signals ...ensemble.ValidatorSignal) (model.Prediction, error) {
	if !category.Valid() {
		return model.Prediction{}, fmt.Errorf("unknown category %q", category)
	}
	for _, sig := range signals {
		if err := ensemble.ValidateScore("signal "+sig.Name, sig.Score); err != nil {
			return model.Prediction{}, err
		}
	}

	fs := e.extractor.Extract(text, context)
	cs := e.categories[category]

	cs.mu.Lock()
	cs.weights.ApplyPending(cs.config.WeightBounds)
	effective := make(map[string]float64, len(cs.weights.CurrentWeights))
	for name, w := range cs.weights.CurrentWeights {
		effective[name] = w
	}
	trained := cs.model.Trained
	transfer := cs.transfer
	cs.mu.Unlock()

	in := model.Input{Features: fs, ValidatorSignals: signals, Weights: effective}
	var models []model.Model
	if trained != nil {
		models = append(models, trained)
	}
	models = append(models, model.SignalEnsemble{})
	if transfer != nil {
		models = append(models, transfer)
	}

	return model.Combine(in, models), nil
}

// #endregion predict

// #region continuous-learning

// RunContinuousLearning analyzes trends and drift for a category, then
// conditionally applies the online-learning strategy when the trends
// require optimization or drift is detected.
func (e *Engine) RunContinuousLearning(category ensemble.Category) (LearningResult, error) {
	if !category.Valid() {
		return LearningResult{}, fmt.Errorf("unknown category %q", category)
	}
	cs := e.categories[category]

	cs.mu.Lock()
	cycles := cs.history.All()
	bufLen := cs.buffer.Len()
	cs.mu.Unlock()

	res := LearningResult{
		Category: category,
		Trends:   e.analyzer.AnalyzeTrends(cycles),
		Drift:    e.analyzer.DetectDrift(cycles),
	}

	if !res.Trends.RequiresOptimization && !res.Drift.DriftDetected {
		res.Online = OnlineOutcome{Reason: "no optimization or drift signal"}
		return res, nil
	}
	if bufLen < e.config.MinSamplesForOnlineLearning {
		res.Online = OnlineOutcome{Reason: fmt.Sprintf("insufficient samples: %d < %d", bufLen, e.config.MinSamplesForOnlineLearning)}
		return res, nil
	}

	cs.mu.Lock()
	if cs.model.Trained == nil {
		cs.mu.Unlock()
		res.Online = OnlineOutcome{Reason: "no trained model"}
		return res, nil
	}
	batch := cs.buffer.Recent(e.config.OnlineLearningBatchSize)
	clone := *cs.model.Trained
	version := cs.model.VersionID
	cs.mu.Unlock()

	// Fine-tune a copy outside the lock, then swap the pointer back in
	// only if the model was not replaced by a retrain in the meantime.
	e.online.Update(&clone, batch)

	cs.mu.Lock()
	if cs.model.VersionID != version {
		cs.mu.Unlock()
		res.Online = OnlineOutcome{Reason: "model replaced during fine-tuning, update discarded"}
		return res, nil
	}
	cs.model.Trained = &clone
	cs.model.LastUpdate = time.Now().UTC()
	cs.mu.Unlock()

	res.Online = OnlineOutcome{
		Applied: true,
		Reason:  fmt.Sprintf("applied %s fine-tuning", e.online.Name()),
		Samples: len(batch),
	}
	log.Printf("[ENGINE] category=%s online learning applied: strategy=%s samples=%d", category, e.online.Name(), len(batch))
	return res, nil
}

// #endregion continuous-learning

// #region transfer-registry

// RegisterTransfer derives a transfer-adapted model for target from
// source's trained regression. The source model is copied, so later
// fine-tuning of either category does not leak across.
func (e *Engine) RegisterTransfer(target, source ensemble.Category) error {
	if !target.Valid() || !source.Valid() {
		return fmt.Errorf("unknown category in transfer %q ← %q", target, source)
	}
	if target == source {
		return fmt.Errorf("transfer source and target are both %q", target)
	}

	src := e.categories[source]
	src.mu.Lock()
	trained := src.model.Trained
	var clone model.Regression
	if trained != nil {
		clone = *trained
	}
	src.mu.Unlock()

	if trained == nil {
		return fmt.Errorf("source category %q has no trained model", source)
	}

	dst := e.categories[target]
	dst.mu.Lock()
	dst.transfer = model.NewTransfer(&clone)
	dst.mu.Unlock()

	log.Printf("[ENGINE] transfer model registered: %s ← %s", target, source)
	return nil
}

// #endregion transfer-registry

// #region report

// GenerateReport snapshots every category's state. Read-only: no
// weight application, no history mutation.
func (e *Engine) GenerateReport() Report {
	report := Report{GeneratedAt: time.Now().UTC()}
	for _, cat := range ensemble.AllCategories() {
		cs := e.categories[cat]
		cs.mu.Lock()

		weightsCopy := make(map[string]float64, len(cs.weights.CurrentWeights))
		for name, w := range cs.weights.CurrentWeights {
			weightsCopy[name] = w
		}

		var avgError float64
		cycles := cs.history.All()
		for _, c := range cycles {
			avgError += c.PredictionError
		}
		if len(cycles) > 0 {
			avgError /= float64(len(cycles))
		}

		report.Categories = append(report.Categories, CategoryReport{
			Category:        cat,
			CycleCount:      cs.history.Len(),
			BufferSize:      cs.buffer.Len(),
			AdaptationCount: cs.weights.AdaptationCount,
			CurrentWeights:  weightsCopy,
			PendingCount:    len(cs.weights.PendingAdjustments),
			CurrentAccuracy: cs.model.CurrentAccuracy,
			AverageError:    avgError,
			ModelVersion:    cs.model.VersionID,
			ModelSamples:    cs.model.SampleCount,
			LastAdaptation:  cs.weights.LastAdaptation,
			LastRetraining:  cs.weights.LastRetraining,
			SchedulerPhase:  cs.scheduler.Phase(),
		})
		cs.mu.Unlock()
	}
	return report
}

// #endregion report

// #region insights

// buildInsights produces the human-readable summary for one cycle:
// trend direction over the last insightWindow cycles plus notable
// events from this cycle.
func buildInsights(recent []history.LearningCycle, res *FeedbackResult) []string {
	var insights []string

	if len(recent) >= insightWindow {
		diff := recent[len(recent)-1].PredictionError - recent[0].PredictionError
		switch {
		case diff < -0.02:
			insights = append(insights, fmt.Sprintf("prediction error improving over last %d cycles (%.4f → %.4f)", len(recent), recent[0].PredictionError, recent[len(recent)-1].PredictionError))
		case diff > 0.02:
			insights = append(insights, fmt.Sprintf("prediction error worsening over last %d cycles (%.4f → %.4f)", len(recent), recent[0].PredictionError, recent[len(recent)-1].PredictionError))
		default:
			insights = append(insights, fmt.Sprintf("prediction error stable over last %d cycles", len(recent)))
		}
	} else {
		insights = append(insights, fmt.Sprintf("only %d cycles recorded, trend not yet meaningful", len(recent)))
	}

	if len(res.Adjustments) > 0 {
		insights = append(insights, fmt.Sprintf("adjusted weights for %d validators", len(res.Adjustments)))
	}
	if res.PredictionError > 0.3 {
		insights = append(insights, fmt.Sprintf("large prediction error %.4f, model confidence suspect", res.PredictionError))
	}
	if res.Retraining != nil {
		if res.Retraining.Success {
			insights = append(insights, fmt.Sprintf("retraining ran: %s (accuracy %.4f → %.4f)", res.Retraining.Reason, res.Retraining.OldAccuracy, res.Retraining.NewAccuracy))
		} else {
			insights = append(insights, fmt.Sprintf("retraining skipped: %s", res.Retraining.Reason))
		}
	}

	return insights
}

// #endregion insights
