package engine

import (
	"time"

	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/ensemble"
	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/history"
	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/model"
	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/retrain"
	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/trend"
)

// #region feedback-result

// FeedbackResult is the consolidated outcome of one feedback cycle.
// Always well-formed: internal sub-step failures surface in
// ErrorMessage/Warnings with the other fields at safe defaults.
type FeedbackResult struct {
	Category        ensemble.Category
	CycleID         string
	PredictionError float64
	Adjustments     map[string]float64 // per-validator weight deltas, nil when not adapted
	Accuracy        float64            // EMA accuracy after this cycle
	Retraining      *retrain.Result    // nil when no retrain was attempted
	Insights        []string
	Warnings        []string // local sub-step failures
	ErrorMessage    string   // unexpected internal failure
	DurationMs      int64
}

// #endregion feedback-result

// #region continuous-learning

// OnlineOutcome reports the conditional online-learning update.
type OnlineOutcome struct {
	Applied bool
	Reason  string
	Samples int
}

// LearningResult is the outcome of one continuous-learning sweep for a
// category.
type LearningResult struct {
	Category ensemble.Category
	Trends   trend.PerformanceTrends
	Drift    trend.DriftDetection
	Online   OnlineOutcome
}

// #endregion continuous-learning

// #region online-learner

// OnlineLearner is the pluggable fine-tuning strategy applied by
// continuous learning. The default is a single SGD pass; NoopLearner
// disables fine-tuning.
type OnlineLearner interface {
	Name() string
	Update(m *model.Regression, points []history.TrainingPoint)
}

// SGDLearner nudges regression coefficients with one stochastic
// gradient pass over the batch.
type SGDLearner struct {
	Rate float64
}

// Name implements OnlineLearner.
func (s SGDLearner) Name() string { return "sgd" }

// Update implements OnlineLearner.
func (s SGDLearner) Update(m *model.Regression, points []history.TrainingPoint) {
	m.FineTune(points, s.Rate)
}

// NoopLearner leaves the model untouched.
type NoopLearner struct{}

// Name implements OnlineLearner.
func (NoopLearner) Name() string { return "noop" }

// Update implements OnlineLearner.
func (NoopLearner) Update(*model.Regression, []history.TrainingPoint) {}

// #endregion online-learner

// #region report

// CategoryReport is the read-only per-category snapshot in a report.
type CategoryReport struct {
	Category        ensemble.Category
	CycleCount      int
	BufferSize      int
	AdaptationCount int
	CurrentWeights  map[string]float64
	PendingCount    int
	CurrentAccuracy float64
	AverageError    float64
	ModelVersion    string // empty until first retrain
	ModelSamples    int
	LastAdaptation  time.Time
	LastRetraining  time.Time
	SchedulerPhase  retrain.Phase
}

// Report aggregates all categories. Generation never mutates state.
type Report struct {
	GeneratedAt time.Time
	Categories  []CategoryReport
}

// #endregion report
