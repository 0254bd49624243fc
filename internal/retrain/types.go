package retrain

import "time"

// #region phase

// Phase is the scheduler's state-machine position for one category.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseEvaluating Phase = "evaluating"
	PhaseRetraining Phase = "retraining"
)

// #endregion phase

// #region policy

// Policy controls whether a freshly fitted model replaces the current
// one unconditionally or only on improvement.
type Policy string

const (
	PolicyReplaceAlways   Policy = "replace_always"
	PolicyReplaceIfBetter Policy = "replace_if_better"
)

// #endregion policy

// #region config

// Config holds the retraining trigger thresholds.
type Config struct {
	AccuracyThreshold float64       // retrain when accuracy drops below
	AdaptationCount   int           // retrain after N weight adaptations
	Interval          time.Duration // retrain when model older than this
	MinSamples        int           // minimum training buffer size
	Policy            Policy
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		AccuracyThreshold: 0.7,
		AdaptationCount:   10,
		Interval:          24 * time.Hour,
		MinSamples:        50,
		Policy:            PolicyReplaceAlways,
	}
}

// #endregion config

// #region trigger

// Trigger is the outcome of evaluating the retrain conditions.
type Trigger struct {
	Should  bool
	Reasons []string // one entry per condition that fired
}

// #endregion trigger

// #region result

// Result reports one retraining run. Insufficient data is a reported
// condition, not an error.
type Result struct {
	Success     bool
	Reason      string
	Replaced    bool
	OldAccuracy float64
	NewAccuracy float64
	SampleCount int
	VersionID   string
	DurationMs  int64
}

// #endregion result
