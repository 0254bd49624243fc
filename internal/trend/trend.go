// Package trend derives rolling performance statistics and concept
// drift signals from the learning history.
package trend

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/history"
)

// minTrendSamples is the smallest window that produces a real trend.
const minTrendSamples = 5

// #region analyzer

// Analyzer computes trends and drift over learning cycles.
type Analyzer struct {
	config Config
}

// NewAnalyzer creates an analyzer with the given configuration.
func NewAnalyzer(config Config) *Analyzer {
	return &Analyzer{config: config}
}

// #endregion analyzer

// #region analyze-trends

// AnalyzeTrends computes rolling error statistics over the most recent
// Window cycles. Fewer than 5 cycles yields a neutral default.
func (a *Analyzer) AnalyzeTrends(cycles []history.LearningCycle) PerformanceTrends {
	if len(cycles) > a.config.Window {
		cycles = cycles[len(cycles)-a.config.Window:]
	}
	n := len(cycles)
	if n < minTrendSamples {
		return PerformanceTrends{
			AccuracyStability: 1,
			SampleCount:       n,
			Reason:            fmt.Sprintf("insufficient cycles: %d < %d", n, minTrendSamples),
		}
	}

	errors := make([]float64, n)
	var sum float64
	for i, c := range cycles {
		errors[i] = c.PredictionError
		sum += c.PredictionError
	}
	avg := sum / float64(n)

	slope := olsSlope(errors)
	stability := 1.0 / (1.0 + accuracyStddev(errors))

	requires := avg > a.config.ErrorThresholdForOptimization ||
		slope > a.config.TrendThresholdForOptimization

	reason := "within thresholds"
	if requires {
		reason = fmt.Sprintf("avg error %.4f / slope %.4f exceeds thresholds", avg, slope)
	}

	return PerformanceTrends{
		AverageError:         avg,
		ErrorTrend:           slope,
		AccuracyStability:    stability,
		RequiresOptimization: requires,
		SampleCount:          n,
		Reason:               reason,
	}
}

// #endregion analyze-trends

// #region detect-drift

// DetectDrift splits history into a trailing DriftWindow ("recent")
// and everything before it ("historical"), and compares mean accuracy.
// Too little data means no drift is reported.
func (a *Analyzer) DetectDrift(cycles []history.LearningCycle) DriftDetection {
	n := len(cycles)
	if n < a.config.MinSamplesForDrift {
		return DriftDetection{
			Reason: fmt.Sprintf("insufficient cycles: %d < %d", n, a.config.MinSamplesForDrift),
		}
	}

	split := n - a.config.DriftWindow
	if split <= 0 {
		return DriftDetection{Reason: "no historical segment before drift window"}
	}

	historical := meanAccuracy(cycles[:split])
	recent := meanAccuracy(cycles[split:])

	drift := math.Abs(recent - historical)
	detected := drift > a.config.DriftThreshold
	severity := drift / a.config.DriftThreshold

	reason := fmt.Sprintf("accuracy drift %.4f within threshold %.4f", drift, a.config.DriftThreshold)
	if detected {
		reason = fmt.Sprintf("accuracy drift %.4f exceeds threshold %.4f", drift, a.config.DriftThreshold)
	}

	return DriftDetection{
		DriftDetected:      detected,
		Severity:           severity,
		AccuracyDrift:      drift,
		RecentAccuracy:     recent,
		HistoricalAccuracy: historical,
		Reason:             reason,
	}
}

// #endregion detect-drift

// #region helpers

// olsSlope computes the ordinary-least-squares slope of values indexed
// by position: slope = (n·Σxy − Σx·Σy) / (n·Σx² − (Σx)²).
func olsSlope(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// accuracyStddev computes the population stddev of (1 - error).
func accuracyStddev(errors []float64) float64 {
	n := float64(len(errors))
	if n == 0 {
		return 0
	}
	var sum float64
	for _, e := range errors {
		sum += 1 - e
	}
	mean := sum / n
	var sq float64
	for _, e := range errors {
		d := (1 - e) - mean
		sq += d * d
	}
	return math.Sqrt(sq / n)
}

// meanAccuracy computes the mean of (1 - error) over cycles.
func meanAccuracy(cycles []history.LearningCycle) float64 {
	if len(cycles) == 0 {
		return 0
	}
	var sum float64
	for _, c := range cycles {
		sum += 1 - c.PredictionError
	}
	return sum / float64(len(cycles))
}

// #endregion helpers
