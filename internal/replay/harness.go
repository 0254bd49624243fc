package replay

import (
	"fmt"

	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/engine"
	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/ensemble"
)

// #region summary

// Summary aggregates one replay run.
type Summary struct {
	TotalEvents     int
	InputErrors     int
	Adaptations     int
	RetrainAttempts int
	RetrainSuccess  int
	FinalAccuracy   map[ensemble.Category]float64
}

// #endregion summary

// #region run

// Run replays every fixture event through the engine in order and
// aggregates the outcomes. Input-validation failures are counted, not
// fatal, so partially malformed fixtures still replay.
func Run(e *engine.Engine, fx Fixture) (Summary, []engine.FeedbackResult) {
	summary := Summary{
		TotalEvents:   len(fx.Events),
		FinalAccuracy: make(map[ensemble.Category]float64),
	}
	results := make([]engine.FeedbackResult, 0, len(fx.Events))

	for _, ev := range fx.Events {
		res, err := e.ProcessFeedback(
			ensemble.Category(ev.Category),
			ev.SuggestionText,
			ev.Context,
			ev.ActualScore,
			ev.PredictedScore,
			ev.ValidatorScores,
		)
		if err != nil {
			summary.InputErrors++
			continue
		}
		results = append(results, res)

		if len(res.Adjustments) > 0 {
			summary.Adaptations++
		}
		if res.Retraining != nil {
			summary.RetrainAttempts++
			if res.Retraining.Success {
				summary.RetrainSuccess++
			}
		}
		summary.FinalAccuracy[res.Category] = res.Accuracy
	}

	return summary, results
}

// Describe renders a short human-readable summary.
func Describe(s Summary) string {
	out := fmt.Sprintf("events=%d input_errors=%d adaptations=%d retrain_attempts=%d retrain_success=%d",
		s.TotalEvents, s.InputErrors, s.Adaptations, s.RetrainAttempts, s.RetrainSuccess)
	for _, cat := range ensemble.AllCategories() {
		if acc, ok := s.FinalAccuracy[cat]; ok {
			out += fmt.Sprintf("\n  %s accuracy=%.4f", cat, acc)
		}
	}
	return out
}

// #endregion run
