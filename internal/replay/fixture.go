// Package replay drives the engine from recorded feedback fixtures,
// for offline tuning runs and regression checks.
package replay

import (
	"encoding/json"
	"fmt"
	"os"
)

// #region types

// Event is a single recorded feedback event for replay.
type Event struct {
	Category        string             `json:"category"`
	SuggestionText  string             `json:"suggestion_text"`
	Context         string             `json:"context,omitempty"`
	ActualScore     float64            `json:"actual_score"`
	PredictedScore  float64            `json:"predicted_score"`
	ValidatorScores map[string]float64 `json:"validator_scores"`
}

// Fixture is a named sequence of feedback events.
type Fixture struct {
	Name   string  `json:"name"`
	Events []Event `json:"events"`
}

// #endregion types

// #region load

// LoadFixture reads a JSON fixture from disk.
func LoadFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	var fx Fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture: %w", err)
	}
	if len(fx.Events) == 0 {
		return Fixture{}, fmt.Errorf("fixture %s has no events", path)
	}
	return fx, nil
}

// SaveFixture writes a fixture as indented JSON.
func SaveFixture(path string, fx Fixture) error {
	data, err := json.MarshalIndent(fx, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}
	return nil
}

// #endregion load
