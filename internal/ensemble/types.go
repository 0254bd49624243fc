package ensemble

import "fmt"

// #region category

// Category classifies a suggestion for scoring purposes.
// All engine state is partitioned by Category; there is no
// cross-category interaction.
type Category string

const (
	CategoryPatternDetection        Category = "pattern_detection"
	CategoryCausalAnalysis          Category = "causal_analysis"
	CategoryPerformanceOptimization Category = "performance_optimization"
	CategoryRiskAssessment          Category = "risk_assessment"
	CategorySecurityAnalysis        Category = "security_analysis"
	CategoryComprehensive           Category = "comprehensive"
)

// AllCategories returns the fixed set of known categories.
func AllCategories() []Category {
	return []Category{
		CategoryPatternDetection,
		CategoryCausalAnalysis,
		CategoryPerformanceOptimization,
		CategoryRiskAssessment,
		CategorySecurityAnalysis,
		CategoryComprehensive,
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, k := range AllCategories() {
		if c == k {
			return true
		}
	}
	return false
}

// #endregion category

// #region validator-signal

// ValidatorSignal is one validator's (score, confidence) pair for a
// single scoring call. Name is unique within a call.
type ValidatorSignal struct {
	Name       string
	Score      float64 // [0,1]
	Confidence float64 // [0,1]
}

// #endregion validator-signal

// #region validation

// ValidateScore rejects scores outside [0,1].
func ValidateScore(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s %.4f out of range [0,1]", name, v)
	}
	return nil
}

// ValidateValidatorScores rejects empty maps and out-of-range entries.
// Called before any state mutation.
func ValidateValidatorScores(scores map[string]float64) error {
	if len(scores) == 0 {
		return fmt.Errorf("validator scores map is empty")
	}
	for name, s := range scores {
		if name == "" {
			return fmt.Errorf("validator with empty name")
		}
		if err := ValidateScore("validator "+name, s); err != nil {
			return err
		}
	}
	return nil
}

// AllZero reports whether every score in the map is zero.
func AllZero(scores map[string]float64) bool {
	for _, s := range scores {
		if s != 0 {
			return false
		}
	}
	return true
}

// #endregion validation
