package weights

import (
	"fmt"
	"time"

	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/ensemble"
)

// #region strategy

// Strategy selects how aggressively weight deltas are applied.
type Strategy string

const (
	StrategyErrorProportional Strategy = "error_proportional" // default
	StrategyConservative      Strategy = "conservative"       // half-scale deltas
	StrategyAggressive        Strategy = "aggressive"         // double-scale deltas
)

// scale returns the delta multiplier for the strategy.
func (s Strategy) scale() float64 {
	switch s {
	case StrategyConservative:
		return 0.5
	case StrategyAggressive:
		return 2.0
	default:
		return 1.0
	}
}

// #endregion strategy

// #region bounds

// Bounds is the allowed range for one validator's weight.
type Bounds struct {
	Min float64
	Max float64
}

// #endregion bounds

// #region configuration

// Configuration is the immutable per-category ensemble setup.
// Mutation happens on the derived State, never here.
type Configuration struct {
	Category             ensemble.Category
	BaseWeights          map[string]float64
	WeightBounds         map[string]Bounds
	DynamicWeighting     bool
	OptimizationStrategy Strategy
}

// NewConfiguration builds a uniform-weight configuration over the
// given validator names with default bounds [0.05, 0.5].
func NewConfiguration(category ensemble.Category, validators []string) Configuration {
	base := make(map[string]float64, len(validators))
	bounds := make(map[string]Bounds, len(validators))
	for _, v := range validators {
		base[v] = 1.0 / float64(len(validators))
		bounds[v] = Bounds{Min: 0.05, Max: 0.5}
	}
	return Configuration{
		Category:             category,
		BaseWeights:          base,
		WeightBounds:         bounds,
		DynamicWeighting:     true,
		OptimizationStrategy: StrategyErrorProportional,
	}
}

// Validate checks the initialization invariants: weights sum to ≈1 and
// every weight has a bound.
func (c Configuration) Validate() error {
	if len(c.BaseWeights) == 0 {
		return fmt.Errorf("configuration for %s has no base weights", c.Category)
	}
	var sum float64
	for name, w := range c.BaseWeights {
		sum += w
		b, ok := c.WeightBounds[name]
		if !ok {
			return fmt.Errorf("validator %s has no weight bounds", name)
		}
		if b.Min > b.Max {
			return fmt.Errorf("validator %s bounds inverted: %.4f > %.4f", name, b.Min, b.Max)
		}
	}
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("base weights sum %.4f, want ≈1.0", sum)
	}
	return nil
}

// #endregion configuration

// #region state

// State is the mutable per-category weight state derived from a
// Configuration. Mutated only by the weight controller and the
// retraining scheduler for its category.
type State struct {
	Category           ensemble.Category
	CurrentWeights     map[string]float64
	PendingAdjustments map[string]float64
	AdaptationCount    int
	LastAdaptation     time.Time
	LastRetraining     time.Time
}

// NewState derives the initial mutable state from a configuration.
func NewState(cfg Configuration) *State {
	current := make(map[string]float64, len(cfg.BaseWeights))
	for name, w := range cfg.BaseWeights {
		current[name] = w
	}
	return &State{
		Category:           cfg.Category,
		CurrentWeights:     current,
		PendingAdjustments: make(map[string]float64),
	}
}

// #endregion state
