package weights

import (
	"math"
	"testing"

	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/ensemble"
)

func newTestState() (Configuration, *State) {
	cfg := NewConfiguration(ensemble.CategoryPatternDetection, []string{"A", "B"})
	return cfg, NewState(cfg)
}

func TestAdjustWorkedExample(t *testing.T) {
	// rate 0.01, actual 0.9, predicted 0.7 → predictionError 0.2
	// A: validatorError 0.1, relative 0.5  → delta +0.005
	// B: validatorError 0.3, relative -0.5 → delta -0.005
	_, state := newTestState()
	c := NewController(0.01, StrategyErrorProportional)

	deltas, err := c.Adjust(state, 0.2, map[string]float64{"A": 0.8, "B": 0.6}, 0.9)
	if err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	if math.Abs(deltas["A"]-0.005) > 1e-9 {
		t.Fatalf("expected delta A +0.005, got %f", deltas["A"])
	}
	if math.Abs(deltas["B"]+0.005) > 1e-9 {
		t.Fatalf("expected delta B -0.005, got %f", deltas["B"])
	}

	if state.AdaptationCount != 1 {
		t.Fatalf("expected adaptation count 1, got %d", state.AdaptationCount)
	}
	if state.LastAdaptation.IsZero() {
		t.Fatal("expected last adaptation timestamp")
	}
	if math.Abs(state.PendingAdjustments["A"]-0.005) > 1e-9 {
		t.Fatalf("expected pending A +0.005, got %f", state.PendingAdjustments["A"])
	}
}

func TestAdjustDeltasAccumulate(t *testing.T) {
	_, state := newTestState()
	c := NewController(0.01, StrategyErrorProportional)

	for i := 0; i < 3; i++ {
		if _, err := c.Adjust(state, 0.2, map[string]float64{"A": 0.8, "B": 0.6}, 0.9); err != nil {
			t.Fatalf("Adjust %d: %v", i, err)
		}
	}
	if math.Abs(state.PendingAdjustments["A"]-0.015) > 1e-9 {
		t.Fatalf("expected accumulated pending 0.015, got %f", state.PendingAdjustments["A"])
	}
	if state.AdaptationCount != 3 {
		t.Fatalf("expected adaptation count 3, got %d", state.AdaptationCount)
	}
}

func TestAdjustNearZeroPredictionError(t *testing.T) {
	// ε floor: a validator matching actual exactly gets relative ≈ 1.
	_, state := newTestState()
	c := NewController(0.01, StrategyErrorProportional)

	deltas, err := c.Adjust(state, 0, map[string]float64{"A": 0.85}, 0.9)
	if err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	if deltas["A"] == 0 {
		t.Fatal("expected non-zero delta with epsilon floor")
	}
}

func TestAdjustRejectsBadScores(t *testing.T) {
	_, state := newTestState()
	c := NewController(0.01, StrategyErrorProportional)

	if _, err := c.Adjust(state, 0.2, nil, 0.9); err == nil {
		t.Fatal("expected empty map rejection")
	}
	if _, err := c.Adjust(state, 0.2, map[string]float64{"A": 0, "B": 0}, 0.9); err == nil {
		t.Fatal("expected all-zero map rejection")
	}
	if state.AdaptationCount != 0 {
		t.Fatal("rejected calls must not count as adaptations")
	}
}

func TestStrategyScaling(t *testing.T) {
	_, conservative := newTestState()
	_, aggressive := newTestState()

	dc, err := NewController(0.01, StrategyConservative).Adjust(conservative, 0.2, map[string]float64{"A": 0.8}, 0.9)
	if err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	da, err := NewController(0.01, StrategyAggressive).Adjust(aggressive, 0.2, map[string]float64{"A": 0.8}, 0.9)
	if err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	if math.Abs(da["A"]-4*dc["A"]) > 1e-9 {
		t.Fatalf("expected aggressive delta 4x conservative, got %f vs %f", da["A"], dc["A"])
	}
}

func TestApplyPendingClampsToBounds(t *testing.T) {
	cfg, state := newTestState()

	state.PendingAdjustments["A"] = 10   // way past max
	state.PendingAdjustments["B"] = -10  // way past min
	state.ApplyPending(cfg.WeightBounds) // bounds are [0.05, 0.5]

	if state.CurrentWeights["A"] != 0.5 {
		t.Fatalf("expected A clamped to 0.5, got %f", state.CurrentWeights["A"])
	}
	if state.CurrentWeights["B"] != 0.05 {
		t.Fatalf("expected B clamped to 0.05, got %f", state.CurrentWeights["B"])
	}
	if len(state.PendingAdjustments) != 0 {
		t.Fatal("expected pending adjustments cleared")
	}
}

func TestApplyPendingSmallDelta(t *testing.T) {
	cfg, state := newTestState()
	before := state.CurrentWeights["A"]

	state.PendingAdjustments["A"] = 0.01
	state.ApplyPending(cfg.WeightBounds)

	if math.Abs(state.CurrentWeights["A"]-(before+0.01)) > 1e-9 {
		t.Fatalf("expected %f, got %f", before+0.01, state.CurrentWeights["A"])
	}
}

func TestConfigurationValidate(t *testing.T) {
	cfg := NewConfiguration(ensemble.CategoryCausalAnalysis, []string{"pattern", "causal", "performance", "domain"})
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid configuration: %v", err)
	}

	missing := NewConfiguration(ensemble.CategoryCausalAnalysis, []string{"a", "b"})
	delete(missing.WeightBounds, "b")
	if err := missing.Validate(); err == nil {
		t.Fatal("expected missing bounds rejection")
	}

	skewed := NewConfiguration(ensemble.CategoryCausalAnalysis, []string{"a", "b"})
	skewed.BaseWeights["a"] = 0.9 // sum now 1.4
	if err := skewed.Validate(); err == nil {
		t.Fatal("expected weight-sum rejection")
	}
}
