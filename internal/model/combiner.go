package model

// #region neutral-fallback

// Neutral fallback returned when no sub-model can score the input.
const (
	NeutralScore      = 0.5
	NeutralConfidence = 0.1
)

// #endregion neutral-fallback

// #region combiner

// Combine merges the available sub-models' outputs into one prediction:
// confidence-weighted average score, mean confidence. With no available
// sub-model it returns the neutral fallback instead of failing.
func Combine(in Input, models []Model) Prediction {
	breakdown := make(map[string]SubScore)
	contributions := make(map[string]float64)

	var weightedSum, confSum float64
	available := 0
	for _, m := range models {
		if m == nil || !m.Available(in) {
			continue
		}
		score, conf := m.Predict(in)
		kind := string(m.Kind())
		breakdown[kind] = SubScore{Score: score, Confidence: conf}
		contributions[kind] = score
		weightedSum += score * conf
		confSum += conf
		available++
	}

	if available == 0 || confSum == 0 {
		return Prediction{
			Score:         NeutralScore,
			Confidence:    NeutralConfidence,
			Breakdown:     breakdown,
			Contributions: contributions,
		}
	}

	return Prediction{
		Score:         clamp01(weightedSum / confSum),
		Confidence:    clamp01(confSum / float64(available)),
		Breakdown:     breakdown,
		Contributions: contributions,
	}
}

// #endregion combiner
