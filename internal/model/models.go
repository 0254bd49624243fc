package model

// #region signal-ensemble

// SignalEnsemble scores by combining validator signals with the
// current (clamped) ensemble weights. It is the consumption point for
// pending weight adjustments.
type SignalEnsemble struct{}

// Kind implements Model.
func (SignalEnsemble) Kind() Kind { return KindEnsemble }

// Available implements Model; needs at least one validator signal.
func (SignalEnsemble) Available(in Input) bool {
	return len(in.ValidatorSignals) > 0
}

// Predict implements Model: weight-averaged validator score, with
// confidence the mean of the signal confidences. Signals without a
// configured weight fall back to weight 1.
func (SignalEnsemble) Predict(in Input) (float64, float64) {
	var weighted, totalWeight, confSum float64
	for _, sig := range in.ValidatorSignals {
		w := 1.0
		if in.Weights != nil {
			if cw, ok := in.Weights[sig.Name]; ok {
				w = cw
			}
		}
		weighted += w * sig.Score
		totalWeight += w
		confSum += sig.Confidence
	}
	if totalWeight == 0 {
		return 0.5, 0.1
	}
	return clamp01(weighted / totalWeight), clamp01(confSum / float64(len(in.ValidatorSignals)))
}

// #endregion signal-ensemble

// #region transfer

// transferConfidenceDiscount reflects that a borrowed model knows less
// about this category than a natively trained one.
const transferConfidenceDiscount = 0.8

// Transfer adapts a regression model trained on another category via a
// scale/bias correction.
type Transfer struct {
	Source *Regression
	Scale  float64
	Bias   float64
}

// NewTransfer wraps a source model with identity adaptation.
func NewTransfer(source *Regression) *Transfer {
	return &Transfer{Source: source, Scale: 1, Bias: 0}
}

// Kind implements Model.
func (t *Transfer) Kind() Kind { return KindTransfer }

// Available implements Model; needs a source model.
func (t *Transfer) Available(Input) bool {
	return t != nil && t.Source != nil
}

// Predict implements Model: source prediction through the scale/bias
// adaptation, confidence discounted.
func (t *Transfer) Predict(in Input) (float64, float64) {
	score, conf := t.Source.Predict(in)
	return clamp01(score*t.Scale + t.Bias), clamp01(conf * transferConfidenceDiscount)
}

// #endregion transfer
