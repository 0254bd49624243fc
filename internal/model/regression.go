// Package model implements the regression sub-model, the weighted
// validator ensemble, the transfer-adapted variant, and the
// confidence-weighted multi-model combiner.
package model

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/features"
	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/history"
)

// ridgeLambda damps the normal equations so near-collinear feature
// columns stay solvable.
const ridgeLambda = 0.01

// #region regression

// Regression is a linear model over the extracted feature vector with
// an intercept term. Coefficients[0] is the intercept.
type Regression struct {
	Coefficients [features.Dimension + 1]float64
	Accuracy     float64 // 1 - MAE on the training evaluation
}

// Kind implements Model.
func (r *Regression) Kind() Kind { return KindRegression }

// Available implements Model; a fitted regression scores any input.
func (r *Regression) Available(Input) bool { return r != nil }

// Predict implements Model. Confidence is the evaluated accuracy,
// floored at 0.1 so a poor model still contributes weakly.
func (r *Regression) Predict(in Input) (float64, float64) {
	score := r.Coefficients[0]
	for i, v := range in.Features.Values {
		score += r.Coefficients[i+1] * v
	}
	conf := r.Accuracy
	if conf < 0.1 {
		conf = 0.1
	}
	return clamp01(score), conf
}

// #endregion regression

// #region fit

// FitRegression fits a ridge-damped linear regression to the buffered
// training points via the normal equations, then evaluates it on the
// same points (accuracy = 1 - MAE).
func FitRegression(points []history.TrainingPoint) (*Regression, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("fit regression: no training points")
	}

	const dim = features.Dimension + 1

	// Accumulate XᵀX and Xᵀy with an implicit leading 1 per row.
	var xtx [dim][dim]float64
	var xty [dim]float64
	for _, p := range points {
		var row [dim]float64
		row[0] = 1
		copy(row[1:], p.Features.Values[:])
		for i := 0; i < dim; i++ {
			for j := 0; j < dim; j++ {
				xtx[i][j] += row[i] * row[j]
			}
			xty[i] += row[i] * p.ActualScore
		}
	}
	for i := 1; i < dim; i++ {
		xtx[i][i] += ridgeLambda
	}

	coef, err := solve(xtx, xty)
	if err != nil {
		return nil, fmt.Errorf("fit regression: %w", err)
	}

	model := &Regression{Coefficients: coef}
	model.Accuracy = 1 - model.Evaluate(points)
	if model.Accuracy < 0 {
		model.Accuracy = 0
	}
	return model, nil
}

// Evaluate returns the mean absolute error of the model on points.
func (r *Regression) Evaluate(points []history.TrainingPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range points {
		score, _ := r.Predict(Input{Features: p.Features})
		sum += math.Abs(p.ActualScore - score)
	}
	return sum / float64(len(points))
}

// FineTune runs one stochastic-gradient pass over points, nudging the
// coefficients toward the observed scores. Used by online learning.
func (r *Regression) FineTune(points []history.TrainingPoint, rate float64) {
	for _, p := range points {
		score, _ := r.Predict(Input{Features: p.Features})
		residual := p.ActualScore - score
		r.Coefficients[0] += rate * residual
		for i, v := range p.Features.Values {
			r.Coefficients[i+1] += rate * residual * v
		}
	}
}

// #endregion fit

// #region solver

// solve runs Gaussian elimination with partial pivoting on Ax = b.
func solve(a [features.Dimension + 1][features.Dimension + 1]float64, b [features.Dimension + 1]float64) ([features.Dimension + 1]float64, error) {
	const dim = features.Dimension + 1
	var x [features.Dimension + 1]float64

	for col := 0; col < dim; col++ {
		pivot := col
		for row := col + 1; row < dim; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return x, fmt.Errorf("singular system at column %d", col)
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for row := col + 1; row < dim; row++ {
			factor := a[row][col] / a[col][col]
			for k := col; k < dim; k++ {
				a[row][k] -= factor * a[col][k]
			}
			b[row] -= factor * b[col]
		}
	}

	for row := dim - 1; row >= 0; row-- {
		sum := b[row]
		for k := row + 1; k < dim; k++ {
			sum -= a[row][k] * x[k]
		}
		x[row] = sum / a[row][row]
	}
	return x, nil
}

// #endregion solver

// #region helpers

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
