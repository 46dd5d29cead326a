// Package regression implements the spatial regressors used to interpolate
// station measurements: k-nearest neighbors, epsilon support vector
// regression and gradient boosted regression trees. Every model is fit on
// (longitude, latitude) features.
package regression

import (
	"errors"
	"fmt"
	"math"

	"github.com/chrissnell/weatherdash/pkg/config"
)

// ErrRegressionFailure is wrapped by every error caused by a regressor
// rejecting its training data or being used before it was fit.
var ErrRegressionFailure = errors.New("regression failure")

func failure(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRegressionFailure, fmt.Sprintf(format, args...))
}

// Regressor fits a scalar target over two-dimensional points and predicts
// it at arbitrary points.
type Regressor interface {
	Fit(X [][2]float64, y []float64) error
	Predict(X [][2]float64) ([]float64, error)

	// Deterministic reports whether two fits on identical data yield
	// identical predictions.
	Deterministic() bool
}

// New returns an unfitted regressor for the given hyperparameters
func New(params config.ModelParams) (Regressor, error) {
	switch p := params.(type) {
	case config.KNNParams:
		return NewKNN(p), nil
	case config.SVRParams:
		return NewSVR(p), nil
	case config.GBRParams:
		return NewGBR(p), nil
	default:
		return nil, fmt.Errorf("unsupported model parameters %T", params)
	}
}

func checkTrainingData(X [][2]float64, y []float64) error {
	if len(X) == 0 {
		return failure("no training samples")
	}
	if len(X) != len(y) {
		return failure("%d samples but %d targets", len(X), len(y))
	}
	for i := range X {
		if !finite(X[i][0]) || !finite(X[i][1]) {
			return failure("sample %d has a non-finite position", i)
		}
		if !finite(y[i]) {
			return failure("target of sample %d is not finite (%v)", i, y[i])
		}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func sqDist(a, b [2]float64) float64 {
	dx, dy := a[0]-b[0], a[1]-b[1]
	return dx*dx + dy*dy
}
