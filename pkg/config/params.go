package config

import (
	"fmt"
	"math"
	"sort"
)

// ModelParams is the closed set of typed hyperparameter groups, one per
// regression model. Each group carries only its own model's parameters.
type ModelParams interface {
	Kind() ModelKind
	isModelParams()
}

// KNN neighbor weighting
const (
	WeightsUniform  = "uniform"
	WeightsDistance = "distance"
)

// KNNParams configures the k-nearest-neighbors regressor
type KNNParams struct {
	NNeighbors int
	Weights    string
	Algorithm  string
	LeafSize   int
	P          float64
	Metric     string
}

func (KNNParams) Kind() ModelKind { return ModelKNN }
func (KNNParams) isModelParams()  {}

// GammaMode selects how the SVR kernel coefficient is derived
type GammaMode string

const (
	GammaScale GammaMode = "scale"
	GammaAuto  GammaMode = "auto"
	GammaValue GammaMode = "value"
)

// Gamma is the SVR kernel coefficient; Value is used only in GammaValue mode
type Gamma struct {
	Mode  GammaMode
	Value float64
}

// SVRParams configures the epsilon support vector regressor
type SVRParams struct {
	Kernel  string
	C       float64
	Epsilon float64
	Gamma   Gamma
	Degree  int
	Coef0   float64
	Tol     float64
	MaxIter int
}

func (SVRParams) Kind() ModelKind { return ModelSVR }
func (SVRParams) isModelParams()  {}

// GBRParams configures the gradient boosted regression trees.
// RandomState is nil when no seed was configured; fits are then not
// reproducible across calls.
type GBRParams struct {
	Loss            string
	LearningRate    float64
	NEstimators     int
	Subsample       float64
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	RandomState     *int64
}

func (GBRParams) Kind() ModelKind { return ModelGBR }
func (GBRParams) isModelParams()  {}

// Seeded reports whether the fit is reproducible
func (p GBRParams) Seeded() bool {
	return p.RandomState != nil
}

// DefaultKNNParams mirrors the defaults of the reference regressors
func DefaultKNNParams() KNNParams {
	return KNNParams{
		NNeighbors: 5,
		Weights:    WeightsUniform,
		Algorithm:  "auto",
		LeafSize:   30,
		P:          2,
		Metric:     "minkowski",
	}
}

func DefaultSVRParams() SVRParams {
	return SVRParams{
		Kernel:  "rbf",
		C:       1.0,
		Epsilon: 0.1,
		Gamma:   Gamma{Mode: GammaScale},
		Degree:  3,
		Coef0:   0,
		Tol:     1e-3,
		MaxIter: -1,
	}
}

func DefaultGBRParams() GBRParams {
	return GBRParams{
		Loss:            "squared_error",
		LearningRate:    0.1,
		NEstimators:     100,
		Subsample:       1.0,
		MaxDepth:        3,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
}

type paramSetter[T any] func(p *T, v any) error

var knnParamSetters = map[string]paramSetter[KNNParams]{
	"n_neighbors": func(p *KNNParams, v any) (err error) {
		p.NNeighbors, err = intAtLeast(v, 1)
		return
	},
	"weights": func(p *KNNParams, v any) (err error) {
		p.Weights, err = oneOf(v, WeightsUniform, WeightsDistance)
		return
	},
	"algorithm": func(p *KNNParams, v any) (err error) {
		p.Algorithm, err = oneOf(v, "auto", "kd_tree", "ball_tree", "brute")
		return
	},
	"leaf_size": func(p *KNNParams, v any) (err error) {
		p.LeafSize, err = intAtLeast(v, 1)
		return
	},
	"p": func(p *KNNParams, v any) (err error) {
		p.P, err = floatAtLeast(v, 1)
		return
	},
	"metric": func(p *KNNParams, v any) (err error) {
		p.Metric, err = oneOf(v, "minkowski", "euclidean", "manhattan", "chebyshev")
		return
	},
}

var svrParamSetters = map[string]paramSetter[SVRParams]{
	"kernel": func(p *SVRParams, v any) (err error) {
		p.Kernel, err = oneOf(v, "rbf", "linear", "poly", "sigmoid")
		return
	},
	"C": func(p *SVRParams, v any) (err error) {
		p.C, err = positiveFloat(v)
		return
	},
	"epsilon": func(p *SVRParams, v any) (err error) {
		p.Epsilon, err = floatAtLeast(v, 0)
		return
	},
	"gamma": func(p *SVRParams, v any) error {
		if s, ok := v.(string); ok {
			switch GammaMode(s) {
			case GammaScale, GammaAuto:
				p.Gamma = Gamma{Mode: GammaMode(s)}
				return nil
			}
			return fmt.Errorf("must be 'scale', 'auto' or a positive number")
		}
		f, err := positiveFloat(v)
		if err != nil {
			return err
		}
		p.Gamma = Gamma{Mode: GammaValue, Value: f}
		return nil
	},
	"degree": func(p *SVRParams, v any) (err error) {
		p.Degree, err = intAtLeast(v, 0)
		return
	},
	"coef0": func(p *SVRParams, v any) (err error) {
		p.Coef0, err = finiteFloat(v)
		return
	},
	"tol": func(p *SVRParams, v any) (err error) {
		p.Tol, err = positiveFloat(v)
		return
	},
	"max_iter": func(p *SVRParams, v any) (err error) {
		p.MaxIter, err = intAtLeast(v, -1)
		return
	},
}

var gbrParamSetters = map[string]paramSetter[GBRParams]{
	"loss": func(p *GBRParams, v any) (err error) {
		p.Loss, err = oneOf(v, "squared_error", "absolute_error")
		return
	},
	"learning_rate": func(p *GBRParams, v any) (err error) {
		p.LearningRate, err = positiveFloat(v)
		return
	},
	"n_estimators": func(p *GBRParams, v any) (err error) {
		p.NEstimators, err = intAtLeast(v, 1)
		return
	},
	"subsample": func(p *GBRParams, v any) error {
		f, err := positiveFloat(v)
		if err != nil {
			return err
		}
		if f > 1 {
			return fmt.Errorf("must be in (0, 1]")
		}
		p.Subsample = f
		return nil
	},
	"max_depth": func(p *GBRParams, v any) (err error) {
		p.MaxDepth, err = intAtLeast(v, 1)
		return
	},
	"min_samples_split": func(p *GBRParams, v any) (err error) {
		p.MinSamplesSplit, err = intAtLeast(v, 2)
		return
	},
	"min_samples_leaf": func(p *GBRParams, v any) (err error) {
		p.MinSamplesLeaf, err = intAtLeast(v, 1)
		return
	},
	"random_state": func(p *GBRParams, v any) error {
		if v == nil {
			p.RandomState = nil
			return nil
		}
		n, ok := asInt(v)
		if !ok {
			return fmt.Errorf("must be an integer seed")
		}
		seed := int64(n)
		p.RandomState = &seed
		return nil
	},
}

// parseParams applies every key of raw to defaults through the allow-listed
// setters. Keys are visited in sorted order so errors are reproducible.
func parseParams[T any](mapping string, raw map[string]any, defaults T, setters map[string]paramSetter[T]) (T, error) {
	params := defaults

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		set, ok := setters[k]
		if !ok {
			return params, configError("unsupported parameter '%s' in '%s'", k, mapping)
		}
		if err := set(&params, raw[k]); err != nil {
			return params, &ConfigurationError{
				Msg: fmt.Sprintf("invalid value %v for '%s' in '%s'", raw[k], k, mapping),
				Err: err,
			}
		}
	}

	return params, nil
}

func intAtLeast(v any, min int) (int, error) {
	n, ok := asInt(v)
	if !ok {
		return 0, fmt.Errorf("must be an integer")
	}
	if n < min {
		return 0, fmt.Errorf("must be at least %d", min)
	}
	return n, nil
}

func finiteFloat(v any) (float64, error) {
	f, ok := asFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("must be a finite number")
	}
	return f, nil
}

func floatAtLeast(v any, min float64) (float64, error) {
	f, err := finiteFloat(v)
	if err != nil {
		return 0, err
	}
	if f < min {
		return 0, fmt.Errorf("must be at least %v", min)
	}
	return f, nil
}

func positiveFloat(v any) (float64, error) {
	f, err := finiteFloat(v)
	if err != nil {
		return 0, err
	}
	if f <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return f, nil
}

func oneOf(v any, allowed ...string) (string, error) {
	s, ok := v.(string)
	if ok {
		for _, a := range allowed {
			if s == a {
				return s, nil
			}
		}
	}
	return "", fmt.Errorf("must be one of %v", allowed)
}
