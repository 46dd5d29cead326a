// Package engine interpolates the station measurements of one time step and
// quantity onto a regular longitude/latitude grid, and slices per-station
// time series out of the measurement tensor.
package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/chrissnell/weatherdash/internal/dataset"
	"github.com/chrissnell/weatherdash/internal/regression"
	"github.com/chrissnell/weatherdash/pkg/config"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// ErrContractViolation is wrapped by errors caused by a caller passing an
// out-of-range index, an unknown model or a degenerate grid.
var ErrContractViolation = errors.New("contract violation")

// Violation formats a ContractViolation
func Violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrContractViolation, fmt.Sprintf(format, args...))
}

// Grid is an interpolated surface. Z has one row per Y value and one column
// per X value.
type Grid struct {
	X []float64   `json:"x"`
	Y []float64   `json:"y"`
	Z [][]float64 `json:"z"`
}

// Range returns the smallest and largest value of Z
func (g *Grid) Range() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, row := range g.Z {
		lo = math.Min(lo, floats.Min(row))
		hi = math.Max(hi, floats.Max(row))
	}
	return lo, hi
}

type fitKey struct {
	quantity int
	time     int
	model    config.ModelKind
}

// Engine owns the loaded dataset and the model hyperparameters. It is safe
// for concurrent use; fitted models are shared through an LRU cache.
type Engine struct {
	stations *dataset.StationSet
	tensor   *dataset.Tensor
	settings *config.Settings

	fits   *lru.Cache[fitKey, regression.Regressor]
	logger *zap.SugaredLogger
}

// New creates an engine over ds. cacheSize bounds the number of fitted
// models kept around; zero disables caching.
func New(ds *dataset.Dataset, settings *config.Settings, cacheSize int, logger *zap.SugaredLogger) (*Engine, error) {
	if cacheSize < 0 {
		return nil, fmt.Errorf("invalid model cache size %d", cacheSize)
	}

	e := &Engine{
		stations: ds.Stations,
		tensor:   ds.Tensor,
		settings: settings,
		logger:   logger,
	}

	if cacheSize > 0 {
		cache, err := lru.New[fitKey, regression.Regressor](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("error creating model cache: %w", err)
		}
		e.fits = cache
	}

	return e, nil
}

// Stations returns the station set the engine fits on
func (e *Engine) Stations() *dataset.StationSet {
	return e.stations
}

// BuildRange returns evenly spaced longitude and latitude steps covering the
// station bounds widened by margin on both ends. Each axis gets
// floor(span/meshSize)+1 points, where span includes the margins.
func (e *Engine) BuildRange(meshSize, margin float64) (x, y []float64, err error) {
	if !(meshSize > 0) || math.IsInf(meshSize, 1) {
		return nil, nil, Violation("mesh size must be positive and finite, got %v", meshSize)
	}
	if !(margin >= 0) || math.IsInf(margin, 1) {
		return nil, nil, Violation("margin must be non-negative and finite, got %v", margin)
	}
	if e.stations.Len() == 0 {
		return nil, nil, Violation("no stations to build a range over")
	}

	minLon, maxLon, minLat, maxLat := e.stations.Bounds()
	x, err = axis("longitude", minLon-margin, maxLon+margin, meshSize)
	if err != nil {
		return nil, nil, err
	}
	y, err = axis("latitude", minLat-margin, maxLat+margin, meshSize)
	if err != nil {
		return nil, nil, err
	}
	if len(x)*len(y) > maxGridPoints {
		return nil, nil, Violation("grid of %d x %d points exceeds %d points", len(x), len(y), maxGridPoints)
	}
	return x, y, nil
}

// maxGridPoints bounds the size of one predicted surface
const maxGridPoints = 1 << 24

// axis returns floor((hi-lo)/step)+1 evenly spaced values from lo to hi.
// The point count is checked as a float so a tiny step or non-finite
// bounds are rejected before anything is allocated.
func axis(name string, lo, hi, step float64) ([]float64, error) {
	steps := math.Floor((hi - lo) / step)
	if math.IsNaN(steps) || math.IsInf(steps, 0) || steps < 0 {
		return nil, Violation("%s range [%v, %v] with mesh size %v has no finite point count", name, lo, hi, step)
	}
	if steps+1 > maxGridPoints {
		return nil, Violation("%s range [%v, %v] with mesh size %v needs %.0f points, more than %d",
			name, lo, hi, step, steps+1, maxGridPoints)
	}

	n := int(steps) + 1
	if n == 1 {
		return []float64{lo}, nil
	}
	return floats.Span(make([]float64, n), lo, hi), nil
}

// PredictGrid fits the selected model on every station's value at (time,
// quantity) and predicts it at each point of x × y.
func (e *Engine) PredictGrid(x, y []float64, quantity, time int, model config.ModelKind) (*Grid, error) {
	if len(x) == 0 || len(y) == 0 {
		return nil, Violation("empty grid axis (%d x %d)", len(x), len(y))
	}
	if err := e.checkIndices(quantity, time); err != nil {
		return nil, err
	}
	if !model.Valid() {
		return nil, Violation("unknown model %d", int(model))
	}

	reg, err := e.fitted(quantity, time, model)
	if err != nil {
		return nil, err
	}

	// y outer, x inner so the predictions reshape row by row
	query := make([][2]float64, 0, len(x)*len(y))
	for _, lat := range y {
		for _, lon := range x {
			query = append(query, [2]float64{lon, lat})
		}
	}

	pred, err := reg.Predict(query)
	if err != nil {
		return nil, fmt.Errorf("error predicting %s grid: %w", model, err)
	}

	grid := &Grid{
		X: append([]float64(nil), x...),
		Y: append([]float64(nil), y...),
		Z: make([][]float64, len(y)),
	}
	for r := range grid.Z {
		grid.Z[r] = pred[r*len(x) : (r+1)*len(x) : (r+1)*len(x)]
	}
	return grid, nil
}

// fitted returns a regressor trained on the requested snapshot, reusing a
// cached fit when the model is deterministic.
func (e *Engine) fitted(quantity, time int, model config.ModelKind) (regression.Regressor, error) {
	key := fitKey{quantity: quantity, time: time, model: model}
	if e.fits != nil {
		if reg, ok := e.fits.Get(key); ok {
			return reg, nil
		}
	}

	if e.stations.DistinctPositions() < 2 {
		return nil, fmt.Errorf("%w: need at least 2 distinct station positions, have %d",
			regression.ErrRegressionFailure, e.stations.DistinctPositions())
	}

	params, err := e.settings.ModelParams(model)
	if err != nil {
		return nil, Violation("%v", err)
	}
	reg, err := regression.New(params)
	if err != nil {
		return nil, Violation("%v", err)
	}

	if err := reg.Fit(e.stations.Positions(), e.tensor.Snapshot(time, quantity)); err != nil {
		return nil, fmt.Errorf("error fitting %s on quantity %d at step %d: %w", model, quantity, time, err)
	}
	e.logger.Debugf("fitted %s model on quantity %d at step %d", model, quantity, time)

	if e.fits != nil && reg.Deterministic() {
		e.fits.Add(key, reg)
	}
	return reg, nil
}

// ExtractSeries returns a copy of the first forecastRange values of one
// station and quantity.
func (e *Engine) ExtractSeries(station, quantity, forecastRange int) ([]float64, error) {
	steps, stations, quantities := e.tensor.Shape()
	switch {
	case station < 0 || station >= stations:
		return nil, Violation("station %d out of range [0, %d)", station, stations)
	case quantity < 0 || quantity >= quantities:
		return nil, Violation("quantity %d out of range [0, %d)", quantity, quantities)
	case forecastRange < 0 || forecastRange > steps:
		return nil, Violation("forecast range %d out of range [0, %d]", forecastRange, steps)
	}
	return e.tensor.Series(station, quantity, forecastRange), nil
}

func (e *Engine) checkIndices(quantity, time int) error {
	steps, _, quantities := e.tensor.Shape()
	if quantity < 0 || quantity >= quantities {
		return Violation("quantity %d out of range [0, %d)", quantity, quantities)
	}
	limit := min(e.settings.ForecastSettings.Range, steps)
	if time < 0 || time >= limit {
		return Violation("time %d out of range [0, %d)", time, limit)
	}
	return nil
}
