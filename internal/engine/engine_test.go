package engine

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/chrissnell/weatherdash/internal/dataset"
	"github.com/chrissnell/weatherdash/internal/regression"
	"github.com/chrissnell/weatherdash/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var sampleStations = []dataset.Station{
	{Lon: 10, Lat: 30},
	{Lon: 20, Lat: 40},
	{Lon: 30, Lat: 50},
	{Lon: 40, Lat: 60},
}

func testSettings() *config.Settings {
	knn := config.DefaultKNNParams()
	knn.NNeighbors = 2

	return &config.Settings{
		Quantities:          []string{"Air Temperature", "Ground Temperature", "Air Humidity", "Wind Direction", "Wind"},
		GraphColors:         []any{"blue", "red", "black", "gray", "maroon"},
		ContourColorSchemes: []string{"viridis", "inferno", "magma", "cividis", "plasma"},
		ForecastSettings:    config.ForecastSettings{Range: 20, Step: 6},
		KNN:                 knn,
		SVR:                 config.DefaultSVRParams(),
		GBR:                 config.DefaultGBRParams(),
	}
}

func testDataset(t *testing.T, stations []dataset.Station) *dataset.Dataset {
	t.Helper()

	rng := rand.New(rand.NewPCG(1, 2))
	data := make([]float64, 20*len(stations)*5)
	for i := range data {
		data[i] = rng.Float64()
	}
	tensor, err := dataset.NewTensor(20, len(stations), 5, data)
	require.NoError(t, err)

	return &dataset.Dataset{Stations: dataset.NewStationSet(stations), Tensor: tensor}
}

func newTestEngine(t *testing.T, cacheSize int) *Engine {
	t.Helper()
	e, err := New(testDataset(t, sampleStations), testSettings(), cacheSize, zap.NewNop().Sugar())
	require.NoError(t, err)
	return e
}

func TestBuildRange(t *testing.T) {
	tests := []struct {
		name     string
		meshSize float64
		margin   float64
		wantX    [2]float64
		wantY    [2]float64
		wantLen  int
	}{
		{"fine mesh", 0.1, 1.0, [2]float64{9, 41}, [2]float64{29, 61}, 321},
		{"half degree margin", 0.1, 0.5, [2]float64{9.5, 40.5}, [2]float64{29.5, 60.5}, 311},
		{"coarse mesh", 0.2, 1.0, [2]float64{9, 41}, [2]float64{29, 61}, 161},
		{"wide margin", 0.5, 7.0, [2]float64{3, 47}, [2]float64{23, 67}, 89},
		{"mesh wider than span", 100, 0, [2]float64{10, 10}, [2]float64{30, 30}, 1},
	}

	e := newTestEngine(t, 0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, err := e.BuildRange(tt.meshSize, tt.margin)
			require.NoError(t, err)
			require.Len(t, x, tt.wantLen)
			require.Len(t, y, tt.wantLen)

			assert.InDelta(t, tt.wantX[0], x[0], 1e-9)
			assert.InDelta(t, tt.wantX[1], x[len(x)-1], 1e-9)
			assert.InDelta(t, tt.wantY[0], y[0], 1e-9)
			assert.InDelta(t, tt.wantY[1], y[len(y)-1], 1e-9)
		})
	}
}

func TestBuildRangeRejectsBadArguments(t *testing.T) {
	e := newTestEngine(t, 0)

	tests := []struct {
		name     string
		meshSize float64
		margin   float64
	}{
		{"zero mesh", 0, 1},
		{"negative mesh", -0.1, 1},
		{"nan mesh", math.NaN(), 1},
		{"infinite mesh", math.Inf(1), 1},
		{"negative margin", 0.1, -1},
		{"nan margin", 0.1, math.NaN()},
		{"infinite margin", 0.1, math.Inf(1)},
		{"denormal mesh", 1e-320, 0.5},
		{"axis too long", 1e-9, 0.5},
		{"huge margin", 0.1, 1e300},
		{"grid too large", 0.005, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotPanics(t, func() {
				_, _, err := e.BuildRange(tt.meshSize, tt.margin)
				assert.ErrorIs(t, err, ErrContractViolation)
			})
		})
	}
}

func TestBuildRangeRejectsNonFiniteStations(t *testing.T) {
	stations := append([]dataset.Station(nil), sampleStations...)
	stations[1].Lon = math.NaN()
	e, err := New(testDataset(t, stations), testSettings(), 0, zap.NewNop().Sugar())
	require.NoError(t, err)

	require.NotPanics(t, func() {
		_, _, err = e.BuildRange(0.1, 0.5)
	})
	assert.ErrorIs(t, err, ErrContractViolation)
}

func TestPredictGridShape(t *testing.T) {
	e := newTestEngine(t, 0)
	x, y, err := e.BuildRange(0.1, 0.5)
	require.NoError(t, err)

	for _, model := range config.ModelKinds {
		t.Run(model.String(), func(t *testing.T) {
			grid, err := e.PredictGrid(x, y, 0, 0, model)
			require.NoError(t, err)
			require.Len(t, grid.Z, 311)

			for _, row := range grid.Z {
				require.Len(t, row, 311)
				for _, v := range row {
					require.False(t, math.IsNaN(v))
				}
			}
		})
	}
}

func TestPredictGridNonSquare(t *testing.T) {
	e := newTestEngine(t, 0)
	x := []float64{10, 20, 30}
	y := []float64{30, 45}

	grid, err := e.PredictGrid(x, y, 1, 3, config.ModelKNN)
	require.NoError(t, err)
	require.Len(t, grid.Z, 2)
	assert.Len(t, grid.Z[0], 3)
	assert.Equal(t, x, grid.X)
	assert.Equal(t, y, grid.Y)

	// Two neighbors, uniform weights: at station 0 the mean of stations 0 and 1
	snap := e.tensor.Snapshot(3, 1)
	assert.InDelta(t, (snap[0]+snap[1])/2, grid.Z[0][0], 1e-12)
}

func TestPredictGridKNNReproducible(t *testing.T) {
	e := newTestEngine(t, 0)
	x, y, err := e.BuildRange(0.5, 0.5)
	require.NoError(t, err)

	a, err := e.PredictGrid(x, y, 2, 5, config.ModelKNN)
	require.NoError(t, err)
	b, err := e.PredictGrid(x, y, 2, 5, config.ModelKNN)
	require.NoError(t, err)
	assert.Equal(t, a.Z, b.Z)
}

func TestPredictGridCacheMatchesRefit(t *testing.T) {
	cached := newTestEngine(t, 8)
	uncached := newTestEngine(t, 0)

	x, y, err := cached.BuildRange(0.5, 0.5)
	require.NoError(t, err)

	for _, model := range []config.ModelKind{config.ModelKNN, config.ModelSVR} {
		for i := 0; i < 2; i++ {
			a, err := cached.PredictGrid(x, y, 0, 1, model)
			require.NoError(t, err)
			b, err := uncached.PredictGrid(x, y, 0, 1, model)
			require.NoError(t, err)
			assert.Equal(t, b.Z, a.Z, model.String())
		}
	}
	assert.Equal(t, 2, cached.fits.Len())

	// An unseeded boosting fit is never reused
	_, err = cached.PredictGrid(x, y, 0, 1, config.ModelGBR)
	require.NoError(t, err)
	assert.Equal(t, 2, cached.fits.Len())
}

func TestPredictGridSeededGBRIsCached(t *testing.T) {
	seed := int64(7)
	settings := testSettings()
	settings.GBR.RandomState = &seed
	settings.GBR.Subsample = 0.5

	e, err := New(testDataset(t, sampleStations), settings, 4, zap.NewNop().Sugar())
	require.NoError(t, err)

	x, y := []float64{10, 25, 40}, []float64{30, 60}
	a, err := e.PredictGrid(x, y, 0, 0, config.ModelGBR)
	require.NoError(t, err)
	assert.Equal(t, 1, e.fits.Len())

	fresh, err := New(testDataset(t, sampleStations), settings, 0, zap.NewNop().Sugar())
	require.NoError(t, err)
	b, err := fresh.PredictGrid(x, y, 0, 0, config.ModelGBR)
	require.NoError(t, err)
	assert.Equal(t, b.Z, a.Z)
}

func TestPredictGridContractViolations(t *testing.T) {
	tests := []struct {
		name     string
		x, y     []float64
		quantity int
		time     int
		model    config.ModelKind
	}{
		{"empty x", nil, []float64{30}, 0, 0, config.ModelKNN},
		{"empty y", []float64{10}, nil, 0, 0, config.ModelKNN},
		{"negative quantity", []float64{10}, []float64{30}, -1, 0, config.ModelKNN},
		{"quantity too large", []float64{10}, []float64{30}, 5, 0, config.ModelKNN},
		{"time past forecast range", []float64{10}, []float64{30}, 0, 20, config.ModelKNN},
		{"unknown model", []float64{10}, []float64{30}, 0, 0, config.ModelKind(3)},
	}

	e := newTestEngine(t, 0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.PredictGrid(tt.x, tt.y, tt.quantity, tt.time, tt.model)
			assert.ErrorIs(t, err, ErrContractViolation)
		})
	}
}

func TestPredictGridRegressionFailures(t *testing.T) {
	// All stations share one position
	same := []dataset.Station{{Lon: 10, Lat: 30}, {Lon: 10, Lat: 30}, {Lon: 10, Lat: 30}, {Lon: 10, Lat: 30}}
	e, err := New(testDataset(t, same), testSettings(), 0, zap.NewNop().Sugar())
	require.NoError(t, err)
	_, err = e.PredictGrid([]float64{10}, []float64{30}, 0, 0, config.ModelSVR)
	assert.ErrorIs(t, err, regression.ErrRegressionFailure)

	// More neighbors than stations
	settings := testSettings()
	settings.KNN.NNeighbors = 5
	e, err = New(testDataset(t, sampleStations), settings, 0, zap.NewNop().Sugar())
	require.NoError(t, err)
	_, err = e.PredictGrid([]float64{10}, []float64{30}, 0, 0, config.ModelKNN)
	assert.ErrorIs(t, err, regression.ErrRegressionFailure)
}

func TestExtractSeries(t *testing.T) {
	e := newTestEngine(t, 0)

	series, err := e.ExtractSeries(0, 0, 20)
	require.NoError(t, err)
	require.Len(t, series, 20)
	for step, v := range series {
		assert.Equal(t, e.tensor.At(step, 0, 0), v)
	}

	// The result is a copy
	series[0] = -1
	assert.NotEqual(t, -1.0, e.tensor.At(0, 0, 0))

	short, err := e.ExtractSeries(3, 4, 5)
	require.NoError(t, err)
	assert.Len(t, short, 5)
}

func TestExtractSeriesContractViolations(t *testing.T) {
	e := newTestEngine(t, 0)

	for _, args := range [][3]int{{-1, 0, 20}, {4, 0, 20}, {0, -1, 20}, {0, 5, 20}, {0, 0, 21}, {0, 0, -1}} {
		_, err := e.ExtractSeries(args[0], args[1], args[2])
		assert.ErrorIs(t, err, ErrContractViolation, "args %v", args)
	}
}

func TestGridRange(t *testing.T) {
	g := &Grid{Z: [][]float64{{3, 1}, {7, 2}}}
	lo, hi := g.Range()
	assert.Equal(t, 1.0, lo)
	assert.Equal(t, 7.0, hi)
}
