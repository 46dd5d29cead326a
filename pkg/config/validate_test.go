package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func validDoc() map[string]any {
	return map[string]any{
		"quantities":            []any{"Wind Direction", "Wind Speed", "Soil Temperature", "Wind Speed"},
		"graph_colors":          []any{"pink", "yellow", "green", "maroon"},
		"contour_color_schemes": []any{"viridis", "plasma", "inferno", "cividis"},
		"default_view":          map[string]any{"quantity": "Wind Direction", "station": 0, "time": 0, "model": 0},
		"forecast_settings":     map[string]any{"forecast_range": 11, "forecast_step": 6},
		"knn_model_params":      map[string]any{"n_neighbors": 3, "algorithm": "auto", "weights": "uniform"},
		"svr_model_params":      map[string]any{},
		"gbr_model_params":      map[string]any{},
	}
}

func writeConfig(t *testing.T, doc map[string]any) string {
	t.Helper()

	data, err := yaml.Marshal(doc)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestYAMLProviderLoadSettings(t *testing.T) {
	s, err := NewYAMLProvider(writeConfig(t, validDoc())).LoadSettings()
	require.NoError(t, err)

	assert.Equal(t, []string{"Wind Direction", "Wind Speed", "Soil Temperature", "Wind Speed"}, s.Quantities)
	assert.Equal(t, []any{"pink", "yellow", "green", "maroon"}, s.GraphColors)
	assert.Equal(t, []string{"viridis", "plasma", "inferno", "cividis"}, s.ContourColorSchemes)
	assert.Equal(t, ForecastSettings{Range: 11, Step: 6}, s.ForecastSettings)
	assert.Equal(t, DefaultView{QuantityName: "Wind Direction", Quantity: 0, Station: 0, Time: 0, Model: ModelKNN}, s.DefaultView)
	assert.Equal(t, map[string]any{"forecast_range": 11, "forecast_step": 6}, s.RawForecastSettings)
	assert.Equal(t, map[string]any{"quantity": "Wind Direction", "station": 0, "time": 0, "model": 0}, s.RawDefaultView)
	assert.Equal(t, map[string]any{"n_neighbors": 3, "algorithm": "auto", "weights": "uniform"}, s.KNNModelParams)
	assert.Empty(t, s.SVRModelParams)
	assert.Empty(t, s.GBRModelParams)

	assert.Equal(t, 3, s.KNN.NNeighbors)
	assert.Equal(t, WeightsUniform, s.KNN.Weights)
	assert.Equal(t, DefaultSVRParams(), s.SVR)
	assert.Equal(t, DefaultGBRParams(), s.GBR)
}

func TestYAMLProviderMissingFile(t *testing.T) {
	_, err := NewYAMLProvider(filepath.Join(t.TempDir(), "non_existent.yaml")).LoadSettings()
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(doc map[string]any)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(doc map[string]any) {},
		},
		{
			name:    "missing quantities",
			mutate:  func(doc map[string]any) { delete(doc, "quantities") },
			wantErr: "invalid or missing 'quantities' in configuration",
		},
		{
			name:    "graph colors not a sequence",
			mutate:  func(doc map[string]any) { doc["graph_colors"] = "blue" },
			wantErr: "invalid or missing 'graph_colors' in configuration",
		},
		{
			name:    "model params not a mapping",
			mutate:  func(doc map[string]any) { doc["gbr_model_params"] = []any{} },
			wantErr: "invalid or missing 'gbr_model_params' in configuration",
		},
		{
			name: "default view missing time",
			mutate: func(doc map[string]any) {
				doc["default_view"] = map[string]any{"quantity": "Wind Direction", "station": 0, "model": 0}
			},
			wantErr: "invalid or missing 'time' in 'default_view'",
		},
		{
			name: "forecast settings missing step",
			mutate: func(doc map[string]any) {
				doc["forecast_settings"] = map[string]any{"forecast_range": 11}
			},
			wantErr: "invalid or missing 'forecast_step' in 'forecast_settings'",
		},
		{
			name: "not enough colors",
			mutate: func(doc map[string]any) {
				doc["quantities"] = []any{"Wind Direction", "Air Temperature", "Wind Speed"}
				doc["graph_colors"] = []any{"abc", "blue"}
				doc["contour_color_schemes"] = []any{"viridis", "cividis"}
			},
			wantErr: "not enough colors defined",
		},
		{
			name: "not enough colorschemes",
			mutate: func(doc map[string]any) {
				doc["contour_color_schemes"] = []any{"viridis"}
			},
			wantErr: "not enough colorschemes defined",
		},
		{
			name: "invalid color",
			mutate: func(doc map[string]any) {
				doc["graph_colors"] = []any{"abc", "blue", "green", "red"}
			},
			wantErr: "invalid color: abc",
		},
		{
			name: "invalid colorscheme",
			mutate: func(doc map[string]any) {
				doc["contour_color_schemes"] = []any{"viridis", "abc", "cividis", "magma"}
			},
			wantErr: "invalid colorscheme: abc",
		},
		{
			name: "unknown default quantity",
			mutate: func(doc map[string]any) {
				doc["default_view"] = map[string]any{"quantity": "Rain", "station": 0, "time": 0, "model": 0}
			},
			wantErr: "default quantity 'Rain' is not one of the configured quantities",
		},
		{
			name: "default time outside forecast range",
			mutate: func(doc map[string]any) {
				doc["default_view"] = map[string]any{"quantity": "Wind Speed", "station": 0, "time": 11, "model": 0}
			},
			wantErr: "invalid 'time' in 'default_view'",
		},
		{
			name: "unsupported model parameter",
			mutate: func(doc map[string]any) {
				doc["svr_model_params"] = map[string]any{"kernal": "rbf"}
			},
			wantErr: "unsupported parameter 'kernal' in 'svr_model_params'",
		},
		{
			name: "ill-typed model parameter",
			mutate: func(doc map[string]any) {
				doc["knn_model_params"] = map[string]any{"n_neighbors": "three"}
			},
			wantErr: "invalid value three for 'n_neighbors' in 'knn_model_params'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDoc()
			tt.mutate(doc)

			s, err := Validate(doc)
			if tt.wantErr == "" {
				require.NoError(t, err)
				require.NotNil(t, s)
				return
			}

			require.Error(t, err)
			assert.Nil(t, s)
			assert.Contains(t, err.Error(), tt.wantErr)

			var cfgErr *ConfigurationError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestValidateTypedParams(t *testing.T) {
	doc := validDoc()
	doc["default_view"] = map[string]any{"quantity": "Wind Speed", "station": 2, "time": 4, "model": "gbr"}
	doc["svr_model_params"] = map[string]any{"C": 1.0, "kernel": "rbf", "gamma": "scale"}
	doc["gbr_model_params"] = map[string]any{"learning_rate": 0.1, "n_estimators": 100, "subsample": 0.8, "random_state": 7}

	s, err := Validate(doc)
	require.NoError(t, err)

	assert.Equal(t, 1, s.DefaultView.Quantity)
	assert.Equal(t, ModelGBR, s.DefaultView.Model)
	assert.Equal(t, Gamma{Mode: GammaScale}, s.SVR.Gamma)
	assert.Equal(t, 0.8, s.GBR.Subsample)
	require.True(t, s.GBR.Seeded())
	assert.Equal(t, int64(7), *s.GBR.RandomState)

	params, err := s.ModelParams(ModelSVR)
	require.NoError(t, err)
	assert.Equal(t, ModelSVR, params.Kind())

	doc["svr_model_params"] = map[string]any{"gamma": 0.25}
	s, err = Validate(doc)
	require.NoError(t, err)
	assert.Equal(t, Gamma{Mode: GammaValue, Value: 0.25}, s.SVR.Gamma)
}

func TestParseModelKind(t *testing.T) {
	tests := []struct {
		in      any
		want    ModelKind
		wantErr bool
	}{
		{in: 0, want: ModelKNN},
		{in: 1, want: ModelSVR},
		{in: 2.0, want: ModelGBR},
		{in: "SVR", want: ModelSVR},
		{in: "2", want: ModelGBR},
		{in: 3, wantErr: true},
		{in: "forest", wantErr: true},
		{in: nil, wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseModelKind(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %v", tt.in)
			continue
		}
		require.NoError(t, err, "input %v", tt.in)
		assert.Equal(t, tt.want, got)
	}
}
