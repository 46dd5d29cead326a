package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ModelKind identifies one of the supported spatial regression models.
// The numeric values match the model indices used by the dashboard controls.
type ModelKind int

const (
	ModelKNN ModelKind = iota
	ModelSVR
	ModelGBR
)

// ModelKinds lists the supported models in control order.
var ModelKinds = []ModelKind{ModelKNN, ModelSVR, ModelGBR}

func (k ModelKind) String() string {
	switch k {
	case ModelKNN:
		return "knn"
	case ModelSVR:
		return "svr"
	case ModelGBR:
		return "gbr"
	default:
		return fmt.Sprintf("model(%d)", int(k))
	}
}

// Label is the human-readable model name shown in the model selector
func (k ModelKind) Label() string {
	switch k {
	case ModelKNN:
		return "kNN"
	case ModelSVR:
		return "SVR"
	case ModelGBR:
		return "GBR"
	default:
		return k.String()
	}
}

// Valid reports whether k names a supported model
func (k ModelKind) Valid() bool {
	return k >= ModelKNN && k <= ModelGBR
}

// ParseModelKind accepts either a model index (0, 1, 2) or a model name
// (knn, svr, gbr; case-insensitive).
func ParseModelKind(v any) (ModelKind, error) {
	if s, ok := v.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "knn":
			return ModelKNN, nil
		case "svr":
			return ModelSVR, nil
		case "gbr":
			return ModelGBR, nil
		}
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			v = n
		} else {
			return 0, fmt.Errorf("unknown model %q", s)
		}
	}

	n, ok := asInt(v)
	if !ok || !ModelKind(n).Valid() {
		return 0, fmt.Errorf("unknown model %v", v)
	}
	return ModelKind(n), nil
}

// ForecastSettings describes the forecast cadence: the number of time steps
// shown and the number of hours each step represents.
type ForecastSettings struct {
	Range int     `json:"forecast_range"`
	Step  float64 `json:"forecast_step"`
}

// DefaultView is the initial selection of the dashboard
type DefaultView struct {
	QuantityName string    `json:"quantity"`
	Quantity     int       `json:"quantity_index"`
	Station      int       `json:"station"`
	Time         int       `json:"time"`
	Model        ModelKind `json:"model"`
}

// Settings holds the validated dashboard configuration. It is populated once
// by Validate and never modified afterwards.
type Settings struct {
	Quantities          []string         `json:"quantities"`
	GraphColors         []any            `json:"graph_colors"`
	ContourColorSchemes []string         `json:"contour_color_schemes"`
	ForecastSettings    ForecastSettings `json:"forecast_settings"`
	DefaultView         DefaultView      `json:"default_view"`

	// Raw model parameter mappings, exactly as given in the document
	KNNModelParams map[string]any `json:"knn_model_params"`
	SVRModelParams map[string]any `json:"svr_model_params"`
	GBRModelParams map[string]any `json:"gbr_model_params"`

	// Raw forecast_settings and default_view mappings as given, before
	// they were resolved into the typed fields above
	RawForecastSettings map[string]any `json:"-"`
	RawDefaultView      map[string]any `json:"-"`

	KNN KNNParams `json:"-"`
	SVR SVRParams `json:"-"`
	GBR GBRParams `json:"-"`
}

// ModelParams returns the typed hyperparameters for the given model
func (s *Settings) ModelParams(kind ModelKind) (ModelParams, error) {
	switch kind {
	case ModelKNN:
		return s.KNN, nil
	case ModelSVR:
		return s.SVR, nil
	case ModelGBR:
		return s.GBR, nil
	default:
		return nil, fmt.Errorf("unknown model %v", kind)
	}
}

// GraphColor returns the CSS form of the time series color for a quantity
func (s *Settings) GraphColor(quantity int) string {
	return CSSColor(s.GraphColors[quantity])
}
