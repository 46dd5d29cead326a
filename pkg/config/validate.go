package config

import (
	"fmt"
	"math"
)

var requiredSequences = []string{
	"quantities",
	"graph_colors",
	"contour_color_schemes",
}

var requiredMappings = []string{
	"forecast_settings",
	"default_view",
	"knn_model_params",
	"svr_model_params",
	"gbr_model_params",
}

var requiredMappingKeys = map[string][]string{
	"default_view":      {"quantity", "station", "time", "model"},
	"forecast_settings": {"forecast_range", "forecast_step"},
}

// Validate turns a raw settings document into Settings. Validation stops at
// the first failure and returns a *ConfigurationError; no partially
// populated Settings is ever returned.
func Validate(doc map[string]any) (*Settings, error) {
	if doc == nil {
		return nil, configError("empty configuration")
	}

	sequences := make(map[string][]any, len(requiredSequences))
	for _, name := range requiredSequences {
		seq, ok := asSequence(doc[name])
		if !ok {
			return nil, configError("invalid or missing '%s' in configuration", name)
		}
		sequences[name] = seq
	}

	mappings := make(map[string]map[string]any, len(requiredMappings))
	for _, name := range requiredMappings {
		m, ok := asMapping(doc[name])
		if !ok {
			return nil, configError("invalid or missing '%s' in configuration", name)
		}
		for _, key := range requiredMappingKeys[name] {
			if _, ok := m[key]; !ok {
				return nil, configError("invalid or missing '%s' in '%s'", key, name)
			}
		}
		mappings[name] = cloneMapping(m)
	}

	s := &Settings{
		GraphColors:    sequences["graph_colors"],
		KNNModelParams: mappings["knn_model_params"],
		SVRModelParams: mappings["svr_model_params"],
		GBRModelParams: mappings["gbr_model_params"],

		RawForecastSettings: mappings["forecast_settings"],
		RawDefaultView:      mappings["default_view"],
	}

	for _, q := range sequences["quantities"] {
		name, ok := q.(string)
		if !ok || name == "" {
			return nil, configError("invalid quantity name: %v", q)
		}
		s.Quantities = append(s.Quantities, name)
	}

	if len(s.Quantities) > len(s.GraphColors) {
		return nil, configError("not enough colors defined")
	}
	if len(s.Quantities) > len(sequences["contour_color_schemes"]) {
		return nil, configError("not enough colorschemes defined")
	}

	for _, c := range s.GraphColors {
		if !IsColorLike(c) {
			return nil, configError("invalid color: %v", c)
		}
	}

	for _, v := range sequences["contour_color_schemes"] {
		scheme, ok := isColormapValue(v)
		if !ok {
			return nil, configError("invalid colorscheme: %s", scheme)
		}
		s.ContourColorSchemes = append(s.ContourColorSchemes, scheme)
	}

	var err error
	if s.ForecastSettings, err = parseForecastSettings(mappings["forecast_settings"]); err != nil {
		return nil, err
	}
	if s.DefaultView, err = parseDefaultView(mappings["default_view"], s.Quantities, s.ForecastSettings); err != nil {
		return nil, err
	}

	if s.KNN, err = parseParams("knn_model_params", s.KNNModelParams, DefaultKNNParams(), knnParamSetters); err != nil {
		return nil, err
	}
	if s.SVR, err = parseParams("svr_model_params", s.SVRModelParams, DefaultSVRParams(), svrParamSetters); err != nil {
		return nil, err
	}
	if s.GBR, err = parseParams("gbr_model_params", s.GBRModelParams, DefaultGBRParams(), gbrParamSetters); err != nil {
		return nil, err
	}

	return s, nil
}

func parseForecastSettings(m map[string]any) (ForecastSettings, error) {
	var fs ForecastSettings

	r, ok := asInt(m["forecast_range"])
	if !ok || r <= 0 {
		return fs, configError("invalid 'forecast_range' in 'forecast_settings': %v", m["forecast_range"])
	}

	step, ok := asFloat(m["forecast_step"])
	if !ok || step <= 0 || math.IsInf(step, 0) || math.IsNaN(step) {
		return fs, configError("invalid 'forecast_step' in 'forecast_settings': %v", m["forecast_step"])
	}

	fs.Range = r
	fs.Step = step
	return fs, nil
}

func parseDefaultView(m map[string]any, quantities []string, fs ForecastSettings) (DefaultView, error) {
	var dv DefaultView

	name, ok := m["quantity"].(string)
	if !ok {
		return dv, configError("invalid 'quantity' in 'default_view': %v", m["quantity"])
	}
	dv.Quantity = -1
	for i, q := range quantities {
		if q == name {
			dv.Quantity = i
			break
		}
	}
	if dv.Quantity < 0 {
		return dv, configError("default quantity '%s' is not one of the configured quantities", name)
	}
	dv.QuantityName = name

	if dv.Station, ok = asInt(m["station"]); !ok || dv.Station < 0 {
		return dv, configError("invalid 'station' in 'default_view': %v", m["station"])
	}

	if dv.Time, ok = asInt(m["time"]); !ok || dv.Time < 0 || dv.Time >= fs.Range {
		return dv, configError("invalid 'time' in 'default_view': %v", m["time"])
	}

	model, err := ParseModelKind(m["model"])
	if err != nil {
		return dv, &ConfigurationError{Msg: "invalid 'model' in 'default_view'", Err: err}
	}
	dv.Model = model

	return dv, nil
}

// Summary renders a one-line description of the settings for logs
func (s *Settings) Summary() string {
	return fmt.Sprintf("%d quantities, forecast %d steps x %gh, default %s/%s station %d time %d",
		len(s.Quantities), s.ForecastSettings.Range, s.ForecastSettings.Step,
		s.DefaultView.QuantityName, s.DefaultView.Model.Label(), s.DefaultView.Station, s.DefaultView.Time)
}
