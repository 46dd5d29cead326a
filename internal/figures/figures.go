// Package figures turns engine output into the data a renderer needs to draw
// the dashboard: the contour map, one time series chart per quantity, and
// the labels of the selection controls.
package figures

import (
	"fmt"
	"strconv"

	"github.com/chrissnell/weatherdash/internal/dataset"
	"github.com/chrissnell/weatherdash/internal/engine"
	"github.com/chrissnell/weatherdash/internal/selection"
	"github.com/chrissnell/weatherdash/pkg/config"
)

// contourIntervals is the number of contour bands between the grid minimum
// and maximum
const contourIntervals = 7

// Levels are the contour line positions
type Levels struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Size  float64 `json:"size"`
}

// Highlight marks the selected station on the map
type Highlight struct {
	Index int `json:"index"`
	dataset.Station
}

// Contour is the map view: the predicted surface plus station markers
type Contour struct {
	X             []float64         `json:"x"`
	Y             []float64         `json:"y"`
	Z             [][]float64       `json:"z"`
	Colorscale    string            `json:"colorscale"`
	ColorbarTitle string            `json:"colorbar_title"`
	Levels        Levels            `json:"contours"`
	Stations      []dataset.Station `json:"stations"`
	Highlight     Highlight         `json:"highlight"`
	Center        dataset.Station   `json:"center"`
}

// Series is the time series chart of one quantity at the selected station
type Series struct {
	Quantity int       `json:"quantity"`
	Title    string    `json:"title"`
	X        []float64 `json:"x"`
	Y        []float64 `json:"y"`
	Color    string    `json:"color"`
	Marker   float64   `json:"marker"`
}

// Option is one entry of a selection control
type Option struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// Controls lists the options of every selection control
type Controls struct {
	Stations   []Option `json:"stations"`
	Quantities []Option `json:"quantities"`
	Times      []Option `json:"times"`
	Models     []Option `json:"models"`
}

// Builder produces figures for a selection
type Builder struct {
	engine   *engine.Engine
	settings *config.Settings
	meshSize float64
	margin   float64
}

// NewBuilder creates a figure builder. meshSize and margin shape the contour
// grid, see engine.BuildRange.
func NewBuilder(e *engine.Engine, settings *config.Settings, meshSize, margin float64) *Builder {
	return &Builder{engine: e, settings: settings, meshSize: meshSize, margin: margin}
}

// Contour interpolates the selected quantity and time with the selected model
func (b *Builder) Contour(s selection.State) (*Contour, error) {
	x, y, err := b.engine.BuildRange(b.meshSize, b.margin)
	if err != nil {
		return nil, err
	}
	grid, err := b.engine.PredictGrid(x, y, s.Quantity, s.Time, s.Model)
	if err != nil {
		return nil, err
	}
	return NewContour(grid, b.settings, b.engine.Stations(), s), nil
}

// AllSeries returns one series chart per configured quantity
func (b *Builder) AllSeries(s selection.State) ([]*Series, error) {
	out := make([]*Series, len(b.settings.Quantities))
	for q := range out {
		data, err := b.engine.ExtractSeries(s.Station, q, b.settings.ForecastSettings.Range)
		if err != nil {
			return nil, err
		}
		out[q] = NewSeries(b.settings, q, s, data)
	}
	return out, nil
}

// Controls lists the control options for the loaded stations
func (b *Builder) Controls() *Controls {
	return NewControls(b.settings, b.engine.Stations().Len())
}

// NewContour decorates an interpolated grid for the map view
func NewContour(grid *engine.Grid, settings *config.Settings, stations *dataset.StationSet, s selection.State) *Contour {
	lo, hi := grid.Range()
	lon, lat := stations.Center()

	return &Contour{
		X:             grid.X,
		Y:             grid.Y,
		Z:             grid.Z,
		Colorscale:    settings.ContourColorSchemes[s.Quantity],
		ColorbarTitle: settings.Quantities[s.Quantity],
		Levels: Levels{
			Start: lo,
			End:   hi,
			Size:  (hi - lo) / contourIntervals,
		},
		Stations:  stations.Stations(),
		Highlight: Highlight{Index: s.Station, Station: stations.At(s.Station)},
		Center:    dataset.Station{Lon: lon, Lat: lat},
	}
}

// NewSeries builds the chart of one quantity. The x axis is in hours and the
// marker sits at the selected time step.
func NewSeries(settings *config.Settings, quantity int, s selection.State, data []float64) *Series {
	step := settings.ForecastSettings.Step

	x := make([]float64, len(data))
	for i := range x {
		x[i] = float64(i) * step
	}

	return &Series{
		Quantity: quantity,
		Title:    fmt.Sprintf("Station %d: %s", s.Station, settings.Quantities[quantity]),
		X:        x,
		Y:        data,
		Color:    settings.GraphColor(quantity),
		Marker:   float64(s.Time) * step,
	}
}

func NewControls(settings *config.Settings, stations int) *Controls {
	c := &Controls{
		Stations:   make([]Option, stations),
		Quantities: make([]Option, len(settings.Quantities)),
		Times:      make([]Option, settings.ForecastSettings.Range),
		Models:     make([]Option, len(config.ModelKinds)),
	}

	for i := range c.Stations {
		c.Stations[i] = Option{Label: fmt.Sprintf("Station %d", i), Value: i}
	}
	for i, name := range settings.Quantities {
		c.Quantities[i] = Option{Label: name, Value: i}
	}
	for i := range c.Times {
		hours := float64(i) * settings.ForecastSettings.Step
		c.Times[i] = Option{Label: strconv.FormatFloat(hours, 'f', -1, 64) + "h", Value: i}
	}
	for i, m := range config.ModelKinds {
		c.Models[i] = Option{Label: m.Label(), Value: int(m)}
	}

	return c
}
