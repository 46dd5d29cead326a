package restserver

import (
	"github.com/chrissnell/weatherdash/internal/figures"
	"github.com/chrissnell/weatherdash/internal/selection"
)

// SelectionUpdate is the body of PUT /selection/{field}
type SelectionUpdate struct {
	Value any `json:"value"`
}

// ControlsResponse describes the dashboard controls and their current values
type ControlsResponse struct {
	Controls  *figures.Controls `json:"controls"`
	Selection selection.State   `json:"selection"`
}

// UpdateResponse carries the selection after an update and the figures it
// invalidated. Series is omitted when the time series did not change.
type UpdateResponse struct {
	Selection selection.State   `json:"selection"`
	Contour   *figures.Contour  `json:"contour"`
	Series    []*figures.Series `json:"series,omitempty"`
}

// NearestStationResponse answers a map click
type NearestStationResponse struct {
	Station    int     `json:"station"`
	Lon        float64 `json:"lon"`
	Lat        float64 `json:"lat"`
	DistanceKm float64 `json:"distance_km"`
}

// HealthResponse reports liveness and the running version
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
