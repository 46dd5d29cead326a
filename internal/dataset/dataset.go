// Package dataset holds the static station positions and measurement tensor
// the dashboard interpolates over, and the sources they are loaded from.
package dataset

import (
	"fmt"
	"math"

	"github.com/golang/geo/s2"
)

// earthRadiusKm is the mean Earth radius used for great-circle distances
const earthRadiusKm = 6371.0

// Station is a fixed geographic point, in degrees
type Station struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Valid reports whether both coordinates are finite numbers
func (st Station) Valid() bool {
	return !math.IsNaN(st.Lon) && !math.IsInf(st.Lon, 0) &&
		!math.IsNaN(st.Lat) && !math.IsInf(st.Lat, 0)
}

// StationSet is the ordered set of stations. A station's index is its
// identifier throughout the application.
type StationSet struct {
	stations []Station
}

// NewStationSet copies stations into an immutable StationSet
func NewStationSet(stations []Station) *StationSet {
	s := make([]Station, len(stations))
	copy(s, stations)
	return &StationSet{stations: s}
}

// Len returns the number of stations
func (s *StationSet) Len() int {
	return len(s.stations)
}

// At returns the station at index i
func (s *StationSet) At(i int) Station {
	return s.stations[i]
}

// Stations returns a copy of all stations in index order
func (s *StationSet) Stations() []Station {
	out := make([]Station, len(s.stations))
	copy(out, s.stations)
	return out
}

// Positions returns (lon, lat) pairs in index order
func (s *StationSet) Positions() [][2]float64 {
	out := make([][2]float64, len(s.stations))
	for i, st := range s.stations {
		out[i] = [2]float64{st.Lon, st.Lat}
	}
	return out
}

// Bounds returns the minimum and maximum longitude and latitude
func (s *StationSet) Bounds() (minLon, maxLon, minLat, maxLat float64) {
	minLon, minLat = math.Inf(1), math.Inf(1)
	maxLon, maxLat = math.Inf(-1), math.Inf(-1)
	for _, st := range s.stations {
		minLon = math.Min(minLon, st.Lon)
		maxLon = math.Max(maxLon, st.Lon)
		minLat = math.Min(minLat, st.Lat)
		maxLat = math.Max(maxLat, st.Lat)
	}
	return
}

// Center returns the mean longitude and latitude of the stations
func (s *StationSet) Center() (lon, lat float64) {
	if len(s.stations) == 0 {
		return 0, 0
	}
	for _, st := range s.stations {
		lon += st.Lon
		lat += st.Lat
	}
	n := float64(len(s.stations))
	return lon / n, lat / n
}

// DistinctPositions counts stations with distinct coordinates
func (s *StationSet) DistinctPositions() int {
	seen := make(map[Station]struct{}, len(s.stations))
	for _, st := range s.stations {
		seen[st] = struct{}{}
	}
	return len(seen)
}

// Nearest returns the index of the station closest to (lat, lon) along the
// great circle, and its distance in kilometers.
func (s *StationSet) Nearest(lat, lon float64) (int, float64, error) {
	if len(s.stations) == 0 {
		return -1, 0, fmt.Errorf("no stations loaded")
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return -1, 0, fmt.Errorf("coordinates out of range: lat=%v lon=%v", lat, lon)
	}

	query := s2.LatLngFromDegrees(lat, lon)
	best, bestDist := -1, math.Inf(1)
	for i, st := range s.stations {
		d := query.Distance(s2.LatLngFromDegrees(st.Lat, st.Lon)).Radians()
		if d < bestDist {
			best, bestDist = i, d
		}
	}

	return best, bestDist * earthRadiusKm, nil
}

// Tensor is the measurement tensor indexed by (time step, station, quantity).
// Values are stored contiguously in row-major order.
type Tensor struct {
	steps, stations, quantities int
	data                        []float64
}

// NewTensor wraps row-major data of the given shape
func NewTensor(steps, stations, quantities int, data []float64) (*Tensor, error) {
	if steps <= 0 || stations <= 0 || quantities <= 0 {
		return nil, fmt.Errorf("invalid tensor shape (%d, %d, %d)", steps, stations, quantities)
	}
	if len(data) != steps*stations*quantities {
		return nil, fmt.Errorf("tensor shape (%d, %d, %d) needs %d values, got %d",
			steps, stations, quantities, steps*stations*quantities, len(data))
	}
	return &Tensor{steps: steps, stations: stations, quantities: quantities, data: data}, nil
}

// Shape returns the (time steps, stations, quantities) dimensions
func (t *Tensor) Shape() (steps, stations, quantities int) {
	return t.steps, t.stations, t.quantities
}

// At returns the value at (step, station, quantity)
func (t *Tensor) At(step, station, quantity int) float64 {
	return t.data[t.offset(step, station, quantity)]
}

func (t *Tensor) offset(step, station, quantity int) int {
	return (step*t.stations+station)*t.quantities + quantity
}

// Snapshot copies the values of every station at one time step and quantity
func (t *Tensor) Snapshot(step, quantity int) []float64 {
	out := make([]float64, t.stations)
	for s := range out {
		out[s] = t.At(step, s, quantity)
	}
	return out
}

// Series copies the first n time steps of one station and quantity
func (t *Tensor) Series(station, quantity, n int) []float64 {
	out := make([]float64, n)
	for step := range out {
		out[step] = t.At(step, station, quantity)
	}
	return out
}

// Dataset bundles the stations with their measurements
type Dataset struct {
	Stations *StationSet
	Tensor   *Tensor
}

// Check verifies the dataset dimensions against the configured quantity
// count and forecast range.
func (d *Dataset) Check(quantities, forecastRange int) error {
	for i, st := range d.Stations.stations {
		if !st.Valid() {
			return &DataLoadError{Msg: fmt.Sprintf("station %d has a non-finite position (%v, %v)", i, st.Lon, st.Lat)}
		}
	}

	steps, stations, q := d.Tensor.Shape()
	if stations != d.Stations.Len() {
		return &DataLoadError{Msg: fmt.Sprintf("measurements cover %d stations, station list has %d", stations, d.Stations.Len())}
	}
	if q != quantities {
		return &DataLoadError{Msg: fmt.Sprintf("measurements cover %d quantities, configuration defines %d", q, quantities)}
	}
	if steps < forecastRange {
		return &DataLoadError{Msg: fmt.Sprintf("measurements cover %d time steps, forecast range is %d", steps, forecastRange)}
	}
	return nil
}

// Source loads a dataset at startup
type Source interface {
	Load() (*Dataset, error)
}

// DataLoadError reports a missing or corrupt station or measurement source
type DataLoadError struct {
	Msg string
	Err error
}

func (e *DataLoadError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}
