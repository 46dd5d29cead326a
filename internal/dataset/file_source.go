package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sbinet/npyio"
)

// FileSource loads station positions from a CSV file and measurements from
// a NumPy .npy file holding a 3-D float64 array (time, station, quantity).
type FileSource struct {
	StationsPath string
	DataPath     string
}

// NewFileSource creates a file-backed dataset source
func NewFileSource(stationsPath, dataPath string) *FileSource {
	return &FileSource{
		StationsPath: stationsPath,
		DataPath:     dataPath,
	}
}

// Load reads both files; it fails if either is absent or malformed
func (f *FileSource) Load() (*Dataset, error) {
	stations, err := f.loadStations()
	if err != nil {
		return nil, err
	}

	tensor, err := f.loadTensor()
	if err != nil {
		return nil, err
	}

	return &Dataset{Stations: stations, Tensor: tensor}, nil
}

func (f *FileSource) loadStations() (*StationSet, error) {
	file, err := os.Open(f.StationsPath)
	if err != nil {
		return nil, &DataLoadError{Msg: "could not open station file " + f.StationsPath, Err: err}
	}
	defer file.Close()

	stations, err := ReadStationsCSV(file)
	if err != nil {
		return nil, &DataLoadError{Msg: "could not parse station file " + f.StationsPath, Err: err}
	}
	return stations, nil
}

// ReadStationsCSV parses a station table with a header row naming the
// lon/lat (or longitude/latitude) columns. Row order is station order.
func ReadStationsCSV(r io.Reader) (*StationSet, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	lonCol, latCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "lon", "longitude":
			lonCol = i
		case "lat", "latitude":
			latCol = i
		}
	}
	if lonCol < 0 || latCol < 0 {
		return nil, fmt.Errorf("header must name lon and lat columns, got %v", header)
	}

	var stations []Station
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		lon, err := strconv.ParseFloat(strings.TrimSpace(record[lonCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid longitude %q", line, record[lonCol])
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(record[latCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid latitude %q", line, record[latCol])
		}
		st := Station{Lon: lon, Lat: lat}
		if !st.Valid() {
			return nil, fmt.Errorf("line %d: position (%v, %v) is not finite", line, lon, lat)
		}
		stations = append(stations, st)
	}

	if len(stations) == 0 {
		return nil, fmt.Errorf("no stations defined")
	}
	return NewStationSet(stations), nil
}

func (f *FileSource) loadTensor() (*Tensor, error) {
	file, err := os.Open(f.DataPath)
	if err != nil {
		return nil, &DataLoadError{Msg: "could not open measurement file " + f.DataPath, Err: err}
	}
	defer file.Close()

	tensor, err := ReadTensorNPY(file)
	if err != nil {
		return nil, &DataLoadError{Msg: "could not parse measurement file " + f.DataPath, Err: err}
	}
	return tensor, nil
}

// ReadTensorNPY decodes a 3-D float64 .npy array. Fortran-ordered arrays are
// rearranged into row-major order.
func ReadTensorNPY(r io.Reader) (*Tensor, error) {
	npy, err := npyio.NewReader(r)
	if err != nil {
		return nil, err
	}

	shape := npy.Header.Descr.Shape
	if len(shape) != 3 {
		return nil, fmt.Errorf("expected a 3-D array, got shape %v", shape)
	}

	raw := make([]float64, shape[0]*shape[1]*shape[2])
	if err := npy.Read(&raw); err != nil {
		return nil, err
	}

	if npy.Header.Descr.Fortran {
		raw = fortranToRowMajor(raw, shape[0], shape[1], shape[2])
	}

	return NewTensor(shape[0], shape[1], shape[2], raw)
}

func fortranToRowMajor(src []float64, d0, d1, d2 int) []float64 {
	dst := make([]float64, len(src))
	for i := 0; i < d0; i++ {
		for j := 0; j < d1; j++ {
			for k := 0; k < d2; k++ {
				dst[(i*d1+j)*d2+k] = src[i+d0*(j+d1*k)]
			}
		}
	}
	return dst
}
