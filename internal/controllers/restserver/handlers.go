package restserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/chrissnell/weatherdash/internal/constants"
	"github.com/chrissnell/weatherdash/internal/engine"
	"github.com/chrissnell/weatherdash/internal/figures"
	"github.com/chrissnell/weatherdash/internal/regression"
	"github.com/chrissnell/weatherdash/internal/selection"
	"github.com/chrissnell/weatherdash/pkg/responseformat"
	"github.com/gorilla/mux"
)

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

// statusFor maps an error to the HTTP status reported to the client
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrContractViolation):
		return http.StatusBadRequest
	case errors.Is(err, regression.ErrRegressionFailure):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) fail(w http.ResponseWriter, req *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.controller.logger.Errorw("request failed", "path", req.URL.Path, "request_id", requestID(req), "error", err)
	} else {
		h.controller.logger.Debugw("request rejected", "path", req.URL.Path, "status", status, "error", err)
	}
	if werr := h.formatter.WriteError(w, req, status, err); werr != nil {
		h.controller.logger.Errorf("error writing error response: %v", werr)
	}
}

func (h *Handlers) respond(w http.ResponseWriter, req *http.Request, data any) {
	if err := h.formatter.WriteResponse(w, req, data, nil); err != nil {
		h.controller.logger.Errorf("error writing response for %s: %v", req.URL.Path, err)
	}
}

// GetHealth reports that the server is up
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	h.respond(w, req, HealthResponse{Status: "ok", Version: constants.Version})
}

// GetControls returns the control options and the current selection
func (h *Handlers) GetControls(w http.ResponseWriter, req *http.Request) {
	h.respond(w, req, ControlsResponse{
		Controls:  h.controller.figures.Controls(),
		Selection: h.controller.coordinator.Snapshot(),
	})
}

// GetSelection returns the current selection
func (h *Handlers) GetSelection(w http.ResponseWriter, req *http.Request) {
	h.respond(w, req, h.controller.coordinator.Snapshot())
}

// PutSelection changes one selection field and returns the recomputed
// figures. The contour is always recomputed; the time series only when the
// station or the time marker moved.
func (h *Handlers) PutSelection(w http.ResponseWriter, req *http.Request) {
	field := mux.Vars(req)["field"]

	var update SelectionUpdate
	dec := json.NewDecoder(req.Body)
	dec.UseNumber()
	if err := dec.Decode(&update); err != nil {
		h.fail(w, req, engine.Violation("invalid selection body: %v", err))
		return
	}
	if update.Value == nil {
		h.fail(w, req, engine.Violation("selection body needs a value"))
		return
	}

	var resp UpdateResponse
	err := h.controller.coordinator.Apply(field, update.Value, func(s selection.State) error {
		resp.Selection = s

		contour, err := h.controller.figures.Contour(s)
		if err != nil {
			return err
		}
		resp.Contour = contour

		if field == selection.FieldStation || field == selection.FieldTime {
			series, err := h.controller.figures.AllSeries(s)
			if err != nil {
				return err
			}
			resp.Series = series
		}
		return nil
	})
	if err != nil {
		h.fail(w, req, err)
		return
	}

	h.respond(w, req, resp)
}

// GetContour returns the contour figure for the current selection
func (h *Handlers) GetContour(w http.ResponseWriter, req *http.Request) {
	var contour *figures.Contour
	err := h.controller.coordinator.Do(func(s selection.State) error {
		var err error
		contour, err = h.controller.figures.Contour(s)
		return err
	})
	if err != nil {
		h.fail(w, req, err)
		return
	}

	h.respond(w, req, contour)
}

// GetSeries returns one time series figure per quantity for the selected station
func (h *Handlers) GetSeries(w http.ResponseWriter, req *http.Request) {
	var series []*figures.Series
	err := h.controller.coordinator.Do(func(s selection.State) error {
		var err error
		series, err = h.controller.figures.AllSeries(s)
		return err
	})
	if err != nil {
		h.fail(w, req, err)
		return
	}

	h.respond(w, req, series)
}

// GetNearestStation finds the station closest to ?lat=&lon=
func (h *Handlers) GetNearestStation(w http.ResponseWriter, req *http.Request) {
	lat, err := floatParam(req, "lat")
	if err != nil {
		h.fail(w, req, err)
		return
	}
	lon, err := floatParam(req, "lon")
	if err != nil {
		h.fail(w, req, err)
		return
	}

	idx, km, err := h.controller.stations.Nearest(lat, lon)
	if err != nil {
		h.fail(w, req, engine.Violation("%v", err))
		return
	}

	st := h.controller.stations.At(idx)
	h.respond(w, req, NearestStationResponse{Station: idx, Lon: st.Lon, Lat: st.Lat, DistanceKm: km})
}

func floatParam(req *http.Request, name string) (float64, error) {
	raw := req.URL.Query().Get(name)
	if raw == "" {
		return 0, engine.Violation("missing query parameter %q", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, engine.Violation("invalid %s %q: %v", name, raw, err)
	}
	return v, nil
}
