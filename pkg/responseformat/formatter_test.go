package responseformat

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

type payload struct {
	StationIndex int       `json:"station_index"`
	Values       []float64 `json:"values"`
}

func TestWriteResponseJSON(t *testing.T) {
	f := NewFormatter()
	req := httptest.NewRequest(http.MethodGet, "/series", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, f.WriteResponse(rec, req, payload{StationIndex: 2, Values: []float64{1.5, 2}}, map[string]string{"X-Test": "yes"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ContentTypeJSON, rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "yes", rec.Header().Get("X-Test"))
	assert.JSONEq(t, `{"station_index":2,"values":[1.5,2]}`, rec.Body.String())
	assert.Equal(t, ETag(rec.Body.Bytes()), rec.Header().Get("ETag"))
}

func TestWriteResponseMsgPack(t *testing.T) {
	f := NewFormatter()
	req := httptest.NewRequest(http.MethodGet, "/series?format=msgpack", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, f.WriteResponse(rec, req, payload{StationIndex: 1, Values: []float64{3}}, nil))
	assert.Equal(t, ContentTypeMsgPack, rec.Header().Get("Content-Type"))

	// json tags are used as msgpack keys
	var decoded map[string]any
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Contains(t, decoded, "station_index")
	assert.Contains(t, decoded, "values")
}

func TestWriteResponseNotModified(t *testing.T) {
	f := NewFormatter()
	data := payload{StationIndex: 3}

	first := httptest.NewRecorder()
	require.NoError(t, f.WriteResponse(first, httptest.NewRequest(http.MethodGet, "/contour", nil), data, nil))
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/contour", nil)
	req.Header.Set("If-None-Match", etag)
	second := httptest.NewRecorder()
	require.NoError(t, f.WriteResponse(second, req, data, nil))
	assert.Equal(t, http.StatusNotModified, second.Code)
	assert.Empty(t, second.Body.Bytes())

	// A changed body gets a new tag
	third := httptest.NewRecorder()
	require.NoError(t, f.WriteResponse(third, req, payload{StationIndex: 4}, nil))
	assert.Equal(t, http.StatusOK, third.Code)
	assert.NotEqual(t, etag, third.Header().Get("ETag"))
}

func TestWriteError(t *testing.T) {
	f := NewFormatter()
	rec := httptest.NewRecorder()

	require.NoError(t, f.WriteError(rec, httptest.NewRequest(http.MethodGet, "/contour", nil), http.StatusBadRequest, errors.New("station 9 out of range")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, rec.Header().Get("ETag"))

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, ErrorBody{Error: "Bad Request", Message: "station 9 out of range"}, body)
}
