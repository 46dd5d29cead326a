package responseformat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Content types
const (
	ContentTypeJSON    = "application/json"
	ContentTypeMsgPack = "application/x-msgpack"
)

// Formatter handles encoding and writing responses in JSON or MessagePack format
type Formatter struct{}

// NewFormatter creates a new response formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

// ErrorBody is the payload of every error response
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteResponse writes the response in the appropriate format based on the query parameter
// JSON is the default format. MessagePack is used when format=msgpack is specified.
// The body is tagged with an ETag; a matching If-None-Match yields 304 Not Modified.
func (f *Formatter) WriteResponse(w http.ResponseWriter, req *http.Request, data any, headers map[string]string) error {
	return f.write(w, req, http.StatusOK, data, headers)
}

// WriteError writes an error payload with the given status
func (f *Formatter) WriteError(w http.ResponseWriter, req *http.Request, status int, err error) error {
	body := ErrorBody{Error: http.StatusText(status), Message: err.Error()}
	return f.write(w, req, status, body, nil)
}

func (f *Formatter) write(w http.ResponseWriter, req *http.Request, status int, data any, headers map[string]string) error {
	// Set any provided headers first
	for k, v := range headers {
		w.Header().Set(k, v)
	}

	// Always set CORS header
	w.Header().Set("Access-Control-Allow-Origin", "*")

	contentType, body, err := f.Encode(req, data)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", contentType)

	if status == http.StatusOK {
		etag := ETag(body)
		w.Header().Set("ETag", etag)
		if req.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return nil
		}
	}

	w.WriteHeader(status)
	_, err = w.Write(body)
	return err
}

// Encode encodes data in the format requested by req
func (f *Formatter) Encode(req *http.Request, data any) (string, []byte, error) {
	var buf bytes.Buffer

	// Check if MessagePack is requested via format=msgpack query parameter
	if req.URL.Query().Get("format") == "msgpack" {
		encoder := msgpack.NewEncoder(&buf)
		encoder.SetCustomStructTag("json") // Use json tags for MessagePack
		if err := encoder.Encode(data); err != nil {
			return "", nil, fmt.Errorf("error encoding msgpack response: %w", err)
		}
		return ContentTypeMsgPack, buf.Bytes(), nil
	}

	// Default to JSON format (when no format parameter or any other value)
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		return "", nil, fmt.Errorf("error encoding json response: %w", err)
	}
	return ContentTypeJSON, buf.Bytes(), nil
}

// ETag is a strong entity tag derived from the xxhash of body
func ETag(body []byte) string {
	return fmt.Sprintf(`"%016x"`, xxhash.Sum64(body))
}
