// Package selection holds the dashboard's current selection and serializes
// the interpolation cycles that read it.
package selection

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/chrissnell/weatherdash/internal/engine"
	"github.com/chrissnell/weatherdash/pkg/config"
)

// Selectable fields
const (
	FieldQuantity = "quantity"
	FieldTime     = "time"
	FieldModel    = "model"
	FieldStation  = "station"
)

// State is one snapshot of the user's selection
type State struct {
	Quantity int              `json:"quantity"`
	Time     int              `json:"time"`
	Model    config.ModelKind `json:"model"`
	Station  int              `json:"station"`
}

// Bounds are the valid ranges of the selection fields
type Bounds struct {
	Quantities    []string
	ForecastRange int
	Stations      int
}

// Coordinator owns the selection. All reads and writes go through it, and
// Do runs at most one interpolation cycle at a time.
type Coordinator struct {
	mu     sync.Mutex
	state  State
	bounds Bounds
}

// NewCoordinator starts from initial, which must lie within bounds
func NewCoordinator(initial State, bounds Bounds) (*Coordinator, error) {
	c := &Coordinator{bounds: bounds}
	if err := c.check(initial); err != nil {
		return nil, fmt.Errorf("invalid initial selection: %w", err)
	}
	c.state = initial
	return c, nil
}

// Snapshot returns a copy of the current selection
func (c *Coordinator) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) SetQuantity(q int) error {
	return c.Apply(FieldQuantity, q, nil)
}

func (c *Coordinator) SetTime(t int) error {
	return c.Apply(FieldTime, t, nil)
}

func (c *Coordinator) SetModel(m config.ModelKind) error {
	return c.Apply(FieldModel, int(m), nil)
}

func (c *Coordinator) SetStation(s int) error {
	return c.Apply(FieldStation, s, nil)
}

// Do runs fn with the current selection while holding the coordinator lock
func (c *Coordinator) Do(fn func(State) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(c.state)
}

// Apply changes one field and, if fn is not nil, runs fn with the updated
// selection before releasing the lock. An invalid value leaves the
// selection untouched. A failing fn does not roll the change back.
func (c *Coordinator) Apply(field string, value any, fn func(State) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.state
	switch field {
	case FieldQuantity:
		q, err := c.parseQuantity(value)
		if err != nil {
			return err
		}
		next.Quantity = q
	case FieldTime:
		t, ok := toIndex(value)
		if !ok {
			return engine.Violation("invalid time %v", value)
		}
		next.Time = t
	case FieldModel:
		m, err := config.ParseModelKind(normalize(value))
		if err != nil {
			return engine.Violation("%v", err)
		}
		next.Model = m
	case FieldStation:
		s, ok := toIndex(value)
		if !ok {
			return engine.Violation("invalid station %v", value)
		}
		next.Station = s
	default:
		return engine.Violation("unknown selection field %q", field)
	}

	if err := c.check(next); err != nil {
		return err
	}
	c.state = next

	if fn == nil {
		return nil
	}
	return fn(next)
}

// parseQuantity accepts a quantity index or one of the configured names
func (c *Coordinator) parseQuantity(value any) (int, error) {
	if s, ok := value.(string); ok {
		for i, name := range c.bounds.Quantities {
			if name == s {
				return i, nil
			}
		}
	}
	q, ok := toIndex(value)
	if !ok {
		return 0, engine.Violation("invalid quantity %v", value)
	}
	return q, nil
}

func (c *Coordinator) check(s State) error {
	switch {
	case s.Quantity < 0 || s.Quantity >= len(c.bounds.Quantities):
		return engine.Violation("quantity %d out of range [0, %d)", s.Quantity, len(c.bounds.Quantities))
	case s.Time < 0 || s.Time >= c.bounds.ForecastRange:
		return engine.Violation("time %d out of range [0, %d)", s.Time, c.bounds.ForecastRange)
	case !s.Model.Valid():
		return engine.Violation("unknown model %d", int(s.Model))
	case s.Station < 0 || s.Station >= c.bounds.Stations:
		return engine.Violation("station %d out of range [0, %d)", s.Station, c.bounds.Stations)
	}
	return nil
}

func normalize(v any) any {
	if n, ok := v.(json.Number); ok {
		return n.String()
	}
	return v
}

// toIndex converts a decoded JSON value to an integer index
func toIndex(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := strconv.Atoi(n.String())
		return i, err == nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	default:
		return 0, false
	}
}
