package selection

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/chrissnell/weatherdash/internal/engine"
	"github.com/chrissnell/weatherdash/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBounds = Bounds{
	Quantities:    []string{"Air Temperature", "Ground Temperature", "Air Humidity"},
	ForecastRange: 20,
	Stations:      4,
}

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	c, err := NewCoordinator(State{}, testBounds)
	require.NoError(t, err)
	return c
}

func TestNewCoordinatorRejectsInvalidInitial(t *testing.T) {
	_, err := NewCoordinator(State{Station: 4}, testBounds)
	assert.ErrorIs(t, err, engine.ErrContractViolation)
}

func TestApplyChangesOneField(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value any
		want  State
	}{
		{"quantity index", FieldQuantity, 2, State{Quantity: 2}},
		{"quantity name", FieldQuantity, "Air Humidity", State{Quantity: 2}},
		{"quantity from json", FieldQuantity, float64(1), State{Quantity: 1}},
		{"time", FieldTime, 19, State{Time: 19}},
		{"time string", FieldTime, "7", State{Time: 7}},
		{"model index", FieldModel, float64(2), State{Model: config.ModelGBR}},
		{"model name", FieldModel, "svr", State{Model: config.ModelSVR}},
		{"model json number", FieldModel, json.Number("1"), State{Model: config.ModelSVR}},
		{"station", FieldStation, json.Number("3"), State{Station: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCoordinator(t)
			require.NoError(t, c.Apply(tt.field, tt.value, nil))
			assert.Equal(t, tt.want, c.Snapshot())
		})
	}
}

func TestApplyRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value any
	}{
		{"negative quantity", FieldQuantity, -1},
		{"quantity too large", FieldQuantity, 3},
		{"unknown quantity name", FieldQuantity, "Pressure"},
		{"time at forecast range", FieldTime, 20},
		{"fractional time", FieldTime, 1.5},
		{"unknown model", FieldModel, 3},
		{"unknown model name", FieldModel, "rf"},
		{"station too large", FieldStation, 4},
		{"station of wrong type", FieldStation, true},
		{"unknown field", "zoom", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCoordinator(t)
			require.NoError(t, c.SetTime(5))

			err := c.Apply(tt.field, tt.value, func(State) error {
				t.Fatal("cycle must not run after a rejected update")
				return nil
			})
			assert.ErrorIs(t, err, engine.ErrContractViolation)
			assert.Equal(t, State{Time: 5}, c.Snapshot())
		})
	}
}

func TestSetters(t *testing.T) {
	c := newTestCoordinator(t)
	require.NoError(t, c.SetQuantity(1))
	require.NoError(t, c.SetTime(4))
	require.NoError(t, c.SetModel(config.ModelSVR))
	require.NoError(t, c.SetStation(2))
	assert.Equal(t, State{Quantity: 1, Time: 4, Model: config.ModelSVR, Station: 2}, c.Snapshot())

	// Last write wins
	require.NoError(t, c.SetStation(0))
	assert.Equal(t, 0, c.Snapshot().Station)
}

func TestApplyRunsCycleWithUpdatedState(t *testing.T) {
	c := newTestCoordinator(t)

	var seen State
	boom := errors.New("boom")
	err := c.Apply(FieldStation, 3, func(s State) error {
		seen = s
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, seen.Station)
	assert.Equal(t, 3, c.Snapshot().Station)
}

func TestDoSerializesCycles(t *testing.T) {
	c := newTestCoordinator(t)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		running int
		maxSeen int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = c.Apply(FieldTime, i, func(State) error {
				mu.Lock()
				running++
				maxSeen = max(maxSeen, running)
				mu.Unlock()

				mu.Lock()
				running--
				mu.Unlock()
				return nil
			})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	require.NoError(t, c.Do(func(s State) error {
		assert.GreaterOrEqual(t, s.Time, 0)
		return nil
	}))
}
