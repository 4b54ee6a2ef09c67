package depthmatch

import (
	"context"
	"fmt"
	"sync"

	"go.viam.com/rdk/components/sensor"
)

// confirmReader abstracts the confirm button for mock vs hardware implementations.
// An error means the input source is unavailable for this tick.
type confirmReader interface {
	ReadConfirm(ctx context.Context) (bool, error)
}

// sensorConfirmReader wraps a Viam sensor whose readings carry the button level
type sensorConfirmReader struct {
	sensor     sensor.Sensor
	confirmKey string
}

func newSensorConfirmReader(s sensor.Sensor, confirmKey string) *sensorConfirmReader {
	if confirmKey == "" {
		confirmKey = "confirm"
	}
	return &sensorConfirmReader{sensor: s, confirmKey: confirmKey}
}

func (r *sensorConfirmReader) ReadConfirm(ctx context.Context) (bool, error) {
	readings, err := r.sensor.Readings(ctx, nil)
	if err != nil {
		return false, err
	}

	val, ok := readings[r.confirmKey]
	if !ok {
		return false, fmt.Errorf("sensor readings missing %q key", r.confirmKey)
	}

	switch v := val.(type) {
	case bool:
		return v, nil
	case float64:
		return v >= 0.5, nil
	case int:
		return v != 0, nil
	case int64:
		return v != 0, nil
	default:
		return false, fmt.Errorf("sensor reading %q is not a button level: %T", r.confirmKey, val)
	}
}

// mockConfirmReader simulates a participant: the button is held for holdTicks
// reads out of every period reads.
type mockConfirmReader struct {
	mu        sync.Mutex
	period    int
	holdTicks int
	reads     int
}

func newMockConfirmReader(period, holdTicks int) *mockConfirmReader {
	if period <= 1 {
		period = 2
	}
	if holdTicks <= 0 || holdTicks >= period {
		holdTicks = 1
	}
	return &mockConfirmReader{period: period, holdTicks: holdTicks}
}

func (m *mockConfirmReader) ReadConfirm(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos := m.reads % m.period
	m.reads++
	// Released for the first part of each period, then held
	return pos >= m.period-m.holdTicks, nil
}

// sampleConfirm reads one tick of input; any read error marks the source unavailable.
func sampleConfirm(ctx context.Context, r confirmReader) ConfirmSample {
	held, err := r.ReadConfirm(ctx)
	if err != nil {
		return ConfirmSample{}
	}
	return ConfirmSample{Held: held, Available: true}
}
