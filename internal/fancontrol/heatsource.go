package fancontrol

import (
	"math"
	"time"

	"pid-fan-controller/internal/config"
	"pid-fan-controller/internal/sysfs"
)

var (
	nowFn        = time.Now
	readSensorFn = sysfs.ReadMilli
)

// HeatSource pairs a sensor file with its own PID controller and turns
// readings into a Pressure.
type HeatSource struct {
	name     string
	path     string
	pid      *pidEngine
	critical float64

	lastUpdate  time.Time
	lastReading float64
	output      Pressure
}

func newHeatSource(name, path string, params config.PIDParams) *HeatSource {
	critical := math.Inf(1)
	if params.CriticalTemperature != nil {
		critical = *params.CriticalTemperature
	}
	return &HeatSource{
		name:     name,
		path:     path,
		pid:      newPIDEngine(params.P, params.I, params.D, params.SetPoint),
		critical: critical,
		output:   fullPressure,
	}
}

func (h *HeatSource) Name() string { return h.name }

func (h *HeatSource) Path() string { return h.path }

func (h *HeatSource) SetPoint() float64 { return h.pid.setPoint }

// Output is the last successfully computed pressure, 1.0 before the first.
func (h *HeatSource) Output() Pressure { return h.output }

// LastReading is the reading behind Output.
func (h *HeatSource) LastReading() float64 { return h.lastReading }

// OutputCeiling is the controller's current upper clamp: 1, or +Inf while
// the last reading was above the critical temperature.
func (h *HeatSource) OutputCeiling() float64 { return h.pid.outMax }

// Update reads the sensor and advances the controller. On error the stored
// output and update time are left as they were.
func (h *HeatSource) Update() error {
	now := nowFn()
	reading, err := readSensorFn(h.path)
	if err != nil {
		return err
	}

	var elapsed time.Duration
	if !h.lastUpdate.IsZero() {
		elapsed = now.Sub(h.lastUpdate)
	}

	// Leaving the critical range snaps the ceiling straight back to 1; there
	// is no ramp down.
	h.pid.setCritical(reading > h.critical)

	out, err := NewPressure(h.pid.update(reading, elapsed))
	if err != nil {
		return &NaNError{Source: h.name, State: h.pid.state(elapsed)}
	}
	h.lastUpdate = now
	h.lastReading = reading
	h.output = out
	return nil
}
