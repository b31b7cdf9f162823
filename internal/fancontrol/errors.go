package fancontrol

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNaNOutput = errors.New("fancontrol: pid controller gave NaN output")

	ErrUnknownHeatSource = errors.New("fancontrol: unknown heat source")
	ErrPWMRange          = errors.New("fancontrol: invalid pwm range")
)

// PIDState is the controller state attached to a NaN failure.
type PIDState struct {
	P, I, D     float64
	SetPoint    float64
	OutMin      float64
	OutMax      float64
	LastReading float64
	Elapsed     time.Duration
}

// NaNError reports a heat source whose controller produced NaN.
type NaNError struct {
	Source string
	State  PIDState
}

func (e *NaNError) Error() string {
	return fmt.Sprintf("pid controller for %s gave NaN output, controller state: %+v", e.Source, e.State)
}

func (e *NaNError) Unwrap() error { return ErrNaNOutput }

type UnknownHeatSourceError struct {
	Fan        string
	HeatSource string
}

func (e *UnknownHeatSourceError) Error() string {
	return fmt.Sprintf("fan %s referenced unknown heat source %s", e.Fan, e.HeatSource)
}

func (e *UnknownHeatSourceError) Unwrap() error { return ErrUnknownHeatSource }

// PWMRangeError reports min_pwm > max_pwm, or max_pwm_when_critical below
// min_pwm. A ceiling between min_pwm and max_pwm is allowed and caps the
// normal range too.
type PWMRangeError struct {
	Fan                string
	MinPWM             uint32
	MaxPWM             uint32
	MaxPWMWhenCritical uint32
}

func (e *PWMRangeError) Error() string {
	if e.MinPWM > e.MaxPWM {
		return fmt.Sprintf("min_pwm %d greater than max_pwm %d for fan %s", e.MinPWM, e.MaxPWM, e.Fan)
	}
	return fmt.Sprintf("max_pwm_when_critical %d less than min_pwm %d for fan %s", e.MaxPWMWhenCritical, e.MinPWM, e.Fan)
}

func (e *PWMRangeError) Unwrap() error { return ErrPWMRange }

// StartupError wraps anything that stops the controller from being built.
// Nothing has been written to any fan when one is returned.
type StartupError struct {
	Err error
}

func (e *StartupError) Error() string { return e.Err.Error() }

func (e *StartupError) Unwrap() error { return e.Err }

// RuntimeError wraps a failure of a single heat source or fan during
// operation. Inside the control loop these are logged and the loop carries on.
type RuntimeError struct {
	Op   string // e.g. "updating source", "updating fan"
	Name string
	Err  error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("error %s %s: %v", e.Op, e.Name, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }
