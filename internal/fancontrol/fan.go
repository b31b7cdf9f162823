package fancontrol

import (
	"fmt"
	"math"

	"pid-fan-controller/internal/sysfs"
)

var writeFileFn = sysfs.WriteUint

// ControlMode selects who drives a fan: this process (manual) or the
// firmware/driver (auto).
type ControlMode int

const (
	ModeManual ControlMode = iota
	ModeAuto
)

func (m ControlMode) String() string {
	switch m {
	case ModeManual:
		return "manual"
	case ModeAuto:
		return "auto"
	default:
		return fmt.Sprintf("ControlMode(%d)", int(m))
	}
}

// Fan writes PWM values derived from the hottest of its heat sources.
type Fan struct {
	name     string
	pwmPath  string
	modePath string

	minPWM             uint32
	maxPWM             uint32
	maxPWMWhenCritical uint32

	manualMode uint32
	autoMode   uint32

	// sources index into the controller's heat source slice.
	sources []int

	lastPWM uint32
	written bool
}

func (f *Fan) Name() string { return f.name }

// LastPWM is the last value successfully written; ok is false before the
// first write.
func (f *Fan) LastPWM() (pwm uint32, ok bool) { return f.lastPWM, f.written }

func (f *Fan) SetControlMode(mode ControlMode) error {
	v := f.autoMode
	if mode == ModeManual {
		v = f.manualMode
	}
	return writeFileFn(f.modePath, uint64(v))
}

// pwmForPercent maps a pressure to a PWM value. percent may exceed 1 in
// critical mode; the result never exceeds max_pwm_when_critical.
func (f *Fan) pwmForPercent(percent float64) uint32 {
	if percent < 0 || math.IsNaN(percent) {
		panic(fmt.Sprintf("fancontrol: fan %s given pwm percent %v", f.name, percent))
	}
	span := float64(f.maxPWM - f.minPWM)
	scaled := 0.0
	if span > 0 {
		scaled = math.Round(span * percent)
	}
	speed := float64(f.minPWM) + scaled
	if speed > float64(f.maxPWMWhenCritical) {
		speed = float64(f.maxPWMWhenCritical)
	}
	return uint32(speed)
}

// SetPWMSpeedPercent writes min_pwm + round((max_pwm-min_pwm)*percent),
// capped at max_pwm_when_critical. percent must not be negative.
func (f *Fan) SetPWMSpeedPercent(percent float64) (uint32, error) {
	speed := f.pwmForPercent(percent)
	if err := writeFileFn(f.pwmPath, uint64(speed)); err != nil {
		return 0, err
	}
	f.lastPWM = speed
	f.written = true
	return speed, nil
}

// pressure is the max output over the fan's sources. Sources that failed
// this tick still contribute their last good output. A fan without sources
// runs at full pressure.
func (f *Fan) pressure(sources []*HeatSource) Pressure {
	if len(f.sources) == 0 {
		return fullPressure
	}
	p := sources[f.sources[0]].Output()
	for _, idx := range f.sources[1:] {
		p = maxPressure(p, sources[idx].Output())
	}
	return p
}

// Update writes the PWM value for the current outputs of sources.
func (f *Fan) Update(sources []*HeatSource) (uint32, error) {
	return f.SetPWMSpeedPercent(f.pressure(sources).Float64())
}
