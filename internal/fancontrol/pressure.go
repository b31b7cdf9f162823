package fancontrol

import "math"

// Pressure is a heat-pressure value: how hard a heat source wants the fans to
// work. 0 is idle, 1 is max_pwm, above 1 only happens in critical mode.
// The zero value is 0; any other value comes from NewPressure and is never NaN.
type Pressure struct {
	v float64
}

// NewPressure rejects NaN.
func NewPressure(v float64) (Pressure, error) {
	if math.IsNaN(v) {
		return Pressure{}, ErrNaNOutput
	}
	return Pressure{v: v}, nil
}

func (p Pressure) Float64() float64 { return p.v }

func maxPressure(a, b Pressure) Pressure {
	if b.v > a.v {
		return b
	}
	return a
}

// fullPressure drives a fan to max_pwm. Heat sources start here and fans with
// no heat sources stay here.
var fullPressure = Pressure{v: 1.0}
