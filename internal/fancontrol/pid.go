package fancontrol

import (
	"math"
	"time"

	"github.com/felixge/pidctrl"
)

// pidEngine wraps pidctrl for heat-pressure control: the error term is
// reading - set-point, so positive gains push the output up as things heat up.
//
// Not safe for concurrent use.
type pidEngine struct {
	ctrl *pidctrl.PIDController

	p, i, d  float64
	setPoint float64
	outMax   float64

	lastReading float64
}

func newPIDEngine(p, i, d, setPoint float64) *pidEngine {
	// pidctrl computes setpoint - value; feeding it negated set-point and
	// readings flips that to value - setpoint without touching its integral
	// clamping or derivative-on-measurement.
	ctrl := pidctrl.NewPIDController(p, i, d)
	ctrl.Set(-setPoint)
	ctrl.SetOutputLimits(0, 1)
	return &pidEngine{
		ctrl:     ctrl,
		p:        p,
		i:        i,
		d:        d,
		setPoint: setPoint,
		outMax:   1,
	}
}

// setCritical lifts the output ceiling to +Inf, or restores it to 1.
func (e *pidEngine) setCritical(critical bool) {
	ceiling := 1.0
	if critical {
		ceiling = math.Inf(1)
	}
	if ceiling == e.outMax {
		return
	}
	e.ctrl.SetOutputLimits(0, ceiling)
	e.outMax = ceiling
}

// update advances the controller. elapsed is 0 on the first call.
func (e *pidEngine) update(reading float64, elapsed time.Duration) float64 {
	e.lastReading = reading
	return e.ctrl.UpdateDuration(-reading, elapsed)
}

func (e *pidEngine) state(elapsed time.Duration) PIDState {
	return PIDState{
		P:           e.p,
		I:           e.i,
		D:           e.d,
		SetPoint:    e.setPoint,
		OutMin:      0,
		OutMax:      e.outMax,
		LastReading: e.lastReading,
		Elapsed:     elapsed,
	}
}
