package fancontrol

import (
	"math"
	"testing"
	"time"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestPIDEngine_FirstUpdateUsesZeroElapsed(t *testing.T) {
	e := newPIDEngine(0, 1, 1, 50)
	out := e.update(60, 0)
	if out != 0 {
		t.Fatalf("out=%v want 0 (no integral or derivative without elapsed time)", out)
	}
}

func TestPIDEngine_SignConvention(t *testing.T) {
	e := newPIDEngine(1, 0, 0, 50)

	// reading above set-point => positive pressure, clamped at 1.
	if out := e.update(60, 0); out != 1 {
		t.Fatalf("out=%v want 1", out)
	}
	// reading below set-point => clamped at 0.
	if out := e.update(40, time.Second); out != 0 {
		t.Fatalf("out=%v want 0", out)
	}
}

func TestPIDEngine_MonotonicAboveSetPoint(t *testing.T) {
	e := newPIDEngine(0.05, 0, 0, 50)
	prev := -1.0
	for r := 50.0; r <= 75; r++ {
		out := e.update(r, time.Second)
		if out < prev {
			t.Fatalf("reading=%v out=%v dropped below previous %v", r, out, prev)
		}
		if out < 0 || out > 1 {
			t.Fatalf("reading=%v out=%v outside [0,1]", r, out)
		}
		prev = out
	}
	if prev != 1 {
		t.Fatalf("final out=%v want 1", prev)
	}
}

func TestPIDEngine_Integral(t *testing.T) {
	e := newPIDEngine(0, 0.01, 0, 50)
	e.update(60, 0)
	if out := e.update(60, time.Second); !near(out, 0.1) {
		t.Fatalf("out=%v want 0.1", out)
	}
	if out := e.update(60, time.Second); !near(out, 0.2) {
		t.Fatalf("out=%v want 0.2", out)
	}
}

func TestPIDEngine_DerivativeOnRisingReading(t *testing.T) {
	e := newPIDEngine(0, 0, 0.1, 50)
	e.update(50, 0)
	if out := e.update(52, time.Second); !near(out, 0.2) {
		t.Fatalf("out=%v want 0.2", out)
	}
}

func TestPIDEngine_CriticalLiftsCeiling(t *testing.T) {
	e := newPIDEngine(1, 0, 0, 50)
	e.setCritical(true)
	if e.outMax != math.Inf(1) {
		t.Fatalf("outMax=%v want +Inf", e.outMax)
	}
	if out := e.update(60, 0); out != 10 {
		t.Fatalf("out=%v want 10", out)
	}

	e.setCritical(false)
	if e.outMax != 1 {
		t.Fatalf("outMax=%v want 1", e.outMax)
	}
	if out := e.update(60, time.Second); out != 1 {
		t.Fatalf("out=%v want 1", out)
	}
}

func TestPIDEngine_State(t *testing.T) {
	e := newPIDEngine(0.1, 0.2, 0.3, 45)
	e.update(47, 0)
	st := e.state(2 * time.Second)
	if st.P != 0.1 || st.I != 0.2 || st.D != 0.3 || st.SetPoint != 45 {
		t.Fatalf("state=%+v", st)
	}
	if st.LastReading != 47 || st.Elapsed != 2*time.Second || st.OutMax != 1 {
		t.Fatalf("state=%+v", st)
	}
}
