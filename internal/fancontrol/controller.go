// Package fancontrol runs the heat-source → PID → fan PWM control loop.
package fancontrol

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pid-fan-controller/internal/config"
	"pid-fan-controller/internal/sysfs"
)

var (
	resolvePathFn = sysfs.MatchSingle
	afterFn       = time.After
)

// Logger is what the controller needs for per-tick diagnostics.
type Logger interface {
	Info(format string, args ...any)
	Error(format string, args ...any)
}

type SourceStatus struct {
	Name       string      `json:"name"`
	Reading    float64     `json:"reading"`
	Output     StatusFloat `json:"output"`
	Critical   bool        `json:"critical"`
	LastUpdate time.Time   `json:"last_update_utc"`
}

type FanStatus struct {
	Name    string `json:"name"`
	PWM     uint32 `json:"pwm"`
	Written bool   `json:"written"`
}

type Snapshot struct {
	Sources []SourceStatus `json:"sources"`
	Fans    []FanStatus    `json:"fans"`
}

// Controller owns every heat source and fan. Its shape is fixed after New;
// only per-source and per-fan runtime state changes.
//
// Tick, SetControlModes and Snapshot may be called from different
// goroutines; Tick is meant to be driven by a single Run.
type Controller struct {
	interval time.Duration
	log      Logger

	mu      sync.Mutex
	sources []*HeatSource
	fans    []*Fan
}

// New resolves every wildcard path and builds the controller. Any error is a
// *StartupError.
func New(cfg config.Config, log Logger) (*Controller, error) {
	c, err := build(cfg, log)
	if err != nil {
		return nil, &StartupError{Err: err}
	}
	return c, nil
}

func build(cfg config.Config, log Logger) (*Controller, error) {
	index := make(map[string]int, len(cfg.HeatPressureSrcs))
	for i, src := range cfg.HeatPressureSrcs {
		index[src.Name] = i
	}

	fans := make([]*Fan, 0, len(cfg.Fans))
	for _, fc := range cfg.Fans {
		fan, err := buildFan(fc, index)
		if err != nil {
			return nil, err
		}
		fans = append(fans, fan)
	}

	sources := make([]*HeatSource, 0, len(cfg.HeatPressureSrcs))
	for _, sc := range cfg.HeatPressureSrcs {
		path, err := resolvePathFn(sc.WildcardPath)
		if err != nil {
			return nil, err
		}
		sources = append(sources, newHeatSource(sc.Name, path, sc.PID))
	}

	return &Controller{
		interval: cfg.SampleDuration(),
		sources:  sources,
		fans:     fans,
		log:      log,
	}, nil
}

func buildFan(fc config.Fan, index map[string]int) (*Fan, error) {
	critical := fc.MaxPWM
	if fc.MaxPWMWhenCritical != nil {
		critical = *fc.MaxPWMWhenCritical
	}
	if fc.MinPWM > fc.MaxPWM || critical < fc.MinPWM {
		return nil, &PWMRangeError{Fan: fc.Name, MinPWM: fc.MinPWM, MaxPWM: fc.MaxPWM, MaxPWMWhenCritical: critical}
	}

	refs := make([]int, 0, len(fc.HeatPressureSrcs))
	for _, name := range fc.HeatPressureSrcs {
		idx, ok := index[name]
		if !ok {
			return nil, &UnknownHeatSourceError{Fan: fc.Name, HeatSource: name}
		}
		refs = append(refs, idx)
	}

	pwmPath, err := resolvePathFn(fc.WildcardPath)
	if err != nil {
		return nil, err
	}
	modePath, err := resolvePathFn(fc.PWMModes.PWMModeWildcardPath)
	if err != nil {
		return nil, err
	}

	return &Fan{
		name:               fc.Name,
		pwmPath:            pwmPath,
		modePath:           modePath,
		minPWM:             fc.MinPWM,
		maxPWM:             fc.MaxPWM,
		maxPWMWhenCritical: critical,
		manualMode:         fc.PWMModes.Manual,
		autoMode:           fc.PWMModes.Auto,
		sources:            refs,
	}, nil
}

func (c *Controller) Interval() time.Duration { return c.interval }

func (c *Controller) Sources() []*HeatSource { return c.sources }

func (c *Controller) Fans() []*Fan { return c.fans }

// SetControlModes writes mode to every fan, stopping at the first failure.
func (c *Controller) SetControlModes(mode ControlMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, fan := range c.fans {
		if err := fan.SetControlMode(mode); err != nil {
			return &RuntimeError{Op: fmt.Sprintf("setting %s control mode for fan", mode), Name: fan.name, Err: err}
		}
		c.log.Info("fan=%s mode=%s", fan.name, mode)
	}
	return nil
}

// Tick updates every heat source, then every fan. Failures are logged and
// skipped; they never stop the rest of the tick.
func (c *Controller) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, src := range c.sources {
		if err := src.Update(); err != nil {
			c.log.Error("%v", &RuntimeError{Op: "updating source", Name: src.name, Err: err})
			continue
		}
		c.log.Info("source=%s read=%g target=%g output=%g", src.name, src.lastReading, src.SetPoint(), src.output.Float64())
	}
	for _, fan := range c.fans {
		pwm, err := fan.Update(c.sources)
		if err != nil {
			c.log.Error("%v", &RuntimeError{Op: "updating fan", Name: fan.name, Err: err})
			continue
		}
		c.log.Info("fan=%s pwm=%d", fan.name, pwm)
	}
}

// Run ticks every interval until ctx is done. Fans are left in manual mode
// at their last PWM value when it returns.
func (c *Controller) Run(ctx context.Context) error {
	for {
		c.Tick()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-afterFn(c.interval):
		}
	}
}

// Snapshot reports the latest reading and output of every source and the
// last PWM written to every fan.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		Sources: make([]SourceStatus, 0, len(c.sources)),
		Fans:    make([]FanStatus, 0, len(c.fans)),
	}
	for _, src := range c.sources {
		snap.Sources = append(snap.Sources, SourceStatus{
			Name:       src.name,
			Reading:    src.lastReading,
			Output:     StatusFloat(src.output.Float64()),
			Critical:   src.OutputCeiling() > 1,
			LastUpdate: src.lastUpdate.UTC(),
		})
	}
	for _, fan := range c.fans {
		pwm, ok := fan.LastPWM()
		snap.Fans = append(snap.Fans, FanStatus{Name: fan.name, PWM: pwm, Written: ok})
	}
	return snap
}
