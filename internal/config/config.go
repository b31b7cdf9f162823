package config

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is used when neither --config nor PathEnv is set.
	DefaultPath = "/etc/pid_fan_controller_config.yaml"
	// PathEnv names the environment variable consulted before DefaultPath.
	PathEnv = "PID_FAN_CONFIG_FILE"
)

type Config struct {
	// SampleInterval is the time between control ticks, in fractional seconds.
	SampleInterval   float64              `yaml:"sample_interval"`
	HeatPressureSrcs []HeatPressureSource `yaml:"heat_pressure_srcs"`
	Fans             []Fan                `yaml:"fans"`
}

type HeatPressureSource struct {
	Name string `yaml:"name"`
	// WildcardPath must glob to exactly one sensor file.
	WildcardPath string    `yaml:"wildcard_path"`
	PID          PIDParams `yaml:"PID_params"`
}

type PIDParams struct {
	SetPoint float64 `yaml:"set_point"`
	P        float64 `yaml:"P"`
	I        float64 `yaml:"I"`
	D        float64 `yaml:"D"`
	// CriticalTemperature lifts the controller's 1.0 output ceiling while
	// readings are above it. Nil means never.
	CriticalTemperature *float64 `yaml:"critical_temperature"`
}

type Fan struct {
	Name         string   `yaml:"name"`
	WildcardPath string   `yaml:"wildcard_path"`
	PWMModes     PWMModes `yaml:"pwm_modes"`
	MinPWM       uint32   `yaml:"min_pwm"`
	MaxPWM       uint32   `yaml:"max_pwm"`
	// MaxPWMWhenCritical defaults to MaxPWM.
	MaxPWMWhenCritical *uint32  `yaml:"max_pwm_when_critical"`
	HeatPressureSrcs   []string `yaml:"heat_pressure_srcs"`
}

type PWMModes struct {
	Manual              uint32 `yaml:"manual"`
	Auto                uint32 `yaml:"auto"`
	PWMModeWildcardPath string `yaml:"pwm_mode_wildcard_path"`
}

// OpenError reports a config file that could not be read.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("error opening config file from %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// ParseError reports a config file that is not valid YAML for Config.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("error parsing YAML from config file %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports a well-formed config file with unusable values.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config file %s: %v", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ResolvePath picks the config file: an explicit flag value wins, then
// $PID_FAN_CONFIG_FILE, then DefaultPath.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv(PathEnv); v != "" {
		return v
	}
	return DefaultPath
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &OpenError{Path: path, Err: err}
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, &ParseError{Path: path, Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, &ValidationError{Path: path, Err: err}
	}
	return cfg, nil
}

// Validate checks the document on its own. Cross-references between fans and
// heat sources, and the PWM ranges, are checked when the controller is built.
func (c Config) Validate() error {
	if !(c.SampleInterval > 0) || math.IsInf(c.SampleInterval, 0) {
		return fmt.Errorf("sample_interval must be a positive number of seconds")
	}

	seen := make(map[string]bool, len(c.HeatPressureSrcs))
	for i, src := range c.HeatPressureSrcs {
		if src.Name == "" {
			return fmt.Errorf("heat_pressure_srcs[%d].name is required", i)
		}
		if seen[src.Name] {
			return fmt.Errorf("heat_pressure_srcs: duplicate name %q", src.Name)
		}
		seen[src.Name] = true
		if src.WildcardPath == "" {
			return fmt.Errorf("heat_pressure_srcs[%s].wildcard_path is required", src.Name)
		}
		pid := src.PID
		for _, f := range []struct {
			name string
			v    float64
		}{{"set_point", pid.SetPoint}, {"P", pid.P}, {"I", pid.I}, {"D", pid.D}} {
			if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
				return fmt.Errorf("heat_pressure_srcs[%s].PID_params.%s must be finite", src.Name, f.name)
			}
		}
		if pid.CriticalTemperature != nil && math.IsNaN(*pid.CriticalTemperature) {
			return fmt.Errorf("heat_pressure_srcs[%s].PID_params.critical_temperature must be a number", src.Name)
		}
	}

	for i, fan := range c.Fans {
		if fan.Name == "" {
			return fmt.Errorf("fans[%d].name is required", i)
		}
		if fan.WildcardPath == "" {
			return fmt.Errorf("fans[%s].wildcard_path is required", fan.Name)
		}
		if fan.PWMModes.PWMModeWildcardPath == "" {
			return fmt.Errorf("fans[%s].pwm_modes.pwm_mode_wildcard_path is required", fan.Name)
		}
	}
	return nil
}

// SampleDuration converts SampleInterval to a time.Duration.
func (c Config) SampleDuration() time.Duration {
	return time.Duration(c.SampleInterval * float64(time.Second))
}
