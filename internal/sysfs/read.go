package sysfs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ReadError reports a sensor file that could not be read.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("error reading temperature file %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// ParseError reports sensor file contents that are not an unsigned integer.
type ParseError struct {
	Path  string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("error parsing result from temperature file %s: read %q: %v", e.Path, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func parseMilli(s string) (float64, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	return float64(n) / 1000.0, nil
}

// ReadMilli reads an unsigned milli-unit integer (e.g. 52345 milli-deg-C,
// as hwmon temp*_input and thermal_zone*/temp report) and returns it in
// whole units.
func ReadMilli(path string) (float64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, &ReadError{Path: path, Err: err}
	}
	v, err := parseMilli(string(b))
	if err != nil {
		return 0, &ParseError{Path: path, Value: string(b), Err: err}
	}
	return v, nil
}
