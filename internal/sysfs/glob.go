// Package sysfs reads sensor values from and writes control values to the
// small text attributes exposed under /sys (hwmon, thermal, pwm).
package sysfs

import (
	"errors"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	ErrGlobNoMatch         = errors.New("sysfs: no file matches glob")
	ErrGlobMultipleMatches = errors.New("sysfs: multiple files match glob")
	ErrGlobRead            = errors.New("sysfs: directory read failed while matching glob")
	ErrMalformedGlob       = errors.New("sysfs: malformed glob pattern")
)

var globFn = doublestar.FilepathGlob

// GlobError reports a wildcard path that did not resolve to exactly one file.
// Kind is one of the ErrGlob* / ErrMalformedGlob sentinels.
type GlobError struct {
	Pattern string
	Kind    error
	Matches []string
	Err     error
}

func (e *GlobError) Error() string {
	switch e.Kind {
	case ErrGlobNoMatch:
		return fmt.Sprintf("couldn't find file matching glob %s", e.Pattern)
	case ErrGlobMultipleMatches:
		return fmt.Sprintf("multiple conflicting files found for glob %s: %v", e.Pattern, e.Matches)
	case ErrMalformedGlob:
		return fmt.Sprintf("malformed glob pattern %s: %v", e.Pattern, e.Err)
	default:
		return fmt.Sprintf("error reading directory while searching for files matching glob %s: %v", e.Pattern, e.Err)
	}
}

func (e *GlobError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// MatchSingle resolves pattern to the one file it matches.
//
// hwmon device numbering is not stable across boots, so configs name files
// like /sys/class/hwmon/hwmon*/pwm1 and rely on this to pin them down once at
// startup.
func MatchSingle(pattern string) (string, error) {
	matches, err := globFn(pattern, doublestar.WithFailOnIOErrors())
	if err != nil {
		if errors.Is(err, doublestar.ErrBadPattern) {
			return "", &GlobError{Pattern: pattern, Kind: ErrMalformedGlob, Err: err}
		}
		return "", &GlobError{Pattern: pattern, Kind: ErrGlobRead, Err: err}
	}
	switch len(matches) {
	case 0:
		return "", &GlobError{Pattern: pattern, Kind: ErrGlobNoMatch}
	case 1:
		return matches[0], nil
	default:
		return "", &GlobError{Pattern: pattern, Kind: ErrGlobMultipleMatches, Matches: matches}
	}
}
