package sysfs

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

var (
	retryWindow  = 250 * time.Millisecond
	retryBackoff = 10 * time.Millisecond

	writeOnceFn = writeOnce
)

// WriteError reports a control value that could not be written.
type WriteError struct {
	Path  string
	Value uint64
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("error writing to fan control file: tried to write %d to %s: %v", e.Value, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// WriteUint writes v as decimal ASCII with no trailing newline.
func WriteUint(path string, v uint64) error {
	if err := writeSysfs(path, strconv.FormatUint(v, 10)); err != nil {
		return &WriteError{Path: path, Value: v, Err: err}
	}
	return nil
}

func writeSysfs(path string, value string) error {
	// No O_CREATE: the attribute was resolved at startup and must still exist.
	// O_TRUNC keeps a short value from leaving the tail of a longer one behind
	// in regular files; sysfs ignores it.
	//
	// Drivers occasionally answer EBUSY/EAGAIN while the device is mid-update,
	// so those get a short retry window.
	deadline := time.Now().Add(retryWindow)
	for {
		err := writeOnceFn(path, value)
		if err == nil {
			return nil
		}
		if !isTransientErr(err) || !time.Now().Before(deadline) {
			return err
		}
		time.Sleep(retryBackoff)
	}
}

func writeOnce(path string, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	_, werr := f.WriteString(value)
	cerr := f.Close()
	return errors.Join(werr, cerr)
}
