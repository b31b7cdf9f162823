//go:build unix

package sysfs

import (
	"errors"

	"golang.org/x/sys/unix"
)

func isTransientErr(err error) bool {
	return errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EBUSY)
}
