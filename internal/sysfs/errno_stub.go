//go:build !unix

package sysfs

// Stub implementation for platforms without sysfs.
func isTransientErr(err error) bool { return false }
