package core

import (
	"github.com/cockroachdb/errors"
)

var (
	// A required format, feature or extension is not supported by the device. Fatal at startup.
	ErrCapabilityMissing = errors.New("required device capability missing")
	// Out of host/device memory or pool exhaustion. There is no eviction strategy, so this is fatal.
	ErrAllocationFailed = errors.New("gpu allocation failed")
	// The surface no longer matches the swapchain. Recovered by the render loop, never surfaced.
	ErrSurfaceOutOfDate = errors.New("surface out of date")
	ErrSurfaceLost      = errors.New("surface lost")
	ErrDeviceLost       = errors.New("device lost")
	ErrTimeout          = errors.New("wait timed out")
	// Programmer misuse: double destroy, re-entrant submit, inconsistent layouts.
	ErrMisuse  = errors.New("misuse")
	ErrUnknown = errors.New("unknown")
)

// Misusef builds an assertion failure marked with ErrMisuse.
func Misusef(format string, args ...interface{}) error {
	return errors.Mark(errors.AssertionFailedf(format, args...), ErrMisuse)
}

// IsFatal reports whether err belongs to one of the unrecoverable categories.
func IsFatal(err error) bool {
	return err != nil && !errors.Is(err, ErrSurfaceOutOfDate)
}
