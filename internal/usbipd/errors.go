package usbipd

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoBusID is returned when an operation needs a connected device.
var ErrNoBusID = errors.New("the device does not have a bus ID")

// ErrNotBound is returned when unbinding a device that has no persisted GUID.
var ErrNotBound = errors.New("the device is already unbound")

// ErrDeviceLost is returned when a wait doesn't observe the expected state in time.
// The device may have been unplugged or may still be remounting.
var ErrDeviceLost = errors.New("the device was lost while waiting for the operation to complete")

// IsPrecondition checks whether the error reports a device missing a required identifier.
func IsPrecondition(e error) bool {
	for _, entry := range []error{ErrNoBusID, ErrNotBound} {
		if errors.Is(e, entry) {
			return true
		}
	}

	return false
}

// ToolError is returned when usbipd ran but reported a failure.
type ToolError struct {
	Args   []string
	Stderr string
	Err    error
}

// Error returns the usbipd diagnostic, falling back to the process error.
func (e *ToolError) Error() string {
	if e.Stderr != "" {
		return e.Stderr
	}

	return fmt.Sprintf("usbipd %s failed: %v", strings.Join(e.Args, " "), e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// NeedsElevation returns whether usbipd asked to be run as administrator.
func (e *ToolError) NeedsElevation() bool {
	return strings.Contains(e.Stderr, "administrator")
}

// LaunchError is returned when usbipd couldn't be started at all, elevated or not.
type LaunchError struct {
	Args []string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch usbipd %s: %v", strings.Join(e.Args, " "), e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}
