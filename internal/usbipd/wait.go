package usbipd

import (
	"context"
	"time"
)

// Predicate reports whether a device reached the state being waited on.
// It receives nil when the device isn't listed, which happens both when it
// was unplugged and while Windows remounts it during a usbipd operation.
type Predicate func(d *Device) bool

// Bound is satisfied once the device is bound.
func Bound(d *Device) bool {
	return d != nil && d.IsBound()
}

// ForceBound is satisfied once the device is bound with --force.
func ForceBound(d *Device) bool {
	return d != nil && d.IsBound() && d.IsForced
}

// Unbound is satisfied once the device is listed and not bound.
func Unbound(d *Device) bool {
	return d != nil && !d.IsBound()
}

// Attached is satisfied once the device is attached.
func Attached(d *Device) bool {
	return d != nil && d.IsAttached()
}

// Detached is satisfied once the device is listed and not attached.
func Detached(d *Device) bool {
	return d != nil && !d.IsAttached()
}

// Wait polls usbipd until cond is satisfied for the device identified by d's
// instance ID. It returns ErrDeviceLost if that doesn't happen within
// WaitTimeout. That error is inconclusive: the device may still be remounting.
func (c *Client) Wait(ctx context.Context, d Device, cond Predicate) error {
	start := time.Now()

	for time.Since(start) < c.WaitTimeout {
		devices, err := c.ListDevices(ctx)
		if err != nil {
			return err
		}

		if cond(FindByInstanceID(devices, d.InstanceID)) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.PollInterval):
		}
	}

	return ErrDeviceLost
}
