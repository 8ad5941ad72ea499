// Package usbipd drives the usbipd executable and derives device states from its output.
package usbipd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	// DefaultWaitTimeout covers the worst case of Windows remounting a device after a usbipd operation.
	DefaultWaitTimeout = 5 * time.Second

	// DefaultPollInterval is the delay between two device list refreshes while waiting.
	DefaultPollInterval = 100 * time.Millisecond
)

// Client runs device operations through usbipd.
type Client struct {
	exec Executor

	WaitTimeout  time.Duration
	PollInterval time.Duration
}

// NewClient returns a Client using the provided Executor and default timings.
func NewClient(exec Executor) *Client {
	return &Client{
		exec: exec,

		WaitTimeout:  DefaultWaitTimeout,
		PollInterval: DefaultPollInterval,
	}
}

// ListDevices returns all the devices known to usbipd, connected or persisted.
func (c *Client) ListDevices(ctx context.Context) ([]Device, error) {
	out, err := c.exec.Run(ctx, "state")
	if err != nil {
		return nil, err
	}

	var state struct {
		Devices []Device `json:"Devices"`
	}

	err = json.Unmarshal([]byte(out), &state)
	if err != nil {
		return nil, fmt.Errorf("failed to parse usbipd state: %w", err)
	}

	return state.Devices, nil
}

// Version returns the version of the usbipd executable.
func (c *Client) Version(ctx context.Context) (Version, error) {
	out, err := c.exec.Run(ctx, "--version")
	if err != nil {
		return Version{}, err
	}

	return ParseVersion(out), nil
}

// IsInstalled returns whether usbipd can be run.
func (c *Client) IsInstalled(ctx context.Context) bool {
	_, err := c.Version(ctx)

	return err == nil
}

// Bind shares the device, asking for administrator privileges if necessary.
func (c *Client) Bind(ctx context.Context, d Device, force bool) error {
	if !d.IsConnected() {
		return ErrNoBusID
	}

	args := []string{"bind", "--busid", d.BusID}
	if force {
		args = append(args, "--force")
	}

	return c.runPrivileged(ctx, args...)
}

// Unbind stops sharing the device, asking for administrator privileges if necessary.
func (c *Client) Unbind(ctx context.Context, d Device) error {
	if d.PersistedGUID == "" {
		return ErrNotBound
	}

	return c.runPrivileged(ctx, "unbind", "--guid", d.PersistedGUID)
}

// Attach attaches the device to WSL, binding it first if needed.
func (c *Client) Attach(ctx context.Context, d Device) error {
	if !d.IsConnected() {
		return ErrNoBusID
	}

	if !d.IsBound() {
		err := c.Bind(ctx, d, false)
		if err != nil {
			return err
		}

		// Binding may have gone through an elevated process we don't wait on.
		err = c.Wait(ctx, d, Bound)
		if err != nil {
			return err
		}
	}

	args, err := c.attachArgs(ctx, d)
	if err != nil {
		return err
	}

	slog.DebugContext(ctx, "Attaching device", "busid", d.BusID)

	_, err = c.exec.Run(ctx, args...)

	return err
}

// Detach detaches the device from WSL.
func (c *Client) Detach(ctx context.Context, d Device) error {
	if !d.IsConnected() {
		return ErrNoBusID
	}

	v, err := c.Version(ctx)
	if err != nil {
		return err
	}

	args := []string{"detach", "--busid", d.BusID}
	if v.IsLegacy() {
		args = []string{"wsl", "detach", "--busid", d.BusID}
	}

	slog.DebugContext(ctx, "Detaching device", "busid", d.BusID)

	_, err = c.exec.Run(ctx, args...)

	return err
}

// Launcher starts a prepared long-running usbipd process.
type Launcher func() (Process, error)

// PrepareAutoAttach resolves the command keeping the device attached, which
// queries the usbipd version. The returned Launcher only spawns the process.
func (c *Client) PrepareAutoAttach(ctx context.Context, d Device) (Launcher, error) {
	if !d.IsConnected() {
		return nil, ErrNoBusID
	}

	args, err := c.attachArgs(ctx, d)
	if err != nil {
		return nil, err
	}

	args = append(args, "--auto-attach")

	// The process lifetime is tied to Stop, not to the caller's context.
	ctx = context.WithoutCancel(ctx)

	return func() (Process, error) {
		slog.DebugContext(ctx, "Starting auto-attach", "busid", d.BusID, "guid", d.PersistedGUID)

		return c.exec.Start(ctx, args...)
	}, nil
}

// AutoAttach starts a usbipd process re-attaching the device whenever it comes back.
// The process runs until stopped.
func (c *Client) AutoAttach(ctx context.Context, d Device) (Process, error) {
	launch, err := c.PrepareAutoAttach(ctx, d)
	if err != nil {
		return nil, err
	}

	return launch()
}

func (c *Client) attachArgs(ctx context.Context, d Device) ([]string, error) {
	v, err := c.Version(ctx)
	if err != nil {
		return nil, err
	}

	if v.IsLegacy() {
		return []string{"wsl", "attach", "--busid", d.BusID}, nil
	}

	return []string{"attach", "--wsl", "--busid", d.BusID}, nil
}

// runPrivileged runs usbipd once and retries elevated if it asked for administrator rights.
func (c *Client) runPrivileged(ctx context.Context, args ...string) error {
	_, err := c.exec.Run(ctx, args...)
	if err == nil {
		return nil
	}

	var toolErr *ToolError
	if !errors.As(err, &toolErr) || !toolErr.NeedsElevation() {
		return err
	}

	slog.InfoContext(ctx, "Retrying usbipd as administrator", "command", args[0])

	return c.exec.RunElevated(ctx, args...)
}
