package cli

import (
	"context"
	"log/slog"

	cli "github.com/lxc/incus/v6/shared/cmd"
	"github.com/spf13/cobra"

	"github.com/nickbeth/wsl-usb-manager/internal/usbipd"
)

// Single device operation followed by a wait for its outcome.
type cmdDeviceOperation struct {
	root *cmdRoot

	name        string
	description string
	byGUID      bool

	// skip reports whether the device is already in the requested state.
	skip usbipd.Predicate

	// wait is the state the device must reach after the action.
	wait usbipd.Predicate

	action func(ctx context.Context, d usbipd.Device) error
}

func (c *cmdDeviceOperation) command() *cobra.Command {
	usage := "<busid>"
	if c.byGUID {
		usage = "<busid|guid>"
	}

	cmd := &cobra.Command{}
	cmd.Use = cli.Usage(c.name, usage)
	cmd.Short = c.description
	cmd.Long = cli.FormatSection("Description", c.description)

	cmd.RunE = c.run

	return cmd
}

func (c *cmdDeviceOperation) run(cmd *cobra.Command, args []string) error {
	// Quick checks.
	exit, err := cli.CheckArgs(cmd, args, 1, 1)
	if exit {
		return err
	}

	ctx := cmd.Context()

	_, err = c.root.checkTool(ctx)
	if err != nil {
		return err
	}

	d, err := c.root.findDevice(ctx, args[0], c.byGUID)
	if err != nil {
		return err
	}

	if c.skip(d) {
		slog.InfoContext(ctx, "Nothing to do", "device", args[0], "state", d.State().String())

		return nil
	}

	err = c.action(ctx, *d)
	if err != nil {
		return err
	}

	wait := c.wait

	// Forgetting a disconnected device removes it from the list entirely.
	if c.byGUID && !d.IsConnected() {
		wait = forgotten
	}

	err = c.root.client.Wait(ctx, *d, wait)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Device updated", "operation", c.name, "device", args[0], "description", d.Description)

	return nil
}

// notShared is satisfied by devices without a persisted GUID.
func notShared(d *usbipd.Device) bool {
	return d != nil && d.PersistedGUID == ""
}

// forgotten is satisfied once the device is gone or no longer persisted.
func forgotten(d *usbipd.Device) bool {
	return d == nil || d.PersistedGUID == ""
}
