package cli

import (
	"fmt"
	"log/slog"

	cli "github.com/lxc/incus/v6/shared/cmd"
	"github.com/spf13/cobra"

	"github.com/nickbeth/wsl-usb-manager/internal/usbipd"
)

// Bind command.
type cmdBind struct {
	root *cmdRoot

	flagForce bool
	flagYes   bool
}

func (c *cmdBind) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = cli.Usage("bind", "<busid>")
	cmd.Short = "Share a device so it can be attached to WSL"
	cmd.Long = cli.FormatSection("Description", `Share a device so it can be attached to WSL

With --force, the device is shared even when a host driver claims it. The
host loses access to the device until it's unbound and replugged.`)

	cmd.Flags().BoolVar(&c.flagForce, "force", false, "Force binding, overriding host drivers")
	cmd.Flags().BoolVarP(&c.flagYes, "yes", "y", false, "Don't ask for confirmation when forcing")

	cmd.RunE = c.run

	return cmd
}

func (c *cmdBind) run(cmd *cobra.Command, args []string) error {
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

	d, err := c.root.findDevice(ctx, args[0], false)
	if err != nil {
		return err
	}

	wait := usbipd.Bound
	if c.flagForce {
		wait = usbipd.ForceBound
	}

	if wait(d) {
		slog.InfoContext(ctx, "Nothing to do", "device", args[0], "state", d.State().String())

		return nil
	}

	if c.flagForce && !c.flagYes {
		ok, err := confirm(cmd.InOrStdin(), fmt.Sprintf("Force binding %q? The host won't be able to use it until it's unbound", d.Description))
		if err != nil {
			return err
		}

		if !ok {
			return nil
		}
	}

	err = c.root.client.Bind(ctx, *d, c.flagForce)
	if err != nil {
		return err
	}

	err = c.root.client.Wait(ctx, *d, wait)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Device updated", "operation", "bind", "device", args[0], "description", d.Description)

	return nil
}
