package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	cli "github.com/lxc/incus/v6/shared/cmd"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nickbeth/wsl-usb-manager/internal/autoattach"
	"github.com/nickbeth/wsl-usb-manager/internal/instance"
	"github.com/nickbeth/wsl-usb-manager/internal/usbipd"
)

// maxParallelAttach bounds how many devices are attached at once.
const maxParallelAttach = 4

// Auto-attach command.
type cmdAutoAttach struct {
	root *cmdRoot

	flagFormat string
}

func (c *cmdAutoAttach) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = cli.Usage("auto-attach", "<busid|guid>...")
	cmd.Short = "Keep devices attached to WSL until interrupted"
	cmd.Long = cli.FormatSection("Description", `Keep devices attached to WSL until interrupted

Each device must be shared. It's attached right away, then re-attached by
usbipd whenever it's plugged back in.`)
	cmd.Flags().StringVarP(&c.flagFormat, "format", "f", c.root.args.DefaultListFormat, "Format (csv|json|table|yaml|compact|markdown)``")

	cmd.PreRunE = func(cmd *cobra.Command, _ []string) error {
		return cli.ValidateFlagFormatForListOutput(cmd.Flag("format").Value.String())
	}

	cmd.RunE = c.run

	return cmd
}

func (c *cmdAutoAttach) run(cmd *cobra.Command, args []string) error {
	// Quick checks.
	exit, err := cli.CheckArgs(cmd, args, 1, -1)
	if exit {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	lock, err := instance.Acquire(c.root.args.LockName)
	if err != nil {
		return err
	}

	defer func() { _ = lock.Release() }()

	_, err = c.root.checkTool(ctx)
	if err != nil {
		return err
	}

	supervisor := autoattach.NewSupervisor(c.root.client)
	defer supervisor.Shutdown()

	devices, err := c.root.client.ListDevices(ctx)
	if err != nil {
		return err
	}

	// Enable every device concurrently, a failure doesn't stop the others.
	var muErrs sync.Mutex

	errs := []error{}

	g := new(errgroup.Group)
	g.SetLimit(maxParallelAttach)

	for _, id := range args {
		d := usbipd.FindByBusID(devices, id)
		if d == nil {
			d = usbipd.FindByGUID(devices, id)
		}

		if d == nil {
			muErrs.Lock()
			errs = append(errs, fmt.Errorf("%w: %q", ErrDeviceNotFound, id))
			muErrs.Unlock()

			continue
		}

		g.Go(func() error {
			err := supervisor.Add(ctx, *d)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to enable auto-attach", "device", id, "err", err)

				muErrs.Lock()
				errs = append(errs, err)
				muErrs.Unlock()
			}

			return nil
		})
	}

	_ = g.Wait()

	profiles := supervisor.Profiles()
	if len(profiles) == 0 {
		return errors.Join(errs...)
	}

	entries := toAPIProfiles(profiles, devices)

	data := [][]string{}
	for _, p := range entries {
		data = append(data, []string{p.BusID, p.Description, p.GUID})
	}

	err = cli.RenderTable(cmd.OutOrStdout(), c.flagFormat, []string{"BUSID", "DESCRIPTION", "GUID"}, data, entries)
	if err != nil {
		return err
	}

	<-ctx.Done()

	slog.InfoContext(ctx, "Stopping auto-attach", "devices", len(profiles))

	return nil
}
