package cli

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	cli "github.com/lxc/incus/v6/shared/cmd"
	"github.com/spf13/cobra"

	"github.com/nickbeth/wsl-usb-manager/internal/instance"
	"github.com/nickbeth/wsl-usb-manager/internal/notify"
	"github.com/nickbeth/wsl-usb-manager/internal/scheduling"
	"github.com/nickbeth/wsl-usb-manager/internal/usbipd"
)

// Watch command.
type cmdWatch struct {
	root *cmdRoot
}

func (c *cmdWatch) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = cli.Usage("watch")
	cmd.Short = "Report device changes until interrupted"
	cmd.Long = cli.FormatSection("Description", `Report device changes until interrupted

Devices are listed again whenever a USB device is plugged in or removed,
and on the refresh schedule from the settings file.`)

	cmd.RunE = c.run

	return cmd
}

func (c *cmdWatch) run(cmd *cobra.Command, args []string) error {
	// Quick checks.
	exit, err := cli.CheckArgs(cmd, args, 0, 0)
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

	w := &watcher{client: c.root.client}

	err = w.refresh(ctx)
	if err != nil {
		return err
	}

	scheduler, err := scheduling.NewScheduler()
	if err != nil {
		return err
	}

	err = scheduler.RegisterJob("refresh", c.root.cfg.RefreshSchedule, w.refresh)
	if err != nil {
		return err
	}

	scheduler.Start()

	defer func() { _ = scheduler.Shutdown() }()

	sub, err := notify.Subscribe(func() {
		err := w.refresh(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to refresh devices", "err", err)
		}
	})
	if err != nil {
		if !errors.Is(err, notify.ErrUnsupported) {
			return err
		}

		slog.WarnContext(ctx, "Device notifications unavailable, relying on the refresh schedule", "schedule", c.root.cfg.RefreshSchedule)
	} else {
		defer func() { _ = sub.Close() }()
	}

	<-ctx.Done()

	return nil
}

type watcher struct {
	client *usbipd.Client

	mu      sync.Mutex
	devices []usbipd.Device
}

func (w *watcher) refresh(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	devices, err := w.client.ListDevices(ctx)
	if err != nil {
		return err
	}

	for _, change := range diffDevices(w.devices, devices) {
		d := change.device

		switch change.kind {
		case changeAdded:
			slog.InfoContext(ctx, "Device added", "busid", d.BusID, "description", d.Description, "state", d.State().String())
		case changeRemoved:
			slog.InfoContext(ctx, "Device removed", "busid", d.BusID, "description", d.Description)
		case changeUpdated:
			slog.InfoContext(ctx, "Device changed", "busid", d.BusID, "description", d.Description, "from", change.from.String(), "to", d.State().String())
		}
	}

	w.devices = devices

	return nil
}

type changeKind int

const (
	changeAdded changeKind = iota
	changeRemoved
	changeUpdated
)

type deviceChange struct {
	kind   changeKind
	device usbipd.Device
	from   usbipd.State
}

// diffDevices compares two listings by instance ID.
func diffDevices(before []usbipd.Device, after []usbipd.Device) []deviceChange {
	changes := []deviceChange{}

	for _, d := range after {
		old := usbipd.FindByInstanceID(before, d.InstanceID)
		if old == nil {
			changes = append(changes, deviceChange{kind: changeAdded, device: d})

			continue
		}

		if old.State() != d.State() || old.BusID != d.BusID {
			changes = append(changes, deviceChange{kind: changeUpdated, device: d, from: old.State()})
		}
	}

	for _, d := range before {
		if usbipd.FindByInstanceID(after, d.InstanceID) == nil {
			changes = append(changes, deviceChange{kind: changeRemoved, device: d})
		}
	}

	return changes
}
