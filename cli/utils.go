package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/lxc/incus/v6/shared/ask"
	"github.com/lxc/incus/v6/shared/termios"

	"github.com/nickbeth/wsl-usb-manager/api"
	"github.com/nickbeth/wsl-usb-manager/internal/autoattach"
	"github.com/nickbeth/wsl-usb-manager/internal/usbipd"
)

// ErrDeviceNotFound is returned when no device matches the requested bus ID or GUID.
var ErrDeviceNotFound = errors.New("no such device")

// findDevice looks a connected device up by bus ID, and optionally any device by persisted GUID.
func (c *cmdRoot) findDevice(ctx context.Context, id string, byGUID bool) (*usbipd.Device, error) {
	devices, err := c.client.ListDevices(ctx)
	if err != nil {
		return nil, err
	}

	d := usbipd.FindByBusID(devices, id)
	if d == nil && byGUID {
		d = usbipd.FindByGUID(devices, id)
	}

	if d == nil {
		return nil, fmt.Errorf("%w: %q", ErrDeviceNotFound, id)
	}

	return d, nil
}

func toAPIDevice(d usbipd.Device) api.Device {
	vidPID, _ := d.VIDPID()
	serial, _ := d.Serial()
	state := d.State()

	return api.Device{
		BusID:         d.BusID,
		VIDPID:        vidPID,
		Serial:        serial,
		Description:   d.Description,
		State:         state.Kind.String(),
		Forced:        state.Forced,
		ClientAddress: d.ClientIPAddress,
		GUID:          d.PersistedGUID,
		InstanceID:    d.InstanceID,
	}
}

func toAPIProfiles(profiles []autoattach.Profile, devices []usbipd.Device) []api.AutoAttachProfile {
	out := make([]api.AutoAttachProfile, 0, len(profiles))

	for _, p := range profiles {
		entry := api.AutoAttachProfile{GUID: p.ID, Description: p.Description}

		d := usbipd.FindByGUID(devices, p.ID)
		if d != nil {
			entry.BusID = d.BusID
		}

		out = append(out, entry)
	}

	return out
}

// signalContext returns a context cancelled on interrupt or termination.
func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// confirm asks a yes/no question on in, refusing when in isn't a terminal.
func confirm(in io.Reader, question string) (bool, error) {
	if in == os.Stdin && !termios.IsTerminal(getStdinFd()) {
		return false, errors.New("confirmation required, use --yes when not running interactively")
	}

	asker := ask.NewAsker(bufio.NewReader(in))

	return asker.AskBool(question+" (yes/no) [default=no]: ", "no")
}
