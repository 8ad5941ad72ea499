package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/nickbeth/wsl-usb-manager/api"
	"github.com/nickbeth/wsl-usb-manager/internal/autoattach"
	"github.com/nickbeth/wsl-usb-manager/internal/usbipd"
)

type fakeProcess struct{}

func (fakeProcess) Stop() error {
	return nil
}

// fakeUsbipd applies commands to an in-memory device list.
type fakeUsbipd struct {
	mu sync.Mutex

	version    string
	versionErr error
	devices    []usbipd.Device
	calls      [][]string
}

func (f *fakeUsbipd) Run(_ context.Context, args ...string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch args[0] {
	case "state":
		body, err := json.Marshal(map[string][]usbipd.Device{"Devices": f.devices})
		if err != nil {
			return "", err
		}

		return string(body), nil
	case "--version":
		return f.version + "\n", f.versionErr
	}

	f.calls = append(f.calls, args)
	f.apply(args)

	return "", nil
}

func (f *fakeUsbipd) RunElevated(ctx context.Context, args ...string) error {
	_, err := f.Run(ctx, args...)

	return err
}

func (*fakeUsbipd) Start(_ context.Context, _ ...string) (usbipd.Process, error) {
	return fakeProcess{}, nil
}

func (f *fakeUsbipd) apply(args []string) {
	value := func(flag string) string {
		i := slices.Index(args, flag)
		if i < 0 || i+1 >= len(args) {
			return ""
		}

		return args[i+1]
	}

	switch {
	case args[0] == "bind":
		d := usbipd.FindByBusID(f.devices, value("--busid"))
		d.PersistedGUID = "{guid-" + d.BusID + "}"
		d.IsForced = slices.Contains(args, "--force")
	case args[0] == "unbind":
		guid := value("--guid")
		f.devices = slices.DeleteFunc(f.devices, func(d usbipd.Device) bool {
			return d.PersistedGUID == guid && !d.IsConnected()
		})

		d := usbipd.FindByGUID(f.devices, guid)
		if d != nil {
			d.PersistedGUID = ""
			d.IsForced = false
		}
	case slices.Contains(args, "attach"):
		usbipd.FindByBusID(f.devices, value("--busid")).ClientIPAddress = "172.20.0.1"
	case slices.Contains(args, "detach"):
		usbipd.FindByBusID(f.devices, value("--busid")).ClientIPAddress = ""
	}
}

func (f *fakeUsbipd) commands() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return slices.Clone(f.calls)
}

func newFakeUsbipd() *fakeUsbipd {
	return &fakeUsbipd{
		version: "4.3.0",
		devices: []usbipd.Device{
			{BusID: "1-1", Description: "USB Serial Device", InstanceID: `USB\VID_1A86&PID_7523\5&1D7B1B&0&1`},
			{BusID: "2-3", Description: "Security Key", InstanceID: `USB\VID_1050&PID_0407\0001`, PersistedGUID: "{aaaa}"},
			{Description: "Old Webcam", InstanceID: `USB\VID_046D&PID_0825\5B2C0A`, PersistedGUID: "{bbbb}"},
		},
	}
}

func runCommand(t *testing.T, exec usbipd.Executor, stdin string, args ...string) (string, error) {
	t.Helper()

	return runCommandContext(t, context.Background(), exec, stdin, args...)
}

func runCommandContext(t *testing.T, ctx context.Context, exec usbipd.Executor, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := NewCommand(&Args{
		Version:   "1.2.3",
		Executor:  exec,
		LogOutput: io.Discard,
		LockName:  "wsl-usb-manager-test-" + uuid.NewString(),
	})

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "config.yaml")}, args...))

	err := cmd.ExecuteContext(ctx)

	return out.String(), err
}

func TestList(t *testing.T) {
	t.Parallel()

	out, err := runCommand(t, newFakeUsbipd(), "", "list")
	require.NoError(t, err)
	require.Contains(t, out, "1-1")
	require.Contains(t, out, "1A86:7523")
	require.Contains(t, out, "Not shared")
	require.Contains(t, out, "Shared")
	require.NotContains(t, out, "Old Webcam")

	out, err = runCommand(t, newFakeUsbipd(), "", "list", "--all")
	require.NoError(t, err)
	require.Contains(t, out, "Old Webcam")
	require.Contains(t, out, "Persisted")
	require.Contains(t, out, "{bbbb}")
}

func TestListJSON(t *testing.T) {
	t.Parallel()

	out, err := runCommand(t, newFakeUsbipd(), "", "list", "--format", "json")
	require.NoError(t, err)

	var devices []api.Device

	require.NoError(t, json.Unmarshal([]byte(out), &devices))
	require.Len(t, devices, 2)
	require.Equal(t, "1-1", devices[0].BusID)
	require.Equal(t, "Not shared", devices[0].State)
	require.Equal(t, "1050:0407", devices[1].VIDPID)
	require.Equal(t, "0001", devices[1].Serial)
}

func TestListOrder(t *testing.T) {
	t.Parallel()

	newFake := func() *fakeUsbipd {
		fake := newFakeUsbipd()
		fake.devices = append([]usbipd.Device{
			{BusID: "10-1", Description: "Hub", InstanceID: `USB\VID_05E3&PID_0610\1`},
			{BusID: "3-2", Description: "Mouse", InstanceID: `USB\VID_046D&PID_C077\2`},
		}, fake.devices...)

		return fake
	}

	want := []string{"1-1", "2-3", "3-2", "10-1"}

	out, err := runCommand(t, newFake(), "", "list", "--format", "csv,noheader")
	require.NoError(t, err)

	var tableOrder []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		busID, _, _ := strings.Cut(line, ",")
		tableOrder = append(tableOrder, busID)
	}

	require.Equal(t, want, tableOrder)

	for _, format := range []string{"json", "yaml"} {
		out, err := runCommand(t, newFake(), "", "list", "--format", format)
		require.NoError(t, err)

		var devices []api.Device
		if format == "json" {
			require.NoError(t, json.Unmarshal([]byte(out), &devices))
		} else {
			require.NoError(t, yaml.Unmarshal([]byte(out), &devices))
		}

		busIDs := make([]string, 0, len(devices))
		for _, d := range devices {
			busIDs = append(busIDs, d.BusID)
		}

		require.Equal(t, want, busIDs, format)
	}
}

func TestBind(t *testing.T) {
	t.Parallel()

	fake := newFakeUsbipd()

	_, err := runCommand(t, fake, "", "bind", "1-1")
	require.NoError(t, err)
	require.Equal(t, [][]string{{"bind", "--busid", "1-1"}}, fake.commands())

	// Already shared.
	_, err = runCommand(t, fake, "", "bind", "1-1")
	require.NoError(t, err)
	require.Len(t, fake.commands(), 1)
}

func TestBindForce(t *testing.T) {
	t.Parallel()

	fake := newFakeUsbipd()

	_, err := runCommand(t, fake, "no\n", "bind", "1-1", "--force")
	require.NoError(t, err)
	require.Empty(t, fake.commands())

	_, err = runCommand(t, fake, "yes\n", "bind", "1-1", "--force")
	require.NoError(t, err)
	require.Equal(t, [][]string{{"bind", "--busid", "1-1", "--force"}}, fake.commands())

	// Upgrading a shared device to forced.
	_, err = runCommand(t, fake, "", "bind", "2-3", "--force", "--yes")
	require.NoError(t, err)
	require.Len(t, fake.commands(), 2)
	require.True(t, fake.devices[1].IsForced)
}

func TestAttachDetach(t *testing.T) {
	t.Parallel()

	fake := newFakeUsbipd()

	_, err := runCommand(t, fake, "", "attach", "1-1")
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"bind", "--busid", "1-1"},
		{"attach", "--wsl", "--busid", "1-1"},
	}, fake.commands())

	_, err = runCommand(t, fake, "", "detach", "1-1")
	require.NoError(t, err)
	require.Len(t, fake.commands(), 3)
	require.Equal(t, []string{"detach", "--busid", "1-1"}, fake.commands()[2])

	// Already detached.
	_, err = runCommand(t, fake, "", "detach", "1-1")
	require.NoError(t, err)
	require.Len(t, fake.commands(), 3)
}

func TestAttachLegacy(t *testing.T) {
	t.Parallel()

	fake := newFakeUsbipd()
	fake.version = "3.2.0"

	_, err := runCommand(t, fake, "", "attach", "2-3")
	require.NoError(t, err)
	require.Equal(t, [][]string{{"wsl", "attach", "--busid", "2-3"}}, fake.commands())
}

func TestUnbind(t *testing.T) {
	t.Parallel()

	fake := newFakeUsbipd()

	_, err := runCommand(t, fake, "", "unbind", "2-3")
	require.NoError(t, err)
	require.Equal(t, [][]string{{"unbind", "--guid", "{aaaa}"}}, fake.commands())

	// Persisted devices are unbound by GUID and disappear.
	_, err = runCommand(t, fake, "", "unbind", "{BBBB}")
	require.NoError(t, err)
	require.Len(t, fake.devices, 2)

	// Not shared.
	_, err = runCommand(t, fake, "", "unbind", "1-1")
	require.NoError(t, err)
	require.Len(t, fake.commands(), 2)
}

func TestUnknownDevice(t *testing.T) {
	t.Parallel()

	fake := newFakeUsbipd()

	_, err := runCommand(t, fake, "", "attach", "9-9")
	require.ErrorIs(t, err, ErrDeviceNotFound)

	// GUIDs only identify devices for unbind.
	_, err = runCommand(t, fake, "", "detach", "{aaaa}")
	require.ErrorIs(t, err, ErrDeviceNotFound)
	require.Empty(t, fake.commands())
}

func TestMissingTool(t *testing.T) {
	t.Parallel()

	fake := newFakeUsbipd()
	fake.versionErr = &usbipd.LaunchError{Args: []string{"--version"}, Err: errors.New("executable file not found")}

	_, err := runCommand(t, fake, "", "list")
	require.Error(t, err)

	var launchErr *usbipd.LaunchError
	require.ErrorAs(t, err, &launchErr)

	out, err := runCommand(t, fake, "", "version")
	require.NoError(t, err)
	require.Contains(t, out, "Client version: 1.2.3")
	require.Contains(t, out, "usbipd version: not installed")
}

func TestVersion(t *testing.T) {
	t.Parallel()

	fake := newFakeUsbipd()
	fake.version = "3.2.0+12.abcdef"

	out, err := runCommand(t, fake, "", "version")
	require.NoError(t, err)
	require.Contains(t, out, "usbipd version: 3.2.0 (untested")
}

func TestAutoAttach(t *testing.T) {
	t.Parallel()

	fake := newFakeUsbipd()

	// Already cancelled, the command returns as soon as the profiles are set up.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := runCommandContext(t, ctx, fake, "", "auto-attach", "2-3", "1-1", "9-9")
	require.NoError(t, err)
	require.Contains(t, out, "Security Key")
	require.Contains(t, out, "{aaaa}")
	require.NotContains(t, out, "USB Serial Device")
	require.Equal(t, [][]string{{"attach", "--wsl", "--busid", "2-3"}}, fake.commands())
}

func TestAutoAttachFailure(t *testing.T) {
	t.Parallel()

	fake := newFakeUsbipd()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runCommandContext(t, ctx, fake, "", "auto-attach", "1-1", "9-9")
	require.ErrorIs(t, err, autoattach.ErrNotBound)
	require.ErrorIs(t, err, ErrDeviceNotFound)
	require.Empty(t, fake.commands())
}

func TestDiffDevices(t *testing.T) {
	t.Parallel()

	serial := usbipd.Device{BusID: "1-1", InstanceID: "A"}
	key := usbipd.Device{BusID: "2-3", InstanceID: "B", PersistedGUID: "{b}"}
	webcam := usbipd.Device{BusID: "3-1", InstanceID: "C"}

	sharedSerial := serial
	sharedSerial.PersistedGUID = "{a}"

	changes := diffDevices([]usbipd.Device{serial, key}, []usbipd.Device{sharedSerial, webcam})
	require.Len(t, changes, 3)

	require.Equal(t, changeUpdated, changes[0].kind)
	require.Equal(t, usbipd.StateUnshared, changes[0].from.Kind)
	require.Equal(t, usbipd.StateShared, changes[0].device.State().Kind)

	require.Equal(t, changeAdded, changes[1].kind)
	require.Equal(t, "C", changes[1].device.InstanceID)

	require.Equal(t, changeRemoved, changes[2].kind)
	require.Equal(t, "B", changes[2].device.InstanceID)

	require.Empty(t, diffDevices([]usbipd.Device{serial}, []usbipd.Device{serial}))
}
