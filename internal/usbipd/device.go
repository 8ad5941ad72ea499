package usbipd

import (
	"strings"
)

// Device represents a USB device as reported by "usbipd state".
type Device struct {
	BusID            string `json:"BusId"`
	ClientIPAddress  string `json:"ClientIPAddress"`
	Description      string `json:"Description"`
	InstanceID       string `json:"InstanceId"`
	IsForced         bool   `json:"IsForced"`
	PersistedGUID    string `json:"PersistedGuid"`
	StubInstanceGUID string `json:"StubInstanceGuid"`
}

// IsConnected returns whether the device is currently plugged into the host.
func (d *Device) IsConnected() bool {
	return d.BusID != ""
}

// IsBound returns whether the device is shared by usbipd.
func (d *Device) IsBound() bool {
	return d.IsConnected() && d.PersistedGUID != ""
}

// IsAttached returns whether the device is attached to a usbip client.
func (d *Device) IsAttached() bool {
	return d.IsConnected() && d.ClientIPAddress != ""
}

// VIDPID returns the "VVVV:PPPP" identifier of the device, if available.
func (d *Device) VIDPID() (string, bool) {
	// USB\VID_XXXX&PID_XXXX\XXXX
	parts := strings.Split(d.InstanceID, `\`)
	if len(parts) < 2 || parts[1] == "" {
		return "", false
	}

	vidPID := strings.ReplaceAll(parts[1], "VID_", "")
	vidPID = strings.ReplaceAll(vidPID, "&PID_", ":")

	return vidPID, true
}

// Serial returns the serial number of the device, if available.
//
// Windows generates an instance ID for devices that don't report a serial
// number. Those IDs contain ampersands and change across reconnections, so
// they aren't returned.
func (d *Device) Serial() (string, bool) {
	parts := strings.Split(d.InstanceID, `\`)
	if len(parts) < 3 || parts[2] == "" {
		return "", false
	}

	if strings.Contains(parts[2], "&") {
		return "", false
	}

	return parts[2], true
}

// State returns the logical usbipd state of the device.
func (d *Device) State() State {
	switch {
	case !d.IsConnected():
		return State{Kind: StatePersisted}
	case d.IsAttached():
		return State{Kind: StateAttached, Forced: d.IsForced}
	case d.IsBound():
		return State{Kind: StateShared, Forced: d.IsForced}
	default:
		return State{Kind: StateUnshared}
	}
}

// FindByInstanceID returns the device with the given instance ID, or nil.
func FindByInstanceID(devices []Device, instanceID string) *Device {
	for i := range devices {
		if devices[i].InstanceID == instanceID {
			return &devices[i]
		}
	}

	return nil
}

// FindByBusID returns the connected device on the given bus ID, or nil.
func FindByBusID(devices []Device, busID string) *Device {
	for i := range devices {
		if devices[i].IsConnected() && devices[i].BusID == busID {
			return &devices[i]
		}
	}

	return nil
}

// FindByGUID returns the device with the given persisted GUID, or nil.
func FindByGUID(devices []Device, guid string) *Device {
	for i := range devices {
		if devices[i].PersistedGUID != "" && strings.EqualFold(devices[i].PersistedGUID, guid) {
			return &devices[i]
		}
	}

	return nil
}
