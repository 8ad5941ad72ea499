package notify

import (
	"bytes"
	"strings"
)

type ueventAction uint8

const (
	ueventUnknown ueventAction = iota
	ueventAdd
	ueventRemove
	ueventChange
	ueventBind
	ueventUnbind
)

// uevent is a kernel uevent as broadcast on the NETLINK_KOBJECT_UEVENT socket.
type uevent struct {
	action    ueventAction
	devpath   string
	subsystem string
	devtype   string
}

var ueventActions = map[string]ueventAction{
	"add":    ueventAdd,
	"remove": ueventRemove,
	"change": ueventChange,
	"bind":   ueventBind,
	"unbind": ueventUnbind,
}

// parseUEvent parses a "action@devpath\0KEY=VALUE\0..." message.
func parseUEvent(data []byte) uevent {
	evt := uevent{}

	for _, field := range bytes.Split(data, []byte{0}) {
		if len(field) == 0 {
			continue
		}

		key, value, ok := strings.Cut(string(field), "=")
		if !ok {
			// Header line.
			action, devpath, found := strings.Cut(key, "@")
			if found {
				evt.action = ueventActions[action]
				evt.devpath = devpath
			}

			continue
		}

		switch key {
		case "ACTION":
			evt.action = ueventActions[value]
		case "DEVPATH":
			evt.devpath = value
		case "SUBSYSTEM":
			evt.subsystem = value
		case "DEVTYPE":
			evt.devtype = value
		}
	}

	return evt
}

// isUSBDeviceChange returns whether the event is a whole USB device being added or removed.
// Interface and endpoint events for the same device are ignored.
func (e uevent) isUSBDeviceChange() bool {
	if e.subsystem != "usb" || e.devtype != "usb_device" {
		return false
	}

	return e.action == ueventAdd || e.action == ueventRemove
}
