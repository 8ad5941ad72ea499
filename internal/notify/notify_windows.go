//go:build windows

package notify

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	cmNotifyFilterTypeDeviceInterface = 0
	crSuccess                         = 0
)

var (
	modcfgmgr32 = windows.NewLazySystemDLL("cfgmgr32.dll")

	procCMRegisterNotification   = modcfgmgr32.NewProc("CM_Register_Notification")
	procCMUnregisterNotification = modcfgmgr32.NewProc("CM_Unregister_Notification")

	// GUID_DEVINTERFACE_USB_DEVICE.
	guidDevInterfaceUSBDevice = windows.GUID{
		Data1: 0xA5DCBF10,
		Data2: 0x6530,
		Data3: 0x11D2,
		Data4: [8]byte{0x90, 0x1F, 0x00, 0xC0, 0x4F, 0xB9, 0x51, 0xED},
	}
)

// cmNotifyFilter mirrors CM_NOTIFY_FILTER. The union is sized by its largest
// member, a 200 character device instance ID.
type cmNotifyFilter struct {
	cbSize     uint32
	flags      uint32
	filterType uint32
	reserved   uint32
	classGUID  windows.GUID
	_          [384]byte
}

// The OS gets an integer key as callback context, never a Go pointer.
var (
	callbackOnce sync.Once
	callbackPtr  uintptr

	registryMu sync.Mutex
	registry   = map[uintptr]func(){}
	nextKey    uintptr
)

func notificationCallback(_ uintptr, context uintptr, action uintptr, _ uintptr, _ uintptr) uintptr {
	if !isInterfaceChange(uint32(action)) { //nolint:gosec
		return crSuccess
	}

	registryMu.Lock()
	trigger := registry[context]
	registryMu.Unlock()

	if trigger != nil {
		trigger()
	}

	return crSuccess
}

func register(trigger func()) (func() error, error) {
	err := procCMRegisterNotification.Find()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupported, err)
	}

	callbackOnce.Do(func() {
		callbackPtr = windows.NewCallback(notificationCallback)
	})

	registryMu.Lock()
	nextKey++
	key := nextKey
	registry[key] = trigger
	registryMu.Unlock()

	filter := cmNotifyFilter{
		filterType: cmNotifyFilterTypeDeviceInterface,
		classGUID:  guidDevInterfaceUSBDevice,
	}
	filter.cbSize = uint32(unsafe.Sizeof(filter))

	var handle uintptr

	ret, _, _ := procCMRegisterNotification.Call(
		uintptr(unsafe.Pointer(&filter)),
		key,
		callbackPtr,
		uintptr(unsafe.Pointer(&handle)),
	)
	if ret != crSuccess {
		registryMu.Lock()
		delete(registry, key)
		registryMu.Unlock()

		return nil, fmt.Errorf("CM_Register_Notification failed with code %d", ret)
	}

	return func() error {
		ret, _, _ := procCMUnregisterNotification.Call(handle)

		// Once unregistered no further callbacks are delivered for the key.
		registryMu.Lock()
		delete(registry, key)
		registryMu.Unlock()

		if ret != crSuccess {
			return fmt.Errorf("CM_Unregister_Notification failed with code %d", ret)
		}

		return nil
	}, nil
}
