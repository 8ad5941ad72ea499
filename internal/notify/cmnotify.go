package notify

// CM_NOTIFY_ACTION values from cfgmgr32.h.
const (
	cmNotifyActionDeviceInterfaceArrival = 0
	cmNotifyActionDeviceInterfaceRemoval = 1
)

// isInterfaceChange returns whether a configuration manager action is a
// device interface arrival or removal. Other actions (query remove, custom
// events, instance enumeration...) are ignored.
func isInterfaceChange(action uint32) bool {
	return action == cmNotifyActionDeviceInterfaceArrival || action == cmNotifyActionDeviceInterfaceRemoval
}
