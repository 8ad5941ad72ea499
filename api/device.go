package api

// Device represents a USB device as shown to users.
type Device struct {
	BusID         string `json:"bus_id"         yaml:"bus_id"`
	VIDPID        string `json:"vid_pid"        yaml:"vid_pid"`
	Serial        string `json:"serial"         yaml:"serial"`
	Description   string `json:"description"    yaml:"description"`
	State         string `json:"state"          yaml:"state"`
	Forced        bool   `json:"forced"         yaml:"forced"`
	ClientAddress string `json:"client_address" yaml:"client_address"`
	GUID          string `json:"guid"           yaml:"guid"`
	InstanceID    string `json:"instance_id"    yaml:"instance_id"`
}

// AutoAttachProfile represents a device kept attached to WSL.
type AutoAttachProfile struct {
	GUID        string `json:"guid"        yaml:"guid"`
	BusID       string `json:"bus_id"      yaml:"bus_id"`
	Description string `json:"description" yaml:"description"`
}
