package usbipd

// StateKind represents one of the mutually exclusive usbipd device states.
type StateKind int

const (
	// StateUnshared is a connected device that isn't bound.
	StateUnshared StateKind = iota

	// StatePersisted is a bound device that isn't currently connected.
	StatePersisted

	// StateShared is a connected and bound device that isn't attached.
	StateShared

	// StateAttached is a device attached to a usbip client.
	StateAttached
)

// String returns the human readable name of the state kind.
func (k StateKind) String() string {
	switch k {
	case StatePersisted:
		return "Persisted"
	case StateShared:
		return "Shared"
	case StateAttached:
		return "Attached"
	default:
		return "Not shared"
	}
}

// State is the logical state of a device along with whether it was forced.
type State struct {
	Kind   StateKind
	Forced bool
}

// String returns the state as displayed to users, e.g. "Shared (forced)".
func (s State) String() string {
	if s.Forced && (s.Kind == StateShared || s.Kind == StateAttached) {
		return s.Kind.String() + " (forced)"
	}

	return s.Kind.String()
}
