package registry

import "github.com/google/uuid"

// EventKind marks what changed in the registry.
type EventKind int

const (
	// EventDeviceDiscovered: a new nearby pairable device entered the
	// discovery map; the pairing UI should be presented.
	EventDeviceDiscovered EventKind = iota
	// EventDeviceDiscarded: a discovered device left range.
	EventDeviceDiscarded
	// EventDevicePaired: a paired-device record was created.
	EventDevicePaired
	// EventDeviceUpdated: a paired-device record mutated (battery,
	// last-seen, rename).
	EventDeviceUpdated
	// EventDeviceForgotten: a paired-device record was removed.
	EventDeviceForgotten
)

func (k EventKind) String() string {
	switch k {
	case EventDeviceDiscovered:
		return "discovered"
	case EventDeviceDiscarded:
		return "discarded"
	case EventDevicePaired:
		return "paired"
	case EventDeviceUpdated:
		return "updated"
	case EventDeviceForgotten:
		return "forgotten"
	default:
		return "unknown"
	}
}

// Event is a registry change notification. The core exposes plain state plus
// these events; a UI layer adapts them to its own reactivity model.
type Event struct {
	Kind     EventKind
	DeviceID uuid.UUID
}
