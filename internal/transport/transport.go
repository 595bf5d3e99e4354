// Package transport defines the contracts of the BLE transport collaborator
// the core consumes. The radio/GATT protocol itself is out of scope; the
// core only depends on these narrow capabilities.
package transport

import (
	"github.com/google/uuid"

	"github.com/srg/vitalink/internal/device"
)

// Central is the app-facing surface of the BLE stack: device retrieval for
// reconnection after restarts, scan power control, and best-effort
// radio-level unpairing.
type Central interface {
	// SupportsDeviceType reports whether the central was configured to
	// discover the given concrete device type.
	SupportsDeviceType(deviceType string) bool

	// RetrievePeripheral re-attaches a peripheral instance for a known
	// identity using the type-specific retrieval path. Returns nil when
	// the device is no longer known to the transport cache, which is the
	// observable signal that the OS-level association was revoked.
	RetrievePeripheral(id uuid.UUID, deviceType string) device.Device

	// Scan enables or disables nearby-device scanning.
	Scan(enable bool) error

	// Unpair requests removal of the radio-level association. Best-effort:
	// failures are logged by the caller, never escalated.
	Unpair(id uuid.UUID) error
}

// Addressable is implemented by device handles whose transport exposes a
// stable hardware address worth persisting for re-attachment after a
// restart.
type Addressable interface {
	Address() string
}

// DiscoveryHandler receives discovery lifecycle callbacks from the central.
type DiscoveryHandler interface {
	// NearbyPairableDevice is invoked for a new advertisement from a
	// device that is neither paired nor already tracked as discovered.
	NearbyPairableDevice(dev device.Device)
	// HandleDiscardedDevice is invoked when a discovered device is no
	// longer nearby (advertisement timeout, out of range).
	HandleDiscardedDevice(dev device.Device)
	// HandleDeviceStateUpdated is invoked on every transport state
	// transition of a tracked device.
	HandleDeviceStateUpdated(dev device.Device, state device.State)
}
