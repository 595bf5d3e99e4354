package registry

import (
	"time"

	"github.com/google/uuid"

	"github.com/srg/vitalink/internal/device"
)

// MaxNameLength bounds the user-editable display name, in runes.
const MaxNameLength = 50

// PairedDeviceInfo is the durable record of a paired device.
//
// A record is created exactly once, at successful pairing completion. Name
// is user-editable; Model is immutable after creation; BatteryPercentage and
// LastSeen track the latest observations. The record is destroyed only when
// the user explicitly forgets the device.
type PairedDeviceInfo struct {
	// ID is the peripheral's stable platform identifier.
	ID uuid.UUID `json:"id"`
	// DeviceType routes reconnection to the concrete device
	// implementation that owns this record.
	DeviceType string `json:"deviceType"`
	// Name is the user-editable display string.
	Name string `json:"name"`
	// Model is the vendor model string.
	Model string `json:"model,omitempty"`
	// Address is the transport hardware address, persisted so the handle
	// can be re-attached after a restart on transports that key on it.
	Address string `json:"address,omitempty"`
	// Icon is an optional image reference resolved by the device type.
	Icon *device.Icon `json:"icon,omitempty"`
	// BatteryPercentage is the last-known battery reading (0-100).
	BatteryPercentage *uint8 `json:"batteryPercentage,omitempty"`
	// LastSeen is updated whenever the device transitions from connected
	// to disconnected.
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

// truncateName enforces MaxNameLength rune-safely.
func truncateName(name string) string {
	runes := []rune(name)
	if len(runes) <= MaxNameLength {
		return name
	}
	return string(runes[:MaxNameLength])
}

// Store is the key-value/object persistence capability the registry is
// handed. The core does not implement a persistence engine; FileStore is a
// minimal JSON-file implementation for the daemon.
type Store interface {
	LoadDevices() ([]PairedDeviceInfo, error)
	SaveDevices(devices []PairedDeviceInfo) error
}
