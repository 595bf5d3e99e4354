// Package device defines the capability contracts concrete BLE health
// peripherals implement. Other components depend on these interfaces only;
// optional behavior (pairing, battery, measurements) is discovered with
// interface assertions rather than concrete-type casts.
package device

import (
	"context"

	"github.com/google/uuid"

	"github.com/srg/vitalink/internal/measurement"
)

// State represents the transport-level connection state of a peripheral.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// Device is the base contract every concrete peripheral type implements.
type Device interface {
	// ID is the stable platform identifier of the peripheral.
	ID() uuid.UUID
	// Name is the advertised or configured display name.
	Name() string
	// Model is the vendor model string, empty until read from the device.
	Model() string
	// DeviceType is a stable tag identifying the concrete implementation.
	// The registry uses it to route reconnection to the type-specific
	// retrieval path after a restart.
	DeviceType() string
	// State is the current transport state.
	State() State

	Connect(ctx context.Context) error
	Disconnect() error
}

// Pairable is implemented by devices that can be paired. Pairing drives the
// discovery -> connect -> confirm protocol and establishes trust only; it
// does not persist anything.
type Pairable interface {
	// InPairingMode reports whether the device currently advertises
	// readiness to pair, as opposed to transfer mode.
	InPairingMode() bool
	// Discarded reports whether the transport layer dropped the device
	// from discovery (out of range, advertisement stopped).
	Discarded() bool
	// Pair runs a single cancellable pairing attempt.
	Pair(ctx context.Context) error
}

// BatteryPowered is implemented by devices exposing the battery service.
type BatteryPowered interface {
	// ReadBattery reads the current battery percentage (0-100).
	ReadBattery(ctx context.Context) (uint8, error)
}

// InformationProvider is implemented by devices exposing the device
// information service.
type InformationProvider interface {
	// DeviceInformation returns the identification strings read so far.
	// Fields not yet read are empty.
	DeviceInformation() measurement.DeviceDescriptor
	// ReadModelNumber reads the model number characteristic.
	ReadModelNumber(ctx context.Context) (string, error)
}

// MeasurementHandler receives decoded measurements from a device.
type MeasurementHandler func(m measurement.BluetoothHealthMeasurement)

// HealthMeasurementSource is implemented by devices that emit health
// measurements.
type HealthMeasurementSource interface {
	// SetMeasurementHandler installs the handler invoked for every decoded
	// measurement notification. Passing nil removes the handler.
	SetMeasurementHandler(fn MeasurementHandler)
}

// IconProvider is implemented by device types that resolve an icon through
// capability or appearance rules.
type IconProvider interface {
	Icon() *Icon
}

// Icon is a tagged reference to a device image: either a system symbol name
// or a bundled asset plus bundle locator. At most one of System and Asset is
// set.
type Icon struct {
	System string `json:"system,omitempty"`
	Asset  string `json:"asset,omitempty"`
	Bundle string `json:"bundle,omitempty"`
}
