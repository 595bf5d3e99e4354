package measurement

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates the members of the BluetoothHealthMeasurement union.
type Kind string

const (
	KindWeight        Kind = "weight"
	KindBloodPressure Kind = "bloodPressure"
)

// DeviceDescriptor is a flattened snapshot of a device's identification
// characteristics, captured alongside a measurement so the reading stays
// attributable after the live device object is gone.
type DeviceDescriptor struct {
	Name             string `json:"name,omitempty"`
	Manufacturer     string `json:"manufacturer,omitempty"`
	ModelNumber      string `json:"modelNumber,omitempty"`
	HardwareRevision string `json:"hardwareRevision,omitempty"`
	FirmwareRevision string `json:"firmwareRevision,omitempty"`
	SoftwareRevision string `json:"softwareRevision,omitempty"`
}

// BluetoothHealthMeasurement is a raw vendor measurement together with the
// feature flags that were active when it was captured. The flags determine
// unit and resolution interpretation and must never be separated from the
// measurement, so the pair travels as one value.
//
// The zero value is invalid; use NewWeight or NewBloodPressure.
type BluetoothHealthMeasurement struct {
	kind Kind

	weight         *WeightMeasurement
	weightFeatures WeightScaleFeatures

	bloodPressure         *BloodPressureMeasurement
	bloodPressureFeatures BloodPressureFeatures

	device DeviceDescriptor
}

// NewWeight wraps a weight reading and the scale features it was captured under.
func NewWeight(m WeightMeasurement, features WeightScaleFeatures, device DeviceDescriptor) BluetoothHealthMeasurement {
	return BluetoothHealthMeasurement{
		kind:           KindWeight,
		weight:         &m,
		weightFeatures: features,
		device:         device,
	}
}

// NewBloodPressure wraps a blood pressure reading and the cuff features it
// was captured under.
func NewBloodPressure(m BloodPressureMeasurement, features BloodPressureFeatures, device DeviceDescriptor) BluetoothHealthMeasurement {
	return BluetoothHealthMeasurement{
		kind:                  KindBloodPressure,
		bloodPressure:         &m,
		bloodPressureFeatures: features,
		device:                device,
	}
}

// Kind returns the union discriminator.
func (m BluetoothHealthMeasurement) Kind() Kind { return m.kind }

// Device returns the descriptor of the device the measurement came from.
func (m BluetoothHealthMeasurement) Device() DeviceDescriptor { return m.device }

// Weight returns the weight member, or ok=false for a blood pressure value.
func (m BluetoothHealthMeasurement) Weight() (WeightMeasurement, WeightScaleFeatures, bool) {
	if m.kind != KindWeight || m.weight == nil {
		return WeightMeasurement{}, 0, false
	}
	return *m.weight, m.weightFeatures, true
}

// BloodPressure returns the blood pressure member, or ok=false for a weight value.
func (m BluetoothHealthMeasurement) BloodPressure() (BloodPressureMeasurement, BloodPressureFeatures, bool) {
	if m.kind != KindBloodPressure || m.bloodPressure == nil {
		return BloodPressureMeasurement{}, 0, false
	}
	return *m.bloodPressure, m.bloodPressureFeatures, true
}

// envelope is the wire form of the union: a discriminator, the payload for
// that branch, the raw feature-flag integer, and the device descriptor.
type envelope struct {
	Type          Kind                      `json:"type"`
	Weight        *WeightMeasurement        `json:"weight,omitempty"`
	BloodPressure *BloodPressureMeasurement `json:"bloodPressure,omitempty"`
	FeatureFlags  uint32                    `json:"featureFlags"`
	Device        DeviceDescriptor          `json:"device"`
}

func (m BluetoothHealthMeasurement) MarshalJSON() ([]byte, error) {
	env := envelope{Type: m.kind, Device: m.device}
	switch m.kind {
	case KindWeight:
		env.Weight = m.weight
		env.FeatureFlags = uint32(m.weightFeatures)
	case KindBloodPressure:
		env.BloodPressure = m.bloodPressure
		env.FeatureFlags = uint32(m.bloodPressureFeatures)
	default:
		return nil, fmt.Errorf("cannot encode measurement of kind %q", m.kind)
	}
	return json.Marshal(env)
}

func (m *BluetoothHealthMeasurement) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	switch env.Type {
	case KindWeight:
		if env.Weight == nil {
			return fmt.Errorf("weight measurement envelope without weight payload")
		}
		*m = NewWeight(*env.Weight, WeightScaleFeatures(env.FeatureFlags), env.Device)
	case KindBloodPressure:
		if env.BloodPressure == nil {
			return fmt.Errorf("blood pressure measurement envelope without blood pressure payload")
		}
		*m = NewBloodPressure(*env.BloodPressure, BloodPressureFeatures(env.FeatureFlags), env.Device)
	default:
		return fmt.Errorf("unknown measurement kind %q", env.Type)
	}
	return nil
}
