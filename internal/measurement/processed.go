package measurement

import (
	"time"

	"github.com/google/uuid"
)

// SampleType identifies the physical quantity a sample represents, using
// names a structured health-record store can map onto its own type system.
type SampleType string

const (
	SampleBodyMass               SampleType = "bodyMass"
	SampleBodyMassIndex          SampleType = "bodyMassIndex"
	SampleHeight                 SampleType = "height"
	SampleBloodPressureSystolic  SampleType = "bloodPressureSystolic"
	SampleBloodPressureDiastolic SampleType = "bloodPressureDiastolic"
	SampleMeanArterialPressure   SampleType = "meanArterialPressure"
	SampleHeartRate              SampleType = "heartRate"
)

// Unit strings used by normalized samples.
const (
	UnitKilograms      = "kg"
	UnitMmHg           = "mmHg"
	UnitKPa            = "kPa"
	UnitBeatsPerMinute = "count/min"
)

// QuantitySample is a single unit-resolved reading ready for the
// health-record sink.
type QuantitySample struct {
	ID     uuid.UUID        `json:"id"`
	Type   SampleType       `json:"type"`
	Value  float64          `json:"value"`
	Unit   string           `json:"unit"`
	Time   time.Time        `json:"time"`
	Device DeviceDescriptor `json:"device"`
}

// BloodPressureCorrelation groups the systolic and diastolic samples of one
// cuff reading, plus the optional derived samples the cuff provided.
type BloodPressureCorrelation struct {
	ID                   uuid.UUID        `json:"id"`
	Systolic             QuantitySample   `json:"systolic"`
	Diastolic            QuantitySample   `json:"diastolic"`
	MeanArterialPressure *QuantitySample  `json:"meanArterialPressure,omitempty"`
	HeartRate            *QuantitySample  `json:"heartRate,omitempty"`
	Time                 time.Time        `json:"time"`
	Device               DeviceDescriptor `json:"device"`
}

// ProcessedHealthMeasurement is the normalized form of a
// BluetoothHealthMeasurement: either one weight sample or a blood pressure
// correlation. Exactly one member is non-nil.
type ProcessedHealthMeasurement struct {
	Kind          Kind                      `json:"kind"`
	Weight        *QuantitySample           `json:"weight,omitempty"`
	BloodPressure *BloodPressureCorrelation `json:"bloodPressure,omitempty"`
}

// ID derives the measurement identity from the underlying sample.
func (p ProcessedHealthMeasurement) ID() uuid.UUID {
	switch {
	case p.Weight != nil:
		return p.Weight.ID
	case p.BloodPressure != nil:
		return p.BloodPressure.ID
	}
	return uuid.Nil
}

// Device returns the descriptor the measurement is attributed to.
func (p ProcessedHealthMeasurement) Device() DeviceDescriptor {
	switch {
	case p.Weight != nil:
		return p.Weight.Device
	case p.BloodPressure != nil:
		return p.BloodPressure.Device
	}
	return DeviceDescriptor{}
}
