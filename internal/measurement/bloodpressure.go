package measurement

import "time"

// PressureUnit identifies the unit a blood pressure cuff reported in,
// as carried in the flags octet of the Blood Pressure Measurement
// characteristic.
type PressureUnit string

const (
	PressureUnitMmHg PressureUnit = "mmHg"
	PressureUnitKPa  PressureUnit = "kPa"
)

// BloodPressureMeasurement is the decoded payload of a GATT Blood Pressure
// Measurement characteristic (0x2A35). All pressure and pulse values are
// SFloats and may carry the NaN sentinel when the cuff failed to obtain a
// reading.
type BloodPressureMeasurement struct {
	Systolic             SFloat       `json:"systolic"`
	Diastolic            SFloat       `json:"diastolic"`
	MeanArterialPressure SFloat       `json:"meanArterialPressure"`
	Unit                 PressureUnit `json:"unit"`
	Timestamp            *time.Time   `json:"timestamp,omitempty"`
	PulseRate            *SFloat      `json:"pulseRate,omitempty"`
	UserID               *uint8       `json:"userId,omitempty"`
	MeasurementStatus    *uint16      `json:"measurementStatus,omitempty"`
}

// BloodPressureFeatures is the raw value of the Blood Pressure Feature
// characteristic (0x2A49).
type BloodPressureFeatures uint16

const (
	BloodPressureFeatureBodyMovementDetection BloodPressureFeatures = 1 << 0
	BloodPressureFeatureCuffFitDetection      BloodPressureFeatures = 1 << 1
	BloodPressureFeatureIrregularPulse        BloodPressureFeatures = 1 << 2
	BloodPressureFeaturePulseRateRange        BloodPressureFeatures = 1 << 3
	BloodPressureFeatureMeasurementPosition   BloodPressureFeatures = 1 << 4
	BloodPressureFeatureMultipleBonds         BloodPressureFeatures = 1 << 5
)

// Supports reports whether every bit of f is set.
func (b BloodPressureFeatures) Supports(f BloodPressureFeatures) bool {
	return b&f == f
}
