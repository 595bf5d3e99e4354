package measurement

import "time"

// WeightUnit identifies the unit system a weight scale reported in,
// as carried in the flags octet of the Weight Measurement characteristic.
type WeightUnit string

const (
	// WeightUnitSI means kilograms and metres.
	WeightUnitSI WeightUnit = "si"
	// WeightUnitImperial means pounds and inches.
	WeightUnitImperial WeightUnit = "imperial"
)

const poundsToKilograms = 0.45359237

// WeightMeasurement is the decoded payload of a GATT Weight Measurement
// characteristic (0x2A9D). Weight, BMI and Height carry raw scaled integers;
// the accompanying WeightScaleFeatures determine the scaling step.
type WeightMeasurement struct {
	Weight    uint16     `json:"weight"`
	Unit      WeightUnit `json:"unit"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	UserID    *uint8     `json:"userId,omitempty"`
	BMI       *uint16    `json:"bmi,omitempty"`
	Height    *uint16    `json:"height,omitempty"`
}

// WeightScaleFeatures is the raw value of the Weight Scale Feature
// characteristic (0x2A9E). Bits 3-6 encode the weight measurement
// resolution, bits 7-9 the height measurement resolution.
type WeightScaleFeatures uint32

const (
	WeightFeatureTimestampSupported     WeightScaleFeatures = 1 << 0
	WeightFeatureMultipleUsersSupported WeightScaleFeatures = 1 << 1
	WeightFeatureBMISupported           WeightScaleFeatures = 1 << 2
)

// Supports reports whether every bit of f is set.
func (w WeightScaleFeatures) Supports(f WeightScaleFeatures) bool {
	return w&f == f
}

// weightSteps maps the 4-bit weight resolution field to the measurement
// step size in kilograms (SI) and pounds (imperial). Index 0 is
// "unspecified"; devices that leave it unset overwhelmingly use the finest
// graduation, so that is the default.
var weightSteps = [8][2]float64{
	{0.005, 0.01}, // unspecified
	{0.5, 1},
	{0.2, 0.5},
	{0.1, 0.2},
	{0.05, 0.1},
	{0.02, 0.05},
	{0.01, 0.02},
	{0.005, 0.01},
}

func (w WeightScaleFeatures) weightResolution() uint32 {
	return (uint32(w) >> 3) & 0x0F
}

// WeightStep returns the value of one raw weight count for the given unit
// system, expressed in that system's native unit (kg or lb).
func (w WeightScaleFeatures) WeightStep(unit WeightUnit) float64 {
	res := w.weightResolution()
	if res > 7 {
		res = 0
	}
	if unit == WeightUnitImperial {
		return weightSteps[res][1]
	}
	return weightSteps[res][0]
}

// WeightKilograms resolves the raw weight reading into kilograms using the
// resolution advertised by the scale's feature flags.
func (m WeightMeasurement) WeightKilograms(features WeightScaleFeatures) float64 {
	v := float64(m.Weight) * features.WeightStep(m.Unit)
	if m.Unit == WeightUnitImperial {
		v *= poundsToKilograms
	}
	return v
}
