package measurement_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/srg/vitalink/internal/measurement"
)

func TestWeightScaleFeatures_Supports(t *testing.T) {
	features := measurement.WeightFeatureBMISupported | measurement.WeightFeatureMultipleUsersSupported

	assert.True(t, features.Supports(measurement.WeightFeatureBMISupported))
	assert.True(t, features.Supports(measurement.WeightFeatureMultipleUsersSupported))
	assert.True(t, features.Supports(measurement.WeightFeatureBMISupported|measurement.WeightFeatureMultipleUsersSupported))
	assert.False(t, features.Supports(measurement.WeightFeatureTimestampSupported))
}

func TestWeightScaleFeatures_WeightStep(t *testing.T) {
	t.Run("unspecified resolution defaults to finest graduation", func(t *testing.T) {
		var features measurement.WeightScaleFeatures
		assert.InDelta(t, 0.005, features.WeightStep(measurement.WeightUnitSI), 1e-9)
		assert.InDelta(t, 0.01, features.WeightStep(measurement.WeightUnitImperial), 1e-9)
	})

	t.Run("explicit resolution field", func(t *testing.T) {
		// Resolution value 1 (0.5 kg / 1 lb) lives in bits 3-6.
		features := measurement.WeightScaleFeatures(1 << 3)
		assert.InDelta(t, 0.5, features.WeightStep(measurement.WeightUnitSI), 1e-9)
		assert.InDelta(t, 1.0, features.WeightStep(measurement.WeightUnitImperial), 1e-9)
	})
}

func TestWeightMeasurement_WeightKilograms(t *testing.T) {
	t.Run("SI with default resolution", func(t *testing.T) {
		m := measurement.WeightMeasurement{Weight: 8400, Unit: measurement.WeightUnitSI}
		assert.InDelta(t, 42.0, m.WeightKilograms(0), 1e-9)
	})

	t.Run("imperial converts to kilograms", func(t *testing.T) {
		// 15000 * 0.01 lb = 150 lb = 68.0388555 kg
		m := measurement.WeightMeasurement{Weight: 15000, Unit: measurement.WeightUnitImperial}
		assert.InDelta(t, 68.0388555, m.WeightKilograms(0), 1e-6)
	})
}
