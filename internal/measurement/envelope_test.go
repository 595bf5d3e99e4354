package measurement_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/vitalink/internal/measurement"
)

var testDescriptor = measurement.DeviceDescriptor{
	Name:             "Health Scale",
	Manufacturer:     "ACME Medical",
	ModelNumber:      "HS-300",
	HardwareRevision: "2",
	FirmwareRevision: "1.4.0",
	SoftwareRevision: "1.0.2",
}

func TestBluetoothHealthMeasurement_WeightRoundTrip(t *testing.T) {
	userID := uint8(3)
	raw := measurement.WeightMeasurement{
		Weight: 8400,
		Unit:   measurement.WeightUnitSI,
		UserID: &userID,
	}
	features := measurement.WeightFeatureBMISupported | measurement.WeightFeatureMultipleUsersSupported
	original := measurement.NewWeight(raw, features, testDescriptor)

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded measurement.BluetoothHealthMeasurement
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, original, decoded)

	gotRaw, gotFeatures, ok := decoded.Weight()
	require.True(t, ok)
	assert.Equal(t, raw, gotRaw)
	assert.Equal(t, features, gotFeatures)
	assert.Equal(t, testDescriptor, decoded.Device())
}

func TestBluetoothHealthMeasurement_BloodPressureRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	pulse := measurement.NewSFloat(72, 0)
	raw := measurement.BloodPressureMeasurement{
		Systolic:             measurement.NewSFloat(120, 0),
		Diastolic:            measurement.NewSFloat(80, 0),
		MeanArterialPressure: measurement.NewSFloat(93, 0),
		Unit:                 measurement.PressureUnitMmHg,
		Timestamp:            &ts,
		PulseRate:            &pulse,
	}
	original := measurement.NewBloodPressure(raw, measurement.BloodPressureFeatureBodyMovementDetection, testDescriptor)

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded measurement.BluetoothHealthMeasurement
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, original, decoded)
}

func TestBluetoothHealthMeasurement_EnvelopeFormat(t *testing.T) {
	raw := measurement.WeightMeasurement{Weight: 100, Unit: measurement.WeightUnitSI}
	data, err := json.Marshal(measurement.NewWeight(raw, 6, testDescriptor))
	require.NoError(t, err)

	var env map[string]any
	require.NoError(t, json.Unmarshal(data, &env))

	assert.Equal(t, "weight", env["type"])
	assert.Equal(t, float64(6), env["featureFlags"])
	assert.Contains(t, env, "weight")
	assert.Contains(t, env, "device")
	assert.NotContains(t, env, "bloodPressure")
}

func TestBluetoothHealthMeasurement_DecodeErrors(t *testing.T) {
	t.Run("unknown kind", func(t *testing.T) {
		var m measurement.BluetoothHealthMeasurement
		err := json.Unmarshal([]byte(`{"type":"spo2","featureFlags":0}`), &m)
		assert.Error(t, err)
	})

	t.Run("discriminator without payload", func(t *testing.T) {
		var m measurement.BluetoothHealthMeasurement
		err := json.Unmarshal([]byte(`{"type":"weight","featureFlags":0}`), &m)
		assert.Error(t, err)
	})

	t.Run("zero value cannot encode", func(t *testing.T) {
		var m measurement.BluetoothHealthMeasurement
		_, err := json.Marshal(m)
		assert.Error(t, err)
	})
}
