package gatt_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/vitalink/internal/measurement"
	"github.com/srg/vitalink/internal/transport/gatt"
)

func TestDecodeWeightMeasurement(t *testing.T) {
	t.Run("minimal SI payload", func(t *testing.T) {
		// flags=0x00, weight=8400 -> 42.0 kg at the default resolution
		m, err := gatt.DecodeWeightMeasurement([]byte{0x00, 0xD0, 0x20})
		require.NoError(t, err)

		assert.Equal(t, measurement.WeightUnitSI, m.Unit)
		assert.EqualValues(t, 8400, m.Weight)
		assert.Nil(t, m.Timestamp)
		assert.Nil(t, m.UserID)
		assert.Nil(t, m.BMI)
	})

	t.Run("imperial flag", func(t *testing.T) {
		m, err := gatt.DecodeWeightMeasurement([]byte{0x01, 0x98, 0x3A})
		require.NoError(t, err)
		assert.Equal(t, measurement.WeightUnitImperial, m.Unit)
	})

	t.Run("full payload", func(t *testing.T) {
		payload := []byte{
			0x0E,       // timestamp | user id | bmi+height
			0xD0, 0x20, // weight 8400
			0xEA, 0x07, 8, 14, 9, 30, 15, // 2026-08-14 09:30:15
			0x03,       // user id
			0xDC, 0x00, // bmi 220
			0xAF, 0x00, // height 175
		}
		m, err := gatt.DecodeWeightMeasurement(payload)
		require.NoError(t, err)

		require.NotNil(t, m.Timestamp)
		assert.Equal(t, time.Date(2026, 8, 14, 9, 30, 15, 0, time.Local), *m.Timestamp)
		require.NotNil(t, m.UserID)
		assert.EqualValues(t, 3, *m.UserID)
		require.NotNil(t, m.BMI)
		assert.EqualValues(t, 220, *m.BMI)
		require.NotNil(t, m.Height)
		assert.EqualValues(t, 175, *m.Height)
	})

	t.Run("truncation", func(t *testing.T) {
		tests := []struct {
			name    string
			payload []byte
		}{
			{"empty", nil},
			{"missing weight byte", []byte{0x00, 0xD0}},
			{"timestamp cut short", []byte{0x02, 0xD0, 0x20, 0xEA, 0x07, 8}},
			{"user id missing", []byte{0x04, 0xD0, 0x20}},
			{"bmi cut short", []byte{0x08, 0xD0, 0x20, 0xDC, 0x00}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := gatt.DecodeWeightMeasurement(tt.payload)
				assert.Error(t, err)
			})
		}
	})
}

func TestDecodeBloodPressureMeasurement(t *testing.T) {
	t.Run("minimal mmHg payload", func(t *testing.T) {
		payload := []byte{
			0x00,
			0x78, 0x00, // systolic 120
			0x50, 0x00, // diastolic 80
			0x5D, 0x00, // MAP 93
		}
		m, err := gatt.DecodeBloodPressureMeasurement(payload)
		require.NoError(t, err)

		assert.Equal(t, measurement.PressureUnitMmHg, m.Unit)
		assert.InDelta(t, 120.0, m.Systolic.Float64(), 1e-9)
		assert.InDelta(t, 80.0, m.Diastolic.Float64(), 1e-9)
		assert.InDelta(t, 93.0, m.MeanArterialPressure.Float64(), 1e-9)
		assert.Nil(t, m.PulseRate)
		assert.Nil(t, m.MeasurementStatus)
	})

	t.Run("kPa flag", func(t *testing.T) {
		payload := []byte{0x01, 0xA0, 0xF0, 0x6B, 0xF0, 0x7C, 0xF0}
		m, err := gatt.DecodeBloodPressureMeasurement(payload)
		require.NoError(t, err)
		assert.Equal(t, measurement.PressureUnitKPa, m.Unit)
		assert.InDelta(t, 16.0, m.Systolic.Float64(), 1e-9)
	})

	t.Run("full payload", func(t *testing.T) {
		payload := []byte{
			0x1E, // timestamp | pulse | user id | status
			0x78, 0x00,
			0x50, 0x00,
			0x5D, 0x00,
			0xEA, 0x07, 8, 14, 9, 30, 15,
			0x48, 0x00, // pulse 72
			0x01,       // user id
			0x04, 0x00, // status
		}
		m, err := gatt.DecodeBloodPressureMeasurement(payload)
		require.NoError(t, err)

		require.NotNil(t, m.Timestamp)
		assert.Equal(t, time.Date(2026, 8, 14, 9, 30, 15, 0, time.Local), *m.Timestamp)
		require.NotNil(t, m.PulseRate)
		assert.InDelta(t, 72.0, m.PulseRate.Float64(), 1e-9)
		require.NotNil(t, m.UserID)
		assert.EqualValues(t, 1, *m.UserID)
		require.NotNil(t, m.MeasurementStatus)
		assert.EqualValues(t, 4, *m.MeasurementStatus)
	})

	t.Run("NaN sentinel survives decoding", func(t *testing.T) {
		payload := []byte{0x00, 0x78, 0x00, 0x50, 0x00, 0xFF, 0x07}
		m, err := gatt.DecodeBloodPressureMeasurement(payload)
		require.NoError(t, err)
		assert.False(t, m.MeanArterialPressure.IsFinite())
	})

	t.Run("truncation", func(t *testing.T) {
		tests := []struct {
			name    string
			payload []byte
		}{
			{"too short for the three pressures", []byte{0x00, 0x78, 0x00, 0x50, 0x00, 0x5D}},
			{"pulse missing", []byte{0x04, 0x78, 0x00, 0x50, 0x00, 0x5D, 0x00, 0x48}},
			{"status missing", []byte{0x10, 0x78, 0x00, 0x50, 0x00, 0x5D, 0x00, 0x04}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := gatt.DecodeBloodPressureMeasurement(tt.payload)
				assert.Error(t, err)
			})
		}
	})
}

func TestDecoders(t *testing.T) {
	dev := measurement.DeviceDescriptor{Name: "Test Scale", Manufacturer: "Acme"}

	t.Run("weight decoder routes by characteristic", func(t *testing.T) {
		decode := gatt.WeightDecoder(0)

		env, ok := decode(gatt.WeightMeasurementCharUUID, []byte{0x00, 0xD0, 0x20}, dev)
		require.True(t, ok)
		w, features, ok := env.Weight()
		require.True(t, ok)
		assert.EqualValues(t, 8400, w.Weight)
		assert.Zero(t, features)
		assert.Equal(t, dev, env.Device())

		_, ok = decode(gatt.BloodPressureMeasurementCharUUID, []byte{0x00, 0xD0, 0x20}, dev)
		assert.False(t, ok, "other characteristics are not ours")

		_, ok = decode(gatt.WeightMeasurementCharUUID, []byte{0x00}, dev)
		assert.False(t, ok, "malformed payloads are dropped, not propagated")
	})

	t.Run("blood pressure decoder", func(t *testing.T) {
		decode := gatt.BloodPressureDecoder(measurement.BloodPressureFeatureBodyMovementDetection)

		payload := []byte{0x00, 0x78, 0x00, 0x50, 0x00, 0x5D, 0x00}
		env, ok := decode(gatt.BloodPressureMeasurementCharUUID, payload, dev)
		require.True(t, ok)
		bp, features, ok := env.BloodPressure()
		require.True(t, ok)
		assert.InDelta(t, 120.0, bp.Systolic.Float64(), 1e-9)
		assert.Equal(t, measurement.BloodPressureFeatureBodyMovementDetection, features)
	})
}
