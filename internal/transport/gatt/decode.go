// Package gatt decodes the standard GATT health characteristic layouts:
// Weight Measurement (0x2A9D) and Blood Pressure Measurement (0x2A35).
// Vendor modules with proprietary framings supply their own decoder instead;
// these cover devices that follow the Bluetooth SIG profiles.
package gatt

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/srg/vitalink/internal/measurement"
	"github.com/srg/vitalink/internal/transport/goble"
)

// Characteristic UUIDs (16-bit assigned numbers).
const (
	WeightMeasurementCharUUID        = "2a9d"
	WeightScaleFeatureCharUUID       = "2a9e"
	BloodPressureMeasurementCharUUID = "2a35"
	BloodPressureFeatureCharUUID     = "2a49"
)

// Weight Measurement flag bits.
const (
	weightFlagImperial  = 1 << 0
	weightFlagTimestamp = 1 << 1
	weightFlagUserID    = 1 << 2
	weightFlagBMIHeight = 1 << 3
)

// Blood Pressure Measurement flag bits.
const (
	bpFlagKPa       = 1 << 0
	bpFlagTimestamp = 1 << 1
	bpFlagPulseRate = 1 << 2
	bpFlagUserID    = 1 << 3
	bpFlagStatus    = 1 << 4
)

// DecodeWeightMeasurement parses a Weight Measurement characteristic value.
func DecodeWeightMeasurement(data []byte) (measurement.WeightMeasurement, error) {
	var m measurement.WeightMeasurement
	if len(data) < 3 {
		return m, fmt.Errorf("weight measurement too short: %d bytes", len(data))
	}

	flags := data[0]
	m.Unit = measurement.WeightUnitSI
	if flags&weightFlagImperial != 0 {
		m.Unit = measurement.WeightUnitImperial
	}
	m.Weight = binary.LittleEndian.Uint16(data[1:3])
	rest := data[3:]

	if flags&weightFlagTimestamp != 0 {
		ts, remaining, err := decodeDateTime(rest)
		if err != nil {
			return m, err
		}
		m.Timestamp = &ts
		rest = remaining
	}
	if flags&weightFlagUserID != 0 {
		if len(rest) < 1 {
			return m, fmt.Errorf("weight measurement truncated before user id")
		}
		id := rest[0]
		m.UserID = &id
		rest = rest[1:]
	}
	if flags&weightFlagBMIHeight != 0 {
		if len(rest) < 4 {
			return m, fmt.Errorf("weight measurement truncated before BMI/height")
		}
		bmi := binary.LittleEndian.Uint16(rest[0:2])
		height := binary.LittleEndian.Uint16(rest[2:4])
		m.BMI = &bmi
		m.Height = &height
	}
	return m, nil
}

// DecodeBloodPressureMeasurement parses a Blood Pressure Measurement
// characteristic value.
func DecodeBloodPressureMeasurement(data []byte) (measurement.BloodPressureMeasurement, error) {
	var m measurement.BloodPressureMeasurement
	if len(data) < 7 {
		return m, fmt.Errorf("blood pressure measurement too short: %d bytes", len(data))
	}

	flags := data[0]
	m.Unit = measurement.PressureUnitMmHg
	if flags&bpFlagKPa != 0 {
		m.Unit = measurement.PressureUnitKPa
	}
	m.Systolic = measurement.SFloat(binary.LittleEndian.Uint16(data[1:3]))
	m.Diastolic = measurement.SFloat(binary.LittleEndian.Uint16(data[3:5]))
	m.MeanArterialPressure = measurement.SFloat(binary.LittleEndian.Uint16(data[5:7]))
	rest := data[7:]

	if flags&bpFlagTimestamp != 0 {
		ts, remaining, err := decodeDateTime(rest)
		if err != nil {
			return m, err
		}
		m.Timestamp = &ts
		rest = remaining
	}
	if flags&bpFlagPulseRate != 0 {
		if len(rest) < 2 {
			return m, fmt.Errorf("blood pressure measurement truncated before pulse rate")
		}
		pulse := measurement.SFloat(binary.LittleEndian.Uint16(rest[0:2]))
		m.PulseRate = &pulse
		rest = rest[2:]
	}
	if flags&bpFlagUserID != 0 {
		if len(rest) < 1 {
			return m, fmt.Errorf("blood pressure measurement truncated before user id")
		}
		id := rest[0]
		m.UserID = &id
		rest = rest[1:]
	}
	if flags&bpFlagStatus != 0 {
		if len(rest) < 2 {
			return m, fmt.Errorf("blood pressure measurement truncated before status")
		}
		status := binary.LittleEndian.Uint16(rest[0:2])
		m.MeasurementStatus = &status
	}
	return m, nil
}

// decodeDateTime parses the 7-byte GATT Date Time structure.
func decodeDateTime(data []byte) (time.Time, []byte, error) {
	if len(data) < 7 {
		return time.Time{}, nil, fmt.Errorf("date time truncated: %d bytes", len(data))
	}
	year := int(binary.LittleEndian.Uint16(data[0:2]))
	ts := time.Date(year, time.Month(data[2]), int(data[3]),
		int(data[4]), int(data[5]), int(data[6]), 0, time.Local)
	return ts, data[7:], nil
}

// WeightDecoder builds a measurement decoder for standard weight scales.
// The feature flags were read from the Weight Scale Feature characteristic
// at connect time and travel with every decoded measurement.
func WeightDecoder(features measurement.WeightScaleFeatures) goble.MeasurementDecoder {
	return func(charUUID string, data []byte, dev measurement.DeviceDescriptor) (measurement.BluetoothHealthMeasurement, bool) {
		if charUUID != WeightMeasurementCharUUID {
			return measurement.BluetoothHealthMeasurement{}, false
		}
		m, err := DecodeWeightMeasurement(data)
		if err != nil {
			return measurement.BluetoothHealthMeasurement{}, false
		}
		return measurement.NewWeight(m, features, dev), true
	}
}

// BloodPressureDecoder builds a measurement decoder for standard blood
// pressure cuffs.
func BloodPressureDecoder(features measurement.BloodPressureFeatures) goble.MeasurementDecoder {
	return func(charUUID string, data []byte, dev measurement.DeviceDescriptor) (measurement.BluetoothHealthMeasurement, bool) {
		if charUUID != BloodPressureMeasurementCharUUID {
			return measurement.BluetoothHealthMeasurement{}, false
		}
		m, err := DecodeBloodPressureMeasurement(data)
		if err != nil {
			return measurement.BluetoothHealthMeasurement{}, false
		}
		return measurement.NewBloodPressure(m, features, dev), true
	}
}
