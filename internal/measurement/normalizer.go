package measurement

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Normalizer converts raw (measurement, feature flags) pairs into
// unit-resolved ProcessedHealthMeasurement values.
//
// Blood pressure readings with a non-finite systolic or diastolic value are
// treated as sensor noise: they are dropped with a log entry and never reach
// the caller. Weight readings are always accepted.
type Normalizer struct {
	logger *logrus.Logger

	now   func() time.Time
	newID func() uuid.UUID
}

// NewNormalizer creates a Normalizer logging through the given logger.
func NewNormalizer(logger *logrus.Logger) *Normalizer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Normalizer{
		logger: logger,
		now:    time.Now,
		newID:  uuid.New,
	}
}

// Normalize resolves units and resolution for the raw measurement and
// attributes the result to the measurement's device descriptor. ok is false
// when validation rejected the reading.
func (n *Normalizer) Normalize(m BluetoothHealthMeasurement) (ProcessedHealthMeasurement, bool) {
	switch m.Kind() {
	case KindWeight:
		raw, features, _ := m.Weight()
		return n.normalizeWeight(raw, features, m.Device()), true
	case KindBloodPressure:
		raw, _, _ := m.BloodPressure()
		return n.normalizeBloodPressure(raw, m.Device())
	}

	n.logger.WithField("kind", m.Kind()).Warn("Dropping measurement of unknown kind")
	return ProcessedHealthMeasurement{}, false
}

func (n *Normalizer) normalizeWeight(raw WeightMeasurement, features WeightScaleFeatures, device DeviceDescriptor) ProcessedHealthMeasurement {
	sample := QuantitySample{
		ID:     n.newID(),
		Type:   SampleBodyMass,
		Value:  raw.WeightKilograms(features),
		Unit:   UnitKilograms,
		Time:   n.sampleTime(raw.Timestamp),
		Device: device,
	}
	return ProcessedHealthMeasurement{Kind: KindWeight, Weight: &sample}
}

func (n *Normalizer) normalizeBloodPressure(raw BloodPressureMeasurement, device DeviceDescriptor) (ProcessedHealthMeasurement, bool) {
	if !raw.Systolic.IsFinite() || !raw.Diastolic.IsFinite() {
		n.logger.WithFields(logrus.Fields{
			"systolic":  raw.Systolic.Float64(),
			"diastolic": raw.Diastolic.Float64(),
			"device":    device.ModelNumber,
		}).Warn("Dropping blood pressure measurement with non-finite value")
		return ProcessedHealthMeasurement{}, false
	}

	unit := UnitMmHg
	if raw.Unit == PressureUnitKPa {
		unit = UnitKPa
	}
	captured := n.sampleTime(raw.Timestamp)

	correlation := BloodPressureCorrelation{
		ID:     n.newID(),
		Time:   captured,
		Device: device,
		Systolic: QuantitySample{
			ID:     n.newID(),
			Type:   SampleBloodPressureSystolic,
			Value:  raw.Systolic.Float64(),
			Unit:   unit,
			Time:   captured,
			Device: device,
		},
		Diastolic: QuantitySample{
			ID:     n.newID(),
			Type:   SampleBloodPressureDiastolic,
			Value:  raw.Diastolic.Float64(),
			Unit:   unit,
			Time:   captured,
			Device: device,
		},
	}

	// Mean arterial pressure is optional on the wire: cuffs that cannot
	// compute it send NaN, which simply omits the derived sample.
	if raw.MeanArterialPressure.IsFinite() {
		correlation.MeanArterialPressure = &QuantitySample{
			ID:     n.newID(),
			Type:   SampleMeanArterialPressure,
			Value:  raw.MeanArterialPressure.Float64(),
			Unit:   unit,
			Time:   captured,
			Device: device,
		}
	}

	if raw.PulseRate != nil && raw.PulseRate.IsFinite() {
		correlation.HeartRate = &QuantitySample{
			ID:     n.newID(),
			Type:   SampleHeartRate,
			Value:  raw.PulseRate.Float64(),
			Unit:   UnitBeatsPerMinute,
			Time:   captured,
			Device: device,
		}
	}

	return ProcessedHealthMeasurement{Kind: KindBloodPressure, BloodPressure: &correlation}, true
}

func (n *Normalizer) sampleTime(ts *time.Time) time.Time {
	if ts != nil {
		return *ts
	}
	return n.now()
}
