package measurement_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/vitalink/internal/measurement"
)

// fakeSink records forwarded measurements and can fail on demand.
type fakeSink struct {
	mu    sync.Mutex
	err   error
	saved []measurement.ProcessedHealthMeasurement
}

func (s *fakeSink) AddMeasurement(_ context.Context, m measurement.ProcessedHealthMeasurement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, m)
	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

func weightSample(kg float64) measurement.ProcessedHealthMeasurement {
	return measurement.ProcessedHealthMeasurement{
		Kind: measurement.KindWeight,
		Weight: &measurement.QuantitySample{
			ID:    uuid.New(),
			Type:  measurement.SampleBodyMass,
			Value: kg,
			Unit:  measurement.UnitKilograms,
		},
	}
}

func TestInbox_Submit(t *testing.T) {
	t.Run("requests presentation", func(t *testing.T) {
		inbox := measurement.NewInbox(&fakeSink{}, testLogger())
		assert.False(t, inbox.ShouldPresent())

		inbox.Submit(weightSample(70))
		assert.True(t, inbox.ShouldPresent())

		pending, ok := inbox.Pending()
		require.True(t, ok)
		assert.InDelta(t, 70.0, pending.Weight.Value, 1e-9)
	})

	t.Run("last write wins over an unconfirmed measurement", func(t *testing.T) {
		inbox := measurement.NewInbox(&fakeSink{}, testLogger())

		inbox.Submit(weightSample(70))
		inbox.Submit(weightSample(71))

		pending, ok := inbox.Pending()
		require.True(t, ok)
		assert.InDelta(t, 71.0, pending.Weight.Value, 1e-9)
	})
}

func TestInbox_Save(t *testing.T) {
	t.Run("no pending measurement is an idempotent no-op", func(t *testing.T) {
		sink := &fakeSink{}
		inbox := measurement.NewInbox(sink, testLogger())

		require.NoError(t, inbox.Save(context.Background()))
		assert.Zero(t, sink.count())
	})

	t.Run("forwards to sink and clears pending", func(t *testing.T) {
		sink := &fakeSink{}
		inbox := measurement.NewInbox(sink, testLogger())
		inbox.Submit(weightSample(70))

		require.NoError(t, inbox.Save(context.Background()))
		assert.Equal(t, 1, sink.count())

		_, ok := inbox.Pending()
		assert.False(t, ok)
		assert.False(t, inbox.ShouldPresent())

		// Double tap: the second save must not hit the sink again.
		require.NoError(t, inbox.Save(context.Background()))
		assert.Equal(t, 1, sink.count())
	})

	t.Run("sink failure retains pending and rethrows", func(t *testing.T) {
		sinkErr := errors.New("health store unavailable")
		sink := &fakeSink{err: sinkErr}
		inbox := measurement.NewInbox(sink, testLogger())
		inbox.Submit(weightSample(70))

		err := inbox.Save(context.Background())
		assert.ErrorIs(t, err, sinkErr)

		pending, ok := inbox.Pending()
		require.True(t, ok)
		assert.InDelta(t, 70.0, pending.Weight.Value, 1e-9)

		// Retry succeeds once the sink recovers.
		sink.mu.Lock()
		sink.err = nil
		sink.mu.Unlock()
		require.NoError(t, inbox.Save(context.Background()))
		_, ok = inbox.Pending()
		assert.False(t, ok)
	})
}

func TestInbox_Discard(t *testing.T) {
	sink := &fakeSink{}
	inbox := measurement.NewInbox(sink, testLogger())
	inbox.Submit(weightSample(70))

	inbox.Discard()

	_, ok := inbox.Pending()
	assert.False(t, ok)
	assert.False(t, inbox.ShouldPresent())
	require.NoError(t, inbox.Save(context.Background()))
	assert.Zero(t, sink.count())
}
