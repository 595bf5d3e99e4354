package measurement

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Sink is the external health-record store a confirmed measurement is
// forwarded to.
type Sink interface {
	AddMeasurement(ctx context.Context, m ProcessedHealthMeasurement) error
}

// Inbox holds the single normalized measurement awaiting user confirmation.
//
// A new measurement overwrites an unconfirmed previous one: a user who has
// not confirmed the prior reading before taking a new one wants the latest.
type Inbox struct {
	logger *logrus.Logger
	sink   Sink

	mu            sync.Mutex
	pending       *ProcessedHealthMeasurement
	shouldPresent bool
}

// NewInbox creates an Inbox forwarding confirmed measurements to sink.
func NewInbox(sink Sink, logger *logrus.Logger) *Inbox {
	if logger == nil {
		logger = logrus.New()
	}
	return &Inbox{logger: logger, sink: sink}
}

// Submit stores a normalized measurement as the pending one, replacing any
// unconfirmed predecessor, and requests the confirmation UI.
func (i *Inbox) Submit(m ProcessedHealthMeasurement) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.pending != nil {
		i.logger.WithField("id", i.pending.ID()).Debug("Replacing unconfirmed pending measurement")
	}
	i.pending = &m
	i.shouldPresent = true
}

// Pending returns a copy of the pending measurement, or ok=false when none.
func (i *Inbox) Pending() (ProcessedHealthMeasurement, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.pending == nil {
		return ProcessedHealthMeasurement{}, false
	}
	return *i.pending, true
}

// ShouldPresent reports whether the confirmation UI was requested.
func (i *Inbox) ShouldPresent() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.shouldPresent
}

// SetPresented lets the UI layer acknowledge or re-arm the presentation flag.
func (i *Inbox) SetPresented(presented bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.shouldPresent = !presented
}

// Save forwards the pending measurement to the sink.
//
// With no pending measurement Save is an idempotent no-op; that protects
// against a double-tap on the confirmation button. If the sink fails the
// pending measurement is retained so the save can be retried, and the sink
// error is returned unchanged.
func (i *Inbox) Save(ctx context.Context) error {
	i.mu.Lock()
	pending := i.pending
	i.mu.Unlock()

	if pending == nil {
		i.logger.Debug("Save requested with no pending measurement")
		return nil
	}

	if err := i.sink.AddMeasurement(ctx, *pending); err != nil {
		return err
	}

	i.mu.Lock()
	// Only clear if the saved measurement is still the pending one; a
	// submission racing the sink call must not be lost.
	if i.pending == pending {
		i.pending = nil
		i.shouldPresent = false
	}
	i.mu.Unlock()
	return nil
}

// Discard drops the pending measurement without persisting it.
func (i *Inbox) Discard() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.pending = nil
	i.shouldPresent = false
}
