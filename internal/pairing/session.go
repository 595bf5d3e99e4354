// Package pairing implements the per-device pairing state machine that turns
// an ephemeral nearby-peripheral sighting into a trusted, connectable device.
//
// A pairing attempt races a single-shot confirmation continuation against a
// timeout and the caller's context. Confirmation is deliberately coarse: ANY
// inbound application data from a device in pairing mode counts as proof of
// successful pairing. Vendor devices signal readiness through different
// characteristics (battery, time sync, measurement notify), and a uniform
// any-interaction rule avoids per-vendor special-casing at this layer.
// Vendor modules may layer a stricter signal on top, never a replacement.
package pairing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/srg/vitalink/internal/device"
)

// DefaultTimeout bounds a single pairing attempt.
const DefaultTimeout = 15 * time.Second

// Stage is the observable state of a pairing session.
type Stage int

const (
	StageIdle Stage = iota
	StageConnecting
	StageAwaitingConfirmation
	StagePaired
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageConnecting:
		return "connecting"
	case StageAwaitingConfirmation:
		return "awaiting_confirmation"
	case StagePaired:
		return "paired"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Peripheral is the slice of device behavior a pairing session requires.
type Peripheral interface {
	ID() uuid.UUID
	State() device.State
	InPairingMode() bool
	Discarded() bool
	Connect(ctx context.Context) error
	Disconnect() error
}

// SessionOptions tunes a pairing session.
type SessionOptions struct {
	// Timeout bounds one attempt. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Session owns the single in-flight pairing attempt of one device instance.
// At most one continuation is outstanding at a time; a second concurrent
// Pair call fails fast with ErrBusy rather than overwriting the first.
type Session struct {
	peripheral Peripheral
	timeout    time.Duration
	logger     *logrus.Logger

	mu    sync.Mutex
	cont  *oneshot
	stage Stage
}

// NewSession creates a pairing session for the given peripheral.
func NewSession(p Peripheral, opts *SessionOptions, logger *logrus.Logger) *Session {
	if logger == nil {
		logger = logrus.New()
	}
	timeout := DefaultTimeout
	if opts != nil && opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	return &Session{
		peripheral: p,
		timeout:    timeout,
		logger:     logger,
		stage:      StageIdle,
	}
}

// Stage returns the current pairing stage.
func (s *Session) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// Pair runs one pairing attempt: connect, then await a confirmation signal
// racing the timeout and ctx. On timeout or cancellation a compensating
// disconnect is issued so the device is left disconnected. Pairing only
// establishes trust and connectivity; persisting the paired-device record is
// the registry's job.
func (s *Session) Pair(ctx context.Context) error {
	s.mu.Lock()
	if s.cont != nil {
		s.mu.Unlock()
		return ErrBusy
	}
	if !s.peripheral.InPairingMode() {
		s.mu.Unlock()
		return ErrNotInPairingMode
	}
	if s.peripheral.Discarded() {
		s.mu.Unlock()
		return &Error{Reason: ReasonInvalidState, Msg: "device no longer discovered"}
	}
	if state := s.peripheral.State(); state != device.StateDisconnected {
		s.mu.Unlock()
		return &Error{Reason: ReasonInvalidState, Msg: fmt.Sprintf("device is %s", state)}
	}

	cont := newOneshot()
	s.cont = cont
	s.stage = StageConnecting
	s.mu.Unlock()

	if err := s.peripheral.Connect(ctx); err != nil {
		s.resolve(&Error{Reason: ReasonInvalidState, Msg: err.Error()})
		err = <-cont.Done()
		s.setStage(StageFailed)
		return err
	}

	s.setStage(StageAwaitingConfirmation)

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	var err error
	select {
	case err = <-cont.Done():
	case <-timer.C:
		// The continuation may have been fulfilled between the timer
		// firing and this resolve; the first resolver wins either way.
		s.resolve(ErrTimeout)
		err = <-cont.Done()
	case <-ctx.Done():
		s.resolve(ErrCancelled)
		err = <-cont.Done()
	}

	if err == nil {
		s.setStage(StagePaired)
		return nil
	}

	s.setStage(StageFailed)
	if IsReason(err, ReasonTimeout) || IsReason(err, ReasonCancelled) {
		if derr := s.peripheral.Disconnect(); derr != nil {
			s.logger.WithError(derr).WithField("device", s.peripheral.ID()).
				Warn("Compensating disconnect after failed pairing attempt")
		}
	}
	return err
}

// HandleDeviceInteraction resolves the pending attempt as successful. The
// concrete device type calls this whenever it observes any data notification
// or indication from the peripheral.
func (s *Session) HandleDeviceInteraction() {
	s.resolve(nil)
}

// HandleDeviceDisconnected resolves the pending attempt as failed because
// the device dropped the connection.
func (s *Session) HandleDeviceDisconnected() {
	s.resolve(ErrDeviceDisconnected)
}

// resolve fulfills and clears the stored continuation. Clearing the
// reference before fulfilling guards against a double-resume: a second
// resolver finds no continuation and returns.
func (s *Session) resolve(err error) {
	s.mu.Lock()
	cont := s.cont
	s.cont = nil
	s.mu.Unlock()

	if cont != nil {
		cont.Resolve(err)
	}
}

func (s *Session) setStage(stage Stage) {
	s.mu.Lock()
	s.stage = stage
	s.mu.Unlock()
}
