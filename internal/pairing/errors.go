package pairing

import (
	"errors"
	"fmt"
)

// FailureReason represents the specific kind of pairing failure.
type FailureReason string

const (
	// ReasonBusy: another pairing attempt is already in progress on this device.
	ReasonBusy FailureReason = "busy"
	// ReasonNotInPairingMode: the device is not signaling pairing mode.
	ReasonNotInPairingMode FailureReason = "not_in_pairing_mode"
	// ReasonInvalidState: the device is not disconnected, or was discarded
	// from discovery before the attempt started.
	ReasonInvalidState FailureReason = "invalid_state"
	// ReasonTimeout: no confirmation arrived within the pairing timeout.
	ReasonTimeout FailureReason = "timeout"
	// ReasonCancelled: the calling task was cancelled while awaiting.
	ReasonCancelled FailureReason = "cancelled"
	// ReasonDeviceDisconnected: the device dropped the connection mid-attempt.
	ReasonDeviceDisconnected FailureReason = "device_disconnected"
)

// Error represents any pairing failure. All reasons are surfaced to the
// pairing UI; none are fatal to the process.
type Error struct {
	Reason FailureReason
	Msg    string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return fmt.Sprintf("pairing failed: %s", e.Reason)
	}
	return fmt.Sprintf("pairing failed: %s: %s", e.Reason, e.Msg)
}

// Is allows errors.Is to compare pairing errors by reason.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Reason == t.Reason
}

// Predefined sentinel errors, one per failure reason.
var (
	ErrBusy               = &Error{Reason: ReasonBusy}
	ErrNotInPairingMode   = &Error{Reason: ReasonNotInPairingMode}
	ErrInvalidState       = &Error{Reason: ReasonInvalidState}
	ErrTimeout            = &Error{Reason: ReasonTimeout}
	ErrCancelled          = &Error{Reason: ReasonCancelled}
	ErrDeviceDisconnected = &Error{Reason: ReasonDeviceDisconnected}
)

// IsReason reports whether err is a pairing Error with the given reason.
func IsReason(err error, reason FailureReason) bool {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Reason == reason
	}
	return false
}
