package types

import (
	"errors"
	"fmt"
)

// Kind classifies every terminal failure of the payment pipeline. The
// taxonomy is part of the wire contract: client-fixable kinds tell the
// caller to correct the proof, transient kinds tell it the same proof may be
// retried, operational kinds mean this process cannot gate requests yet.
type Kind string

const (
	// Client-fixable.
	KindBadEncoding          Kind = "BadEncoding"
	KindBadEnvelope          Kind = "BadEnvelope"
	KindBadTransactionBinary Kind = "BadTransactionBinary"
	KindNoValidTransfer      Kind = "NoValidTransfer"
	KindReplayedPayment      Kind = "ReplayedPayment"
	KindBroadcastRejected    Kind = "BroadcastRejected"

	// Transient.
	KindConfirmationTimeout Kind = "ConfirmationTimeout"
	KindNetworkUnavailable  Kind = "NetworkUnavailable"

	// Operational.
	KindNotReady Kind = "NotReady"
)

// Transient reports whether the same proof may be retried unchanged. A
// ConfirmationTimeout should be retried via a confirmation lookup on the
// same signature, not by rebroadcasting.
func (k Kind) Transient() bool {
	return k == KindConfirmationTimeout || k == KindNetworkUnavailable
}

// Error carries a pipeline failure with its kind and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// E builds an Error of the given kind.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from err, or "" if err is not a pipeline Error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
