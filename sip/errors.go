package sip

import "github.com/ghettovoice/sipcore/internal/errorutil"

// Common errors.
const (
	ErrInvalidArgument        = errorutil.ErrInvalidArgument
	ErrActionNotAllowed Error = "action not allowed"
)

// Transaction errors.
const (
	ErrTransactionNotFound   Error = "transaction not found"
	ErrTransactionNotMatched Error = "transaction not matched"
	ErrTransactionTimedOut   Error = "transaction timed out"
)

// Transport errors.
const (
	// ErrTransportClosed is returned when attempting to use a closed transport.
	ErrTransportClosed Error = "transport closed"
	// ErrNoTarget is returned when no target for the message is resolved.
	ErrNoTarget Error = "no target resolved"
	// ErrUnhandledMessage is returned when the message wasn't handled by any receiver or sender.
	ErrUnhandledMessage Error = "unhandled message"
	ErrNoTransport      Error = "no transport resolved"
)

// Dialog errors.
const (
	ErrDialogNotFound Error = "dialog not found"
	// ErrOutOfOrder is returned by the dialog sequence guard for requests
	// with a CSeq number lower than the last seen remote one.
	ErrOutOfOrder Error = "out of order request"
)

// Authentication errors.
const (
	// ErrAuthFailed is returned by the authenticator when no credentials
	// match the challenge realm or the server repeats a nonce without
	// marking it stale.
	ErrAuthFailed Error = "authentication failed"
	// ErrUnsupportedChallenge is returned for challenge schemes and
	// algorithms the authenticator does not implement.
	ErrUnsupportedChallenge Error = "unsupported challenge"
)

// Session errors.
const (
	// ErrSignalingStateInvalid is returned when an offer or answer is
	// applied in a signaling state that does not expect it.
	ErrSignalingStateInvalid Error = "invalid signaling state"
	// ErrEarlyMediaForking is returned by the inviter constructor for
	// the early media option combined with fork tolerance: early media
	// on an unconfirmed dialog cannot survive a fork.
	ErrEarlyMediaForking Error = "early media is incompatible with forking"
	// ErrSessionTerminated is returned for operations on a session that
	// already reached the terminated state.
	ErrSessionTerminated Error = "session terminated"
	// ErrProvisionalNotAcknowledged is returned when a reliable
	// provisional response was never acknowledged with a PRACK.
	ErrProvisionalNotAcknowledged Error = "reliable provisional not acknowledged"
)

// Refresh errors.
const (
	// ErrRefreshFailed is returned when a registration, subscription or
	// publication attempt was answered with a non-2xx final response.
	ErrRefreshFailed Error = "refresh failed"
	// ErrNoNotify is returned when no NOTIFY arrived for a subscription
	// within the timer N window.
	ErrNoNotify Error = "no notify received"
)

// Message errors.
const (
	ErrInvalidMessage    Error = "invalid message"
	ErrEntityTooLarge    Error = "entity too large"
	ErrMessageTooLarge   Error = "message too large"
	ErrMethodNotAllowed  Error = "request method not allowed"
	ErrMessageNotMatched Error = "message not matched"

	errMissHdrs Error = "missing mandatory headers"
)

// Error represents a SIP error.
// See [errorutil.Error].
type Error = errorutil.Error

// NewInvalidArgumentError creates a new error with [ErrInvalidArgument] or
// wraps provided error with [ErrInvalidArgument].
func NewInvalidArgumentError(args ...any) error {
	return errorutil.NewInvalidArgumentError(args...) //errtrace:skip
}

// NewInvalidMessageError creates a new error with [ErrInvalidMessage] or
// wraps provided error with [ErrInvalidMessage].
func NewInvalidMessageError(args ...any) error {
	return errorutil.NewWrapperError(ErrInvalidMessage, args...) //errtrace:skip
}
