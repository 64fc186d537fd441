package handler

import (
	"errors"
	"fmt"

	"eid-auth-service/internal/auth"
)

// State is the terminal state of a callback.
type State string

const (
	ErrorFromBroker     State = "ErrorFromBroker"
	MissingParams       State = "MissingParams"
	StateMismatch       State = "StateMismatch"
	TokenExchangeFailed State = "TokenExchangeFailed"
	NonceMismatch       State = "NonceMismatch"
	SessionBridged      State = "SessionBridged"
	Failed              State = "Failed"
)

var errMissingParams = fmt.Errorf("%w: callback missing code or state", auth.ErrProtocolViolation)

// classify maps a callback error onto its terminal state. nil means the
// session was bridged.
func classify(err error) State {
	var denied *auth.BrokerDeniedError
	switch {
	case err == nil:
		return SessionBridged
	case errors.As(err, &denied):
		return ErrorFromBroker
	case errors.Is(err, errMissingParams):
		return MissingParams
	case errors.Is(err, auth.ErrCSRF):
		return StateMismatch
	case errors.Is(err, auth.ErrUpstream):
		return TokenExchangeFailed
	case errors.Is(err, auth.ErrReplay):
		return NonceMismatch
	default:
		return Failed
	}
}
