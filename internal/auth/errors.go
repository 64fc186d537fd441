package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrProtocolViolation covers missing callback parameters and broker
	// responses that break the contract (no id_token, no subject).
	ErrProtocolViolation = errors.New("protocol violation")
	ErrCSRF              = errors.New("state mismatch")
	ErrReplay            = errors.New("nonce mismatch")
	ErrUpstream          = errors.New("broker request failed")
	ErrPersistence       = errors.New("account store failure")
	ErrSessionIssuance   = errors.New("session issuance failed")
)

// BrokerDeniedError is returned when the broker redirects back with an
// explicit error parameter, typically after the user cancelled.
type BrokerDeniedError struct {
	Code        string
	Description string
}

func (e *BrokerDeniedError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("broker denied: %s", e.Code)
	}
	return fmt.Sprintf("broker denied: %s (%s)", e.Code, e.Description)
}
