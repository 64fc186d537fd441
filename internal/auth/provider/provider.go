package provider

import (
	"context"

	"eid-auth-service/internal/auth"
)

// TokenResponse is the broker's answer to an authorization-code exchange.
// It lives for one callback and is never persisted.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Broker defines the contract of the external eID broker. Implementations
// return identity facts only and must not perform user creation, linking,
// or session management.
type Broker interface {
	// Name returns the broker identifier used in logs.
	Name() string

	// AuthCodeURL returns the authorization URL for the given state and nonce.
	AuthCodeURL(state string, nonce string) string

	// ExchangeCode trades an authorization code for broker tokens.
	ExchangeCode(ctx context.Context, code string) (*TokenResponse, error)

	// ExtractIdentity decodes the ID token into normalized claims. The nonce
	// is returned as asserted; comparing it is the caller's job.
	ExtractIdentity(ctx context.Context, rawIDToken string) (*auth.Identity, error)
}
