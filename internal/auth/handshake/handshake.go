// Package handshake keeps the state and nonce of one in-flight login
// between the initiate redirect and the broker callback.
package handshake

import (
	"context"
	"net/http"
	"time"
)

// TTL bounds how long an abandoned login attempt stays usable.
const TTL = 10 * time.Minute

const (
	StateCookieName  = "bankid_state"
	NonceCookieName  = "bankid_nonce"
	handleCookieName = "bankid_handshake"
)

// Context is the per-browser record of one login attempt.
type Context struct {
	State     string    `json:"state"`
	Nonce     string    `json:"nonce"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// New builds a context that expires TTL after now.
func New(state, nonce string, now time.Time) Context {
	return Context{
		State:     state,
		Nonce:     nonce,
		CreatedAt: now,
		ExpiresAt: now.Add(TTL),
	}
}

// Expired reports whether the context is past its deadline. A zero
// deadline means expiry is enforced by the transport (cookie Max-Age).
func (c Context) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Store persists at most one Context per browser. Save overwrites any
// previous context. Take returns the stored context and invalidates it in
// the same step; it returns (nil, nil) when nothing usable is stored.
type Store interface {
	Save(ctx context.Context, w http.ResponseWriter, r *http.Request, hc Context) error
	Take(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Context, error)
}

// CookieOptions mirrors the attributes shared by every handshake cookie.
type CookieOptions struct {
	Secure bool
}

func setCookie(w http.ResponseWriter, name, value string, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(TTL.Seconds()),
	})
}

func clearCookie(w http.ResponseWriter, name string, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func readCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
