package handshake

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"eid-auth-service/internal/cache"

	"golang.org/x/crypto/hkdf"
)

const cookieKeyInfo = "eid-auth-service handshake cookie v1"

// CookieStore keeps state and nonce in two independent browser cookies.
// With a secret configured each value carries an HMAC so a forged or
// swapped cookie is treated as absent.
//
// Each saved pair also leaves a marker in the cache. Take must win the
// marker, so a client resending cookies it was told to drop gets nothing.
type CookieStore struct {
	opts    CookieOptions
	key     []byte
	markers cache.Cache
}

func NewCookieStore(markers cache.Cache, opts CookieOptions, secret string) (*CookieStore, error) {
	if markers == nil {
		return nil, fmt.Errorf("handshake: cookie store needs a marker cache")
	}

	s := &CookieStore{opts: opts, markers: markers}
	if secret == "" {
		return s, nil
	}

	key := make([]byte, sha256.Size)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(cookieKeyInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("handshake: derive cookie key: %w", err)
	}
	s.key = key
	return s, nil
}

func markerKey(state string) string {
	return "handshake:state:" + state
}

func (s *CookieStore) Save(ctx context.Context, w http.ResponseWriter, _ *http.Request, hc Context) error {
	if hc.State == "" || hc.Nonce == "" {
		return fmt.Errorf("handshake: state and nonce are required")
	}

	if err := s.markers.Set(ctx, markerKey(hc.State), []byte(hc.Nonce), TTL); err != nil {
		return fmt.Errorf("handshake: store marker: %w", err)
	}

	// both values are computed before either cookie is written
	state := s.seal(StateCookieName, hc.State)
	nonce := s.seal(NonceCookieName, hc.Nonce)

	setCookie(w, StateCookieName, state, s.opts)
	setCookie(w, NonceCookieName, nonce, s.opts)
	return nil
}

func (s *CookieStore) Take(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Context, error) {
	rawState := readCookie(r, StateCookieName)
	rawNonce := readCookie(r, NonceCookieName)

	clearCookie(w, StateCookieName, s.opts)
	clearCookie(w, NonceCookieName, s.opts)

	state, okState := s.open(StateCookieName, rawState)
	nonce, okNonce := s.open(NonceCookieName, rawNonce)
	if !okState || !okNonce {
		return nil, nil
	}

	marker, err := s.markers.Take(ctx, markerKey(state))
	if errors.Is(err, cache.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("handshake: take marker: %w", err)
	}
	if !hmac.Equal(marker, []byte(nonce)) {
		return nil, nil
	}

	return &Context{State: state, Nonce: nonce}, nil
}

func (s *CookieStore) seal(name, value string) string {
	if s.key == nil {
		return value
	}
	return value + "." + s.mac(name, value)
}

func (s *CookieStore) open(name, raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	if s.key == nil {
		return raw, true
	}

	i := strings.LastIndexByte(raw, '.')
	if i <= 0 {
		return "", false
	}
	value, sig := raw[:i], raw[i+1:]
	if !hmac.Equal([]byte(sig), []byte(s.mac(name, value))) {
		return "", false
	}
	return value, true
}

func (s *CookieStore) mac(name, value string) string {
	h := hmac.New(sha256.New, s.key)
	h.Write([]byte(name))
	h.Write([]byte{'|'})
	h.Write([]byte(value))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
