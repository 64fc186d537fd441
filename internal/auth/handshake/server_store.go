package handshake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"eid-auth-service/internal/cache"
	"eid-auth-service/internal/utils"

	"github.com/jonboulle/clockwork"
)

// ServerStore keeps the handshake context in a server-side cache keyed by
// a random handle cookie. The browser only ever sees the handle.
type ServerStore struct {
	cache cache.Cache
	opts  CookieOptions
	clock clockwork.Clock
}

func NewServerStore(c cache.Cache, opts CookieOptions, clock clockwork.Clock) *ServerStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ServerStore{cache: c, opts: opts, clock: clock}
}

func key(handle string) string {
	return "handshake:" + handle
}

func (s *ServerStore) Save(ctx context.Context, w http.ResponseWriter, r *http.Request, hc Context) error {
	if hc.State == "" || hc.Nonce == "" {
		return fmt.Errorf("handshake: state and nonce are required")
	}

	// a new initiation replaces the previous attempt
	if prev := readCookie(r, handleCookieName); prev != "" {
		if err := s.cache.Delete(ctx, key(prev)); err != nil {
			return fmt.Errorf("handshake: drop previous context: %w", err)
		}
	}

	handle, err := utils.RandomToken(utils.TokenBytes)
	if err != nil {
		return err
	}

	data, err := json.Marshal(hc)
	if err != nil {
		return fmt.Errorf("handshake: marshal: %w", err)
	}

	if err := s.cache.Set(ctx, key(handle), data, TTL); err != nil {
		return fmt.Errorf("handshake: store context: %w", err)
	}

	setCookie(w, handleCookieName, handle, s.opts)
	return nil
}

func (s *ServerStore) Take(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Context, error) {
	handle := readCookie(r, handleCookieName)
	clearCookie(w, handleCookieName, s.opts)

	if handle == "" {
		return nil, nil
	}

	data, err := s.cache.Take(ctx, key(handle))
	if errors.Is(err, cache.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("handshake: load context: %w", err)
	}

	var hc Context
	if err := json.Unmarshal(data, &hc); err != nil {
		return nil, fmt.Errorf("handshake: unmarshal: %w", err)
	}

	if hc.Expired(s.clock.Now()) {
		return nil, nil
	}
	return &hc, nil
}
