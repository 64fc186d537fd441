package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"eid-auth-service/internal/cache"

	"github.com/jonboulle/clockwork"
)

// CacheStore keeps sessions in a cache backend (Redis or memory).
type CacheStore struct {
	cache  cache.Cache
	clock  clockwork.Clock
	prefix string
}

func NewCacheStore(c cache.Cache, clock clockwork.Clock) *CacheStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CacheStore{
		cache:  c,
		clock:  clock,
		prefix: "session:",
	}
}

func (s *CacheStore) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *CacheStore) Create(ctx context.Context, sess Session) error {
	if sess.SessionID == "" || sess.UserID == "" {
		return fmt.Errorf("session: missing session_id or user_id")
	}

	ttl := sess.ExpiresAt.Sub(s.clock.Now())
	if ttl <= 0 {
		return fmt.Errorf("session: expires_at must be in the future")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: failed to marshal: %w", err)
	}

	return s.cache.Set(ctx, s.key(sess.SessionID), data, ttl)
}

func (s *CacheStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.cache.Get(ctx, s.key(sessionID))
	if errors.Is(err, cache.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("session: failed to unmarshal: %w", err)
	}

	return &sess, nil
}

func (s *CacheStore) Delete(ctx context.Context, sessionID string) error {
	return s.cache.Delete(ctx, s.key(sessionID))
}

func (s *CacheStore) Update(ctx context.Context, sess Session) error {
	if sess.SessionID == "" {
		return fmt.Errorf("session: missing session_id")
	}

	ttl := sess.ExpiresAt.Sub(s.clock.Now())
	if ttl <= 0 {
		// expired sessions are dropped, not extended
		return s.cache.Delete(ctx, s.key(sess.SessionID))
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: failed to marshal: %w", err)
	}

	return s.cache.Set(ctx, s.key(sess.SessionID), data, ttl)
}
