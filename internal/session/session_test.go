package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"eid-auth-service/internal/account"
	"eid-auth-service/internal/auth"
	"eid-auth-service/internal/cache"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateIDUnique(t *testing.T) {
	a, err := GenerateID()
	require.NoError(t, err)
	b, err := GenerateID()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 43)
}

func TestCacheStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	s := NewCacheStore(cache.NewMemory(), clock)

	sess := Session{SessionID: "sid", UserID: "u1", Email: "a@x.no", CreatedAt: clock.Now(), ExpiresAt: clock.Now().Add(time.Hour)}
	require.NoError(t, s.Create(ctx, sess))

	got, err := s.Get(ctx, "sid")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "a@x.no", got.Email)

	require.NoError(t, s.Delete(ctx, "sid"))
	got, err = s.Get(ctx, "sid")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheStoreValidation(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	s := NewCacheStore(cache.NewMemory(), clock)

	assert.Error(t, s.Create(ctx, Session{UserID: "u1", ExpiresAt: clock.Now().Add(time.Hour)}))
	assert.Error(t, s.Create(ctx, Session{SessionID: "sid", UserID: "u1", ExpiresAt: clock.Now()}))

	require.NoError(t, s.Create(ctx, Session{SessionID: "sid", UserID: "u1", ExpiresAt: clock.Now().Add(time.Hour)}))
	require.NoError(t, s.Update(ctx, Session{SessionID: "sid", UserID: "u1", ExpiresAt: clock.Now().Add(-time.Second)}))
	got, err := s.Get(ctx, "sid")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCookieName(t *testing.T) {
	assert.Equal(t, "__Host-session", CookieOptions{Secure: true}.Name())
	assert.Equal(t, "session", CookieOptions{}.Name())

	rec := httptest.NewRecorder()
	SetCookie(rec, "sid", time.Now().Add(time.Hour), CookieOptions{Secure: true})
	c := rec.Result().Cookies()[0]
	assert.Equal(t, "__Host-session", c.Name)
	assert.Equal(t, "/", c.Path)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
}

type fixture struct {
	authority *LocalAuthority
	sessions  *CacheStore
	accounts  *account.MemoryStore
	profile   *account.Profile
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c := cache.NewMemory()
	accounts := account.NewMemoryStore()
	p, err := accounts.Create(context.Background(), &account.Profile{Subject: "sub-1", Email: "a@x.no"})
	require.NoError(t, err)

	sessions := NewCacheStore(c, nil)
	return &fixture{
		authority: NewLocalAuthority(c, sessions, accounts, AuthorityOptions{BaseURL: "https://app.example.com"}),
		sessions:  sessions,
		accounts:  accounts,
		profile:   p,
	}
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == DevCookieName {
			return c
		}
	}
	return nil
}

func TestIssueAndRedeem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	link, err := f.authority.IssueOneTimeLink(ctx, "a@x.no")
	require.NoError(t, err)

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "app.example.com", u.Host)
	assert.Equal(t, "/auth/verify", u.Path)
	assert.Equal(t, "magiclink", u.Query().Get("type"))

	rec := httptest.NewRecorder()
	require.NoError(t, f.authority.Redeem(ctx, rec, u.Query().Get("token")))

	c := sessionCookie(rec)
	require.NotNil(t, c)
	sess, err := f.sessions.Get(ctx, c.Value)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, f.profile.UserID, sess.UserID)

	err = f.authority.Redeem(ctx, httptest.NewRecorder(), u.Query().Get("token"))
	assert.ErrorIs(t, err, ErrInvalidLink)
}

func TestIssueUnknownEmail(t *testing.T) {
	f := newFixture(t)
	_, err := f.authority.IssueOneTimeLink(context.Background(), "nobody@x.no")
	assert.ErrorIs(t, err, account.ErrNotFound)
}

func TestBridgeActivate(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()

	require.NoError(t, NewBridge(f.authority).Activate(context.Background(), rec, "a@x.no"))
	assert.NotNil(t, sessionCookie(rec))
}

type brokenSessions struct{ Store }

func (brokenSessions) Create(context.Context, Session) error { return errors.New("redis down") }

func TestBridgeFailuresSetNoCookie(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	err := NewBridge(f.authority).Activate(context.Background(), rec, "nobody@x.no")
	assert.ErrorIs(t, err, auth.ErrSessionIssuance)
	assert.Empty(t, rec.Result().Cookies())

	broken := NewLocalAuthority(cache.NewMemory(), brokenSessions{}, f.accounts, AuthorityOptions{})
	rec = httptest.NewRecorder()
	err = NewBridge(broken).Activate(context.Background(), rec, "a@x.no")
	assert.ErrorIs(t, err, auth.ErrSessionIssuance)
	assert.Empty(t, rec.Result().Cookies())
}
