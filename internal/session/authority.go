package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"eid-auth-service/internal/account"
	"eid-auth-service/internal/cache"
	"eid-auth-service/internal/utils"

	"github.com/jonboulle/clockwork"
)

const (
	LinkTTL    = 5 * time.Minute
	linkPrefix = "magiclink:"
)

var ErrInvalidLink = errors.New("session: link invalid or already used")

// Authority issues single-use sign-in links and redeems them into
// sessions.
type Authority interface {
	IssueOneTimeLink(ctx context.Context, email string) (string, error)

	// Redeem consumes token and sets the session cookie on w.
	Redeem(ctx context.Context, w http.ResponseWriter, token string) error
}

// Directory finds the account a link is issued for.
type Directory interface {
	FindByEmail(ctx context.Context, email string) (*account.Profile, error)
}

type linkGrant struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// LocalAuthority is the in-house Authority: link tokens live in the cache
// and redeemed sessions go to the session Store.
type LocalAuthority struct {
	links      cache.Cache
	sessions   Store
	users      Directory
	clock      clockwork.Clock
	baseURL    string
	sessionTTL time.Duration
	cookie     CookieOptions
}

type AuthorityOptions struct {
	BaseURL    string
	SessionTTL time.Duration
	Cookie     CookieOptions
	Clock      clockwork.Clock
}

func NewLocalAuthority(links cache.Cache, sessions Store, users Directory, opts AuthorityOptions) *LocalAuthority {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	return &LocalAuthority{
		links:      links,
		sessions:   sessions,
		users:      users,
		clock:      opts.Clock,
		baseURL:    opts.BaseURL,
		sessionTTL: opts.SessionTTL,
		cookie:     opts.Cookie,
	}
}

func (a *LocalAuthority) IssueOneTimeLink(ctx context.Context, email string) (string, error) {
	user, err := a.users.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("session: lookup %q: %w", email, err)
	}

	token, err := utils.RandomToken(utils.TokenBytes)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(linkGrant{UserID: user.UserID, Email: user.Email})
	if err != nil {
		return "", err
	}
	if err := a.links.Set(ctx, linkPrefix+token, data, LinkTTL); err != nil {
		return "", fmt.Errorf("session: store link: %w", err)
	}

	q := url.Values{}
	q.Set("token", token)
	q.Set("type", "magiclink")
	return a.baseURL + "/auth/verify?" + q.Encode(), nil
}

func (a *LocalAuthority) Redeem(ctx context.Context, w http.ResponseWriter, token string) error {
	if token == "" {
		return ErrInvalidLink
	}

	data, err := a.links.Take(ctx, linkPrefix+token)
	if errors.Is(err, cache.ErrNotFound) {
		return ErrInvalidLink
	}
	if err != nil {
		return fmt.Errorf("session: take link: %w", err)
	}

	var grant linkGrant
	if err := json.Unmarshal(data, &grant); err != nil {
		return fmt.Errorf("session: decode link: %w", err)
	}

	sid, err := GenerateID()
	if err != nil {
		return err
	}

	now := a.clock.Now()
	sess := Session{
		SessionID: sid,
		UserID:    grant.UserID,
		Email:     grant.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(a.sessionTTL),
	}
	if err := a.sessions.Create(ctx, sess); err != nil {
		return fmt.Errorf("session: persist: %w", err)
	}

	SetCookie(w, sid, sess.ExpiresAt, a.cookie)
	return nil
}
