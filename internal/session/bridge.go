package session

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"eid-auth-service/internal/auth"
)

// Bridge turns a resolved account into an authenticated browser session
// by issuing a one-time link and redeeming it server-side.
type Bridge struct {
	authority Authority
}

func NewBridge(authority Authority) *Bridge {
	return &Bridge{authority: authority}
}

// Activate sets the session cookie on w for email. Any failure leaves w
// without a session cookie and is reported as ErrSessionIssuance.
func (b *Bridge) Activate(ctx context.Context, w http.ResponseWriter, email string) error {
	link, err := b.authority.IssueOneTimeLink(ctx, email)
	if err != nil {
		return fmt.Errorf("%w: issue link: %v", auth.ErrSessionIssuance, err)
	}

	u, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("%w: parse link: %v", auth.ErrSessionIssuance, err)
	}
	token := u.Query().Get("token")
	if token == "" {
		return fmt.Errorf("%w: link carries no token", auth.ErrSessionIssuance)
	}

	if err := b.authority.Redeem(ctx, w, token); err != nil {
		return fmt.Errorf("%w: redeem link: %v", auth.ErrSessionIssuance, err)
	}
	return nil
}
