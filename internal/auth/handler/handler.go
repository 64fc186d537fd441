package handler

import (
	"context"
	"net/http"
	"net/url"

	"eid-auth-service/internal/account"
	"eid-auth-service/internal/auth/handshake"
	"eid-auth-service/internal/auth/provider"
	"eid-auth-service/internal/auth/resolver"
	"eid-auth-service/internal/logger"
	"eid-auth-service/internal/metrics"
	"eid-auth-service/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
)

// FailureCode is the only error code shown to the browser for internal
// failures.
const FailureCode = "authentication_failed"

// SessionBridge activates a browser session for a resolved account.
type SessionBridge interface {
	Activate(ctx context.Context, w http.ResponseWriter, email string) error
}

type Deps struct {
	Broker     provider.Broker
	Handshakes handshake.Store
	Resolver   resolver.Resolver
	Bridge     SessionBridge
	Authority  session.Authority
	Sessions   session.Store
	Accounts   account.Store
	Metrics    *metrics.Metrics
	Clock      clockwork.Clock

	Cookie      session.CookieOptions
	LoginPath   string
	LandingPath string
}

type Handler struct {
	broker     provider.Broker
	handshakes handshake.Store
	resolver   resolver.Resolver
	bridge     SessionBridge
	authority  session.Authority
	sessions   session.Store
	accounts   account.Store
	metrics    *metrics.Metrics
	clock      clockwork.Clock

	cookie      session.CookieOptions
	loginPath   string
	landingPath string
}

func NewHandler(d Deps) *Handler {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.LoginPath == "" {
		d.LoginPath = "/login"
	}
	if d.LandingPath == "" {
		d.LandingPath = "/dashboard"
	}
	return &Handler{
		broker:      d.Broker,
		handshakes:  d.Handshakes,
		resolver:    d.Resolver,
		bridge:      d.Bridge,
		authority:   d.Authority,
		sessions:    d.Sessions,
		accounts:    d.Accounts,
		metrics:     d.Metrics,
		clock:       d.Clock,
		cookie:      d.Cookie,
		loginPath:   d.LoginPath,
		landingPath: d.LandingPath,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/auth/login", h.login)
	r.GET("/auth/callback", h.callback)
	r.GET("/auth/verify", h.verify)
	r.POST("/auth/logout", h.Logout)
}

// loginURL is the login page carrying an error code.
func (h *Handler) loginURL(code string) string {
	return h.loginPath + "?error=" + url.QueryEscape(code)
}

func (h *Handler) fail(c *gin.Context, msg string, err error) {
	logger.Error(msg, map[string]any{
		"error": err,
		"ip":    c.ClientIP(),
	})
	c.Redirect(http.StatusFound, h.loginURL(FailureCode))
}
