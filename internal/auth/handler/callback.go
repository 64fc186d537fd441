package handler

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"

	"eid-auth-service/internal/auth"
	"eid-auth-service/internal/logger"

	"github.com/gin-gonic/gin"
)

// callback finishes the handshake. Every outcome is a redirect: the
// landing page on success, the login page with an error code otherwise.
func (h *Handler) callback(c *gin.Context) {
	err := h.complete(c)
	state := classify(err)
	h.metrics.CallbackOutcome(string(state))

	var denied *auth.BrokerDeniedError
	switch {
	case err == nil:
		c.Redirect(http.StatusFound, h.landingPath)
	case errors.As(err, &denied):
		logger.Warn("broker returned error", map[string]any{
			"error": denied.Code,
			"desc":  denied.Description,
		})
		c.Redirect(http.StatusFound, h.loginURL(denied.Code))
	default:
		logger.Error("eid callback failed", map[string]any{
			"state": string(state),
			"error": err,
			"ip":    c.ClientIP(),
		})
		c.Redirect(http.StatusFound, h.loginURL(FailureCode))
	}
}

// complete runs the callback gates in order. The stored handshake context
// is consumed on every path, so a callback URL can never be replayed.
func (h *Handler) complete(c *gin.Context) error {
	ctx := c.Request.Context()
	q := c.Request.URL.Query()

	if code := q.Get("error"); code != "" {
		_, _ = h.handshakes.Take(ctx, c.Writer, c.Request)
		return &auth.BrokerDeniedError{Code: code, Description: q.Get("error_description")}
	}

	hc, takeErr := h.handshakes.Take(ctx, c.Writer, c.Request)

	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		return errMissingParams
	}

	if takeErr != nil {
		return fmt.Errorf("load handshake: %w", takeErr)
	}
	if hc == nil || hc.Expired(h.clock.Now()) || !equal(hc.State, state) {
		return auth.ErrCSRF
	}

	start := h.clock.Now()
	tokens, err := h.broker.ExchangeCode(ctx, code)
	h.metrics.TokenExchange(h.clock.Since(start), err)
	if err != nil {
		return err
	}

	identity, err := h.broker.ExtractIdentity(ctx, tokens.IDToken)
	if err != nil {
		return err
	}
	if !equal(identity.Nonce, hc.Nonce) {
		return auth.ErrReplay
	}
	if identity.Subject == "" {
		return fmt.Errorf("%w: id_token has no subject", auth.ErrProtocolViolation)
	}

	profile, err := h.resolver.Resolve(ctx, identity)
	if err != nil {
		return err
	}

	if err := h.bridge.Activate(ctx, c.Writer, profile.Email); err != nil {
		return err
	}

	logger.Info("eid login succeeded", map[string]any{
		"user_id": profile.UserID,
		"ip":      c.ClientIP(),
	})
	return nil
}

func equal(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
