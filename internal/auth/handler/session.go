package handler

import (
	"net/http"

	"eid-auth-service/internal/logger"
	"eid-auth-service/internal/middleware"
	"eid-auth-service/internal/session"

	"github.com/gin-gonic/gin"
)

// verify redeems a one-time link delivered outside the callback flow.
func (h *Handler) verify(c *gin.Context) {
	if err := h.authority.Redeem(c.Request.Context(), c.Writer, c.Query("token")); err != nil {
		h.fail(c, "one-time link rejected", err)
		return
	}
	c.Redirect(http.StatusFound, h.landingPath)
}

func (h *Handler) Logout(c *gin.Context) {
	cookie, err := c.Request.Cookie(h.cookie.Name())
	if err == nil && cookie.Value != "" {
		// best-effort
		_ = h.sessions.Delete(c.Request.Context(), cookie.Value)
		logger.Info("logout", map[string]any{
			"ip": c.ClientIP(),
		})
	}

	session.ClearCookie(c.Writer, h.cookie)

	c.Status(http.StatusNoContent)
}

// Me returns the profile of the signed-in account. It must run behind
// middleware.GinRequireAuth.
func (h *Handler) Me(c *gin.Context) {
	email, ok := middleware.EmailFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	p, err := h.accounts.FindByEmail(c.Request.Context(), email)
	if err != nil {
		logger.Error("profile lookup failed", map[string]any{
			"error": err,
		})
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}

	c.JSON(http.StatusOK, p)
}
