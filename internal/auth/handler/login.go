package handler

import (
	"net/http"

	"eid-auth-service/internal/auth/handshake"
	"eid-auth-service/internal/logger"
	"eid-auth-service/internal/utils"

	"github.com/gin-gonic/gin"
)

// login starts the broker handshake: fresh state and nonce are stored for
// the callback and the browser is sent to the authorize endpoint.
func (h *Handler) login(c *gin.Context) {
	state, err := utils.RandomToken(utils.TokenBytes)
	if err != nil {
		h.initiateFailed(c, err)
		return
	}
	nonce, err := utils.RandomToken(utils.TokenBytes)
	if err != nil {
		h.initiateFailed(c, err)
		return
	}

	hc := handshake.New(state, nonce, h.clock.Now())
	if err := h.handshakes.Save(c.Request.Context(), c.Writer, c.Request, hc); err != nil {
		h.initiateFailed(c, err)
		return
	}

	h.metrics.LoginInitiated()
	c.Redirect(http.StatusFound, h.broker.AuthCodeURL(state, nonce))
}

func (h *Handler) initiateFailed(c *gin.Context, err error) {
	logger.Error("failed to initiate eid login", map[string]any{
		"error": err,
	})
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "failed to initiate login",
	})
}
