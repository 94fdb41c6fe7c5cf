package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mikelady/socialconnect/internal/auth"
	"github.com/mikelady/socialconnect/internal/services"
)

// OAuthHandler serves the authorization start and provider callback routes
type OAuthHandler struct {
	flow services.OAuthFlow
}

// NewOAuthHandler creates a new OAuth handler
func NewOAuthHandler(flow services.OAuthFlow) *OAuthHandler {
	return &OAuthHandler{flow: flow}
}

// Start handles GET /oauth/:platform/start
func (h *OAuthHandler) Start(c *gin.Context) {
	start, err := h.flow.StartOAuthFlow(c.Request.Context(), auth.UserID(c), c.Param("platform"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, start)
}

// Callback handles GET /oauth/callback. It always redirects, even on failure.
func (h *OAuthHandler) Callback(c *gin.Context) {
	target := h.flow.HandleCallback(c.Request.Context(), services.CallbackParams{
		Code:  c.Query("code"),
		State: c.Query("state"),
		Error: c.Query("error"),
	})
	c.Redirect(http.StatusFound, target)
}
