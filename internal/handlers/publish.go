package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mikelady/socialconnect/internal/auth"
	"github.com/mikelady/socialconnect/internal/services"
)

// PublishRequest is the body of POST /social/publish
type PublishRequest struct {
	Platform string `json:"platform" binding:"required"`
	Content  string `json:"content"`
	ImageURL string `json:"imageUrl"`
}

// PublishResponse is returned when a post goes live
type PublishResponse struct {
	Success bool   `json:"success"`
	PostID  string `json:"postId"`
	URL     string `json:"url"`
}

// PublishHandler publishes content through a stored connection
type PublishHandler struct {
	service services.PublishService
}

// NewPublishHandler creates a new publish handler
func NewPublishHandler(service services.PublishService) *PublishHandler {
	return &PublishHandler{service: service}
}

// Publish handles POST /social/publish
func (h *PublishHandler) Publish(c *gin.Context) {
	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := h.service.Publish(c.Request.Context(), auth.UserID(c), req.Platform, services.PostContent{
		Text:     req.Content,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, PublishResponse{Success: true, PostID: result.PostID, URL: result.URL})
}
