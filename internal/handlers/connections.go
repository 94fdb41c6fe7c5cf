package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mikelady/socialconnect/internal/auth"
	"github.com/mikelady/socialconnect/internal/services"
)

// expiresSoonWindow flags connections the refresh job should pick up next
const expiresSoonWindow = 7 * 24 * time.Hour

// ConnectionHandler handles connection management endpoints
type ConnectionHandler struct {
	service services.ConnectionService
}

// NewConnectionHandler creates a new connection handler
func NewConnectionHandler(service services.ConnectionService) *ConnectionHandler {
	return &ConnectionHandler{service: service}
}

// =============================================================================
// Response Types
// =============================================================================

// ConnectionResponse is the public view of a connection. It never carries tokens.
type ConnectionResponse struct {
	ID             string     `json:"id"`
	Platform       string     `json:"platform"`
	AccountID      string     `json:"accountId"`
	AccountName    string     `json:"accountName"`
	Username       string     `json:"username,omitempty"`
	ProfilePicture string     `json:"profilePicture,omitempty"`
	FollowersCount int64      `json:"followersCount"`
	FollowingCount int64      `json:"followingCount"`
	PostsCount     int64      `json:"postsCount"`
	Verified       bool       `json:"verified"`
	IsPage         bool       `json:"isPage"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	ExpiresSoon    bool       `json:"expiresSoon"`
	LastSyncAt     *time.Time `json:"lastSyncAt,omitempty"`
	ConnectedAt    time.Time  `json:"connectedAt"`
}

// ConnectionListResponse wraps the list connections response
type ConnectionListResponse struct {
	Connections []ConnectionResponse `json:"connections"`
}

func toConnectionResponse(conn *services.Connection) ConnectionResponse {
	return ConnectionResponse{
		ID:             conn.ID,
		Platform:       conn.Platform,
		AccountID:      conn.AccountID,
		AccountName:    conn.AccountName,
		Username:       conn.Username,
		ProfilePicture: conn.ProfilePicture,
		FollowersCount: conn.FollowersCount,
		FollowingCount: conn.FollowingCount,
		PostsCount:     conn.PostsCount,
		Verified:       conn.Verified,
		IsPage:         conn.HasPageIdentity(),
		ExpiresAt:      conn.ExpiresAt,
		ExpiresSoon:    conn.ExpiresWithin(expiresSoonWindow),
		LastSyncAt:     conn.LastSyncAt,
		ConnectedAt:    conn.CreatedAt,
	}
}

// =============================================================================
// HTTP Handlers
// =============================================================================

// Connect handles POST /social/connect
func (h *ConnectionHandler) Connect(c *gin.Context) {
	var req services.ManualConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	conn, err := h.service.Connect(c.Request.Context(), auth.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toConnectionResponse(conn))
}

// List handles GET /social/connections
func (h *ConnectionHandler) List(c *gin.Context) {
	conns, err := h.service.List(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := ConnectionListResponse{Connections: make([]ConnectionResponse, 0, len(conns))}
	for _, conn := range conns {
		resp.Connections = append(resp.Connections, toConnectionResponse(conn))
	}
	c.JSON(http.StatusOK, resp)
}

// Disconnect handles DELETE /social/:platform
func (h *ConnectionHandler) Disconnect(c *gin.Context) {
	if err := h.service.Disconnect(c.Request.Context(), auth.UserID(c), c.Param("platform")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Sync handles POST /social/:platform/sync
func (h *ConnectionHandler) Sync(c *gin.Context) {
	conn, err := h.service.Sync(c.Request.Context(), auth.UserID(c), c.Param("platform"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toConnectionResponse(conn))
}
