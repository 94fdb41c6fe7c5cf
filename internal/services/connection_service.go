package services

import (
	"context"
	"time"

	"go.uber.org/zap/zapcore"
)

// =============================================================================
// Connection model and ConnectionService interface
// =============================================================================

// Connection binds one end user to one platform's resolved publishable
// identity. Token fields never leave the store boundary in JSON or logs.
type Connection struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Platform string `json:"platform"`

	// AccountID is a page id, an Instagram business account id, a LinkedIn
	// member id, or PersonalAccountID.
	AccountID      string `json:"account_id"`
	AccountName    string `json:"account_name"`
	Username       string `json:"username,omitempty"`
	ProfilePicture string `json:"profile_picture,omitempty"`
	FollowersCount int64  `json:"followers_count"`
	FollowingCount int64  `json:"following_count"`
	PostsCount     int64  `json:"posts_count"`
	Verified       bool   `json:"verified"`

	AccessToken     string     `json:"-"` // user-level token
	RefreshToken    string     `json:"-"`
	PageAccessToken string     `json:"-"` // token of the resolved page, if any
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	Scopes          string     `json:"scopes,omitempty"`

	IsActive   bool       `json:"is_active"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsExpired returns true if the access token has expired
func (c *Connection) IsExpired() bool {
	if c.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*c.ExpiresAt)
}

// ExpiresWithin returns true if the token expires within the given duration
func (c *Connection) ExpiresWithin(d time.Duration) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return time.Now().Add(d).After(*c.ExpiresAt)
}

// HasPageIdentity reports whether the stored identity is a resolved page
// rather than the personal profile.
func (c *Connection) HasPageIdentity() bool {
	return c.AccountID != "" && c.AccountID != PersonalAccountID && c.PageAccessToken != ""
}

// MarshalLogObject lets zap log a connection without its credential material.
func (c *Connection) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("id", c.ID)
	enc.AddString("user_id", c.UserID)
	enc.AddString("platform", c.Platform)
	enc.AddString("account_id", c.AccountID)
	enc.AddBool("is_active", c.IsActive)
	if c.ExpiresAt != nil {
		enc.AddTime("expires_at", *c.ExpiresAt)
	}
	return nil
}

// ManualConnectRequest is the back-door connection path that bypasses OAuth.
type ManualConnectRequest struct {
	Platform     string     `json:"platform" binding:"required"`
	AccountID    string     `json:"accountId" binding:"required"`
	AccountName  string     `json:"accountName"`
	AccessToken  string     `json:"accessToken" binding:"required"`
	RefreshToken string     `json:"refreshToken"`
	ExpiresAt    *time.Time `json:"expiresAt"`
}

// ConnectionService manages the lifecycle of stored connections
type ConnectionService interface {
	// Connect stores a connection supplied directly by the caller.
	// Uses the same upsert semantics as the OAuth callback.
	Connect(ctx context.Context, userID string, req ManualConnectRequest) (*Connection, error)

	// Disconnect deactivates the active connection.
	// Returns an error of KindNotFound if none is active.
	Disconnect(ctx context.Context, userID, platform string) error

	// Sync re-fetches display metadata from the provider.
	Sync(ctx context.Context, userID, platform string) (*Connection, error)

	// List returns the user's active connections.
	List(ctx context.Context, userID string) ([]*Connection, error)
}
