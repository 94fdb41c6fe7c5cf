package services

import (
	"context"
	"errors"
	"time"
)

// =============================================================================
// Connection Credential Store
// =============================================================================

// Platform identifiers
const (
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
	PlatformLinkedIn  = "linkedin"
)

// PersonalAccountID is the Graph API alias for the token owner's own profile.
const PersonalAccountID = "me"

// Error definitions for credential management
var (
	ErrConnectionNotFound = errors.New("connection not found")
	ErrInvalidPlatform    = errors.New("invalid platform")
	ErrMissingAccessToken = errors.New("access token is required")
	ErrMissingAccountID   = errors.New("account id is required")
	ErrEncryptionFailed   = errors.New("encryption failed")
	ErrDecryptionFailed   = errors.New("decryption failed")
)

// SupportedPlatforms lists all platforms a connection can be made to
var SupportedPlatforms = map[string]bool{
	PlatformFacebook:  true,
	PlatformInstagram: true,
	PlatformLinkedIn:  true,
}

// ConnectionStore persists one connection record per (user, platform).
// Implementations must never hold more than one active record for a pair.
type ConnectionStore interface {
	// Upsert overwrites the active record for (conn.UserID, conn.Platform) in
	// place, or inserts a new active record when none exists.
	Upsert(ctx context.Context, conn *Connection) (*Connection, error)

	// Deactivate soft-deletes the active record.
	// Returns ErrConnectionNotFound if no active record exists.
	Deactivate(ctx context.Context, userID, platform string) error

	// Get returns the active record or ErrConnectionNotFound.
	Get(ctx context.Context, userID, platform string) (*Connection, error)

	// ListActive returns all active records for a user across platforms.
	ListActive(ctx context.Context, userID string) ([]*Connection, error)

	// ListExpiring returns active records whose token expires within the window.
	// Used by the token refresh job.
	ListExpiring(ctx context.Context, within time.Duration) ([]*Connection, error)
}

// ValidatePlatform checks if a platform string is valid
func ValidatePlatform(platform string) error {
	if !SupportedPlatforms[platform] {
		return ErrInvalidPlatform
	}
	return nil
}
