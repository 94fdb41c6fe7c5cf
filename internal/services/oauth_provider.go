package services

import (
	"context"
	"time"
)

// =============================================================================
// Provider adapter interfaces
// One implementation per platform lives in internal/clients.
// =============================================================================

// OAuthTokens contains tokens returned from an OAuth exchange or refresh
type OAuthTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	Scopes       string
}

// Identity is the provider-side entity a publish call targets.
type Identity struct {
	ID       string
	Name     string
	Username string
	Picture  string
	Token    string // credential that publishes as this identity
	IsPage   bool
}

// Profile is display metadata refreshed by a profile sync.
type Profile struct {
	AccountID      string
	Name           string
	Username       string
	Picture        string
	FollowersCount int64
	FollowingCount int64
	PostsCount     int64
	Verified       bool
}

// OAuthProvider defines platform-specific authorization operations
type OAuthProvider interface {
	// OAuthEnabled reports whether client credentials are configured.
	OAuthEnabled() bool

	// Scopes returns the scopes requested at authorization.
	Scopes() []string

	// AuthCodeURL builds the provider authorization URL carrying state.
	AuthCodeURL(state string) string

	// Exchange trades an authorization code for tokens.
	Exchange(ctx context.Context, code string) (*OAuthTokens, error)

	// RefreshToken obtains a fresh user token for conn.
	RefreshToken(ctx context.Context, conn *Connection) (*OAuthTokens, error)
}

// IdentityProvider resolves publishable identities and profile metadata.
type IdentityProvider interface {
	// ResolveIdentity picks the identity to publish as for a fresh user
	// token. preferredAccountID is the previously stored account, if any.
	ResolveIdentity(ctx context.Context, userToken, preferredAccountID string) (*Identity, error)

	// FetchProfile re-reads display metadata for conn's stored identity.
	FetchProfile(ctx context.Context, conn *Connection) (*Profile, error)
}

// Provider is the full adapter for one platform.
type Provider interface {
	Platform() string
	OAuthProvider
	IdentityProvider
	Publisher
}

// ProviderRegistry looks up adapters by platform.
type ProviderRegistry map[string]Provider

// NewProviderRegistry indexes providers by their platform.
func NewProviderRegistry(providers ...Provider) ProviderRegistry {
	r := make(ProviderRegistry, len(providers))
	for _, p := range providers {
		r[p.Platform()] = p
	}
	return r
}

// Get returns the adapter for platform.
// Returns a KindUnsupportedPlatform error for unknown platforms.
func (r ProviderRegistry) Get(platform string) (Provider, error) {
	if err := ValidatePlatform(platform); err != nil {
		return nil, &ServiceError{
			Kind:     KindUnsupportedPlatform,
			Platform: platform,
			Message:  "unsupported platform",
			Help:     HelpFor(KindUnsupportedPlatform),
			Err:      err,
		}
	}
	p, ok := r[platform]
	if !ok {
		return nil, &ServiceError{
			Kind:     KindUnsupportedPlatform,
			Platform: platform,
			Message:  "platform is not configured",
			Help:     HelpFor(KindUnsupportedPlatform),
		}
	}
	return p, nil
}
