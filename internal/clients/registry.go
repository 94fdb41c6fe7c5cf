package clients

import (
	"go.uber.org/zap"

	"github.com/mikelady/socialconnect/internal/config"
	"github.com/mikelady/socialconnect/internal/services"
)

// NewRegistry builds every adapter from configuration. All platforms are
// registered; one without client credentials can still publish and sync
// existing connections but refuses to start an OAuth flow.
func NewRegistry(providers config.ProvidersConfig, callbackURL string, logger *zap.Logger) services.ProviderRegistry {
	build := func(platform string) ProviderConfig {
		pc, _ := providers.Platform(platform)
		return ProviderConfig{
			ClientID:     pc.ClientID,
			ClientSecret: pc.ClientSecret,
			RedirectURL:  callbackURL,
			Scopes:       pc.Scopes,
			APIBaseURL:   pc.APIBaseURL,
			Timeout:      providers.HTTPTimeout.Duration,
			RateLimit: RateLimitConfig{
				RequestsPerSecond: pc.RequestsPerSecond,
				BurstSize:         pc.Burst,
			},
			Logger: logger,
		}
	}

	return services.NewProviderRegistry(
		NewFacebookProvider(build(services.PlatformFacebook)),
		NewInstagramProvider(build(services.PlatformInstagram)),
		NewLinkedInProvider(build(services.PlatformLinkedIn)),
	)
}
