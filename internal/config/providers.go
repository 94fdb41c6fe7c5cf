package config

import (
	"fmt"
	"strings"
)

// Default scopes requested at authorization, per platform.
var defaultScopes = map[string][]string{
	"facebook":  {"public_profile"},
	"instagram": {"instagram_basic", "instagram_content_publish", "pages_show_list"},
	"linkedin":  {"r_liteprofile", "w_member_social"},
}

// ProvidersConfig holds client credentials for every supported platform
type ProvidersConfig struct {
	Facebook  PlatformConfig `env:",prefix=FACEBOOK_"`
	Instagram PlatformConfig `env:",prefix=INSTAGRAM_"`
	LinkedIn  PlatformConfig `env:",prefix=LINKEDIN_"`

	// HTTPTimeout bounds every outbound provider call.
	HTTPTimeout Duration `env:"PROVIDER_HTTP_TIMEOUT,default=15s"`
}

// PlatformConfig holds OAuth client credentials and API tuning for one platform.
// A platform is enabled only when both client ID and secret are present.
type PlatformConfig struct {
	ClientID     string   `env:"CLIENT_ID"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	Scopes       []string `env:"SCOPES"`
	APIBaseURL   string   `env:"API_BASE_URL"`

	// Outbound token bucket; zero values fall back to the client defaults.
	RequestsPerSecond float64 `env:"REQUESTS_PER_SECOND"`
	Burst             int     `env:"BURST"`
}

// Enabled reports whether client credentials are configured
func (c PlatformConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Validate checks a partially configured platform
func (c PlatformConfig) Validate() error {
	if c.ClientID == "" && c.ClientSecret == "" {
		return nil
	}
	if c.ClientID == "" {
		return fmt.Errorf("client ID is required when a client secret is set")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("client secret is required when a client ID is set")
	}
	return nil
}

// applyDefaults fills scopes that were not overridden through the environment
func (p *ProvidersConfig) applyDefaults() {
	for platform, cfg := range p.byPlatform() {
		if len(cfg.Scopes) == 0 {
			cfg.Scopes = append([]string(nil), defaultScopes[platform]...)
		}
		for i, s := range cfg.Scopes {
			cfg.Scopes[i] = strings.TrimSpace(s)
		}
	}
}

func (p *ProvidersConfig) byPlatform() map[string]*PlatformConfig {
	return map[string]*PlatformConfig{
		"facebook":  &p.Facebook,
		"instagram": &p.Instagram,
		"linkedin":  &p.LinkedIn,
	}
}

// Platform returns the configuration for a platform name
func (p *ProvidersConfig) Platform(name string) (PlatformConfig, bool) {
	cfg, ok := p.byPlatform()[name]
	if !ok {
		return PlatformConfig{}, false
	}
	return *cfg, true
}

// EnabledPlatforms returns the platforms with client credentials, in a stable order
func (p *ProvidersConfig) EnabledPlatforms() []string {
	var platforms []string
	for _, name := range []string{"facebook", "instagram", "linkedin"} {
		if cfg, _ := p.Platform(name); cfg.Enabled() {
			platforms = append(platforms, name)
		}
	}
	return platforms
}

// Validate checks all platforms
func (p *ProvidersConfig) Validate() error {
	for _, name := range []string{"facebook", "instagram", "linkedin"} {
		cfg, _ := p.Platform(name)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
