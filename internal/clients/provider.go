package clients

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/mikelady/socialconnect/internal/services"
)

const (
	// DefaultHTTPTimeout bounds every outbound provider call
	DefaultHTTPTimeout = 15 * time.Second

	// maxResponseBytes caps how much of a provider response is read
	maxResponseBytes = 1 << 20
)

// ProviderConfig configures one provider adapter
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// APIBaseURL, AuthURL and TokenURL override the production endpoints.
	APIBaseURL string
	AuthURL    string
	TokenURL   string

	Timeout    time.Duration
	RateLimit  RateLimitConfig
	HTTPClient *http.Client
	Logger     *zap.Logger
}

func (c ProviderConfig) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}

func (c ProviderConfig) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// oauthClient holds the authorization-code half every adapter shares
type oauthClient struct {
	platform   string
	config     *oauth2.Config
	httpClient *http.Client
	limiter    *RateLimiter
	logger     *zap.Logger
}

func newOAuthClient(platform string, cfg ProviderConfig, endpoint oauth2.Endpoint) *oauthClient {
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	return &oauthClient{
		platform: platform,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       append([]string(nil), cfg.Scopes...),
			Endpoint:     endpoint,
		},
		httpClient: cfg.httpClient(),
		limiter:    NewRateLimiter(platform, cfg.RateLimit),
		logger:     cfg.logger().With(zap.String("platform", platform)),
	}
}

// OAuthEnabled reports whether client credentials are configured
func (c *oauthClient) OAuthEnabled() bool {
	return c.config.ClientID != "" && c.config.ClientSecret != ""
}

// Scopes returns the scopes requested at authorization
func (c *oauthClient) Scopes() []string {
	return append([]string(nil), c.config.Scopes...)
}

// AuthCodeURL builds the provider authorization URL. No network call is made.
func (c *oauthClient) AuthCodeURL(state string) string {
	return c.config.AuthCodeURL(state)
}

// withClient routes oauth2 token calls through the adapter's HTTP client
func (c *oauthClient) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func (c *oauthClient) exchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, transportFailure(c.platform, "token exchange", err)
	}
	tok, err := c.config.Exchange(c.withClient(ctx), code)
	if err != nil {
		return nil, oauthFailure(c.platform, "token exchange", err)
	}
	return tok, nil
}

// tokensFrom converts an oauth2 token to the service representation
func tokensFrom(tok *oauth2.Token) *services.OAuthTokens {
	out := &services.OAuthTokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry
		out.ExpiresAt = &exp
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		out.Scopes = scope
	}
	return out
}

// =============================================================================
// Provider failures
// =============================================================================

// transportFailure describes a call that produced no provider response
func transportFailure(platform, op string, err error) *services.ProviderFailure {
	return &services.ProviderFailure{Platform: platform, Operation: op, Message: err.Error(), Err: err}
}

// oauthFailure keeps the token endpoint's status and error payload
func oauthFailure(platform, op string, err error) *services.ProviderFailure {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return transportFailure(platform, op, err)
	}

	f := &services.ProviderFailure{
		Platform:  platform,
		Operation: op,
		Message:   re.ErrorDescription,
		Body:      string(re.Body),
		Err:       err,
	}
	if f.Message == "" {
		f.Message = re.ErrorCode
	}
	if re.Response != nil {
		f.StatusCode = re.Response.StatusCode
	}

	// Graph reports token endpoint errors in its own envelope.
	if ge := decodeGraphError(re.Body); ge != nil {
		applyGraphError(f, ge)
	}
	if f.Message == "" {
		f.Message = http.StatusText(f.StatusCode)
	}
	return f
}

func itoaNonZero(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func decodeJSON(body []byte, out any) error {
	if out == nil || len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}
