package services

import (
	"context"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// OAuth Flow Controller
// start -> provider consent -> callback -> exchange -> resolve -> upsert
// =============================================================================

// DefaultLandingURL is where the browser is sent after a callback.
const DefaultLandingURL = "http://localhost:3000/oauth/callback"

// OAuthStart is returned when a flow begins.
type OAuthStart struct {
	AuthURL   string    `json:"authUrl"`
	State     string    `json:"state"`
	ExpiresAt time.Time `json:"expiresAt"`
	Scopes    []string  `json:"scopes"`
}

// CallbackParams are the query parameters of the provider redirect.
type CallbackParams struct {
	Code  string
	State string
	Error string
}

// OAuthFlow starts authorization and completes provider callbacks.
type OAuthFlow interface {
	StartOAuthFlow(ctx context.Context, userID, platform string) (*OAuthStart, error)
	HandleCallback(ctx context.Context, params CallbackParams) string
}

// OAuthFlowConfig configures OAuthFlowController
type OAuthFlowConfig struct {
	Providers  ProviderRegistry
	Store      ConnectionStore
	Resolver   *AccountResolver
	States     *StateCodec
	Nonces     NonceStore // optional single-use enforcement
	LandingURL string
	Logger     *zap.Logger
	Metrics    MetricsRecorder
}

// OAuthFlowController implements OAuthFlow.
type OAuthFlowController struct {
	providers  ProviderRegistry
	store      ConnectionStore
	resolver   *AccountResolver
	states     *StateCodec
	nonces     NonceStore
	landingURL string
	logger     *zap.Logger
	metrics    MetricsRecorder
	now        func() time.Time
}

// Compile-time interface compliance check
var _ OAuthFlow = (*OAuthFlowController)(nil)

// NewOAuthFlowController creates a controller from cfg.
func NewOAuthFlowController(cfg OAuthFlowConfig) *OAuthFlowController {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var metrics MetricsRecorder = noopMetrics{}
	if cfg.Metrics != nil {
		metrics = cfg.Metrics
	}
	landing := cfg.LandingURL
	if landing == "" {
		landing = DefaultLandingURL
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = NewAccountResolver(cfg.Providers, nil, logger)
	}

	return &OAuthFlowController{
		providers:  cfg.Providers,
		store:      cfg.Store,
		resolver:   resolver,
		states:     cfg.States,
		nonces:     cfg.Nonces,
		landingURL: landing,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
	}
}

// StartOAuthFlow returns the provider authorization URL for userID.
// Fails with KindUnsupportedPlatform, without any network call, when the
// platform has no client credentials configured.
func (c *OAuthFlowController) StartOAuthFlow(ctx context.Context, userID, platform string) (*OAuthStart, error) {
	provider, err := c.providers.Get(platform)
	if err != nil {
		return nil, err
	}
	if !provider.OAuthEnabled() {
		return nil, &ServiceError{
			Kind:     KindUnsupportedPlatform,
			Platform: platform,
			Message:  "OAuth client credentials are not configured",
			Help:     HelpFor(KindUnsupportedPlatform),
		}
	}

	state, err := c.states.Encode(userID, platform)
	if err != nil {
		return nil, WrapError(KindInternal, err)
	}

	c.logger.Debug("oauth flow started",
		zap.String("user_id", userID),
		zap.String("platform", platform),
	)

	return &OAuthStart{
		AuthURL:   provider.AuthCodeURL(state),
		State:     state,
		ExpiresAt: c.now().Add(c.states.TTL()),
		Scopes:    provider.Scopes(),
	}, nil
}

// HandleCallback completes the flow and returns the redirect target. It never
// fails: every error becomes an error query parameter on the landing URL.
func (c *OAuthFlowController) HandleCallback(ctx context.Context, params CallbackParams) string {
	if params.Error != "" {
		c.logger.Info("oauth provider returned error", zap.String("error", params.Error))
		c.metrics.RecordOAuthCallback(ctx, "unknown", OutcomeFailure, "")
		return c.redirect("error", params.Error)
	}

	claims, err := c.states.Decode(params.State)
	if err != nil {
		return c.fail(ctx, "unknown", err)
	}

	if c.nonces != nil {
		fresh, err := c.nonces.Consume(ctx, claims.Signature, c.states.TTL())
		if err != nil {
			return c.fail(ctx, claims.Platform, WrapError(KindInternal, err))
		}
		if !fresh {
			return c.fail(ctx, claims.Platform, NewError(KindInvalidState, "state already used"))
		}
	}

	conn, err := c.complete(ctx, claims, params.Code)
	if err != nil {
		return c.fail(ctx, claims.Platform, err)
	}

	c.logger.Info("connection established", zap.Object("connection", conn))
	c.metrics.RecordOAuthCallback(ctx, claims.Platform, OutcomeSuccess, "")
	return c.redirect("connected", claims.Platform)
}

func (c *OAuthFlowController) complete(ctx context.Context, claims *StateClaims, code string) (*Connection, error) {
	provider, err := c.providers.Get(claims.Platform)
	if err != nil {
		return nil, err
	}
	if code == "" {
		return nil, NewError(KindTokenExchangeFailed, "callback carried no authorization code")
	}

	tokens, err := provider.Exchange(ctx, code)
	if err != nil {
		return nil, &ServiceError{
			Kind:     KindTokenExchangeFailed,
			Platform: claims.Platform,
			Message:  "code exchange rejected",
			Help:     HelpFor(KindTokenExchangeFailed),
			Err:      err,
		}
	}
	if tokens == nil || tokens.AccessToken == "" {
		return nil, NewError(KindTokenExchangeFailed, "provider returned no access token")
	}

	existing, err := c.store.Get(ctx, claims.UserID, claims.Platform)
	if err != nil && !isNotFound(err) {
		return nil, WrapError(KindInternal, err)
	}
	preferred := ""
	if existing != nil {
		preferred = existing.AccountID
	}

	identity, err := c.resolver.Resolve(ctx, claims.Platform, tokens.AccessToken, preferred)
	if err != nil {
		return nil, err
	}

	conn := existing
	if conn == nil {
		conn = &Connection{UserID: claims.UserID, Platform: claims.Platform}
	}
	conn.AccessToken = tokens.AccessToken
	conn.RefreshToken = tokens.RefreshToken
	conn.ExpiresAt = tokens.ExpiresAt
	conn.Scopes = tokens.Scopes
	conn.IsActive = true
	ApplyIdentity(conn, identity)

	saved, err := c.store.Upsert(ctx, conn)
	if err != nil {
		return nil, WrapError(KindInternal, err)
	}
	return saved, nil
}

func (c *OAuthFlowController) fail(ctx context.Context, platform string, err error) string {
	se := AsServiceError(err)
	c.logger.Warn("oauth callback failed",
		zap.String("platform", platform),
		zap.String("kind", string(se.Kind)),
		zap.Error(err),
	)
	c.metrics.RecordOAuthCallback(ctx, platform, OutcomeFailure, se.Kind)
	return c.redirect("error", string(se.Kind))
}

func (c *OAuthFlowController) redirect(key, value string) string {
	u, err := url.Parse(c.landingURL)
	if err != nil {
		return DefaultLandingURL + "?" + url.Values{key: {value}}.Encode()
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
