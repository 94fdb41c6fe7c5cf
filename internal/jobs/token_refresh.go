// Package jobs provides background job implementations for socialconnect.
package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mikelady/socialconnect/internal/services"
)

// =============================================================================
// Token Refresh Job
// Renews provider credentials before they expire
// =============================================================================

// DefaultRefreshWindow is how far ahead of expiry a token is renewed
const DefaultRefreshWindow = 7 * 24 * time.Hour

// RefreshStore defines the credential store operations the job needs
type RefreshStore interface {
	// ListExpiring returns active connections whose token expires within the window
	ListExpiring(ctx context.Context, within time.Duration) ([]*services.Connection, error)

	// Upsert persists the renewed credentials
	Upsert(ctx context.Context, conn *services.Connection) (*services.Connection, error)
}

// TokenRefreshConfig configures the refresh job
type TokenRefreshConfig struct {
	// Window is how far in advance of expiry to refresh. Default: 7 days
	Window time.Duration

	Logger *zap.Logger
}

// RefreshResult contains the results of a refresh run
type RefreshResult struct {
	Checked   int
	Refreshed int
	Failed    int

	// Errors holds one entry per connection that could not be renewed
	Errors []error

	Duration time.Duration
}

// TokenRefreshJob renews expiring connections through their provider adapter
type TokenRefreshJob struct {
	store      RefreshStore
	providers  services.ProviderRegistry
	translator *services.ErrorTranslator
	window     time.Duration
	logger     *zap.Logger
}

// NewTokenRefreshJob creates a new refresh job
func NewTokenRefreshJob(store RefreshStore, providers services.ProviderRegistry, translator *services.ErrorTranslator, cfg TokenRefreshConfig) *TokenRefreshJob {
	if cfg.Window <= 0 {
		cfg.Window = DefaultRefreshWindow
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if translator == nil {
		translator = services.NewErrorTranslator(nil)
	}

	return &TokenRefreshJob{
		store:      store,
		providers:  providers,
		translator: translator,
		window:     cfg.Window,
		logger:     cfg.Logger,
	}
}

// Run refreshes every connection expiring within the window. A failure on one
// connection is recorded and the run continues; only a failure to list
// connections aborts it.
func (j *TokenRefreshJob) Run(ctx context.Context) (*RefreshResult, error) {
	start := time.Now()
	result := &RefreshResult{}

	expiring, err := j.store.ListExpiring(ctx, j.window)
	if err != nil {
		return nil, fmt.Errorf("listing expiring connections: %w", err)
	}

	for _, conn := range expiring {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Checked++

		if err := j.refresh(ctx, conn); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Errorf("refreshing user=%s platform=%s: %w", conn.UserID, conn.Platform, err))
			continue
		}
		result.Refreshed++
	}

	result.Duration = time.Since(start)
	j.logger.Info("token refresh completed",
		zap.Int("checked", result.Checked),
		zap.Int("refreshed", result.Refreshed),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration),
	)

	return result, nil
}

func (j *TokenRefreshJob) refresh(ctx context.Context, conn *services.Connection) error {
	provider, err := j.providers.Get(conn.Platform)
	if err != nil {
		return err
	}

	tokens, err := provider.RefreshToken(ctx, conn)
	if err != nil {
		se := j.translator.Translate(conn.Platform, err)
		j.logger.Warn("token refresh failed",
			zap.Object("connection", conn),
			zap.String("error_kind", string(se.Kind)),
			zap.Error(err),
		)
		return se
	}

	applyTokens(conn, tokens)
	if _, err := j.store.Upsert(ctx, conn); err != nil {
		j.logger.Error("saving refreshed token failed", zap.Object("connection", conn), zap.Error(err))
		return err
	}

	j.logger.Info("token refreshed", zap.Object("connection", conn))
	return nil
}

// applyTokens copies renewed credentials onto conn. Empty refresh token and
// scope values keep what was stored.
func applyTokens(conn *services.Connection, tokens *services.OAuthTokens) {
	conn.AccessToken = tokens.AccessToken
	conn.ExpiresAt = tokens.ExpiresAt
	if tokens.RefreshToken != "" {
		conn.RefreshToken = tokens.RefreshToken
	}
	if tokens.Scopes != "" {
		conn.Scopes = tokens.Scopes
	}
}
