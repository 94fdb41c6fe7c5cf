package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// ConnectionServiceImpl Implementation
// =============================================================================

// ConnectionServiceImpl implements ConnectionService using a ConnectionStore
// and the platform adapters.
type ConnectionServiceImpl struct {
	store    ConnectionStore
	resolver *AccountResolver
	logger   *zap.Logger
	now      func() time.Time
}

// Compile-time interface compliance check
var _ ConnectionService = (*ConnectionServiceImpl)(nil)

// ConnectionServiceConfig configures ConnectionServiceImpl
type ConnectionServiceConfig struct {
	Store    ConnectionStore
	Resolver *AccountResolver
	Logger   *zap.Logger
}

// NewConnectionService creates a new ConnectionService implementation
func NewConnectionService(cfg ConnectionServiceConfig) *ConnectionServiceImpl {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnectionServiceImpl{
		store:    cfg.Store,
		resolver: cfg.Resolver,
		logger:   logger,
		now:      time.Now,
	}
}

// Connect stores a caller-supplied connection. For Facebook and Instagram a
// non-personal account id is a page-scoped identity, so the supplied token is
// also its publishing credential.
func (s *ConnectionServiceImpl) Connect(ctx context.Context, userID string, req ManualConnectRequest) (*Connection, error) {
	if err := ValidatePlatform(req.Platform); err != nil {
		return nil, &ServiceError{
			Kind:     KindUnsupportedPlatform,
			Platform: req.Platform,
			Message:  "unsupported platform",
			Help:     HelpFor(KindUnsupportedPlatform),
			Err:      err,
		}
	}
	if strings.TrimSpace(req.AccessToken) == "" {
		return nil, ErrMissingAccessToken
	}
	if strings.TrimSpace(req.AccountID) == "" {
		return nil, ErrMissingAccountID
	}

	conn, err := s.store.Get(ctx, userID, req.Platform)
	if err != nil {
		if !isNotFound(err) {
			return nil, err
		}
		conn = &Connection{UserID: userID, Platform: req.Platform}
	}

	conn.AccountID = req.AccountID
	conn.AccountName = req.AccountName
	conn.AccessToken = req.AccessToken
	conn.RefreshToken = req.RefreshToken
	conn.ExpiresAt = req.ExpiresAt
	conn.IsActive = true
	conn.PageAccessToken = ""
	if req.Platform != PlatformLinkedIn && req.AccountID != PersonalAccountID {
		conn.PageAccessToken = req.AccessToken
	}

	saved, err := s.store.Upsert(ctx, conn)
	if err != nil {
		return nil, err
	}

	s.logger.Info("connection saved via manual connect", zap.Object("connection", saved))
	return saved, nil
}

// Disconnect deactivates the active connection for platform.
func (s *ConnectionServiceImpl) Disconnect(ctx context.Context, userID, platform string) error {
	if err := ValidatePlatform(platform); err != nil {
		return WrapError(KindUnsupportedPlatform, err)
	}

	if err := s.store.Deactivate(ctx, userID, platform); err != nil {
		if isNotFound(err) {
			return &ServiceError{
				Kind:     KindNotFound,
				Platform: platform,
				Message:  "no active connection",
				Help:     HelpFor(KindNotFound),
				Err:      err,
			}
		}
		return err
	}

	s.logger.Info("connection deactivated",
		zap.String("user_id", userID),
		zap.String("platform", platform),
	)
	return nil
}

// Sync refreshes display metadata. Tokens and account id are left alone
// unless the provider reports a different identity.
func (s *ConnectionServiceImpl) Sync(ctx context.Context, userID, platform string) (*Connection, error) {
	if err := ValidatePlatform(platform); err != nil {
		return nil, WrapError(KindUnsupportedPlatform, err)
	}

	conn, err := s.store.Get(ctx, userID, platform)
	if err != nil {
		if isNotFound(err) {
			return nil, &ServiceError{
				Kind:     KindNotFound,
				Platform: platform,
				Message:  "no active connection",
				Help:     HelpFor(KindNotFound),
				Err:      err,
			}
		}
		return nil, err
	}

	profile, err := s.resolver.SyncProfile(ctx, conn)
	if err != nil {
		s.logger.Warn("profile sync failed",
			zap.Object("connection", conn),
			zap.Error(err),
		)
		return nil, err
	}

	ApplyProfile(conn, profile)
	now := s.now()
	conn.LastSyncAt = &now

	return s.store.Upsert(ctx, conn)
}

// List returns the user's active connections
func (s *ConnectionServiceImpl) List(ctx context.Context, userID string) ([]*Connection, error) {
	conns, err := s.store.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if conns == nil {
		conns = []*Connection{}
	}
	return conns, nil
}
