package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/mikelady/socialconnect/internal/auth"
	"github.com/mikelady/socialconnect/internal/clients"
	"github.com/mikelady/socialconnect/internal/config"
	"github.com/mikelady/socialconnect/internal/database"
	"github.com/mikelady/socialconnect/internal/handlers"
	"github.com/mikelady/socialconnect/internal/observability"
	"github.com/mikelady/socialconnect/internal/services"
	"github.com/mikelady/socialconnect/internal/web"
)

// =============================================================================
// Application wiring
// Builds storage, provider adapters and services from Config
// =============================================================================

// storage is the credential store plus its health probe and cleanup
type storage struct {
	store services.ConnectionStore
	ping  web.Pinger
	close func()
}

// app holds everything the serve command runs
type app struct {
	router    *gin.Engine
	store     services.ConnectionStore
	providers services.ProviderRegistry
	closers   []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// resolveDatabaseConfig reads the DB_ settings, taking credentials from
// Secrets Manager when DB_SECRET_NAME is set.
func resolveDatabaseConfig(ctx context.Context, cfg *config.Config) (*database.Config, error) {
	base := database.ConfigFromSettings(cfg.Database)
	if cfg.Database.SecretName == "" {
		return base, nil
	}
	dbCfg, err := database.LoadConfigFromSecretsManager(ctx, cfg.Database.SecretName, base)
	if err != nil {
		return nil, fmt.Errorf("load database secret: %w", err)
	}
	return dbCfg, nil
}

// openStorage returns the in-memory store when DB_MEMORY_STORE is set and a
// migrated Postgres store otherwise.
func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	if cfg.Database.MemoryStore {
		logger.Warn("using in-memory connection store; connections are lost on restart")
		return &storage{store: database.NewMemoryConnectionStore(), close: func() {}}, nil
	}

	key, err := cfg.Credentials.Key()
	if err != nil {
		return nil, err
	}
	dbCfg, err := resolveDatabaseConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := database.EnsureDatabaseExists(ctx, dbCfg, logger); err != nil {
		return nil, fmt.Errorf("ensure database: %w", err)
	}
	if err := database.RunMigrations(dbCfg); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed", zap.String("database", dbCfg.Database))

	pool, err := database.NewPool(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	store, err := database.NewConnectionStore(pool, key)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &storage{store: store, ping: pool, close: pool.Close}, nil
}

// openNonces returns the Redis nonce store when REDIS_ADDR is set. Without it
// state reuse is only detected within one process.
func openNonces(ctx context.Context, cfg *config.Config, logger *zap.Logger) (services.NonceStore, *database.Redis, error) {
	if !cfg.Redis.Enabled() {
		logger.Warn("REDIS_ADDR not set, OAuth state reuse is tracked per process")
		return database.NewMemoryNonceStore(), nil, nil
	}
	r, err := database.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, err
	}
	return database.NewRedisNonceStore(r), r, nil
}

// buildApp wires the HTTP surface. A nil meters skips metrics and a nil
// metricsHandler leaves /metrics unmounted.
func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, meters metric.MeterProvider, metricsHandler http.Handler) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	st, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, st.close)
	a.store = st.store

	nonces, redis, err := openNonces(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	health := web.NewHealthChecker()
	if st.ping != nil {
		health.Add("postgres", st.ping)
	}
	if redis != nil {
		a.closers = append(a.closers, func() { _ = redis.Close() })
		health.Add("redis", redis)
	}

	var recorder services.MetricsRecorder
	if meters != nil {
		m, err := observability.NewMetrics(meters)
		if err != nil {
			return nil, err
		}
		recorder = m
	}

	states, err := services.NewStateCodec([]byte(cfg.OAuth.StateSecret), cfg.OAuth.StateTTL.Duration)
	if err != nil {
		return nil, err
	}
	tokens, err := auth.NewValidator([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return nil, err
	}

	a.providers = clients.NewRegistry(cfg.Providers, cfg.OAuth.CallbackURL(), logger)
	translator := services.NewErrorTranslator(nil)
	resolver := services.NewAccountResolver(a.providers, translator, logger)

	flow := services.NewOAuthFlowController(services.OAuthFlowConfig{
		Providers:  a.providers,
		Store:      a.store,
		Resolver:   resolver,
		States:     states,
		Nonces:     nonces,
		LandingURL: cfg.OAuth.LandingURL,
		Logger:     logger,
		Metrics:    recorder,
	})
	connections := services.NewConnectionService(services.ConnectionServiceConfig{
		Store:    a.store,
		Resolver: resolver,
		Logger:   logger,
	})
	publisher := services.NewPublishOrchestrator(a.store, a.providers, translator, logger, recorder)

	a.router = web.NewRouter(web.RouterConfig{
		OAuth:       handlers.NewOAuthHandler(flow),
		Connections: handlers.NewConnectionHandler(connections),
		Publish:     handlers.NewPublishHandler(publisher),
		Tokens:      tokens,
		Health:      health,
		Metrics:     metricsHandler,
		Logger:      logger,
	})

	ok = true
	return a, nil
}
