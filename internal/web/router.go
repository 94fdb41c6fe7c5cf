package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/mikelady/socialconnect/internal/auth"
	"github.com/mikelady/socialconnect/internal/handlers"
	"github.com/mikelady/socialconnect/internal/observability"
)

// RouterConfig collects the handlers and middleware dependencies
type RouterConfig struct {
	OAuth       *handlers.OAuthHandler
	Connections *handlers.ConnectionHandler
	Publish     *handlers.PublishHandler
	Tokens      auth.TokenValidator
	Health      *HealthChecker
	Metrics     http.Handler // nil disables /metrics
	Logger      *zap.Logger
}

// NewRouter builds the gin engine with every route mounted
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	health := cfg.Health
	if health == nil {
		health = NewHealthChecker()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(observability.ServiceName))
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", health.Handler)
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	protect := auth.RequireBearer(cfg.Tokens, logger)

	oauth := router.Group("/oauth")
	{
		oauth.GET("/callback", cfg.OAuth.Callback)
		oauth.GET("/:platform/start", protect, cfg.OAuth.Start)
	}

	social := router.Group("/social", protect)
	{
		social.POST("/connect", cfg.Connections.Connect)
		social.GET("/connections", cfg.Connections.List)
		social.POST("/publish", cfg.Publish.Publish)
		social.DELETE("/:platform", cfg.Connections.Disconnect)
		social.POST("/:platform/sync", cfg.Connections.Sync)
	}

	return router
}
