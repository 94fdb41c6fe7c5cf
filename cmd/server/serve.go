package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikelady/socialconnect/internal/config"
	"github.com/mikelady/socialconnect/internal/observability"
	"github.com/mikelady/socialconnect/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the OAuth, connection and publishing API. Inside AWS Lambda the
router is served through the API Gateway proxy adapter instead of a listener.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runningInLambda reports whether the Lambda runtime launched the process
func runningInLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	logger, err := observability.InitLogger(cfg.Env)
	if err != nil {
		return err
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	meters, metricsHandler, err := observability.InitTelemetry()
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = observability.Shutdown(shutdownCtx, meters, logger)
	}()

	a, err := buildApp(ctx, cfg, logger, meters, metricsHandler)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return err
	}
	defer a.Close()

	logger.Info("enabled OAuth providers", zap.Strings("platforms", cfg.Providers.EnabledPlatforms()))

	if runningInLambda() {
		logger.Info("starting Lambda handler")
		lambda.Start(ginadapter.New(a.router).ProxyWithContext)
		return nil
	}

	server := web.NewServer(cfg.Server.Address(), a.router, web.ServerConfig{
		ReadTimeout:     cfg.Server.ReadTimeout.Duration,
		WriteTimeout:    cfg.Server.WriteTimeout.Duration,
		ShutdownTimeout: cfg.Server.ShutdownTimeout.Duration,
	}, logger)
	return server.Run(ctx)
}
