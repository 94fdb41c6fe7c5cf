package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// ServiceName labels telemetry emitted by this module
const ServiceName = "socialconnect"

// InitTelemetry builds a meter provider exported to a private Prometheus
// registry and returns the handler that serves it.
func InitTelemetry() (*sdkmetric.MeterProvider, http.Handler, error) {
	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	return provider, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}

// InitLogger returns a JSON production logger for env "production" and a
// console development logger otherwise. The result replaces zap's globals.
func InitLogger(env string) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	if env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	zap.ReplaceGlobals(logger)
	return logger, nil
}

// Shutdown flushes metrics and the logger
func Shutdown(ctx context.Context, provider *sdkmetric.MeterProvider, logger *zap.Logger) error {
	if provider != nil {
		if err := provider.Shutdown(ctx); err != nil {
			if logger != nil {
				logger.Error("Failed to shut down meter provider", zap.Error(err))
			}
			return err
		}
	}

	if logger != nil {
		// Sync fails on non-syncable stderr; nothing to recover
		_ = logger.Sync()
	}
	return nil
}
