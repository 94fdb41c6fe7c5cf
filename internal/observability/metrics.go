package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mikelady/socialconnect/internal/services"
)

// Compile-time interface compliance check
var _ services.MetricsRecorder = (*Metrics)(nil)

// Metrics records publish and OAuth callback outcomes as OpenTelemetry counters
type Metrics struct {
	publishes metric.Int64Counter
	callbacks metric.Int64Counter
}

// NewMetrics registers the counters on provider's meter
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter("github.com/mikelady/socialconnect")

	publishes, err := meter.Int64Counter("socialconnect.publish",
		metric.WithDescription("Publish attempts by platform, outcome and error kind"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, fmt.Errorf("creating publish counter: %w", err)
	}

	callbacks, err := meter.Int64Counter("socialconnect.oauth_callbacks",
		metric.WithDescription("OAuth callbacks by platform, outcome and error kind"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, fmt.Errorf("creating callback counter: %w", err)
	}

	return &Metrics{publishes: publishes, callbacks: callbacks}, nil
}

func outcomeAttrs(platform, outcome string, kind services.ErrorKind) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("platform", platform),
		attribute.String("outcome", outcome),
		attribute.String("error_kind", string(kind)),
	)
}

func (m *Metrics) RecordPublish(ctx context.Context, platform, outcome string, kind services.ErrorKind) {
	m.publishes.Add(ctx, 1, outcomeAttrs(platform, outcome, kind))
}

func (m *Metrics) RecordOAuthCallback(ctx context.Context, platform, outcome string, kind services.ErrorKind) {
	m.callbacks.Add(ctx, 1, outcomeAttrs(platform, outcome, kind))
}
