package services

import "context"

// Outcome labels recorded by MetricsRecorder
const (
	OutcomeSuccess  = "success"
	OutcomeFallback = "fallback_success"
	OutcomeFailure  = "failure"
)

// MetricsRecorder receives counters from the flow and publish paths.
type MetricsRecorder interface {
	RecordPublish(ctx context.Context, platform, outcome string, kind ErrorKind)
	RecordOAuthCallback(ctx context.Context, platform, outcome string, kind ErrorKind)
}

type noopMetrics struct{}

func (noopMetrics) RecordPublish(context.Context, string, string, ErrorKind)       {}
func (noopMetrics) RecordOAuthCallback(context.Context, string, string, ErrorKind) {}
