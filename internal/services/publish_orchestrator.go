package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// Publish Orchestrator
// Runs a provider's publish protocol over an ordered ladder of candidates.
// =============================================================================

// MaxPublishAttempts bounds the ladder: the resolved identity plus at most one
// fallback.
const MaxPublishAttempts = 2

// PublishService publishes content through a user's active connection.
type PublishService interface {
	Publish(ctx context.Context, userID, platform string, content PostContent) (*PublishResult, error)
}

// PublishOrchestrator implements PublishService.
type PublishOrchestrator struct {
	store      ConnectionStore
	providers  ProviderRegistry
	translator *ErrorTranslator
	logger     *zap.Logger
	metrics    MetricsRecorder
	now        func() time.Time
}

// Compile-time interface compliance check
var _ PublishService = (*PublishOrchestrator)(nil)

// NewPublishOrchestrator creates an orchestrator. translator, logger and
// metrics may be nil.
func NewPublishOrchestrator(store ConnectionStore, providers ProviderRegistry, translator *ErrorTranslator, logger *zap.Logger, metrics MetricsRecorder) *PublishOrchestrator {
	if translator == nil {
		translator = NewErrorTranslator(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &PublishOrchestrator{
		store:      store,
		providers:  providers,
		translator: translator,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
	}
}

// Publish sends content as the connection's identity, falling back once on
// permission failures when the provider allows it. The connection is written
// only after a successful publish.
func (o *PublishOrchestrator) Publish(ctx context.Context, userID, platform string, content PostContent) (*PublishResult, error) {
	provider, err := o.providers.Get(platform)
	if err != nil {
		return nil, err
	}

	conn, err := o.store.Get(ctx, userID, platform)
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
		return nil, WrapError(KindInternal, err)
	}

	if err := provider.ValidateContent(content); err != nil {
		se := o.translator.Translate(platform, err)
		o.metrics.RecordPublish(ctx, platform, OutcomeFailure, se.Kind)
		return nil, se
	}

	candidates, err := provider.PublishCandidates(ctx, conn)
	if err != nil {
		se := o.translator.Translate(platform, err)
		o.metrics.RecordPublish(ctx, platform, OutcomeFailure, se.Kind)
		return nil, se
	}
	if len(candidates) == 0 {
		se := &ServiceError{
			Kind:     KindAccountInfoFailed,
			Platform: platform,
			Message:  "no identity available to publish as",
			Help:     HelpFor(KindAccountInfoFailed),
		}
		o.metrics.RecordPublish(ctx, platform, OutcomeFailure, se.Kind)
		return nil, se
	}

	var (
		result  *PublishResult
		used    PublishCandidate
		lastErr *ServiceError
	)
	for i, cand := range candidates {
		if i >= MaxPublishAttempts {
			break
		}

		res, err := provider.Publish(ctx, cand, content)
		if err == nil {
			result, used, lastErr = res, cand, nil
			break
		}

		lastErr = o.translator.Translate(platform, err)
		o.logger.Warn("publish attempt failed",
			zap.String("platform", platform),
			zap.String("user_id", userID),
			zap.String("account_id", cand.AccountID),
			zap.Int("attempt", i+1),
			zap.String("kind", string(lastErr.Kind)),
			zap.String("raw", lastErr.Raw),
		)

		if lastErr.Kind != KindInsufficientPermission || !cand.AllowFallback {
			break
		}
	}

	if result == nil {
		if lastErr == nil {
			lastErr = NewError(KindUnknownProviderError, "publish returned no result")
		}
		o.metrics.RecordPublish(ctx, platform, OutcomeFailure, lastErr.Kind)
		return nil, lastErr
	}

	outcome := OutcomeSuccess
	if used.AccountID != candidates[0].AccountID {
		outcome = OutcomeFallback
	}
	o.metrics.RecordPublish(ctx, platform, outcome, "")

	o.recordSuccess(ctx, conn, used)
	return result, nil
}

// recordSuccess stamps LastSyncAt and remembers a page identity that differs
// from the stored one. A personal-profile fallback never replaces a stored
// page. A failed write is logged; the post is already live.
func (o *PublishOrchestrator) recordSuccess(ctx context.Context, conn *Connection, used PublishCandidate) {
	now := o.now()
	conn.LastSyncAt = &now

	if used.IsPage && (used.AccountID != conn.AccountID || used.Token != conn.PageAccessToken) {
		conn.AccountID = used.AccountID
		if used.AccountName != "" {
			conn.AccountName = used.AccountName
		}
		conn.PageAccessToken = used.Token
	}

	if _, err := o.store.Upsert(ctx, conn); err != nil {
		o.logger.Error("failed to record publish on connection",
			zap.Object("connection", conn),
			zap.Error(err),
		)
	}
}
