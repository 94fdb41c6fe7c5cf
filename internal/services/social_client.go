package services

import (
	"context"
)

// =============================================================================
// Publishing interface and types
// =============================================================================

// PostContent is the payload published through a connection.
type PostContent struct {
	// Text is the post body or caption.
	Text string

	// ImageURL is a publicly reachable image. Mandatory for Instagram.
	ImageURL string
}

// PublishResult is the outcome of a successful publish.
type PublishResult struct {
	PostID string `json:"postId"`
	URL    string `json:"url"`
}

// PublishCandidate is one rung of the fallback ladder: an identity and the
// credential that publishes as it.
type PublishCandidate struct {
	AccountID   string
	AccountName string
	Token       string
	IsPage      bool

	// AllowFallback lets the orchestrator move to the next candidate when this
	// one is rejected with KindInsufficientPermission.
	AllowFallback bool
}

// Publisher publishes content as a resolved identity.
type Publisher interface {
	// ValidateContent rejects payloads the platform cannot accept.
	// It must not make network calls.
	ValidateContent(content PostContent) error

	// PublishCandidates returns the ordered identities to try for conn.
	PublishCandidates(ctx context.Context, conn *Connection) ([]PublishCandidate, error)

	// Publish runs the platform's publish protocol for one candidate.
	// Failures are returned as *ProviderFailure or *ServiceError.
	Publish(ctx context.Context, candidate PublishCandidate, content PostContent) (*PublishResult, error)
}
