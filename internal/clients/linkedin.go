package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/linkedin"

	"github.com/mikelady/socialconnect/internal/services"
)

const (
	DefaultLinkedInBaseURL = "https://api.linkedin.com/v2"
	linkedInFeedURL        = "https://www.linkedin.com/feed/update/"
)

// Compile-time interface compliance check
var _ services.Provider = (*LinkedInProvider)(nil)

// LinkedInProvider publishes member shares through the UGC Posts API
type LinkedInProvider struct {
	*oauthClient
	baseURL string
}

// NewLinkedInProvider creates a LinkedIn adapter
func NewLinkedInProvider(cfg ProviderConfig) *LinkedInProvider {
	baseURL := strings.TrimRight(cfg.APIBaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultLinkedInBaseURL
	}
	return &LinkedInProvider{
		oauthClient: newOAuthClient(services.PlatformLinkedIn, cfg, linkedin.Endpoint),
		baseURL:     baseURL,
	}
}

// Platform returns the platform identifier
func (p *LinkedInProvider) Platform() string {
	return services.PlatformLinkedIn
}

// Exchange trades an authorization code for member tokens
func (p *LinkedInProvider) Exchange(ctx context.Context, code string) (*services.OAuthTokens, error) {
	tok, err := p.exchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return tokensFrom(tok), nil
}

// RefreshToken uses the stored refresh token
func (p *LinkedInProvider) RefreshToken(ctx context.Context, conn *services.Connection) (*services.OAuthTokens, error) {
	if !p.OAuthEnabled() {
		return nil, services.NewError(services.KindUnsupportedPlatform, "client credentials are not configured")
	}
	if conn.RefreshToken == "" {
		return nil, services.NewError(services.KindInvalidToken, "no refresh token stored; reconnect LinkedIn")
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, transportFailure(p.platform, "token refresh", err)
	}

	// An empty access token forces the source to refresh.
	ts := p.config.TokenSource(p.withClient(ctx), &oauth2.Token{RefreshToken: conn.RefreshToken})
	tok, err := ts.Token()
	if err != nil {
		return nil, oauthFailure(p.platform, "token refresh", err)
	}

	out := tokensFrom(tok)
	if out.RefreshToken == "" {
		out.RefreshToken = conn.RefreshToken
	}
	return out, nil
}

// =============================================================================
// REST transport
// =============================================================================

type linkedInError struct {
	ServiceErrorCode int    `json:"serviceErrorCode"`
	Message          string `json:"message"`
	Status           int    `json:"status"`
}

// call sends a JSON request and returns the response headers. Any status
// other than want is a failure.
func (p *LinkedInProvider) call(ctx context.Context, op, method, path, token string, body any, want int, out any) (http.Header, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, transportFailure(p.platform, op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return nil, transportFailure(p.platform, op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, transportFailure(p.platform, op, err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, transportFailure(p.platform, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, transportFailure(p.platform, op, err)
	}

	if resp.StatusCode != want {
		f := &services.ProviderFailure{
			Platform:   p.platform,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Body:       string(raw),
		}
		var le linkedInError
		if json.Unmarshal(raw, &le) == nil {
			f.Message = le.Message
			f.Code = itoaNonZero(le.ServiceErrorCode)
		}
		if f.Message == "" {
			f.Message = http.StatusText(resp.StatusCode)
		}
		return nil, f
	}

	if err := decodeJSON(raw, out); err != nil {
		return nil, &services.ProviderFailure{
			Platform:   p.platform,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    "unreadable response: " + err.Error(),
			Body:       string(raw),
		}
	}
	return resp.Header, nil
}

// =============================================================================
// Identity
// =============================================================================

type linkedInMember struct {
	ID                 string `json:"id"`
	LocalizedFirstName string `json:"localizedFirstName"`
	LocalizedLastName  string `json:"localizedLastName"`
}

func (m linkedInMember) displayName() string {
	return strings.TrimSpace(m.LocalizedFirstName + " " + m.LocalizedLastName)
}

func (p *LinkedInProvider) fetchMember(ctx context.Context, token string) (*linkedInMember, error) {
	var member linkedInMember
	if _, err := p.call(ctx, "fetch member", http.MethodGet, "/me", token, nil, http.StatusOK, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// ResolveIdentity returns the authenticated member
func (p *LinkedInProvider) ResolveIdentity(ctx context.Context, userToken, _ string) (*services.Identity, error) {
	member, err := p.fetchMember(ctx, userToken)
	if err != nil {
		return nil, err
	}
	return &services.Identity{ID: member.ID, Name: member.displayName(), Token: userToken}, nil
}

// FetchProfile re-reads the member's name
func (p *LinkedInProvider) FetchProfile(ctx context.Context, conn *services.Connection) (*services.Profile, error) {
	member, err := p.fetchMember(ctx, conn.AccessToken)
	if err != nil {
		return nil, err
	}
	return &services.Profile{AccountID: member.ID, Name: member.displayName()}, nil
}

// =============================================================================
// Publishing
// =============================================================================

type ugcPost struct {
	Author          string             `json:"author"`
	LifecycleState  string             `json:"lifecycleState"`
	SpecificContent ugcSpecificContent `json:"specificContent"`
	Visibility      map[string]string  `json:"visibility"`
}

type ugcSpecificContent struct {
	ShareContent ugcShareContent `json:"com.linkedin.ugc.ShareContent"`
}

type ugcShareContent struct {
	ShareCommentary    ugcText    `json:"shareCommentary"`
	ShareMediaCategory string     `json:"shareMediaCategory"`
	Media              []ugcMedia `json:"media,omitempty"`
}

type ugcText struct {
	Text string `json:"text"`
}

type ugcMedia struct {
	Status      string `json:"status"`
	OriginalURL string `json:"originalUrl"`
}

func buildUGCPost(memberID string, content services.PostContent) ugcPost {
	share := ugcShareContent{
		ShareCommentary:    ugcText{Text: content.Text},
		ShareMediaCategory: "NONE",
	}
	// Image URLs are shared as link previews; no asset upload happens here.
	if content.ImageURL != "" {
		share.ShareMediaCategory = "ARTICLE"
		share.Media = []ugcMedia{{Status: "READY", OriginalURL: content.ImageURL}}
	}
	return ugcPost{
		Author:          "urn:li:person:" + memberID,
		LifecycleState:  "PUBLISHED",
		SpecificContent: ugcSpecificContent{ShareContent: share},
		Visibility:      map[string]string{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	}
}

// ValidateContent requires share text
func (p *LinkedInProvider) ValidateContent(content services.PostContent) error {
	if strings.TrimSpace(content.Text) == "" {
		return services.NewError(services.KindMissingRequiredMedia, "a LinkedIn share needs text")
	}
	return nil
}

// PublishCandidates is the connected member alone
func (p *LinkedInProvider) PublishCandidates(ctx context.Context, conn *services.Connection) ([]services.PublishCandidate, error) {
	if conn.AccountID == "" {
		return nil, services.NewError(services.KindAccountInfoFailed, "no LinkedIn member is connected")
	}
	return []services.PublishCandidate{{
		AccountID:   conn.AccountID,
		AccountName: conn.AccountName,
		Token:       conn.AccessToken,
	}}, nil
}

// Publish creates a UGC post. Only 201 Created counts as success.
func (p *LinkedInProvider) Publish(ctx context.Context, cand services.PublishCandidate, content services.PostContent) (*services.PublishResult, error) {
	var body struct {
		ID string `json:"id"`
	}
	header, err := p.call(ctx, "publish", http.MethodPost, "/ugcPosts", cand.Token,
		buildUGCPost(cand.AccountID, content), http.StatusCreated, &body)
	if err != nil {
		return nil, err
	}

	postID := header.Get("X-RestLi-Id")
	if postID == "" {
		postID = body.ID
	}
	if postID == "" {
		return nil, &services.ProviderFailure{
			Platform:   services.PlatformLinkedIn,
			Operation:  "publish",
			StatusCode: http.StatusCreated,
			Message:    "response carried no post id",
		}
	}

	return &services.PublishResult{PostID: postID, URL: linkedInFeedURL + postID}, nil
}
