package clients

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/mikelady/socialconnect/internal/services"
)

// Graph API constants shared by the Facebook and Instagram adapters
const (
	GraphAPIVersion     = "v18.0"
	DefaultGraphBaseURL = "https://graph.facebook.com/" + GraphAPIVersion
	facebookDialogURL   = "https://www.facebook.com/" + GraphAPIVersion + "/dialog/oauth"
)

// graphEndpoint is the Facebook Login endpoint for baseURL
func graphEndpoint(baseURL string) oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:  facebookDialogURL,
		TokenURL: baseURL + "/oauth/access_token",
	}
}

// graphAPI is a minimal Graph API client. The access token travels as the
// access_token parameter on every call.
type graphAPI struct {
	platform   string
	baseURL    string
	httpClient *http.Client
	limiter    *RateLimiter
}

type graphError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode"`
	FBTraceID    string `json:"fbtrace_id"`
}

func decodeGraphError(body []byte) *graphError {
	var envelope struct {
		Error *graphError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}
	return envelope.Error
}

func applyGraphError(f *services.ProviderFailure, ge *graphError) {
	if ge.Message != "" {
		f.Message = ge.Message
	}
	f.Code = itoaNonZero(ge.Code)
	f.Subcode = itoaNonZero(ge.ErrorSubcode)
}

func (g *graphAPI) get(ctx context.Context, op, path, token string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	if token != "" {
		params.Set("access_token", token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return transportFailure(g.platform, op, err)
	}
	return g.do(req, op, out)
}

func (g *graphAPI) post(ctx context.Context, op, path, token string, form url.Values, out any) error {
	if form == nil {
		form = url.Values{}
	}
	form.Set("access_token", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return transportFailure(g.platform, op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return g.do(req, op, out)
}

func (g *graphAPI) do(req *http.Request, op string, out any) error {
	if err := g.limiter.Wait(req.Context()); err != nil {
		return transportFailure(g.platform, op, err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return transportFailure(g.platform, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return transportFailure(g.platform, op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f := &services.ProviderFailure{
			Platform:   g.platform,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
		if ge := decodeGraphError(body); ge != nil {
			applyGraphError(f, ge)
		}
		if f.Message == "" {
			f.Message = http.StatusText(resp.StatusCode)
		}
		return f
	}

	if err := decodeJSON(body, out); err != nil {
		return &services.ProviderFailure{
			Platform:   g.platform,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    "unreadable response: " + err.Error(),
			Body:       string(body),
		}
	}
	return nil
}

// =============================================================================
// Pages
// =============================================================================

type graphPicture struct {
	Data struct {
		URL string `json:"url"`
	} `json:"data"`
}

type graphPage struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	AccessToken string       `json:"access_token"`
	Picture     graphPicture `json:"picture"`
}

// listPages returns the pages the user manages, with their page tokens
func (g *graphAPI) listPages(ctx context.Context, userToken string) ([]graphPage, error) {
	var resp struct {
		Data []graphPage `json:"data"`
	}
	err := g.get(ctx, "list pages", "/me/accounts", userToken, url.Values{
		"fields": {"id,name,access_token,picture{url}"},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// pickPage prefers the page matching preferredID, otherwise the first page.
// Pages without a page token cannot publish and are skipped.
func pickPage(pages []graphPage, preferredID string) (graphPage, bool) {
	if preferredID != "" {
		for _, p := range pages {
			if p.ID == preferredID && p.AccessToken != "" {
				return p, true
			}
		}
	}
	for _, p := range pages {
		if p.AccessToken != "" {
			return p, true
		}
	}
	return graphPage{}, false
}

// =============================================================================
// Meta login, shared by Facebook and Instagram
// =============================================================================

// metaProvider implements the OAuth half for Graph-backed platforms
type metaProvider struct {
	*oauthClient
	graph *graphAPI
	now   func() time.Time
}

func newMetaProvider(platform string, cfg ProviderConfig) *metaProvider {
	baseURL := strings.TrimRight(cfg.APIBaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultGraphBaseURL
	}
	oc := newOAuthClient(platform, cfg, graphEndpoint(baseURL))
	return &metaProvider{
		oauthClient: oc,
		graph: &graphAPI{
			platform:   platform,
			baseURL:    baseURL,
			httpClient: oc.httpClient,
			limiter:    oc.limiter,
		},
		now: time.Now,
	}
}

// Exchange trades the code for a user token, then upgrades it to a
// long-lived token. A failed upgrade keeps the short-lived token.
func (m *metaProvider) Exchange(ctx context.Context, code string) (*services.OAuthTokens, error) {
	tok, err := m.exchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	short := tokensFrom(tok)

	long, err := m.exchangeLongLived(ctx, short.AccessToken)
	if err != nil {
		m.logger.Warn("long-lived token exchange failed, keeping short-lived token", zap.Error(err))
		return short, nil
	}
	long.Scopes = short.Scopes
	return long, nil
}

// RefreshToken re-exchanges the stored user token for a new long-lived one.
// Page tokens derived from a long-lived user token do not expire.
func (m *metaProvider) RefreshToken(ctx context.Context, conn *services.Connection) (*services.OAuthTokens, error) {
	if !m.OAuthEnabled() {
		return nil, services.NewError(services.KindUnsupportedPlatform, "client credentials are not configured")
	}
	if conn.AccessToken == "" {
		return nil, services.NewError(services.KindInvalidToken, "no user token to refresh")
	}
	return m.exchangeLongLived(ctx, conn.AccessToken)
}

func (m *metaProvider) exchangeLongLived(ctx context.Context, token string) (*services.OAuthTokens, error) {
	var resp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	err := m.graph.get(ctx, "long-lived token exchange", "/oauth/access_token", "", url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {m.config.ClientID},
		"client_secret":     {m.config.ClientSecret},
		"fb_exchange_token": {token},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, &services.ProviderFailure{
			Platform:   m.platform,
			Operation:  "long-lived token exchange",
			StatusCode: http.StatusOK,
			Message:    "response carried no access token",
		}
	}

	out := &services.OAuthTokens{AccessToken: resp.AccessToken}
	if resp.ExpiresIn > 0 {
		exp := m.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
		out.ExpiresAt = &exp
	}
	return out, nil
}
