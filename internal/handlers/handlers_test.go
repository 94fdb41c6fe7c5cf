package handlers

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikelady/socialconnect/internal/services"
)

func TestStatusForKind(t *testing.T) {
	tests := map[services.ErrorKind]int{
		services.KindUnsupportedPlatform:    http.StatusBadRequest,
		services.KindMissingRequiredMedia:   http.StatusBadRequest,
		services.KindInvalidToken:           http.StatusBadRequest,
		services.KindNotFound:               http.StatusNotFound,
		services.KindInsufficientPermission: http.StatusForbidden,
		services.KindRateLimited:            http.StatusTooManyRequests,
		services.KindProviderUnavailable:    http.StatusBadGateway,
		services.KindUnknownProviderError:   http.StatusBadGateway,
		services.KindInternal:               http.StatusInternalServerError,
		services.ErrorKind("surprise"):      http.StatusInternalServerError,
	}
	for kind, want := range tests {
		assert.Equal(t, want, StatusForKind(kind), kind)
	}
}

// =============================================================================
// OAuth
// =============================================================================

func oauthRouter(t *testing.T, flow *fakeFlow) *testRouter {
	h := NewOAuthHandler(flow)
	return newTestRouter(t, func(r *gin.Engine, protect gin.HandlerFunc) {
		r.GET("/oauth/:platform/start", protect, h.Start)
		r.GET("/oauth/callback", h.Callback)
	})
}

func TestOAuthHandler_Start(t *testing.T) {
	flow := &fakeFlow{start: &services.OAuthStart{AuthURL: "https://www.linkedin.com/oauth/v2/authorization?x", State: "s"}}
	r := oauthRouter(t, flow)

	rec := r.do(t, http.MethodGet, "/oauth/linkedin/start", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "https://www.linkedin.com/oauth/v2/authorization?x", body["authUrl"])
	assert.Equal(t, "s", body["state"])
	assert.Equal(t, testUserID, flow.gotUser)
}

func TestOAuthHandler_StartUnsupported(t *testing.T) {
	flow := &fakeFlow{startErr: services.NewError(services.KindUnsupportedPlatform, "OAuth client credentials are not configured")}
	r := oauthRouter(t, flow)

	rec := r.do(t, http.MethodGet, "/oauth/facebook/start", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[ErrorResponse](t, rec)
	assert.Equal(t, "unsupported_platform", body.ErrorCode)
	assert.False(t, body.Success)
}

// A provider error redirects without needing a bearer token.
func TestOAuthHandler_CallbackAlwaysRedirects(t *testing.T) {
	flow := &fakeFlow{target: "http://localhost:3000/oauth/callback?error=access_denied"}
	r := oauthRouter(t, flow)
	r.token = ""

	rec := r.do(t, http.MethodGet, "/oauth/callback?error=access_denied&state=abc", nil)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://localhost:3000/oauth/callback?error=access_denied", rec.Header().Get("Location"))
	assert.Equal(t, "access_denied", flow.params.Error)
	assert.Equal(t, "abc", flow.params.State)
}

// =============================================================================
// Connections
// =============================================================================

func connectionRouter(t *testing.T, svc *fakeConnections) *testRouter {
	h := NewConnectionHandler(svc)
	return newTestRouter(t, func(r *gin.Engine, protect gin.HandlerFunc) {
		g := r.Group("/social", protect)
		g.POST("/connect", h.Connect)
		g.GET("/connections", h.List)
		g.DELETE("/:platform", h.Disconnect)
		g.POST("/:platform/sync", h.Sync)
	})
}

func TestConnectionHandler_Connect(t *testing.T) {
	svc := &fakeConnections{conn: &services.Connection{
		ID: "c1", Platform: "facebook", AccountID: "page-1", AccountName: "Bakery",
		AccessToken: "secret-token", PageAccessToken: "secret-token",
	}}
	r := connectionRouter(t, svc)

	rec := r.do(t, http.MethodPost, "/social/connect", map[string]any{
		"platform": "facebook", "accountId": "page-1", "accountName": "Bakery", "accessToken": "secret-token",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret-token")
	body := decode[ConnectionResponse](t, rec)
	assert.Equal(t, "page-1", body.AccountID)
	assert.True(t, body.IsPage)
	assert.Equal(t, testUserID, svc.lastUser)
	assert.Equal(t, "secret-token", svc.lastReq.AccessToken)
}

func TestConnectionHandler_ConnectValidation(t *testing.T) {
	svc := &fakeConnections{}
	r := connectionRouter(t, svc)

	rec := r.do(t, http.MethodPost, "/social/connect", map[string]any{"platform": "facebook"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeInvalidRequest, decode[ErrorResponse](t, rec).ErrorCode)
	assert.Empty(t, svc.lastUser, "service is not called")
}

func TestConnectionHandler_ConnectUnsupportedPlatform(t *testing.T) {
	svc := &fakeConnections{err: services.NewError(services.KindUnsupportedPlatform, "unsupported platform")}
	r := connectionRouter(t, svc)

	rec := r.do(t, http.MethodPost, "/social/connect", map[string]any{
		"platform": "myspace", "accountId": "x", "accessToken": "t",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unsupported_platform", decode[ErrorResponse](t, rec).ErrorCode)
}

func TestConnectionHandler_List(t *testing.T) {
	expires := time.Now().Add(48 * time.Hour)
	svc := &fakeConnections{conns: []*services.Connection{
		{ID: "c1", Platform: "linkedin", AccountID: "abc", ExpiresAt: &expires},
	}}
	r := connectionRouter(t, svc)

	rec := r.do(t, http.MethodGet, "/social/connections", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[ConnectionListResponse](t, rec)
	require.Len(t, body.Connections, 1)
	assert.True(t, body.Connections[0].ExpiresSoon)
}

func TestConnectionHandler_ListEmpty(t *testing.T) {
	r := connectionRouter(t, &fakeConnections{})

	rec := r.do(t, http.MethodGet, "/social/connections", nil)

	assert.JSONEq(t, `{"connections":[]}`, rec.Body.String())
}

func TestConnectionHandler_Disconnect(t *testing.T) {
	r := connectionRouter(t, &fakeConnections{})
	rec := r.do(t, http.MethodDelete, "/social/linkedin", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	r = connectionRouter(t, &fakeConnections{err: services.NewError(services.KindNotFound, "no active connection")})
	rec = r.do(t, http.MethodDelete, "/social/linkedin", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[ErrorResponse](t, rec).ErrorCode)
}

func TestConnectionHandler_Sync(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"ok", nil, http.StatusOK},
		{"not connected", services.NewError(services.KindNotFound, "no active connection"), http.StatusNotFound},
		{"token rejected", services.NewError(services.KindInvalidToken, "token expired"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeConnections{conn: &services.Connection{ID: "c1", Platform: "instagram"}, err: tt.err}
			r := connectionRouter(t, svc)

			rec := r.do(t, http.MethodPost, "/social/instagram/sync", nil)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestConnectionHandler_InternalErrorIsNotEchoed(t *testing.T) {
	r := connectionRouter(t, &fakeConnections{err: errors.New("pq: password authentication failed")})

	rec := r.do(t, http.MethodGet, "/social/connections", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestConnectionHandler_RequiresBearer(t *testing.T) {
	r := connectionRouter(t, &fakeConnections{})
	r.token = "forged"

	rec := r.do(t, http.MethodGet, "/social/connections", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// =============================================================================
// Publish
// =============================================================================

func publishRouter(t *testing.T, svc *fakePublisher) *testRouter {
	h := NewPublishHandler(svc)
	return newTestRouter(t, func(r *gin.Engine, protect gin.HandlerFunc) {
		r.POST("/social/publish", protect, h.Publish)
	})
}

// Successful publish response shape
func TestPublishHandler_Success(t *testing.T) {
	svc := &fakePublisher{result: &services.PublishResult{PostID: "123_456", URL: "https://www.facebook.com/123_456"}}
	r := publishRouter(t, svc)

	rec := r.do(t, http.MethodPost, "/social/publish", map[string]string{"platform": "facebook", "content": "hello"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"postId":"123_456","url":"https://www.facebook.com/123_456"}`, rec.Body.String())
	assert.Equal(t, "hello", svc.content.Text)
}

func TestPublishHandler_Failure(t *testing.T) {
	svc := &fakePublisher{err: &services.ServiceError{
		Kind:     services.KindMissingRequiredMedia,
		Platform: "instagram",
		Message:  "Instagram posts require an image",
		Help:     "Attach an image and try again.",
	}}
	r := publishRouter(t, svc)

	rec := r.do(t, http.MethodPost, "/social/publish", map[string]string{"platform": "instagram", "content": "caption"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[ErrorResponse](t, rec)
	assert.False(t, body.Success)
	assert.Equal(t, "missing_required_media", body.ErrorCode)
	assert.Equal(t, "Instagram posts require an image", body.Message)
	assert.Equal(t, "Attach an image and try again.", body.HelpMessage)
}

func TestPublishHandler_MissingPlatform(t *testing.T) {
	svc := &fakePublisher{}
	r := publishRouter(t, svc)

	rec := r.do(t, http.MethodPost, "/social/publish", map[string]string{"content": "hello"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, svc.calls)
}
