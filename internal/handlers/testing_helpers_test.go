package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mikelady/socialconnect/internal/auth"
	"github.com/mikelady/socialconnect/internal/services"
)

const testUserID = "user-1"

// testRouter wires handlers behind the real bearer middleware
type testRouter struct {
	engine *gin.Engine
	token  string
}

func newTestRouter(t *testing.T, register func(r *gin.Engine, protect gin.HandlerFunc)) *testRouter {
	t.Helper()
	gin.SetMode(gin.TestMode)

	v, err := auth.NewValidator([]byte("handler-test-secret-0123456789ab"))
	require.NoError(t, err)
	token, err := v.IssueToken(testUserID, time.Hour)
	require.NoError(t, err)

	engine := gin.New()
	register(engine, auth.RequireBearer(v, nil))
	return &testRouter{engine: engine, token: token}
}

func (r *testRouter) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.token)

	rec := httptest.NewRecorder()
	r.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

type fakeFlow struct {
	start    *services.OAuthStart
	startErr error
	target   string
	gotUser  string
	params   services.CallbackParams
}

func (f *fakeFlow) StartOAuthFlow(_ context.Context, userID, platform string) (*services.OAuthStart, error) {
	f.gotUser = userID
	return f.start, f.startErr
}

func (f *fakeFlow) HandleCallback(_ context.Context, params services.CallbackParams) string {
	f.params = params
	return f.target
}

type fakeConnections struct {
	conn     *services.Connection
	conns    []*services.Connection
	err      error
	lastUser string
	lastReq  services.ManualConnectRequest
}

func (f *fakeConnections) Connect(_ context.Context, userID string, req services.ManualConnectRequest) (*services.Connection, error) {
	f.lastUser, f.lastReq = userID, req
	return f.conn, f.err
}

func (f *fakeConnections) Disconnect(_ context.Context, userID, _ string) error {
	f.lastUser = userID
	return f.err
}

func (f *fakeConnections) Sync(_ context.Context, userID, _ string) (*services.Connection, error) {
	f.lastUser = userID
	return f.conn, f.err
}

func (f *fakeConnections) List(_ context.Context, userID string) ([]*services.Connection, error) {
	f.lastUser = userID
	return f.conns, f.err
}

type fakePublisher struct {
	result  *services.PublishResult
	err     error
	content services.PostContent
	calls   int
}

func (f *fakePublisher) Publish(_ context.Context, _, _ string, content services.PostContent) (*services.PublishResult, error) {
	f.calls++
	f.content = content
	return f.result, f.err
}
