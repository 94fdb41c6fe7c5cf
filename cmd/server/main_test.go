package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikelady/socialconnect/internal/auth"
	"github.com/mikelady/socialconnect/internal/config"
)

const (
	testJWTSecret   = "jwt-secret-jwt-secret-jwt-secret"
	testStateSecret = "state-secret-state-secret-state-"
)

func memoryConfig(t *testing.T, extra map[string]string) *config.Config {
	t.Helper()
	env := map[string]string{
		"AUTH_JWT_SECRET":        testJWTSecret,
		"OAUTH_STATE_SECRET":     testStateSecret,
		"DB_MEMORY_STORE":        "true",
		"LINKEDIN_CLIENT_ID":     "li-id",
		"LINKEDIN_CLIENT_SECRET": "li-secret",
	}
	for k, v := range extra {
		env[k] = v
	}
	cfg, err := config.LoadFrom(context.Background(), envconfig.MapLookuper(env))
	require.NoError(t, err)
	require.NoError(t, cfg.ValidateServe())
	return cfg
}

func TestBuildApp_MemoryStore(t *testing.T) {
	cfg := memoryConfig(t, nil)

	a, err := buildApp(context.Background(), cfg, zap.NewNop(), nil, nil)
	require.NoError(t, err)
	defer a.Close()

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	a.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Len(t, a.providers, 3)
}

func TestBuildApp_StartRedirectsToLinkedIn(t *testing.T) {
	cfg := memoryConfig(t, map[string]string{"OAUTH_REDIRECT_BASE_URL": "https://api.example.com"})

	a, err := buildApp(context.Background(), cfg, zap.NewNop(), nil, nil)
	require.NoError(t, err)
	defer a.Close()

	v, err := auth.NewValidator([]byte(testJWTSecret))
	require.NoError(t, err)
	token, err := v.IssueToken("user-1", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/oauth/linkedin/start", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), url.QueryEscape("https://api.example.com/oauth/callback"))
}

func TestBuildApp_RequiresEncryptionKeyForPostgres(t *testing.T) {
	cfg := memoryConfig(t, nil)
	cfg.Database.MemoryStore = false

	_, err := buildApp(context.Background(), cfg, zap.NewNop(), nil, nil)
	assert.ErrorContains(t, err, "CREDENTIALS_ENCRYPTION_KEY")
}

func TestResolveDatabaseConfig_FromSettings(t *testing.T) {
	cfg := memoryConfig(t, map[string]string{"DB_HOST": "db.internal", "DB_NAME": "social"})

	dbCfg, err := resolveDatabaseConfig(context.Background(), cfg)

	require.NoError(t, err)
	assert.Equal(t, "db.internal", dbCfg.Host)
	assert.Equal(t, "social", dbCfg.Database)
}

func TestRunningInLambda(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	assert.False(t, runningInLambda())

	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "socialconnect-api")
	assert.True(t, runningInLambda())
}

func TestRootCommand_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"serve", "migrate", "refresh-tokens", "issue-token"} {
		assert.True(t, names[want], want)
	}

	steps := migrateDownCmd.Flags().Lookup("steps")
	require.NotNil(t, steps)
	assert.Equal(t, "1", steps.DefValue)
}

func TestIssueToken_Validates(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", testJWTSecret)
	t.Setenv("ENV", "development")

	var out bytes.Buffer
	issueTokenCmd.SetOut(&out)
	issueTokenCmd.SetContext(context.Background())
	require.NoError(t, runIssueToken(issueTokenCmd, []string{"user-7"}))

	v, err := auth.NewValidator([]byte(testJWTSecret))
	require.NoError(t, err)
	userID, err := v.ValidateToken(string(bytes.TrimSpace(out.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, "user-7", userID)
}
