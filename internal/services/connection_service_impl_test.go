package services

import (
	"context"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConnectionFixture(platform string) (*ConnectionServiceImpl, *memStore, *fakeProvider) {
	store := newMemStore()
	provider := newFakeProvider(platform)
	svc := NewConnectionService(ConnectionServiceConfig{
		Store:    store,
		Resolver: NewAccountResolver(NewProviderRegistry(provider), nil, nil),
	})
	return svc, store, provider
}

func TestConnect_CreatesActiveConnection(t *testing.T) {
	svc, store, _ := newConnectionFixture(PlatformFacebook)

	conn, err := svc.Connect(context.Background(), "user42", ManualConnectRequest{
		Platform:    PlatformFacebook,
		AccountID:   "page-9",
		AccountName: "Shop",
		AccessToken: "page-token",
	})

	require.NoError(t, err)
	assert.True(t, conn.IsActive)
	assert.Equal(t, "page-9", conn.AccountID)
	assert.Equal(t, "page-token", conn.PageAccessToken)
	assert.Equal(t, 1, store.activeCount("user42", PlatformFacebook))
}

func TestConnect_PersonalProfileHasNoPageToken(t *testing.T) {
	svc, _, _ := newConnectionFixture(PlatformFacebook)

	conn, err := svc.Connect(context.Background(), "user42", ManualConnectRequest{
		Platform: PlatformFacebook, AccountID: PersonalAccountID, AccessToken: "user-token",
	})

	require.NoError(t, err)
	assert.Empty(t, conn.PageAccessToken)
	assert.False(t, conn.HasPageIdentity())
}

func TestConnect_Validation(t *testing.T) {
	svc, store, _ := newConnectionFixture(PlatformLinkedIn)
	ctx := context.Background()

	_, err := svc.Connect(ctx, "user42", ManualConnectRequest{Platform: "myspace", AccountID: "x", AccessToken: "t"})
	assert.True(t, errors.Is(err, KindUnsupportedPlatform))

	_, err = svc.Connect(ctx, "user42", ManualConnectRequest{Platform: PlatformLinkedIn, AccountID: "x", AccessToken: " "})
	assert.ErrorIs(t, err, ErrMissingAccessToken)

	_, err = svc.Connect(ctx, "user42", ManualConnectRequest{Platform: PlatformLinkedIn, AccessToken: "t"})
	assert.ErrorIs(t, err, ErrMissingAccountID)

	assert.Zero(t, store.upserts)
}

// Property: reconnecting any number of times leaves exactly one active record.
func TestProperty_ReconnectIsIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("repeated connects keep one active connection", prop.ForAll(
		func(tokens []string) bool {
			svc, store, _ := newConnectionFixture(PlatformLinkedIn)
			for i, tok := range tokens {
				_, err := svc.Connect(context.Background(), "user42", ManualConnectRequest{
					Platform: PlatformLinkedIn, AccountID: "member", AccessToken: tok + "x",
				})
				if err != nil {
					return false
				}
				if store.activeCount("user42", PlatformLinkedIn) != 1 {
					return false
				}
				conn, _ := store.Get(context.Background(), "user42", PlatformLinkedIn)
				if conn.AccessToken != tokens[i]+"x" {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(5, gen.AlphaString()),
	))

	properties.TestingRun(t)
}

func TestDisconnect_SecondCallIsNotFound(t *testing.T) {
	svc, store, _ := newConnectionFixture(PlatformLinkedIn)
	store.put(&Connection{UserID: "user42", Platform: PlatformLinkedIn, AccountID: "m", AccessToken: "t"})

	require.NoError(t, svc.Disconnect(context.Background(), "user42", PlatformLinkedIn))
	assert.Zero(t, store.activeCount("user42", PlatformLinkedIn))
	assert.Len(t, store.rows, 1, "disconnect is a soft delete")

	err := svc.Disconnect(context.Background(), "user42", PlatformLinkedIn)
	assert.True(t, errors.Is(err, KindNotFound))
}

func TestDisconnect_UnsupportedPlatform(t *testing.T) {
	svc, _, _ := newConnectionFixture(PlatformLinkedIn)

	err := svc.Disconnect(context.Background(), "user42", "myspace")
	assert.True(t, errors.Is(err, KindUnsupportedPlatform))
}

func TestSync_NotFound(t *testing.T) {
	svc, _, provider := newConnectionFixture(PlatformInstagram)

	_, err := svc.Sync(context.Background(), "user42", PlatformInstagram)

	assert.True(t, errors.Is(err, KindNotFound))
	assert.Zero(t, provider.networkCalls)
}

func TestSync_RejectedToken(t *testing.T) {
	svc, store, provider := newConnectionFixture(PlatformInstagram)
	store.put(&Connection{UserID: "user42", Platform: PlatformInstagram, AccountID: "ig-1", AccessToken: "t"})
	provider.profile = func(*Connection) (*Profile, error) {
		return nil, &ProviderFailure{StatusCode: 400, Code: "190", Message: "Error validating access token"}
	}

	_, err := svc.Sync(context.Background(), "user42", PlatformInstagram)

	assert.True(t, errors.Is(err, KindInvalidToken))
	assert.Zero(t, store.upserts)
}

func TestSync_UpdatesMetadataOnly(t *testing.T) {
	svc, store, provider := newConnectionFixture(PlatformInstagram)
	store.put(&Connection{
		UserID: "user42", Platform: PlatformInstagram,
		AccountID: "ig-1", AccountName: "old", AccessToken: "t", PageAccessToken: "pt",
	})
	provider.profile = func(*Connection) (*Profile, error) {
		return &Profile{AccountID: "ig-1", Name: "Bakery", Username: "bakery", FollowersCount: 120, FollowingCount: 5, PostsCount: 33, Verified: true}, nil
	}

	conn, err := svc.Sync(context.Background(), "user42", PlatformInstagram)

	require.NoError(t, err)
	assert.Equal(t, "Bakery", conn.AccountName)
	assert.Equal(t, "bakery", conn.Username)
	assert.Equal(t, int64(120), conn.FollowersCount)
	assert.Equal(t, int64(33), conn.PostsCount)
	assert.True(t, conn.Verified)
	assert.NotNil(t, conn.LastSyncAt)
	assert.Equal(t, "ig-1", conn.AccountID)
	assert.Equal(t, "t", conn.AccessToken)
	assert.Equal(t, "pt", conn.PageAccessToken)
}

func TestList_EmptyIsNotNil(t *testing.T) {
	svc, _, _ := newConnectionFixture(PlatformLinkedIn)

	conns, err := svc.List(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, conns)
	assert.Empty(t, conns)
}
