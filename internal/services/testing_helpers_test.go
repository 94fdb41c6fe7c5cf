package services

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Test doubles shared by the services tests
// =============================================================================

var testStateSecret = []byte("0123456789abcdef0123456789abcdef")

// memStore is an in-memory ConnectionStore that counts writes.
type memStore struct {
	mu      sync.Mutex
	rows    []*Connection
	upserts int
	nextID  int
	getErr  error
	saveErr error
}

func newMemStore() *memStore { return &memStore{} }

func (m *memStore) Upsert(ctx context.Context, conn *Connection) (*Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	m.upserts++
	now := time.Now()
	for _, r := range m.rows {
		if r.IsActive && r.UserID == conn.UserID && r.Platform == conn.Platform {
			id, created := r.ID, r.CreatedAt
			*r = *conn
			r.ID, r.CreatedAt, r.UpdatedAt, r.IsActive = id, created, now, true
			cp := *r
			return &cp, nil
		}
	}
	m.nextID++
	row := *conn
	row.ID = "conn-" + strconv.Itoa(m.nextID)
	row.IsActive = true
	row.CreatedAt, row.UpdatedAt = now, now
	m.rows = append(m.rows, &row)
	cp := row
	return &cp, nil
}

func (m *memStore) Deactivate(ctx context.Context, userID, platform string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.IsActive && r.UserID == userID && r.Platform == platform {
			r.IsActive = false
			return nil
		}
	}
	return ErrConnectionNotFound
}

func (m *memStore) Get(ctx context.Context, userID, platform string) (*Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, r := range m.rows {
		if r.IsActive && r.UserID == userID && r.Platform == platform {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrConnectionNotFound
}

func (m *memStore) ListActive(ctx context.Context, userID string) ([]*Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Connection
	for _, r := range m.rows {
		if r.IsActive && r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) ListExpiring(ctx context.Context, within time.Duration) ([]*Connection, error) {
	return nil, nil
}

func (m *memStore) activeCount(userID, platform string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.rows {
		if r.IsActive && r.UserID == userID && r.Platform == platform {
			n++
		}
	}
	return n
}

func (m *memStore) put(conn *Connection) {
	conn.IsActive = true
	if _, err := m.Upsert(context.Background(), conn); err != nil {
		panic(err)
	}
	m.upserts = 0
}

// fakeProvider is a scriptable Provider that records every call that would
// reach the network.
type fakeProvider struct {
	platform string
	enabled  bool

	exchange   func(code string) (*OAuthTokens, error)
	resolve    func(token, preferred string) (*Identity, error)
	profile    func(conn *Connection) (*Profile, error)
	validate   func(content PostContent) error
	candidates func(conn *Connection) ([]PublishCandidate, error)
	publish    func(cand PublishCandidate, content PostContent) (*PublishResult, error)

	mu             sync.Mutex
	networkCalls   int
	publishTargets []string
	preferredSeen  []string
}

func newFakeProvider(platform string) *fakeProvider {
	return &fakeProvider{platform: platform, enabled: true}
}

func (f *fakeProvider) hit() {
	f.mu.Lock()
	f.networkCalls++
	f.mu.Unlock()
}

func (f *fakeProvider) Platform() string  { return f.platform }
func (f *fakeProvider) OAuthEnabled() bool { return f.enabled }
func (f *fakeProvider) Scopes() []string   { return []string{"scope_a", "scope_b"} }

func (f *fakeProvider) AuthCodeURL(state string) string {
	return "https://provider.test/authorize?state=" + state
}

func (f *fakeProvider) Exchange(ctx context.Context, code string) (*OAuthTokens, error) {
	f.hit()
	if f.exchange != nil {
		return f.exchange(code)
	}
	return &OAuthTokens{AccessToken: "user-token"}, nil
}

func (f *fakeProvider) RefreshToken(ctx context.Context, conn *Connection) (*OAuthTokens, error) {
	f.hit()
	return &OAuthTokens{AccessToken: "refreshed"}, nil
}

func (f *fakeProvider) ResolveIdentity(ctx context.Context, token, preferred string) (*Identity, error) {
	f.hit()
	f.mu.Lock()
	f.preferredSeen = append(f.preferredSeen, preferred)
	f.mu.Unlock()
	if f.resolve != nil {
		return f.resolve(token, preferred)
	}
	return &Identity{ID: "member-1", Name: "Member One", Token: token}, nil
}

func (f *fakeProvider) FetchProfile(ctx context.Context, conn *Connection) (*Profile, error) {
	f.hit()
	if f.profile != nil {
		return f.profile(conn)
	}
	return &Profile{Name: conn.AccountName}, nil
}

func (f *fakeProvider) ValidateContent(content PostContent) error {
	if f.validate != nil {
		return f.validate(content)
	}
	return nil
}

func (f *fakeProvider) PublishCandidates(ctx context.Context, conn *Connection) ([]PublishCandidate, error) {
	if f.candidates != nil {
		return f.candidates(conn)
	}
	return []PublishCandidate{{AccountID: conn.AccountID, Token: conn.AccessToken}}, nil
}

func (f *fakeProvider) Publish(ctx context.Context, cand PublishCandidate, content PostContent) (*PublishResult, error) {
	f.hit()
	f.mu.Lock()
	f.publishTargets = append(f.publishTargets, cand.AccountID)
	f.mu.Unlock()
	if f.publish != nil {
		return f.publish(cand, content)
	}
	return &PublishResult{PostID: "post-1", URL: "https://provider.test/post-1"}, nil
}

func newTestStateCodec(t *testing.T) *StateCodec {
	t.Helper()
	codec, err := NewStateCodec(testStateSecret, time.Minute)
	if err != nil {
		t.Fatalf("NewStateCodec: %v", err)
	}
	return codec
}

func permissionDenied(platform string) *ProviderFailure {
	return &ProviderFailure{
		Platform:   platform,
		Operation:  "publish",
		StatusCode: 403,
		Code:       "200",
		Message:    "(#200) The user hasn't authorized the application to perform this action",
		Body:       `{"error":{"code":200}}`,
	}
}
