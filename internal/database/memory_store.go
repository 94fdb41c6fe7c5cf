package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mikelady/socialconnect/internal/services"
)

// =============================================================================
// In-memory stores for local development and tests
// =============================================================================

var (
	_ services.ConnectionStore = (*MemoryConnectionStore)(nil)
	_ services.NonceStore      = (*MemoryNonceStore)(nil)
)

type connectionKey struct {
	userID   string
	platform string
}

// MemoryConnectionStore keeps every record ever written, keyed by id, plus an
// index of the active record per (user, platform). Deactivated records stay
// behind with IsActive false. Records handed out are copies, so callers cannot
// mutate stored state.
type MemoryConnectionStore struct {
	mu      sync.RWMutex
	records map[string]*services.Connection
	active  map[connectionKey]string
	now     func() time.Time
}

// NewMemoryConnectionStore creates an empty store
func NewMemoryConnectionStore() *MemoryConnectionStore {
	return &MemoryConnectionStore{
		records: make(map[string]*services.Connection),
		active:  make(map[connectionKey]string),
		now:     time.Now,
	}
}

func copyConnection(c *services.Connection) *services.Connection {
	out := *c
	if c.ExpiresAt != nil {
		t := *c.ExpiresAt
		out.ExpiresAt = &t
	}
	if c.LastSyncAt != nil {
		t := *c.LastSyncAt
		out.LastSyncAt = &t
	}
	return &out
}

// Upsert overwrites the active record in place or inserts a new one. A write
// carrying the id of a deactivated record returns ErrConnectionNotFound rather
// than reviving it.
func (s *MemoryConnectionStore) Upsert(_ context.Context, conn *services.Connection) (*services.Connection, error) {
	if err := validateConnection(conn); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	key := connectionKey{conn.UserID, conn.Platform}
	saved := copyConnection(conn)
	saved.IsActive = true
	saved.UpdatedAt = now

	if id, ok := s.active[key]; ok {
		existing := s.records[id]
		saved.ID = existing.ID
		saved.CreatedAt = existing.CreatedAt
	} else {
		if saved.ID == "" {
			saved.ID = uuid.NewString()
		}
		if _, taken := s.records[saved.ID]; taken {
			return nil, services.ErrConnectionNotFound
		}
		saved.CreatedAt = now
	}

	s.records[saved.ID] = saved
	s.active[key] = saved.ID
	return copyConnection(saved), nil
}

// Deactivate marks the active record inactive and keeps it
func (s *MemoryConnectionStore) Deactivate(_ context.Context, userID, platform string) error {
	if err := services.ValidatePlatform(platform); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := connectionKey{userID, platform}
	id, ok := s.active[key]
	if !ok {
		return services.ErrConnectionNotFound
	}
	conn := s.records[id]
	conn.IsActive = false
	conn.UpdatedAt = s.now()
	delete(s.active, key)
	return nil
}

func (s *MemoryConnectionStore) Get(_ context.Context, userID, platform string) (*services.Connection, error) {
	if err := services.ValidatePlatform(platform); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.active[connectionKey{userID, platform}]
	if !ok {
		return nil, services.ErrConnectionNotFound
	}
	return copyConnection(s.records[id]), nil
}

func (s *MemoryConnectionStore) ListActive(_ context.Context, userID string) ([]*services.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*services.Connection
	for _, conn := range s.records {
		if conn.IsActive && conn.UserID == userID {
			out = append(out, copyConnection(conn))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out, nil
}

func (s *MemoryConnectionStore) ListExpiring(_ context.Context, within time.Duration) ([]*services.Connection, error) {
	cutoff := s.now().Add(within)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*services.Connection
	for _, conn := range s.records {
		if conn.IsActive && conn.ExpiresAt != nil && !conn.ExpiresAt.After(cutoff) {
			out = append(out, copyConnection(conn))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(*out[j].ExpiresAt) })
	return out, nil
}

// MemoryNonceStore tracks consumed state signatures in process memory.
// Expired entries are pruned lazily on Consume.
type MemoryNonceStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

// NewMemoryNonceStore creates an empty nonce store
func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{seen: make(map[string]time.Time), now: time.Now}
}

// Consume returns true the first time key is seen within ttl
func (s *MemoryNonceStore) Consume(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, exp := range s.seen {
		if !exp.After(now) {
			delete(s.seen, k)
		}
	}

	if _, used := s.seen[key]; used {
		return false, nil
	}
	s.seen[key] = now.Add(ttl)
	return true, nil
}
