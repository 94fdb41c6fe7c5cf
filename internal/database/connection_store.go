package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mikelady/socialconnect/internal/services"
)

// Compile-time interface compliance check
var _ services.ConnectionStore = (*ConnectionStore)(nil)

// connectionColumns is the SELECT list shared by every read query.
// Order must match scanConnection.
const connectionColumns = `id, user_id, platform, account_id, account_name, username, profile_picture,
	followers_count, following_count, posts_count, verified,
	access_token, page_access_token, refresh_token, expires_at, scopes,
	is_active, last_sync_at, created_at, updated_at`

// ConnectionStore implements services.ConnectionStore using PostgreSQL.
// Token columns are encrypted at rest with AES-256-GCM.
type ConnectionStore struct {
	db     DBTX
	cipher *tokenCipher
	now    func() time.Time
}

// NewConnectionStore creates a database-backed connection store.
// encryptionKey must be exactly 32 bytes.
func NewConnectionStore(pool *Pool, encryptionKey []byte) (*ConnectionStore, error) {
	return NewConnectionStoreWithDB(pool, encryptionKey)
}

// NewConnectionStoreWithDB creates a store over any DBTX (pool, transaction or mock)
func NewConnectionStoreWithDB(db DBTX, encryptionKey []byte) (*ConnectionStore, error) {
	c, err := newTokenCipher(encryptionKey)
	if err != nil {
		return nil, err
	}
	return &ConnectionStore{db: db, cipher: c, now: time.Now}, nil
}

// validateConnection checks the fields every stored record must carry
func validateConnection(conn *services.Connection) error {
	if conn == nil {
		return fmt.Errorf("connection is nil")
	}
	if strings.TrimSpace(conn.UserID) == "" {
		return fmt.Errorf("user id is required")
	}
	if err := services.ValidatePlatform(conn.Platform); err != nil {
		return err
	}
	if conn.AccessToken == "" {
		return services.ErrMissingAccessToken
	}
	if conn.AccountID == "" {
		return services.ErrMissingAccountID
	}
	return nil
}

// primaryKeyConstraint is the implicit name Postgres gives the id key
const primaryKeyConstraint = "social_connections_pkey"

// Upsert writes the active record for (UserID, Platform). An existing active
// record is overwritten in place and keeps its id and created_at. A write
// carrying the id of a record that was deactivated in the meantime collides
// with the primary key and returns ErrConnectionNotFound.
func (s *ConnectionStore) Upsert(ctx context.Context, conn *services.Connection) (*services.Connection, error) {
	if err := validateConnection(conn); err != nil {
		return nil, err
	}

	accessToken, err := s.cipher.encrypt(conn.AccessToken)
	if err != nil {
		return nil, err
	}
	pageToken, err := s.cipher.encryptOptional(conn.PageAccessToken)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.cipher.encryptOptional(conn.RefreshToken)
	if err != nil {
		return nil, err
	}

	id := conn.ID
	if id == "" {
		id = uuid.NewString()
	}

	saved := *conn
	err = s.db.QueryRow(ctx,
		`INSERT INTO social_connections
		 (id, user_id, platform, account_id, account_name, username, profile_picture,
		  followers_count, following_count, posts_count, verified,
		  access_token, page_access_token, refresh_token, expires_at, scopes,
		  is_active, last_sync_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, TRUE, $17)
		 ON CONFLICT (user_id, platform) WHERE is_active DO UPDATE SET
		     account_id = EXCLUDED.account_id,
		     account_name = EXCLUDED.account_name,
		     username = EXCLUDED.username,
		     profile_picture = EXCLUDED.profile_picture,
		     followers_count = EXCLUDED.followers_count,
		     following_count = EXCLUDED.following_count,
		     posts_count = EXCLUDED.posts_count,
		     verified = EXCLUDED.verified,
		     access_token = EXCLUDED.access_token,
		     page_access_token = EXCLUDED.page_access_token,
		     refresh_token = EXCLUDED.refresh_token,
		     expires_at = EXCLUDED.expires_at,
		     scopes = EXCLUDED.scopes,
		     last_sync_at = EXCLUDED.last_sync_at,
		     updated_at = NOW()
		 RETURNING id, created_at, updated_at`,
		id, conn.UserID, conn.Platform, conn.AccountID, conn.AccountName, conn.Username, conn.ProfilePicture,
		conn.FollowersCount, conn.FollowingCount, conn.PostsCount, conn.Verified,
		accessToken, pageToken, refreshToken, conn.ExpiresAt, conn.Scopes,
		conn.LastSyncAt,
	).Scan(&saved.ID, &saved.CreatedAt, &saved.UpdatedAt)
	if err != nil {
		if isStaleWrite(err) {
			return nil, services.ErrConnectionNotFound
		}
		return nil, fmt.Errorf("saving connection: %w", err)
	}

	saved.IsActive = true
	return &saved, nil
}

func isStaleWrite(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == "23505" &&
		pgErr.ConstraintName == primaryKeyConstraint
}

// Deactivate soft-deletes the active record for a user and platform
func (s *ConnectionStore) Deactivate(ctx context.Context, userID, platform string) error {
	if err := services.ValidatePlatform(platform); err != nil {
		return err
	}

	result, err := s.db.Exec(ctx,
		`UPDATE social_connections SET is_active = FALSE, updated_at = NOW()
		 WHERE user_id = $1 AND platform = $2 AND is_active`,
		userID, platform,
	)
	if err != nil {
		return fmt.Errorf("deactivating connection: %w", err)
	}
	if result.RowsAffected() == 0 {
		return services.ErrConnectionNotFound
	}
	return nil
}

// Get returns the active record for a user and platform
func (s *ConnectionStore) Get(ctx context.Context, userID, platform string) (*services.Connection, error) {
	if err := services.ValidatePlatform(platform); err != nil {
		return nil, err
	}

	row := s.db.QueryRow(ctx,
		`SELECT `+connectionColumns+`
		 FROM social_connections
		 WHERE user_id = $1 AND platform = $2 AND is_active`,
		userID, platform,
	)
	conn, err := s.scanConnection(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, services.ErrConnectionNotFound
		}
		return nil, fmt.Errorf("querying connection: %w", err)
	}
	return conn, nil
}

// ListActive returns the user's active records ordered by platform
func (s *ConnectionStore) ListActive(ctx context.Context, userID string) ([]*services.Connection, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+connectionColumns+`
		 FROM social_connections
		 WHERE user_id = $1 AND is_active
		 ORDER BY platform`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing connections: %w", err)
	}
	return s.collect(rows)
}

// ListExpiring returns active records whose token expires before now+within,
// soonest first. Records without an expiry are never returned.
func (s *ConnectionStore) ListExpiring(ctx context.Context, within time.Duration) ([]*services.Connection, error) {
	cutoff := s.now().Add(within)

	rows, err := s.db.Query(ctx,
		`SELECT `+connectionColumns+`
		 FROM social_connections
		 WHERE is_active AND expires_at IS NOT NULL AND expires_at <= $1
		 ORDER BY expires_at`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("listing expiring connections: %w", err)
	}
	return s.collect(rows)
}

func (s *ConnectionStore) collect(rows pgx.Rows) ([]*services.Connection, error) {
	defer rows.Close()

	var conns []*services.Connection
	for rows.Next() {
		conn, err := s.scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning connection: %w", err)
		}
		conns = append(conns, conn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating connections: %w", err)
	}
	return conns, nil
}

// scanConnection reads one row in connectionColumns order and decrypts its tokens
func (s *ConnectionStore) scanConnection(row pgx.Row) (*services.Connection, error) {
	var conn services.Connection
	var accessToken string
	var pageToken, refreshToken *string

	err := row.Scan(
		&conn.ID, &conn.UserID, &conn.Platform, &conn.AccountID, &conn.AccountName,
		&conn.Username, &conn.ProfilePicture,
		&conn.FollowersCount, &conn.FollowingCount, &conn.PostsCount, &conn.Verified,
		&accessToken, &pageToken, &refreshToken, &conn.ExpiresAt, &conn.Scopes,
		&conn.IsActive, &conn.LastSyncAt, &conn.CreatedAt, &conn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if conn.AccessToken, err = s.cipher.decrypt(accessToken); err != nil {
		return nil, err
	}
	if conn.PageAccessToken, err = s.cipher.decryptOptional(pageToken); err != nil {
		return nil, err
	}
	if conn.RefreshToken, err = s.cipher.decryptOptional(refreshToken); err != nil {
		return nil, err
	}
	return &conn, nil
}
