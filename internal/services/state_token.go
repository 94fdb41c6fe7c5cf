package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// OAuth state token
// Format: base64url("userID|unixSeconds|platform") + "." + base64url(HMAC-SHA256)
// The signature is checked before the payload is decoded.
// =============================================================================

const (
	stateFieldSep  = "|"
	stateSigSep    = "."
	stateClockSkew = time.Minute

	// DefaultStateTTL bounds how long an authorization round trip may take.
	DefaultStateTTL = 10 * time.Minute

	minStateSecretLen = 32
)

// StateClaims is the decoded content of a state token.
type StateClaims struct {
	UserID    string
	Platform  string
	IssuedAt  time.Time
	Signature string // stable key for single-use tracking
}

// NonceStore records consumed state tokens so each can be redeemed once.
type NonceStore interface {
	// Consume marks key used for ttl. Returns false if it was already used.
	Consume(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// StateCodec issues and verifies signed state tokens.
type StateCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewStateCodec creates a codec. The secret must be at least 32 bytes.
func NewStateCodec(secret []byte, ttl time.Duration) (*StateCodec, error) {
	if len(secret) < minStateSecretLen {
		return nil, fmt.Errorf("state secret must be at least %d bytes, got %d", minStateSecretLen, len(secret))
	}
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &StateCodec{secret: secret, ttl: ttl, now: time.Now}, nil
}

// TTL returns how long issued tokens remain valid.
func (c *StateCodec) TTL() time.Duration { return c.ttl }

// Encode binds userID, the current time and platform into a signed token.
func (c *StateCodec) Encode(userID, platform string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}
	if strings.Contains(userID, stateFieldSep) {
		return "", fmt.Errorf("user id must not contain %q", stateFieldSep)
	}
	if err := ValidatePlatform(platform); err != nil {
		return "", err
	}

	raw := strings.Join([]string{userID, strconv.FormatInt(c.now().Unix(), 10), platform}, stateFieldSep)
	payload := base64.RawURLEncoding.EncodeToString([]byte(raw))
	return payload + stateSigSep + c.sign(payload), nil
}

// Decode verifies and parses a token. Every failure is a KindInvalidState
// ServiceError.
func (c *StateCodec) Decode(token string) (*StateClaims, error) {
	parts := strings.Split(token, stateSigSep)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, invalidState("malformed state")
	}
	payload, sig := parts[0], parts[1]

	if !hmac.Equal([]byte(sig), []byte(c.sign(payload))) {
		return nil, invalidState("state signature mismatch")
	}

	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, invalidState("state payload is not base64url")
	}

	fields := strings.Split(string(raw), stateFieldSep)
	if len(fields) != 3 {
		return nil, invalidState("state must have three parts")
	}
	userID, tsField, platform := fields[0], fields[1], fields[2]
	if userID == "" {
		return nil, invalidState("state has no user")
	}

	ts, err := strconv.ParseInt(tsField, 10, 64)
	if err != nil {
		return nil, invalidState("state timestamp is not numeric")
	}
	if ValidatePlatform(platform) != nil {
		return nil, invalidState("state names an unknown platform")
	}

	issued := time.Unix(ts, 0)
	now := c.now()
	if issued.After(now.Add(stateClockSkew)) {
		return nil, invalidState("state issued in the future")
	}
	if now.Sub(issued) > c.ttl {
		return nil, invalidState("state expired")
	}

	return &StateClaims{UserID: userID, Platform: platform, IssuedAt: issued, Signature: sig}, nil
}

func (c *StateCodec) sign(payload string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func invalidState(msg string) *ServiceError {
	return NewError(KindInvalidState, msg)
}
