package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is stamped on tokens minted by IssueToken
const Issuer = "socialconnect"

// MinSecretLength is the shortest HS256 secret accepted
const MinSecretLength = 32

var (
	ErrMissingSubject = errors.New("token has no subject")
	ErrWeakSecret     = fmt.Errorf("jwt secret must be at least %d bytes", MinSecretLength)
)

// Claims carries the end-user identity. Tokens from the upstream identity
// service put it in either user_id or the standard sub claim.
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// Identity returns user_id, falling back to sub
func (c *Claims) Identity() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.RegisteredClaims.Subject
}

// Validator verifies HS256 bearer tokens
type Validator struct {
	secret []byte
	now    func() time.Time
}

// NewValidator creates a validator for the shared secret
func NewValidator(secret []byte) (*Validator, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	return &Validator{secret: secret, now: time.Now}, nil
}

// ValidateToken parses tokenString and returns the user id it names
func (v *Validator) ValidateToken(tokenString string) (string, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}

	userID := claims.Identity()
	if userID == "" {
		return "", ErrMissingSubject
	}
	return userID, nil
}

// IssueToken mints a token for userID valid for ttl. Used by the dev CLI and tests.
func (v *Validator) IssueToken(userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", ErrMissingSubject
	}
	now := v.now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
