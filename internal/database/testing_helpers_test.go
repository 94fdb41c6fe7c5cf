package database

import (
	"testing"

	"github.com/pashagolub/pgxmock/v4"
)

// testEncryptionKey is a fixed 32-byte AES-256 key for unit tests
var testEncryptionKey = []byte("0123456789abcdef0123456789abcdef")

// NewMockPool creates a pgxmock pool that satisfies DBTX.
// Queries are matched as regular expressions, so expectations should use
// plain prefixes without parentheses or other metacharacters.
// Unmet expectations fail the test on cleanup.
func NewMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	t.Cleanup(func() {
		mock.Close()
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled mock expectations: %v", err)
		}
	})
	return mock
}

// decryptsTo matches an encrypted column argument by its plaintext
type decryptsTo struct {
	cipher *tokenCipher
	want   string
}

func (m decryptsTo) Match(v any) bool {
	var sealed string
	switch s := v.(type) {
	case string:
		sealed = s
	case *string:
		if s == nil {
			return m.want == ""
		}
		sealed = *s
	default:
		return false
	}
	if sealed == m.want && m.want != "" {
		return false // stored in the clear
	}
	plain, err := m.cipher.decrypt(sealed)
	return err == nil && plain == m.want
}
