package database

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/mikelady/socialconnect/internal/services"
)

// EncryptionKeySize is the AES-256 key length in bytes.
const EncryptionKeySize = 32

// tokenCipher seals token columns with AES-256-GCM. Ciphertext is the
// random nonce followed by the sealed bytes, base64 encoded.
type tokenCipher struct {
	aead cipher.AEAD
}

func newTokenCipher(key []byte) (*tokenCipher, error) {
	if len(key) != EncryptionKeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", EncryptionKeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrEncryptionFailed, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrEncryptionFailed, err)
	}
	return &tokenCipher{aead: aead}, nil
}

// encrypt returns "" for an empty plaintext
func (c *tokenCipher) encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("%w: %v", services.ErrEncryptionFailed, err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *tokenCipher) decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64", services.ErrDecryptionFailed)
	}

	n := c.aead.NonceSize()
	if len(data) < n {
		return "", fmt.Errorf("%w: ciphertext too short", services.ErrDecryptionFailed)
	}

	plaintext, err := c.aead.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", services.ErrDecryptionFailed, err)
	}
	return string(plaintext), nil
}

// encryptOptional maps "" to a NULL column.
func (c *tokenCipher) encryptOptional(plaintext string) (*string, error) {
	if plaintext == "" {
		return nil, nil
	}
	sealed, err := c.encrypt(plaintext)
	if err != nil {
		return nil, err
	}
	return &sealed, nil
}

func (c *tokenCipher) decryptOptional(ciphertext *string) (string, error) {
	if ciphertext == nil {
		return "", nil
	}
	return c.decrypt(*ciphertext)
}
