package random

import (
	"crypto/rand"
	"encoding/base64"
)

// Random provides random generation that can be mocked for testing
type Random interface {
	// Token generates a random URL-safe token with the given prefix
	Token(prefix string) string
}

// CryptoRandom implements Random using crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// Token generates a random token with the given prefix
func (r *CryptoRandom) Token(prefix string) string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return prefix + base64.RawURLEncoding.EncodeToString(b)
}
