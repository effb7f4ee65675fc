package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// TokenBytes is the entropy of a session token; the hex form is twice as long.
const TokenBytes = 16

// NewSessionToken returns a random hex-encoded session token.
func NewSessionToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
