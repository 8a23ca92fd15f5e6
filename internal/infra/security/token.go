package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// SessionTokenBytes is the entropy of a session token; its hex form is twice as long.
const SessionTokenBytes = 32

// GenerateSessionToken returns 256 bits from crypto/rand, hex encoded.
func GenerateSessionToken() (string, error) {
	buf := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// IsWellFormedSessionToken reports whether token has the shape produced by GenerateSessionToken.
func IsWellFormedSessionToken(token string) bool {
	if len(token) != SessionTokenBytes*2 {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}

// Fingerprint returns a short SHA-256 prefix of value, safe to log in place of a token.
func Fingerprint(value string) string {
	if value == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:6])
}
