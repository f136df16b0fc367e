package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// GenerateToken produces a URL-safe random token of at least length characters.
func GenerateToken(length int) (string, error) {
	if length <= 0 {
		length = 48
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: read random bytes: %w", err)
	}

	token := base64.RawURLEncoding.EncodeToString(buf)
	if len(token) > length {
		token = token[:length]
	}
	return token, nil
}
