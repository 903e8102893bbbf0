package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedHeader is returned when the bearer credential is missing or uses another scheme
	ErrMalformedHeader = errors.New("malformed authentication header")

	// ErrNoAuthHeader is returned when the header is absent or empty
	ErrNoAuthHeader = fmt.Errorf("%w: No authentication header", ErrMalformedHeader)

	// ErrInvalidAuthHeader is returned when the header does not use the bearer scheme
	ErrInvalidAuthHeader = fmt.Errorf("%w: Invalid authentication header", ErrMalformedHeader)
)

const bearerPrefix = "bearer "

// ExtractToken returns the token carried by a "Bearer <token>" header value.
// Only the segment right after the scheme is returned; trailing segments are ignored.
func ExtractToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrNoAuthHeader
	}

	if !strings.HasPrefix(strings.ToLower(authHeader), bearerPrefix) {
		return "", ErrInvalidAuthHeader
	}

	split := strings.Split(authHeader, " ")
	return split[1], nil
}

// Fingerprint returns a short non-reversible identifier for a token, safe to log
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return "sha256:" + hex.EncodeToString(sum[:8])
}
