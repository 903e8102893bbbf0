package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ErrInvalidTrustAnchor is returned when the configured certificate cannot be parsed
var ErrInvalidTrustAnchor = errors.New("invalid trust anchor")

// KeySource resolves the public key used to verify a token signature
type KeySource interface {
	Keyfunc(token *jwt.Token) (interface{}, error)
}

// ParseTrustAnchor parses an RSA public key from a PEM encoded certificate or public key
func ParseTrustAnchor(pemBytes []byte) (*rsa.PublicKey, error) {
	if len(pemBytes) == 0 {
		return nil, fmt.Errorf("%w: empty PEM", ErrInvalidTrustAnchor)
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTrustAnchor, err)
	}
	return key, nil
}

// StaticKeySource verifies every token against a single fixed public key
type StaticKeySource struct {
	key *rsa.PublicKey
}

// NewStaticKeySource creates a key source from a PEM trust anchor
func NewStaticKeySource(pemBytes []byte) (*StaticKeySource, error) {
	key, err := ParseTrustAnchor(pemBytes)
	if err != nil {
		return nil, err
	}
	return &StaticKeySource{key: key}, nil
}

// NewStaticKeySourceFromKey creates a key source from an already parsed key
func NewStaticKeySourceFromKey(key *rsa.PublicKey) *StaticKeySource {
	return &StaticKeySource{key: key}
}

// Keyfunc returns the trust anchor for RSA signed tokens
func (s *StaticKeySource) Keyfunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return s.key, nil
}

// JWKSConfig holds settings for a remote key set
type JWKSConfig struct {
	URL             string
	RefreshInterval time.Duration
	HTTPTimeout     time.Duration
}

// JWKSKeySource fetches signing keys from a JWKS endpoint and refreshes them in the background
type JWKSKeySource struct {
	jwks *keyfunc.JWKS
}

// NewJWKSKeySource fetches the key set once and starts the background refresh
func NewJWKSKeySource(config JWKSConfig, logger *zap.Logger) (*JWKSKeySource, error) {
	if config.URL == "" {
		return nil, errors.New("JWKS URL is required")
	}
	if config.RefreshInterval == 0 {
		config.RefreshInterval = time.Hour
	}
	if config.HTTPTimeout == 0 {
		config.HTTPTimeout = 10 * time.Second
	}

	options := keyfunc.Options{
		Client: &http.Client{Timeout: config.HTTPTimeout},
		RefreshErrorHandler: func(err error) {
			logger.Warn("JWKS refresh failed",
				zap.String("jwks_url", config.URL),
				zap.Error(err))
		},
		RefreshInterval:   config.RefreshInterval,
		RefreshRateLimit:  time.Minute,
		RefreshTimeout:    config.HTTPTimeout,
		RefreshUnknownKID: true,
	}

	jwks, err := keyfunc.Get(config.URL, options)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	logger.Info("JWKS key source initialized",
		zap.String("jwks_url", config.URL),
		zap.Duration("refresh_interval", config.RefreshInterval))

	return &JWKSKeySource{jwks: jwks}, nil
}

// Keyfunc looks up the key referenced by the token's kid header
func (s *JWKSKeySource) Keyfunc(token *jwt.Token) (interface{}, error) {
	return s.jwks.Keyfunc(token)
}

// Close stops the background refresh
func (s *JWKSKeySource) Close() {
	s.jwks.EndBackground()
}
