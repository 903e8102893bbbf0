package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidSignature is returned when the signature does not validate against the trust anchor,
	// or the token declares an algorithm other than RS256
	ErrInvalidSignature = errors.New("invalid token signature")

	// ErrTokenExpired is returned when the token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrMalformedToken is returned when the token is not a well formed JWS
	ErrMalformedToken = errors.New("malformed token")

	// ErrMissingClaim is returned when a required claim is missing
	ErrMissingClaim = errors.New("missing required claim")
)

// SigningAlgorithm is the only algorithm accepted by the Verifier
const SigningAlgorithm = "RS256"

// Claims represents the claims carried in a verified token
type Claims struct {
	jwt.RegisteredClaims
}

// UserID returns the subject, which identifies the todo owner
func (c *Claims) UserID() string {
	return c.Subject
}

// ExpiresAtTime returns the expiry or the zero time when the token has no exp
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Verifier checks bearer tokens against a key source
type Verifier struct {
	keys   KeySource
	parser *jwt.Parser
}

// VerifierOption customizes a Verifier
type VerifierOption func(*verifierOptions)

type verifierOptions struct {
	now func() time.Time
}

// WithClock overrides the time used for exp/nbf checks
func WithClock(now func() time.Time) VerifierOption {
	return func(o *verifierOptions) {
		o.now = now
	}
}

// NewVerifier creates a Verifier restricted to RS256
func NewVerifier(keys KeySource, opts ...VerifierOption) *Verifier {
	options := verifierOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{SigningAlgorithm}),
	}
	if options.now != nil {
		parserOpts = append(parserOpts, jwt.WithTimeFunc(options.now))
	}

	return &Verifier{
		keys:   keys,
		parser: jwt.NewParser(parserOpts...),
	}
}

// Verify validates the token signature and expiry and returns its claims.
// Issuer and audience are not checked.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, v.keys.Keyfunc)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
	}

	if !token.Valid {
		return nil, ErrInvalidSignature
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	return claims, nil
}

// VerifyHeader extracts the bearer token from a header value and verifies it
func (v *Verifier) VerifyHeader(ctx context.Context, authHeader string) (*Claims, error) {
	token, err := ExtractToken(authHeader)
	if err != nil {
		return nil, err
	}
	return v.Verify(ctx, token)
}
