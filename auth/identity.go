package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// ErrNoIdentity is returned when a request carries no usable caller identity
var ErrNoIdentity = errors.New("no identity")

// DenyPrincipal is the principal id an authorizer attaches to a Deny decision.
// It never identifies a real user.
const DenyPrincipal = "user"

const (
	authorizationHeader = "authorization"
	principalIDKey      = "principalId"
)

// TokenVerifier verifies a raw Authorization header value
type TokenVerifier interface {
	VerifyHeader(ctx context.Context, authHeader string) (*Claims, error)
}

// IdentityExtractor resolves the calling user of an API Gateway proxy request
type IdentityExtractor struct {
	verifier TokenVerifier
}

// NewIdentityExtractor creates an IdentityExtractor
func NewIdentityExtractor(verifier TokenVerifier) *IdentityExtractor {
	return &IdentityExtractor{verifier: verifier}
}

// UserID returns the caller's user id. The principal forwarded by the authorizer
// is used when present; otherwise the Authorization header is verified again.
func (e *IdentityExtractor) UserID(ctx context.Context, request events.APIGatewayProxyRequest) (string, error) {
	if principal := forwardedPrincipal(request); principal != "" {
		return principal, nil
	}

	header := HeaderValue(request, authorizationHeader)
	if header == "" {
		return "", fmt.Errorf("%w: %v", ErrNoIdentity, ErrNoAuthHeader)
	}

	if e.verifier == nil {
		return "", fmt.Errorf("%w: no verifier configured", ErrNoIdentity)
	}

	claims, err := e.verifier.VerifyHeader(ctx, header)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoIdentity, err)
	}

	return claims.UserID(), nil
}

func forwardedPrincipal(request events.APIGatewayProxyRequest) string {
	if request.RequestContext.Authorizer == nil {
		return ""
	}
	principal, ok := request.RequestContext.Authorizer[principalIDKey].(string)
	if !ok || principal == DenyPrincipal {
		return ""
	}
	return principal
}

// HeaderValue looks up a header by name, ignoring case.
// Single-value headers win over multi-value headers.
func HeaderValue(request events.APIGatewayProxyRequest, name string) string {
	for key, value := range request.Headers {
		if strings.EqualFold(key, name) && value != "" {
			return value
		}
	}
	for key, values := range request.MultiValueHeaders {
		if strings.EqualFold(key, name) && len(values) > 0 {
			return values[0]
		}
	}
	return ""
}
