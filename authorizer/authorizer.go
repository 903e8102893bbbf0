// Package authorizer turns bearer token verification into API Gateway
// allow/deny decisions.
package authorizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/upb/serverless-todos/auth"
	"github.com/upb/serverless-todos/config"
	"github.com/upb/serverless-todos/internal/observability"
)

// Decision reasons used as metric labels
const (
	ReasonOK               = "ok"
	ReasonMalformedHeader  = "malformed_header"
	ReasonInvalidSignature = "invalid_signature"
	ReasonExpired          = "expired"
	ReasonMalformedToken   = "malformed_token"
	ReasonMissingClaim     = "missing_claim"
	ReasonPanic            = "panic"
	ReasonError            = "error"
)

// Authorizer decides whether the bearer of a token may invoke the API
type Authorizer struct {
	verifier auth.TokenVerifier
	logger   *zap.Logger
	metrics  *observability.Metrics
	scope    string
}

// Option configures an Authorizer
type Option func(*Authorizer)

// WithPolicyScope selects "wildcard" or "method" resources for the policy
func WithPolicyScope(scope string) Option {
	return func(a *Authorizer) {
		a.scope = scope
	}
}

// WithMetrics records every decision on m
func WithMetrics(m *observability.Metrics) Option {
	return func(a *Authorizer) {
		a.metrics = m
	}
}

// New creates an Authorizer. The default policy scope is wildcard.
func New(verifier auth.TokenVerifier, logger *zap.Logger, opts ...Option) *Authorizer {
	a := &Authorizer{
		verifier: verifier,
		logger:   logger,
		scope:    config.PolicyScopeWildcard,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authorize verifies authHeader and returns an Allow decision for its subject,
// or a Deny decision for the placeholder principal on any failure.
func (a *Authorizer) Authorize(ctx context.Context, authHeader, methodArn string) (decision Decision) {
	start := time.Now()
	requestID := observability.RequestID(ctx)
	resource := a.resource(methodArn)
	logger := a.logger.With(zap.String("request_id", requestID))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("User not authorized",
				zap.String("reason", ReasonPanic),
				zap.Any("panic", r))
			decision = a.deny(resource, ReasonPanic)
		}
		a.metrics.ObserveDuration("authorizer", start)
	}()

	token, _ := auth.ExtractToken(authHeader)
	logger.Info("Authorizing a user",
		zap.String("token_fingerprint", auth.Fingerprint(token)),
		zap.String("method_arn", methodArn))

	if a.verifier == nil {
		return a.reject(logger, resource, errors.New("no verifier configured"))
	}

	claims, err := a.verifier.VerifyHeader(ctx, authHeader)
	if err != nil {
		return a.reject(logger, resource, err)
	}

	logger.Info("User was authorized",
		zap.String("sub", claims.Subject),
		zap.String("iss", claims.Issuer),
		zap.Time("exp", claims.ExpiresAtTime()))

	a.metrics.RecordDecision(EffectAllow, ReasonOK)
	return newDecision(claims.Subject, EffectAllow, resource)
}

// HandleRequest is the Lambda entrypoint for a TOKEN authorizer. It never fails.
func (a *Authorizer) HandleRequest(ctx context.Context, request events.APIGatewayCustomAuthorizerRequest) (Decision, error) {
	return a.Authorize(ctx, request.AuthorizationToken, request.MethodArn), nil
}

func (a *Authorizer) reject(logger *zap.Logger, resource string, err error) Decision {
	reason := Reason(err)
	logger.Warn("User not authorized",
		zap.String("reason", reason),
		zap.Error(err))
	return a.deny(resource, reason)
}

func (a *Authorizer) deny(resource, reason string) Decision {
	a.metrics.RecordDecision(EffectDeny, reason)
	return newDecision(auth.DenyPrincipal, EffectDeny, resource)
}

func (a *Authorizer) resource(methodArn string) string {
	if a.scope == config.PolicyScopeMethod && methodArn != "" {
		return methodArn
	}
	return WildcardResource
}

// Reason classifies a verification error for logs and metrics
func Reason(err error) string {
	switch {
	case err == nil:
		return ReasonOK
	case errors.Is(err, auth.ErrMalformedHeader):
		return ReasonMalformedHeader
	case errors.Is(err, auth.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, auth.ErrMalformedToken):
		return ReasonMalformedToken
	case errors.Is(err, auth.ErrMissingClaim):
		return ReasonMissingClaim
	case errors.Is(err, auth.ErrInvalidSignature):
		return ReasonInvalidSignature
	default:
		return ReasonError
	}
}

// String renders a decision for logs
func (d Decision) String() string {
	return fmt.Sprintf("%s:%s", d.PrincipalID, d.Effect())
}
