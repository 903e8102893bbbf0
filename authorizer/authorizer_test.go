package authorizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/upb/serverless-todos/auth"
	"github.com/upb/serverless-todos/config"
	"github.com/upb/serverless-todos/internal/observability"
	tokens "github.com/upb/serverless-todos/internal/testutil"
)

const testMethodArn = "arn:aws:execute-api:us-east-1:123456789012:abcdef123/dev/GET/todos"

type MockTokenVerifier struct {
	mock.Mock
}

func (m *MockTokenVerifier) VerifyHeader(ctx context.Context, authHeader string) (*auth.Claims, error) {
	args := m.Called(ctx, authHeader)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Claims), args.Error(1)
}

func newRealAuthorizer(t *testing.T, opts ...Option) (*Authorizer, func(string) string) {
	t.Helper()

	key := tokens.NewRSAKey(t)
	keys, err := auth.NewStaticKeySource(tokens.CertificatePEM(t, key))
	require.NoError(t, err)

	sign := func(sub string) string { return tokens.SignRS256(t, key, sub) }
	return New(auth.NewVerifier(keys), zap.NewNop(), opts...), sign
}

func TestAuthorize_EndToEnd(t *testing.T) {
	authorizer, sign := newRealAuthorizer(t)
	ctx := context.Background()

	t.Run("valid token allows", func(t *testing.T) {
		decision := authorizer.Authorize(ctx, "Bearer "+sign("user-123"), testMethodArn)

		assert.Equal(t, "user-123", decision.PrincipalID)
		assert.Equal(t, EffectAllow, decision.Effect())
		assert.True(t, decision.Allowed())
		require.Len(t, decision.PolicyDocument.Statement, 1)
		assert.Equal(t, WildcardResource, decision.PolicyDocument.Statement[0].Resource)
		assert.Equal(t, InvokeAction, decision.PolicyDocument.Statement[0].Action)
		assert.Equal(t, PolicyVersion, decision.PolicyDocument.Version)
	})

	t.Run("garbage token denies", func(t *testing.T) {
		decision := authorizer.Authorize(ctx, "Bearer garbage", testMethodArn)

		assert.Equal(t, "user", decision.PrincipalID)
		assert.Equal(t, EffectDeny, decision.Effect())
		assert.Equal(t, WildcardResource, decision.PolicyDocument.Statement[0].Resource)
	})
}

func TestAuthorize_DeniesFailures(t *testing.T) {
	authorizer, sign := newRealAuthorizer(t)
	otherKey := tokens.NewRSAKey(t)

	tests := []struct {
		name   string
		header string
	}{
		{"empty header", ""},
		{"wrong scheme", "Basic " + sign("user-123")},
		{"token without scheme", sign("user-123")},
		{"different key", "Bearer " + tokens.SignRS256(t, otherKey, "user-123")},
		{"HS256", "Bearer " + tokens.SignHS256(t, []byte("secret"), "user-123")},
		{"alg none", "Bearer " + tokens.UnsignedToken(t, "user-123")},
		{"missing subject", "Bearer " + sign("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := authorizer.Authorize(context.Background(), tt.header, testMethodArn)
			assert.Equal(t, auth.DenyPrincipal, decision.PrincipalID)
			assert.Equal(t, EffectDeny, decision.Effect())
			assert.Equal(t, WildcardResource, decision.PolicyDocument.Statement[0].Resource)
		})
	}
}

func TestAuthorize_MethodScope(t *testing.T) {
	authorizer, sign := newRealAuthorizer(t, WithPolicyScope(config.PolicyScopeMethod))

	allow := authorizer.Authorize(context.Background(), "Bearer "+sign("user-123"), testMethodArn)
	assert.Equal(t, testMethodArn, allow.PolicyDocument.Statement[0].Resource)

	deny := authorizer.Authorize(context.Background(), "Bearer garbage", testMethodArn)
	assert.Equal(t, testMethodArn, deny.PolicyDocument.Statement[0].Resource)

	noArn := authorizer.Authorize(context.Background(), "Bearer "+sign("user-123"), "")
	assert.Equal(t, WildcardResource, noArn.PolicyDocument.Statement[0].Resource)
}

func TestAuthorize_RecoversPanic(t *testing.T) {
	verifier := new(MockTokenVerifier)
	// nil claims without an error makes the success path dereference nil
	verifier.On("VerifyHeader", mock.Anything, "Bearer token").Return(nil, nil)

	authorizer := New(verifier, zap.NewNop())

	var decision Decision
	require.NotPanics(t, func() {
		decision = authorizer.Authorize(context.Background(), "Bearer token", testMethodArn)
	})
	assert.Equal(t, auth.DenyPrincipal, decision.PrincipalID)
	assert.Equal(t, EffectDeny, decision.Effect())
}

func TestAuthorize_NilVerifier(t *testing.T) {
	decision := New(nil, zap.NewNop()).Authorize(context.Background(), "Bearer token", testMethodArn)
	assert.Equal(t, EffectDeny, decision.Effect())
}

func TestAuthorize_LogsFingerprintNotToken(t *testing.T) {
	authorizer, sign := newRealAuthorizer(t)
	core, logs := observer.New(zapcore.DebugLevel)
	authorizer.logger = zap.New(core)

	token := sign("user-123")
	authorizer.Authorize(context.Background(), "Bearer "+token, testMethodArn)

	attempts := logs.FilterMessage("Authorizing a user").All()
	require.Len(t, attempts, 1)
	fields := attempts[0].ContextMap()
	assert.Equal(t, auth.Fingerprint(token), fields["token_fingerprint"])

	for _, entry := range logs.All() {
		for _, value := range entry.ContextMap() {
			assert.NotContains(t, fmt.Sprint(value), token)
		}
	}
	assert.Equal(t, 1, logs.FilterMessage("User was authorized").Len())
}

func TestAuthorize_RecordsMetrics(t *testing.T) {
	metrics := observability.NewMetrics()
	authorizer, sign := newRealAuthorizer(t, WithMetrics(metrics))

	authorizer.Authorize(context.Background(), "Bearer "+sign("user-123"), testMethodArn)
	authorizer.Authorize(context.Background(), "", testMethodArn)
	authorizer.Authorize(context.Background(), "Bearer garbage", testMethodArn)

	count, err := testutil.GatherAndCount(metrics.Registry(), "todos_authorizer_decisions_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestHandleRequest(t *testing.T) {
	authorizer, sign := newRealAuthorizer(t)

	decision, err := authorizer.HandleRequest(context.Background(), events.APIGatewayCustomAuthorizerRequest{
		Type:               "TOKEN",
		AuthorizationToken: "Bearer " + sign("user-123"),
		MethodArn:          testMethodArn,
	})
	require.NoError(t, err)
	assert.Equal(t, "user-123", decision.PrincipalID)

	decision, err = authorizer.HandleRequest(context.Background(), events.APIGatewayCustomAuthorizerRequest{
		Type:      "TOKEN",
		MethodArn: testMethodArn,
	})
	require.NoError(t, err)
	assert.Equal(t, EffectDeny, decision.Effect())
}

func TestDecision_JSON(t *testing.T) {
	body, err := json.Marshal(newDecision("user-123", EffectAllow, WildcardResource))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"principalId": "user-123",
		"policyDocument": {
			"Version": "2012-10-17",
			"Statement": [{"Action": "execute-api:Invoke", "Effect": "Allow", "Resource": "*"}]
		}
	}`, string(body))
}

func TestReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ReasonOK},
		{auth.ErrNoAuthHeader, ReasonMalformedHeader},
		{auth.ErrInvalidAuthHeader, ReasonMalformedHeader},
		{fmt.Errorf("%w: sig", auth.ErrInvalidSignature), ReasonInvalidSignature},
		{fmt.Errorf("%w: exp", auth.ErrTokenExpired), ReasonExpired},
		{fmt.Errorf("%w: json", auth.ErrMalformedToken), ReasonMalformedToken},
		{fmt.Errorf("%w: sub", auth.ErrMissingClaim), ReasonMissingClaim},
		{errors.New("boom"), ReasonError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Reason(tt.err))
	}
}

func TestAuthorize_ExpiredToken(t *testing.T) {
	key := tokens.NewRSAKey(t)
	keys := auth.NewStaticKeySourceFromKey(&key.PublicKey)
	authorizer := New(auth.NewVerifier(keys), zap.NewNop())

	token := tokens.SignRS256(t, key, "user-123", tokens.TokenOptions{
		IssuedAt:  time.Now().Add(-2 * time.Hour),
		ExpiresIn: time.Hour,
	})

	decision := authorizer.Authorize(context.Background(), "Bearer "+token, testMethodArn)
	assert.Equal(t, auth.DenyPrincipal, decision.PrincipalID)
	assert.Equal(t, EffectDeny, decision.Effect())
}
