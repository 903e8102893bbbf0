package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/serverless-todos/auth"
	"github.com/upb/serverless-todos/authorizer"
	"github.com/upb/serverless-todos/internal/testutil"
)

// MockAuthorizer is a mock implementation of Authorizer
type MockAuthorizer struct {
	mock.Mock
}

func (m *MockAuthorizer) Authorize(ctx context.Context, authHeader, methodArn string) authorizer.Decision {
	args := m.Called(ctx, authHeader, methodArn)
	return args.Get(0).(authorizer.Decision)
}

func decision(principal, effect string) authorizer.Decision {
	return authorizer.Decision{
		PrincipalID: principal,
		PolicyDocument: authorizer.PolicyDocument{
			Version: authorizer.PolicyVersion,
			Statement: []authorizer.Statement{
				{Action: authorizer.InvokeAction, Effect: effect, Resource: authorizer.WildcardResource},
			},
		},
	}
}

func TestRequireAuth(t *testing.T) {
	logger := zap.NewNop()

	t.Run("allowed request carries principal", func(t *testing.T) {
		mockAuthorizer := new(MockAuthorizer)
		middleware := NewAuthMiddleware(mockAuthorizer, logger)

		mockAuthorizer.On("Authorize", mock.Anything, "Bearer valid-token", "local/GET/todos").
			Return(decision("user-123", authorizer.EffectAllow))

		handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			assert.Equal(t, "user-123", GetUserIDFromContext(ctx))

			d := GetDecisionFromContext(ctx)
			require.NotNil(t, d)
			assert.True(t, d.Allowed())

			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/todos", nil)
		req.Header.Set("Authorization", "Bearer valid-token")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockAuthorizer.AssertExpectations(t)
	})

	t.Run("missing header returns 401", func(t *testing.T) {
		mockAuthorizer := new(MockAuthorizer)
		middleware := NewAuthMiddleware(mockAuthorizer, logger)

		handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))

		req := httptest.NewRequest(http.MethodGet, "/todos", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		mockAuthorizer.AssertNotCalled(t, "Authorize")
	})

	t.Run("deny returns 403", func(t *testing.T) {
		mockAuthorizer := new(MockAuthorizer)
		middleware := NewAuthMiddleware(mockAuthorizer, logger)

		mockAuthorizer.On("Authorize", mock.Anything, "Bearer garbage", mock.Anything).
			Return(decision(auth.DenyPrincipal, authorizer.EffectDeny))

		handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))

		req := httptest.NewRequest(http.MethodGet, "/todos", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		mockAuthorizer.AssertExpectations(t)
	})

	t.Run("real authorizer end to end", func(t *testing.T) {
		key := testutil.NewRSAKey(t)
		keys := auth.NewStaticKeySourceFromKey(&key.PublicKey)
		middleware := NewAuthMiddleware(authorizer.New(auth.NewVerifier(keys), logger), logger)

		handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(GetUserIDFromContext(r.Context())))
		}))

		req := httptest.NewRequest(http.MethodGet, "/todos", nil)
		req.Header.Set("Authorization", "Bearer "+testutil.SignRS256(t, key, "user-123"))
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "user-123", w.Body.String())
	})
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, GetRequestIDFromContext(ctx))
	assert.Empty(t, GetUserIDFromContext(ctx))
	assert.Nil(t, GetDecisionFromContext(ctx))

	ctx = WithRequestID(ctx, "req-1")
	ctx = WithUserID(ctx, "user-123")

	assert.Equal(t, "req-1", GetRequestIDFromContext(ctx))
	assert.Equal(t, "user-123", GetUserIDFromContext(ctx))
}
