package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/serverless-todos/authorizer"
	"github.com/upb/serverless-todos/utils"
)

// Authorizer produces an allow/deny decision for a bearer header
type Authorizer interface {
	Authorize(ctx context.Context, authHeader, methodArn string) authorizer.Decision
}

// AuthMiddleware runs the authorizer in front of local HTTP routes,
// standing in for the API Gateway custom authorizer
type AuthMiddleware struct {
	authorizer Authorizer
	logger     *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(authorizer Authorizer, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authorizer: authorizer,
		logger:     logger,
	}
}

// RequireAuth rejects requests without a bearer header with 401 and denied
// requests with 403. Allowed requests carry the decision and principal in context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.logger.Warn("missing authorization header",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Unauthorized")
			return
		}

		decision := m.authorizer.Authorize(ctx, authHeader, methodArn(r))
		if !decision.Allowed() {
			m.logger.Warn("request denied by authorizer",
				zap.String("request_id", requestID),
				zap.String("path", r.URL.Path))
			_ = utils.WriteForbidden(w, "User is not authorized to access this resource")
			return
		}

		ctx = WithDecision(ctx, &decision)
		ctx = WithUserID(ctx, decision.PrincipalID)

		m.logger.Debug("authorization successful",
			zap.String("request_id", requestID),
			zap.String("principal_id", decision.PrincipalID))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// methodArn mimics the "<method>/<path>" tail of an execute-api ARN for local requests
func methodArn(r *http.Request) string {
	return "local/" + r.Method + r.URL.Path
}
