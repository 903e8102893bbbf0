package middleware

import (
	"context"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/upb/serverless-todos/authorizer"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// DecisionKey is the context key for the authorizer decision
	DecisionKey contextKey = "decision"

	// UserIDKey is the context key for user ID
	UserIDKey contextKey = "user_id"
)

// GetRequestIDFromContext retrieves the request ID from context,
// falling back to the id assigned by chi's RequestID middleware
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return chimiddleware.GetReqID(ctx)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetDecisionFromContext retrieves the authorizer decision from context
func GetDecisionFromContext(ctx context.Context) *authorizer.Decision {
	if val := ctx.Value(DecisionKey); val != nil {
		if decision, ok := val.(*authorizer.Decision); ok {
			return decision
		}
	}
	return nil
}

// WithDecision adds the authorizer decision to the context
func WithDecision(ctx context.Context, decision *authorizer.Decision) context.Context {
	return context.WithValue(ctx, DecisionKey, decision)
}

// GetUserIDFromContext retrieves the user ID from context
func GetUserIDFromContext(ctx context.Context) string {
	if val := ctx.Value(UserIDKey); val != nil {
		if userID, ok := val.(string); ok {
			return userID
		}
	}
	return ""
}

// WithUserID adds a user ID to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}
