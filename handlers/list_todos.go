package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/upb/serverless-todos/internal/observability"
	"github.com/upb/serverless-todos/middleware"
	"github.com/upb/serverless-todos/models"
	"github.com/upb/serverless-todos/services"
	"github.com/upb/serverless-todos/utils"
)

// List-todos outcomes used as metric labels
const (
	listStatusSuccess    = "success"
	listStatusNoIdentity = "no_identity"
	listStatusError      = "error"
)

// TodoLister fetches the todos owned by a user
type TodoLister interface {
	GetAllTodos(ctx context.Context, userID string) ([]*models.TodoItem, error)
}

// IdentityResolver resolves the calling user of a proxy request
type IdentityResolver interface {
	UserID(ctx context.Context, request events.APIGatewayProxyRequest) (string, error)
}

// ListTodosResponse is the body returned by the list-todos endpoint
type ListTodosResponse struct {
	Items []*models.TodoItem `json:"items"`
}

// TodosHandler serves the list-todos endpoint for Lambda and net/http
type TodosHandler struct {
	todos    TodoLister
	identity IdentityResolver
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewTodosHandler creates a new TodosHandler
func NewTodosHandler(todos TodoLister, identity IdentityResolver, metrics *observability.Metrics, logger *zap.Logger) *TodosHandler {
	return &TodosHandler{
		todos:    todos,
		identity: identity,
		metrics:  metrics,
		logger:   logger,
	}
}

// responseHeaders are set on every successful list-todos response
func responseHeaders() map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":      "*",
		"Access-Control-Allow-Credentials": "true",
		"Content-Type":                     "application/json",
	}
}

// HandleGetTodos is the Lambda proxy entrypoint. Identity and storage failures
// are returned to the runtime unchanged.
func (h *TodosHandler) HandleGetTodos(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	start := time.Now()
	defer h.metrics.ObserveDuration("get_todos", start)

	requestID := observability.RequestID(ctx)
	h.logger.Info("processing list todos request",
		zap.String("request_id", requestID),
		zap.String("method", request.HTTPMethod),
		zap.String("path", request.Path))

	userID, err := h.identity.UserID(ctx, request)
	if err != nil {
		h.metrics.RecordListRequest(listStatusNoIdentity)
		h.logger.Error("failed to resolve caller identity",
			zap.String("request_id", requestID),
			zap.Error(err))
		return events.APIGatewayProxyResponse{}, services.NewDomainError(services.ErrorTypeUnauthorized, "no caller identity", err)
	}

	items, err := h.list(ctx, requestID, userID)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	body, err := json.Marshal(ListTodosResponse{Items: items})
	if err != nil {
		h.metrics.RecordListRequest(listStatusError)
		return events.APIGatewayProxyResponse{}, fmt.Errorf("failed to encode todos: %w", err)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    responseHeaders(),
		Body:       string(body),
	}, nil
}

// ListTodos handles GET /todos behind the auth middleware
func (h *TodosHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer h.metrics.ObserveDuration("get_todos", start)

	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	userID := middleware.GetUserIDFromContext(ctx)
	if userID == "" {
		h.metrics.RecordListRequest(listStatusNoIdentity)
		HandleServiceError(w, services.ErrNoIdentity, h.logger)
		return
	}

	items, err := h.list(ctx, requestID, userID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	for key, value := range responseHeaders() {
		w.Header().Set(key, value)
	}
	if err := utils.WriteJSON(w, http.StatusOK, ListTodosResponse{Items: items}); err != nil {
		h.logger.Error("failed to write todos response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}

func (h *TodosHandler) list(ctx context.Context, requestID, userID string) ([]*models.TodoItem, error) {
	items, err := h.todos.GetAllTodos(ctx, userID)
	if err != nil {
		h.metrics.RecordListRequest(listStatusError)
		h.logger.Error("failed to list todos",
			zap.String("request_id", requestID),
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, err
	}

	if items == nil {
		items = []*models.TodoItem{}
	}

	h.metrics.RecordListRequest(listStatusSuccess)
	h.logger.Info("todos listed",
		zap.String("request_id", requestID),
		zap.String("user_id", userID),
		zap.Int("count", len(items)))

	return items, nil
}
