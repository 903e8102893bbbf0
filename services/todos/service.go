package todos

import (
	"context"

	"go.uber.org/zap"

	"github.com/upb/serverless-todos/models"
	"github.com/upb/serverless-todos/repositories"
	"github.com/upb/serverless-todos/services"
	"github.com/upb/serverless-todos/utils"
)

// Service exposes todo operations scoped to a single owner
type Service struct {
	repo   repositories.TodoRepository
	logger *zap.Logger
}

// NewService creates a new todos Service
func NewService(repo repositories.TodoRepository, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// GetAllTodos returns every todo owned by userID. The result is never nil.
func (s *Service) GetAllTodos(ctx context.Context, userID string) ([]*models.TodoItem, error) {
	if err := utils.ValidateRequired(userID, "userId"); err != nil {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "invalid input", err).
			WithDetail("field", "userId")
	}

	items, err := s.repo.GetAllTodos(ctx, userID)
	if err != nil {
		s.logger.Error("failed to fetch todos",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, services.WrapInternal("failed to list todos", err)
	}

	if items == nil {
		items = []*models.TodoItem{}
	}

	s.logger.Debug("todos listed",
		zap.String("user_id", userID),
		zap.Int("count", len(items)))

	return items, nil
}
