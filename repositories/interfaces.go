package repositories

import (
	"context"

	"github.com/upb/serverless-todos/models"
)

// TodoRepository handles todo item data operations
type TodoRepository interface {
	// GetAllTodos retrieves every todo owned by userID, oldest first
	GetAllTodos(ctx context.Context, userID string) ([]*models.TodoItem, error)
}

// Repositories holds all repository instances
type Repositories struct {
	Todos TodoRepository
}
