package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/upb/serverless-todos/models"
	"github.com/upb/serverless-todos/repositories"
)

// TodoRepository implements the repositories.TodoRepository interface
type TodoRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewTodoRepository creates a new todo repository
func NewTodoRepository(db *DB, logger *zap.Logger) repositories.TodoRepository {
	return &TodoRepository{
		db:     db,
		logger: logger,
	}
}

// GetAllTodos retrieves all todos owned by userID ordered by creation time
func (r *TodoRepository) GetAllTodos(ctx context.Context, userID string) ([]*models.TodoItem, error) {
	query := `
		SELECT user_id, todo_id, created_at, name, due_date, done, attachment_url
		FROM todos
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get todos: %w", err)
	}
	defer rows.Close()

	items := make([]*models.TodoItem, 0)
	for rows.Next() {
		item := &models.TodoItem{}
		var attachmentURL sql.NullString

		if err := rows.Scan(
			&item.UserID,
			&item.TodoID,
			&item.CreatedAt,
			&item.Name,
			&item.DueDate,
			&item.Done,
			&attachmentURL,
		); err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}

		item.AttachmentURL = attachmentURL.String
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating todos: %w", err)
	}

	r.logger.Debug("todos fetched",
		zap.String("user_id", userID),
		zap.Int("count", len(items)))

	return items, nil
}
