package models

import (
	"time"

	"github.com/google/uuid"
)

// TodoItem is a single todo owned by a user
type TodoItem struct {
	UserID        string    `json:"userId" db:"user_id"`
	TodoID        string    `json:"todoId" db:"todo_id"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	Name          string    `json:"name" db:"name"`
	DueDate       string    `json:"dueDate" db:"due_date"`
	Done          bool      `json:"done" db:"done"`
	AttachmentURL string    `json:"attachmentUrl,omitempty" db:"attachment_url"`
}

// TableName returns the table name for the TodoItem model
func (TodoItem) TableName() string {
	return "todos"
}

// NewTodoItem creates a pending TodoItem for userID
func NewTodoItem(userID, name, dueDate string) *TodoItem {
	return &TodoItem{
		UserID:    userID,
		TodoID:    uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Name:      name,
		DueDate:   dueDate,
	}
}

// OwnedBy reports whether the item belongs to userID
func (t *TodoItem) OwnedBy(userID string) bool {
	return t.UserID == userID
}

// HasAttachment returns true if an attachment URL is set
func (t *TodoItem) HasAttachment() bool {
	return t.AttachmentURL != ""
}
