package api

import (
	"context"

	"todo-api/domain"
)

// Storage abstracts persistence for handlers.
type Storage interface {
	ListTodos(ctx context.Context) ([]domain.Todo, error)
	GetTodo(ctx context.Context, id string) (*domain.Todo, error)
	CreateTodo(ctx context.Context, draft domain.NewTodo) (domain.Todo, error)
	UpdateTodo(ctx context.Context, id string, patch domain.TodoPatch) (*domain.Todo, error)
	DeleteTodo(ctx context.Context, id string) (bool, error)
	ReorderTodos(ctx context.Context, updates []domain.OrderUpdate) error
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, name string) (domain.Category, error)
	DeleteCategory(ctx context.Context, id string) (bool, error)
}

type messageResponse struct {
	Message string `json:"message"`
}

type validationResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}
