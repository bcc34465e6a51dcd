package domain

import "time"

// Todo represents a single tracked task.
type Todo struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"dueDate"`
	CreatedAt   time.Time `json:"createdAt"`
	IsCompleted bool      `json:"isCompleted"`
	CategoryID  string    `json:"categoryId"`
	Order       int       `json:"order"`
}

// NewTodo carries the client-supplied fields of a todo to create. The
// repository assigns id, createdAt, completion state and order.
type NewTodo struct {
	Title       string
	Description string
	DueDate     time.Time
	CategoryID  string
}

// TodoPatch is a partial update; nil fields are left untouched.
type TodoPatch struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	CategoryID  *string
	IsCompleted *bool
}

// Apply copies the set fields onto the todo.
func (p TodoPatch) Apply(t *Todo) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.CategoryID != nil {
		t.CategoryID = *p.CategoryID
	}
	if p.IsCompleted != nil {
		t.IsCompleted = *p.IsCompleted
	}
}

// Category is a named grouping of todos.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}
