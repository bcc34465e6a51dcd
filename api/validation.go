package api

import (
	"regexp"
	"time"

	"todo-api/domain"
)

var uuidPattern = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// isValidUUID accepts canonical hyphenated UUIDs only; braced and URN forms
// are rejected on purpose.
func isValidUUID(id string) bool {
	return uuidPattern.MatchString(id)
}

// grandfatheredCategoryIDs are the two seeded categories that predate UUID
// identifiers and stay addressable.
var grandfatheredCategoryIDs = map[string]bool{"1": true, "2": true}

func isValidCategoryID(id string) bool {
	return isValidUUID(id) || grandfatheredCategoryIDs[id]
}

const (
	maxTitleLen        = 100
	maxCategoryNameLen = 50
)

type createTodoRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"dueDate"`
	CategoryID  string  `json:"categoryId"`
}

// validate returns the draft to create, or the list of human-readable
// validation failures. An absent dueDate defaults to the current time.
func (r createTodoRequest) validate() (domain.NewTodo, []string) {
	var errs []string
	if r.Title == "" {
		errs = append(errs, "Title is required")
	} else if len(r.Title) > maxTitleLen {
		errs = append(errs, "Title too long")
	}
	if r.CategoryID == "" {
		errs = append(errs, "Category ID is required")
	}

	dueDate := time.Now().UTC()
	if r.DueDate != nil && *r.DueDate != "" {
		parsed, err := time.Parse(time.RFC3339, *r.DueDate)
		if err != nil {
			errs = append(errs, "Due date must be a valid RFC 3339 timestamp")
		} else {
			dueDate = parsed
		}
	}
	if errs != nil {
		return domain.NewTodo{}, errs
	}

	draft := domain.NewTodo{
		Title:      r.Title,
		DueDate:    dueDate,
		CategoryID: r.CategoryID,
	}
	if r.Description != nil {
		draft.Description = *r.Description
	}
	return draft, nil
}

type updateTodoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"dueDate"`
	CategoryID  *string `json:"categoryId"`
	IsCompleted *bool   `json:"isCompleted"`
}

// validate returns the partial update to apply; absent fields stay untouched.
func (r updateTodoRequest) validate() (domain.TodoPatch, []string) {
	var errs []string
	if r.Title != nil {
		if *r.Title == "" {
			errs = append(errs, "Title is required")
		} else if len(*r.Title) > maxTitleLen {
			errs = append(errs, "Title too long")
		}
	}
	if r.CategoryID != nil && *r.CategoryID == "" {
		errs = append(errs, "Category ID is required")
	}

	patch := domain.TodoPatch{
		Title:       r.Title,
		Description: r.Description,
		CategoryID:  r.CategoryID,
		IsCompleted: r.IsCompleted,
	}
	if r.DueDate != nil {
		parsed, err := time.Parse(time.RFC3339, *r.DueDate)
		if err != nil {
			errs = append(errs, "Due date must be a valid RFC 3339 timestamp")
		} else {
			patch.DueDate = &parsed
		}
	}
	if errs != nil {
		return domain.TodoPatch{}, errs
	}
	return patch, nil
}

type createCategoryRequest struct {
	Name string `json:"name"`
}

func (r createCategoryRequest) validate() []string {
	var errs []string
	if r.Name == "" {
		errs = append(errs, "Name is required")
	} else if len(r.Name) > maxCategoryNameLen {
		errs = append(errs, "Name too long")
	}
	return errs
}
