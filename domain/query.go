package domain

import (
	"sort"
	"strings"
)

// Status filter values accepted by the query engine.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Sort keys accepted by the query engine.
const (
	SortByCreatedAt = "createdAt"
	SortByDueDate   = "dueDate"
)

const (
	DefaultPage  = 1
	DefaultLimit = 100
)

// QueryParams selects, orders and pages a todo collection. Zero or negative
// Page/Limit fall back to the defaults instead of failing.
type QueryParams struct {
	Status string
	Search string
	SortBy string
	Page   int
	Limit  int
}

// PageMeta describes the pagination window of a result.
type PageMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// Page is a filtered, sorted and paginated view over a todo collection.
type Page struct {
	Data []Todo   `json:"data"`
	Meta PageMeta `json:"meta"`
}

// BuildPage applies status filter, search filter, sort and pagination, in
// that order. The order matters: pagination totals count the filtered set.
// The input slice is never mutated; when no sort key is given the relative
// input order is preserved, and the sort itself is stable so equal keys keep
// their input order too.
func BuildPage(todos []Todo, params QueryParams) Page {
	result := make([]Todo, 0, len(todos))

	switch params.Status {
	case StatusActive:
		for _, t := range todos {
			if !t.IsCompleted {
				result = append(result, t)
			}
		}
	case StatusCompleted:
		for _, t := range todos {
			if t.IsCompleted {
				result = append(result, t)
			}
		}
	default:
		result = append(result, todos...)
	}

	if term := strings.ToLower(params.Search); term != "" {
		filtered := result[:0]
		for _, t := range result {
			if strings.Contains(strings.ToLower(t.Title), term) ||
				(t.Description != "" && strings.Contains(strings.ToLower(t.Description), term)) {
				filtered = append(filtered, t)
			}
		}
		result = filtered
	}

	switch params.SortBy {
	case SortByCreatedAt:
		// Newest first.
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		})
	case SortByDueDate:
		// Soonest first.
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].DueDate.Before(result[j].DueDate)
		})
	}

	page := params.Page
	if page <= 0 {
		page = DefaultPage
	}
	limit := params.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	total := len(result)
	totalPages := (total + limit - 1) / limit
	offset := (page - 1) * limit

	data := []Todo{}
	if offset < total {
		end := offset + limit
		if end > total {
			end = total
		}
		data = result[offset:end]
	}

	return Page{
		Data: data,
		Meta: PageMeta{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: totalPages,
		},
	}
}
