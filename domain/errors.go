package domain

import "errors"

// ErrDuplicateCategory indicates a category name collision under
// case-insensitive comparison.
var ErrDuplicateCategory = errors.New("category name already exists")
