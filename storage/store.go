package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"todo-api/domain"
)

// snapshot is the persisted document: the whole collection in one file.
type snapshot struct {
	Todos      []domain.Todo     `json:"todos"`
	Categories []domain.Category `json:"categories"`
}

// FileStore keeps the todo collection in memory and persists every mutation
// as one atomically replaced JSON document. Mutations run serialized under a
// single lock; the in-memory snapshot is only swapped after the document is
// durably on disk, so a failed write never leaves memory ahead of the file.
type FileStore struct {
	path string

	mu   sync.RWMutex
	data snapshot
}

// New loads the snapshot at path, seeding a fresh store with the default
// categories when the file does not exist yet. It must be called before the
// server accepts requests; there is no lazy initialization.
func New(path string) (*FileStore, error) {
	s := &FileStore{path: path}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &s.data); err != nil {
			return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		now := time.Now().UTC()
		s.data = snapshot{
			Todos: []domain.Todo{},
			Categories: []domain.Category{
				{ID: "1", Name: "Work", CreatedAt: now},
				{ID: "2", Name: "Personal", CreatedAt: now},
			},
		}
		if err := s.persist(s.data); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}

	if s.data.Todos == nil {
		s.data.Todos = []domain.Todo{}
	}
	if s.data.Categories == nil {
		s.data.Categories = []domain.Category{}
	}
	return s, nil
}

// persist writes the snapshot using the temp-file, fsync, rename pattern so
// readers of the data file never observe a partial write.
func (s *FileStore) persist(data snapshot) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// commit persists next and, on success, makes it the live snapshot.
// Callers must hold the write lock.
func (s *FileStore) commit(next snapshot) error {
	if err := s.persist(next); err != nil {
		return err
	}
	s.data = next
	return nil
}

func cloneTodos(src []domain.Todo) []domain.Todo {
	out := make([]domain.Todo, len(src))
	copy(out, src)
	return out
}

func cloneCategories(src []domain.Category) []domain.Category {
	out := make([]domain.Category, len(src))
	copy(out, src)
	return out
}

// ListTodos returns a copy of every todo in insertion order.
func (s *FileStore) ListTodos(ctx context.Context) ([]domain.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTodos(s.data.Todos), nil
}

// GetTodo returns the todo with the given id, or nil when absent.
func (s *FileStore) GetTodo(ctx context.Context, id string) (*domain.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.data.Todos {
		if t.ID == id {
			cp := t
			return &cp, nil
		}
	}
	return nil, nil
}

// CreateTodo appends a new todo. The repository owns id, createdAt,
// completion state and the manual order position; the order counter is flat
// across categories. The referenced category is not checked for existence.
func (s *FileStore) CreateTodo(ctx context.Context, draft domain.NewTodo) (domain.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	todo := domain.Todo{
		ID:          uuid.NewString(),
		Title:       draft.Title,
		Description: draft.Description,
		DueDate:     draft.DueDate,
		CreatedAt:   time.Now().UTC(),
		IsCompleted: false,
		CategoryID:  draft.CategoryID,
		Order:       domain.AppendPosition(len(s.data.Todos)),
	}

	next := s.data
	next.Todos = append(cloneTodos(s.data.Todos), todo)
	if err := s.commit(next); err != nil {
		return domain.Todo{}, err
	}
	return todo, nil
}

// UpdateTodo applies a partial update and returns the updated todo, or nil
// when no todo has the given id.
func (s *FileStore) UpdateTodo(ctx context.Context, id string, patch domain.TodoPatch) (*domain.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, t := range s.data.Todos {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, nil
	}

	next := s.data
	next.Todos = cloneTodos(s.data.Todos)
	patch.Apply(&next.Todos[idx])
	if err := s.commit(next); err != nil {
		return nil, err
	}
	cp := next.Todos[idx]
	return &cp, nil
}

// DeleteTodo removes the todo with the given id and reports whether it
// existed. Order values of the remaining todos are left as they are.
func (s *FileStore) DeleteTodo(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	remaining := make([]domain.Todo, 0, len(s.data.Todos))
	for _, t := range s.data.Todos {
		if t.ID != id {
			remaining = append(remaining, t)
		}
	}
	if len(remaining) == len(s.data.Todos) {
		return false, nil
	}

	next := s.data
	next.Todos = remaining
	if err := s.commit(next); err != nil {
		return false, err
	}
	return true, nil
}

// ReorderTodos applies the given order assignments in one persisted write.
// Ids that match nothing are skipped silently, so retrying the same payload
// is harmless.
func (s *FileStore) ReorderTodos(ctx context.Context, updates []domain.OrderUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data
	next.Todos = cloneTodos(s.data.Todos)
	applied := domain.ApplyOrderUpdates(next.Todos, updates)
	if err := s.commit(next); err != nil {
		return err
	}
	log.WithFields(log.Fields{"requested": len(updates), "applied": applied}).Debug("todos reordered")
	return nil
}

// ListCategories returns a copy of every category.
func (s *FileStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneCategories(s.data.Categories), nil
}

// CreateCategory adds a category, rejecting names that collide with an
// existing one under case-insensitive comparison.
func (s *FileStore) CreateCategory(ctx context.Context, name string) (domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.data.Categories {
		if strings.EqualFold(c.Name, name) {
			return domain.Category{}, fmt.Errorf("category %q: %w", name, domain.ErrDuplicateCategory)
		}
	}

	cat := domain.Category{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	next := s.data
	next.Categories = append(cloneCategories(s.data.Categories), cat)
	if err := s.commit(next); err != nil {
		return domain.Category{}, err
	}
	return cat, nil
}

// DeleteCategory removes the category and every todo that references it,
// committed together as one snapshot. It reports false, without mutating
// anything, when the category does not exist.
func (s *FileStore) DeleteCategory(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	categories := make([]domain.Category, 0, len(s.data.Categories))
	for _, c := range s.data.Categories {
		if c.ID != id {
			categories = append(categories, c)
		}
	}
	if len(categories) == len(s.data.Categories) {
		return false, nil
	}

	todos := make([]domain.Todo, 0, len(s.data.Todos))
	for _, t := range s.data.Todos {
		if t.CategoryID != id {
			todos = append(todos, t)
		}
	}
	removed := len(s.data.Todos) - len(todos)

	next := snapshot{Todos: todos, Categories: categories}
	if err := s.commit(next); err != nil {
		return false, err
	}
	log.WithFields(log.Fields{"category": id, "todos_removed": removed}).Info("category deleted with cascade")
	return true, nil
}
