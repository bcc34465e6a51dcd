package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"todo-api/domain"
)

type backend interface {
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

const (
	todosCacheKey      = "todos"
	categoriesCacheKey = "categories"
)

// Cache wraps a store with Redis-backed caching for the list reads. Every
// mutation passes through to the base store and evicts both list keys, so a
// hit can never serve a pre-mutation snapshot. Redis being down or holding
// corrupt entries degrades to the base store without failing requests.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) ListTodos(ctx context.Context) ([]domain.Todo, error) {
	if todos, ok := loadCached[[]domain.Todo](ctx, c, todosCacheKey); ok {
		return todos, nil
	}
	todos, err := c.base.ListTodos(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, todosCacheKey, todos)
	return todos, nil
}

func (c *Cache) ListCategories(ctx context.Context) ([]domain.Category, error) {
	if categories, ok := loadCached[[]domain.Category](ctx, c, categoriesCacheKey); ok {
		return categories, nil
	}
	categories, err := c.base.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, categoriesCacheKey, categories)
	return categories, nil
}

// GetTodo always hits the base store; single-item reads are cheap there and
// caching them would multiply the keys to keep coherent.
func (c *Cache) GetTodo(ctx context.Context, id string) (*domain.Todo, error) {
	return c.base.GetTodo(ctx, id)
}

func (c *Cache) CreateTodo(ctx context.Context, draft domain.NewTodo) (domain.Todo, error) {
	todo, err := c.base.CreateTodo(ctx, draft)
	if err != nil {
		return domain.Todo{}, err
	}
	c.evict(ctx)
	return todo, nil
}

func (c *Cache) UpdateTodo(ctx context.Context, id string, patch domain.TodoPatch) (*domain.Todo, error) {
	todo, err := c.base.UpdateTodo(ctx, id, patch)
	if err != nil || todo == nil {
		return todo, err
	}
	c.evict(ctx)
	return todo, nil
}

func (c *Cache) DeleteTodo(ctx context.Context, id string) (bool, error) {
	deleted, err := c.base.DeleteTodo(ctx, id)
	if err != nil || !deleted {
		return deleted, err
	}
	c.evict(ctx)
	return true, nil
}

func (c *Cache) ReorderTodos(ctx context.Context, updates []domain.OrderUpdate) error {
	if err := c.base.ReorderTodos(ctx, updates); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) CreateCategory(ctx context.Context, name string) (domain.Category, error) {
	cat, err := c.base.CreateCategory(ctx, name)
	if err != nil {
		return domain.Category{}, err
	}
	c.evict(ctx)
	return cat, nil
}

func (c *Cache) DeleteCategory(ctx context.Context, id string) (bool, error) {
	deleted, err := c.base.DeleteCategory(ctx, id)
	if err != nil || !deleted {
		return deleted, err
	}
	c.evict(ctx)
	return true, nil
}

func loadCached[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var zero T
	if c.redis == nil {
		return zero, false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the base store without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return zero, false
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return zero, false
	}
	return value, true
}

func (c *Cache) store(ctx context.Context, key string, value any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, todosCacheKey, categoriesCacheKey).Result()
}
