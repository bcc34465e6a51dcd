package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"todo-api/domain"
)

type mockStore struct {
	todos      []domain.Todo
	categories []domain.Category
	err        error

	lastDraft    domain.NewTodo
	lastPatch    domain.TodoPatch
	lastReorder  []domain.OrderUpdate
	deletedIDs   []string
	createdNames []string
}

func (m *mockStore) ListTodos(ctx context.Context) ([]domain.Todo, error) {
	return m.todos, m.err
}

func (m *mockStore) GetTodo(ctx context.Context, id string) (*domain.Todo, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, t := range m.todos {
		if t.ID == id {
			cp := t
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockStore) CreateTodo(ctx context.Context, draft domain.NewTodo) (domain.Todo, error) {
	if m.err != nil {
		return domain.Todo{}, m.err
	}
	m.lastDraft = draft
	todo := domain.Todo{
		ID:          "3f0cba8c-9f4f-4e1a-a7b2-1f2a3b4c5d6e",
		Title:       draft.Title,
		Description: draft.Description,
		DueDate:     draft.DueDate,
		CreatedAt:   time.Now().UTC(),
		CategoryID:  draft.CategoryID,
		Order:       len(m.todos),
	}
	m.todos = append(m.todos, todo)
	return todo, nil
}

func (m *mockStore) UpdateTodo(ctx context.Context, id string, patch domain.TodoPatch) (*domain.Todo, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.todos {
		if m.todos[i].ID == id {
			m.lastPatch = patch
			patch.Apply(&m.todos[i])
			cp := m.todos[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockStore) DeleteTodo(ctx context.Context, id string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	for i, t := range m.todos {
		if t.ID == id {
			m.todos = append(m.todos[:i], m.todos[i+1:]...)
			m.deletedIDs = append(m.deletedIDs, id)
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) ReorderTodos(ctx context.Context, updates []domain.OrderUpdate) error {
	if m.err != nil {
		return m.err
	}
	m.lastReorder = updates
	return nil
}

func (m *mockStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return m.categories, m.err
}

func (m *mockStore) CreateCategory(ctx context.Context, name string) (domain.Category, error) {
	if m.err != nil {
		return domain.Category{}, m.err
	}
	for _, c := range m.categories {
		if strings.EqualFold(c.Name, name) {
			return domain.Category{}, domain.ErrDuplicateCategory
		}
	}
	m.createdNames = append(m.createdNames, name)
	cat := domain.Category{ID: "e3b49c1a-2f6d-4b9e-8a3c-5d7e9f0a1b2c", Name: name, CreatedAt: time.Now().UTC()}
	m.categories = append(m.categories, cat)
	return cat, nil
}

func (m *mockStore) DeleteCategory(ctx context.Context, id string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	for i, c := range m.categories {
		if c.ID == id {
			m.categories = append(m.categories[:i], m.categories[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

const validTodoID = "3f0cba8c-9f4f-4e1a-a7b2-1f2a3b4c5d6e"

func newContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := sonic.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid json response %q: %v", rec.Body.String(), err)
	}
}

func TestListTodos(t *testing.T) {
	store := &mockStore{todos: []domain.Todo{
		{ID: "a", Title: "one"},
		{ID: "b", Title: "two", IsCompleted: true},
	}}
	c, rec := newContext(t, http.MethodGet, "/api/todos?status=active", "")

	if err := listTodos(store, log.New())(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var page domain.Page
	decodeResponse(t, rec, &page)
	if len(page.Data) != 1 || page.Data[0].ID != "a" {
		t.Fatalf("unexpected page data: %#v", page.Data)
	}
	if page.Meta.Total != 1 || page.Meta.Page != 1 || page.Meta.Limit != 100 {
		t.Fatalf("unexpected meta: %+v", page.Meta)
	}
}

func TestListTodosMalformedPagingDefaults(t *testing.T) {
	store := &mockStore{todos: []domain.Todo{{ID: "a"}}}
	c, rec := newContext(t, http.MethodGet, "/api/todos?page=abc&limit=-3", "")

	if err := listTodos(store, log.New())(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("malformed paging must not be rejected, got %d", rec.Code)
	}
	var page domain.Page
	decodeResponse(t, rec, &page)
	if page.Meta.Page != 1 || page.Meta.Limit != 100 {
		t.Fatalf("expected normalized defaults, got %+v", page.Meta)
	}
}

func TestListTodosStorageError(t *testing.T) {
	store := &mockStore{err: errors.New("disk gone")}
	c, rec := newContext(t, http.MethodGet, "/api/todos", "")

	if err := listTodos(store, log.New())(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var resp messageResponse
	decodeResponse(t, rec, &resp)
	if strings.Contains(resp.Message, "disk gone") {
		t.Fatalf("internal error details leaked: %q", resp.Message)
	}
}

func TestGetTodoInvalidID(t *testing.T) {
	c, rec := newContext(t, http.MethodGet, "/api/todos/not-a-uuid", "")
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	if err := getTodo(&mockStore{})(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetTodoNotFound(t *testing.T) {
	c, rec := newContext(t, http.MethodGet, "/api/todos/"+validTodoID, "")
	c.SetParamNames("id")
	c.SetParamValues(validTodoID)

	if err := getTodo(&mockStore{})(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var resp messageResponse
	decodeResponse(t, rec, &resp)
	if resp.Message != "Todo not found" {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
}

func TestCreateTodo(t *testing.T) {
	store := &mockStore{}
	c, rec := newContext(t, http.MethodPost, "/api/todos",
		`{"title":"Write tests","categoryId":"1"}`)

	if err := createTodo(store)(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var todo domain.Todo
	decodeResponse(t, rec, &todo)
	if todo.Title != "Write tests" || todo.CategoryID != "1" {
		t.Fatalf("unexpected todo: %+v", todo)
	}
	if todo.IsCompleted {
		t.Fatalf("new todo must not be completed")
	}
	if store.lastDraft.DueDate.IsZero() {
		t.Fatalf("absent dueDate must default to creation time")
	}
}

func TestCreateTodoValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "missingTitle", body: `{"categoryId":"1"}`, want: "Title is required"},
		{name: "longTitle", body: `{"title":"` + strings.Repeat("x", 101) + `","categoryId":"1"}`, want: "Title too long"},
		{name: "missingCategory", body: `{"title":"a"}`, want: "Category ID is required"},
		{name: "badDueDate", body: `{"title":"a","categoryId":"1","dueDate":"tomorrow"}`, want: "Due date must be a valid RFC 3339 timestamp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(t, http.MethodPost, "/api/todos", tt.body)
			if err := createTodo(&mockStore{})(c); err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			var resp validationResponse
			decodeResponse(t, rec, &resp)
			if resp.Message != "Validation Error" {
				t.Fatalf("unexpected message: %q", resp.Message)
			}
			found := false
			for _, e := range resp.Errors {
				if e == tt.want {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected %q in %v", tt.want, resp.Errors)
			}
		})
	}
}

func TestUpdateTodoPartial(t *testing.T) {
	store := &mockStore{todos: []domain.Todo{
		{ID: validTodoID, Title: "old", Description: "keep", CategoryID: "1"},
	}}
	c, rec := newContext(t, http.MethodPatch, "/api/todos/"+validTodoID,
		`{"isCompleted":true}`)
	c.SetParamNames("id")
	c.SetParamValues(validTodoID)

	if err := updateTodo(store)(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var todo domain.Todo
	decodeResponse(t, rec, &todo)
	if !todo.IsCompleted || todo.Title != "old" || todo.Description != "keep" {
		t.Fatalf("partial update touched wrong fields: %+v", todo)
	}
	if store.lastPatch.Title != nil {
		t.Fatalf("absent fields must not be patched")
	}
}

func TestUpdateTodoNotFound(t *testing.T) {
	c, rec := newContext(t, http.MethodPut, "/api/todos/"+validTodoID, `{"title":"x"}`)
	c.SetParamNames("id")
	c.SetParamValues(validTodoID)

	if err := updateTodo(&mockStore{})(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDeleteTodo(t *testing.T) {
	store := &mockStore{todos: []domain.Todo{{ID: validTodoID}}}
	c, rec := newContext(t, http.MethodDelete, "/api/todos/"+validTodoID, "")
	c.SetParamNames("id")
	c.SetParamValues(validTodoID)

	if err := deleteTodo(store)(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	c, rec = newContext(t, http.MethodDelete, "/api/todos/"+validTodoID, "")
	c.SetParamNames("id")
	c.SetParamValues(validTodoID)
	if err := deleteTodo(store)(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestReorderTodos(t *testing.T) {
	store := &mockStore{}
	c, rec := newContext(t, http.MethodPut, "/api/todos/reorder",
		`{"items":[{"id":"A","order":1},{"id":"B","order":0}]}`)

	if err := reorderTodos(store)(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(store.lastReorder) != 2 || store.lastReorder[0].ID != "A" || store.lastReorder[0].Order != 1 {
		t.Fatalf("unexpected reorder payload: %#v", store.lastReorder)
	}
	var resp messageResponse
	decodeResponse(t, rec, &resp)
	if resp.Message != "Todos reordered successfully" {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
}

func TestReorderTodosMalformed(t *testing.T) {
	for _, body := range []string{`{}`, `{"items":null}`, `{"items":"nope"}`, `not json`} {
		c, rec := newContext(t, http.MethodPut, "/api/todos/reorder", body)
		if err := reorderTodos(&mockStore{})(c); err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestReorderTodosEmptyArrayAccepted(t *testing.T) {
	c, rec := newContext(t, http.MethodPut, "/api/todos/reorder", `{"items":[]}`)
	if err := reorderTodos(&mockStore{})(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("empty items array is valid, got %d", rec.Code)
	}
}

func TestReorderRouteNotShadowedByID(t *testing.T) {
	e := echo.New()
	store := &mockStore{}
	Register(e, store, log.New())

	req := httptest.NewRequest(http.MethodPut, "/api/todos/reorder",
		strings.NewReader(`{"items":[{"id":"A","order":0}]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected reorder route to win over /:id, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateCategoryConflict(t *testing.T) {
	store := &mockStore{categories: []domain.Category{{ID: "1", Name: "Work"}}}
	c, rec := newContext(t, http.MethodPost, "/api/categories", `{"name":"work"}`)

	if err := createCategory(store)(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if len(store.categories) != 1 {
		t.Fatalf("conflict must not grow the collection")
	}
	var resp validationResponse
	decodeResponse(t, rec, &resp)
	if resp.Message != "Conflict" || len(resp.Errors) == 0 {
		t.Fatalf("unexpected conflict response: %+v", resp)
	}
}

func TestCreateCategory(t *testing.T) {
	store := &mockStore{}
	c, rec := newContext(t, http.MethodPost, "/api/categories", `{"name":"Errands"}`)

	if err := createCategory(store)(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var cat domain.Category
	decodeResponse(t, rec, &cat)
	if cat.Name != "Errands" || cat.ID == "" {
		t.Fatalf("unexpected category: %+v", cat)
	}
}

func TestCreateCategoryValidation(t *testing.T) {
	for _, body := range []string{`{}`, `{"name":""}`, `{"name":"` + strings.Repeat("x", 51) + `"}`} {
		c, rec := newContext(t, http.MethodPost, "/api/categories", body)
		if err := createCategory(&mockStore{})(c); err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestDeleteCategoryGrandfatheredID(t *testing.T) {
	store := &mockStore{categories: []domain.Category{{ID: "1", Name: "Work"}}}
	c, rec := newContext(t, http.MethodDelete, "/api/categories/1", "")
	c.SetParamNames("id")
	c.SetParamValues("1")

	if err := deleteCategory(store)(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("grandfathered id must be accepted, got %d", rec.Code)
	}
}

func TestDeleteCategoryInvalidID(t *testing.T) {
	c, rec := newContext(t, http.MethodDelete, "/api/categories/42", "")
	c.SetParamNames("id")
	c.SetParamValues("42")

	if err := deleteCategory(&mockStore{})(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-uuid non-grandfathered id, got %d", rec.Code)
	}
}

func TestDeleteCategoryNotFound(t *testing.T) {
	c, rec := newContext(t, http.MethodDelete, "/api/categories/"+validTodoID, "")
	c.SetParamNames("id")
	c.SetParamValues(validTodoID)

	if err := deleteCategory(&mockStore{})(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListCategories(t *testing.T) {
	store := &mockStore{categories: []domain.Category{
		{ID: "1", Name: "Work"},
		{ID: "2", Name: "Personal"},
	}}
	c, rec := newContext(t, http.MethodGet, "/api/categories", "")

	if err := listCategories(store)(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var cats []domain.Category
	decodeResponse(t, rec, &cats)
	if len(cats) != 2 {
		t.Fatalf("unexpected categories: %#v", cats)
	}
}
