package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"todo-api/domain"
)

// requestBodyMaxSize caps decoded request payloads.
const requestBodyMaxSize = 10 << 20

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Storage, logger *log.Logger) {
	g := e.Group("/api")
	g.GET("/todos", listTodos(store, logger))
	g.GET("/todos/:id", getTodo(store))
	g.POST("/todos", createTodo(store))
	g.PUT("/todos/reorder", reorderTodos(store))
	g.PUT("/todos/:id", updateTodo(store))
	g.PATCH("/todos/:id", updateTodo(store))
	g.DELETE("/todos/:id", deleteTodo(store))
	g.GET("/categories", listCategories(store))
	g.POST("/categories", createCategory(store))
	g.DELETE("/categories/:id", deleteCategory(store))
	e.GET("/healthz", healthz(store))
}

func healthz(_ Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	return sonic.ConfigStd.NewDecoder(lr).Decode(v)
}

func listTodos(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx, metrics := newListRequestMetrics(c.Request().Context(), logger)
		c.SetRequest(c.Request().WithContext(ctx))
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		params := domain.QueryParams{
			Status: c.QueryParam("status"),
			Search: c.QueryParam("search"),
			SortBy: c.QueryParam("sortBy"),
		}
		// Malformed page and limit values normalize to the defaults; they
		// are never rejected.
		if v, parseErr := strconv.Atoi(strings.TrimSpace(c.QueryParam("page"))); parseErr == nil {
			params.Page = v
		}
		if v, parseErr := strconv.Atoi(strings.TrimSpace(c.QueryParam("limit"))); parseErr == nil {
			params.Limit = v
		}

		fetchStart := time.Now()
		todos, fetchErr := store.ListTodos(ctx)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(fetchErr)
			err = c.JSON(http.StatusInternalServerError, messageResponse{Message: "An internal server error occurred"})
			return err
		}

		page := domain.BuildPage(todos, params)
		metrics.SetTodosReturned(len(page.Data))
		metrics.SetTotal(page.Meta.Total)

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, page)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func getTodo(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		if !isValidUUID(id) {
			return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid todo ID format"})
		}
		todo, err := store.GetTodo(c.Request().Context(), id)
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, messageResponse{Message: "An internal server error occurred"})
		}
		if todo == nil {
			return c.JSON(http.StatusNotFound, messageResponse{Message: "Todo not found"})
		}
		return c.JSON(http.StatusOK, todo)
	}
}

func createTodo(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createTodoRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, validationResponse{Message: "Validation Error", Errors: []string{"Invalid request body"}})
		}
		draft, errs := req.validate()
		if errs != nil {
			return c.JSON(http.StatusBadRequest, validationResponse{Message: "Validation Error", Errors: errs})
		}
		todo, err := store.CreateTodo(c.Request().Context(), draft)
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, messageResponse{Message: "An internal server error occurred"})
		}
		return c.JSON(http.StatusCreated, todo)
	}
}

func updateTodo(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		if !isValidUUID(id) {
			return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid todo ID format"})
		}
		var req updateTodoRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, validationResponse{Message: "Validation Error", Errors: []string{"Invalid request body"}})
		}
		patch, errs := req.validate()
		if errs != nil {
			return c.JSON(http.StatusBadRequest, validationResponse{Message: "Validation Error", Errors: errs})
		}
		todo, err := store.UpdateTodo(c.Request().Context(), id, patch)
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, messageResponse{Message: "An internal server error occurred"})
		}
		if todo == nil {
			return c.JSON(http.StatusNotFound, messageResponse{Message: "Todo not found"})
		}
		return c.JSON(http.StatusOK, todo)
	}
}

func deleteTodo(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		if !isValidUUID(id) {
			return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid todo ID format"})
		}
		deleted, err := store.DeleteTodo(c.Request().Context(), id)
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, messageResponse{Message: "An internal server error occurred"})
		}
		if !deleted {
			return c.JSON(http.StatusNotFound, messageResponse{Message: "Todo not found"})
		}
		return c.NoContent(http.StatusNoContent)
	}
}

type reorderRequest struct {
	Items []domain.OrderUpdate `json:"items"`
}

func reorderTodos(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req reorderRequest
		if err := decodeBody(c, &req); err != nil || req.Items == nil {
			return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid format. Expected items array."})
		}
		if err := store.ReorderTodos(c.Request().Context(), req.Items); err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Failed to reorder todos"})
		}
		return c.JSON(http.StatusOK, messageResponse{Message: "Todos reordered successfully"})
	}
}

func listCategories(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		categories, err := store.ListCategories(c.Request().Context())
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, messageResponse{Message: "An internal server error occurred"})
		}
		return c.JSON(http.StatusOK, categories)
	}
}

func createCategory(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createCategoryRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, validationResponse{Message: "Validation Error", Errors: []string{"Invalid request body"}})
		}
		if errs := req.validate(); errs != nil {
			return c.JSON(http.StatusBadRequest, validationResponse{Message: "Validation Error", Errors: errs})
		}
		cat, err := store.CreateCategory(c.Request().Context(), req.Name)
		if err != nil {
			if errors.Is(err, domain.ErrDuplicateCategory) {
				return c.JSON(http.StatusConflict, validationResponse{
					Message: "Conflict",
					Errors:  []string{fmt.Sprintf("Category with name %q already exists", req.Name)},
				})
			}
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, messageResponse{Message: "An internal server error occurred"})
		}
		return c.JSON(http.StatusCreated, cat)
	}
}

func deleteCategory(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		if !isValidCategoryID(id) {
			return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid category ID format"})
		}
		deleted, err := store.DeleteCategory(c.Request().Context(), id)
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, messageResponse{Message: "An internal server error occurred"})
		}
		if !deleted {
			return c.JSON(http.StatusNotFound, messageResponse{Message: "Category not found"})
		}
		return c.NoContent(http.StatusNoContent)
	}
}
