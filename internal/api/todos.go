package api

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/masoommulla/project-sub001/internal/api/response"
	"github.com/masoommulla/project-sub001/internal/domain"
	"github.com/masoommulla/project-sub001/internal/model"
	"github.com/masoommulla/project-sub001/internal/storage"
)

type createTodoRequest struct {
	Text     string `json:"text" binding:"required,max=500"`
	Category string `json:"category" binding:"omitempty,oneof=personal school health social other"`
	Priority string `json:"priority" binding:"omitempty,oneof=low medium high"`
	DueDate  string `json:"dueDate"`
}

type updateTodoRequest struct {
	Text      *string `json:"text" binding:"omitempty,min=1,max=500"`
	Category  *string `json:"category" binding:"omitempty,oneof=personal school health social other"`
	Priority  *string `json:"priority" binding:"omitempty,oneof=low medium high"`
	Completed *bool   `json:"completed"`
	// DueDate 为空字符串时清除截止时间。
	DueDate *string `json:"dueDate"`
}

type listTodosQuery struct {
	Category  string `form:"category" binding:"omitempty,oneof=personal school health social other"`
	Priority  string `form:"priority" binding:"omitempty,oneof=low medium high"`
	Completed *bool  `form:"completed"`
	pageQuery
}

func (s *Server) handleCreateTodo(c *gin.Context) {
	var req createTodoRequest
	if err := response.Bind(c, &req); err != nil {
		s.resp.Error(c, err)
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		s.resp.Error(c, domain.Invalid("text", "text is required"))
		return
	}
	due, err := parseDate("dueDate", req.DueDate)
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	now := s.now()
	t := &model.Todo{
		ID:        uuid.NewString(),
		UserID:    s.caller(c).ID,
		Text:      text,
		Category:  req.Category,
		Priority:  req.Priority,
		DueDate:   due,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if t.Category == "" {
		t.Category = model.TodoCategoryPersonal
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	if err := s.store.CreateTodo(c.Request.Context(), t); err != nil {
		s.resp.Error(c, err)
		return
	}
	response.Created(c, "todo created", t)
}

func (s *Server) handleListTodos(c *gin.Context) {
	var q listTodosQuery
	if err := response.BindQuery(c, &q); err != nil {
		s.resp.Error(c, err)
		return
	}
	todos, err := s.store.ListTodos(c.Request.Context(), storage.TodoFilter{
		UserID:    s.caller(c).ID,
		Category:  q.Category,
		Priority:  q.Priority,
		Completed: q.Completed,
		Page:      q.toPage(),
	})
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	response.List(c, todos)
}

func (s *Server) handleTodoStats(c *gin.Context) {
	todos, err := s.store.ListTodos(c.Request.Context(), storage.TodoFilter{UserID: s.caller(c).ID})
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "", domain.TodoStats(todos, s.now()))
}

func (s *Server) handleGetTodo(c *gin.Context) {
	t, err := s.loadTodo(c.Request.Context(), s.caller(c), c.Param("id"))
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "", t)
}

func (s *Server) handleUpdateTodo(c *gin.Context) {
	var req updateTodoRequest
	if err := response.Bind(c, &req); err != nil {
		s.resp.Error(c, err)
		return
	}
	ctx := c.Request.Context()
	t, err := s.loadTodo(ctx, s.caller(c), c.Param("id"))
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	now := s.now()
	if req.Text != nil {
		if text := strings.TrimSpace(*req.Text); text != "" {
			t.Text = text
		}
	}
	if req.Category != nil {
		t.Category = *req.Category
	}
	if req.Priority != nil {
		t.Priority = *req.Priority
	}
	if req.DueDate != nil {
		due, err := parseDate("dueDate", *req.DueDate)
		if err != nil {
			s.resp.Error(c, err)
			return
		}
		t.DueDate = due
	}
	if req.Completed != nil && *req.Completed != t.Completed {
		t.SetCompleted(*req.Completed, now)
	}
	t.UpdatedAt = now
	if err := s.store.UpdateTodo(ctx, t); err != nil {
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "todo updated", t)
}

// handleToggleTodo 翻转完成状态；取消完成时清空 completedAt。
func (s *Server) handleToggleTodo(c *gin.Context) {
	ctx := c.Request.Context()
	t, err := s.loadTodo(ctx, s.caller(c), c.Param("id"))
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	now := s.now()
	t.SetCompleted(!t.Completed, now)
	t.UpdatedAt = now
	if err := s.store.UpdateTodo(ctx, t); err != nil {
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "todo updated", t)
}

func (s *Server) handleDeleteTodo(c *gin.Context) {
	ctx := c.Request.Context()
	t, err := s.loadTodo(ctx, s.caller(c), c.Param("id"))
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	if err := s.store.DeleteTodo(ctx, t.ID); err != nil {
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "todo deleted", nil)
}

// handleClearCompletedTodos DELETE /todos/completed
func (s *Server) handleClearCompletedTodos(c *gin.Context) {
	n, err := s.store.DeleteCompletedTodos(c.Request.Context(), s.caller(c).ID)
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "completed todos cleared", gin.H{"deleted": n})
}

func (s *Server) loadTodo(ctx context.Context, caller *model.User, id string) (*model.Todo, error) {
	return loadOwned(ctx, s.store.GetTodo, caller, id, "todo", func(t *model.Todo) string { return t.UserID })
}
