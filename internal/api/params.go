package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/masoommulla/project-sub001/internal/api/middleware"
	"github.com/masoommulla/project-sub001/internal/api/response"
	"github.com/masoommulla/project-sub001/internal/domain"
	"github.com/masoommulla/project-sub001/internal/model"
	"github.com/masoommulla/project-sub001/internal/storage"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
)

// pageQuery 分页查询参数，page 从 1 开始。
type pageQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

func (q pageQuery) toPage() storage.Page {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	return storage.Page{Limit: limit, Offset: (page - 1) * limit}
}

func (s *Server) caller(c *gin.Context) *model.User {
	return middleware.CurrentUser(c)
}

// parseDate 解析 YYYY-MM-DD 或 RFC3339，空字符串返回 nil。
func parseDate(field, v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(model.DateLayout, v)
	if err != nil {
		return nil, domain.Invalid(field, field+" must be a date (YYYY-MM-DD or RFC3339)")
	}
	return &t, nil
}

// cleanList 去除空白项与首尾空格。
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// lowerList 与 cleanList 相同，但统一转小写，用于标签。
func lowerList(in []string) []string {
	out := cleanList(in)
	for i := range out {
		out[i] = strings.ToLower(out[i])
	}
	return out
}

// loadOwned 按 ID 加载用户私有记录并校验归属。记录不存在与无权访问返回同一个 404。
func loadOwned[T any](ctx context.Context, get func(context.Context, string) (*T, error), caller *model.User, id, entity string, owner func(*T) string) (*T, error) {
	v, err := get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, domain.NotFound(entity)
		}
		return nil, err
	}
	if err := domain.Authorize(caller, owner(v), entity); err != nil {
		return nil, err
	}
	return v, nil
}

// bindOptional 请求体为空时保留零值，否则按 Bind 解码。
func bindOptional(c *gin.Context, req any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return response.Bind(c, req)
}

// splitCSV 拆分逗号分隔的查询参数。
func splitCSV(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return cleanList(strings.Split(v, ","))
}
