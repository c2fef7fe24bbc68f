// Package response 统一 API 的 JSON 信封与错误映射。
//
// 所有接口都返回 {success, message, data, count, error, errors}：
// 领域错误映射为对应状态码与客户端可见消息；其余错误记录日志并返回 "server error"，
// 开发模式下额外附带错误详情与调用栈。
package response

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/masoommulla/project-sub001/internal/domain"
	"github.com/masoommulla/project-sub001/internal/storage"
)

// Envelope 响应信封。
type Envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    any                 `json:"data,omitempty"`
	Count   *int                `json:"count,omitempty"`
	Error   string              `json:"error,omitempty"`
	Errors  []domain.FieldError `json:"errors,omitempty"`
	Stack   string              `json:"stack,omitempty"`
}

func init() {
	binding.EnableDecoderDisallowUnknownFields = true
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	}
}

// OK 200 成功响应。
func OK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

// Created 201 成功响应。
func Created(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

// List 列表响应，count 为本次返回的条数。
func List[T any](c *gin.Context, items []T) {
	if items == nil {
		items = []T{}
	}
	n := len(items)
	c.JSON(http.StatusOK, Envelope{Success: true, Data: items, Count: &n})
}

// Abort 以指定状态码和消息终止请求，用于中间件。
func Abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Message: message})
}

// Writer 负责错误响应，持有日志与开发模式开关。
type Writer struct {
	logger *slog.Logger
	dev    bool
}

// NewWriter 创建错误响应器。
func NewWriter(logger *slog.Logger, dev bool) *Writer {
	return &Writer{logger: logger, dev: dev}
}

// Error 把错误映射为响应并终止请求。
func (w *Writer) Error(c *gin.Context, err error) {
	status, env := w.envelope(c, err)
	c.AbortWithStatusJSON(status, env)
}

func (w *Writer) envelope(c *gin.Context, err error) (int, Envelope) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, Envelope{Message: domain.ErrValidation.Error(), Errors: ve.Fields}
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, Envelope{Message: domain.Message(err)}
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, Envelope{Message: domain.Message(err)}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, Envelope{Message: domain.Message(err)}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, Envelope{Message: domain.Message(err)}
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, Envelope{Message: "resource not found"}
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict, Envelope{Message: domain.Message(err)}
	case errors.Is(err, storage.ErrDuplicate):
		return http.StatusConflict, Envelope{Message: "duplicate record"}
	}

	attrs := []any{
		slog.String("error", err.Error()),
		slog.String("method", c.Request.Method),
		slog.String("path", c.FullPath()),
	}
	if uid, ok := c.Get(UserIDKey); ok {
		attrs = append(attrs, slog.Any("user_id", uid))
	}
	w.logger.Error("request failed", attrs...)

	env := Envelope{Message: "server error"}
	if w.dev {
		env.Error = err.Error()
		env.Stack = string(debug.Stack())
	}
	return http.StatusInternalServerError, env
}

// UserIDKey 鉴权中间件在 gin 上下文中保存用户 ID 的键，用于错误日志。
const UserIDKey = "userID"

// Bind 解码 JSON 请求体并执行字段校验，失败时返回 *domain.ValidationError。
func Bind(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return translateBindError(err)
	}
	return nil
}

// BindQuery 解析查询参数。
func BindQuery(c *gin.Context, req any) error {
	if err := c.ShouldBindQuery(req); err != nil {
		return translateBindError(err)
	}
	return nil
}

func translateBindError(err error) error {
	ve := &domain.ValidationError{}

	var verrs validator.ValidationErrors
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &verrs):
		for _, fe := range verrs {
			ve.Add(fieldPath(fe), fieldMessage(fe))
		}
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		ve.Add("body", "malformed JSON")
	case errors.Is(err, io.EOF):
		ve.Add("body", "request body is required")
	case errors.As(err, &typeErr):
		ve.Add(typeErr.Field, "must be a "+typeErr.Type.String())
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		ve.Add(field, "unknown field")
	default:
		ve.Add("body", err.Error())
	}
	return ve
}

// fieldPath 去掉顶层结构体名，保留嵌套路径，如 payment.amount。
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return name + " must be a valid email"
	case "min":
		if fe.Kind() == reflect.String {
			return name + " must be at least " + fe.Param() + " characters"
		}
		return name + " must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return name + " must be at most " + fe.Param() + " characters"
		}
		return name + " must be at most " + fe.Param()
	case "oneof":
		return name + " must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "len":
		return name + " must be " + fe.Param() + " characters"
	case "numeric":
		return name + " must contain only digits"
	case "datetime":
		return name + " must match " + fe.Param()
	case "url":
		return name + " must be a valid URL"
	case "dive":
		return name + " contains an invalid value"
	}
	return name + " is invalid"
}
