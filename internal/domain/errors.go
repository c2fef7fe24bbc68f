// Package domain 汇集各路由共享的业务规则：记录归属校验、预约状态机、
// 打卡连续天数、心情建议表以及统计聚合。
//
// 这里的函数不访问存储，也不依赖 HTTP，便于单独测试。
package domain

import (
	"errors"
	"strings"
)

// 错误类别，处理器通过 errors.Is 映射为 HTTP 状态码。
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("not authorized")
	ErrForbidden       = errors.New("access denied")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidState    = errors.New("invalid state")
)

// Error 携带面向客户端的消息，并通过 Unwrap 暴露错误类别。
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// NotFound 返回 "<entity> not found"。记录不存在与无权访问使用同一错误。
func NotFound(entity string) error {
	return &Error{Kind: ErrNotFound, Message: entity + " not found"}
}

// Conflict 返回冲突错误。
func Conflict(msg string) error {
	return &Error{Kind: ErrConflict, Message: msg}
}

// InvalidState 返回状态不允许的错误。
func InvalidState(msg string) error {
	return &Error{Kind: ErrInvalidState, Message: msg}
}

// BadRequest 返回不针对具体字段的校验错误。
func BadRequest(msg string) error {
	return &Error{Kind: ErrValidation, Message: msg}
}

// Forbidden 返回权限不足错误。
func Forbidden(msg string) error {
	if msg == "" {
		msg = ErrForbidden.Error()
	}
	return &Error{Kind: ErrForbidden, Message: msg}
}

// Unauthenticated 返回未认证错误。
func Unauthenticated(msg string) error {
	if msg == "" {
		msg = ErrUnauthenticated.Error()
	}
	return &Error{Kind: ErrUnauthenticated, Message: msg}
}

// FieldError 单个字段的校验失败。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError 汇总多个字段错误。
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Add 追加字段错误。
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Err 没有字段错误时返回 nil。
func (e *ValidationError) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Invalid 返回单字段校验错误。
func Invalid(field, message string) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// Message 返回适合直接展示给客户端的消息。
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ErrValidation.Error()
	}
	return err.Error()
}
