// Package storage 定义持久化层接口与领域错误。
//
// 具体实现位于子包：mongostore（默认）、gormstore（MySQL / PostgreSQL）、
// memstore（测试与本地开发）。各实现负责把底层错误转换为这里的错误。
package storage

import "errors"

var (
	// ErrNotFound 记录不存在，替代 mongo.ErrNoDocuments / gorm.ErrRecordNotFound。
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate 唯一键冲突：重复邮箱、重复时段占用。
	ErrDuplicate = errors.New("duplicate: entity already exists")
)
