// Package gormstore 实现基于 GORM 的 storage.Store，支持 MySQL 与 PostgreSQL。
//
// 列表与子记录以 JSON 列保存（serializer:json），表结构由 AutoMigrate 维护。
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/masoommulla/project-sub001/internal/model"
	"github.com/masoommulla/project-sub001/internal/storage"
)

// Store GORM 存储。
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// Open 按驱动名连接数据库并执行迁移。driver 取 mysql 或 postgres。
func Open(driver, dsn string, logger *slog.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("gormstore: unsupported driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("gormstore: open %s: %w", driver, err)
	}
	s := New(db, logger)
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// New 包装已有连接，不执行迁移。
func New(db *gorm.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Migrate 创建或更新全部表。
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(
		&model.User{},
		&model.OneTimePasscode{},
		&model.MoodEntry{},
		&model.JournalEntry{},
		&model.Todo{},
		&model.StudyPlan{},
		&model.Appointment{},
		&model.Therapist{},
		&model.Resource{},
		&model.Conversation{},
		&model.ChatMessage{},
	); err != nil {
		return fmt.Errorf("gormstore: auto migrate: %w", err)
	}
	s.logger.Info("database migrated")
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// wrapError 把 GORM 错误转换为存储层错误。
func wrapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return storage.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return storage.ErrDuplicate
	}
	return err
}

func first[T any](db *gorm.DB, query string, args ...any) (*T, error) {
	var v T
	if err := db.Where(query, args...).First(&v).Error; err != nil {
		return nil, wrapError(err)
	}
	return &v, nil
}

func create(db *gorm.DB, v any) error {
	return wrapError(db.Create(v).Error)
}

// replace 按主键覆盖全部列。MySQL 在值未变化时 RowsAffected 为 0，需再确认记录是否存在。
// replace 覆盖整行，omit 中的列保持数据库中的值。
func replace[T any](db *gorm.DB, id string, v *T, omit ...string) error {
	q := db.Model(v).Select("*")
	if len(omit) > 0 {
		q = q.Omit(omit...)
	}
	res := q.Updates(v)
	if res.Error != nil {
		return wrapError(res.Error)
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := db.Model(new(T)).Where("id = ?", id).Count(&n).Error; err != nil {
			return wrapError(err)
		}
		if n == 0 {
			return storage.ErrNotFound
		}
	}
	return nil
}

func deleteByID[T any](db *gorm.DB, id string) error {
	res := db.Where("id = ?", id).Delete(new(T))
	if res.Error != nil {
		return wrapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func page(db *gorm.DB, p storage.Page) *gorm.DB {
	if p.Limit > 0 {
		db = db.Limit(p.Limit)
	}
	if p.Offset > 0 {
		db = db.Offset(p.Offset)
	}
	return db
}

func list[T any](db *gorm.DB) ([]T, error) {
	out := make([]T, 0)
	if err := db.Find(&out).Error; err != nil {
		return nil, wrapError(err)
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern 构造不区分大小写的子串匹配参数，配合 LOWER(col) LIKE ? 使用。
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

// jsonElemPattern 匹配 JSON 字符串数组中的某个元素。
func jsonElemPattern(s string) string {
	return `%"` + likeEscaper.Replace(strings.ToLower(s)) + `"%`
}
