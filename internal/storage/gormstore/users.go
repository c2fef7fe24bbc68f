package gormstore

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/masoommulla/project-sub001/internal/model"
)

// ---- UserStore ----

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	return create(s.conn(ctx), u)
}

func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	return first[model.User](s.conn(ctx), "id = ?", id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return first[model.User](s.conn(ctx), "email = ?", email)
}

func (s *Store) UpdateUser(ctx context.Context, u *model.User) error {
	return replace(s.conn(ctx), u.ID, u)
}

// DeleteAccount 在一个事务内清理用户名下数据。
func (s *Store) DeleteAccount(ctx context.Context, userID string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := first[model.User](tx, "id = ?", userID)
		if err != nil {
			return err
		}
		for _, m := range []any{&model.MoodEntry{}, &model.JournalEntry{}, &model.Todo{}, &model.StudyPlan{}, &model.Appointment{}} {
			if err := tx.Where("user_id = ?", userID).Delete(m).Error; err != nil {
				return wrapError(err)
			}
		}

		var convIDs []string
		if err := tx.Model(&model.Conversation{}).
			Where("LOWER(participants) LIKE ?", jsonElemPattern(userID)).
			Pluck("id", &convIDs).Error; err != nil {
			return wrapError(err)
		}
		if len(convIDs) > 0 {
			if err := tx.Where("conversation_id IN ?", convIDs).Delete(&model.ChatMessage{}).Error; err != nil {
				return wrapError(err)
			}
			if err := tx.Where("id IN ?", convIDs).Delete(&model.Conversation{}).Error; err != nil {
				return wrapError(err)
			}
		}

		if err := tx.Where("email = ?", u.Email).Delete(&model.OneTimePasscode{}).Error; err != nil {
			return wrapError(err)
		}
		if err := tx.Model(&model.Therapist{}).Where("user_id = ?", userID).
			Updates(map[string]any{"is_available": false, "updated_at": time.Now()}).Error; err != nil {
			return wrapError(err)
		}
		return deleteByID[model.User](tx, userID)
	})
}

// ---- OTPStore ----

func (s *Store) CreateOTP(ctx context.Context, o *model.OneTimePasscode) error {
	return create(s.conn(ctx), o)
}

func (s *Store) LatestOTP(ctx context.Context, email string) (*model.OneTimePasscode, error) {
	var o model.OneTimePasscode
	err := s.conn(ctx).Where("email = ?", email).Order("created_at DESC").First(&o).Error
	if err != nil {
		return nil, wrapError(err)
	}
	return &o, nil
}

func (s *Store) UpdateOTP(ctx context.Context, o *model.OneTimePasscode) error {
	return replace(s.conn(ctx), o.ID, o)
}

func (s *Store) DeleteOTP(ctx context.Context, id string) error {
	return deleteByID[model.OneTimePasscode](s.conn(ctx), id)
}

func (s *Store) DeleteOTPsByEmail(ctx context.Context, email string) error {
	return wrapError(s.conn(ctx).Where("email = ?", email).Delete(&model.OneTimePasscode{}).Error)
}

func (s *Store) DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	res := s.conn(ctx).Where("expires_at <= ?", now).Delete(&model.OneTimePasscode{})
	return res.RowsAffected, wrapError(res.Error)
}
