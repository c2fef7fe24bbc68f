package gormstore

import (
	"context"

	"github.com/masoommulla/project-sub001/internal/model"
	"github.com/masoommulla/project-sub001/internal/storage"
)

var finishedStatuses = []string{model.AppointmentCompleted, model.AppointmentCancelled, model.AppointmentNoShow}

// CreateAppointment 插入预约；slot_key 唯一索引冲突时返回 storage.ErrDuplicate。
// 多个 NULL 不违反唯一约束，已释放的时段不会互相冲突。
func (s *Store) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	return create(s.conn(ctx), a)
}

func (s *Store) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	return first[model.Appointment](s.conn(ctx), "id = ?", id)
}

func (s *Store) ListAppointments(ctx context.Context, f storage.AppointmentFilter) ([]model.Appointment, error) {
	q := s.conn(ctx)
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.TherapistID != "" {
		q = q.Where("therapist_id = ?", f.TherapistID)
	}
	if f.Date != "" {
		q = q.Where("date = ?", f.Date)
	} else if f.FromDate != "" {
		q = q.Where("date >= ?", f.FromDate)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.Ascending {
		q = q.Order("date ASC").Order("start_time ASC")
	} else {
		q = q.Order("date DESC").Order("start_time DESC")
	}
	return list[model.Appointment](page(q, f.Page))
}

func (s *Store) UpdateAppointment(ctx context.Context, a *model.Appointment) error {
	return replace(s.conn(ctx), a.ID, a)
}

func (s *Store) DeleteAppointment(ctx context.Context, id string) error {
	return deleteByID[model.Appointment](s.conn(ctx), id)
}

func (s *Store) FindSlotConflict(ctx context.Context, therapistID, date, startTime, excludeID string) (*model.Appointment, error) {
	q := s.conn(ctx).Where("therapist_id = ? AND date = ? AND start_time = ? AND status <> ?",
		therapistID, date, startTime, model.AppointmentCancelled)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var a model.Appointment
	if err := q.First(&a).Error; err != nil {
		return nil, wrapError(err)
	}
	return &a, nil
}

func (s *Store) DeleteFinishedAppointments(ctx context.Context, userID string) (int64, error) {
	res := s.conn(ctx).Where("user_id = ? AND status IN ?", userID, finishedStatuses).Delete(&model.Appointment{})
	return res.RowsAffected, wrapError(res.Error)
}

func (s *Store) ReviewRatings(ctx context.Context, therapistID string) ([]int, error) {
	var appts []model.Appointment
	err := s.conn(ctx).Select("id", "review").
		Where("therapist_id = ? AND review IS NOT NULL", therapistID).
		Find(&appts).Error
	if err != nil {
		return nil, wrapError(err)
	}
	ratings := make([]int, 0, len(appts))
	for _, a := range appts {
		if a.Review != nil {
			ratings = append(ratings, a.Review.Rating)
		}
	}
	return ratings, nil
}
