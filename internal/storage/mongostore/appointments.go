package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/masoommulla/project-sub001/internal/model"
	"github.com/masoommulla/project-sub001/internal/storage"
)

var finishedStatuses = bson.A{model.AppointmentCompleted, model.AppointmentCancelled, model.AppointmentNoShow}

// CreateAppointment 插入预约；slot_key 唯一索引冲突时返回 storage.ErrDuplicate。
func (s *Store) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	return insertOne(ctx, s.col(ColAppointments), a)
}

func (s *Store) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	return findOne[model.Appointment](ctx, s.col(ColAppointments), byID(id))
}

func (s *Store) ListAppointments(ctx context.Context, f storage.AppointmentFilter) ([]model.Appointment, error) {
	filter := bson.D{}
	if f.UserID != "" {
		filter = append(filter, bson.E{Key: "user_id", Value: f.UserID})
	}
	if f.TherapistID != "" {
		filter = append(filter, bson.E{Key: "therapist_id", Value: f.TherapistID})
	}
	if f.Date != "" {
		filter = append(filter, bson.E{Key: "date", Value: f.Date})
	} else if f.FromDate != "" {
		filter = append(filter, bson.E{Key: "date", Value: bson.D{{Key: "$gte", Value: f.FromDate}}})
	}
	if len(f.Statuses) > 0 {
		statuses := make(bson.A, 0, len(f.Statuses))
		for _, st := range f.Statuses {
			statuses = append(statuses, st)
		}
		filter = append(filter, bson.E{Key: "status", Value: bson.D{{Key: "$in", Value: statuses}}})
	}
	dir := -1
	if f.Ascending {
		dir = 1
	}
	sort := bson.D{{Key: "date", Value: dir}, {Key: "start_time", Value: dir}}
	return findMany[model.Appointment](ctx, s.col(ColAppointments), filter, findOptions(sort, f.Page))
}

// UpdateAppointment 整条覆盖，SlotKey 为 nil 时 slot_key 字段被移除，时段随之释放。
func (s *Store) UpdateAppointment(ctx context.Context, a *model.Appointment) error {
	return replaceByID(ctx, s.col(ColAppointments), a.ID, a)
}

func (s *Store) DeleteAppointment(ctx context.Context, id string) error {
	return deleteByID(ctx, s.col(ColAppointments), id)
}

func (s *Store) FindSlotConflict(ctx context.Context, therapistID, date, startTime, excludeID string) (*model.Appointment, error) {
	filter := bson.D{
		{Key: "therapist_id", Value: therapistID},
		{Key: "date", Value: date},
		{Key: "start_time", Value: startTime},
		{Key: "status", Value: bson.D{{Key: "$ne", Value: model.AppointmentCancelled}}},
	}
	if excludeID != "" {
		filter = append(filter, bson.E{Key: "_id", Value: bson.D{{Key: "$ne", Value: excludeID}}})
	}
	return findOne[model.Appointment](ctx, s.col(ColAppointments), filter)
}

func (s *Store) DeleteFinishedAppointments(ctx context.Context, userID string) (int64, error) {
	return deleteMany(ctx, s.col(ColAppointments), bson.D{
		{Key: "user_id", Value: userID},
		{Key: "status", Value: bson.D{{Key: "$in", Value: finishedStatuses}}},
	})
}

func (s *Store) ReviewRatings(ctx context.Context, therapistID string) ([]int, error) {
	filter := bson.D{
		{Key: "therapist_id", Value: therapistID},
		{Key: "review", Value: bson.D{{Key: "$exists", Value: true}}},
	}
	opts := options.Find().SetProjection(bson.D{{Key: "review.rating", Value: 1}})
	docs, err := findMany[model.Appointment](ctx, s.col(ColAppointments), filter, opts)
	if err != nil {
		return nil, err
	}
	ratings := make([]int, 0, len(docs))
	for _, d := range docs {
		if d.Review != nil {
			ratings = append(ratings, d.Review.Rating)
		}
	}
	return ratings, nil
}
