package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/masoommulla/project-sub001/internal/model"
)

// ---- UserStore ----

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	return insertOne(ctx, s.col(ColUsers), u)
}

func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	return findOne[model.User](ctx, s.col(ColUsers), byID(id))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return findOne[model.User](ctx, s.col(ColUsers), bson.D{{Key: "email", Value: email}})
}

func (s *Store) UpdateUser(ctx context.Context, u *model.User) error {
	return replaceByID(ctx, s.col(ColUsers), u.ID, u)
}

func (s *Store) DeleteAccount(ctx context.Context, userID string) error {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	owned := bson.D{{Key: "user_id", Value: userID}}
	for _, name := range []string{ColMoods, ColJournals, ColTodos, ColStudyPlans, ColAppointments} {
		if _, err := deleteMany(ctx, s.col(name), owned); err != nil {
			return fmt.Errorf("delete %s: %w", name, err)
		}
	}

	convs, err := s.ListConversations(ctx, userID)
	if err != nil {
		return err
	}
	if len(convs) > 0 {
		ids := make(bson.A, 0, len(convs))
		for _, c := range convs {
			ids = append(ids, c.ID)
		}
		if _, err := deleteMany(ctx, s.col(ColMessages), bson.D{{Key: "conversation_id", Value: bson.D{{Key: "$in", Value: ids}}}}); err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		if _, err := deleteMany(ctx, s.col(ColConversations), bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}); err != nil {
			return fmt.Errorf("delete conversations: %w", err)
		}
	}

	if err := s.DeleteOTPsByEmail(ctx, u.Email); err != nil {
		return err
	}
	if _, err := s.col(ColTherapists).UpdateMany(ctx, owned, bson.D{{Key: "$set", Value: bson.D{
		{Key: "is_available", Value: false},
		{Key: "updated_at", Value: time.Now()},
	}}}); err != nil {
		return fmt.Errorf("detach therapist profile: %w", wrapError(err))
	}
	return deleteByID(ctx, s.col(ColUsers), userID)
}

// ---- OTPStore ----

func (s *Store) CreateOTP(ctx context.Context, o *model.OneTimePasscode) error {
	return insertOne(ctx, s.col(ColOTPs), o)
}

func (s *Store) LatestOTP(ctx context.Context, email string) (*model.OneTimePasscode, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findOne[model.OneTimePasscode](ctx, s.col(ColOTPs), bson.D{{Key: "email", Value: email}}, opts)
}

func (s *Store) UpdateOTP(ctx context.Context, o *model.OneTimePasscode) error {
	return replaceByID(ctx, s.col(ColOTPs), o.ID, o)
}

func (s *Store) DeleteOTP(ctx context.Context, id string) error {
	return deleteByID(ctx, s.col(ColOTPs), id)
}

func (s *Store) DeleteOTPsByEmail(ctx context.Context, email string) error {
	_, err := deleteMany(ctx, s.col(ColOTPs), bson.D{{Key: "email", Value: email}})
	return err
}

func (s *Store) DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	return deleteMany(ctx, s.col(ColOTPs), bson.D{{Key: "expires_at", Value: bson.D{{Key: "$lte", Value: now}}}})
}
