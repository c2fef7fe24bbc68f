package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/masoommulla/project-sub001/internal/model"
	"github.com/masoommulla/project-sub001/internal/storage"
)

// ---- TherapistStore ----

func (s *Store) CreateTherapist(ctx context.Context, t *model.Therapist) error {
	return insertOne(ctx, s.col(ColTherapists), t)
}

func (s *Store) GetTherapist(ctx context.Context, id string) (*model.Therapist, error) {
	return findOne[model.Therapist](ctx, s.col(ColTherapists), byID(id))
}

func (s *Store) GetTherapistByUser(ctx context.Context, userID string) (*model.Therapist, error) {
	return findOne[model.Therapist](ctx, s.col(ColTherapists), bson.D{{Key: "user_id", Value: userID}})
}

func (s *Store) ListTherapists(ctx context.Context, f storage.TherapistFilter) ([]model.Therapist, error) {
	filter := bson.D{}
	if f.Specialty != "" {
		filter = append(filter, bson.E{Key: "specialties", Value: exactFold(f.Specialty)})
	}
	if f.Language != "" {
		filter = append(filter, bson.E{Key: "languages", Value: exactFold(f.Language)})
	}
	if f.SessionType != "" {
		filter = append(filter, bson.E{Key: "session_types", Value: f.SessionType})
	}
	if f.Featured != nil {
		filter = append(filter, bson.E{Key: "is_featured", Value: *f.Featured})
	}
	if f.AvailableOnly {
		filter = append(filter, bson.E{Key: "is_available", Value: true})
	}
	if f.MinRating > 0 {
		filter = append(filter, bson.E{Key: "rating", Value: bson.D{{Key: "$gte", Value: f.MinRating}}})
	}
	if f.MaxFee > 0 {
		filter = append(filter, bson.E{Key: "session_fee", Value: bson.D{{Key: "$lte", Value: f.MaxFee}}})
	}
	if f.Search != "" {
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "name", Value: contains(f.Search)}},
			bson.D{{Key: "title", Value: contains(f.Search)}},
			bson.D{{Key: "bio", Value: contains(f.Search)}},
			bson.D{{Key: "specialties", Value: contains(f.Search)}},
		}})
	}

	var sort bson.D
	switch f.Sort {
	case "experience":
		sort = bson.D{{Key: "years_experience", Value: -1}}
	case "fee":
		sort = bson.D{{Key: "session_fee", Value: 1}}
	case "recent":
		sort = newestFirst
	default:
		sort = bson.D{{Key: "rating", Value: -1}, {Key: "review_count", Value: -1}}
	}
	return findMany[model.Therapist](ctx, s.col(ColTherapists), filter, findOptions(sort, f.Page))
}

// UpdateTherapist 只写资料字段；评分、评价数与会话数由各自的原子更新维护。
func (s *Store) UpdateTherapist(ctx context.Context, t *model.Therapist) error {
	return updateByID(ctx, s.col(ColTherapists), t.ID, bson.D{{Key: "$set", Value: bson.D{
		{Key: "user_id", Value: t.UserID},
		{Key: "name", Value: t.Name},
		{Key: "email", Value: t.Email},
		{Key: "title", Value: t.Title},
		{Key: "bio", Value: t.Bio},
		{Key: "specialties", Value: nonNil(t.Specialties)},
		{Key: "qualifications", Value: t.Qualifications},
		{Key: "languages", Value: nonNil(t.Languages)},
		{Key: "years_experience", Value: t.YearsExperience},
		{Key: "session_types", Value: nonNil(t.SessionTypes)},
		{Key: "session_fee", Value: t.SessionFee},
		{Key: "availability", Value: t.Availability},
		{Key: "avatar", Value: t.Avatar},
		{Key: "is_verified", Value: t.IsVerified},
		{Key: "is_featured", Value: t.IsFeatured},
		{Key: "is_available", Value: t.IsAvailable},
		{Key: "updated_at", Value: t.UpdatedAt},
	}}})
}

func (s *Store) DeleteTherapist(ctx context.Context, id string) error {
	return deleteByID(ctx, s.col(ColTherapists), id)
}

func (s *Store) SetTherapistRating(ctx context.Context, id string, rating float64, reviewCount int) error {
	return updateByID(ctx, s.col(ColTherapists), id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "rating", Value: rating},
		{Key: "review_count", Value: reviewCount},
		{Key: "updated_at", Value: time.Now()},
	}}})
}

func (s *Store) IncrementTherapistSessions(ctx context.Context, id string) error {
	return updateByID(ctx, s.col(ColTherapists), id, bson.D{{Key: "$inc", Value: bson.D{{Key: "total_sessions", Value: 1}}}})
}

// ---- ResourceStore ----

// liked_by 必须是数组，$addToSet 不能作用于 null。
func normalizeResource(r *model.Resource) {
	if r.LikedBy == nil {
		r.LikedBy = []string{}
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
}

func (s *Store) CreateResource(ctx context.Context, r *model.Resource) error {
	normalizeResource(r)
	return insertOne(ctx, s.col(ColResources), r)
}

func (s *Store) GetResource(ctx context.Context, id string) (*model.Resource, error) {
	return findOne[model.Resource](ctx, s.col(ColResources), byID(id))
}

func (s *Store) ListResources(ctx context.Context, f storage.ResourceFilter) ([]model.Resource, error) {
	filter := bson.D{}
	if f.Category != "" {
		filter = append(filter, bson.E{Key: "category", Value: f.Category})
	}
	if f.Type != "" {
		filter = append(filter, bson.E{Key: "type", Value: f.Type})
	}
	if f.Tag != "" {
		filter = append(filter, bson.E{Key: "tags", Value: exactFold(f.Tag)})
	}
	if f.Featured != nil {
		filter = append(filter, bson.E{Key: "is_featured", Value: *f.Featured})
	}
	if f.Search != "" {
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "title", Value: contains(f.Search)}},
			bson.D{{Key: "description", Value: contains(f.Search)}},
			bson.D{{Key: "tags", Value: contains(f.Search)}},
		}})
	}

	var sort bson.D
	switch f.Sort {
	case "popular":
		sort = bson.D{{Key: "views", Value: -1}, {Key: "likes", Value: -1}}
	case "rating":
		sort = bson.D{{Key: "rating", Value: -1}}
	default:
		sort = newestFirst
	}
	return findMany[model.Resource](ctx, s.col(ColResources), filter, findOptions(sort, f.Page))
}

// UpdateResource 只写可编辑字段，浏览、点赞与下载计数不受影响。
func (s *Store) UpdateResource(ctx context.Context, r *model.Resource) error {
	return updateByID(ctx, s.col(ColResources), r.ID, bson.D{{Key: "$set", Value: bson.D{
		{Key: "title", Value: r.Title},
		{Key: "description", Value: r.Description},
		{Key: "category", Value: r.Category},
		{Key: "type", Value: r.Type},
		{Key: "content", Value: r.Content},
		{Key: "url", Value: r.URL},
		{Key: "author", Value: r.Author},
		{Key: "tags", Value: nonNil(r.Tags)},
		{Key: "duration", Value: r.Duration},
		{Key: "rating", Value: r.Rating},
		{Key: "is_featured", Value: r.IsFeatured},
		{Key: "updated_at", Value: r.UpdatedAt},
	}}})
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func (s *Store) DeleteResource(ctx context.Context, id string) error {
	return deleteByID(ctx, s.col(ColResources), id)
}

func (s *Store) CountResources(ctx context.Context) (int64, error) {
	return s.col(ColResources).CountDocuments(ctx, bson.D{})
}

func (s *Store) IncrementResourceViews(ctx context.Context, id string) error {
	return updateByID(ctx, s.col(ColResources), id, bson.D{{Key: "$inc", Value: bson.D{{Key: "views", Value: 1}}}})
}

func (s *Store) IncrementResourceDownloads(ctx context.Context, id string) (int, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.D{{Key: "downloads", Value: 1}})
	var r model.Resource
	err := s.col(ColResources).FindOneAndUpdate(ctx, byID(id),
		bson.D{{Key: "$inc", Value: bson.D{{Key: "downloads", Value: 1}}}}, opts).Decode(&r)
	if err != nil {
		return 0, wrapError(err)
	}
	return r.Downloads, nil
}

// ToggleResourceLike 先尝试点赞，未命中再尝试取消；两步都是带条件的原子更新。
func (s *Store) ToggleResourceLike(ctx context.Context, id, userID string) (bool, int, error) {
	col := s.col(ColResources)
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.D{{Key: "likes", Value: 1}})

	var r model.Resource
	err := col.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}, {Key: "liked_by", Value: bson.D{{Key: "$ne", Value: userID}}}},
		bson.D{
			{Key: "$addToSet", Value: bson.D{{Key: "liked_by", Value: userID}}},
			{Key: "$inc", Value: bson.D{{Key: "likes", Value: 1}}},
		}, opts).Decode(&r)
	if err == nil {
		return true, r.Likes, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return false, 0, wrapError(err)
	}

	err = col.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}, {Key: "liked_by", Value: userID}},
		bson.D{
			{Key: "$pull", Value: bson.D{{Key: "liked_by", Value: userID}}},
			{Key: "$inc", Value: bson.D{{Key: "likes", Value: -1}}},
		}, opts).Decode(&r)
	if err != nil {
		return false, 0, wrapError(err)
	}
	return false, r.Likes, nil
}

func (s *Store) ResourceCategoryCounts(ctx context.Context) ([]model.CategoryCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$category"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	cursor, err := s.col(ColResources).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, wrapError(err)
	}
	defer cursor.Close(ctx)

	out := make([]model.CategoryCount, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
