package gormstore

import (
	"context"
	"slices"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/masoommulla/project-sub001/internal/model"
	"github.com/masoommulla/project-sub001/internal/storage"
)

// ---- TherapistStore ----

func (s *Store) CreateTherapist(ctx context.Context, t *model.Therapist) error {
	return create(s.conn(ctx), t)
}

func (s *Store) GetTherapist(ctx context.Context, id string) (*model.Therapist, error) {
	return first[model.Therapist](s.conn(ctx), "id = ?", id)
}

func (s *Store) GetTherapistByUser(ctx context.Context, userID string) (*model.Therapist, error) {
	return first[model.Therapist](s.conn(ctx), "user_id = ?", userID)
}

func (s *Store) ListTherapists(ctx context.Context, f storage.TherapistFilter) ([]model.Therapist, error) {
	q := s.conn(ctx)
	if f.Specialty != "" {
		q = q.Where("LOWER(specialties) LIKE ?", jsonElemPattern(f.Specialty))
	}
	if f.Language != "" {
		q = q.Where("LOWER(languages) LIKE ?", jsonElemPattern(f.Language))
	}
	if f.SessionType != "" {
		q = q.Where("session_types LIKE ?", `%"`+likeEscaper.Replace(f.SessionType)+`"%`)
	}
	if f.Featured != nil {
		q = q.Where("is_featured = ?", *f.Featured)
	}
	if f.AvailableOnly {
		q = q.Where("is_available = ?", true)
	}
	if f.MinRating > 0 {
		q = q.Where("rating >= ?", f.MinRating)
	}
	if f.MaxFee > 0 {
		q = q.Where("session_fee <= ?", f.MaxFee)
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		q = q.Where("LOWER(name) LIKE ? OR LOWER(title) LIKE ? OR LOWER(bio) LIKE ? OR LOWER(specialties) LIKE ?", p, p, p, p)
	}
	switch f.Sort {
	case "experience":
		q = q.Order("years_experience DESC")
	case "fee":
		q = q.Order("session_fee ASC")
	case "recent":
		q = q.Order("created_at DESC")
	default:
		q = q.Order("rating DESC").Order("review_count DESC")
	}
	return list[model.Therapist](page(q, f.Page))
}

// UpdateTherapist 评分、评价数与会话数由原子更新维护，这里不覆盖。
func (s *Store) UpdateTherapist(ctx context.Context, t *model.Therapist) error {
	return replace(s.conn(ctx), t.ID, t, "rating", "review_count", "total_sessions", "created_at")
}

func (s *Store) DeleteTherapist(ctx context.Context, id string) error {
	return deleteByID[model.Therapist](s.conn(ctx), id)
}

func (s *Store) SetTherapistRating(ctx context.Context, id string, rating float64, reviewCount int) error {
	res := s.conn(ctx).Model(&model.Therapist{}).Where("id = ?", id).Updates(map[string]any{
		"rating":       rating,
		"review_count": reviewCount,
		"updated_at":   time.Now(),
	})
	if res.Error != nil {
		return wrapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) IncrementTherapistSessions(ctx context.Context, id string) error {
	return increment[model.Therapist](s.conn(ctx), id, "total_sessions")
}

// increment 原子地给计数列加一。
func increment[T any](db *gorm.DB, id, column string) error {
	res := db.Model(new(T)).Where("id = ?", id).UpdateColumn(column, gorm.Expr(column+" + ?", 1))
	if res.Error != nil {
		return wrapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ---- ResourceStore ----

func (s *Store) CreateResource(ctx context.Context, r *model.Resource) error {
	if r.LikedBy == nil {
		r.LikedBy = []string{}
	}
	return create(s.conn(ctx), r)
}

func (s *Store) GetResource(ctx context.Context, id string) (*model.Resource, error) {
	return first[model.Resource](s.conn(ctx), "id = ?", id)
}

func (s *Store) ListResources(ctx context.Context, f storage.ResourceFilter) ([]model.Resource, error) {
	q := s.conn(ctx)
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Tag != "" {
		q = q.Where("LOWER(tags) LIKE ?", jsonElemPattern(f.Tag))
	}
	if f.Featured != nil {
		q = q.Where("is_featured = ?", *f.Featured)
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(tags) LIKE ?", p, p, p)
	}
	switch f.Sort {
	case "popular":
		q = q.Order("views DESC").Order("likes DESC")
	case "rating":
		q = q.Order("rating DESC")
	default:
		q = q.Order("created_at DESC")
	}
	return list[model.Resource](page(q, f.Page))
}

func (s *Store) UpdateResource(ctx context.Context, r *model.Resource) error {
	return replace(s.conn(ctx), r.ID, r, "views", "likes", "downloads", "liked_by", "created_by", "created_at")
}

func (s *Store) DeleteResource(ctx context.Context, id string) error {
	return deleteByID[model.Resource](s.conn(ctx), id)
}

func (s *Store) CountResources(ctx context.Context) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&model.Resource{}).Count(&n).Error
	return n, wrapError(err)
}

func (s *Store) IncrementResourceViews(ctx context.Context, id string) error {
	return increment[model.Resource](s.conn(ctx), id, "views")
}

func (s *Store) IncrementResourceDownloads(ctx context.Context, id string) (int, error) {
	var downloads int
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := increment[model.Resource](tx, id, "downloads"); err != nil {
			return err
		}
		return tx.Model(&model.Resource{}).Where("id = ?", id).Select("downloads").Scan(&downloads).Error
	})
	return downloads, wrapError(err)
}

// ToggleResourceLike 行锁内读取并改写 liked_by 与 likes。
func (s *Store) ToggleResourceLike(ctx context.Context, id, userID string) (bool, int, error) {
	var liked bool
	var likes int
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var r model.Resource
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&r).Error; err != nil {
			return err
		}
		liked = !r.LikedByUser(userID)
		if liked {
			r.LikedBy = append(r.LikedBy, userID)
			r.Likes++
		} else {
			r.LikedBy = slices.DeleteFunc(r.LikedBy, func(v string) bool { return v == userID })
			r.Likes--
		}
		likes = r.Likes
		return tx.Model(&r).Select("liked_by", "likes").Updates(&r).Error
	})
	if err != nil {
		return false, 0, wrapError(err)
	}
	return liked, likes, nil
}

func (s *Store) ResourceCategoryCounts(ctx context.Context) ([]model.CategoryCount, error) {
	out := make([]model.CategoryCount, 0)
	err := s.conn(ctx).Model(&model.Resource{}).
		Select("category, COUNT(*) AS count").
		Group("category").
		Order("count DESC").Order("category ASC").
		Scan(&out).Error
	if err != nil {
		return nil, wrapError(err)
	}
	return out, nil
}
