package gormstore

import (
	"context"

	"github.com/masoommulla/project-sub001/internal/model"
	"github.com/masoommulla/project-sub001/internal/storage"
)

// ---- MoodStore ----

func (s *Store) CreateMood(ctx context.Context, m *model.MoodEntry) error {
	return create(s.conn(ctx), m)
}

func (s *Store) GetMood(ctx context.Context, id string) (*model.MoodEntry, error) {
	return first[model.MoodEntry](s.conn(ctx), "id = ?", id)
}

func (s *Store) ListMoods(ctx context.Context, f storage.MoodFilter) ([]model.MoodEntry, error) {
	q := s.conn(ctx).Where("user_id = ?", f.UserID)
	if f.Mood != "" {
		q = q.Where("mood = ?", f.Mood)
	}
	if f.Since != nil {
		q = q.Where("created_at >= ?", *f.Since)
	}
	if f.Until != nil {
		q = q.Where("created_at < ?", *f.Until)
	}
	return list[model.MoodEntry](page(q.Order("created_at DESC"), f.Page))
}

func (s *Store) UpdateMood(ctx context.Context, m *model.MoodEntry) error {
	return replace(s.conn(ctx), m.ID, m)
}

func (s *Store) DeleteMood(ctx context.Context, id string) error {
	return deleteByID[model.MoodEntry](s.conn(ctx), id)
}

// ---- JournalStore ----

func (s *Store) CreateJournal(ctx context.Context, j *model.JournalEntry) error {
	return create(s.conn(ctx), j)
}

func (s *Store) GetJournal(ctx context.Context, id string) (*model.JournalEntry, error) {
	return first[model.JournalEntry](s.conn(ctx), "id = ?", id)
}

func (s *Store) ListJournals(ctx context.Context, f storage.JournalFilter) ([]model.JournalEntry, error) {
	q := s.conn(ctx).Where("user_id = ?", f.UserID)
	if f.Mood != "" {
		q = q.Where("mood = ?", f.Mood)
	}
	if f.Tag != "" {
		q = q.Where("tags LIKE ?", `%"`+likeEscaper.Replace(f.Tag)+`"%`)
	}
	if f.Favorite != nil {
		q = q.Where("is_favorite = ?", *f.Favorite)
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		q = q.Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ?", p, p)
	}
	return list[model.JournalEntry](page(q.Order("created_at DESC"), f.Page))
}

func (s *Store) UpdateJournal(ctx context.Context, j *model.JournalEntry) error {
	return replace(s.conn(ctx), j.ID, j)
}

func (s *Store) DeleteJournal(ctx context.Context, id string) error {
	return deleteByID[model.JournalEntry](s.conn(ctx), id)
}

// ---- TodoStore ----

func (s *Store) CreateTodo(ctx context.Context, t *model.Todo) error {
	return create(s.conn(ctx), t)
}

func (s *Store) GetTodo(ctx context.Context, id string) (*model.Todo, error) {
	return first[model.Todo](s.conn(ctx), "id = ?", id)
}

func (s *Store) ListTodos(ctx context.Context, f storage.TodoFilter) ([]model.Todo, error) {
	q := s.conn(ctx).Where("user_id = ?", f.UserID)
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	if f.Completed != nil {
		q = q.Where("completed = ?", *f.Completed)
	}
	return list[model.Todo](page(q.Order("created_at DESC"), f.Page))
}

func (s *Store) UpdateTodo(ctx context.Context, t *model.Todo) error {
	return replace(s.conn(ctx), t.ID, t)
}

func (s *Store) DeleteTodo(ctx context.Context, id string) error {
	return deleteByID[model.Todo](s.conn(ctx), id)
}

func (s *Store) DeleteCompletedTodos(ctx context.Context, userID string) (int64, error) {
	res := s.conn(ctx).Where("user_id = ? AND completed = ?", userID, true).Delete(&model.Todo{})
	return res.RowsAffected, wrapError(res.Error)
}

// ---- StudyPlanStore ----

func (s *Store) CreateStudyPlan(ctx context.Context, p *model.StudyPlan) error {
	return create(s.conn(ctx), p)
}

func (s *Store) GetStudyPlan(ctx context.Context, id string) (*model.StudyPlan, error) {
	return first[model.StudyPlan](s.conn(ctx), "id = ?", id)
}

func (s *Store) ListStudyPlans(ctx context.Context, f storage.StudyPlanFilter) ([]model.StudyPlan, error) {
	q := s.conn(ctx).Where("user_id = ?", f.UserID)
	if f.Subject != "" {
		q = q.Where("LOWER(subject) = LOWER(?)", f.Subject)
	}
	if f.Completed != nil {
		q = q.Where("completed = ?", *f.Completed)
	}
	if f.From != nil {
		q = q.Where("date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("date < ?", *f.To)
	}
	return list[model.StudyPlan](page(q.Order("date ASC"), f.Page))
}

func (s *Store) UpdateStudyPlan(ctx context.Context, p *model.StudyPlan) error {
	return replace(s.conn(ctx), p.ID, p)
}

func (s *Store) DeleteStudyPlan(ctx context.Context, id string) error {
	return deleteByID[model.StudyPlan](s.conn(ctx), id)
}
