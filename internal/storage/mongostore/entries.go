package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/masoommulla/project-sub001/internal/model"
	"github.com/masoommulla/project-sub001/internal/storage"
)

var newestFirst = bson.D{{Key: "created_at", Value: -1}}

// ---- MoodStore ----

func (s *Store) CreateMood(ctx context.Context, m *model.MoodEntry) error {
	return insertOne(ctx, s.col(ColMoods), m)
}

func (s *Store) GetMood(ctx context.Context, id string) (*model.MoodEntry, error) {
	return findOne[model.MoodEntry](ctx, s.col(ColMoods), byID(id))
}

func (s *Store) ListMoods(ctx context.Context, f storage.MoodFilter) ([]model.MoodEntry, error) {
	filter := bson.D{{Key: "user_id", Value: f.UserID}}
	if f.Mood != "" {
		filter = append(filter, bson.E{Key: "mood", Value: f.Mood})
	}
	if r := timeRange(f.Since, f.Until); len(r) > 0 {
		filter = append(filter, bson.E{Key: "created_at", Value: r})
	}
	return findMany[model.MoodEntry](ctx, s.col(ColMoods), filter, findOptions(newestFirst, f.Page))
}

func (s *Store) UpdateMood(ctx context.Context, m *model.MoodEntry) error {
	return replaceByID(ctx, s.col(ColMoods), m.ID, m)
}

func (s *Store) DeleteMood(ctx context.Context, id string) error {
	return deleteByID(ctx, s.col(ColMoods), id)
}

// ---- JournalStore ----

func (s *Store) CreateJournal(ctx context.Context, j *model.JournalEntry) error {
	return insertOne(ctx, s.col(ColJournals), j)
}

func (s *Store) GetJournal(ctx context.Context, id string) (*model.JournalEntry, error) {
	return findOne[model.JournalEntry](ctx, s.col(ColJournals), byID(id))
}

func (s *Store) ListJournals(ctx context.Context, f storage.JournalFilter) ([]model.JournalEntry, error) {
	filter := bson.D{{Key: "user_id", Value: f.UserID}}
	if f.Mood != "" {
		filter = append(filter, bson.E{Key: "mood", Value: f.Mood})
	}
	if f.Tag != "" {
		filter = append(filter, bson.E{Key: "tags", Value: f.Tag})
	}
	if f.Favorite != nil {
		filter = append(filter, bson.E{Key: "is_favorite", Value: *f.Favorite})
	}
	if f.Search != "" {
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "title", Value: contains(f.Search)}},
			bson.D{{Key: "content", Value: contains(f.Search)}},
		}})
	}
	return findMany[model.JournalEntry](ctx, s.col(ColJournals), filter, findOptions(newestFirst, f.Page))
}

func (s *Store) UpdateJournal(ctx context.Context, j *model.JournalEntry) error {
	return replaceByID(ctx, s.col(ColJournals), j.ID, j)
}

func (s *Store) DeleteJournal(ctx context.Context, id string) error {
	return deleteByID(ctx, s.col(ColJournals), id)
}

// ---- TodoStore ----

func (s *Store) CreateTodo(ctx context.Context, t *model.Todo) error {
	return insertOne(ctx, s.col(ColTodos), t)
}

func (s *Store) GetTodo(ctx context.Context, id string) (*model.Todo, error) {
	return findOne[model.Todo](ctx, s.col(ColTodos), byID(id))
}

func (s *Store) ListTodos(ctx context.Context, f storage.TodoFilter) ([]model.Todo, error) {
	filter := bson.D{{Key: "user_id", Value: f.UserID}}
	if f.Category != "" {
		filter = append(filter, bson.E{Key: "category", Value: f.Category})
	}
	if f.Priority != "" {
		filter = append(filter, bson.E{Key: "priority", Value: f.Priority})
	}
	if f.Completed != nil {
		filter = append(filter, bson.E{Key: "completed", Value: *f.Completed})
	}
	return findMany[model.Todo](ctx, s.col(ColTodos), filter, findOptions(newestFirst, f.Page))
}

func (s *Store) UpdateTodo(ctx context.Context, t *model.Todo) error {
	return replaceByID(ctx, s.col(ColTodos), t.ID, t)
}

func (s *Store) DeleteTodo(ctx context.Context, id string) error {
	return deleteByID(ctx, s.col(ColTodos), id)
}

func (s *Store) DeleteCompletedTodos(ctx context.Context, userID string) (int64, error) {
	return deleteMany(ctx, s.col(ColTodos), bson.D{
		{Key: "user_id", Value: userID},
		{Key: "completed", Value: true},
	})
}

// ---- StudyPlanStore ----

func (s *Store) CreateStudyPlan(ctx context.Context, p *model.StudyPlan) error {
	return insertOne(ctx, s.col(ColStudyPlans), p)
}

func (s *Store) GetStudyPlan(ctx context.Context, id string) (*model.StudyPlan, error) {
	return findOne[model.StudyPlan](ctx, s.col(ColStudyPlans), byID(id))
}

func (s *Store) ListStudyPlans(ctx context.Context, f storage.StudyPlanFilter) ([]model.StudyPlan, error) {
	filter := bson.D{{Key: "user_id", Value: f.UserID}}
	if f.Subject != "" {
		filter = append(filter, bson.E{Key: "subject", Value: exactFold(f.Subject)})
	}
	if f.Completed != nil {
		filter = append(filter, bson.E{Key: "completed", Value: *f.Completed})
	}
	if r := timeRange(f.From, f.To); len(r) > 0 {
		filter = append(filter, bson.E{Key: "date", Value: r})
	}
	return findMany[model.StudyPlan](ctx, s.col(ColStudyPlans), filter, findOptions(bson.D{{Key: "date", Value: 1}}, f.Page))
}

func (s *Store) UpdateStudyPlan(ctx context.Context, p *model.StudyPlan) error {
	return replaceByID(ctx, s.col(ColStudyPlans), p.ID, p)
}

func (s *Store) DeleteStudyPlan(ctx context.Context, id string) error {
	return deleteByID(ctx, s.col(ColStudyPlans), id)
}
