package mongostore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masoommulla/project-sub001/internal/model"
	"github.com/masoommulla/project-sub001/internal/pkg/logger"
	"github.com/masoommulla/project-sub001/internal/storage"
)

// testStore 使用独立数据库，MongoDB 不可用时跳过。
func testStore(t *testing.T) *Store {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	s, err := NewStore(uri, "teenwell_test", logger.Discard())
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}

	ctx := context.Background()
	require.NoError(t, s.db.Drop(ctx))
	require.NoError(t, s.ensureIndexes(ctx))

	t.Cleanup(func() {
		_ = s.db.Drop(context.Background())
		_ = s.Close()
	})
	return s
}

func TestUserEmailUnique(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	u := &model.User{ID: "u1", Name: "Ana", Email: "ana@example.com", Password: "hash", CreatedAt: time.Now()}
	require.NoError(t, s.CreateUser(ctx, u))

	dup := &model.User{ID: "u2", Name: "Ana 2", Email: "ana@example.com", Password: "hash"}
	assert.ErrorIs(t, s.CreateUser(ctx, dup), storage.ErrDuplicate)

	got, err := s.GetUserByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)

	_, err = s.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAppointmentSlotReservation(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	first := &model.Appointment{ID: "a1", UserID: "u1", TherapistID: "t1", Date: "2026-04-01", StartTime: "10:00", Status: model.AppointmentScheduled}
	first.Reserve()
	require.NoError(t, s.CreateAppointment(ctx, first))

	second := &model.Appointment{ID: "a2", UserID: "u2", TherapistID: "t1", Date: "2026-04-01", StartTime: "10:00", Status: model.AppointmentScheduled}
	second.Reserve()
	assert.ErrorIs(t, s.CreateAppointment(ctx, second), storage.ErrDuplicate)

	conflict, err := s.FindSlotConflict(ctx, "t1", "2026-04-01", "10:00", "")
	require.NoError(t, err)
	assert.Equal(t, "a1", conflict.ID)

	// 取消后释放时段，第二个预约可以写入。
	first.Status = model.AppointmentCancelled
	first.Release()
	require.NoError(t, s.UpdateAppointment(ctx, first))
	require.NoError(t, s.CreateAppointment(ctx, second))

	_, err = s.FindSlotConflict(ctx, "t1", "2026-04-01", "10:00", "a2")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestToggleResourceLike(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateResource(ctx, &model.Resource{ID: "r1", Title: "Sleep hygiene", Category: "sleep", Type: "article"}))

	liked, likes, err := s.ToggleResourceLike(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, 1, likes)

	liked, likes, err = s.ToggleResourceLike(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, 0, likes)

	_, _, err = s.ToggleResourceLike(ctx, "missing", "u1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListMessagesReturnsLatestAscending(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i, id := range []string{"m1", "m2", "m3"} {
		require.NoError(t, s.CreateMessage(ctx, &model.ChatMessage{
			ID: id, ConversationID: "c1", SenderID: "u1", Content: id, CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
	msgs, err := s.ListMessages(ctx, "c1", nil, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m2", msgs[0].ID)
	assert.Equal(t, "m3", msgs[1].ID)
}

func TestProfileUpdateKeepsDerivedCounters(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, s.CreateTherapist(ctx, &model.Therapist{ID: "t1", Name: "Dr. Rivera", IsAvailable: true, CreatedAt: now, UpdatedAt: now}))
	stale, err := s.GetTherapist(ctx, "t1")
	require.NoError(t, err)

	require.NoError(t, s.SetTherapistRating(ctx, "t1", 4.5, 2))
	require.NoError(t, s.IncrementTherapistSessions(ctx, "t1"))

	stale.Bio = "CBT for teens"
	require.NoError(t, s.UpdateTherapist(ctx, stale))

	got, err := s.GetTherapist(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "CBT for teens", got.Bio)
	assert.Equal(t, 4.5, got.Rating)
	assert.Equal(t, 2, got.ReviewCount)
	assert.Equal(t, 1, got.TotalSessions)

	require.NoError(t, s.CreateResource(ctx, &model.Resource{ID: "r1", Title: "Sleep hygiene", Category: "sleep", CreatedAt: now, UpdatedAt: now}))
	staleRes, err := s.GetResource(ctx, "r1")
	require.NoError(t, err)
	require.NoError(t, s.IncrementResourceViews(ctx, "r1"))
	_, _, err = s.ToggleResourceLike(ctx, "r1", "u1")
	require.NoError(t, err)

	staleRes.Title = "Better sleep"
	require.NoError(t, s.UpdateResource(ctx, staleRes))

	res, err := s.GetResource(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Better sleep", res.Title)
	assert.Equal(t, 1, res.Views)
	assert.Equal(t, 1, res.Likes)
	assert.True(t, res.LikedByUser("u1"))
}
