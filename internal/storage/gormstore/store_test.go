package gormstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/masoommulla/project-sub001/internal/model"
	"github.com/masoommulla/project-sub001/internal/pkg/logger"
	"github.com/masoommulla/project-sub001/internal/storage"
)

// testStore 需要 GORM_TEST_DSN（可选 GORM_TEST_DRIVER，默认 postgres），否则跳过。
func testStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("GORM_TEST_DSN")
	if dsn == "" {
		t.Skip("GORM_TEST_DSN not set")
	}
	driver := os.Getenv("GORM_TEST_DRIVER")
	if driver == "" {
		driver = "postgres"
	}
	s, err := Open(driver, dsn, logger.Discard())
	if err != nil {
		t.Skipf("database not available: %v", err)
	}

	for _, m := range []any{&model.Appointment{}, &model.Resource{}, &model.Therapist{}, &model.User{}, &model.ChatMessage{}, &model.Conversation{}} {
		require.NoError(t, s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
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

	first.Status = model.AppointmentCancelled
	first.Release()
	require.NoError(t, s.UpdateAppointment(ctx, first))
	require.NoError(t, s.CreateAppointment(ctx, second))

	_, err := s.FindSlotConflict(ctx, "t1", "2026-04-01", "10:00", "a2")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUserRoundTripAndDuplicate(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	u := &model.User{ID: "u1", Name: "Ana", Email: "ana@example.com", Password: "hash", Age: 15,
		Role: model.RoleUser, Settings: model.DefaultSettings(), CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.ErrorIs(t, s.CreateUser(ctx, &model.User{ID: "u2", Name: "B", Email: "ana@example.com", Password: "x"}), storage.ErrDuplicate)

	u.Streak = 3
	require.NoError(t, s.UpdateUser(ctx, u))
	// 值未变化的覆盖写仍然成功。
	require.NoError(t, s.UpdateUser(ctx, u))

	got, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Streak)
	assert.Equal(t, "en", got.Settings.Language)

	assert.ErrorIs(t, s.UpdateUser(ctx, &model.User{ID: "missing", Email: "m@example.com"}), storage.ErrNotFound)
}

func TestToggleResourceLikeAndCategories(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateResource(ctx, &model.Resource{ID: "r1", Title: "Box breathing", Category: "anxiety", Type: "exercise"}))
	require.NoError(t, s.CreateResource(ctx, &model.Resource{ID: "r2", Title: "Sleep diary", Category: "sleep", Type: "worksheet"}))
	require.NoError(t, s.CreateResource(ctx, &model.Resource{ID: "r3", Title: "Grounding", Category: "anxiety", Type: "exercise"}))

	liked, likes, err := s.ToggleResourceLike(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, 1, likes)

	liked, likes, err = s.ToggleResourceLike(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, 0, likes)

	counts, err := s.ResourceCategoryCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.CategoryCount{{Category: "anxiety", Count: 2}, {Category: "sleep", Count: 1}}, counts)
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
