package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masoommulla/project-sub001/internal/model"
	"github.com/masoommulla/project-sub001/internal/storage"
)

func TestSlotReservation(t *testing.T) {
	s := New()
	ctx := context.Background()

	a := &model.Appointment{ID: "a1", UserID: "u1", TherapistID: "t1", Date: "2026-04-01", StartTime: "10:00", Status: model.AppointmentScheduled}
	a.Reserve()
	require.NoError(t, s.CreateAppointment(ctx, a))

	b := &model.Appointment{ID: "a2", UserID: "u2", TherapistID: "t1", Date: "2026-04-01", StartTime: "10:00", Status: model.AppointmentScheduled}
	b.Reserve()
	assert.ErrorIs(t, s.CreateAppointment(ctx, b), storage.ErrDuplicate)

	a.Status = model.AppointmentCancelled
	a.Release()
	require.NoError(t, s.UpdateAppointment(ctx, a))
	require.NoError(t, s.CreateAppointment(ctx, b))

	// 改期到已占用的时段同样被拒绝。
	c := &model.Appointment{ID: "a3", UserID: "u3", TherapistID: "t1", Date: "2026-04-01", StartTime: "11:00", Status: model.AppointmentScheduled}
	c.Reserve()
	require.NoError(t, s.CreateAppointment(ctx, c))
	c.StartTime = "10:00"
	c.Reserve()
	assert.ErrorIs(t, s.UpdateAppointment(ctx, c), storage.ErrDuplicate)
}

func TestReadsAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateTodo(ctx, &model.Todo{ID: "t1", UserID: "u1", Text: "read"}))

	got, err := s.GetTodo(ctx, "t1")
	require.NoError(t, err)
	got.Text = "changed"

	again, err := s.GetTodo(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "read", again.Text)

	appt := &model.Appointment{ID: "a1", UserID: "u1", TherapistID: "t1", Status: model.AppointmentConfirmed,
		Payment: &model.Payment{Amount: 60, Currency: "USD", Status: model.PaymentPaid}}
	require.NoError(t, s.CreateAppointment(ctx, appt))
	appt.Payment.Status = "pending"

	a, err := s.GetAppointment(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, a.Payment.Status)
	a.Payment.Status = model.PaymentRefunded
	a.Cancellation = &model.Cancellation{By: model.RoleUser}

	list, err := s.ListAppointments(ctx, storage.AppointmentFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.PaymentPaid, list[0].Payment.Status)
	assert.Nil(t, list[0].Cancellation)
	list[0].Payment.Status = model.PaymentRefunded

	again2, err := s.GetAppointment(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, again2.Payment.Status)

	require.NoError(t, s.CreateResource(ctx, &model.Resource{ID: "r1", Tags: []string{"sleep"}}))
	r, err := s.GetResource(ctx, "r1")
	require.NoError(t, err)
	r.Tags[0] = "changed"
	r2, err := s.GetResource(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"sleep"}, r2.Tags)
}

func TestProfileUpdateKeepsDerivedCounters(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateTherapist(ctx, &model.Therapist{ID: "t1", Name: "Dr. Rivera", IsAvailable: true}))

	stale, err := s.GetTherapist(ctx, "t1")
	require.NoError(t, err)

	// 加载与保存之间完成了一次评价
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

	require.NoError(t, s.CreateResource(ctx, &model.Resource{ID: "r1", Title: "Sleep hygiene", LikedBy: []string{}}))
	staleRes, err := s.GetResource(ctx, "r1")
	require.NoError(t, err)
	require.NoError(t, s.IncrementResourceViews(ctx, "r1"))
	_, _, err = s.ToggleResourceLike(ctx, "r1", "u1")
	require.NoError(t, err)
	_, err = s.IncrementResourceDownloads(ctx, "r1")
	require.NoError(t, err)

	staleRes.Title = "Better sleep"
	require.NoError(t, s.UpdateResource(ctx, staleRes))

	res, err := s.GetResource(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Better sleep", res.Title)
	assert.Equal(t, 1, res.Views)
	assert.Equal(t, 1, res.Likes)
	assert.Equal(t, 1, res.Downloads)
	assert.True(t, res.LikedByUser("u1"))

	assert.ErrorIs(t, s.UpdateTherapist(ctx, &model.Therapist{ID: "missing"}), storage.ErrNotFound)
	assert.ErrorIs(t, s.UpdateResource(ctx, &model.Resource{ID: "missing"}), storage.ErrNotFound)
}

func TestListScopedByUser(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, s.CreateMood(ctx, &model.MoodEntry{ID: "m1", UserID: "a", Mood: model.MoodSad, CreatedAt: now}))
	require.NoError(t, s.CreateMood(ctx, &model.MoodEntry{ID: "m2", UserID: "b", Mood: model.MoodHappy, CreatedAt: now}))
	require.NoError(t, s.CreateMood(ctx, &model.MoodEntry{ID: "m3", UserID: "a", Mood: model.MoodCalm, CreatedAt: now.Add(-48 * time.Hour)}))

	moods, err := s.ListMoods(ctx, storage.MoodFilter{UserID: "a"})
	require.NoError(t, err)
	require.Len(t, moods, 2)
	assert.Equal(t, "m1", moods[0].ID)

	since := now.Add(-time.Hour)
	moods, err = s.ListMoods(ctx, storage.MoodFilter{UserID: "a", Since: &since})
	require.NoError(t, err)
	require.Len(t, moods, 1)

	moods, err = s.ListMoods(ctx, storage.MoodFilter{UserID: "nobody"})
	require.NoError(t, err)
	assert.NotNil(t, moods)
	assert.Empty(t, moods)
}

func TestDeleteAccountCascades(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, &model.User{ID: "u1", Email: "a@example.com"}))
	require.NoError(t, s.CreateUser(ctx, &model.User{ID: "u2", Email: "b@example.com"}))
	require.NoError(t, s.CreateMood(ctx, &model.MoodEntry{ID: "m1", UserID: "u1"}))
	require.NoError(t, s.CreateMood(ctx, &model.MoodEntry{ID: "m2", UserID: "u2"}))
	require.NoError(t, s.CreateJournal(ctx, &model.JournalEntry{ID: "j1", UserID: "u1"}))
	require.NoError(t, s.CreateConversation(ctx, &model.Conversation{ID: "c1", Participants: []string{"u1", model.AICompanionID}}))
	require.NoError(t, s.CreateMessage(ctx, &model.ChatMessage{ID: "msg1", ConversationID: "c1", SenderID: "u1"}))
	require.NoError(t, s.CreateOTP(ctx, &model.OneTimePasscode{ID: "o1", Email: "a@example.com"}))
	require.NoError(t, s.CreateTherapist(ctx, &model.Therapist{ID: "t1", UserID: "u1", IsAvailable: true}))

	require.NoError(t, s.DeleteAccount(ctx, "u1"))

	_, err := s.GetUser(ctx, "u1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetMood(ctx, "m1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetMood(ctx, "m2")
	assert.NoError(t, err)
	_, err = s.GetJournal(ctx, "j1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetConversation(ctx, "c1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetMessage(ctx, "msg1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.LatestOTP(ctx, "a@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	tp, err := s.GetTherapist(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, tp.IsAvailable)

	assert.ErrorIs(t, s.DeleteAccount(ctx, "u1"), storage.ErrNotFound)
}

func TestToggleResourceLike(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateResource(ctx, &model.Resource{ID: "r1", Category: "sleep"}))

	liked, likes, err := s.ToggleResourceLike(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, 1, likes)

	_, likes, err = s.ToggleResourceLike(ctx, "r1", "u2")
	require.NoError(t, err)
	assert.Equal(t, 2, likes)

	liked, likes, err = s.ToggleResourceLike(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, 1, likes)
}

func TestOTPLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.CreateOTP(ctx, &model.OneTimePasscode{ID: "o1", Email: "a@example.com", ExpiresAt: now.Add(-time.Minute), CreatedAt: now.Add(-11 * time.Minute)}))
	require.NoError(t, s.CreateOTP(ctx, &model.OneTimePasscode{ID: "o2", Email: "a@example.com", ExpiresAt: now.Add(10 * time.Minute), CreatedAt: now}))

	latest, err := s.LatestOTP(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "o2", latest.ID)

	n, err := s.DeleteExpiredOTPs(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMessagesAndReadReceipts(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Now()
	for i, id := range []string{"m1", "m2", "m3"} {
		require.NoError(t, s.CreateMessage(ctx, &model.ChatMessage{
			ID: id, ConversationID: "c1", SenderID: "u2", ReceiverID: "u1", CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	msgs, err := s.ListMessages(ctx, "c1", nil, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, []string{"m2", "m3"}, []string{msgs[0].ID, msgs[1].ID})

	n, err := s.MarkMessagesRead(ctx, "c1", "u1", base)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = s.MarkMessagesRead(ctx, "c1", "u1", base)
	require.NoError(t, err)
	assert.Zero(t, n)
}
