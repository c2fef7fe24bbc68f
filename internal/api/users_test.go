package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masoommulla/project-sub001/internal/model"
	"github.com/masoommulla/project-sub001/internal/storage"
)

func TestUpdateProfileAndSettings(t *testing.T) {
	h := newHarness(t)
	tok, _ := h.register("Kai", "kai@example.com")

	w, env := h.do(http.MethodPut, "/api/users/me", tok, map[string]any{
		"name": "  Kai L ", "bio": "likes chess",
		"settings": map[string]any{"darkMode": true, "reminderTime": "20:30"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	u := decode[model.User](t, env.Data)
	assert.Equal(t, "Kai L", u.Name)
	assert.Equal(t, "likes chess", u.Bio)
	assert.True(t, u.Settings.DarkMode)
	assert.Equal(t, "20:30", u.Settings.ReminderTime)
	assert.NotContains(t, w.Body.String(), "password")

	w, _ = h.do(http.MethodPut, "/api/users/me", tok, map[string]any{"age": 25})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = h.do(http.MethodPut, "/api/users/me", tok, map[string]any{"role": "admin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChangePassword(t *testing.T) {
	h := newHarness(t)
	tok, _ := h.register("Lou", "lou@example.com")

	w, env := h.do(http.MethodPut, "/api/users/me/password", tok, map[string]any{"currentPassword": "wrong", "newPassword": "another1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation failed", env.Message)

	w, _ = h.do(http.MethodPut, "/api/users/me/password", tok, map[string]any{"currentPassword": "secret123", "newPassword": "another1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = h.do(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "lou@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = h.do(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "lou@example.com", "password": "another1"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAvatarURLAndUploadDisabled(t *testing.T) {
	h := newHarness(t)
	tok, _ := h.register("Max", "max@example.com")

	w, env := h.do(http.MethodPut, "/api/users/me/avatar", tok, map[string]any{"avatar": "https://cdn.example.com/a.png"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"avatar":"https://cdn.example.com/a.png"}`, string(env.Data))

	w, _ = h.do(http.MethodPut, "/api/users/me/avatar", tok, map[string]any{"avatar": "not a url"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubscriptionAndCheckIn(t *testing.T) {
	h := newHarness(t)
	tok, _ := h.register("Ned", "ned@example.com")

	w, env := h.do(http.MethodPut, "/api/users/me/subscription", tok, map[string]any{"plan": "premium", "months": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sub := decode[model.Subscription](t, env.Data)
	assert.Equal(t, model.PlanPremium, sub.Plan)
	require.NotNil(t, sub.ExpiresAt)
	assert.True(t, sub.ExpiresAt.Equal(h.clock.Now().AddDate(0, 3, 0)))

	w, env = h.do(http.MethodPut, "/api/users/me/subscription", tok, map[string]any{"plan": "free"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[model.Subscription](t, env.Data).ExpiresAt)

	type checkIn struct {
		Streak int `json:"streak"`
	}
	w, env = h.do(http.MethodPost, "/api/users/me/check-in", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[checkIn](t, env.Data).Streak)

	h.clock.Advance(24 * time.Hour)
	w, env = h.do(http.MethodPost, "/api/users/me/check-in", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[checkIn](t, env.Data).Streak)
}

func TestPublicProfile(t *testing.T) {
	h := newHarness(t)
	tok, _ := h.register("Oli", "oli@example.com")
	_, other := h.register("Pam", "pam@example.com")

	w, env := h.do(http.MethodGet, "/api/users/"+other, tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	p := decode[model.PublicProfile](t, env.Data)
	assert.Equal(t, "Pam", p.Name)
	assert.NotContains(t, string(env.Data), "pam@example.com")

	w, _ = h.do(http.MethodGet, "/api/users/nobody", tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteAccountCascades(t *testing.T) {
	h := newHarness(t)
	tok, uid := h.register("Quin", "quin@example.com")

	w, env := h.do(http.MethodPost, "/api/moods", tok, map[string]any{"mood": "calm", "intensity": 5})
	require.Equal(t, http.StatusCreated, w.Code)
	moodID := decode[model.MoodEntry](t, env.Data).ID

	w, _ = h.do(http.MethodDelete, "/api/users/me", tok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	ctx := context.Background()
	_, err := h.store.GetUser(ctx, uid)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
	_, err = h.store.GetMood(ctx, moodID)
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	// 令牌仍有效，但用户已不存在
	w, _ = h.do(http.MethodGet, "/api/users/me", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
