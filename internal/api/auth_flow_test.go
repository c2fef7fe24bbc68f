package api

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masoommulla/project-sub001/internal/storage"
)

func TestRegisterAndLogin(t *testing.T) {
	h := newHarness(t)

	w, env := h.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Maya", "email": " Maya@Example.com ", "password": "secret123", "age": 15,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, env.Success)
	assert.NotContains(t, w.Body.String(), `"password"`)
	assert.NotContains(t, w.Body.String(), "secret123")
	assert.Equal(t, 1, h.mail.welcomes)

	w, _ = h.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Maya", "email": "maya@example.com", "password": "secret123", "age": 15,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env = h.do(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "MAYA@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), `"password"`)
	sess := decode[struct {
		Token string `json:"token"`
	}](t, env.Data)
	require.NotEmpty(t, sess.Token)

	w, _ = h.do(http.MethodGet, "/api/users/me", sess.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = h.do(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "maya@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid credentials", env.Message)
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	h := newHarness(t)
	cases := map[string]map[string]any{
		"too young":   {"name": "Kid", "email": "kid@example.com", "password": "secret123", "age": 12},
		"bad email":   {"name": "Sam", "email": "not-an-email", "password": "secret123", "age": 16},
		"short pass":  {"name": "Sam", "email": "sam@example.com", "password": "123", "age": 16},
		"missing age": {"name": "Sam", "email": "sam@example.com", "password": "secret123"},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w, env := h.do(http.MethodPost, "/api/auth/register", "", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, env.Success)
		})
	}
}

func TestLoginStreak(t *testing.T) {
	h := newHarness(t)
	h.register("Leo", "leo@example.com")

	login := func() int {
		w, env := h.do(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "leo@example.com", "password": "secret123"})
		require.Equal(t, http.StatusOK, w.Code)
		return decode[struct {
			User struct {
				Streak int `json:"streak"`
			} `json:"user"`
		}](t, env.Data).User.Streak
	}

	assert.Equal(t, 1, login())
	h.clock.Advance(24 * time.Hour)
	assert.Equal(t, 2, login())
	h.clock.Advance(5 * 24 * time.Hour)
	assert.Equal(t, 1, login())
}

func TestPasswordResetFlow(t *testing.T) {
	h := newHarness(t)
	h.register("Ava", "ava@example.com")

	w, _ := h.do(http.MethodPost, "/api/auth/forgot-password", "", map[string]any{"email": "ava@example.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	code := h.mail.code("ava@example.com")
	require.Len(t, code, 6)

	// 未验证的验证码不能直接重置
	w, env := h.do(http.MethodPost, "/api/auth/reset-password", "", map[string]any{"email": "ava@example.com", "otp": code, "newPassword": "brand-new"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "code has not been verified", env.Message)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	w, env = h.do(http.MethodPost, "/api/auth/verify-otp", "", map[string]any{"email": "ava@example.com", "otp": wrong})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid code", env.Message)

	w, _ = h.do(http.MethodPost, "/api/auth/verify-otp", "", map[string]any{"email": "ava@example.com", "otp": code})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = h.do(http.MethodPost, "/api/auth/reset-password", "", map[string]any{"email": "ava@example.com", "otp": code, "newPassword": "brand-new"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = h.do(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "ava@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = h.do(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "ava@example.com", "password": "brand-new"})
	assert.Equal(t, http.StatusOK, w.Code)

	_, err := h.store.LatestOTP(context.Background(), "ava@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestExpiredOTPIsRejectedAndDeleted(t *testing.T) {
	h := newHarness(t)
	h.register("Noor", "noor@example.com")

	w, _ := h.do(http.MethodPost, "/api/auth/forgot-password", "", map[string]any{"email": "noor@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	code := h.mail.code("noor@example.com")

	h.clock.Advance(11 * time.Minute)
	w, env := h.do(http.MethodPost, "/api/auth/verify-otp", "", map[string]any{"email": "noor@example.com", "otp": code})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, strings.Contains(env.Message, "expired"), env.Message)

	_, err := h.store.LatestOTP(context.Background(), "noor@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	h := newHarness(t)
	w, _ := h.do(http.MethodPost, "/api/auth/forgot-password", "", map[string]any{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestForgotPasswordCooldown(t *testing.T) {
	h := newHarness(t)
	h.register("Kai", "kai@example.com")

	w, _ := h.do(http.MethodPost, "/api/auth/forgot-password", "", map[string]any{"email": "kai@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = h.do(http.MethodPost, "/api/auth/forgot-password", "", map[string]any{"email": "kai@example.com"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestVerifyToken(t *testing.T) {
	h := newHarness(t)
	tok, id := h.register("Iris", "iris@example.com")

	w, env := h.do(http.MethodPost, "/api/auth/verify", tok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}](t, env.Data)
	assert.Equal(t, id, got.User.ID)

	w, _ = h.do(http.MethodPost, "/api/auth/verify", "", map[string]any{"token": "garbage"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEmailTrimmedBeforeValidation(t *testing.T) {
	h := newHarness(t)
	h.register("Nia", "nia@example.com")

	w, _ := h.do(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "\tNIA@example.com  ", "password": "secret123"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = h.do(http.MethodPost, "/api/auth/forgot-password", "", map[string]any{"email": " nia@example.com "})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, h.mail.code("nia@example.com"))

	for _, bad := range []string{"   ", "not-an-email", " nia@ "} {
		w, env := h.do(http.MethodPost, "/api/auth/register", "", map[string]any{
			"name": "Nia", "email": bad, "password": "secret123", "age": 15,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
		assert.Equal(t, "validation failed", env.Message, bad)
		assert.Contains(t, w.Body.String(), `"field":"email"`, bad)
	}
}
