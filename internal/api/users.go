package api

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/masoommulla/project-sub001/internal/api/auth"
	"github.com/masoommulla/project-sub001/internal/api/response"
	"github.com/masoommulla/project-sub001/internal/domain"
	"github.com/masoommulla/project-sub001/internal/model"
	"github.com/masoommulla/project-sub001/internal/pkg/objstore"
	"github.com/masoommulla/project-sub001/internal/storage"
)

type settingsRequest struct {
	Notifications *bool   `json:"notifications"`
	EmailUpdates  *bool   `json:"emailUpdates"`
	DarkMode      *bool   `json:"darkMode"`
	Language      *string `json:"language" binding:"omitempty,min=2,max=10"`
	ReminderTime  *string `json:"reminderTime" binding:"omitempty,datetime=15:04"`
}

type updateMeRequest struct {
	Name     *string          `json:"name" binding:"omitempty,min=2,max=50"`
	Age      *int             `json:"age" binding:"omitempty,min=13,max=19"`
	Bio      *string          `json:"bio" binding:"omitempty,max=500"`
	Settings *settingsRequest `json:"settings"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6,max=128"`
}

type avatarRequest struct {
	Avatar string `json:"avatar" binding:"required,url,max=500"`
}

type subscriptionRequest struct {
	Plan   string `json:"plan" binding:"required,oneof=free premium pro"`
	Months int    `json:"months" binding:"omitempty,min=1,max=24"`
}

// handleGetMe 返回当前用户。
func (s *Server) handleGetMe(c *gin.Context) {
	response.OK(c, "", s.caller(c))
}

// handleUpdateMe 更新资料与偏好设置，只修改请求中出现的字段。
//
// PUT /users/me
func (s *Server) handleUpdateMe(c *gin.Context) {
	var req updateMeRequest
	if err := response.Bind(c, &req); err != nil {
		s.resp.Error(c, err)
		return
	}
	u := *s.caller(c)
	if req.Name != nil {
		u.Name = strings.TrimSpace(*req.Name)
	}
	if req.Age != nil {
		u.Age = *req.Age
	}
	if req.Bio != nil {
		u.Bio = strings.TrimSpace(*req.Bio)
	}
	if st := req.Settings; st != nil {
		if st.Notifications != nil {
			u.Settings.Notifications = *st.Notifications
		}
		if st.EmailUpdates != nil {
			u.Settings.EmailUpdates = *st.EmailUpdates
		}
		if st.DarkMode != nil {
			u.Settings.DarkMode = *st.DarkMode
		}
		if st.Language != nil {
			u.Settings.Language = *st.Language
		}
		if st.ReminderTime != nil {
			u.Settings.ReminderTime = *st.ReminderTime
		}
	}
	u.UpdatedAt = s.now()
	if err := s.store.UpdateUser(c.Request.Context(), &u); err != nil {
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "profile updated", &u)
}

// handleChangePassword 校验旧密码后设置新密码。
func (s *Server) handleChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := response.Bind(c, &req); err != nil {
		s.resp.Error(c, err)
		return
	}
	u := *s.caller(c)
	if !auth.CheckPassword(u.Password, req.CurrentPassword) {
		s.resp.Error(c, domain.Invalid("currentPassword", "current password is incorrect"))
		return
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	u.Password = hash
	u.UpdatedAt = s.now()
	if err := s.store.UpdateUser(c.Request.Context(), &u); err != nil {
		s.resp.Error(c, err)
		return
	}
	s.logger.Info("password changed", slog.String("user_id", u.ID))
	response.OK(c, "password updated", nil)
}

// handleUpdateAvatar 接受 JSON {avatar: url}，或 multipart 字段 avatar 上传图片到对象存储。
//
// PUT /users/me/avatar
func (s *Server) handleUpdateAvatar(c *gin.Context) {
	ctx := c.Request.Context()
	u := *s.caller(c)
	previous := u.Avatar

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if s.avatars == nil {
			s.resp.Error(c, domain.BadRequest("avatar uploads are not enabled"))
			return
		}
		url, err := s.uploadAvatar(c, u.ID)
		if err != nil {
			s.resp.Error(c, err)
			return
		}
		u.Avatar = url
	} else {
		var req avatarRequest
		if err := response.Bind(c, &req); err != nil {
			s.resp.Error(c, err)
			return
		}
		u.Avatar = req.Avatar
	}

	u.UpdatedAt = s.now()
	if err := s.store.UpdateUser(ctx, &u); err != nil {
		s.resp.Error(c, err)
		return
	}
	if s.avatars != nil && previous != "" && previous != u.Avatar {
		if err := s.avatars.DeleteAvatar(ctx, previous); err != nil {
			s.logger.Warn("delete old avatar failed", slog.String("user_id", u.ID), slog.String("error", err.Error()))
		}
	}
	response.OK(c, "avatar updated", gin.H{"avatar": u.Avatar})
}

func (s *Server) uploadAvatar(c *gin.Context, userID string) (string, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, objstore.MaxAvatarSize+1<<20)
	fh, err := c.FormFile("avatar")
	if err != nil {
		return "", domain.Invalid("avatar", "avatar file is required")
	}
	if fh.Size > objstore.MaxAvatarSize {
		return "", domain.Invalid("avatar", "avatar must be 2MB or smaller")
	}
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	// 以文件内容判断类型，不信任客户端声明的 Content-Type
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	head = head[:n]
	contentType := http.DetectContentType(head)

	url, err := s.avatars.PutAvatar(c.Request.Context(), userID, io.MultiReader(bytes.NewReader(head), f), fh.Size, contentType)
	if err != nil {
		if errors.Is(err, objstore.ErrUnsupportedType) {
			return "", domain.Invalid("avatar", err.Error())
		}
		return "", err
	}
	return url, nil
}

// handleUpdateSubscription 切换订阅方案。付费方案按月数计算到期时间，默认 1 个月。
func (s *Server) handleUpdateSubscription(c *gin.Context) {
	var req subscriptionRequest
	if err := response.Bind(c, &req); err != nil {
		s.resp.Error(c, err)
		return
	}
	u := *s.caller(c)
	now := s.now()
	sub := model.Subscription{Plan: req.Plan, Status: "active", StartedAt: &now}
	if req.Plan != model.PlanFree {
		months := req.Months
		if months == 0 {
			months = 1
		}
		exp := now.AddDate(0, months, 0)
		sub.ExpiresAt = &exp
	}
	u.Subscription = sub
	u.UpdatedAt = now
	if err := s.store.UpdateUser(c.Request.Context(), &u); err != nil {
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "subscription updated", u.Subscription)
}

// handleCheckIn 每日打卡，更新连续天数。
func (s *Server) handleCheckIn(c *gin.Context) {
	u := *s.caller(c)
	now := s.now()
	domain.UpdateStreak(&u, now)
	u.UpdatedAt = now
	if err := s.store.UpdateUser(c.Request.Context(), &u); err != nil {
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "checked in", gin.H{"streak": u.Streak, "lastCheckIn": u.LastCheckIn})
}

// handleDeleteAccount 注销账户并清理关联数据。
func (s *Server) handleDeleteAccount(c *gin.Context) {
	ctx := c.Request.Context()
	u := s.caller(c)
	if err := s.store.DeleteAccount(ctx, u.ID); err != nil {
		s.resp.Error(c, err)
		return
	}
	if s.avatars != nil && u.Avatar != "" {
		if err := s.avatars.DeleteAvatar(ctx, u.Avatar); err != nil {
			s.logger.Warn("delete avatar failed", slog.String("user_id", u.ID), slog.String("error", err.Error()))
		}
	}
	s.logger.Info("account deleted", slog.String("user_id", u.ID))
	response.OK(c, "account deleted", nil)
}

// handleGetUser 返回其他用户的公开资料。
func (s *Server) handleGetUser(c *gin.Context) {
	u, err := s.store.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = domain.NotFound("user")
		}
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "", u.Public())
}
