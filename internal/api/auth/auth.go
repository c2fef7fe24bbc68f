// Package auth 提供注册、登录、令牌校验与忘记密码流程。
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/masoommulla/project-sub001/internal/api/response"
	"github.com/masoommulla/project-sub001/internal/domain"
	"github.com/masoommulla/project-sub001/internal/model"
	"github.com/masoommulla/project-sub001/internal/pkg/notify"
	"github.com/masoommulla/project-sub001/internal/pkg/token"
	"github.com/masoommulla/project-sub001/internal/storage"
)

// Store 认证流程用到的存储。
type Store interface {
	storage.UserStore
	storage.OTPStore
}

// Throttle 限制重复申请验证码。
type Throttle interface {
	Acquire(ctx context.Context, subject string) (bool, time.Duration, error)
	Release(ctx context.Context, subject string) error
}

// Handler 认证接口。
type Handler struct {
	store    Store
	tokens   *token.Issuer
	notifier notify.Notifier
	throttle Throttle
	resp     *response.Writer
	logger   *slog.Logger
	otpTTL   time.Duration
	now      func() time.Time
}

// Options 构造 Handler 的依赖。
type Options struct {
	Store    Store
	Tokens   *token.Issuer
	Notifier notify.Notifier
	Throttle Throttle
	Resp     *response.Writer
	Logger   *slog.Logger
	OTPTTL   time.Duration
	Now      func() time.Time
}

// NewHandler 创建 Auth Handler。
func NewHandler(o Options) *Handler {
	if o.OTPTTL <= 0 {
		o.OTPTTL = 10 * time.Minute
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return &Handler{
		store:    o.Store,
		tokens:   o.Tokens,
		notifier: o.Notifier,
		throttle: o.Throttle,
		resp:     o.Resp,
		logger:   o.Logger,
		otpTTL:   o.OTPTTL,
		now:      o.Now,
	}
}

// Register 注册路由。
func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/register", h.SignUp)
	r.POST("/login", h.Login)
	r.POST("/verify", h.Verify)
	r.POST("/forgot-password", h.ForgotPassword)
	r.POST("/verify-otp", h.VerifyOTP)
	r.POST("/reset-password", h.ResetPassword)
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=50"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required,min=6,max=128"`
	Age      int    `json:"age" binding:"required,min=13,max=19"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type verifyRequest struct {
	Token string `json:"token"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

type verifyOTPRequest struct {
	Email string `json:"email" binding:"required"`
	OTP   string `json:"otp" binding:"required,len=6,numeric"`
}

type resetPasswordRequest struct {
	Email       string `json:"email" binding:"required"`
	OTP         string `json:"otp" binding:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" binding:"required,min=6,max=128"`
}

// Session 登录成功后返回的数据。
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *model.User `json:"user"`
}

// NormalizeEmail 去除空白并转小写。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var emailCheck = validator.New()

// cleanEmail 先规范化再校验格式，首尾空白不算格式错误。
func cleanEmail(raw string) (string, error) {
	email := NormalizeEmail(raw)
	if err := emailCheck.Var(email, "required,email"); err != nil {
		return "", domain.Invalid("email", "email must be a valid email")
	}
	return email, nil
}

// HashPassword 使用 bcrypt 生成密码哈希。
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword 校验明文密码与哈希是否匹配。
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// SignUp 创建账号并直接登录，欢迎邮件异步发送。
func (h *Handler) SignUp(c *gin.Context) {
	var req registerRequest
	if err := response.Bind(c, &req); err != nil {
		h.resp.Error(c, err)
		return
	}
	email, err := cleanEmail(req.Email)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	ctx := c.Request.Context()

	if _, err := h.store.GetUserByEmail(ctx, email); err == nil {
		h.resp.Error(c, domain.Conflict("user already exists"))
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		h.resp.Error(c, err)
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	now := h.now()
	user := &model.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		Password:     hash,
		Age:          req.Age,
		Role:         model.RoleUser,
		Settings:     model.DefaultSettings(),
		Subscription: model.Subscription{Plan: model.PlanFree, Status: "active", StartedAt: &now},
		LastLogin:    &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			err = domain.Conflict("user already exists")
		}
		h.resp.Error(c, err)
		return
	}

	if err := h.notifier.SendWelcome(ctx, user.Email, user.Name); err != nil {
		h.logger.Warn("welcome email failed", slog.String("email", email), slog.String("error", err.Error()))
	}

	sess, err := h.issue(user)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	h.logger.Info("user registered", slog.String("user_id", user.ID))
	response.Created(c, "registration successful", sess)
}

// Login 校验密码，更新打卡连续天数与最近登录时间。
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := response.Bind(c, &req); err != nil {
		h.resp.Error(c, err)
		return
	}
	email, err := cleanEmail(req.Email)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	ctx := c.Request.Context()

	user, err := h.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = domain.Unauthenticated("invalid credentials")
		}
		h.resp.Error(c, err)
		return
	}
	if !CheckPassword(user.Password, req.Password) {
		h.resp.Error(c, domain.Unauthenticated("invalid credentials"))
		return
	}

	now := h.now()
	domain.UpdateStreak(user, now)
	user.LastLogin = &now
	user.UpdatedAt = now
	if err := h.store.UpdateUser(ctx, user); err != nil {
		h.resp.Error(c, err)
		return
	}

	sess, err := h.issue(user)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	h.logger.Info("user logged in", slog.String("user_id", user.ID), slog.String("role", user.Role))
	response.OK(c, "login successful", sess)
}

// Verify 校验令牌（请求体或 Authorization 头）并返回对应用户。
func (h *Handler) Verify(c *gin.Context) {
	var req verifyRequest
	if c.Request.ContentLength != 0 {
		if err := response.Bind(c, &req); err != nil {
			h.resp.Error(c, err)
			return
		}
	}
	raw := strings.TrimSpace(req.Token)
	if raw == "" {
		if parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			raw = strings.TrimSpace(parts[1])
		}
	}

	claims, err := h.tokens.Verify(raw)
	if err != nil {
		h.resp.Error(c, domain.Unauthenticated(""))
		return
	}
	user, err := h.store.GetUser(c.Request.Context(), claims.UserID())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = domain.Unauthenticated("")
		}
		h.resp.Error(c, err)
		return
	}
	response.OK(c, "token is valid", gin.H{"user": user, "expiresAt": claims.ExpiresAt.Time})
}

// ForgotPassword 生成 6 位验证码并同步发送邮件。同一邮箱在冷却时间内只能申请一次。
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := response.Bind(c, &req); err != nil {
		h.resp.Error(c, err)
		return
	}
	email, err := cleanEmail(req.Email)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	ctx := c.Request.Context()

	if _, err := h.store.GetUserByEmail(ctx, email); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = domain.NotFound("user")
		}
		h.resp.Error(c, err)
		return
	}

	ok, wait, err := h.throttle.Acquire(ctx, email)
	if err != nil {
		h.logger.Warn("otp cooldown unavailable", slog.String("error", err.Error()))
	} else if !ok {
		secs := int(math.Ceil(wait.Seconds()))
		c.Header("Retry-After", strconv.Itoa(secs))
		response.Abort(c, http.StatusTooManyRequests, fmt.Sprintf("please wait %d seconds before requesting another code", secs))
		return
	}

	if err := h.store.DeleteOTPsByEmail(ctx, email); err != nil {
		h.resp.Error(c, err)
		return
	}
	code, err := generateCode(6)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	now := h.now()
	otp := &model.OneTimePasscode{
		ID:        uuid.NewString(),
		Email:     email,
		Code:      code,
		ExpiresAt: now.Add(h.otpTTL),
		CreatedAt: now,
	}
	if err := h.store.CreateOTP(ctx, otp); err != nil {
		h.resp.Error(c, err)
		return
	}

	if err := h.notifier.SendPasscode(ctx, email, code, h.otpTTL); err != nil {
		h.logger.Error("send otp email failed", slog.String("email", email), slog.String("error", err.Error()))
		_ = h.store.DeleteOTP(ctx, otp.ID)
		_ = h.throttle.Release(ctx, email)
		response.Abort(c, http.StatusInternalServerError, "email could not be sent")
		return
	}
	response.OK(c, "verification code sent to your email", gin.H{"expiresAt": otp.ExpiresAt})
}

// VerifyOTP 校验验证码，过期的验证码会被删除。
func (h *Handler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := response.Bind(c, &req); err != nil {
		h.resp.Error(c, err)
		return
	}
	email, err := cleanEmail(req.Email)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	ctx := c.Request.Context()

	otp, err := h.checkOTP(ctx, email, req.OTP, false)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	otp.Verified = true
	if err := h.store.UpdateOTP(ctx, otp); err != nil {
		h.resp.Error(c, err)
		return
	}
	response.OK(c, "code verified", nil)
}

// ResetPassword 使用已验证的验证码设置新密码，成功后删除该邮箱的全部验证码。
func (h *Handler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := response.Bind(c, &req); err != nil {
		h.resp.Error(c, err)
		return
	}
	email, err := cleanEmail(req.Email)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	ctx := c.Request.Context()

	if _, err := h.checkOTP(ctx, email, req.OTP, true); err != nil {
		h.resp.Error(c, err)
		return
	}
	user, err := h.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = domain.NotFound("user")
		}
		h.resp.Error(c, err)
		return
	}
	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	user.Password = hash
	user.UpdatedAt = h.now()
	if err := h.store.UpdateUser(ctx, user); err != nil {
		h.resp.Error(c, err)
		return
	}
	if err := h.store.DeleteOTPsByEmail(ctx, email); err != nil {
		h.logger.Warn("cleanup otp failed", slog.String("email", email), slog.String("error", err.Error()))
	}
	h.logger.Info("password reset", slog.String("user_id", user.ID))
	response.OK(c, "password reset successful", nil)
}

// checkOTP 取该邮箱最新的验证码并校验；requireVerified 用于重置密码步骤。
func (h *Handler) checkOTP(ctx context.Context, email, code string, requireVerified bool) (*model.OneTimePasscode, error) {
	otp, err := h.store.LatestOTP(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, domain.BadRequest("invalid or expired code")
		}
		return nil, err
	}
	if otp.Expired(h.now()) {
		if err := h.store.DeleteOTP(ctx, otp.ID); err != nil {
			h.logger.Warn("delete expired otp failed", slog.String("error", err.Error()))
		}
		return nil, domain.BadRequest("code has expired")
	}
	if otp.Code != code {
		return nil, domain.BadRequest("invalid code")
	}
	if requireVerified && !otp.Verified {
		return nil, domain.BadRequest("code has not been verified")
	}
	return otp, nil
}

func (h *Handler) issue(u *model.User) (*Session, error) {
	tok, exp, err := h.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{Token: tok, ExpiresAt: exp, User: u}, nil
}

// generateCode 逐位均匀取 0-9。
func generateCode(n int) (string, error) {
	buf := make([]byte, n)
	ten := big.NewInt(10)
	for i := range buf {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		buf[i] = '0' + byte(d.Int64())
	}
	return string(buf), nil
}
