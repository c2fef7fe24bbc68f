package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/masoommulla/project-sub001/internal/api/response"
	"github.com/masoommulla/project-sub001/internal/domain"
	"github.com/masoommulla/project-sub001/internal/model"
	"github.com/masoommulla/project-sub001/internal/pkg/token"
	"github.com/masoommulla/project-sub001/internal/storage"
)

const sessionGinKey = "session"

// Session 当前请求已认证的身份。
type Session struct {
	User      *model.User
	ExpiresAt time.Time
}

type sessionCtxKey struct{}

// WithSession 把会话放入 context。
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, s)
}

// SessionFrom 从 context 取出会话。
func SessionFrom(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionCtxKey{}).(*Session)
	return s, ok && s != nil
}

// CurrentUser 返回当前请求的用户，未认证时为 nil。
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(sessionGinKey)
	if !ok {
		return nil
	}
	s, _ := v.(*Session)
	if s == nil {
		return nil
	}
	return s.User
}

// UserLoader 按 ID 加载用户。
type UserLoader interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
}

// AuthMiddleware 校验 Bearer 令牌，加载用户并把 Session 写入 gin 与请求 context。
// 令牌缺失、无效、过期或用户已不存在都返回同一个 401。
func AuthMiddleware(tokens *token.Issuer, users UserLoader, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Abort(c, http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
			return
		}
		claims, err := tokens.Verify(raw)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
			return
		}

		user, err := users.GetUser(c.Request.Context(), claims.UserID())
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				response.Abort(c, http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
				return
			}
			logger.Error("load session user failed", slog.String("error", err.Error()))
			response.Abort(c, http.StatusInternalServerError, "server error")
			return
		}

		s := &Session{User: user}
		if claims.ExpiresAt != nil {
			s.ExpiresAt = claims.ExpiresAt.Time
		}
		c.Set(sessionGinKey, s)
		c.Set(response.UserIDKey, user.ID)
		c.Request = c.Request.WithContext(WithSession(c.Request.Context(), s))
		c.Next()
	}
}

// RequireRoles 仅允许指定角色访问，不在响应中透露所需角色。
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !domain.HasRole(CurrentUser(c), roles...) {
			response.Abort(c, http.StatusForbidden, domain.ErrForbidden.Error())
			return
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	tok := strings.TrimSpace(parts[1])
	return tok, tok != ""
}
