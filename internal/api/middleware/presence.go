package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// PresenceToucher 标记用户活跃。
type PresenceToucher interface {
	Touch(ctx context.Context, userID string) error
}

// Presence 在鉴权之后调用，把当前用户标记为在线。写入失败只记录日志。
func Presence(p PresenceToucher, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if u := CurrentUser(c); u != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			if err := p.Touch(ctx, u.ID); err != nil {
				logger.Debug("presence touch failed", slog.String("error", err.Error()))
			}
			cancel()
		}
		c.Next()
	}
}
