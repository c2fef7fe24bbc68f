// Package notify 负责对外邮件：注册欢迎信与忘记密码验证码。
package notify

import (
	"context"
	"time"
)

// Notifier 定义通知接口，处理器只依赖该接口，测试中可替换为内存实现。
type Notifier interface {
	// SendWelcome 发送欢迎邮件。失败只记录日志，不影响注册。
	SendWelcome(ctx context.Context, toEmail, name string) error
	// SendPasscode 发送一次性验证码，ttl 用于邮件正文中的有效期说明。
	SendPasscode(ctx context.Context, toEmail, code string, ttl time.Duration) error
}
