package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/masoommulla/project-sub001/internal/config"
	"github.com/masoommulla/project-sub001/internal/pkg/metrics"
	"github.com/masoommulla/project-sub001/internal/pkg/queue"
)

// ErrNotConfigured SMTP 配置不完整。
var ErrNotConfigured = errors.New("email config missing")

// sender 抽象 gomail 的投递动作，便于测试。
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailNotifier 基于 SMTP 的 Notifier 实现。
//
// 欢迎邮件交给 worker 池异步发送；验证码同步发送并把失败返回给调用方。
type EmailNotifier struct {
	cfg    *config.EmailConfig
	logger *slog.Logger
	queue  *queue.Queue
	dialer sender
}

// NewEmailNotifier 创建邮件通知器。q 为 nil 时欢迎邮件也同步发送。
func NewEmailNotifier(cfg *config.EmailConfig, logger *slog.Logger, q *queue.Queue) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		logger: logger,
		queue:  q,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
	}
}

func (n *EmailNotifier) configured() bool {
	return n.cfg.SMTPHost != "" && n.cfg.SMTPUser != "" && n.cfg.FromEmail != ""
}

// SendWelcome 入队欢迎邮件后立即返回。
func (n *EmailNotifier) SendWelcome(ctx context.Context, toEmail, name string) error {
	if !n.configured() {
		n.logger.Warn("email config missing, skip welcome mail")
		metrics.EmailsTotal.WithLabelValues("welcome", "skipped").Inc()
		return nil
	}
	msg := n.welcomeMessage(toEmail, name)
	job := func(context.Context) error {
		return n.deliver("welcome", toEmail, msg)
	}
	if n.queue == nil {
		return job(ctx)
	}
	if !n.queue.Enqueue("welcome:"+toEmail, job) {
		metrics.EmailsTotal.WithLabelValues("welcome", "dropped").Inc()
	}
	return nil
}

// SendPasscode 同步发送验证码邮件。
func (n *EmailNotifier) SendPasscode(ctx context.Context, toEmail, code string, ttl time.Duration) error {
	if !n.configured() {
		metrics.EmailsTotal.WithLabelValues("otp", "skipped").Inc()
		return ErrNotConfigured
	}
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("empty recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return n.deliver("otp", toEmail, n.passcodeMessage(toEmail, code, ttl))
}

func (n *EmailNotifier) deliver(kind, toEmail string, m *gomail.Message) error {
	if err := n.dialer.DialAndSend(m); err != nil {
		metrics.EmailsTotal.WithLabelValues(kind, "failed").Inc()
		return fmt.Errorf("send %s email: %w", kind, err)
	}
	metrics.EmailsTotal.WithLabelValues(kind, "sent").Inc()
	n.logger.Info("email sent", slog.String("kind", kind), slog.String("to", toEmail))
	return nil
}

func (n *EmailNotifier) newMessage(toEmail, subject, body string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("[%s] %s", n.cfg.AppName, subject))
	m.SetBody("text/html", body)
	return m
}

func (n *EmailNotifier) welcomeMessage(toEmail, name string) *gomail.Message {
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; background: #f6f7fb; color: #1f2937;">
  <div style="max-width: 560px; margin: 24px auto; background: #ffffff; border-radius: 12px; padding: 24px;">
    <h2>Welcome to %[1]s, %[2]s!</h2>
    <p>We're glad you're here. Start by logging how you feel today, writing a journal entry, or exploring the resource library.</p>
    <p>If you ever need to talk to someone, you can book a session with one of our therapists.</p>
    <p style="font-size: 12px; color: #6b7280;">If you are in crisis, please contact your local emergency number right away.</p>
  </div>
</body>
</html>`, html.EscapeString(n.cfg.AppName), html.EscapeString(name))
	return n.newMessage(toEmail, "Welcome", body)
}

func (n *EmailNotifier) passcodeMessage(toEmail, code string, ttl time.Duration) *gomail.Message {
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>%s password reset</h2>
    <p>Your verification code is:</p>
    <div style="font-size: 28px; font-weight: bold; letter-spacing: 3px;">%s</div>
    <p>The code expires in %d minutes. If you did not request it, you can ignore this email.</p>
  </div>
</body>
</html>`, html.EscapeString(n.cfg.AppName), code, int(ttl.Minutes()))
	return n.newMessage(toEmail, "Password reset code", body)
}
