package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/masoommulla/project-sub001/internal/config"
	"github.com/masoommulla/project-sub001/internal/pkg/logger"
	"github.com/masoommulla/project-sub001/internal/pkg/queue"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []*gomail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func testConfig() *config.EmailConfig {
	return &config.EmailConfig{
		SMTPHost:  "smtp.example.com",
		SMTPPort:  587,
		SMTPUser:  "mailer",
		SMTPPass:  "secret",
		FromEmail: "no-reply@example.com",
		AppName:   "TeenWell",
	}
}

func TestSendPasscode(t *testing.T) {
	fs := &fakeSender{}
	n := NewEmailNotifier(testConfig(), logger.Discard(), nil)
	n.dialer = fs

	require.NoError(t, n.SendPasscode(context.Background(), "kid@example.com", "123456", 10*time.Minute))
	require.Equal(t, 1, fs.count())
	assert.Equal(t, []string{"kid@example.com"}, fs.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"[TeenWell] Password reset code"}, fs.sent[0].GetHeader("Subject"))
}

func TestSendPasscodeSurfacesFailure(t *testing.T) {
	n := NewEmailNotifier(testConfig(), logger.Discard(), nil)
	n.dialer = &fakeSender{err: errors.New("connection refused")}

	err := n.SendPasscode(context.Background(), "kid@example.com", "123456", 10*time.Minute)
	assert.ErrorContains(t, err, "connection refused")

	unconfigured := NewEmailNotifier(&config.EmailConfig{}, logger.Discard(), nil)
	assert.ErrorIs(t, unconfigured.SendPasscode(context.Background(), "kid@example.com", "1", time.Minute), ErrNotConfigured)
}

func TestSendWelcomeIsAsyncAndSwallowsFailure(t *testing.T) {
	q := queue.NewQueue(logger.Discard(), 1, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	fs := &fakeSender{}
	n := NewEmailNotifier(testConfig(), logger.Discard(), q)
	n.dialer = fs

	require.NoError(t, n.SendWelcome(ctx, "kid@example.com", "Kid"))
	require.NoError(t, q.ShutdownWithTimeout(time.Second))
	assert.Equal(t, 1, fs.count())

	// SMTP 未配置时直接跳过。
	skipped := NewEmailNotifier(&config.EmailConfig{}, logger.Discard(), nil)
	assert.NoError(t, skipped.SendWelcome(ctx, "kid@example.com", "Kid"))
}
