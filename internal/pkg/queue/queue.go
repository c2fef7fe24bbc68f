// Package queue 提供进程内的固定 worker 池，用于不阻塞请求的后台任务（如欢迎邮件）。
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/masoommulla/project-sub001/internal/pkg/metrics"
)

// Job 表示一个可执行的异步任务。
type Job func(ctx context.Context) error

// ErrorHandler 任务失败时的回调，name 为入队时给出的任务名。
type ErrorHandler func(name string, err error)

type task struct {
	name string
	run  Job
}

// Queue 有界任务队列 + 固定 worker。队列满时直接丢弃，调用方不会被阻塞。
type Queue struct {
	logger       *slog.Logger
	workers      int
	tasks        chan task
	errorHandler ErrorHandler

	wg     sync.WaitGroup
	// mu 保护 closed 与 close(tasks)，入队持读锁，关闭持写锁。
	mu     sync.RWMutex
	closed bool

	enqueued  atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
	panics    atomic.Int64
}

// Stats 队列统计快照。
type Stats struct {
	Enqueued  int64 `json:"enqueued"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
	Panics    int64 `json:"panics"`
	Pending   int   `json:"pending"`
}

// NewQueue 创建队列，workers 与 capacity 至少为 1。
func NewQueue(logger *slog.Logger, workers int, capacity int) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{
		logger:  logger,
		workers: workers,
		tasks:   make(chan task, capacity),
	}
}

// SetErrorHandler 设置失败回调。
func (q *Queue) SetErrorHandler(handler ErrorHandler) {
	q.errorHandler = handler
}

// Start 启动 worker。ctx 取消后 worker 立即退出，未处理的任务被放弃；
// 需要排空队列时先调用 ShutdownWithTimeout。
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-q.tasks:
			if !ok {
				return
			}
			metrics.MailQueueDepth.Set(float64(len(q.tasks)))
			q.execute(ctx, t, id)
		}
	}
}

func (q *Queue) execute(ctx context.Context, t task, workerID int) {
	defer func() {
		if r := recover(); r != nil {
			q.panics.Add(1)
			q.logger.Error("job panic recovered",
				slog.String("job", t.name),
				slog.Int("worker_id", workerID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	if err := t.run(ctx); err != nil {
		q.failed.Add(1)
		q.logger.Warn("job failed",
			slog.String("job", t.name),
			slog.Int("worker_id", workerID),
			slog.String("error", err.Error()))
		if q.errorHandler != nil {
			q.errorHandler(t.name, err)
		}
		return
	}
	q.succeeded.Add(1)
}

// Enqueue 非阻塞入队，队列已满或已关闭时返回 false。
func (q *Queue) Enqueue(name string, job Job) bool {
	if job == nil {
		return false
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}

	select {
	case q.tasks <- task{name: name, run: job}:
		q.enqueued.Add(1)
		metrics.MailQueueDepth.Set(float64(len(q.tasks)))
		return true
	default:
		q.dropped.Add(1)
		q.logger.Warn("queue full, drop job",
			slog.String("job", name),
			slog.Int("capacity", cap(q.tasks)))
		return false
	}
}

// ShutdownWithTimeout 拒绝新任务，等待 worker 处理完已入队的任务。
func (q *Queue) ShutdownWithTimeout(timeout time.Duration) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return fmt.Errorf("queue already closed")
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("queue drained")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout after %s", timeout)
	}
}

// Stats 返回统计快照。
func (q *Queue) Stats() Stats {
	return Stats{
		Enqueued:  q.enqueued.Load(),
		Succeeded: q.succeeded.Load(),
		Failed:    q.failed.Load(),
		Dropped:   q.dropped.Load(),
		Panics:    q.panics.Load(),
		Pending:   len(q.tasks),
	}
}
