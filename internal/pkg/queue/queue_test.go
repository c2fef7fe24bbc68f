package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/masoommulla/project-sub001/internal/pkg/logger"
)

func TestQueue_RunsJobsAndDrains(t *testing.T) {
	q := NewQueue(logger.Discard(), 3, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	var completed atomic.Int32
	for i := 0; i < 5; i++ {
		ok := q.Enqueue("welcome", func(ctx context.Context) error {
			time.Sleep(20 * time.Millisecond)
			completed.Add(1)
			return nil
		})
		if !ok {
			t.Fatalf("enqueue %d rejected", i)
		}
	}

	if err := q.ShutdownWithTimeout(2 * time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if completed.Load() != 5 {
		t.Fatalf("expected 5 completed jobs, got %d", completed.Load())
	}
	stats := q.Stats()
	if stats.Enqueued != 5 || stats.Succeeded != 5 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if q.Enqueue("late", func(context.Context) error { return nil }) {
		t.Fatalf("expected closed queue to reject jobs")
	}
}

func TestQueue_ErrorHandlerAndPanic(t *testing.T) {
	q := NewQueue(logger.Discard(), 1, 5)

	var failedName atomic.Value
	q.SetErrorHandler(func(name string, err error) {
		failedName.Store(name)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	q.Enqueue("boom", func(context.Context) error { return errors.New("smtp down") })
	q.Enqueue("panic", func(context.Context) error { panic("unexpected") })
	q.Enqueue("ok", func(context.Context) error { return nil })

	if err := q.ShutdownWithTimeout(time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	stats := q.Stats()
	if stats.Failed != 1 || stats.Panics != 1 || stats.Succeeded != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if got, _ := failedName.Load().(string); got != "boom" {
		t.Fatalf("expected error handler for boom, got %q", got)
	}
}

func TestQueue_DropWhenFull(t *testing.T) {
	// 不启动 worker，队列容量 1。
	q := NewQueue(logger.Discard(), 1, 1)
	noop := func(context.Context) error { return nil }

	if !q.Enqueue("first", noop) {
		t.Fatalf("first enqueue should succeed")
	}
	if q.Enqueue("second", noop) {
		t.Fatalf("second enqueue should be dropped")
	}
	if got := q.Stats().Dropped; got != 1 {
		t.Fatalf("expected 1 dropped, got %d", got)
	}
	if q.Enqueue("nil", nil) {
		t.Fatalf("nil job should be rejected")
	}
}

func TestQueue_EnqueueDuringShutdown(t *testing.T) {
	q := NewQueue(logger.Discard(), 2, 64)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	noop := func(context.Context) error { return nil }
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 200; j++ {
				// 与关闭并发时只能返回 false，不能 panic
				q.Enqueue("welcome", noop)
			}
		}()
	}
	close(start)
	if err := q.ShutdownWithTimeout(2 * time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	wg.Wait()

	if q.Enqueue("late", noop) {
		t.Fatalf("expected closed queue to reject jobs")
	}
	if err := q.ShutdownWithTimeout(time.Second); err == nil {
		t.Fatalf("expected second shutdown to fail")
	}
}
