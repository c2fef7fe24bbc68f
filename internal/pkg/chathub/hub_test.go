package chathub

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masoommulla/project-sub001/internal/model"
	"github.com/masoommulla/project-sub001/internal/pkg/logger"
)

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev := <-sub.C:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for chat event")
		return Event{}
	}
}

func TestHub_LocalDelivery(t *testing.T) {
	h := New(nil, logger.Discard())
	ctx := context.Background()

	sub := h.Subscribe("c1")
	other := h.Subscribe("c2")
	assert.Equal(t, 1, h.Subscribers("c1"))

	require.NoError(t, h.Publish(ctx, Event{Type: EventMessage, ConversationID: "c1", Message: &model.ChatMessage{ID: "m1", Content: "hi"}}))

	ev := receive(t, sub)
	assert.Equal(t, EventMessage, ev.Type)
	assert.Equal(t, "m1", ev.Message.ID)
	assert.False(t, ev.At.IsZero())

	select {
	case ev := <-other.C:
		t.Fatalf("unexpected event on other conversation: %+v", ev)
	default:
	}

	h.Unsubscribe(sub)
	h.Unsubscribe(sub)
	_, open := <-sub.C
	assert.False(t, open)
	assert.Zero(t, h.Subscribers("c1"))
}

func TestHub_RedisFanOut(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 两个 Hub 模拟两个 API 实例。
	a := New(rdb, logger.Discard())
	b := New(rdb, logger.Discard())
	go func() { _ = a.Run(ctx) }()
	go func() { _ = b.Run(ctx) }()
	for _, h := range []*Hub{a, b} {
		select {
		case <-h.Ready():
		case <-time.After(2 * time.Second):
			t.Fatal("hub did not subscribe")
		}
	}

	sub := b.Subscribe("c1")
	defer b.Unsubscribe(sub)

	require.NoError(t, a.Publish(ctx, Event{Type: EventRead, ConversationID: "c1", ReaderID: "u1"}))

	ev := receive(t, sub)
	assert.Equal(t, EventRead, ev.Type)
	assert.Equal(t, "c1", ev.ConversationID)
	assert.Equal(t, "u1", ev.ReaderID)
}
