// Package chathub 把会话中的新消息与已读回执推送给在线的 websocket 订阅者。
//
// 配置 Redis 时事件经由 pub/sub 广播，任一实例发布的事件会被所有实例收到；
// 未配置时只在本进程内分发。
package chathub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/masoommulla/project-sub001/internal/model"
)

const channelPrefix = "teenwell:chat:"

// 事件类型。
const (
	EventMessage = "message"
	EventRead    = "read"
	EventDeleted = "deleted"
)

// Event 推送给客户端的事件。
type Event struct {
	Type           string             `json:"type"`
	ConversationID string             `json:"conversationId"`
	Message        *model.ChatMessage `json:"message,omitempty"`
	MessageID      string             `json:"messageId,omitempty"`
	ReaderID       string             `json:"readerId,omitempty"`
	At             time.Time          `json:"at"`
}

// Subscription 单个连接的事件流。
type Subscription struct {
	C              <-chan Event
	ch             chan Event
	conversationID string
}

// Hub 会话事件分发中心。
type Hub struct {
	rdb    *redis.Client
	logger *slog.Logger

	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}

	readyOnce sync.Once
	ready     chan struct{}
}

// New 创建 Hub。rdb 为 nil 时为单进程模式。
func New(rdb *redis.Client, logger *slog.Logger) *Hub {
	h := &Hub{
		rdb:    rdb,
		logger: logger,
		subs:   make(map[string]map[*Subscription]struct{}),
		ready:  make(chan struct{}),
	}
	if rdb == nil {
		h.markReady()
	}
	return h
}

func (h *Hub) markReady() {
	h.readyOnce.Do(func() { close(h.ready) })
}

// Ready 在 Hub 可以接收广播后关闭。
func (h *Hub) Ready() <-chan struct{} { return h.ready }

// Run 订阅 Redis 频道并把事件分发给本地订阅者，直到 ctx 取消。单进程模式下直接返回。
func (h *Hub) Run(ctx context.Context) error {
	if h.rdb == nil {
		return nil
	}
	ps := h.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("chat subscribe: %w", err)
	}
	h.markReady()

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				h.logger.Warn("drop malformed chat event", slog.String("error", err.Error()))
				continue
			}
			ev.ConversationID = strings.TrimPrefix(msg.Channel, channelPrefix)
			h.dispatch(ev)
		}
	}
}

// Publish 发布事件。
func (h *Hub) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	if h.rdb == nil {
		h.dispatch(ev)
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode chat event: %w", err)
	}
	if err := h.rdb.Publish(ctx, channelPrefix+ev.ConversationID, payload).Err(); err != nil {
		return fmt.Errorf("publish chat event: %w", err)
	}
	return nil
}

// Subscribe 订阅会话事件，用完必须调用 Unsubscribe。
func (h *Hub) Subscribe(conversationID string) *Subscription {
	ch := make(chan Event, 16)
	sub := &Subscription{C: ch, ch: ch, conversationID: conversationID}

	h.mu.Lock()
	set, ok := h.subs[conversationID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[conversationID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Unsubscribe 取消订阅并关闭事件流。
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[sub.conversationID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.conversationID)
	}
	close(sub.ch)
}

// Subscribers 返回会话当前的本地订阅数。
func (h *Hub) Subscribers(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[conversationID])
}

func (h *Hub) dispatch(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[ev.ConversationID] {
		select {
		case sub.ch <- ev:
		default:
			h.logger.Warn("chat subscriber too slow, drop event",
				slog.String("conversation_id", ev.ConversationID),
				slog.String("type", ev.Type))
		}
	}
}
