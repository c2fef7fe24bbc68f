package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/masoommulla/project-sub001/internal/api/response"
	"github.com/masoommulla/project-sub001/internal/domain"
	"github.com/masoommulla/project-sub001/internal/pkg/metrics"
	"github.com/masoommulla/project-sub001/internal/storage"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsReadLimit  = 512
)

func (s *Server) upgrader() *websocket.Upgrader {
	allowAll := false
	allowed := make(map[string]struct{}, len(s.cfg.App.CORSOrigins))
	for _, o := range s.cfg.App.CORSOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowAll {
				return true
			}
			_, ok := allowed[origin]
			return ok
		},
	}
}

// handleChatStream 把会话事件通过 websocket 推送给客户端。
//
// GET /api/chats/:id/ws?token=...
// 令牌可放在查询参数或 Authorization 头中。客户端发来的消息一律丢弃，发送消息走 REST 接口。
func (s *Server) handleChatStream(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("token"))
	if raw == "" {
		if v, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
			raw = strings.TrimSpace(v)
		}
	}
	if raw == "" {
		response.Abort(c, http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
		return
	}
	claims, err := s.tokens.Verify(raw)
	if err != nil {
		response.Abort(c, http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
		return
	}
	ctx := c.Request.Context()
	user, err := s.store.GetUser(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.Abort(c, http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
			return
		}
		s.resp.Error(c, err)
		return
	}
	conv, err := s.loadConversation(ctx, user, c.Param("id"))
	if err != nil {
		s.resp.Error(c, err)
		return
	}

	conn, err := s.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	sub := s.hub.Subscribe(conv.ID)
	defer s.hub.Unsubscribe(sub)
	metrics.ChatConnections.Inc()
	defer metrics.ChatConnections.Dec()
	_ = s.presence.Touch(ctx, user.ID)

	s.logger.Info("chat stream connected",
		slog.String("conversation_id", conv.ID),
		slog.String("user_id", user.ID))

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(wsReadLimit)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Debug("chat stream read error", slog.String("error", err.Error()))
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				s.logger.Debug("chat stream write failed", slog.String("error", err.Error()))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			_ = s.presence.Touch(ctx, user.ID)
		}
	}
}
