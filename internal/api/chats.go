package api

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/masoommulla/project-sub001/internal/api/response"
	"github.com/masoommulla/project-sub001/internal/domain"
	"github.com/masoommulla/project-sub001/internal/model"
	"github.com/masoommulla/project-sub001/internal/pkg/chathub"
	"github.com/masoommulla/project-sub001/internal/pkg/companion"
	"github.com/masoommulla/project-sub001/internal/storage"
)

const (
	defaultMessageLimit = 50
	maxMessageLimit     = 200
)

type createConversationRequest struct {
	Type        string `json:"type" binding:"required,oneof=ai therapist support"`
	TherapistID string `json:"therapistId"`
	Title       string `json:"title" binding:"max=100"`
}

type listConversationsQuery struct {
	// Scope=support 仅管理员可用，列出全部客服会话。
	Scope string `form:"scope" binding:"omitempty,oneof=mine support"`
	Type  string `form:"type" binding:"omitempty,oneof=ai therapist support"`
}

type listMessagesQuery struct {
	Before string `form:"before"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=200"`
}

type sendMessageRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
}

// conversationView 会话列表项，附带对方的在线状态。
type conversationView struct {
	model.Conversation
	Online bool `json:"online"`
}

func (s *Server) handleListConversations(c *gin.Context) {
	var q listConversationsQuery
	if err := response.BindQuery(c, &q); err != nil {
		s.resp.Error(c, err)
		return
	}
	caller := s.caller(c)
	owner := caller.ID
	if q.Scope == "support" {
		if !caller.IsAdmin() {
			s.resp.Error(c, domain.Forbidden(""))
			return
		}
		owner = model.SupportTeamID
	}

	ctx := c.Request.Context()
	convs, err := s.store.ListConversations(ctx, owner)
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	others := make([]string, 0, len(convs))
	for _, conv := range convs {
		if other := conv.OtherParticipant(owner); other != "" {
			others = append(others, other)
		}
	}
	online := s.presence.Online(ctx, others...)

	out := make([]conversationView, 0, len(convs))
	for _, conv := range convs {
		if q.Type != "" && conv.Type != q.Type {
			continue
		}
		out = append(out, s.viewConversation(conv, owner, online))
	}
	response.List(c, out)
}

// handleCreateConversation 创建会话；同类型同对象的会话已存在时直接返回已有会话。
func (s *Server) handleCreateConversation(c *gin.Context) {
	var req createConversationRequest
	if err := response.Bind(c, &req); err != nil {
		s.resp.Error(c, err)
		return
	}
	ctx := c.Request.Context()
	caller := s.caller(c)

	conv := &model.Conversation{
		Type:  req.Type,
		Title: strings.TrimSpace(req.Title),
	}
	switch req.Type {
	case model.ConversationAI:
		conv.Participants = []string{caller.ID, model.AICompanionID}
		if conv.Title == "" {
			conv.Title = "AI Companion"
		}
	case model.ConversationSupport:
		conv.Participants = []string{caller.ID, model.SupportTeamID}
		if conv.Title == "" {
			conv.Title = "Support"
		}
	case model.ConversationTherapist:
		if strings.TrimSpace(req.TherapistID) == "" {
			s.resp.Error(c, domain.Invalid("therapistId", "therapistId is required"))
			return
		}
		t, err := s.store.GetTherapist(ctx, req.TherapistID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				err = domain.NotFound("therapist")
			}
			s.resp.Error(c, err)
			return
		}
		if t.UserID == "" {
			s.resp.Error(c, domain.InvalidState("therapist does not accept messages"))
			return
		}
		if t.UserID == caller.ID {
			s.resp.Error(c, domain.BadRequest("cannot start a conversation with yourself"))
			return
		}
		conv.Participants = []string{caller.ID, t.UserID}
		conv.TherapistID = t.ID
		if conv.Title == "" {
			conv.Title = t.Name
		}
	}

	existing, err := s.store.FindConversation(ctx, conv.Type, conv.Participants[0], conv.Participants[1])
	switch {
	case err == nil:
		response.OK(c, "conversation already exists", s.viewOne(ctx, *existing, caller.ID))
		return
	case !errors.Is(err, storage.ErrNotFound):
		s.resp.Error(c, err)
		return
	}

	now := s.now()
	conv.ID = uuid.NewString()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		s.resp.Error(c, err)
		return
	}
	response.Created(c, "conversation created", s.viewOne(ctx, *conv, caller.ID))
}

func (s *Server) handleGetConversation(c *gin.Context) {
	ctx := c.Request.Context()
	caller := s.caller(c)
	conv, err := s.loadConversation(ctx, caller, c.Param("id"))
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "", s.viewOne(ctx, *conv, participantFor(conv, caller)))
}

func (s *Server) handleDeleteConversation(c *gin.Context) {
	ctx := c.Request.Context()
	conv, err := s.loadConversation(ctx, s.caller(c), c.Param("id"))
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	if err := s.store.DeleteConversation(ctx, conv.ID); err != nil {
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "conversation deleted", nil)
}

// handleListMessages 按时间升序返回最近的消息，before 用于向前翻页。
func (s *Server) handleListMessages(c *gin.Context) {
	var q listMessagesQuery
	if err := response.BindQuery(c, &q); err != nil {
		s.resp.Error(c, err)
		return
	}
	before, err := parseDate("before", q.Before)
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultMessageLimit
	}
	if limit > maxMessageLimit {
		limit = maxMessageLimit
	}

	ctx := c.Request.Context()
	conv, err := s.loadConversation(ctx, s.caller(c), c.Param("id"))
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	msgs, err := s.store.ListMessages(ctx, conv.ID, before, limit)
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	response.List(c, msgs)
}

// handleSendMessage 保存消息并推送给订阅者。AI 会话会同步生成一条陪伴回复。
func (s *Server) handleSendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := response.Bind(c, &req); err != nil {
		s.resp.Error(c, err)
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		s.resp.Error(c, domain.Invalid("content", "content is required"))
		return
	}

	ctx := c.Request.Context()
	caller := s.caller(c)
	conv, err := s.loadConversation(ctx, caller, c.Param("id"))
	if err != nil {
		s.resp.Error(c, err)
		return
	}

	now := s.now()
	msg := &model.ChatMessage{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderID:       caller.ID,
		ReceiverID:     conv.OtherParticipant(participantFor(conv, caller)),
		Content:        content,
		CreatedAt:      now,
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		s.resp.Error(c, err)
		return
	}
	s.publish(ctx, chathub.Event{Type: chathub.EventMessage, ConversationID: conv.ID, Message: msg, At: now})

	var reply *model.ChatMessage
	if conv.Type == model.ConversationAI {
		// 回复时间略晚于原消息，保证排序稳定
		replyAt := now.Add(time.Millisecond)
		reply = &model.ChatMessage{
			ID:             uuid.NewString(),
			ConversationID: conv.ID,
			SenderID:       model.AICompanionID,
			ReceiverID:     caller.ID,
			Content:        companion.ReplyWith(content, s.pick),
			IsAI:           true,
			CreatedAt:      replyAt,
		}
		if err := s.store.CreateMessage(ctx, reply); err != nil {
			s.resp.Error(c, err)
			return
		}
		s.publish(ctx, chathub.Event{Type: chathub.EventMessage, ConversationID: conv.ID, Message: reply, At: replyAt})
	}

	last := msg
	if reply != nil {
		last = reply
	}
	conv.LastMessage = &model.LastMessage{Content: last.Content, SenderID: last.SenderID, At: last.CreatedAt}
	conv.UpdatedAt = last.CreatedAt
	if err := s.store.UpdateConversation(ctx, conv); err != nil {
		s.resp.Error(c, err)
		return
	}

	response.Created(c, "message sent", gin.H{"message": msg, "reply": reply})
}

// handleMarkRead 把发给当前用户的未读消息标记为已读。
func (s *Server) handleMarkRead(c *gin.Context) {
	ctx := c.Request.Context()
	caller := s.caller(c)
	conv, err := s.loadConversation(ctx, caller, c.Param("id"))
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	now := s.now()
	reader := participantFor(conv, caller)
	n, err := s.store.MarkMessagesRead(ctx, conv.ID, reader, now)
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	if n > 0 {
		s.publish(ctx, chathub.Event{Type: chathub.EventRead, ConversationID: conv.ID, ReaderID: reader, At: now})
	}
	response.OK(c, "messages marked as read", gin.H{"updated": n})
}

// handleDeleteMessage 仅发送者本人或管理员可删除消息。
func (s *Server) handleDeleteMessage(c *gin.Context) {
	ctx := c.Request.Context()
	caller := s.caller(c)
	conv, err := s.loadConversation(ctx, caller, c.Param("id"))
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	msg, err := s.store.GetMessage(ctx, c.Param("messageId"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = domain.NotFound("message")
		}
		s.resp.Error(c, err)
		return
	}
	if msg.ConversationID != conv.ID {
		s.resp.Error(c, domain.NotFound("message"))
		return
	}
	if msg.SenderID != caller.ID && !caller.IsAdmin() {
		s.resp.Error(c, domain.Forbidden("only the sender can delete this message"))
		return
	}
	if err := s.store.DeleteMessage(ctx, msg.ID); err != nil {
		s.resp.Error(c, err)
		return
	}
	s.publish(ctx, chathub.Event{Type: chathub.EventDeleted, ConversationID: conv.ID, MessageID: msg.ID, At: s.now()})
	response.OK(c, "message deleted", nil)
}

// loadConversation 非参与者（管理员除外）与不存在的会话返回同一个 404。
func (s *Server) loadConversation(ctx context.Context, caller *model.User, id string) (*model.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, domain.NotFound("conversation")
		}
		return nil, err
	}
	if !domain.CanAccessConversation(caller, conv) {
		return nil, domain.NotFound("conversation")
	}
	return conv, nil
}

// participantFor 返回调用者在会话中的身份。管理员处理客服会话时代表客服团队。
func participantFor(conv *model.Conversation, caller *model.User) string {
	if !conv.HasParticipant(caller.ID) && caller.IsAdmin() && conv.Type == model.ConversationSupport {
		return model.SupportTeamID
	}
	return caller.ID
}

func (s *Server) viewOne(ctx context.Context, conv model.Conversation, self string) conversationView {
	other := conv.OtherParticipant(self)
	return s.viewConversation(conv, self, s.presence.Online(ctx, other))
}

func (s *Server) viewConversation(conv model.Conversation, self string, online map[string]bool) conversationView {
	other := conv.OtherParticipant(self)
	v := conversationView{Conversation: conv}
	switch other {
	case model.AICompanionID:
		v.Online = true
	case "", model.SupportTeamID:
	default:
		v.Online = online[other]
	}
	return v
}

// publish 推送失败只记录日志，消息已经落库。
func (s *Server) publish(ctx context.Context, ev chathub.Event) {
	if err := s.hub.Publish(ctx, ev); err != nil {
		s.logger.Warn("publish chat event failed",
			slog.String("conversation_id", ev.ConversationID),
			slog.String("type", ev.Type),
			slog.String("error", err.Error()))
	}
}
