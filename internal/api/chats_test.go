package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masoommulla/project-sub001/internal/model"
	"github.com/masoommulla/project-sub001/internal/pkg/chathub"
	"github.com/masoommulla/project-sub001/internal/pkg/companion"
)

type sendResult struct {
	Message model.ChatMessage  `json:"message"`
	Reply   *model.ChatMessage `json:"reply"`
}

func TestAICompanionConversation(t *testing.T) {
	h := newHarness(t)
	tok, uid := h.register("Ivy", "ivy@example.com")

	w, env := h.do(http.MethodPost, "/api/chats", tok, map[string]any{"type": "ai"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	conv := decode[conversationView](t, env.Data)
	assert.ElementsMatch(t, []string{uid, model.AICompanionID}, conv.Participants)
	assert.True(t, conv.Online)

	// 再次创建返回已有会话
	w, env = h.do(http.MethodPost, "/api/chats", tok, map[string]any{"type": "ai"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, conv.ID, decode[conversationView](t, env.Data).ID)

	sub := h.srv.hub.Subscribe(conv.ID)
	defer h.srv.hub.Unsubscribe(sub)

	content := "I am so stressed about my exams"
	w, env = h.do(http.MethodPost, "/api/chats/"+conv.ID+"/messages", tok, map[string]any{"content": content})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sent := decode[sendResult](t, env.Data)
	assert.Equal(t, uid, sent.Message.SenderID)
	assert.Equal(t, model.AICompanionID, sent.Message.ReceiverID)
	require.NotNil(t, sent.Reply)
	assert.True(t, sent.Reply.IsAI)
	assert.Equal(t, model.AICompanionID, sent.Reply.SenderID)
	assert.Equal(t, companion.ReplyWith(content, func(int) int { return 0 }), sent.Reply.Content)

	for _, wantSender := range []string{uid, model.AICompanionID} {
		select {
		case ev := <-sub.C:
			assert.Equal(t, chathub.EventMessage, ev.Type)
			require.NotNil(t, ev.Message)
			assert.Equal(t, wantSender, ev.Message.SenderID)
		case <-time.After(time.Second):
			t.Fatal("expected chat event")
		}
	}

	w, env = h.do(http.MethodGet, "/api/chats/"+conv.ID+"/messages", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	msgs := decode[[]model.ChatMessage](t, env.Data)
	require.Len(t, msgs, 2)
	assert.Equal(t, content, msgs[0].Content)
	assert.True(t, msgs[1].IsAI)

	w, env = h.do(http.MethodPut, "/api/chats/"+conv.ID+"/read", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"updated":1}`, string(env.Data))

	w, env = h.do(http.MethodGet, "/api/chats", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]conversationView](t, env.Data)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].LastMessage)
	assert.Equal(t, model.AICompanionID, list[0].LastMessage.SenderID)
}

func TestConversationAccess(t *testing.T) {
	h := newHarness(t)
	owner, _ := h.register("Jo", "jo@example.com")
	stranger, _ := h.register("Rex", "rex@example.com")

	w, env := h.do(http.MethodPost, "/api/chats", owner, map[string]any{"type": "ai"})
	require.Equal(t, http.StatusCreated, w.Code)
	convID := decode[conversationView](t, env.Data).ID

	w, env = h.do(http.MethodPost, "/api/chats/"+convID+"/messages", owner, map[string]any{"content": "hello"})
	require.Equal(t, http.StatusCreated, w.Code)
	msgID := decode[sendResult](t, env.Data).Message.ID

	for _, req := range []struct{ method, path string }{
		{http.MethodGet, "/api/chats/" + convID},
		{http.MethodGet, "/api/chats/" + convID + "/messages"},
		{http.MethodPut, "/api/chats/" + convID + "/read"},
		{http.MethodDelete, "/api/chats/" + convID + "/messages/" + msgID},
		{http.MethodDelete, "/api/chats/" + convID},
	} {
		w, _ = h.do(req.method, req.path, stranger, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, req.method+" "+req.path)
	}

	w, env = h.do(http.MethodGet, "/api/chats", stranger, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(env.Data))

	w, _ = h.do(http.MethodDelete, "/api/chats/"+convID+"/messages/"+msgID, owner, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = h.do(http.MethodDelete, "/api/chats/"+convID, owner, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = h.do(http.MethodGet, "/api/chats/"+convID, owner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTherapistConversation(t *testing.T) {
	h := newHarness(t)
	_, therapistUser := h.register("Dr Ray", "ray@example.com")
	therapistTok := h.promote(therapistUser, "ray@example.com", model.RoleTherapist)
	seedTherapist(t, h, "t1", therapistUser)
	seedTherapist(t, h, "t-no-account", "")
	client, clientID := h.register("Sky", "sky@example.com")

	w, _ := h.do(http.MethodGet, "/api/users/me", therapistTok, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = h.do(http.MethodPost, "/api/chats", client, map[string]any{"type": "therapist"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = h.do(http.MethodPost, "/api/chats", client, map[string]any{"type": "therapist", "therapistId": "t-no-account"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env := h.do(http.MethodPost, "/api/chats", client, map[string]any{"type": "therapist", "therapistId": "t1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	conv := decode[conversationView](t, env.Data)
	assert.Equal(t, "t1", conv.TherapistID)

	// 咨询师刚请求过接口，在线
	assert.True(t, conv.Online)

	w, env = h.do(http.MethodPost, "/api/chats/"+conv.ID+"/messages", client, map[string]any{"content": "hi doctor"})
	require.Equal(t, http.StatusCreated, w.Code)
	sent := decode[sendResult](t, env.Data)
	assert.Equal(t, therapistUser, sent.Message.ReceiverID)
	assert.Nil(t, sent.Reply)

	w, env = h.do(http.MethodPut, "/api/chats/"+conv.ID+"/read", therapistTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"updated":1}`, string(env.Data))

	// 咨询师不能删除对方的消息
	w, _ = h.do(http.MethodDelete, "/api/chats/"+conv.ID+"/messages/"+sent.Message.ID, therapistTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = h.do(http.MethodPost, "/api/chats/"+conv.ID+"/messages", therapistTok, map[string]any{"content": "hello Sky"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, clientID, decode[sendResult](t, env.Data).Message.ReceiverID)
}

func TestSupportConversationHandledByAdmin(t *testing.T) {
	h := newHarness(t)
	user, userID := h.register("Tess", "tess@example.com")
	_, adminID := h.register("Admin", "admin@example.com")
	adminTok := h.promote(adminID, "admin@example.com", model.RoleAdmin)

	w, env := h.do(http.MethodPost, "/api/chats", user, map[string]any{"type": "support"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	convID := decode[conversationView](t, env.Data).ID

	w, _ = h.do(http.MethodPost, "/api/chats/"+convID+"/messages", user, map[string]any{"content": "I cannot change my plan"})
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = h.do(http.MethodGet, "/api/chats?scope=support", user, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = h.do(http.MethodGet, "/api/chats?scope=support", adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	inbox := decode[[]conversationView](t, env.Data)
	require.Len(t, inbox, 1)
	assert.Equal(t, convID, inbox[0].ID)

	w, env = h.do(http.MethodPut, "/api/chats/"+convID+"/read", adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"updated":1}`, string(env.Data))

	w, env = h.do(http.MethodPost, "/api/chats/"+convID+"/messages", adminTok, map[string]any{"content": "Let me check that for you"})
	require.Equal(t, http.StatusCreated, w.Code)
	reply := decode[sendResult](t, env.Data).Message
	assert.Equal(t, adminID, reply.SenderID)
	assert.Equal(t, userID, reply.ReceiverID)

	w, env = h.do(http.MethodPut, "/api/chats/"+convID+"/read", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"updated":1}`, string(env.Data))
}

func TestSendMessageValidation(t *testing.T) {
	h := newHarness(t)
	tok, _ := h.register("Uma", "uma@example.com")
	w, env := h.do(http.MethodPost, "/api/chats", tok, map[string]any{"type": "ai"})
	require.Equal(t, http.StatusCreated, w.Code)
	convID := decode[conversationView](t, env.Data).ID

	w, _ = h.do(http.MethodPost, "/api/chats/"+convID+"/messages", tok, map[string]any{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	long := make([]byte, 2001)
	for i := range long {
		long[i] = 'a'
	}
	w, _ = h.do(http.MethodPost, "/api/chats/"+convID+"/messages", tok, map[string]any{"content": string(long)})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = h.do(http.MethodPost, "/api/chats", tok, map[string]any{"type": "group"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
