package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masoommulla/project-sub001/internal/pkg/chathub"
)

func TestChatStream(t *testing.T) {
	h := newHarness(t)
	tok, uid := h.register("Wes", "wes@example.com")
	stranger, _ := h.register("Val", "val@example.com")

	w, env := h.do(http.MethodPost, "/api/chats", tok, map[string]any{"type": "ai"})
	require.Equal(t, http.StatusCreated, w.Code)
	convID := decode[conversationView](t, env.Data).ID

	ts := httptest.NewServer(h.srv.Router())
	defer ts.Close()
	base := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/chats/" + convID + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(base, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(base+"?token="+stranger, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	bad := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err = websocket.DefaultDialer.Dial(base+"?token="+tok, bad)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(base+"?token="+tok, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return h.srv.hub.Subscribers(convID) == 1 }, time.Second, 10*time.Millisecond)

	w, _ = h.do(http.MethodPost, "/api/chats/"+convID+"/messages", tok, map[string]any{"content": "good morning"})
	require.Equal(t, http.StatusCreated, w.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev chathub.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, chathub.EventMessage, ev.Type)
	require.NotNil(t, ev.Message)
	assert.Equal(t, uid, ev.Message.SenderID)
	assert.Equal(t, "good morning", ev.Message.Content)

	require.NoError(t, conn.ReadJSON(&ev))
	require.NotNil(t, ev.Message)
	assert.True(t, ev.Message.IsAI)

	conn.Close()
	require.Eventually(t, func() bool { return h.srv.hub.Subscribers(convID) == 0 }, 2*time.Second, 10*time.Millisecond)
}
