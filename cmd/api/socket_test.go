package main

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dialSocket(t *testing.T, server *httptest.Server, token string) *wsClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &wsClient{t: t, conn: conn}
}

func (c *wsClient) send(event string, data any) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(map[string]any{"event": event, "data": data}))
}

// join registers the socket and waits for the ack so the presence entry is
// in place before the test proceeds.
func (c *wsClient) join() {
	c.t.Helper()
	c.send("join", map[string]any{})
	frame := c.read()
	require.Equal(c.t, "joined", frame["event"])
}

func (c *wsClient) read() map[string]any {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := c.conn.ReadMessage()
	require.NoError(c.t, err)
	var frame map[string]any
	require.NoError(c.t, json.Unmarshal(raw, &frame))
	return frame
}

func (c *wsClient) expectClosed() {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestWebsocketRejectsBadToken(t *testing.T) {
	f := newAPIFixture(t)
	server := httptest.NewServer(f.engine)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	_, _, err := websocket.DefaultDialer.Dial(url, nil)
	assert.Error(t, err, "missing token must not upgrade")

	_, _, err = websocket.DefaultDialer.Dial(url+"?token=garbage", nil)
	assert.Error(t, err)
}

func TestWebsocketTypingRelay(t *testing.T) {
	f := newAPIFixture(t)
	server := httptest.NewServer(f.engine)
	defer server.Close()

	admin := dialSocket(t, server, f.token(t, f.admin))
	admin.join()
	customer := dialSocket(t, server, f.token(t, f.customer))
	customer.join()

	customer.send("typing", map[string]any{"receiverId": f.admin.ID.Hex(), "isTyping": true})

	frame := admin.read()
	require.Equal(t, "user-typing", frame["event"])
	payload := frame["data"].(map[string]any)
	assert.Equal(t, f.customer.ID.Hex(), payload["userId"])
	assert.Equal(t, true, payload["isTyping"])
}

func TestWebsocketMessageRelay(t *testing.T) {
	f := newAPIFixture(t)
	server := httptest.NewServer(f.engine)
	defer server.Close()

	admin := dialSocket(t, server, f.token(t, f.admin))
	admin.join()
	customer := dialSocket(t, server, f.token(t, f.customer))
	customer.join()

	customer.send("private-message", map[string]any{
		"receiverId": f.admin.ID.Hex(),
		"message":    map[string]any{"content": "hi", "senderId": f.customer.ID.Hex()},
	})

	frame := admin.read()
	require.Equal(t, "new-message", frame["event"])
	payload := frame["data"].(map[string]any)
	assert.Equal(t, "hi", payload["content"])
	assert.Equal(t, f.customer.ID.Hex(), payload["senderId"])
}

func TestWebsocketReadReceiptRelay(t *testing.T) {
	f := newAPIFixture(t)
	server := httptest.NewServer(f.engine)
	defer server.Close()

	customer := dialSocket(t, server, f.token(t, f.customer))
	customer.join()
	admin := dialSocket(t, server, f.token(t, f.admin))
	admin.join()

	// The admin viewed the customer's messages; the customer is told who.
	admin.send("message-read", map[string]any{"senderId": f.customer.ID.Hex()})

	frame := customer.read()
	require.Equal(t, "message-read-by", frame["event"])
	payload := frame["data"].(map[string]any)
	assert.Equal(t, f.admin.ID.Hex(), payload["readerUserId"])
}

func TestWebsocketSessionReplaced(t *testing.T) {
	f := newAPIFixture(t)
	server := httptest.NewServer(f.engine)
	defer server.Close()

	first := dialSocket(t, server, f.token(t, f.admin))
	first.join()
	second := dialSocket(t, server, f.token(t, f.admin))
	second.join()

	// The older session is evicted; events go to the replacement only.
	first.expectClosed()

	customer := dialSocket(t, server, f.token(t, f.customer))
	customer.join()
	customer.send("typing", map[string]any{"receiverId": f.admin.ID.Hex(), "isTyping": true})

	frame := second.read()
	assert.Equal(t, "user-typing", frame["event"])
}

func TestWebsocketJoinMarksOnline(t *testing.T) {
	f := newAPIFixture(t)
	server := httptest.NewServer(f.engine)
	defer server.Close()

	require.False(t, f.accounts.online(f.customer.ID))

	customer := dialSocket(t, server, f.token(t, f.customer))
	customer.join()
	assert.True(t, f.accounts.online(f.customer.ID))

	require.NoError(t, customer.conn.Close())
	assert.Eventually(t, func() bool {
		return !f.accounts.online(f.customer.ID)
	}, 2*time.Second, 10*time.Millisecond, "disconnect flips the user offline")
}
