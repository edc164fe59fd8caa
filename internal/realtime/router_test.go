package realtime

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/PaulBabatuyi/customer-chat/internal/presence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureConn struct {
	sent [][]byte
	fail bool
}

func (c *captureConn) Send(p []byte) error {
	if c.fail {
		return errors.New("send fail")
	}
	c.sent = append(c.sent, p)
	return nil
}

func (c *captureConn) Close(string) {}

func decode(t *testing.T, raw []byte) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

func TestRouter_OnMessageDeliversToReceiver(t *testing.T) {
	reg := presence.NewRegistry()
	conn := &captureConn{}
	reg.Register("bob", conn)

	r := NewRouter(reg, nil)
	r.OnMessage("bob", map[string]string{"content": "hello"})

	require.Len(t, conn.sent, 1)
	env := decode(t, conn.sent[0])
	assert.Equal(t, EventNewMessage, env.Event)
	assert.Equal(t, "hello", env.Data.(map[string]any)["content"])
}

func TestRouter_DropsWhenOffline(t *testing.T) {
	reg := presence.NewRegistry()
	r := NewRouter(reg, nil)

	// None of these may error or panic; offline targets are silent drops.
	r.OnMessage("nobody", map[string]string{"content": "x"})
	r.OnTyping("nobody", "alice", true)
	r.OnReadReceipt("nobody", "alice")
}

func TestRouter_SendFailureIsSwallowed(t *testing.T) {
	reg := presence.NewRegistry()
	reg.Register("bob", &captureConn{fail: true})

	r := NewRouter(reg, nil)
	r.OnMessage("bob", map[string]string{"content": "x"})
	// No panic, no error: a broken receiving connection never becomes the
	// sender's failure.
}

func TestRouter_TypingPayloadShape(t *testing.T) {
	reg := presence.NewRegistry()
	conn := &captureConn{}
	reg.Register("bob", conn)

	r := NewRouter(reg, nil)
	r.OnTyping("bob", "alice", true)

	require.Len(t, conn.sent, 1)
	env := decode(t, conn.sent[0])
	assert.Equal(t, EventUserTyping, env.Event)
	data := env.Data.(map[string]any)
	assert.Equal(t, "alice", data["userId"])
	assert.Equal(t, true, data["isTyping"])
}

func TestRouter_ReadReceiptGoesToSender(t *testing.T) {
	reg := presence.NewRegistry()
	senderConn := &captureConn{}
	reg.Register("alice", senderConn)

	r := NewRouter(reg, nil)
	r.OnReadReceipt("alice", "admin-1")

	require.Len(t, senderConn.sent, 1)
	env := decode(t, senderConn.sent[0])
	assert.Equal(t, EventMessageReadBy, env.Event)
	assert.Equal(t, "admin-1", env.Data.(map[string]any)["readerUserId"])
}

func TestRouter_RoutesOnlyToLatestConnection(t *testing.T) {
	reg := presence.NewRegistry()
	old := &captureConn{}
	fresh := &captureConn{}

	reg.Register("bob", old)
	reg.Register("bob", fresh)

	r := NewRouter(reg, nil)
	r.OnMessage("bob", map[string]string{"content": "hi"})

	assert.Empty(t, old.sent)
	require.Len(t, fresh.sent, 1)
}
