package realtime

import (
	"encoding/json"
	"log/slog"

	"github.com/PaulBabatuyi/customer-chat/internal/presence"
)

// Event names pushed over the live channel.
const (
	EventNewMessage    = "new-message"
	EventUserTyping    = "user-typing"
	EventMessageReadBy = "message-read-by"
)

// Envelope frames every payload on the wire.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// TypingPayload notifies a receiver about compose activity.
type TypingPayload struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// ReadReceiptPayload tells a sender who viewed their messages.
type ReadReceiptPayload struct {
	ReaderUserID string `json:"readerUserId"`
}

// Router resolves the target of each realtime event against the presence
// registry and pushes it if the target is reachable. It holds no state of its
// own. Every push is fire-and-forget: an offline target or a failed write is
// logged and dropped, never surfaced to the caller — durable state lives in
// the store, and a reconnecting client re-fetches history instead of trusting
// pushes.
type Router struct {
	registry *presence.Registry
	logger   *slog.Logger
}

// NewRouter returns a Router over the given registry.
func NewRouter(registry *presence.Registry, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{registry: registry, logger: logger}
}

// OnMessage pushes a persisted message record to the receiver, if connected.
func (r *Router) OnMessage(receiverID string, message any) {
	r.push(receiverID, EventNewMessage, message)
}

// OnTyping relays a compose-activity signal to the receiver, if connected.
func (r *Router) OnTyping(receiverID, fromUserID string, isTyping bool) {
	r.push(receiverID, EventUserTyping, TypingPayload{UserID: fromUserID, IsTyping: isTyping})
}

// OnReadReceipt notifies the original sender that the reader has viewed the
// conversation, if the sender is connected.
func (r *Router) OnReadReceipt(senderID, readerID string) {
	r.push(senderID, EventMessageReadBy, ReadReceiptPayload{ReaderUserID: readerID})
}

func (r *Router) push(userID, event string, data any) {
	conn, ok := r.registry.Lookup(userID)
	if !ok {
		// Expected: the target sees the state on next conversation load.
		r.logger.Debug("drop realtime event, user offline", "event", event, "user", userID)
		return
	}

	payload, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		r.logger.Error("marshal realtime event", "event", event, "err", err)
		return
	}

	if err := conn.Send(payload); err != nil {
		// A severed or stalled connection is not the sender's problem.
		r.logger.Warn("realtime delivery failed", "event", event, "user", userID, "err", err)
	}
}
