package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/PaulBabatuyi/customer-chat/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const socketReadTimeout = 60 * time.Second

// inboundFrame is what clients send over the realtime channel.
type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type joinedFrame struct {
	Event string `json:"event"`
}

type privateMessageFrame struct {
	ReceiverID string          `json:"receiverId"`
	Message    json.RawMessage `json:"message"`
}

type typingFrame struct {
	ReceiverID string `json:"receiverId"`
	IsTyping   bool   `json:"isTyping"`
}

type messageReadFrame struct {
	SenderID string `json:"senderId"`
}

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range s.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
}

// handleWebsocket upgrades the connection and relays realtime events. The
// identity comes from the token, never from the client frames; a join event
// registers this connection as the user's presence entry, and the last
// connection to join wins.
func (s *Server) handleWebsocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "missing token"})
		return
	}
	claims, err := s.auth.VerifyToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthenticated"})
		return
	}
	userID := claims.UserID
	uid, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthenticated"})
		return
	}

	up := s.upgrader()
	ws, err := up.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the response.
		return
	}

	conn := realtime.NewConnection(userID, ws)
	conn.Start()

	registered := false
	defer func() {
		if registered && s.registry.Unregister(userID, conn) {
			// Only the connection that still owns the presence entry flips
			// the durable online flag; a replaced socket must not mark a
			// reconnected user offline. The request context is gone by now,
			// so use a fresh one for the write.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.users.SetOnline(ctx, uid, false); err != nil {
				s.logger.Warn("set offline on disconnect", "user", userID, "err", err)
			}
			s.logger.Info("user disconnected", "user", userID)
		}
		conn.Close("session closed")
	}()

	ws.SetReadLimit(1 << 20)
	_ = ws.SetReadDeadline(time.Now().Add(socketReadTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(socketReadTimeout))
	})

	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(socketReadTimeout))

		var frame inboundFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			continue
		}

		switch frame.Event {
		case "join":
			if replaced := s.registry.Register(userID, conn); replaced != nil {
				replaced.Close("session replaced")
			}
			registered = true
			if err := s.users.SetOnline(c.Request.Context(), uid, true); err != nil {
				s.logger.Warn("set online on join", "user", userID, "err", err)
			}
			if ack, err := json.Marshal(joinedFrame{Event: "joined"}); err == nil {
				_ = conn.Send(ack)
			}
			s.logger.Info("user joined", "user", userID)

		case "private-message":
			var pm privateMessageFrame
			if err := json.Unmarshal(frame.Data, &pm); err != nil || pm.ReceiverID == "" {
				continue
			}
			s.router.OnMessage(pm.ReceiverID, pm.Message)

		case "typing":
			var tf typingFrame
			if err := json.Unmarshal(frame.Data, &tf); err != nil || tf.ReceiverID == "" {
				continue
			}
			s.router.OnTyping(tf.ReceiverID, userID, tf.IsTyping)

		case "message-read":
			var mr messageReadFrame
			if err := json.Unmarshal(frame.Data, &mr); err != nil || mr.SenderID == "" {
				continue
			}
			s.router.OnReadReceipt(mr.SenderID, userID)
		}
	}
}
