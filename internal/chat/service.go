// Package chat implements the message pipeline and the unread/read-state
// tracking on top of the durable stores, with best-effort realtime fan-out.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/PaulBabatuyi/customer-chat/internal/apperr"
	"github.com/PaulBabatuyi/customer-chat/internal/data"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// UserStore is the slice of the account collaborator the pipeline needs.
type UserStore interface {
	GetUserByID(ctx context.Context, id bson.ObjectID) (*data.User, error)
}

// ConversationStore is the durable conversation ledger.
type ConversationStore interface {
	FindOrCreate(ctx context.Context, a, b bson.ObjectID) (*data.Conversation, error)
	Find(ctx context.Context, a, b bson.ObjectID) (*data.Conversation, error)
	RecordMessage(ctx context.Context, convID, msgID bson.ObjectID, at time.Time) error
	ResetUnread(ctx context.Context, convID bson.ObjectID) error
	ListFor(ctx context.Context, userID bson.ObjectID, all bool) ([]*data.Conversation, error)
}

// MessageStore is the durable message log.
type MessageStore interface {
	Append(ctx context.Context, msg *data.Message) (*data.Message, error)
	ListBetween(ctx context.Context, a, b bson.ObjectID) ([]*data.Message, error)
	MarkConversationRead(ctx context.Context, viewer, other bson.ObjectID, at time.Time) (int64, error)
	Get(ctx context.Context, id bson.ObjectID) (*data.Message, error)
	MarkRead(ctx context.Context, id bson.ObjectID, at time.Time) error
	CountUnread(ctx context.Context, receiver bson.ObjectID) (int64, error)
}

// Notifier receives the realtime events the pipeline emits. Dispatch is
// synchronous within request handling and strictly best-effort; none of the
// methods report failure because delivery failure is not a pipeline failure.
type Notifier interface {
	OnMessage(receiverID string, message any)
	OnTyping(receiverID, fromUserID string, isTyping bool)
	OnReadReceipt(senderID, readerID string)
}

// MessageView is a message with its participants expanded, as returned by the
// API and pushed over the realtime channel.
type MessageView struct {
	ID          string           `json:"id"`
	Sender      data.UserRef     `json:"sender"`
	Receiver    data.UserRef     `json:"receiver"`
	Content     string           `json:"content"`
	MessageType data.MessageKind `json:"messageType"`
	FileURL     string           `json:"fileUrl,omitempty"`
	IsRead      bool             `json:"isRead"`
	ReadAt      *time.Time       `json:"readAt,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// ParticipantView expands a conversation participant for list payloads.
type ParticipantView struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Avatar   string    `json:"avatar"`
	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`
}

// ConversationView is a conversation with participants and last message
// expanded.
type ConversationView struct {
	ID           string            `json:"id"`
	Participants []ParticipantView `json:"participants"`
	LastMessage  *data.Message     `json:"lastMessage"`
	UnreadCount  int64             `json:"unreadCount"`
	LastActivity time.Time         `json:"lastActivity"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// Service orchestrates sends, reads and unread bookkeeping against the
// injected stores, and hands delivery events to the notifier.
type Service struct {
	users    UserStore
	convs    ConversationStore
	msgs     MessageStore
	notifier Notifier
}

// NewService wires a Service.
func NewService(users UserStore, convs ConversationStore, msgs MessageStore, notifier Notifier) *Service {
	return &Service{users: users, convs: convs, msgs: msgs, notifier: notifier}
}

// Send runs the pipeline for one message: validate, resolve the conversation,
// persist the message, advance the ledger, then fan out. A persist failure
// aborts the later steps; an unreachable receiver never fails the send.
func (s *Service) Send(ctx context.Context, senderID, receiverID bson.ObjectID, content string, kind data.MessageKind, fileURL string) (*MessageView, error) {
	if kind == "" {
		kind = data.KindText
	}
	if !data.ValidKind(kind) {
		return nil, apperr.Validation("unknown message type")
	}
	content = strings.TrimSpace(content)
	if kind == data.KindText && content == "" {
		return nil, apperr.Validation("message content is required")
	}
	if senderID == receiverID {
		return nil, apperr.Validation("cannot send a message to yourself")
	}

	// The receiver lookup doubles as the existence check.
	receiver, err := s.users.GetUserByID(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	sender, err := s.users.GetUserByID(ctx, senderID)
	if err != nil {
		return nil, err
	}

	conv, err := s.convs.FindOrCreate(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}

	msg, err := s.msgs.Append(ctx, &data.Message{
		Sender:    senderID,
		Receiver:  receiverID,
		Content:   content,
		Kind:      kind,
		FileURL:   fileURL,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return nil, err
	}

	if err := s.convs.RecordMessage(ctx, conv.ID, msg.ID, msg.CreatedAt); err != nil {
		return nil, err
	}

	view := expandMessage(msg, sender, receiver)

	// Step 4 is fire-and-forget: if the receiver is offline the message waits
	// in the store for their next conversation load.
	s.notifier.OnMessage(receiverID.Hex(), view)

	return view, nil
}

// OpenConversation is the read-state tracker entry point: it commits the
// pending reads for viewer, zeroes the unread counter and tells the
// counterpart (if connected) that their messages were seen, then returns the
// full ordered history.
func (s *Service) OpenConversation(ctx context.Context, viewerID, otherID bson.ObjectID) ([]*MessageView, *data.Conversation, error) {
	conv, err := s.convs.Find(ctx, viewerID, otherID)
	if err != nil {
		return nil, nil, err
	}

	if conv != nil {
		now := time.Now()
		if _, err := s.msgs.MarkConversationRead(ctx, viewerID, otherID, now); err != nil {
			return nil, nil, err
		}
		if err := s.convs.ResetUnread(ctx, conv.ID); err != nil {
			return nil, nil, err
		}
		conv.UnreadCount = 0

		s.notifier.OnReadReceipt(otherID.Hex(), viewerID.Hex())
	}

	msgs, err := s.msgs.ListBetween(ctx, viewerID, otherID)
	if err != nil {
		return nil, nil, err
	}

	views, err := s.expandMessages(ctx, msgs)
	if err != nil {
		return nil, nil, err
	}
	return views, conv, nil
}

// ListConversations returns the caller's conversations, or every conversation
// for the admin, most recent activity first.
func (s *Service) ListConversations(ctx context.Context, userID bson.ObjectID, isAdmin bool) ([]*ConversationView, error) {
	convs, err := s.convs.ListFor(ctx, userID, isAdmin)
	if err != nil {
		return nil, err
	}

	cache := map[bson.ObjectID]*data.User{}
	views := make([]*ConversationView, 0, len(convs))
	for _, conv := range convs {
		view := &ConversationView{
			ID:           conv.ID.Hex(),
			UnreadCount:  conv.UnreadCount,
			LastActivity: conv.LastActivity,
			CreatedAt:    conv.CreatedAt,
		}

		for _, pid := range conv.Participants {
			u, err := s.userCached(ctx, cache, pid)
			if err != nil {
				return nil, err
			}
			view.Participants = append(view.Participants, ParticipantView{
				ID:       u.ID.Hex(),
				Name:     u.Name,
				Avatar:   u.Avatar,
				IsOnline: u.IsOnline,
				LastSeen: u.LastSeen,
			})
		}

		if !conv.LastMessageID.IsZero() {
			last, err := s.msgs.Get(ctx, conv.LastMessageID)
			if err == nil {
				view.LastMessage = last
			} else if apperr.CodeOf(err) != apperr.CodeNotFound {
				return nil, err
			}
		}

		views = append(views, view)
	}
	return views, nil
}

// MarkMessageRead marks one message read on behalf of caller. Only the
// message's receiver may do this; an already-read message is returned
// unchanged, its original read timestamp intact.
func (s *Service) MarkMessageRead(ctx context.Context, callerID, messageID bson.ObjectID) (*data.Message, error) {
	msg, err := s.msgs.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Receiver != callerID {
		return nil, apperr.Forbidden("only the receiver can mark a message read")
	}
	if msg.IsRead {
		return msg, nil
	}

	now := time.Now()
	if err := s.msgs.MarkRead(ctx, messageID, now); err != nil {
		return nil, err
	}
	msg.IsRead = true
	msg.ReadAt = &now

	s.notifier.OnReadReceipt(msg.Sender.Hex(), callerID.Hex())
	return msg, nil
}

// UnreadCount returns the total number of unread messages addressed to the
// user across all conversations.
func (s *Service) UnreadCount(ctx context.Context, userID bson.ObjectID) (int64, error) {
	return s.msgs.CountUnread(ctx, userID)
}

func (s *Service) userCached(ctx context.Context, cache map[bson.ObjectID]*data.User, id bson.ObjectID) (*data.User, error) {
	if u, ok := cache[id]; ok {
		return u, nil
	}
	u, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cache[id] = u
	return u, nil
}

func (s *Service) expandMessages(ctx context.Context, msgs []*data.Message) ([]*MessageView, error) {
	cache := map[bson.ObjectID]*data.User{}
	views := make([]*MessageView, 0, len(msgs))
	for _, msg := range msgs {
		sender, err := s.userCached(ctx, cache, msg.Sender)
		if err != nil {
			return nil, err
		}
		receiver, err := s.userCached(ctx, cache, msg.Receiver)
		if err != nil {
			return nil, err
		}
		views = append(views, expandMessage(msg, sender, receiver))
	}
	return views, nil
}

func expandMessage(msg *data.Message, sender, receiver *data.User) *MessageView {
	return &MessageView{
		ID:          msg.ID.Hex(),
		Sender:      sender.Ref(),
		Receiver:    receiver.Ref(),
		Content:     msg.Content,
		MessageType: msg.Kind,
		FileURL:     msg.FileURL,
		IsRead:      msg.IsRead,
		ReadAt:      msg.ReadAt,
		CreatedAt:   msg.CreatedAt,
	}
}
