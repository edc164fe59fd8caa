// Package data provides the MongoDB models and stores for users,
// conversations and messages.
package data

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Role labels an account. Exactly one admin account is expected to exist; the
// stores do not enforce that, the createadmin command does.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// MessageKind tags the payload of a message.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
	KindFile  MessageKind = "file"
)

// ValidKind reports whether k is one of the supported message kinds.
func ValidKind(k MessageKind) bool {
	switch k {
	case KindText, KindImage, KindFile:
		return true
	}
	return false
}

// User maps to the users collection.
type User struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string        `bson:"name" json:"name"`
	Email     string        `bson:"email" json:"email"`
	Password  string        `bson:"password" json:"-"`
	Avatar    string        `bson:"avatar,omitempty" json:"avatar"`
	Role      Role          `bson:"role" json:"role"`
	IsOnline  bool          `bson:"is_online" json:"isOnline"`
	LastSeen  time.Time     `bson:"last_seen" json:"lastSeen"`
	CreatedAt time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time     `bson:"updated_at" json:"updatedAt"`
}

// Ref returns the compact shape embedded in API payloads.
func (u *User) Ref() UserRef {
	return UserRef{ID: u.ID.Hex(), Name: u.Name, Avatar: u.Avatar}
}

// UserRef is the expanded participant reference in message and conversation
// payloads.
type UserRef struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// Conversation maps to the conversations collection. One document exists per
// unordered participant pair, keyed by PairKey.
type Conversation struct {
	ID            bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	PairKey       string          `bson:"pair_key" json:"-"`
	Participants  []bson.ObjectID `bson:"participants" json:"-"`
	LastMessageID bson.ObjectID   `bson:"last_message_id,omitempty" json:"-"`
	UnreadCount   int64           `bson:"unread_count" json:"unreadCount"`
	LastActivity  time.Time       `bson:"last_activity" json:"lastActivity"`
	CreatedAt     time.Time       `bson:"created_at" json:"createdAt"`
}

// PairKey derives the deterministic key for an unordered participant pair.
// Ordering the hex ids lexicographically makes PairKey(a,b) == PairKey(b,a).
func PairKey(a, b bson.ObjectID) string {
	ha, hb := a.Hex(), b.Hex()
	if strings.Compare(ha, hb) > 0 {
		ha, hb = hb, ha
	}
	return ha + ":" + hb
}

// Message maps to the messages collection. Immutable after insert except for
// the read flag transition.
type Message struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Sender    bson.ObjectID `bson:"sender" json:"senderId"`
	Receiver  bson.ObjectID `bson:"receiver" json:"receiverId"`
	Content   string        `bson:"content" json:"content"`
	Kind      MessageKind   `bson:"message_type" json:"messageType"`
	FileURL   string        `bson:"file_url,omitempty" json:"fileUrl,omitempty"`
	IsRead    bool          `bson:"is_read" json:"isRead"`
	ReadAt    *time.Time    `bson:"read_at,omitempty" json:"readAt,omitempty"`
	CreatedAt time.Time     `bson:"created_at" json:"createdAt"`
}
