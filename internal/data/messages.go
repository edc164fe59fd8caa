package data

import (
	"context"
	"time"

	"github.com/PaulBabatuyi/customer-chat/internal/apperr"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MessagesStore provides message database operations.
type MessagesStore struct {
	coll *mongo.Collection
}

// NewMessagesStore returns a MessagesStore using the given collection.
func NewMessagesStore(coll *mongo.Collection) *MessagesStore {
	return &MessagesStore{coll: coll}
}

// Append inserts a message document and returns the stored record with its
// generated id. Messages are immutable after this point except for the read
// transition.
func (m *MessagesStore) Append(ctx context.Context, msg *Message) (*Message, error) {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	result, err := m.coll.InsertOne(ctx, msg)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	msg.ID = result.InsertedID.(bson.ObjectID)
	return msg, nil
}

// ListBetween returns every message exchanged between the two users in both
// directions, ascending by creation time. An empty slice (not an error) when
// the pair has no history.
func (m *MessagesStore) ListBetween(ctx context.Context, a, b bson.ObjectID) ([]*Message, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"sender": a, "receiver": b},
			bson.M{"sender": b, "receiver": a},
		},
	}
	opts := options.Find().SetSort(bson.M{"created_at": 1})

	cursor, err := m.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer cursor.Close(ctx)

	msgs := []*Message{}
	if err = cursor.All(ctx, &msgs); err != nil {
		return nil, apperr.Storage(err)
	}
	return msgs, nil
}

// MarkConversationRead transitions every unread message from other to viewer
// to read with the given timestamp, returning how many were flipped. Matching
// only is_read=false makes repeated calls no-ops that never touch an earlier
// read_at.
func (m *MessagesStore) MarkConversationRead(ctx context.Context, viewer, other bson.ObjectID, at time.Time) (int64, error) {
	filter := bson.M{"sender": other, "receiver": viewer, "is_read": false}
	update := bson.M{"$set": bson.M{"is_read": true, "read_at": at}}

	res, err := m.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, apperr.Storage(err)
	}
	return res.ModifiedCount, nil
}

// Get fetches a single message by id.
func (m *MessagesStore) Get(ctx context.Context, id bson.ObjectID) (*Message, error) {
	var msg Message
	err := m.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&msg)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFound("message not found")
		}
		return nil, apperr.Storage(err)
	}
	return &msg, nil
}

// MarkRead flips a single message to read. Matching is_read=false keeps the
// operation idempotent: a second call changes nothing.
func (m *MessagesStore) MarkRead(ctx context.Context, id bson.ObjectID, at time.Time) error {
	filter := bson.M{"_id": id, "is_read": false}
	update := bson.M{"$set": bson.M{"is_read": true, "read_at": at}}
	if _, err := m.coll.UpdateOne(ctx, filter, update); err != nil {
		return apperr.Storage(err)
	}
	return nil
}

// CountUnread returns the number of unread messages addressed to the user
// across all conversations.
func (m *MessagesStore) CountUnread(ctx context.Context, receiver bson.ObjectID) (int64, error) {
	count, err := m.coll.CountDocuments(ctx, bson.M{"receiver": receiver, "is_read": false})
	if err != nil {
		return 0, apperr.Storage(err)
	}
	return count, nil
}
