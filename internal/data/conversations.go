package data

import (
	"context"
	"time"

	"github.com/PaulBabatuyi/customer-chat/internal/apperr"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ConversationsStore owns the conversation ledger: one record per unordered
// participant pair with the unread counter and last-activity bookkeeping.
type ConversationsStore struct {
	coll *mongo.Collection
}

// NewConversationsStore returns a ConversationsStore using the given collection.
func NewConversationsStore(coll *mongo.Collection) *ConversationsStore {
	return &ConversationsStore{coll: coll}
}

// FindOrCreate returns the conversation for the unordered pair (a, b),
// creating it with a zero unread counter when absent. The upsert races
// safely: concurrent callers for the same pair hit the unique pair_key index
// and converge on one document.
func (c *ConversationsStore) FindOrCreate(ctx context.Context, a, b bson.ObjectID) (*Conversation, error) {
	key := PairKey(a, b)
	now := time.Now()

	filter := bson.M{"pair_key": key}
	update := bson.M{"$setOnInsert": bson.M{
		"pair_key":      key,
		"participants":  bson.A{a, b},
		"unread_count":  int64(0),
		"last_activity": now,
		"created_at":    now,
	}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var conv Conversation
	if err := c.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&conv); err != nil {
		return nil, apperr.Storage(err)
	}
	return &conv, nil
}

// Find returns the conversation for the pair, or nil (no error) when the two
// users have never exchanged a message.
func (c *ConversationsStore) Find(ctx context.Context, a, b bson.ObjectID) (*Conversation, error) {
	var conv Conversation
	err := c.coll.FindOne(ctx, bson.M{"pair_key": PairKey(a, b)}).Decode(&conv)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, apperr.Storage(err)
	}
	return &conv, nil
}

// RecordMessage advances the conversation after a persisted send: last
// message pointer, last activity, and an atomic unread increment. The $inc
// happens server-side, so concurrent sends to the same pair cannot lose an
// increment.
func (c *ConversationsStore) RecordMessage(ctx context.Context, convID, msgID bson.ObjectID, at time.Time) error {
	update := bson.M{
		"$set": bson.M{
			"last_message_id": msgID,
			"last_activity":   at,
		},
		"$inc": bson.M{"unread_count": int64(1)},
	}
	res, err := c.coll.UpdateOne(ctx, bson.M{"_id": convID}, update)
	if err != nil {
		return apperr.Storage(err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("conversation not found")
	}
	return nil
}

// ResetUnread zeroes the unread counter. Idempotent.
func (c *ConversationsStore) ResetUnread(ctx context.Context, convID bson.ObjectID) error {
	update := bson.M{"$set": bson.M{"unread_count": int64(0)}}
	if _, err := c.coll.UpdateOne(ctx, bson.M{"_id": convID}, update); err != nil {
		return apperr.Storage(err)
	}
	return nil
}

// ListFor returns conversations ordered by most recent activity. When all is
// true (admin view) every conversation is returned, otherwise only those the
// user participates in.
func (c *ConversationsStore) ListFor(ctx context.Context, userID bson.ObjectID, all bool) ([]*Conversation, error) {
	filter := bson.M{}
	if !all {
		filter = bson.M{"participants": userID}
	}

	opts := options.Find().SetSort(bson.M{"last_activity": -1})
	cursor, err := c.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer cursor.Close(ctx)

	var convs []*Conversation
	if err = cursor.All(ctx, &convs); err != nil {
		return nil, apperr.Storage(err)
	}
	return convs, nil
}
