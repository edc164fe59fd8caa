package data

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestConversationsFindOrCreate(t *testing.T) {
	c := setupDB(t)
	convs := NewConversationsStore(c.ConversationsCollection())
	ctx := context.Background()

	a := bson.NewObjectID()
	b := bson.NewObjectID()

	first, err := convs.FindOrCreate(ctx, a, b)
	if err != nil {
		t.Fatalf("FindOrCreate failed: %v", err)
	}
	if first.PairKey != PairKey(a, b) {
		t.Fatalf("wrong pair key: %s", first.PairKey)
	}

	// same pair in the opposite order resolves to the same document
	second, err := convs.FindOrCreate(ctx, b, a)
	if err != nil {
		t.Fatalf("FindOrCreate reversed failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected one conversation per pair, got %s and %s", first.ID.Hex(), second.ID.Hex())
	}
}

func TestConversationsRecordAndReset(t *testing.T) {
	c := setupDB(t)
	convs := NewConversationsStore(c.ConversationsCollection())
	ctx := context.Background()

	a := bson.NewObjectID()
	b := bson.NewObjectID()

	conv, err := convs.FindOrCreate(ctx, a, b)
	if err != nil {
		t.Fatalf("FindOrCreate failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := convs.RecordMessage(ctx, conv.ID, bson.NewObjectID(), time.Now()); err != nil {
			t.Fatalf("RecordMessage failed: %v", err)
		}
	}

	got, err := convs.Find(ctx, a, b)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if got.UnreadCount != 3 {
		t.Fatalf("expected unread 3, got %d", got.UnreadCount)
	}
	if got.LastMessageID.IsZero() {
		t.Fatal("expected last_message_id to be set")
	}

	if err := convs.ResetUnread(ctx, conv.ID); err != nil {
		t.Fatalf("ResetUnread failed: %v", err)
	}
	got, err = convs.Find(ctx, a, b)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if got.UnreadCount != 0 {
		t.Fatalf("expected unread 0 after reset, got %d", got.UnreadCount)
	}
}

func TestConversationsFindAbsent(t *testing.T) {
	c := setupDB(t)
	convs := NewConversationsStore(c.ConversationsCollection())
	ctx := context.Background()

	conv, err := convs.Find(ctx, bson.NewObjectID(), bson.NewObjectID())
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if conv != nil {
		t.Fatal("expected nil for a pair with no history")
	}
}

func TestConversationsListFor(t *testing.T) {
	c := setupDB(t)
	convs := NewConversationsStore(c.ConversationsCollection())
	ctx := context.Background()

	admin := bson.NewObjectID()
	alice := bson.NewObjectID()
	bob := bson.NewObjectID()

	older, err := convs.FindOrCreate(ctx, admin, alice)
	if err != nil {
		t.Fatalf("FindOrCreate failed: %v", err)
	}
	newer, err := convs.FindOrCreate(ctx, admin, bob)
	if err != nil {
		t.Fatalf("FindOrCreate failed: %v", err)
	}

	base := time.Now()
	if err := convs.RecordMessage(ctx, older.ID, bson.NewObjectID(), base); err != nil {
		t.Fatalf("RecordMessage failed: %v", err)
	}
	if err := convs.RecordMessage(ctx, newer.ID, bson.NewObjectID(), base.Add(time.Minute)); err != nil {
		t.Fatalf("RecordMessage failed: %v", err)
	}

	// a participant sees only their own conversations, most recent first
	list, err := convs.ListFor(ctx, alice, false)
	if err != nil {
		t.Fatalf("ListFor failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != older.ID {
		t.Fatalf("expected alice's single conversation, got %d", len(list))
	}

	all, err := convs.ListFor(ctx, admin, true)
	if err != nil {
		t.Fatalf("ListFor all failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(all))
	}
	if all[0].ID != newer.ID {
		t.Fatal("expected most recently active conversation first")
	}
}
