package db

import (
	"context"
	"os"
	"testing"
)

// Integration test; requires a running MongoDB instance. Set MONGODB_URI in
// the environment before running.

func TestNewAndCreateIndexes(t *testing.T) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set; skipping integration test")
	}

	ctx := context.Background()
	c, err := New(ctx, uri)
	if err != nil {
		t.Fatalf("failed to connect to DB: %v", err)
	}
	defer func() {
		_ = c.db.Collection("users").Drop(context.Background())
		_ = c.db.Collection("conversations").Drop(context.Background())
		_ = c.db.Collection("messages").Drop(context.Background())
		_ = c.Close(context.Background())
	}()

	if err := c.CreateIndexes(ctx); err != nil {
		t.Fatalf("CreateIndexes failed: %v", err)
	}

	// creating the same indexes again must be a no-op
	if err := c.CreateIndexes(ctx); err != nil {
		t.Fatalf("CreateIndexes second run failed: %v", err)
	}
}
