// Command createadmin seeds the single admin account. It is safe to run
// repeatedly: if an admin already exists nothing is changed.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/PaulBabatuyi/customer-chat/internal/apperr"
	"github.com/PaulBabatuyi/customer-chat/internal/auth"
	"github.com/PaulBabatuyi/customer-chat/internal/data"
	"github.com/PaulBabatuyi/customer-chat/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		logger.Error("MONGODB_URI must be set")
		os.Exit(1)
	}

	name := os.Getenv("ADMIN_NAME")
	if name == "" {
		name = "Admin User"
	}
	email := os.Getenv("ADMIN_EMAIL")
	if email == "" {
		email = "admin@example.com"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbClient, err := db.New(ctx, mongoURI)
	if err != nil {
		logger.Error("failed to connect to DB", "err", err)
		os.Exit(1)
	}
	defer func() {
		_ = dbClient.Close(ctx)
	}()

	users := data.NewUsersStore(dbClient.UsersCollection())

	existing, err := users.FindAdmin(ctx)
	if err == nil {
		fmt.Printf("admin already exists: %s <%s>\n", existing.Name, existing.Email)
		return
	}
	if apperr.CodeOf(err) != apperr.CodeNotFound {
		logger.Error("failed to look up admin", "err", err)
		os.Exit(1)
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		logger.Error("failed to hash password", "err", err)
		os.Exit(1)
	}

	admin, err := users.CreateUser(ctx, name, email, hashed, data.RoleAdmin)
	if err != nil {
		logger.Error("failed to create admin", "err", err)
		os.Exit(1)
	}

	fmt.Printf("admin created: %s <%s> (id %s)\n", admin.Name, admin.Email, admin.ID.Hex())
}
