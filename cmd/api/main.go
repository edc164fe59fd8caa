package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/PaulBabatuyi/customer-chat/internal/auth"
	"github.com/PaulBabatuyi/customer-chat/internal/chat"
	"github.com/PaulBabatuyi/customer-chat/internal/data"
	"github.com/PaulBabatuyi/customer-chat/internal/db"
	"github.com/PaulBabatuyi/customer-chat/internal/middleware"
	"github.com/PaulBabatuyi/customer-chat/internal/presence"
	"github.com/PaulBabatuyi/customer-chat/internal/realtime"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Read configuration from environment
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		logger.Error("MONGODB_URI must be set")
		os.Exit(1)
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("JWT_SECRET must be set")
		os.Exit(1)
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	var allowedOrigins []string
	for _, o := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowedOrigins = append(allowedOrigins, o)
		}
	}

	ctx := context.Background()

	// Initialize database
	dbClient, err := db.New(ctx, mongoURI)
	if err != nil {
		logger.Error("failed to connect to DB", "err", err)
		os.Exit(1)
	}
	defer func() {
		_ = dbClient.Close(ctx)
	}()

	// Ensure indexes exist
	if err := dbClient.CreateIndexes(ctx); err != nil {
		logger.Error("failed to create indexes", "err", err)
		os.Exit(1)
	}

	// Create stores
	usersStore := data.NewUsersStore(dbClient.UsersCollection())
	convsStore := data.NewConversationsStore(dbClient.ConversationsCollection())
	msgsStore := data.NewMessagesStore(dbClient.MessagesCollection())

	// Tokens are valid for 24 hours, matching the session length the web
	// client assumes.
	jwtMgr := auth.NewJWTManager(jwtSecret, 24*time.Hour)

	// RATE_LIMIT_RPM controls requests per minute for register and login.
	rateRPM := 10
	if v := os.Getenv("RATE_LIMIT_RPM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			rateRPM = n
		}
	}
	// Small burst to allow a couple of quick retries.
	limiterStore := middleware.NewLimiterStore(rateRPM, 3, 1*time.Minute)
	defer limiterStore.Stop()

	registry := presence.NewRegistry()
	router := realtime.NewRouter(registry, logger)
	chatSvc := chat.NewService(usersStore, convsStore, msgsStore, router)

	srv := newServer(usersStore, chatSvc, jwtMgr, registry, router, limiterStore, logger, allowedOrigins)

	httpSrv := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // websocket connections write indefinitely
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", port)
		errCh <- httpSrv.ListenAndServe()
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "err", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	}
}
