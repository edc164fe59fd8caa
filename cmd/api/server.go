package main

import (
	"context"
	"log/slog"

	"github.com/PaulBabatuyi/customer-chat/internal/auth"
	"github.com/PaulBabatuyi/customer-chat/internal/chat"
	"github.com/PaulBabatuyi/customer-chat/internal/data"
	"github.com/PaulBabatuyi/customer-chat/internal/middleware"
	"github.com/PaulBabatuyi/customer-chat/internal/presence"
	"github.com/PaulBabatuyi/customer-chat/internal/realtime"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// accountStore is the slice of the users store the API consumes. Declared
// here so handler tests can swap in an in-memory implementation.
type accountStore interface {
	CreateUser(ctx context.Context, name, email, hashedPassword string, role data.Role) (*data.User, error)
	GetUserByEmail(ctx context.Context, email string) (*data.User, error)
	GetUserByID(ctx context.Context, id bson.ObjectID) (*data.User, error)
	FindAdmin(ctx context.Context) (*data.User, error)
	ListUsers(ctx context.Context, except bson.ObjectID) ([]*data.User, error)
	SetOnline(ctx context.Context, id bson.ObjectID, online bool) error
}

// Server holds the wired dependencies behind the HTTP and websocket surface.
type Server struct {
	users    accountStore
	chat     *chat.Service
	auth     *auth.JWTManager
	registry *presence.Registry
	router   *realtime.Router
	limiter  *middleware.LimiterStore
	logger   *slog.Logger

	allowedOrigins []string
}

// newServer returns a ready-to-use Server.
func newServer(users accountStore, chatSvc *chat.Service, authMgr *auth.JWTManager,
	registry *presence.Registry, router *realtime.Router, limiter *middleware.LimiterStore,
	logger *slog.Logger, allowedOrigins []string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		users:          users,
		chat:           chatSvc,
		auth:           authMgr,
		registry:       registry,
		router:         router,
		limiter:        limiter,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
}

// routes assembles the gin engine: public auth endpoints (rate limited),
// token-protected chat endpoints and the websocket upgrade.
func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", s.handleInfo)
	r.GET("/health", s.handleHealth)

	authGroup := r.Group("/api/auth")
	authGroup.POST("/register", middleware.RateLimit(s.limiter), s.handleRegister)
	authGroup.POST("/login", middleware.RateLimit(s.limiter), s.handleLogin)
	authGroup.GET("/me", s.authRequired(), s.handleMe)
	authGroup.POST("/logout", s.authRequired(), s.handleLogout)
	authGroup.GET("/admin", s.authRequired(), s.handleFindAdmin)
	authGroup.GET("/users", s.authRequired(), s.adminOnly(), s.handleListUsers)

	chatGroup := r.Group("/api/chat", s.authRequired())
	chatGroup.POST("/send", s.handleSendMessage)
	chatGroup.GET("/conversation/:userId", s.handleGetConversation)
	chatGroup.GET("/conversations", s.handleListConversations)
	chatGroup.PUT("/read/:messageId", s.handleMarkRead)
	chatGroup.GET("/unread", s.handleUnreadCount)

	r.GET("/ws", s.handleWebsocket)

	return r
}
