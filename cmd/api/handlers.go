package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/PaulBabatuyi/customer-chat/internal/apperr"
	"github.com/PaulBabatuyi/customer-chat/internal/auth"
	"github.com/PaulBabatuyi/customer-chat/internal/data"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func (s *Server) handleInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "Customer Chat API is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleRegister creates a customer account and issues a session token.
func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperr.Validation("invalid request body"))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		s.writeError(c, apperr.Validation("name, email and password are required"))
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		s.writeError(c, apperr.Storage(err))
		return
	}

	user, err := s.users.CreateUser(c.Request.Context(), req.Name, req.Email, hashed, data.RoleCustomer)
	if err != nil {
		s.writeError(c, err)
		return
	}

	token, _, err := s.auth.GenerateToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		s.writeError(c, apperr.Storage(err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleLogin authenticates an account, flips it online and issues a token.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperr.Validation("invalid request body"))
		return
	}

	user, err := s.users.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		// Same response for unknown email and wrong password.
		s.writeError(c, apperr.Unauthorized("invalid credentials"))
		return
	}
	if err := auth.CheckPassword(user.Password, req.Password); err != nil {
		s.writeError(c, apperr.Unauthorized("invalid credentials"))
		return
	}

	if err := s.users.SetOnline(c.Request.Context(), user.ID, true); err != nil {
		s.logger.Warn("set online on login", "user", user.ID.Hex(), "err", err)
	}
	user.IsOnline = true

	token, _, err := s.auth.GenerateToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		s.writeError(c, apperr.Storage(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (s *Server) handleMe(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		s.writeError(c, apperr.Unauthorized("unauthenticated"))
		return
	}
	user, err := s.users.GetUserByID(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) handleLogout(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		s.writeError(c, apperr.Unauthorized("unauthenticated"))
		return
	}
	if err := s.users.SetOnline(c.Request.Context(), id, false); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// handleFindAdmin returns the designated admin account so clients know who
// to open the support conversation with.
func (s *Server) handleFindAdmin(c *gin.Context) {
	admin, err := s.users.FindAdmin(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, admin)
}

func (s *Server) handleListUsers(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		s.writeError(c, apperr.Unauthorized("unauthenticated"))
		return
	}
	users, err := s.users.ListUsers(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

type sendMessageRequest struct {
	ReceiverID  string `json:"receiverId"`
	Content     string `json:"content"`
	MessageType string `json:"messageType"`
	FileURL     string `json:"fileUrl"`
}

// handleSendMessage runs the send pipeline and returns the persisted message
// with both participants expanded.
func (s *Server) handleSendMessage(c *gin.Context) {
	senderID, ok := callerID(c)
	if !ok {
		s.writeError(c, apperr.Unauthorized("unauthenticated"))
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperr.Validation("invalid request body"))
		return
	}
	receiverID, err := bson.ObjectIDFromHex(req.ReceiverID)
	if err != nil {
		s.writeError(c, apperr.Validation("invalid receiverId"))
		return
	}

	view, err := s.chat.Send(c.Request.Context(), senderID, receiverID, req.Content, data.MessageKind(req.MessageType), req.FileURL)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// handleGetConversation returns the full history with the given user and, as
// a side effect, marks their messages to the caller as read and zeroes the
// conversation's unread counter.
func (s *Server) handleGetConversation(c *gin.Context) {
	viewerID, ok := callerID(c)
	if !ok {
		s.writeError(c, apperr.Unauthorized("unauthenticated"))
		return
	}
	otherID, err := bson.ObjectIDFromHex(c.Param("userId"))
	if err != nil {
		s.writeError(c, apperr.Validation("invalid userId"))
		return
	}

	messages, conv, err := s.chat.OpenConversation(c.Request.Context(), viewerID, otherID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	resp := gin.H{"messages": messages, "conversation": nil}
	if conv != nil {
		resp["conversation"] = conv
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListConversations(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		s.writeError(c, apperr.Unauthorized("unauthenticated"))
		return
	}
	claims, _ := claimsFrom(c)
	isAdmin := claims != nil && claims.Role == string(data.RoleAdmin)

	convs, err := s.chat.ListConversations(c.Request.Context(), id, isAdmin)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, convs)
}

func (s *Server) handleMarkRead(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		s.writeError(c, apperr.Unauthorized("unauthenticated"))
		return
	}
	msgID, err := bson.ObjectIDFromHex(c.Param("messageId"))
	if err != nil {
		s.writeError(c, apperr.Validation("invalid messageId"))
		return
	}

	msg, err := s.chat.MarkMessageRead(c.Request.Context(), id, msgID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (s *Server) handleUnreadCount(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		s.writeError(c, apperr.Unauthorized("unauthenticated"))
		return
	}
	count, err := s.chat.UnreadCount(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unreadCount": count})
}
