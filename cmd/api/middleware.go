package main

import (
	"net/http"
	"strings"

	"github.com/PaulBabatuyi/customer-chat/internal/apperr"
	"github.com/PaulBabatuyi/customer-chat/internal/auth"
	"github.com/PaulBabatuyi/customer-chat/internal/data"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const claimsKey = "authClaims"

// authRequired verifies the Bearer token and stashes its claims in the
// request context for the handlers.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing authorization header"})
			return
		}

		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid authorization header"})
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
			return
		}

		claims, err := s.auth.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unauthenticated"})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// adminOnly gates a route to the admin role. Must run after authRequired.
func (s *Server) adminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsFrom(c)
		if !ok || claims.Role != string(data.RoleAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "admin access required"})
			return
		}
		c.Next()
	}
}

// claimsFrom extracts the verified claims set by authRequired.
func claimsFrom(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

// callerID returns the authenticated user's ObjectID.
func callerID(c *gin.Context) (bson.ObjectID, bool) {
	claims, ok := claimsFrom(c)
	if !ok {
		return bson.ObjectID{}, false
	}
	id, err := bson.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return bson.ObjectID{}, false
	}
	return id, true
}

// writeError maps a coded error to its HTTP status. Uncoded errors become
// opaque 500s; the cause goes to the log, not the client.
func (s *Server) writeError(c *gin.Context, err error) {
	code := apperr.CodeOf(err)

	status := http.StatusInternalServerError
	switch code {
	case apperr.CodeInvalidArgument:
		status = http.StatusBadRequest
	case apperr.CodeNotFound:
		status = http.StatusNotFound
	case apperr.CodeAlreadyExists:
		status = http.StatusConflict
	case apperr.CodePermissionDenied:
		status = http.StatusForbidden
	case apperr.CodeUnauthenticated:
		status = http.StatusUnauthorized
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "err", err)
		c.JSON(status, gin.H{"message": "internal error"})
		return
	}
	c.JSON(status, gin.H{"message": err.Error()})
}
