package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	sessionHeader = "X-Session-ID"

	keyUserID  = "userID"
	keyCartKey = "cartKey"
)

// identify resolves who is calling. A valid Bearer token wins; otherwise
// the X-Session-ID header names an anonymous cart. A malformed or invalid
// token is rejected rather than silently falling back.
func (s *Server) identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); header != "" && s.auth != nil {
			parts := strings.Split(header, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format, use 'Bearer <token>'"})
				return
			}
			userID, err := s.auth.Authenticate(parts[1])
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
				return
			}
			c.Set(keyUserID, userID)
			c.Set(keyCartKey, "user:"+userID)
			c.Next()
			return
		}

		if session := strings.TrimSpace(c.GetHeader(sessionHeader)); session != "" {
			c.Set(keyCartKey, "anon:"+session)
		}
		c.Next()
	}
}

func requireCartKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if cartKey(c) == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing " + sessionHeader + " header or bearer token"})
			return
		}
		c.Next()
	}
}

func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		c.Next()
	}
}

func cartKey(c *gin.Context) string { return c.GetString(keyCartKey) }

func userID(c *gin.Context) string { return c.GetString(keyUserID) }
