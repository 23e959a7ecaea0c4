package mw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"laundry-booking-backend/internal/auth"
)

// Context keys populated by the session middleware.
const (
	KeyUserID   = "userID"
	KeyUserName = "userName"
	KeyParty    = "party"
)

// Session validates the bearer token and stores the caller's identity on the
// request context. Every mutating route sits behind this.
func Session(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		session, err := svc.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set(KeyUserID, session.UserID)
		c.Set(KeyUserName, session.Name)
		c.Set(KeyParty, session.Party)
		c.Next()
	}
}

// RequireAdmin restricts a route to the administrative party.
func RequireAdmin(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := &auth.Session{Party: c.GetString(KeyParty)}
		if !svc.IsAdmin(session) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}
