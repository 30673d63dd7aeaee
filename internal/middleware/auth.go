package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"studentdesk/internal/session"
)

const currentUserKey = "current_user"

// APITokenParser resolves a bearer token to a username.
type APITokenParser func(token string) (string, error)

// RequireSession lets the request through only with a live session and sends
// everyone else to the login page.
func RequireSession(manager *session.Manager, cookies *session.Cookies) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := manager.CurrentUser(c.Request.Context(), cookies.Read(c.Request))
		if !ok {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}

		c.Set(currentUserKey, username)
		c.Next()
	}
}

// RequireAPIAuth accepts a session cookie or an Authorization bearer token.
func RequireAPIAuth(manager *session.Manager, cookies *session.Cookies, parseToken APITokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if username, ok := manager.CurrentUser(c.Request.Context(), cookies.Read(c.Request)); ok {
			c.Set(currentUserKey, username)
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			username, err := parseToken(strings.TrimPrefix(authHeader, "Bearer "))
			if err == nil {
				c.Set(currentUserKey, username)
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
}

// OptionalSession records the logged-in user, if any, without enforcing one.
func OptionalSession(manager *session.Manager, cookies *session.Cookies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if username, ok := manager.CurrentUser(c.Request.Context(), cookies.Read(c.Request)); ok {
			c.Set(currentUserKey, username)
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (string, bool) {
	username := c.GetString(currentUserKey)
	return username, username != ""
}
