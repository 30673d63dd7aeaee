package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Recovery turns a panic into a 500. API callers get JSON, browsers plain text.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("error", r).
					Str("path", c.Request.URL.Path).
					Str(requestIDKey, GetRequestID(c)).
					Msg("panic recovered")

				if strings.HasPrefix(c.Request.URL.Path, "/api/") {
					c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
					return
				}
				c.Abort()
				c.String(http.StatusInternalServerError, "Server error")
			}
		}()
		c.Next()
	}
}
