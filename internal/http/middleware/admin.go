package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"
)

func AdminKey(required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if required == "" {
			c.Next()
			return
		}
		if !HasAdminKey(c, required) {
			unauthorized(c, "Invalid admin key")
			return
		}
		c.Next()
	}
}

// HasAdminKey reports whether the request carries the configured admin key.
// An unset key never matches.
func HasAdminKey(c *gin.Context, required string) bool {
	if required == "" {
		return false
	}
	key := c.GetHeader("X-Admin-Key")
	return subtle.ConstantTimeCompare([]byte(key), []byte(required)) == 1
}
