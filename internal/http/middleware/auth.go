package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// CallerIDKey holds the authenticated caller id in the gin context.
const CallerIDKey = "caller_id"

var errInvalidToken = errors.New("invalid token")

// Auth requires an HS256 bearer token and stores its subject as the caller id.
func Auth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			unauthorized(c, "Missing bearer token")
			return
		}
		subject, err := parseSubject(strings.TrimSpace(raw), key)
		if err != nil {
			unauthorized(c, "Invalid bearer token")
			return
		}
		c.Set(CallerIDKey, subject)
		c.Next()
	}
}

func parseSubject(raw string, key []byte) (string, error) {
	if len(key) == 0 {
		return "", errInvalidToken
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", errInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errInvalidToken
	}
	return claims.Subject, nil
}

// CallerID returns the caller id set by Auth, or "" when the request is
// anonymous.
func CallerID(c *gin.Context) string {
	return c.GetString(CallerIDKey)
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
			"details": nil,
		},
	})
}
