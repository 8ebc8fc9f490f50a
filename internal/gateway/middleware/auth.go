package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Yo-Self/yo-self.github.io-sub001/internal/utils"
)

const ClaimsKey = "claims"

// JWTAuth requires a bearer token signed with secret and carrying the admin role.
func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(tokenStr) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Authentication token required",
				"error":   "UNAUTHORIZED",
			})
			return
		}

		claims, err := utils.ParseToken(secret, strings.TrimSpace(tokenStr))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid token",
				"error":   "UNAUTHORIZED",
			})
			return
		}
		if !claims.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Admin role required",
				"error":   "FORBIDDEN",
			})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}
