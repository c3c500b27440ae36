package middleware

import (
	"errors"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yacine2174/projet-master-sub002/models"
	"github.com/yacine2174/projet-master-sub002/utils"
)

// AuthMiddleware extracts and verifies the bearer token and attaches the
// resolved identity to the request context. Downstream handlers read the
// context; they never re-parse the token.
//
// Failures answer with a JSON 401 only — no WWW-Authenticate header is ever
// set, so programmatic clients get data back instead of a browser-native
// credential prompt. Each failure also fires notify (when wired), the signal
// the client-side session manager consumes to drop its cached token.
func AuthMiddleware(notify func()) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			reject(c, notify, "missing token")
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims, err := utils.ValidateToken(tokenStr, os.Getenv("JWT_SECRET"))
		if err != nil {
			// Expired and forged tokens are both rejected; the split
			// only matters here, for the log line.
			if errors.Is(err, utils.ErrTokenExpired) {
				log.Printf("auth: expired token rejected")
			} else {
				log.Printf("auth: invalid token rejected: %v", err)
			}
			reject(c, notify, "invalid or expired token")
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("role", claims.Role)
		c.Next()
	}
}

func reject(c *gin.Context, notify func(), msg string) {
	if notify != nil {
		notify()
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

// RoleFromContext resolves the role the auth middleware attached.
func RoleFromContext(c *gin.Context) (models.Role, bool) {
	roleVal, ok := c.Get("role")
	if !ok {
		return "", false
	}
	roleStr, ok := roleVal.(string)
	if !ok {
		return "", false
	}
	return models.ParseRole(roleStr)
}

// RequireReviewer gates the reset-request review endpoints.
func RequireReviewer() gin.HandlerFunc {
	return requireRole(models.Role.CanReview)
}

// RequireAdmin gates account administration.
func RequireAdmin() gin.HandlerFunc {
	return requireRole(models.Role.IsAdmin)
}

func requireRole(allowed func(models.Role) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := RoleFromContext(c)
		if !ok || !allowed(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}
