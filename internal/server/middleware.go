package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/moneyapp/ledger/internal/auth"
)

const identityKey = "identity"

// RequireAuth verifies the bearer token (or the auth_token cookie) and
// stores the caller's identity in the request context.
func RequireAuth(authSvc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := c.Cookie("auth_token")
		if err != nil || tokenStr == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				abortUnauthorized(c, "authorization token not provided")
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				abortUnauthorized(c, "invalid authorization header format")
				return
			}
			tokenStr = parts[1]
		}

		identity, err := authSvc.Verify(tokenStr)
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

func identityFrom(c *gin.Context) auth.Identity {
	return c.MustGet(identityKey).(auth.Identity)
}
