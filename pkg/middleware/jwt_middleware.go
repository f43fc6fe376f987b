package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"schoolpay/pkg/utils"
)

const (
	ContextUserID   = "user_id"
	ContextEmail    = "email"
	ContextRole     = "role"
	ContextTenantID = "tenant_id"
)

// JWTAuthMiddleware authenticates requests for role using its session cookie,
// falling back to an Authorization bearer token.
func JWTAuthMiddleware(issuer *utils.TokenIssuer, role utils.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := c.Cookie(utils.SessionCookieName(role))
		if err != nil || tokenString == "" {
			authHeader := c.GetHeader("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				utils.RespondError(c, http.StatusUnauthorized, "Authentication required")
				c.Abort()
				return
			}
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}

		claims, err := issuer.ValidateToken(tokenString)
		if err != nil {
			utils.RespondError(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextRole, string(claims.Role))
		c.Set(ContextTenantID, claims.TenantID)
		c.Next()
	}
}

func RoleMiddleware(requiredRole utils.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextRole) != string(requiredRole) {
			utils.RespondError(c, http.StatusForbidden, "Forbidden: insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}
