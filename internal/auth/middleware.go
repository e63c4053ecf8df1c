package auth

import (
	"errors"
	"net/http"
	"strings"

	"innata/internal/api"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID = "user_id"
	ctxEmail  = "user_email"
	ctxRole   = "user_role"
)

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, api.ErrorResponse{Error: msg})
}

func AuthMiddleware(accessTokenSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "authorization header required")
			return
		}

		scheme, tokenString, found := strings.Cut(authHeader, " ")
		if !found || strings.TrimSpace(scheme) != "Bearer" {
			unauthorized(c, "invalid authorization header format")
			return
		}
		tokenString = strings.TrimSpace(tokenString)
		if tokenString == "" {
			unauthorized(c, "token is empty")
			return
		}

		claims, err := ValidateToken(tokenString, accessTokenSecret)
		if err != nil {
			switch {
			case errors.Is(err, ErrTokenExpired):
				unauthorized(c, "token expired")
			case errors.Is(err, ErrInvalidTokenType):
				unauthorized(c, "access token required")
			default:
				unauthorized(c, "invalid or malformed token")
			}
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxEmail, claims.Email)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

func RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get(ctxRole)
		if !ok {
			unauthorized(c, "user role not found")
			return
		}
		roleStr, ok := role.(string)
		if !ok {
			unauthorized(c, "invalid role type")
			return
		}
		if roleStr != requiredRole {
			c.AbortWithStatusJSON(http.StatusForbidden, api.ErrorResponse{Error: "insufficient permissions", Reason: string(api.ReasonForbidden)})
			return
		}
		c.Next()
	}
}

func GetUserID(c *gin.Context) (int, bool) {
	userID, exists := c.Get(ctxUserID)
	if !exists {
		return 0, false
	}
	id, ok := userID.(int)
	return id, ok && id > 0
}
