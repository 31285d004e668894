package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/projectstack/projectstack/internal/apperr"
	"github.com/projectstack/projectstack/internal/models"
	"github.com/projectstack/projectstack/internal/services"
)

const (
	accountIDKey = "accountID"
	profileIDKey = "profileID"
)

// ProfileResolver maps an authenticated account to its profile.
type ProfileResolver interface {
	GetByAccount(ctx context.Context, accountID uuid.UUID) (*models.Profile, error)
}

func abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperr.HTTPStatus(apperr.KindOf(err)), apperr.ResultOf(err))
}

// bearerToken extracts the token from "Bearer <token>"
func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.Split(c.GetHeader("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// AuthMiddleware validates JWT tokens
func AuthMiddleware(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			abort(c, apperr.Unauthorized("Authorization header required"))
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			abort(c, apperr.Unauthorized("Invalid authorization format"))
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			abort(c, apperr.Unauthorized("Invalid or expired token"))
			return
		}

		c.Set(accountIDKey, claims.AccountID)
		c.Next()
	}
}

// OptionalAuthMiddleware validates JWT tokens but doesn't require them
func OptionalAuthMiddleware(authService *services.AuthService, profiles ProfileResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			c.Next()
			return
		}
		c.Set(accountIDKey, claims.AccountID)

		if profile, err := profiles.GetByAccount(c.Request.Context(), claims.AccountID); err == nil {
			c.Set(profileIDKey, profile.ID)
		}
		c.Next()
	}
}

// RequireProfile runs after AuthMiddleware and rejects accounts that have
// not finished onboarding.
func RequireProfile(profiles ProfileResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, ok := GetAccountID(c)
		if !ok {
			abort(c, apperr.Unauthorized("Authentication required"))
			return
		}

		profile, err := profiles.GetByAccount(c.Request.Context(), accountID)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				c.AbortWithStatusJSON(http.StatusForbidden, apperr.Result{
					Message: "Create your profile first",
					Kind:    apperr.KindForbidden,
				})
				return
			}
			abort(c, err)
			return
		}

		c.Set(profileIDKey, profile.ID)
		c.Next()
	}
}

// GetAccountID extracts the authenticated account ID from context
func GetAccountID(c *gin.Context) (uuid.UUID, bool) {
	id, exists := c.Get(accountIDKey)
	if !exists {
		return uuid.Nil, false
	}
	return id.(uuid.UUID), true
}

// GetProfileID extracts the caller's profile ID from context
func GetProfileID(c *gin.Context) (uuid.UUID, bool) {
	id, exists := c.Get(profileIDKey)
	if !exists {
		return uuid.Nil, false
	}
	return id.(uuid.UUID), true
}
