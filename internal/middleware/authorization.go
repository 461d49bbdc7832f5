package middleware

import (
	"context"
	"errors"
	"net/http"

	"sydai_backend/internal/model"
	"sydai_backend/internal/service"
	"sydai_backend/pkg/auth"
	"sydai_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const ContextUser = "user"

type UserGetter interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

type Authorization struct {
	users UserGetter
}

func NewAuthorization(users UserGetter) *Authorization {
	return &Authorization{
		users: users,
	}
}

// CurrentUser loads the account behind the session. It must run after
// SessionMiddleware; a session for a deleted account is rejected.
func (a *Authorization) CurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		userID, ok := auth.UserID(c)
		if !ok {
			log.Error("user id not found in context")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		user, err := a.users.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, service.ErrUserNotFound) {
				log.Info("session refers to unknown user", zap.String("user_id", userID))
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
				return
			}
			log.Error("failed to get user data", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		c.Set(ContextUser, user)
		c.Next()
	}
}

// User returns the account loaded by CurrentUser.
func User(c *gin.Context) (*model.User, bool) {
	v, ok := c.Get(ContextUser)
	if !ok {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok
}
