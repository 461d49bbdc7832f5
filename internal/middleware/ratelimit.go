package middleware

import (
	"context"
	"net/http"
	"time"

	"sydai_backend/pkg/auth"
	"sydai_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Limiter interface {
	Allow(ctx context.Context, userID, action string, limit int, window time.Duration) (bool, error)
}

// RateLimit caps how often one user may hit a route. A nil limiter disables it and a
// limiter error lets the request through.
func RateLimit(limiter Limiter, action string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		userID, ok := auth.UserID(c)
		if !ok {
			c.Next()
			return
		}

		allowed, err := limiter.Allow(c.Request.Context(), userID, action, limit, window)
		if err != nil {
			logger.Logger().Warn("rate limiter unavailable",
				zap.String("action", action),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": window.Seconds(),
			})
			return
		}

		c.Next()
	}
}
