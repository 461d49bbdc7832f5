package api

import (
	"errors"
	"net/http"
	"time"

	"sydai_backend/internal/cache"
	"sydai_backend/internal/middleware"
	"sydai_backend/internal/model"
	"sydai_backend/internal/service"
	"sydai_backend/pkg/auth"

	"github.com/gin-gonic/gin"
)

type checkinRoutes struct {
	cs *service.CheckinService
}

func NewCheckinRoutes(handler *gin.RouterGroup, cs *service.CheckinService, sessions *auth.SessionManager, limiter middleware.Limiter, limits RateLimits) {
	r := &checkinRoutes{cs: cs}

	h := handler.Group("/checkin")
	h.Use(sessions.SessionMiddleware())
	{
		h.GET("", r.Status)
		h.POST("", middleware.RateLimit(limiter, cache.ActionCheckin, limits.Checkins, limits.Window), r.Checkin)
	}
}

type checkinResponse struct {
	Success       bool          `json:"success"`
	PointsAwarded int           `json:"pointsAwarded"`
	Error         string        `json:"error,omitempty"`
	User          *userResponse `json:"user,omitempty"`
}

type checkinStatusResponse struct {
	State           string     `json:"state"`
	CheckedInToday  bool       `json:"checkedInToday"`
	LastCheckin     *time.Time `json:"lastCheckin"`
	NextAvailableAt *time.Time `json:"nextAvailableAt"`
	Reward          int        `json:"reward"`
}

func (r *checkinRoutes) Checkin(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	result, err := r.cs.Attempt(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyCheckedIn) {
			c.JSON(http.StatusBadRequest, checkinResponse{
				Success: false,
				Error:   "Already checked in today",
			})
			return
		}
		writeError(c, err, "Failed to check in")
		return
	}

	c.JSON(http.StatusOK, checkinResponse{
		Success:       result.Success,
		PointsAwarded: result.PointsAwarded,
		User:          newUserResponse(result.User),
	})
}

func (r *checkinRoutes) Status(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	status, err := r.cs.Status(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err, "Failed to fetch check-in status")
		return
	}

	c.JSON(http.StatusOK, checkinStatusResponse{
		State:           status.State.String(),
		CheckedInToday:  status.State == model.CheckedInToday,
		LastCheckin:     status.LastCheckin,
		NextAvailableAt: status.NextAvailableAt,
		Reward:          status.Reward,
	})
}
