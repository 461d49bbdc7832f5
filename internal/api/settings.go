package api

import (
	"net/http"

	"sydai_backend/internal/model"
	"sydai_backend/internal/service"
	"sydai_backend/pkg/auth"

	"github.com/gin-gonic/gin"
)

type settingsRoutes struct {
	ss *service.SettingsService
}

func NewSettingsRoutes(handler *gin.RouterGroup, ss *service.SettingsService, sessions *auth.SessionManager) {
	r := &settingsRoutes{ss: ss}

	h := handler.Group("/settings")
	h.Use(sessions.SessionMiddleware())
	{
		h.GET("", r.Get)
		h.PATCH("", r.Update)
	}
}

type UpdateSettingsRequest struct {
	Theme              *string `json:"theme"`
	Notifications      *bool   `json:"notifications"`
	EmailNotifications *bool   `json:"emailNotifications"`
}

func (r *settingsRoutes) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	st, err := r.ss.Get(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err, "Failed to fetch settings")
		return
	}

	c.JSON(http.StatusOK, newSettingsResponse(st))
}

func (r *settingsRoutes) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid settings data"})
		return
	}

	st, err := r.ss.Update(c.Request.Context(), userID, model.SettingsUpdate{
		Theme:              req.Theme,
		Notifications:      req.Notifications,
		EmailNotifications: req.EmailNotifications,
	})
	if err != nil {
		writeError(c, err, "Failed to update settings")
		return
	}

	c.JSON(http.StatusOK, newSettingsResponse(st))
}
