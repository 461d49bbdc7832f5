package api

import (
	"net/http"

	"sydai_backend/internal/cache"
	"sydai_backend/internal/middleware"
	"sydai_backend/internal/service"
	"sydai_backend/pkg/auth"

	"github.com/gin-gonic/gin"
)

type messageRoutes struct {
	cs *service.ChatService
}

func NewMessageRoutes(handler *gin.RouterGroup, cs *service.ChatService, sessions *auth.SessionManager, limiter middleware.Limiter, limits RateLimits) {
	r := &messageRoutes{cs: cs}

	h := handler.Group("/messages")
	h.Use(sessions.SessionMiddleware())
	{
		h.GET("", r.List)
		h.POST("", middleware.RateLimit(limiter, cache.ActionMessage, limits.Messages, limits.Window), r.Send)
	}
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

type sendMessageResponse struct {
	messageResponse
	Points int `json:"points"`
}

func (r *messageRoutes) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	messages, err := r.cs.List(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err, "Failed to fetch messages")
		return
	}

	out := make([]messageResponse, len(messages))
	for i, m := range messages {
		out[i] = newMessageResponse(m)
	}
	c.JSON(http.StatusOK, out)
}

func (r *messageRoutes) Send(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message data"})
		return
	}

	msg, user, err := r.cs.Send(c.Request.Context(), userID, req.Content)
	if err != nil {
		writeError(c, err, "Failed to send message")
		return
	}

	c.JSON(http.StatusOK, sendMessageResponse{
		messageResponse: newMessageResponse(msg),
		Points:          user.Points,
	})
}
