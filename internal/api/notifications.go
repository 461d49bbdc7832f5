package api

import (
	"net/http"
	"time"

	"sydai_backend/internal/service"
	"sydai_backend/pkg/auth"
	"sydai_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type notificationRoutes struct {
	ns *service.NotificationService
}

func NewNotificationRoutes(handler *gin.RouterGroup, ns *service.NotificationService, sessions *auth.SessionManager) {
	r := &notificationRoutes{ns: ns}

	h := handler.Group("/notifications")
	h.Use(sessions.SessionMiddleware())
	{
		h.GET("", r.List)
		h.POST("", r.Create)
		h.GET("/unread-count", r.UnreadCount)
		h.PATCH("/:id/read", r.MarkRead)
		h.POST("/mark-all-read", r.MarkAllRead)
		h.DELETE("/:id", r.Delete)
		h.GET("/ws", r.handleWebSocket)
	}
}

type CreateNotificationRequest struct {
	Title   string `json:"title" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// wsEvent is the frame pushed to websocket subscribers.
type wsEvent struct {
	Type    string                `json:"type"`
	Payload *notificationResponse `json:"payload,omitempty"`
}

func (r *notificationRoutes) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	list, err := r.ns.List(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err, "Failed to fetch notifications")
		return
	}

	out := make([]notificationResponse, len(list))
	for i, n := range list {
		out[i] = newNotificationResponse(n)
	}
	c.JSON(http.StatusOK, out)
}

func (r *notificationRoutes) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification data"})
		return
	}

	n, err := r.ns.Create(c.Request.Context(), userID, req.Title, req.Message)
	if err != nil {
		writeError(c, err, "Failed to create notification")
		return
	}

	c.JSON(http.StatusCreated, newNotificationResponse(n))
}

func (r *notificationRoutes) UnreadCount(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	count, err := r.ns.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err, "Failed to count notifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (r *notificationRoutes) MarkRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	n, err := r.ns.MarkRead(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err, "Failed to mark notification as read")
		return
	}

	c.JSON(http.StatusOK, newNotificationResponse(n))
}

func (r *notificationRoutes) MarkAllRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	count, err := r.ns.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err, "Failed to mark all notifications as read")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "updated": count})
}

func (r *notificationRoutes) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := r.ns.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		writeError(c, err, "Failed to delete notification")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (r *notificationRoutes) handleWebSocket(c *gin.Context) {
	log := logger.Logger()

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	sub := r.ns.Subscribe(userID)
	log.Debug("notification subscriber connected", zap.String("user_id", userID))

	go r.readLoop(conn, sub)
	go r.NotificationsLoop(conn, sub)
}

// readLoop only watches for the client going away; anything it sends is ignored.
func (r *notificationRoutes) readLoop(conn *websocket.Conn, sub *service.NotificationWS) {
	defer r.ns.Unsubscribe(sub)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// NotificationsLoop writes every published notification to conn until the
// subscription is closed.
func (r *notificationRoutes) NotificationsLoop(conn *websocket.Conn, sub *service.NotificationWS) {
	log := logger.Logger()

	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
		r.ns.Unsubscribe(sub)
	}()

	for {
		select {
		case message, ok := <-sub.NotificationChan:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			event := wsEvent{Type: message.Type}
			if message.Payload != nil {
				payload := newNotificationResponse(message.Payload)
				event.Payload = &payload
			}

			out, err := json.Marshal(event)
			if err != nil {
				log.Error("failed to marshal notification event", zap.Error(err))
				continue
			}

			if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
				log.Debug("failed to write notification event",
					zap.String("user_id", sub.UserID),
					zap.Error(err),
				)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
