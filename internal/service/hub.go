package service

import (
	"sync"

	"sydai_backend/internal/model"
	"sydai_backend/pkg/logger"

	"go.uber.org/zap"
)

const (
	EventNotificationCreated = "notification_created"

	subscriberBuffer = 16
)

type Message struct {
	Type    string              `json:"type"`
	Payload *model.Notification `json:"payload,omitempty"`
}

// NotificationWS is one live subscriber, typically a websocket connection.
type NotificationWS struct {
	UserID           string
	NotificationChan chan Message
}

// NotificationHub fans notifications out to the subscribers of each user.
type NotificationHub struct {
	mu   sync.RWMutex
	subs map[string]map[*NotificationWS]struct{}
}

func NewNotificationHub() *NotificationHub {
	return &NotificationHub{
		subs: make(map[string]map[*NotificationWS]struct{}),
	}
}

func (h *NotificationHub) Subscribe(userID string) *NotificationWS {
	ws := &NotificationWS{
		UserID:           userID,
		NotificationChan: make(chan Message, subscriberBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*NotificationWS]struct{})
	}
	h.subs[userID][ws] = struct{}{}
	return ws
}

// Unsubscribe removes ws and closes its channel. Calling it twice is safe.
func (h *NotificationHub) Unsubscribe(ws *NotificationWS) {
	h.mu.Lock()
	defer h.mu.Unlock()

	userSubs, ok := h.subs[ws.UserID]
	if !ok {
		return
	}
	if _, ok := userSubs[ws]; !ok {
		return
	}
	delete(userSubs, ws)
	close(ws.NotificationChan)
	if len(userSubs) == 0 {
		delete(h.subs, ws.UserID)
	}
}

// Publish never blocks; a subscriber whose buffer is full misses the message.
func (h *NotificationHub) Publish(userID string, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ws := range h.subs[userID] {
		select {
		case ws.NotificationChan <- msg:
		default:
			logger.Logger().Debug("dropping notification for slow subscriber", zap.String("user_id", userID))
		}
	}
}

func (h *NotificationHub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subs[userID])
}
