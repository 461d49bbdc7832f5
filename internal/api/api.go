package api

import (
	"errors"
	"net/http"
	"time"

	"sydai_backend/internal/middleware"
	"sydai_backend/internal/model"
	"sydai_backend/internal/service"
	"sydai_backend/pkg/auth"
	"sydai_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RateLimits struct {
	Messages int
	Checkins int
	Window   time.Duration
}

type Dependencies struct {
	Service  *service.Service
	Sessions *auth.SessionManager
	Limiter  middleware.Limiter
	Limits   RateLimits
}

// RegisterRoutes mounts every route group on handler, normally /api/v1.
func RegisterRoutes(handler *gin.RouterGroup, d Dependencies) {
	authz := middleware.NewAuthorization(d.Service.UserService)

	NewAuthRoutes(handler, d.Service.UserService, d.Sessions, authz)
	NewCheckinRoutes(handler, d.Service.CheckinService, d.Sessions, d.Limiter, d.Limits)
	NewLeaderboardRoutes(handler, d.Service.LeaderboardService)
	NewReferralRoutes(handler, d.Service.ReferralService, d.Sessions, authz)
	NewMessageRoutes(handler, d.Service.ChatService, d.Sessions, d.Limiter, d.Limits)
	NewNotificationRoutes(handler, d.Service.NotificationService, d.Sessions)
	NewSettingsRoutes(handler, d.Service.SettingsService, d.Sessions)
}

// statusFor maps service errors onto HTTP statuses. ok is false for errors that
// should not be shown to the client.
func statusFor(err error) (status int, ok bool) {
	switch {
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrInvalidOrUsedCode),
		errors.Is(err, service.ErrNotificationNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrUsernameTaken):
		return http.StatusConflict, true
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, true
	case errors.Is(err, service.ErrAlreadyCheckedIn),
		errors.Is(err, service.ErrInvalidPage),
		errors.Is(err, service.ErrInvalidRegistration),
		errors.Is(err, service.ErrPasswordMismatch),
		errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, service.ErrInvalidSettings),
		errors.Is(err, service.ErrInvalidNotification),
		errors.Is(err, service.ErrNegativeBalance):
		return http.StatusBadRequest, true
	default:
		return http.StatusInternalServerError, false
	}
}

func writeError(c *gin.Context, err error, fallback string) {
	status, ok := statusFor(err)
	if !ok {
		logger.Logger().Error(fallback,
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(status, gin.H{"error": fallback})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func currentUserID(c *gin.Context) (string, bool) {
	userID, ok := auth.UserID(c)
	if !ok {
		logger.Logger().Error("user id not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
	}
	return userID, ok
}

type userResponse struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Points      int        `json:"points"`
	LastCheckin *time.Time `json:"lastCheckin"`
	AvatarURL   *string    `json:"avatarUrl"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func newUserResponse(u *model.User) *userResponse {
	if u == nil {
		return nil
	}
	return &userResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Points:      u.Points,
		LastCheckin: u.LastCheckin,
		AvatarURL:   u.AvatarURL,
		CreatedAt:   u.CreatedAt,
	}
}

type notificationResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

func newNotificationResponse(n *model.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

type messageResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Content    string    `json:"content"`
	IsFromUser bool      `json:"isFromUser"`
	CreatedAt  time.Time `json:"createdAt"`
}

func newMessageResponse(m *model.Message) messageResponse {
	return messageResponse{
		ID:         m.ID,
		UserID:     m.UserID,
		Content:    m.Content,
		IsFromUser: m.IsFromUser,
		CreatedAt:  m.CreatedAt,
	}
}

type settingsResponse struct {
	UserID             string `json:"userId"`
	Theme              string `json:"theme"`
	Notifications      bool   `json:"notifications"`
	EmailNotifications bool   `json:"emailNotifications"`
}

func newSettingsResponse(s *model.Settings) settingsResponse {
	return settingsResponse{
		UserID:             s.UserID,
		Theme:              s.Theme,
		Notifications:      s.Notifications,
		EmailNotifications: s.EmailNotifications,
	}
}
