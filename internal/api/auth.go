package api

import (
	"net/http"

	"sydai_backend/internal/middleware"
	"sydai_backend/internal/service"
	"sydai_backend/pkg/auth"
	"sydai_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type authRoutes struct {
	us       *service.UserService
	sessions *auth.SessionManager
}

func NewAuthRoutes(handler *gin.RouterGroup, us *service.UserService, sessions *auth.SessionManager, authz *middleware.Authorization) {
	r := &authRoutes{us: us, sessions: sessions}

	h := handler.Group("/auth")
	{
		h.POST("/register", r.Register)
		h.POST("/login", r.Login)
		h.POST("/logout", r.Logout)
		h.GET("/me", sessions.SessionMiddleware(), authz.CurrentUser(), r.Me)
	}

	handler.GET("/user", sessions.SessionMiddleware(), authz.CurrentUser(), r.GetUser)
}

type RegisterRequest struct {
	Email           string `json:"email" binding:"required"`
	Username        string `json:"username" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
	ReferralCode    string `json:"referralCode"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	User  *userResponse `json:"user"`
	Token string        `json:"token"`
}

func (r *authRoutes) Register(c *gin.Context) {
	log := logger.Logger()

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debug("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := r.us.Register(c.Request.Context(), service.RegisterInput{
		Email:           req.Email,
		Username:        req.Username,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		ReferralCode:    req.ReferralCode,
	})
	if err != nil {
		writeError(c, err, "Registration failed")
		return
	}

	token, expiresAt, err := r.sessions.Issue(user.ID)
	if err != nil {
		log.Error("failed to issue session", zap.String("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}
	r.sessions.SetCookie(c, token, expiresAt)

	log.Info("user registered", zap.String("user_id", user.ID))
	c.JSON(http.StatusCreated, sessionResponse{User: newUserResponse(user), Token: token})
}

func (r *authRoutes) Login(c *gin.Context) {
	log := logger.Logger()

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debug("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := r.us.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err, "Login failed")
		return
	}

	token, expiresAt, err := r.sessions.Issue(user.ID)
	if err != nil {
		log.Error("failed to issue session", zap.String("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}
	r.sessions.SetCookie(c, token, expiresAt)

	c.JSON(http.StatusOK, sessionResponse{User: newUserResponse(user), Token: token})
}

// Logout always clears the cookie. A valid token is also revoked so copies of it
// stop working.
func (r *authRoutes) Logout(c *gin.Context) {
	log := logger.Logger()

	if token := auth.TokenFromRequest(c); token != "" {
		if claims, err := r.sessions.Validate(c.Request.Context(), token); err == nil {
			if err := r.sessions.Revoke(c.Request.Context(), claims); err != nil {
				log.Error("failed to revoke session", zap.String("user_id", claims.UserID), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Logout failed"})
				return
			}
		}
	}

	r.sessions.ClearCookie(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (r *authRoutes) Me(c *gin.Context) {
	user, ok := middleware.User(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}

func (r *authRoutes) GetUser(c *gin.Context) {
	user, ok := middleware.User(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}
