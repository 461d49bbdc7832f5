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

type referralRoutes struct {
	rs *service.ReferralService
}

func NewReferralRoutes(handler *gin.RouterGroup, rs *service.ReferralService, sessions *auth.SessionManager, authz *middleware.Authorization) {
	r := &referralRoutes{rs: rs}

	h := handler.Group("/referral")
	h.Use(sessions.SessionMiddleware())
	{
		h.GET("", r.GetStats)
		h.POST("/complete", authz.CurrentUser(), r.Complete)
	}
}

type referralStatsResponse struct {
	ReferralCode   string `json:"referralCode"`
	ReferralLink   string `json:"referralLink"`
	TotalReferrals int    `json:"totalReferrals"`
	TotalPoints    int    `json:"totalPoints"`
}

type CompleteReferralRequest struct {
	ReferralCode string `json:"referralCode" binding:"required"`
}

func (r *referralRoutes) GetStats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	stats, err := r.rs.GetStats(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err, "Failed to fetch referral stats")
		return
	}

	c.JSON(http.StatusOK, referralStatsResponse{
		ReferralCode:   stats.Code,
		ReferralLink:   stats.ShareableLink,
		TotalReferrals: stats.TotalReferrals,
		TotalPoints:    stats.TotalPoints,
	})
}

// Complete redeems a code on behalf of the signed-in user.
func (r *referralRoutes) Complete(c *gin.Context) {
	log := logger.Logger()

	user, ok := middleware.User(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var req CompleteReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing referral code"})
		return
	}

	if _, err := r.rs.CompleteReferral(c.Request.Context(), req.ReferralCode, user.ID); err != nil {
		writeError(c, err, "Failed to complete referral")
		return
	}

	log.Info("referral completed", zap.String("user_id", user.ID))
	c.JSON(http.StatusOK, gin.H{"success": true})
}
