package api

import (
	"net/http"
	"strconv"

	"sydai_backend/internal/service"

	"github.com/gin-gonic/gin"
)

type leaderboardRoutes struct {
	ls *service.LeaderboardService
}

func NewLeaderboardRoutes(handler *gin.RouterGroup, ls *service.LeaderboardService) {
	r := &leaderboardRoutes{ls: ls}

	handler.GET("/leaderboard", r.GetLeaderboard)
}

type leaderboardEntry struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Points    int     `json:"points"`
	Rank      int     `json:"rank"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

type leaderboardResponse struct {
	Entries    []leaderboardEntry `json:"entries"`
	TotalUsers int                `json:"totalUsers"`
	HasMore    bool               `json:"hasMore"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func (r *leaderboardRoutes) GetLeaderboard(c *gin.Context) {
	page, err := queryInt(c, "page", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}
	limit, err := queryInt(c, "limit", service.DefaultPageSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	lb, err := r.ls.GetPage(c.Request.Context(), page, limit)
	if err != nil {
		writeError(c, err, "Failed to fetch leaderboard")
		return
	}

	out := leaderboardResponse{
		Entries:    make([]leaderboardEntry, len(lb.Entries)),
		TotalUsers: lb.TotalUsers,
		HasMore:    lb.HasMore,
		Page:       lb.Page,
		Limit:      lb.PageSize,
	}
	for i, e := range lb.Entries {
		out.Entries[i] = leaderboardEntry{
			ID:        e.UserID,
			Username:  e.Username,
			Points:    e.Points,
			Rank:      e.Rank,
			AvatarURL: e.AvatarURL,
		}
	}

	c.JSON(http.StatusOK, out)
}
